package pipeline

import (
	"context"

	"slidesmith/internal/workspace"
)

// Planner produces the content plan for a topic. Implementations may pull in
// auxiliary material (research, images staged into the workspace assets dir)
// before returning their single terminal outcome.
type Planner interface {
	Plan(ctx context.Context, topic, threadID string, ws *workspace.Workspace) (Outcome, error)
}

// GenerateInput carries what the generation collaborator needs for one
// attempt. Feedback holds the validator summary or execution diagnostics
// from the previous failed attempt, empty on the first.
type GenerateInput struct {
	Topic     string
	ThreadID  string
	Plan      string
	Feedback  string
	Iteration int
}

// Generator produces candidate deck-script source. The Outcome payload is
// the script text.
type Generator interface {
	Generate(ctx context.Context, in GenerateInput) (Outcome, error)
}

// DeliveryResult reports one delivery attempt. A failed delivery never fails
// the overall request; the artifact already exists.
type DeliveryResult struct {
	Sent   bool
	Detail string
}

// Deliverer hands the finished artifact to a delivery channel.
type Deliverer interface {
	Send(ctx context.Context, recipient, subject, body, attachmentPath string) DeliveryResult
}
