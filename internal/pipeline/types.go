// Package pipeline contains the stage orchestrator: an explicit finite-state
// machine sequencing planning, generation, validation, execution and optional
// delivery, with bounded retry on validation and execution failures.
package pipeline

import (
	"time"
)

// Stage identifies one phase of the pipeline. Exactly one stage is active at
// a time.
type Stage string

const (
	StagePlanning   Stage = "planning"
	StageGenerating Stage = "generating"
	StageValidating Stage = "validating"
	StageExecuting  Stage = "executing"
	StageDelivering Stage = "delivering"
	StageDone       Stage = "done"   // terminal success
	StageFailed     Stage = "failed" // terminal failure
)

// Status classifies a recorded stage result.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Request describes one deck-generation run.
type Request struct {
	Topic    string
	ThreadID string // identity for history correlation; generated when empty
	// Recipient, when set, enables the delivery stage.
	Recipient string
	// MaxIterations bounds generation attempts. Defaults to 3.
	MaxIterations int
}

// StageResult is one immutable entry in the run history.
type StageResult struct {
	Stage     Stage
	Status    Status
	Output    string
	Iteration int
	Timestamp time.Time
}

// OutcomeKind is the structured result classification every stage
// collaborator returns. The orchestrator routes on it directly; there is no
// keyword matching over free text.
type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeWarning OutcomeKind = "warning"
	OutcomeError   OutcomeKind = "error"
)

// Outcome is the envelope a stage collaborator returns: a kind the
// orchestrator routes on and a free-form payload (plan text, script source,
// diagnostics) it carries forward.
type Outcome struct {
	Kind    OutcomeKind
	Payload string
}

// State is the externally visible result of a run. It reaches a terminal
// stage exactly once.
type State struct {
	ThreadID      string
	Topic         string
	Stage         Stage
	Iterations    int
	MaxIterations int
	History       []StageResult
	Terminal      bool
	Success       bool
	ArtifactPath  string
	WorkspaceRoot string

	// Delivery status is tracked independently of overall success.
	EmailRequested bool
	EmailSent      bool
	EmailDetail    string

	Failure *Failure
}

func statusForKind(kind OutcomeKind) Status {
	switch kind {
	case OutcomeSuccess:
		return StatusSuccess
	case OutcomeWarning:
		return StatusWarning
	default:
		return StatusError
	}
}
