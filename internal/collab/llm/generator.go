package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"slidesmith/internal/pipeline"
)

// Generator produces candidate deck-script source via the model backend.
type Generator struct {
	client Client
	logger *zap.Logger
}

// NewGenerator creates the generation collaborator. logger may be nil.
func NewGenerator(client Client, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{client: client, logger: logger}
}

// Generate turns the plan (and any prior-attempt feedback) into script source.
func (g *Generator) Generate(ctx context.Context, in pipeline.GenerateInput) (pipeline.Outcome, error) {
	raw, err := g.client.CompleteWithSystem(ctx, generatorSystemPrompt, generatorUserPrompt(in.Topic, in.Plan, in.Feedback))
	if err != nil {
		return pipeline.Outcome{}, fmt.Errorf("generation completion failed: %w", err)
	}

	source := StripFences(raw)
	if source == "" {
		return pipeline.Outcome{Kind: pipeline.OutcomeError, Payload: "generator returned an empty script"}, nil
	}

	g.logger.Debug("script generated",
		zap.String("thread_id", in.ThreadID),
		zap.Int("iteration", in.Iteration),
		zap.Int("bytes", len(source)))
	return pipeline.Outcome{Kind: pipeline.OutcomeSuccess, Payload: source}, nil
}

// StripFences removes a surrounding markdown code fence when the model wraps
// its answer in one despite instructions.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return s
	}
	// Drop the opening fence (with optional language tag) and a closing fence.
	lines = lines[1:]
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			lines = append(lines[:i], lines[i+1:]...)
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
