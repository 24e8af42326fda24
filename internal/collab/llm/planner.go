package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"slidesmith/internal/pipeline"
	"slidesmith/internal/workspace"
)

// Asset is an image staged into the workspace for the deck.
type Asset struct {
	LocalPath   string
	Description string
	// IsPlaceholder marks a locally generated stand-in image.
	IsPlaceholder bool
}

// AssetFetcher sources a topic image into the workspace assets directory. A
// nil fetcher or a fetch failure simply yields a text-only deck.
type AssetFetcher interface {
	Fetch(ctx context.Context, topic string, ws *workspace.Workspace) (*Asset, error)
}

// Planner produces the content plan via the model backend, optionally staging
// a topic image first.
type Planner struct {
	client Client
	images AssetFetcher
	logger *zap.Logger
}

// NewPlanner creates the planning collaborator. images and logger may be nil.
func NewPlanner(client Client, images AssetFetcher, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{client: client, images: images, logger: logger}
}

// Plan researches and structures the deck content for a topic.
func (p *Planner) Plan(ctx context.Context, topic, threadID string, ws *workspace.Workspace) (pipeline.Outcome, error) {
	imageNote := ""
	if p.images != nil {
		asset, err := p.images.Fetch(ctx, topic, ws)
		switch {
		case err != nil:
			p.logger.Warn("image sourcing failed, planning a text-only deck",
				zap.String("thread_id", threadID), zap.Error(err))
		case asset != nil:
			imageNote = fmt.Sprintf(
				"An image has been staged for this deck at %q (%s). Assign it to exactly one suitable slide.",
				asset.LocalPath, asset.Description)
			p.logger.Info("image staged for deck",
				zap.String("thread_id", threadID),
				zap.String("path", asset.LocalPath),
				zap.Bool("placeholder", asset.IsPlaceholder))
		}
	}

	plan, err := p.client.CompleteWithSystem(ctx, plannerSystemPrompt, plannerUserPrompt(topic, imageNote))
	if err != nil {
		return pipeline.Outcome{}, fmt.Errorf("planning completion failed: %w", err)
	}
	if plan == "" {
		return pipeline.Outcome{Kind: pipeline.OutcomeError, Payload: "planner returned an empty plan"}, nil
	}
	return pipeline.Outcome{Kind: pipeline.OutcomeSuccess, Payload: plan}, nil
}
