package inference

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/opensource-finance/harrier/internal/domain"
)

// EmotionClient calls a text-classification model returning emotion labels.
type EmotionClient struct {
	*client
	model string
}

// NewEmotionClassifier returns a model client, or Unavailable when no
// endpoint is configured.
func NewEmotionClassifier(cfg domain.InferenceConfig) domain.EmotionClassifier {
	if cfg.EmotionEndpoint == "" {
		return Unavailable{Reason: "emotion endpoint not configured"}
	}
	return &EmotionClient{
		client: newClient("emotion", cfg.EmotionEndpoint, cfg),
		model:  cfg.EmotionModel,
	}
}

type classifyRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Classify returns a confidence for every label of the model.
func (c *EmotionClient) Classify(ctx context.Context, text string) ([]domain.EmotionScore, error) {
	var raw json.RawMessage
	req := classifyRequest{
		Inputs:     text,
		Parameters: map[string]any{"top_k": nil},
	}
	if err := c.post(ctx, req, &raw); err != nil {
		return nil, err
	}

	scores, err := decodeScores(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", c.name, domain.ErrCapabilityUnavailable, err)
	}
	return scores, nil
}

// Model returns the configured model name.
func (c *EmotionClient) Model() string {
	return c.model
}

// decodeScores accepts both the batched [[...]] and flat [...] shapes.
func decodeScores(raw json.RawMessage) ([]domain.EmotionScore, error) {
	var batched [][]domain.EmotionScore
	if err := json.Unmarshal(raw, &batched); err == nil {
		if len(batched) == 0 {
			return nil, nil
		}
		return batched[0], nil
	}

	var flat []domain.EmotionScore
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("unexpected classification response: %w", err)
	}
	return flat, nil
}
