package inference

import (
	"context"

	"github.com/opensource-finance/harrier/internal/domain"
)

// QAClient calls an extractive question-answering model.
type QAClient struct {
	*client
	model string
}

// NewQuestionAnswerer returns a model client, or Unavailable when no
// endpoint is configured.
func NewQuestionAnswerer(cfg domain.InferenceConfig) domain.QuestionAnswerer {
	if cfg.QAEndpoint == "" {
		return Unavailable{Reason: "qa endpoint not configured"}
	}
	return &QAClient{
		client: newClient("qa", cfg.QAEndpoint, cfg),
		model:  cfg.QAModel,
	}
}

type qaInputs struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

type qaRequest struct {
	Inputs qaInputs `json:"inputs"`
}

// Answer extracts an answer span from the context.
func (c *QAClient) Answer(ctx context.Context, question, context string) (domain.Answer, error) {
	var ans domain.Answer
	if err := c.post(ctx, qaRequest{Inputs: qaInputs{Question: question, Context: context}}, &ans); err != nil {
		return domain.Answer{}, err
	}
	return ans, nil
}

// Model returns the configured model name.
func (c *QAClient) Model() string {
	return c.model
}
