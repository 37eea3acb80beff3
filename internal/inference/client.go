// Package inference provides the remote model capabilities: emotion
// classification and extractive question answering over the Hugging Face
// inference JSON protocol.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/metrics"
	"github.com/sony/gobreaker"
)

// maxResponseBytes bounds a model server response.
const maxResponseBytes = 1 << 20

// client posts JSON to one model endpoint behind a circuit breaker.
type client struct {
	name     string
	endpoint string
	token    string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
}

func newClient(name, endpoint string, cfg domain.InferenceConfig) *client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			// a caller giving up says nothing about the model server
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("inference breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
			metrics.RecordBreakerStateChange(name, from, to)
		},
	})
	metrics.RecordBreakerState(name, cb.State())

	return &client{
		name:     name,
		endpoint: endpoint,
		token:    cfg.APIToken,
		http:     &http.Client{Timeout: timeout},
		breaker:  cb,
	}
}

// post sends payload and decodes the response into out. Every failure is
// reported as ErrCapabilityUnavailable.
func (c *client) post(ctx context.Context, payload any, out any) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, payload, out)
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w: %v", c.name, domain.ErrCapabilityUnavailable, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%s: %w: %v", c.name, domain.ErrCapabilityUnavailable, err)
}

func (c *client) do(ctx context.Context, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model server returned %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Unavailable stands in for a capability that is not configured or
// failed to load. Every call returns ErrCapabilityUnavailable.
type Unavailable struct {
	Reason string
}

// Classify always fails.
func (u Unavailable) Classify(ctx context.Context, text string) ([]domain.EmotionScore, error) {
	return nil, u.err()
}

// Answer always fails.
func (u Unavailable) Answer(ctx context.Context, question, context string) (domain.Answer, error) {
	return domain.Answer{}, u.err()
}

func (u Unavailable) err() error {
	if u.Reason == "" {
		return domain.ErrCapabilityUnavailable
	}
	return fmt.Errorf("%w: %s", domain.ErrCapabilityUnavailable, u.Reason)
}

// IsAvailable reports whether a capability is backed by a model.
func IsAvailable(capability any) bool {
	switch capability.(type) {
	case nil, Unavailable, *Unavailable:
		return false
	default:
		return true
	}
}
