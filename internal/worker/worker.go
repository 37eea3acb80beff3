// Package worker analyzes submitted documents off the event bus.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/risk"
)

// Analyzer is the subset of the engine the worker drives.
type Analyzer interface {
	AnalyzeDocument(ctx context.Context, text string) (*domain.FraudAnalysisResult, error)
	AnalyzeFile(ctx context.Context, data []byte, mediaType string) (*domain.FraudAnalysisResult, error)
	AnalyzeWithQA(ctx context.Context, text string) (domain.QAAnalysis, error)
}

// Worker consumes document submissions and publishes analysis results.
// Results are published, never persisted.
type Worker struct {
	bus      domain.EventBus
	analyzer Analyzer

	mu            sync.Mutex
	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
}

// DocumentMessage is the payload of a document submission. Either Text
// or Content with MediaType must be set.
type DocumentMessage struct {
	DocumentID string `json:"documentId"`
	Text       string `json:"text,omitempty"`
	Content    []byte `json:"content,omitempty"`
	MediaType  string `json:"mediaType,omitempty"`
	WithQA     bool   `json:"withQa,omitempty"`
}

// ResultMessage is the payload published on completion and on alert.
type ResultMessage struct {
	DocumentID string                      `json:"documentId"`
	TraceID    string                      `json:"traceId,omitempty"`
	Result     *domain.FraudAnalysisResult `json:"result"`
	Reasons    []string                    `json:"reasons"`
	QA         *domain.QAAnalysis          `json:"qa,omitempty"`
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, analyzer Analyzer) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:      bus,
		analyzer: analyzer,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start subscribes to document submissions.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicDocumentSubmitted, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	w.mu.Lock()
	w.subscriptions = append(w.subscriptions, sub)
	w.mu.Unlock()

	slog.Info("worker started",
		"topic", domain.TopicDocumentSubmitted,
	)
	return nil
}

func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var doc DocumentMessage
	if err := json.Unmarshal(msg.Payload, &doc); err != nil {
		slog.Error("failed to parse document message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}
	if doc.DocumentID == "" {
		doc.DocumentID = msg.ID
	}

	traceID := msg.Metadata["trace_id"]
	if traceID == "" {
		traceID = msg.ID
	}

	slog.Debug("processing document",
		"document_id", doc.DocumentID,
		"trace_id", traceID,
	)

	text := doc.Text
	var result *domain.FraudAnalysisResult
	var err error

	if len(doc.Content) > 0 {
		result, err = w.analyzer.AnalyzeFile(ctx, doc.Content, doc.MediaType)
	} else {
		result, err = w.analyzer.AnalyzeDocument(ctx, text)
	}
	if err != nil {
		slog.Error("document analysis failed",
			"document_id", doc.DocumentID,
			"error", err,
		)
		return err
	}

	out := ResultMessage{
		DocumentID: doc.DocumentID,
		TraceID:    traceID,
		Result:     result,
		Reasons:    risk.Reasons(result),
	}

	if doc.WithQA && text != "" {
		qa, err := w.analyzer.AnalyzeWithQA(ctx, text)
		switch {
		case err == nil:
			out.QA = &qa
		case errors.Is(err, domain.ErrMissingCapability):
			slog.Warn("qa requested but not configured",
				"document_id", doc.DocumentID,
			)
		default:
			return err
		}
	}

	payload, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := w.bus.Publish(ctx, domain.TopicAnalysisCompleted, payload); err != nil {
		slog.Error("failed to publish result",
			"document_id", doc.DocumentID,
			"error", err,
		)
	}

	if result.RiskLevel.IsAlert() {
		if err := w.bus.Publish(ctx, domain.TopicAnalysisAlert, payload); err != nil {
			slog.Error("failed to publish alert",
				"document_id", doc.DocumentID,
				"error", err,
			)
		}
	}

	slog.Info("document processed",
		"document_id", doc.DocumentID,
		"risk_level", result.RiskLevel,
		"fraud_score", result.FraudScore,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	slog.Info("worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
