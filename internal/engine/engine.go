// Package engine runs the signal detectors over a document and combines
// their output into a single fraud verdict.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/opensource-finance/harrier/internal/detect"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/extraction"
	"github.com/opensource-finance/harrier/internal/metrics"
	"github.com/opensource-finance/harrier/internal/risk"
)

var tracer = otel.Tracer("harrier-engine")

// ErrDetectorTimeout marks a detector that did not report within the
// configured timeout.
var ErrDetectorTimeout = errors.New("detector timed out")

// Engine is stateless between calls; detectors and capabilities are
// injected once at construction.
type Engine struct {
	detectors  []detect.SignalDetector
	qa         *detect.DocumentQADetector
	aggregator *risk.Aggregator
	extractor  domain.TextExtractor
	timeout    time.Duration
}

// New builds an engine. qa and extractor may be nil, which disables
// AnalyzeWithQA and AnalyzeFile respectively. When cfg.IncludeQA is set
// the QA detector also joins the AnalyzeDocument fan-out.
func New(cfg domain.EngineConfig, detectors []detect.SignalDetector, qa *detect.DocumentQADetector, extractor domain.TextExtractor) (*Engine, error) {
	ds := make([]detect.SignalDetector, 0, len(detectors)+1)
	seen := make(map[string]struct{})
	for _, d := range detectors {
		if d == nil {
			return nil, fmt.Errorf("nil detector: %w", domain.ErrMissingCapability)
		}
		if _, dup := seen[d.Name()]; dup {
			return nil, fmt.Errorf("duplicate detector %q", d.Name())
		}
		seen[d.Name()] = struct{}{}
		ds = append(ds, d)
	}
	if cfg.IncludeQA && qa != nil {
		if _, dup := seen[qa.Name()]; !dup {
			ds = append(ds, qa)
		}
	}
	if len(ds) == 0 {
		return nil, fmt.Errorf("no detectors: %w", domain.ErrMissingCapability)
	}

	agg, err := risk.NewAggregator(cfg.Weights)
	if err != nil {
		return nil, fmt.Errorf("failed to create aggregator: %w", err)
	}
	for _, d := range ds {
		if agg.Weight(d.Name()) <= 0 {
			return nil, fmt.Errorf("detector %q has no aggregation weight", d.Name())
		}
	}

	return &Engine{
		detectors:  ds,
		qa:         qa,
		aggregator: agg,
		extractor:  extractor,
		timeout:    cfg.DetectorTimeout,
	}, nil
}

// Detectors returns the names of the detectors in the fan-out, in order.
func (e *Engine) Detectors() []string {
	names := make([]string, len(e.detectors))
	for i, d := range e.detectors {
		names[i] = d.Name()
	}
	return names
}

// Aggregator returns the engine's aggregator.
func (e *Engine) Aggregator() *risk.Aggregator {
	return e.aggregator
}

// AnalyzeDocument runs every detector concurrently over text and
// aggregates their results. It fails only when ctx ends before all
// detectors have reported; partial results are discarded.
func (e *Engine) AnalyzeDocument(ctx context.Context, text string) (*domain.FraudAnalysisResult, error) {
	start := time.Now()

	ctx, span := tracer.Start(ctx, "analyze_document",
		trace.WithAttributes(attribute.Int("text.length", len(text))),
	)
	defer span.End()

	results := make([]domain.DetectorResult, len(e.detectors))

	g, gctx := errgroup.WithContext(ctx)
	for i, d := range e.detectors {
		g.Go(func() error {
			r, err := e.runDetector(gctx, d, text)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis abandoned")
		return nil, fmt.Errorf("analysis abandoned: %w", err)
	}

	result := e.aggregator.Aggregate(results)
	elapsed := time.Since(start)
	result.ProcessingTimeMs = float64(elapsed.Microseconds()) / 1000

	metrics.RecordAnalysis(string(result.RiskLevel), elapsed.Seconds())
	span.SetAttributes(
		attribute.Float64("fraud_score", result.FraudScore),
		attribute.String("risk_level", string(result.RiskLevel)),
		attribute.Int("signal_count", len(result.Signals)),
	)

	slog.Debug("document analyzed",
		"fraud_score", result.FraudScore,
		"risk_level", result.RiskLevel,
		"signal_count", len(result.Signals),
		"degraded", result.DegradedDetectors,
		"duration_ms", elapsed.Milliseconds(),
	)

	return result, nil
}

// runDetector runs one detector under the per-detector timeout. An
// expired detector becomes a degraded result; a cancelled caller is an
// error.
func (e *Engine) runDetector(ctx context.Context, d detect.SignalDetector, text string) (domain.DetectorResult, error) {
	ctx, span := tracer.Start(ctx, "detector."+d.Name(),
		trace.WithAttributes(attribute.String("detector", d.Name())),
	)
	defer span.End()

	dctx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	done := make(chan domain.DetectorResult, 1)
	go func() {
		done <- d.Detect(dctx, text)
	}()

	var result domain.DetectorResult
	select {
	case result = <-done:
	case <-dctx.Done():
		result = domain.DetectorResult{
			DetectorName: d.Name(),
			Signals:      []domain.FraudSignal{},
			Degraded:     true,
			Error:        ErrDetectorTimeout.Error(),
		}
	}

	if err := ctx.Err(); err != nil {
		return domain.DetectorResult{}, err
	}

	if result.DetectorName == "" {
		result.DetectorName = d.Name()
	}
	if result.Signals == nil {
		result.Signals = []domain.FraudSignal{}
	}

	span.SetAttributes(
		attribute.Float64("sub_score", result.SubScore),
		attribute.Bool("degraded", result.Degraded),
	)
	if result.Degraded {
		metrics.RecordDegraded(d.Name())
		slog.Warn("detector degraded",
			"detector", d.Name(),
			"error", result.Error,
		)
	}

	return result, nil
}

// AnalyzeWithQA runs the QA battery alone and reports per-question
// findings on the battery's own risk scale.
func (e *Engine) AnalyzeWithQA(ctx context.Context, text string) (domain.QAAnalysis, error) {
	if e.qa == nil {
		return domain.QAAnalysis{}, fmt.Errorf("question answering: %w", domain.ErrMissingCapability)
	}

	ctx, span := tracer.Start(ctx, "analyze_with_qa")
	defer span.End()

	analysis := e.qa.Analyze(ctx, text)
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		return domain.QAAnalysis{}, fmt.Errorf("qa analysis abandoned: %w", err)
	}

	for _, f := range analysis.Findings {
		if f.Error != "" {
			metrics.RecordQAFailure(string(f.Category))
		}
	}
	if analysis.Degraded {
		metrics.RecordDegraded(e.qa.Name())
		slog.Warn("detector degraded",
			"detector", e.qa.Name(),
			"processed_questions", analysis.ProcessedQuestions,
		)
	}

	span.SetAttributes(
		attribute.Float64("total_risk_score", analysis.TotalRiskScore),
		attribute.String("overall_risk", string(analysis.OverallRisk)),
	)

	return analysis, nil
}

// Ask answers a single question over the relevant excerpt of text.
func (e *Engine) Ask(ctx context.Context, question, text string) (domain.Answer, string, error) {
	if e.qa == nil {
		return domain.Answer{}, "", fmt.Errorf("question answering: %w", domain.ErrMissingCapability)
	}
	return e.qa.Ask(ctx, question, text)
}

// Extract pulls text out of a document and grades the extraction.
// An extraction failure is reported in the grade, not as an error.
func (e *Engine) Extract(ctx context.Context, data []byte, mediaType string) (domain.Extraction, domain.ExtractionQuality, error) {
	if e.extractor == nil {
		return domain.Extraction{}, domain.ExtractionQuality{}, fmt.Errorf("text extraction: %w", domain.ErrMissingCapability)
	}

	ctx, span := tracer.Start(ctx, "extract",
		trace.WithAttributes(attribute.String("media_type", mediaType)),
	)
	defer span.End()

	ext, err := e.extractor.Extract(ctx, data, mediaType)
	if cerr := ctx.Err(); cerr != nil {
		return domain.Extraction{}, domain.ExtractionQuality{}, cerr
	}
	if err != nil {
		slog.Debug("analyzing failed extraction",
			"media_type", mediaType,
			"error", err,
		)
		ext.Failed = true
		if ext.MediaType == "" {
			ext.MediaType = mediaType
		}
	}

	quality := extraction.GradeExtraction(ext)
	metrics.RecordExtraction(string(quality.QualityLevel))
	span.SetAttributes(attribute.String("quality_level", string(quality.QualityLevel)))

	return ext, quality, nil
}

// AnalyzeFile extracts text from raw document bytes and analyzes it.
// The extraction grade is attached to the result as metadata.
func (e *Engine) AnalyzeFile(ctx context.Context, data []byte, mediaType string) (*domain.FraudAnalysisResult, error) {
	start := time.Now()

	ext, quality, err := e.Extract(ctx, data, mediaType)
	if err != nil {
		return nil, err
	}

	result, err := e.AnalyzeDocument(ctx, ext.Text)
	if err != nil {
		return nil, err
	}

	result.Extraction = &quality
	result.ProcessingTimeMs = float64(time.Since(start).Microseconds()) / 1000
	return result, nil
}
