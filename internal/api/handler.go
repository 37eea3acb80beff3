package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/opensource-finance/harrier/internal/detect"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/engine"
	"github.com/opensource-finance/harrier/internal/extraction"
	"github.com/opensource-finance/harrier/internal/risk"
	"github.com/opensource-finance/harrier/internal/worker"
)

const defaultMaxUploadBytes = 10 << 20

// Deps holds the collaborators the handlers use. Only Engine is
// required; nil collaborators disable the endpoints that need them.
type Deps struct {
	Engine  *engine.Engine
	Keyword *detect.KeywordPatternDetector

	// Questions is the QA battery, shown by GET /patterns.
	Questions    []domain.QAQuestionSpec
	Capabilities Capabilities
	PolicySource string

	Repo    domain.PolicyRepository
	Cache   domain.Cache
	Bus     domain.EventBus
	Version string
}

// Capabilities reports which injected model capabilities are live.
type Capabilities struct {
	EmotionClassifier bool     `json:"emotionClassifier"`
	QuestionAnswerer  bool     `json:"questionAnswerer"`
	MediaTypes        []string `json:"mediaTypes"`
}

// Handler holds dependencies for API handlers.
type Handler struct {
	deps      Deps
	maxUpload int64
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps, maxUpload int64) *Handler {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	return &Handler{deps: deps, maxUpload: maxUpload}
}

// AnalyzeRequest is the request body for POST /analyze.
type AnalyzeRequest struct {
	Text string `json:"text" validate:"required"`

	// Async queues the document on the event bus instead of scoring inline.
	Async      bool   `json:"async,omitempty"`
	DocumentID string `json:"documentId,omitempty" validate:"max=128"`
}

// AnalyzeResponse is the response for POST /analyze and POST /documents.
type AnalyzeResponse struct {
	AnalysisID string `json:"analysisId"`
	*domain.FraudAnalysisResult
	Reasons  []string         `json:"reasons"`
	Metadata ResponseMetadata `json:"metadata"`
}

// ResponseMetadata is attached to every analysis response.
type ResponseMetadata struct {
	TraceID string `json:"traceId"`
	Version string `json:"version"`
}

// QARequest is the request body for POST /analyze/qa.
type QARequest struct {
	DocumentText string `json:"documentText" validate:"required"`
}

// AskRequest is the request body for POST /qa/ask.
type AskRequest struct {
	Question     string `json:"question" validate:"required"`
	DocumentText string `json:"documentText" validate:"required"`
}

// AskResponse is the response for POST /qa/ask.
type AskResponse struct {
	domain.Answer
	Excerpt string `json:"excerpt"`
}

// GradeRequest is the request body for POST /extraction/grade.
type GradeRequest struct {
	ConfidenceScore  *float64 `json:"confidenceScore" validate:"required,gte=0,lte=100"`
	ExtractionFailed bool     `json:"extractionFailed"`
}

// Analyze handles POST /analyze requests.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AnalyzeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	analysisID := uuid.New().String()

	if req.Async {
		h.submit(w, ctx, analysisID, req)
		return
	}

	result, err := h.deps.Engine.AnalyzeDocument(ctx, req.Text)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.analysisResponse(ctx, analysisID, result))
}

var marshalSubmission = func(doc worker.DocumentMessage) ([]byte, error) {
	return json.Marshal(doc)
}

func (h *Handler) submit(w http.ResponseWriter, ctx context.Context, analysisID string, req AnalyzeRequest) {
	if h.deps.Bus == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "event bus not available",
		})
		return
	}

	documentID := req.DocumentID
	if documentID == "" {
		documentID = analysisID
	}

	payload, err := marshalSubmission(worker.DocumentMessage{
		DocumentID: documentID,
		Text:       req.Text,
	})
	if err != nil {
		slog.Error("failed to marshal document",
			"document_id", documentID,
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to queue document",
		})
		return
	}
	if err := h.deps.Bus.Publish(ctx, domain.TopicDocumentSubmitted, payload); err != nil {
		slog.Error("failed to queue document",
			"document_id", documentID,
			"error", err,
		)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "failed to queue document",
		})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"documentId": documentID,
		"status":     "queued",
	})
}

// AnalyzeQA handles POST /analyze/qa requests.
func (h *Handler) AnalyzeQA(w http.ResponseWriter, r *http.Request) {
	var req QARequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	analysis, err := h.deps.Engine.AnalyzeWithQA(r.Context(), req.DocumentText)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

// Ask handles POST /qa/ask requests.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ans, excerpt, err := h.deps.Engine.Ask(r.Context(), req.Question, req.DocumentText)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, AskResponse{Answer: ans, Excerpt: excerpt})
	case errors.Is(err, domain.ErrEmptyAnswer), errors.Is(err, domain.ErrMalformedAnswer):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": err.Error(),
		})
	default:
		writeEngineError(w, err)
	}
}

// UploadDocument handles POST /documents multipart uploads.
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.ContentLength > h.maxUpload {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
			"error": "document too large",
		})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
				"error": "document too large",
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "multipart field 'file' is required",
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "failed to read document",
		})
		return
	}

	mediaType := extraction.DetectMediaType(header.Header.Get("Content-Type"), header.Filename, data)

	result, err := h.deps.Engine.AnalyzeFile(ctx, data, mediaType)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	slog.Info("document analyzed",
		"filename", header.Filename,
		"media_type", mediaType,
		"bytes", len(data),
		"risk_level", result.RiskLevel,
	)

	writeJSON(w, http.StatusOK, h.analysisResponse(ctx, uuid.New().String(), result))
}

// GradeExtraction handles POST /extraction/grade requests.
func (h *Handler) GradeExtraction(w http.ResponseWriter, r *http.Request) {
	var req GradeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	writeJSON(w, http.StatusOK, extraction.Grade(*req.ConfidenceScore, req.ExtractionFailed))
}

// Patterns handles GET /patterns: the active scoring policy.
func (h *Handler) Patterns(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"weights":   h.deps.Engine.Aggregator().Weights(),
		"detectors": h.deps.Engine.Detectors(),
		"questions": h.deps.Questions,
		"source":    h.deps.PolicySource,
		"riskThresholds": map[string]float64{
			string(domain.RiskCritical): domain.CriticalThreshold,
			string(domain.RiskHigh):     domain.HighThreshold,
			string(domain.RiskMedium):   domain.MediumThreshold,
		},
	}
	if h.deps.Keyword != nil {
		resp["keywordCategories"] = h.deps.Keyword.Categories()
		resp["densityRules"] = h.deps.Keyword.DensityRules()
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetCapabilities handles GET /capabilities.
func (h *Handler) GetCapabilities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Capabilities)
}

// Health reports liveness and the state of optional backends.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if h.deps.Repo != nil {
		if err := h.deps.Repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.deps.Cache != nil {
		if err := h.deps.Cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if !h.deps.Capabilities.EmotionClassifier || !h.deps.Capabilities.QuestionAnswerer {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.deps.Version,
	})
}

// Ready fails while the event bus is unreachable.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.deps.Bus != nil {
		if err := h.deps.Bus.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"ready": "false",
				"error": err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func (h *Handler) analysisResponse(ctx context.Context, analysisID string, result *domain.FraudAnalysisResult) AnalyzeResponse {
	return AnalyzeResponse{
		AnalysisID:          analysisID,
		FraudAnalysisResult: result,
		Reasons:             nonNil(risk.Reasons(result)),
		Metadata: ResponseMetadata{
			TraceID: GetTraceID(ctx),
			Version: h.deps.Version,
		},
	}
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "validation failed",
			"fields": validationErrors(err),
		})
		return false
	}
	return true
}

// writeEngineError maps engine errors to HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrMissingCapability):
		writeJSON(w, http.StatusNotImplemented, map[string]string{
			"error": "capability not configured",
		})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "analysis abandoned",
		})
	default:
		slog.Error("analysis failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "analysis failed",
		})
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
