package domain

import (
	"context"
	"errors"
)

var (
	// ErrCapabilityUnavailable means an injected model capability failed to
	// load or cannot serve calls. Detectors degrade instead of failing.
	ErrCapabilityUnavailable = errors.New("capability unavailable")

	// ErrMalformedAnswer means a QA answer's offsets fall outside the context.
	ErrMalformedAnswer = errors.New("malformed answer")

	// ErrEmptyAnswer means the QA capability returned no answer text.
	ErrEmptyAnswer = errors.New("empty answer")

	// ErrUnsupportedMediaType means no extractor handles the media type.
	ErrUnsupportedMediaType = errors.New("unsupported media type")

	// ErrMissingCapability is a construction-time contract violation.
	ErrMissingCapability = errors.New("missing capability")
)

// EmotionScore is one (label, confidence) pair from an emotion classifier.
type EmotionScore struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"score"`
}

// EmotionClassifier scores text against a fixed emotion vocabulary.
type EmotionClassifier interface {
	Classify(ctx context.Context, text string) ([]EmotionScore, error)
}

// Answer is an extractive answer span. Start and End are character
// offsets into the context the question was asked against.
type Answer struct {
	Text       string  `json:"answer"`
	Confidence float64 `json:"score"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
}

// QuestionAnswerer answers a question from a context passage.
type QuestionAnswerer interface {
	Answer(ctx context.Context, question, context string) (Answer, error)
}

// Extraction is the text pulled out of a document.
type Extraction struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"` // 0-100
	BlockCount int     `json:"blockCount"`
	MediaType  string  `json:"mediaType"`
	Failed     bool    `json:"failed,omitempty"`
	Notes      string  `json:"notes,omitempty"`
}

// TextExtractor turns raw document bytes into text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, mediaType string) (Extraction, error)
}
