package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// OCR recognizes text in an image. Confidence is the mean word
// confidence on a 0-100 scale.
type OCR interface {
	Recognize(ctx context.Context, image []byte) (text string, confidence float64, err error)
}

// ImageExtractor delegates image documents to an OCR engine.
type ImageExtractor struct {
	ocr OCR
}

// NewImageExtractor wraps an OCR engine.
func NewImageExtractor(ocr OCR) (*ImageExtractor, error) {
	if ocr == nil {
		return nil, fmt.Errorf("image extractor: %w", domain.ErrMissingCapability)
	}
	return &ImageExtractor{ocr: ocr}, nil
}

// Extract runs OCR; blocks are the non-empty lines recognized.
func (e *ImageExtractor) Extract(ctx context.Context, data []byte, mediaType string) (domain.Extraction, error) {
	text, confidence, err := e.ocr.Recognize(ctx, data)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("ocr: %w", err)
	}

	return domain.Extraction{
		Text:       strings.TrimSpace(text),
		Confidence: confidence,
		BlockCount: countLines(text),
		MediaType:  mediaType,
	}, nil
}

func countLines(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
