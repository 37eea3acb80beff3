package extraction

import (
	"context"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// PlainTextExtractor passes text documents through.
type PlainTextExtractor struct{}

// Extract returns the document as-is with full confidence. Invalid UTF-8
// sequences are dropped.
func (e *PlainTextExtractor) Extract(ctx context.Context, data []byte, mediaType string) (domain.Extraction, error) {
	text := strings.ToValidUTF8(string(data), "")
	return domain.Extraction{
		Text:       text,
		Confidence: 100,
		BlockCount: countLines(text),
		MediaType:  mediaType,
	}, nil
}
