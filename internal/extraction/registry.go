package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"sort"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Supported media types.
const (
	MediaTypePDF  = "application/pdf"
	MediaTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaTypeText = "text/plain"
	MediaTypeJPEG = "image/jpeg"
	MediaTypePNG  = "image/png"
	MediaTypeTIFF = "image/tiff"
)

// Registry dispatches extraction by media type.
type Registry struct {
	extractors map[string]domain.TextExtractor
}

// NewRegistry registers the built-in extractors. Image types are only
// supported when an OCR engine is given.
func NewRegistry(ocr OCR) *Registry {
	r := &Registry{extractors: make(map[string]domain.TextExtractor)}

	r.Register(MediaTypePDF, &PDFExtractor{})
	r.Register(MediaTypeDOCX, &DOCXExtractor{})
	r.Register(MediaTypeText, &PlainTextExtractor{})

	if ocr != nil {
		img := &ImageExtractor{ocr: ocr}
		for _, mt := range []string{MediaTypeJPEG, MediaTypePNG, MediaTypeTIFF} {
			r.Register(mt, img)
		}
	}

	return r
}

// Register adds or replaces the extractor for a media type.
func (r *Registry) Register(mediaType string, ext domain.TextExtractor) {
	r.extractors[normalize(mediaType)] = ext
}

// MediaTypes lists the supported media types.
func (r *Registry) MediaTypes() []string {
	types := make([]string, 0, len(r.extractors))
	for mt := range r.extractors {
		types = append(types, mt)
	}
	sort.Strings(types)
	return types
}

// Extract runs the extractor registered for mediaType. Unsupported types
// and extractor failures yield an empty, failed extraction along with
// the error.
func (r *Registry) Extract(ctx context.Context, data []byte, mediaType string) (domain.Extraction, error) {
	mt := normalize(mediaType)

	ext, ok := r.extractors[mt]
	if !ok {
		return failed(mt, "unsupported media type"), fmt.Errorf("%w: %s", domain.ErrUnsupportedMediaType, mt)
	}

	out, err := ext.Extract(ctx, data, mt)
	if err != nil {
		slog.Warn("text extraction failed",
			"media_type", mt,
			"bytes", len(data),
			"error", err,
		)
		return failed(mt, err.Error()), fmt.Errorf("extract %s: %w", mt, err)
	}

	out.MediaType = mt
	return out, nil
}

func failed(mediaType, notes string) domain.Extraction {
	return domain.Extraction{
		MediaType: mediaType,
		Failed:    true,
		Notes:     notes,
	}
}

var extensionTypes = map[string]string{
	".pdf":  MediaTypePDF,
	".docx": MediaTypeDOCX,
	".txt":  MediaTypeText,
	".jpg":  MediaTypeJPEG,
	".jpeg": MediaTypeJPEG,
	".png":  MediaTypePNG,
	".tif":  MediaTypeTIFF,
	".tiff": MediaTypeTIFF,
}

// DetectMediaType resolves a document's media type from its declared
// type, its file name and finally its content.
func DetectMediaType(declared, filename string, data []byte) string {
	if mt := normalize(declared); mt != "" && mt != "application/octet-stream" {
		return mt
	}
	if mt, ok := extensionTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return mt
	}
	return normalize(http.DetectContentType(data))
}

func normalize(mediaType string) string {
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mediaType))
	}
	return mt
}
