package extraction

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// DOCXConfidence is the confidence assigned to text read from a DOCX body.
const DOCXConfidence = 98

// maxDocumentXML bounds the decompressed size of word/document.xml.
const maxDocumentXML = 50 << 20

// DOCXExtractor reads paragraphs from word/document.xml.
type DOCXExtractor struct{}

// Extract returns the non-empty paragraphs joined by newlines.
func (e *DOCXExtractor) Extract(ctx context.Context, data []byte, mediaType string) (domain.Extraction, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("open zip: %w", err)
	}

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return domain.Extraction{}, fmt.Errorf("word/document.xml not found in archive")
	}

	rc, err := docFile.Open()
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()

	paragraphs, err := docxParagraphs(ctx, io.LimitReader(rc, maxDocumentXML))
	if err != nil {
		return domain.Extraction{}, err
	}

	return domain.Extraction{
		Text:       strings.Join(paragraphs, "\n"),
		Confidence: DOCXConfidence,
		BlockCount: len(paragraphs),
		MediaType:  mediaType,
	}, nil
}

func docxParagraphs(ctx context.Context, r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)
	var paragraphs []string
	var current strings.Builder
	inParagraph, inText := false, false

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				current.Reset()
			case "t":
				inText = inParagraph
			case "tab":
				if inParagraph {
					current.WriteByte('\t')
				}
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				inParagraph = false
				if text := strings.TrimSpace(current.String()); text != "" {
					paragraphs = append(paragraphs, text)
				}
			}
		}
	}

	return paragraphs, nil
}
