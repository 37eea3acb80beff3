package extraction

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFConfidence is the confidence assigned to text read from a PDF text layer.
const PDFConfidence = 95

// PDFExtractor reads the text layer of a PDF, one block per page.
type PDFExtractor struct{}

// Extract parses the PDF and concatenates the text of every page.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte, mediaType string) (domain.Extraction, error) {
	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("pdfcpu read: %w", err)
	}

	var text strings.Builder
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return domain.Extraction{}, err
		}
		page := pageText(pdfCtx, pageNr)
		if page == "" {
			continue
		}
		if text.Len() > 0 {
			text.WriteByte('\n')
		}
		text.WriteString(page)
	}

	out := domain.Extraction{
		Text:       text.String(),
		BlockCount: pdfCtx.PageCount,
		MediaType:  mediaType,
	}
	if out.Text == "" {
		out.Notes = "no text layer found"
		return out, nil
	}
	out.Confidence = PDFConfidence
	return out, nil
}

func pageText(ctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return textFromContentStream(data)
}

// kernSpace is the TJ displacement, in thousandths of an em, beyond
// which a gap between two strings is read as a word break.
const kernSpace = -200

// textFromContentStream collects the strings shown by the Tj, TJ, ' and "
// operators in a page content stream. Line layout is irrelevant: operands
// and operators are tokenised, so compact single-line streams and CR line
// endings read the same as one operator per line.
func textFromContentStream(data []byte) string {
	var sb strings.Builder
	var shown []string
	inArray := false

	sc := &contentScanner{data: data}
	for {
		kind, tok := sc.next()
		switch kind {
		case tokEOF:
			return collapseSpace(sb.String())
		case tokString:
			shown = append(shown, tok)
		case tokArrayStart:
			inArray = true
		case tokArrayEnd:
			inArray = false
		case tokNumber:
			if inArray {
				if v, err := strconv.ParseFloat(tok, 64); err == nil && v <= kernSpace {
					shown = append(shown, " ")
				}
			}
		case tokOperator:
			switch tok {
			case "Tj", "TJ":
				writeAll(&sb, shown)
			case "'", "\"":
				sb.WriteByte('\n')
				writeAll(&sb, shown)
			case "Td", "TD":
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
			case "T*":
				sb.WriteByte('\n')
			case "ID":
				sc.skipInlineImage()
			}
			shown = shown[:0]
			inArray = false
		}
	}
}

func writeAll(sb *strings.Builder, parts []string) {
	for _, p := range parts {
		sb.WriteString(p)
	}
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokString
	tokNumber
	tokOperator
	tokArrayStart
	tokArrayEnd
	tokOther
)

// contentScanner splits a content stream into PDF lexical tokens.
type contentScanner struct {
	data []byte
	pos  int
}

func isPDFSpace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isPDFDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (s *contentScanner) next() (tokenKind, string) {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		switch {
		case isPDFSpace(c):
			s.pos++
		case c == '%':
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
		default:
			return s.token()
		}
	}
	return tokEOF, ""
}

func (s *contentScanner) token() (tokenKind, string) {
	c := s.data[s.pos]
	switch c {
	case '(':
		return tokString, decodePDFString(s.literal())
	case '<':
		if s.pos+1 < len(s.data) && s.data[s.pos+1] == '<' {
			s.pos += 2
			return tokOther, "<<"
		}
		return tokString, s.hex()
	case '>':
		s.pos++
		if s.pos < len(s.data) && s.data[s.pos] == '>' {
			s.pos++
		}
		return tokOther, ">>"
	case '[':
		s.pos++
		return tokArrayStart, "["
	case ']':
		s.pos++
		return tokArrayEnd, "]"
	case '{', '}', ')':
		s.pos++
		return tokOther, string(c)
	case '/':
		s.pos++
		return tokOther, "/" + s.regular()
	}

	word := s.regular()
	switch {
	case word == "":
		s.pos++
		return tokOther, ""
	case strings.ContainsRune("+-.0123456789", rune(word[0])):
		return tokNumber, word
	default:
		return tokOperator, word
	}
}

func (s *contentScanner) regular() string {
	start := s.pos
	for s.pos < len(s.data) && !isPDFSpace(s.data[s.pos]) && !isPDFDelimiter(s.data[s.pos]) {
		s.pos++
	}
	return string(s.data[start:s.pos])
}

// literal returns the raw bytes of a balanced (...) string, escapes intact.
func (s *contentScanner) literal() []byte {
	s.pos++
	start, depth := s.pos, 1
	for s.pos < len(s.data) {
		switch s.data[s.pos] {
		case '\\':
			s.pos++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				raw := s.data[start:s.pos]
				s.pos++
				return raw
			}
		}
		s.pos++
	}
	return s.data[start:]
}

func (s *contentScanner) hex() string {
	s.pos++
	var out []byte
	var hi byte
	half := false
	for s.pos < len(s.data) && s.data[s.pos] != '>' {
		v, ok := hexValue(s.data[s.pos])
		s.pos++
		if !ok {
			continue
		}
		if half {
			out = append(out, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	if half {
		out = append(out, hi<<4)
	}
	s.pos++
	return string(out)
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// skipInlineImage advances past the binary data of a BI ... ID ... EI block.
func (s *contentScanner) skipInlineImage() {
	for i := s.pos + 1; i+1 < len(s.data); i++ {
		if s.data[i] != 'E' || s.data[i+1] != 'I' || !isPDFSpace(s.data[i-1]) {
			continue
		}
		if i+2 == len(s.data) || isPDFSpace(s.data[i+2]) {
			s.pos = i + 2
			return
		}
	}
	s.pos = len(s.data)
}

func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch c := raw[i]; c {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		default:
			if c < '0' || c > '7' {
				sb.WriteByte(c)
				continue
			}
			// up to three octal digits
			val := int(c - '0')
			for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
				i++
				val = val*8 + int(raw[i]-'0')
			}
			sb.WriteByte(byte(val))
		}
	}
	return sb.String()
}

func collapseSpace(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		case unicode.IsPrint(r):
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}
