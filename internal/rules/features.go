package rules

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	// AmountPattern matches a currency symbol followed by digits, with
	// optional thousands separators and decimals.
	AmountPattern = regexp.MustCompile(`[$€£]\d[\d,]*(?:\.\d+)?`)

	// EmailPattern matches email-like substrings.
	EmailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
)

// Features are the numeric text measurements density rules run against.
type Features struct {
	AmountCount int64
	EmailCount  int64
	TextLength  int64 // characters
	MaxAmount   float64
}

// ExtractFeatures measures text for density rule evaluation.
func ExtractFeatures(text string) Features {
	f := Features{
		TextLength: int64(utf8.RuneCountInString(text)),
	}

	for _, m := range AmountPattern.FindAllString(text, -1) {
		f.AmountCount++
		if v, ok := ParseAmount(m); ok && v > f.MaxAmount {
			f.MaxAmount = v
		}
	}
	f.EmailCount = int64(len(EmailPattern.FindAllStringIndex(text, -1)))

	return f
}

// ParseAmount converts a matched currency amount like "$50,000.00" to a number.
func ParseAmount(s string) (float64, bool) {
	s = strings.TrimLeft(s, "$€£")
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (f Features) activation() map[string]any {
	return map[string]any{
		"amount_count": f.AmountCount,
		"email_count":  f.EmailCount,
		"text_length":  f.TextLength,
		"max_amount":   f.MaxAmount,
	}
}

func (f Features) replacer() *strings.Replacer {
	return strings.NewReplacer(
		"{amount_count}", strconv.FormatInt(f.AmountCount, 10),
		"{email_count}", strconv.FormatInt(f.EmailCount, 10),
		"{text_length}", strconv.FormatInt(f.TextLength, 10),
		"{max_amount}", strconv.FormatFloat(f.MaxAmount, 'f', 2, 64),
	)
}
