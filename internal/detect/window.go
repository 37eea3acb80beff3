package detect

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

var sentenceBoundary = regexp.MustCompile(`[.!?]+`)

const excerptSeparator = ". "

// SelectExcerpt picks the sentences of text most relevant to question,
// fitting within maxLength characters.
//
// Sentences are ranked by how many distinct words they share with the
// question; ties keep document order. The highest-ranked sentences are
// joined with ". " until the next one would not fit. When nothing
// overlaps the question, the first maxLength characters are returned.
// The result never exceeds maxLength characters.
func SelectExcerpt(question, text string, maxLength int) string {
	if maxLength <= 0 {
		return ""
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return truncate(text, maxLength)
	}

	qWords := wordSet(question)
	type scored struct {
		text  string
		score int
	}
	ranked := make([]scored, len(sentences))
	best := 0
	for i, s := range sentences {
		n := 0
		for w := range wordSet(s) {
			if _, ok := qWords[w]; ok {
				n++
			}
		}
		ranked[i] = scored{text: s, score: n}
		if n > best {
			best = n
		}
	}
	if best == 0 {
		return truncate(text, maxLength)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	var b strings.Builder
	length := 0
	for _, s := range ranked {
		add := utf8.RuneCountInString(s.text)
		if length > 0 {
			add += len(excerptSeparator)
		}
		if length+add > maxLength {
			break
		}
		if length > 0 {
			b.WriteString(excerptSeparator)
		}
		b.WriteString(s.text)
		length += add
	}

	if length == 0 {
		return truncate(text, maxLength)
	}
	return b.String()
}

func splitSentences(text string) []string {
	parts := sentenceBoundary.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

func wordSet(s string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, f := range strings.Fields(strings.ToLower(s)) {
		w := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if w != "" {
			words[w] = struct{}{}
		}
	}
	return words
}
