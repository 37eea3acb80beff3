package detect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/rules"
)

// DocumentQADetector asks a fixed question battery against a document
// and scores the answers.
type DocumentQADetector struct {
	answerer     domain.QuestionAnswerer
	questions    []domain.QAQuestionSpec
	contextLimit int
}

// NewDocumentQADetector wraps a question answerer. Documents longer than
// contextLimit characters are windowed per question.
func NewDocumentQADetector(answerer domain.QuestionAnswerer, contextLimit int) (*DocumentQADetector, error) {
	if answerer == nil {
		return nil, fmt.Errorf("qa detector: %w", domain.ErrMissingCapability)
	}
	if contextLimit <= 0 {
		contextLimit = 512
	}
	return &DocumentQADetector{
		answerer:     answerer,
		questions:    DefaultQuestions(),
		contextLimit: contextLimit,
	}, nil
}

// Name returns the detector name.
func (d *DocumentQADetector) Name() string {
	return domain.DetectorDocumentQA
}

// Questions returns the question battery.
func (d *DocumentQADetector) Questions() []domain.QAQuestionSpec {
	return append([]domain.QAQuestionSpec(nil), d.questions...)
}

// Ask answers a single question over the windowed document. It returns
// the answer and the excerpt it was drawn from.
func (d *DocumentQADetector) Ask(ctx context.Context, question, text string) (domain.Answer, string, error) {
	excerpt := text
	if utf8.RuneCountInString(text) > d.contextLimit {
		excerpt = SelectExcerpt(question, text, d.contextLimit)
	}

	ans, err := d.answerer.Answer(ctx, question, excerpt)
	if err != nil {
		return domain.Answer{}, excerpt, err
	}
	if err := validateAnswer(ans, excerpt); err != nil {
		return ans, excerpt, err
	}
	ans.Confidence = domain.ClampScore(ans.Confidence)
	return ans, excerpt, nil
}

func validateAnswer(ans domain.Answer, excerpt string) error {
	if strings.TrimSpace(ans.Text) == "" {
		return domain.ErrEmptyAnswer
	}
	n := utf8.RuneCountInString(excerpt)
	if ans.Start < 0 || ans.End < ans.Start || ans.End > n {
		return fmt.Errorf("%w: span [%d,%d) outside context of %d characters",
			domain.ErrMalformedAnswer, ans.Start, ans.End, n)
	}
	return nil
}

// Analyze runs the question battery. A failing question scores zero and
// records its error; the remaining questions still run.
func (d *DocumentQADetector) Analyze(ctx context.Context, text string) domain.QAAnalysis {
	start := time.Now()
	analysis := domain.QAAnalysis{
		Findings: make([]domain.QAFinding, 0, len(d.questions)),
	}

	unavailable := 0
	var total float64

	for _, q := range d.questions {
		if ctx.Err() != nil {
			analysis.Degraded = true
			break
		}
		analysis.ProcessedQuestions++

		finding := domain.QAFinding{
			Question:   q.Question,
			Category:   q.Category,
			Indicators: []string{},
		}

		ans, _, err := d.Ask(ctx, q.Question, text)
		if err != nil {
			if errors.Is(err, domain.ErrCapabilityUnavailable) {
				unavailable++
			}
			if errors.Is(err, domain.ErrMalformedAnswer) {
				finding.Answer = ans.Text
			}
			finding.Error = err.Error()
			slog.Debug("qa question failed",
				"category", q.Category,
				"error", err,
			)
			analysis.Findings = append(analysis.Findings, finding)
			continue
		}

		finding.Answer = ans.Text
		finding.Confidence = ans.Confidence
		finding.Indicators, finding.LocalRiskScore = scanAnswer(q.Category, ans.Text)
		finding.RiskScore = finding.LocalRiskScore * q.RiskWeight
		total += finding.RiskScore

		analysis.Findings = append(analysis.Findings, finding)
	}

	if len(d.questions) > 0 && unavailable == len(d.questions) {
		analysis.Degraded = true
	}

	analysis.TotalRiskScore = domain.ClampScore(total)
	analysis.OverallRisk = domain.QARiskLevelFor(analysis.TotalRiskScore)
	analysis.ProcessingTimeMs = float64(time.Since(start).Microseconds()) / 1000
	return analysis
}

// Detect runs the battery and reports it as a detector result. Each
// question with a positive contribution becomes a signal.
func (d *DocumentQADetector) Detect(ctx context.Context, text string) domain.DetectorResult {
	if strings.TrimSpace(text) == "" {
		return emptyResult(d.Name())
	}

	analysis := d.Analyze(ctx, text)
	if analysis.Degraded {
		r := degradedResult(d.Name(), domain.ErrCapabilityUnavailable)
		if err := ctx.Err(); err != nil {
			r.Error = err.Error()
		}
		r.ProcessedQuestions = analysis.ProcessedQuestions
		return r
	}

	result := emptyResult(d.Name())
	result.ProcessedQuestions = analysis.ProcessedQuestions
	result.SubScore = analysis.TotalRiskScore

	for _, f := range analysis.Findings {
		if f.RiskScore <= 0 {
			continue
		}
		result.Signals = append(result.Signals, domain.FraudSignal{
			PatternID:   "qa_" + string(f.Category),
			Confidence:  f.LocalRiskScore,
			Description: fmt.Sprintf("%s %s", f.Question, strings.Join(f.Indicators, "; ")),
			Category:    f.Category,
		})
	}

	return result
}

// scanAnswer looks for fraud indicators in an answer. It returns the
// indicators found and the clamped local risk score.
func scanAnswer(category domain.Category, answer string) ([]string, float64) {
	lower := strings.ToLower(answer)
	indicators := []string{}
	var score float64

	scanWords := func(s answerScan) {
		for _, w := range s.words {
			if strings.Contains(lower, w) {
				indicators = append(indicators, fmt.Sprintf("%s: '%s'", s.label, w))
				score += s.weight
			}
		}
	}

	switch category {
	case domain.CategoryAmountVerification:
		for _, m := range rules.AmountPattern.FindAllString(answer, -1) {
			if v, ok := rules.ParseAmount(m); ok && v > largeAmountThreshold {
				indicators = append(indicators, "Large amount detected: "+m)
				score += largeAmountWeight
			}
		}
	case domain.CategoryContactVerification:
		for _, email := range rules.EmailPattern.FindAllString(answer, -1) {
			at := strings.LastIndex(email, "@")
			host := strings.ToLower(email[at+1:])
			for _, webmail := range webmailDomains {
				if strings.HasPrefix(host, webmail+".") {
					indicators = append(indicators, "Personal email contact: "+email)
					score += webmailWeight
					break
				}
			}
		}
	default:
		if s, ok := categoryScans[category]; ok {
			scanWords(s)
		}
	}
	scanWords(generalFraudScan)

	return indicators, domain.ClampScore(score)
}
