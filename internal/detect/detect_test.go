package detect

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/rules"
)

type fakeClassifier struct {
	scores []domain.EmotionScore
	err    error
	calls  int
	last   string
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) ([]domain.EmotionScore, error) {
	f.calls++
	f.last = text
	return f.scores, f.err
}

type answerFunc func(ctx context.Context, question, context string) (domain.Answer, error)

func (f answerFunc) Answer(ctx context.Context, question, context string) (domain.Answer, error) {
	return f(ctx, question, context)
}

// spanAnswer answers with the whole context as the span.
func spanAnswer(text string) answerFunc {
	return func(ctx context.Context, question, c string) (domain.Answer, error) {
		return domain.Answer{Text: text, Confidence: 0.9, Start: 0, End: len([]rune(c))}, nil
	}
}

func newKeywordDetector(t *testing.T) *KeywordPatternDetector {
	t.Helper()
	engine, err := rules.NewEngine(rules.DefaultDensityRules())
	if err != nil {
		t.Fatalf("failed to create rule engine: %v", err)
	}
	d, err := NewKeywordPatternDetector(DefaultKeywordCategories(), engine)
	if err != nil {
		t.Fatalf("failed to create detector: %v", err)
	}
	return d
}

func signalByID(signals []domain.FraudSignal, id string) (domain.FraudSignal, bool) {
	for _, s := range signals {
		if s.PatternID == id {
			return s, true
		}
	}
	return domain.FraudSignal{}, false
}

func TestKeywordEmptyInput(t *testing.T) {
	d := newKeywordDetector(t)
	r := d.Detect(context.Background(), "")

	if r.SubScore != 0 || len(r.Signals) != 0 {
		t.Errorf("expected empty result, got %+v", r)
	}
	if r.DetectorName != domain.DetectorKeywordPattern {
		t.Errorf("unexpected detector name %s", r.DetectorName)
	}
}

func TestKeywordFullCategoryMatch(t *testing.T) {
	d := newKeywordDetector(t)
	r := d.Detect(context.Background(), "URGENT and immediate, ASAP, this is an Emergency")

	s, ok := signalByID(r.Signals, string(domain.CategoryUrgency))
	if !ok {
		t.Fatal("expected urgency signal")
	}
	if s.Confidence != 1.0 {
		t.Errorf("expected confidence 1.0, got %v", s.Confidence)
	}
	if r.SubScore < 0.3-1e-9 || r.SubScore > 0.3+1e-9 {
		t.Errorf("expected sub-score 0.3, got %v", r.SubScore)
	}
}

func TestKeywordScenarioCategories(t *testing.T) {
	d := newKeywordDetector(t)
	r := d.Detect(context.Background(), "URGENT: wire transfer $50,000 immediately, confidential!")

	want := []domain.Category{
		domain.CategoryUrgency,
		domain.CategoryConfidentiality,
		domain.CategoryPaymentMethod,
		domain.CategoryAmount,
	}
	if len(r.Signals) != len(want) {
		t.Fatalf("expected %d signals, got %d: %+v", len(want), len(r.Signals), r.Signals)
	}
	for i, c := range want {
		if r.Signals[i].Category != c {
			t.Errorf("signal %d: expected %s, got %s", i, c, r.Signals[i].Category)
		}
	}
	if r.SubScore < 0.39 || r.SubScore > 0.41 {
		t.Errorf("expected sub-score 0.4, got %v", r.SubScore)
	}
}

func TestKeywordNoMatch(t *testing.T) {
	d := newKeywordDetector(t)
	r := d.Detect(context.Background(), "Invoice #LEG-1234, Net 30 terms, thank you for your business.")

	if len(r.Signals) != 0 || r.SubScore != 0 {
		t.Errorf("expected no signals, got %+v", r)
	}
}

func TestKeywordDensityRules(t *testing.T) {
	d := newKeywordDetector(t)
	text := "$1 $2 $3 $4 $5 $6 a@x.com b@x.com c@x.com d@x.com"
	r := d.Detect(context.Background(), text)

	amounts, ok := signalByID(r.Signals, domain.PatternExcessiveAmounts)
	if !ok || amounts.Confidence != 0.6 {
		t.Errorf("expected excessive_amounts at 0.6, got %+v", amounts)
	}
	emails, ok := signalByID(r.Signals, domain.PatternMultipleEmails)
	if !ok || emails.Confidence != 0.5 {
		t.Errorf("expected multiple_emails at 0.5, got %+v", emails)
	}

	// amount category ($ only) 1/3 * 0.3 + 0.2 + 0.1
	want := 0.1 + 0.2 + 0.1
	if r.SubScore < want-1e-9 || r.SubScore > want+1e-9 {
		t.Errorf("expected sub-score %v, got %v", want, r.SubScore)
	}
}

func TestKeywordSubScoreClamped(t *testing.T) {
	d := newKeywordDetector(t)
	var b strings.Builder
	for _, c := range DefaultKeywordCategories() {
		b.WriteString(strings.Join(c.Keywords, " "))
		b.WriteString(" ")
	}
	b.WriteString("$1 $2 $3 $4 $5 $6 a@x.com b@x.com c@x.com d@x.com")

	r := d.Detect(context.Background(), b.String())
	if r.SubScore != 1.0 {
		t.Errorf("expected clamped sub-score 1.0, got %v", r.SubScore)
	}
}

func TestKeywordCategoryOrderAndValidation(t *testing.T) {
	cats := []*domain.KeywordCategory{
		{Name: "late", Keywords: []string{"b"}, Position: 2, Enabled: true},
		{Name: "early", Keywords: []string{"a"}, Position: 1, Enabled: true},
		{Name: "off", Keywords: []string{"a"}, Position: 0, Enabled: false},
	}
	d, err := NewKeywordPatternDetector(cats, nil)
	if err != nil {
		t.Fatalf("failed to create detector: %v", err)
	}

	r := d.Detect(context.Background(), "a b")
	if len(r.Signals) != 2 || r.Signals[0].PatternID != "early" || r.Signals[1].PatternID != "late" {
		t.Errorf("unexpected signal order %+v", r.Signals)
	}

	_, err = NewKeywordPatternDetector([]*domain.KeywordCategory{{Name: "empty", Enabled: true}}, nil)
	if err == nil {
		t.Error("expected error for category without keywords")
	}
}

func TestEmotionRequiresClassifier(t *testing.T) {
	_, err := NewEmotionSignalDetector(nil, 512)
	if !errors.Is(err, domain.ErrMissingCapability) {
		t.Errorf("expected ErrMissingCapability, got %v", err)
	}
}

func TestEmotionScoring(t *testing.T) {
	classifier := &fakeClassifier{scores: []domain.EmotionScore{
		{Label: "joy", Confidence: 0.9},
		{Label: "fear", Confidence: 0.5},
		{Label: "anger", Confidence: 0.25},
		{Label: "sadness", Confidence: 0.4},
	}}
	d, _ := NewEmotionSignalDetector(classifier, 512)

	r := d.Detect(context.Background(), "please pay now or else")

	if len(r.Signals) != 2 {
		t.Fatalf("expected 2 signals, got %+v", r.Signals)
	}
	// labels are processed in sorted order
	if r.Signals[0].PatternID != "emotion_fear" || r.Signals[1].PatternID != "emotion_sadness" {
		t.Errorf("unexpected signals %+v", r.Signals)
	}
	want := 0.5*0.6 + 0.4*0.3
	if r.SubScore < want-1e-9 || r.SubScore > want+1e-9 {
		t.Errorf("expected sub-score %v, got %v", want, r.SubScore)
	}
	if r.Degraded {
		t.Error("expected non-degraded result")
	}
}

func TestEmotionThresholdIsExclusive(t *testing.T) {
	classifier := &fakeClassifier{scores: []domain.EmotionScore{{Label: "fear", Confidence: 0.3}}}
	d, _ := NewEmotionSignalDetector(classifier, 512)

	if r := d.Detect(context.Background(), "text"); len(r.Signals) != 0 {
		t.Errorf("expected no signal at exactly the threshold, got %+v", r.Signals)
	}
}

func TestEmotionDeterministicOrder(t *testing.T) {
	a := []domain.EmotionScore{{Label: "anger", Confidence: 0.8}, {Label: "fear", Confidence: 0.7}}
	b := []domain.EmotionScore{{Label: "fear", Confidence: 0.7}, {Label: "anger", Confidence: 0.8}}

	ra := scoreEmotions("emotion", a)
	rb := scoreEmotions("emotion", b)
	if ra.SubScore != rb.SubScore || ra.Signals[0] != rb.Signals[0] || ra.Signals[1] != rb.Signals[1] {
		t.Errorf("expected identical results, got %+v and %+v", ra, rb)
	}
}

func TestEmotionDuplicateLabelsCountOnce(t *testing.T) {
	r := scoreEmotions(domain.DetectorEmotion, []domain.EmotionScore{
		{Label: "fear", Confidence: 0.4},
		{Label: "FEAR", Confidence: 0.5},
		{Label: "Fear", Confidence: 0.45},
	})

	if len(r.Signals) != 1 {
		t.Fatalf("expected a single fear signal, got %+v", r.Signals)
	}
	if r.Signals[0].Confidence != 0.5 {
		t.Errorf("expected highest confidence 0.5, got %v", r.Signals[0].Confidence)
	}
	want := 0.5 * 0.6
	if r.SubScore < want-1e-9 || r.SubScore > want+1e-9 {
		t.Errorf("expected sub-score %v, got %v", want, r.SubScore)
	}
}

func TestEmotionTruncatesInput(t *testing.T) {
	classifier := &fakeClassifier{}
	d, _ := NewEmotionSignalDetector(classifier, 10)

	d.Detect(context.Background(), strings.Repeat("é", 50))
	if got := len([]rune(classifier.last)); got != 10 {
		t.Errorf("expected 10 characters sent, got %d", got)
	}
}

func TestEmotionDegraded(t *testing.T) {
	classifier := &fakeClassifier{err: domain.ErrCapabilityUnavailable}
	d, _ := NewEmotionSignalDetector(classifier, 512)

	r := d.Detect(context.Background(), "text")
	if !r.Degraded {
		t.Error("expected degraded result")
	}
	if r.SubScore != 0 || len(r.Signals) != 0 {
		t.Errorf("expected empty degraded result, got %+v", r)
	}
}

func TestEmotionEmptyTextSkipsClassifier(t *testing.T) {
	classifier := &fakeClassifier{}
	d, _ := NewEmotionSignalDetector(classifier, 512)

	r := d.Detect(context.Background(), "   ")
	if classifier.calls != 0 {
		t.Errorf("expected no classifier call, got %d", classifier.calls)
	}
	if r.Degraded {
		t.Error("expected non-degraded result")
	}
}
