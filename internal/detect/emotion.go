package detect

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// EmotionThreshold is the confidence a fraud-indicating emotion must exceed.
const EmotionThreshold = 0.3

type emotionRule struct {
	weight float64
	reason string
}

var fraudEmotions = map[string]emotionRule{
	"anger": {
		weight: 0.4,
		reason: "Anger can indicate frustration with legitimate processes, suggesting potential fraud",
	},
	"fear": {
		weight: 0.6,
		reason: "Fear often accompanies fraudulent activities due to risk of discovery",
	},
	"sadness": {
		weight: 0.3,
		reason: "Sadness might indicate desperation leading to fraudulent behavior",
	},
}

// EmotionSignalDetector maps emotional tone to fraud weight.
type EmotionSignalDetector struct {
	classifier domain.EmotionClassifier
	maxChars   int
}

// NewEmotionSignalDetector wraps a classifier. Text is truncated to
// maxChars characters before classification.
func NewEmotionSignalDetector(classifier domain.EmotionClassifier, maxChars int) (*EmotionSignalDetector, error) {
	if classifier == nil {
		return nil, fmt.Errorf("emotion detector: %w", domain.ErrMissingCapability)
	}
	if maxChars <= 0 {
		maxChars = 512
	}
	return &EmotionSignalDetector{classifier: classifier, maxChars: maxChars}, nil
}

// Name returns the detector name.
func (d *EmotionSignalDetector) Name() string {
	return domain.DetectorEmotion
}

// Detect classifies the text and scores fraud-indicating emotions.
func (d *EmotionSignalDetector) Detect(ctx context.Context, text string) domain.DetectorResult {
	if strings.TrimSpace(text) == "" {
		return emptyResult(d.Name())
	}

	scores, err := d.classifier.Classify(ctx, truncate(text, d.maxChars))
	if err != nil {
		slog.Warn("emotion classifier failed",
			"detector", d.Name(),
			"error", err,
		)
		return degradedResult(d.Name(), err)
	}

	return scoreEmotions(d.Name(), scores)
}

// scoreEmotions counts each label once, case-insensitively, at its highest
// reported confidence. Labels are visited in sorted order.
func scoreEmotions(name string, scores []domain.EmotionScore) domain.DetectorResult {
	result := emptyResult(name)

	best := make(map[string]float64, len(scores))
	for _, s := range scores {
		label := strings.ToLower(strings.TrimSpace(s.Label))
		if _, ok := fraudEmotions[label]; !ok {
			continue
		}
		if c := domain.ClampScore(s.Confidence); c > best[label] {
			best[label] = c
		}
	}

	labels := make([]string, 0, len(best))
	for label := range best {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var score float64
	for _, label := range labels {
		confidence := best[label]
		if confidence <= EmotionThreshold {
			continue
		}
		rule := fraudEmotions[label]
		result.Signals = append(result.Signals, domain.FraudSignal{
			PatternID:   "emotion_" + label,
			Confidence:  confidence,
			Description: fmt.Sprintf("Detected %s: %s", label, rule.reason),
			Category:    domain.CategoryEmotion,
		})
		score += confidence * rule.weight
	}

	result.SubScore = domain.ClampScore(score)
	return result
}

// truncate returns the first n characters of s.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
