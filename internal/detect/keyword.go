package detect

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/rules"
)

// KeywordPatternDetector matches a keyword lexicon and density rules.
type KeywordPatternDetector struct {
	categories []keywordCategory
	density    *rules.Engine
}

type keywordCategory struct {
	name     domain.Category
	keywords []string // lowercased
}

// NewKeywordPatternDetector builds a detector over the enabled categories,
// ordered by position. density may be nil to skip density rules.
func NewKeywordPatternDetector(categories []*domain.KeywordCategory, density *rules.Engine) (*KeywordPatternDetector, error) {
	enabled := make([]*domain.KeywordCategory, 0, len(categories))
	for _, c := range categories {
		if c != nil && c.Enabled {
			enabled = append(enabled, c)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].Position < enabled[j].Position
	})

	d := &KeywordPatternDetector{density: density}
	for _, c := range enabled {
		kc := keywordCategory{name: c.Name}
		for _, kw := range c.Keywords {
			if kw = strings.ToLower(kw); kw != "" {
				kc.keywords = append(kc.keywords, kw)
			}
		}
		if len(kc.keywords) == 0 {
			return nil, fmt.Errorf("keyword category %s has no keywords", c.Name)
		}
		d.categories = append(d.categories, kc)
	}

	return d, nil
}

// Name returns the detector name.
func (d *KeywordPatternDetector) Name() string {
	return domain.DetectorKeywordPattern
}

// Detect scores text by keyword category coverage plus density rules.
func (d *KeywordPatternDetector) Detect(ctx context.Context, text string) domain.DetectorResult {
	result := emptyResult(d.Name())
	if text == "" {
		return result
	}

	lower := strings.ToLower(text)
	var score float64

	for _, c := range d.categories {
		matches := 0
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}

		confidence := float64(matches) / float64(len(c.keywords))
		result.Signals = append(result.Signals, domain.FraudSignal{
			PatternID:   string(c.name),
			Confidence:  domain.ClampScore(confidence),
			Description: fmt.Sprintf("Found %d %s indicators", matches, c.name),
			Category:    c.name,
		})
		score += confidence * CategoryWeight
	}

	if d.density != nil {
		for _, hit := range d.density.Evaluate(ctx, rules.ExtractFeatures(text)) {
			result.Signals = append(result.Signals, domain.FraudSignal{
				PatternID:   hit.RuleID,
				Confidence:  domain.ClampScore(hit.Confidence),
				Description: hit.Description,
				Category:    domain.CategoryDensity,
			})
			score += hit.Contribution()
		}
	}

	result.SubScore = domain.ClampScore(score)
	return result
}

// Categories returns the active lexicon in evaluation order.
func (d *KeywordPatternDetector) Categories() []domain.KeywordCategory {
	out := make([]domain.KeywordCategory, 0, len(d.categories))
	for i, c := range d.categories {
		out = append(out, domain.KeywordCategory{
			Name:     c.name,
			Keywords: append([]string(nil), c.keywords...),
			Position: i,
			Enabled:  true,
		})
	}
	return out
}

// DensityRules returns the active density rules, if any.
func (d *KeywordPatternDetector) DensityRules() []*domain.DensityRule {
	if d.density == nil {
		return nil
	}
	return d.density.Rules()
}
