package rules

import (
	"context"
	"strings"
	"testing"

	"github.com/opensource-finance/harrier/internal/domain"
)

func TestEngineCreation(t *testing.T) {
	engine, err := NewEngine(nil)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	if engine.RulesCount() != 0 {
		t.Errorf("expected 0 rules, got %d", engine.RulesCount())
	}
	if hits := engine.Evaluate(context.Background(), ExtractFeatures("$1 $2")); hits != nil {
		t.Errorf("expected no hits, got %v", hits)
	}
}

func TestDefaultRulesCompile(t *testing.T) {
	engine, err := NewEngine(DefaultDensityRules())
	if err != nil {
		t.Fatalf("failed to compile default rules: %v", err)
	}
	if engine.RulesCount() != 2 {
		t.Errorf("expected 2 rules, got %d", engine.RulesCount())
	}
}

func TestDisabledRuleSkipped(t *testing.T) {
	rules := DefaultDensityRules()
	rules[1].Enabled = false

	engine, err := NewEngine(rules)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	if engine.RulesCount() != 1 {
		t.Errorf("expected 1 rule, got %d", engine.RulesCount())
	}
	if engine.Rules()[0].ID != domain.PatternExcessiveAmounts {
		t.Errorf("unexpected rule %s", engine.Rules()[0].ID)
	}
}

func TestInvalidRuleFailsConstruction(t *testing.T) {
	tests := []struct {
		name       string
		expression string
	}{
		{"syntax", "this is not valid CEL !!!"},
		{"unknown variable", "sender_count > 3"},
		{"string output", `"excessive"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine([]*domain.DensityRule{{
				ID:         "bad",
				Expression: tt.expression,
				Enabled:    true,
			}})
			if err == nil {
				t.Error("expected construction error")
			}
		})
	}
}

func TestValidateRule(t *testing.T) {
	valid := &domain.DensityRule{ID: "long_text", Expression: "text_length > 10000", Weight: 0.1, Confidence: 0.4}
	if err := ValidateRule(valid); err != nil {
		t.Errorf("expected valid rule, got %v", err)
	}

	if err := ValidateRule(nil); err == nil {
		t.Error("expected error for nil rule")
	}
	if err := ValidateRule(&domain.DensityRule{Expression: "true"}); err == nil {
		t.Error("expected error for missing id")
	}
	if err := ValidateRule(&domain.DensityRule{ID: "w", Expression: "true", Weight: 1.5}); err == nil {
		t.Error("expected error for weight out of range")
	}
}

func TestEvaluateDefaultRules(t *testing.T) {
	engine, _ := NewEngine(DefaultDensityRules())
	ctx := context.Background()

	tests := []struct {
		name    string
		text    string
		wantIDs []string
	}{
		{"no amounts", "Invoice for services rendered.", nil},
		{"five amounts", "$1 $2 $3 $4 $5", nil},
		{"six amounts", "$1 $2 $3 $4 $5 $6", []string{domain.PatternExcessiveAmounts}},
		{"three emails", "a@x.com b@x.com c@x.com", nil},
		{"four emails", "a@x.com b@x.com c@x.com d@x.com", []string{domain.PatternMultipleEmails}},
		{
			"both",
			"$1 $2 $3 $4 $5 $6 a@x.com b@x.com c@x.com d@x.com",
			[]string{domain.PatternExcessiveAmounts, domain.PatternMultipleEmails},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := engine.Evaluate(ctx, ExtractFeatures(tt.text))
			if len(hits) != len(tt.wantIDs) {
				t.Fatalf("expected %d hits, got %d (%v)", len(tt.wantIDs), len(hits), hits)
			}
			for i, id := range tt.wantIDs {
				if hits[i].RuleID != id {
					t.Errorf("hit %d: expected %s, got %s", i, id, hits[i].RuleID)
				}
			}
		})
	}
}

func TestHitDescriptionPlaceholders(t *testing.T) {
	engine, _ := NewEngine(DefaultDensityRules())

	hits := engine.Evaluate(context.Background(), ExtractFeatures("$1 $2 $3 $4 $5 $6 $7"))
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}

	if !strings.Contains(hits[0].Description, "(7)") {
		t.Errorf("expected count in description, got %q", hits[0].Description)
	}
	if hits[0].Weight != 0.2 || hits[0].Confidence != 0.6 {
		t.Errorf("unexpected weight/confidence %v/%v", hits[0].Weight, hits[0].Confidence)
	}
}

func TestNumericRuleOutput(t *testing.T) {
	engine, err := NewEngine([]*domain.DensityRule{{
		ID:          "large_amount",
		Expression:  "max_amount > 10000.0 ? 1.0 : 0.0",
		Description: "Largest amount {max_amount}",
		Weight:      0.1,
		Confidence:  0.4,
		Enabled:     true,
	}})
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	ctx := context.Background()

	if hits := engine.Evaluate(ctx, ExtractFeatures("pay $500.00")); len(hits) != 0 {
		t.Errorf("expected no hits for small amount, got %v", hits)
	}

	hits := engine.Evaluate(ctx, ExtractFeatures("pay $50,000 now"))
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].Description != "Largest amount 50000.00" {
		t.Errorf("unexpected description %q", hits[0].Description)
	}
}

func TestHitContributionScalesWithScore(t *testing.T) {
	engine, err := NewEngine([]*domain.DensityRule{
		{ID: "amount_ratio", Expression: "double(amount_count) / 10.0", Weight: 0.4, Confidence: 0.5, Enabled: true},
		{ID: "many_amounts", Expression: "amount_count * 2", Weight: 0.2, Confidence: 0.5, Enabled: true},
		{ID: "any_amount", Expression: "amount_count > 0", Weight: 0.3, Confidence: 0.5, Enabled: true},
	})
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	hits := engine.Evaluate(context.Background(), ExtractFeatures("$1 $2 $3 $4 $5"))
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %+v", hits)
	}

	want := map[string]float64{
		"amount_ratio": 0.4 * 0.5, // 5 / 10
		"many_amounts": 0.2,       // 10 clamps to 1
		"any_amount":   0.3,
	}
	for _, h := range hits {
		if h.Score <= 0 || h.Score > 1 {
			t.Errorf("%s: score %v outside (0, 1]", h.RuleID, h.Score)
		}
		if got := h.Contribution(); got < want[h.RuleID]-1e-9 || got > want[h.RuleID]+1e-9 {
			t.Errorf("%s: contribution %v, want %v", h.RuleID, got, want[h.RuleID])
		}
	}
}

func TestEvaluateCancelled(t *testing.T) {
	engine, _ := NewEngine(DefaultDensityRules())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if hits := engine.Evaluate(ctx, ExtractFeatures("$1 $2 $3 $4 $5 $6")); len(hits) != 0 {
		t.Errorf("expected no hits after cancellation, got %v", hits)
	}
}

func TestExtractFeatures(t *testing.T) {
	f := ExtractFeatures("Wire $50,000.00 and €1,200 to ops@example.com or billing@example.org")

	if f.AmountCount != 2 {
		t.Errorf("expected 2 amounts, got %d", f.AmountCount)
	}
	if f.EmailCount != 2 {
		t.Errorf("expected 2 emails, got %d", f.EmailCount)
	}
	if f.MaxAmount != 50000 {
		t.Errorf("expected max amount 50000, got %v", f.MaxAmount)
	}

	if got := ExtractFeatures("héllo").TextLength; got != 5 {
		t.Errorf("expected rune length 5, got %d", got)
	}
}
