package risk

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/opensource-finance/harrier/internal/domain"
)

func sig(id, desc string, conf float64) domain.FraudSignal {
	return domain.FraudSignal{PatternID: id, Description: desc, Confidence: conf, Category: domain.CategoryUrgency}
}

func approx(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}

func TestNewAggregator(t *testing.T) {
	if _, err := NewAggregator(nil); err != nil {
		t.Fatalf("default weights rejected: %v", err)
	}
	if _, err := NewAggregator(map[string]float64{"a": -1, "b": 2}); err == nil {
		t.Error("expected error for negative weight")
	}
	if _, err := NewAggregator(map[string]float64{"a": 0}); err == nil {
		t.Error("expected error for all-zero weights")
	}
}

func TestAggregate(t *testing.T) {
	agg, _ := NewAggregator(nil)

	t.Run("BothActive", func(t *testing.T) {
		res := agg.Aggregate([]domain.DetectorResult{
			{DetectorName: domain.DetectorKeywordPattern, SubScore: 0.4},
			{DetectorName: domain.DetectorEmotion, SubScore: 1.0},
		})

		if !approx(res.FraudScore, 0.64) {
			t.Errorf("expected 0.64, got %v", res.FraudScore)
		}
		if res.RiskLevel != domain.RiskHigh {
			t.Errorf("expected HIGH, got %s", res.RiskLevel)
		}
		if len(res.DegradedDetectors) != 0 {
			t.Errorf("expected no degraded detectors, got %v", res.DegradedDetectors)
		}
	})

	t.Run("DegradedWeightRedistributed", func(t *testing.T) {
		res := agg.Aggregate([]domain.DetectorResult{
			{DetectorName: domain.DetectorKeywordPattern, SubScore: 0.5},
			{DetectorName: domain.DetectorEmotion, SubScore: 0.9, Degraded: true},
		})

		if !approx(res.FraudScore, 0.5) {
			t.Errorf("expected score from keyword detector alone (0.5), got %v", res.FraudScore)
		}
		if diff := cmp.Diff([]string{domain.DetectorEmotion}, res.DegradedDetectors); diff != "" {
			t.Errorf("degraded detectors mismatch (-want +got):\n%s", diff)
		}
		if _, ok := res.PerDetector[domain.DetectorEmotion]; !ok {
			t.Error("expected degraded detector in per-detector map")
		}
	})

	t.Run("AllDegraded", func(t *testing.T) {
		res := agg.Aggregate([]domain.DetectorResult{
			{DetectorName: domain.DetectorKeywordPattern, Degraded: true},
			{DetectorName: domain.DetectorEmotion, Degraded: true},
		})
		if res.FraudScore != 0 || res.RiskLevel != domain.RiskLow {
			t.Errorf("expected 0/LOW, got %v/%s", res.FraudScore, res.RiskLevel)
		}
	})

	t.Run("UnknownDetectorCarriesNoWeight", func(t *testing.T) {
		res := agg.Aggregate([]domain.DetectorResult{
			{DetectorName: domain.DetectorKeywordPattern, SubScore: 0.2},
			{DetectorName: "mystery", SubScore: 1.0, Signals: []domain.FraudSignal{sig("m", "m", 1)}},
		})
		if !approx(res.FraudScore, 0.2) {
			t.Errorf("expected 0.2, got %v", res.FraudScore)
		}
		if len(res.Signals) != 1 {
			t.Errorf("expected signals kept, got %d", len(res.Signals))
		}
	})

	t.Run("Empty", func(t *testing.T) {
		res := agg.Aggregate(nil)
		if res.FraudScore != 0 || res.RiskLevel != domain.RiskLow || res.Signals == nil {
			t.Errorf("unexpected empty aggregation %+v", res)
		}
	})
}

func TestAggregateDeduplicatesSignals(t *testing.T) {
	agg, _ := NewAggregator(nil)
	res := agg.Aggregate([]domain.DetectorResult{
		{
			DetectorName: domain.DetectorKeywordPattern,
			Signals:      []domain.FraudSignal{sig("a", "first", 0.5), sig("b", "second", 0.4)},
		},
		{
			DetectorName: domain.DetectorEmotion,
			Signals:      []domain.FraudSignal{sig("a", "first", 0.9), sig("a", "other", 0.3), sig("c", "third", 1.7)},
		},
	})

	want := []domain.FraudSignal{
		sig("a", "first", 0.5),
		sig("b", "second", 0.4),
		sig("a", "other", 0.3),
		sig("c", "third", 1.0),
	}
	if diff := cmp.Diff(want, res.Signals); diff != "" {
		t.Errorf("signals mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregateScoreAlwaysInRange(t *testing.T) {
	agg, _ := NewAggregator(map[string]float64{"a": 0.2, "b": 0.5, "c": 0.3})
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		var results []domain.DetectorResult
		for _, name := range []string{"a", "b", "c"} {
			results = append(results, domain.DetectorResult{
				DetectorName: name,
				SubScore:     rng.Float64()*3 - 1,
				Degraded:     rng.Intn(4) == 0,
			})
		}

		res := agg.Aggregate(results)
		if res.FraudScore < 0 || res.FraudScore > 1 {
			t.Fatalf("score %v out of range", res.FraudScore)
		}
		if res.RiskLevel != domain.RiskLevelFor(res.FraudScore) {
			t.Fatalf("tier %s inconsistent with score %v", res.RiskLevel, res.FraudScore)
		}
	}
}

func TestRiskLevelThresholds(t *testing.T) {
	tests := []struct {
		score float64
		want  domain.RiskLevel
	}{
		{0, domain.RiskLow},
		{0.299, domain.RiskLow},
		{0.3, domain.RiskMedium},
		{0.599, domain.RiskMedium},
		{0.6, domain.RiskHigh},
		{0.799, domain.RiskHigh},
		{0.8, domain.RiskCritical},
		{1, domain.RiskCritical},
	}
	for _, tt := range tests {
		if got := domain.RiskLevelFor(tt.score); got != tt.want {
			t.Errorf("RiskLevelFor(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		s := rng.Float64()
		got := domain.RiskLevelFor(s)
		switch {
		case s >= 0.8 && got != domain.RiskCritical,
			s >= 0.6 && s < 0.8 && got != domain.RiskHigh,
			s >= 0.3 && s < 0.6 && got != domain.RiskMedium,
			s < 0.3 && got != domain.RiskLow:
			t.Fatalf("score %v mapped to %s", s, got)
		}
	}
}

func TestReasons(t *testing.T) {
	res := &domain.FraudAnalysisResult{Signals: []domain.FraudSignal{
		sig("a", "low", 0.2),
		sig("b", "high", 0.9),
		sig("c", "", 0.5),
	}}

	if diff := cmp.Diff([]string{"high", "low"}, Reasons(res)); diff != "" {
		t.Errorf("reasons mismatch (-want +got):\n%s", diff)
	}
	if Reasons(nil) != nil {
		t.Error("expected nil reasons for nil result")
	}
}
