// Package risk combines detector outputs into a single fraud verdict.
package risk

import (
	"fmt"
	"sort"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Aggregator merges detector results with a fixed weight vector.
//
// Degraded detectors drop out and their weight is redistributed
// proportionally over the detectors that reported.
type Aggregator struct {
	weights map[string]float64
}

// NewAggregator creates an aggregator. A nil map uses the default weights.
func NewAggregator(weights map[string]float64) (*Aggregator, error) {
	if weights == nil {
		weights = domain.DefaultWeights()
	}

	w := make(map[string]float64, len(weights))
	var total float64
	for name, v := range weights {
		if v < 0 || v != v {
			return nil, fmt.Errorf("invalid weight %v for detector %s", v, name)
		}
		w[name] = v
		total += v
	}
	if total == 0 {
		return nil, fmt.Errorf("weight vector must have a positive weight")
	}

	return &Aggregator{weights: w}, nil
}

// Weight returns the configured weight for a detector. Unknown detectors weigh 0.
func (a *Aggregator) Weight(detector string) float64 {
	return a.weights[detector]
}

// Weights returns a copy of the weight vector.
func (a *Aggregator) Weights() map[string]float64 {
	out := make(map[string]float64, len(a.weights))
	for k, v := range a.weights {
		out[k] = v
	}
	return out
}

// Aggregate combines detector results into a FraudAnalysisResult.
// Processing time is left for the caller to fill in.
func (a *Aggregator) Aggregate(results []domain.DetectorResult) *domain.FraudAnalysisResult {
	out := &domain.FraudAnalysisResult{
		Signals:     []domain.FraudSignal{},
		PerDetector: make(map[string]domain.DetectorResult, len(results)),
	}

	var weighted, activeWeight float64
	seen := make(map[signalKey]struct{})

	for _, r := range results {
		r.SubScore = domain.ClampScore(r.SubScore)
		out.PerDetector[r.DetectorName] = r

		if r.Degraded {
			out.DegradedDetectors = append(out.DegradedDetectors, r.DetectorName)
			continue
		}

		w := a.weights[r.DetectorName]
		weighted += r.SubScore * w
		activeWeight += w

		for _, s := range r.Signals {
			key := signalKey{s.PatternID, s.Description}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			s.Confidence = domain.ClampScore(s.Confidence)
			out.Signals = append(out.Signals, s)
		}
	}

	if activeWeight > 0 {
		out.FraudScore = domain.ClampScore(weighted / activeWeight)
	}
	out.RiskLevel = domain.RiskLevelFor(out.FraudScore)
	sort.Strings(out.DegradedDetectors)

	return out
}

type signalKey struct {
	patternID   string
	description string
}

// Reasons returns the signal descriptions of a result, most confident first.
func Reasons(result *domain.FraudAnalysisResult) []string {
	if result == nil {
		return nil
	}

	signals := make([]domain.FraudSignal, len(result.Signals))
	copy(signals, result.Signals)
	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Confidence > signals[j].Confidence
	})

	reasons := make([]string, 0, len(signals))
	for _, s := range signals {
		if s.Description != "" {
			reasons = append(reasons, s.Description)
		}
	}
	return reasons
}
