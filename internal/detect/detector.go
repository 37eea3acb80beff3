// Package detect implements the signal detectors that score document text.
package detect

import (
	"context"

	"github.com/opensource-finance/harrier/internal/domain"
)

// SignalDetector produces a sub-score and fraud signals from text.
//
// Detect never returns an error: a detector whose capability fails
// reports a degraded result instead.
type SignalDetector interface {
	Name() string
	Detect(ctx context.Context, text string) domain.DetectorResult
}

func emptyResult(name string) domain.DetectorResult {
	return domain.DetectorResult{
		DetectorName: name,
		Signals:      []domain.FraudSignal{},
	}
}

func degradedResult(name string, err error) domain.DetectorResult {
	r := emptyResult(name)
	r.Degraded = true
	if err != nil {
		r.Error = err.Error()
	}
	return r
}
