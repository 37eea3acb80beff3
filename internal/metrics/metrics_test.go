package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
)

func TestRecordAnalysis(t *testing.T) {
	before := testutil.ToFloat64(analysesTotal.WithLabelValues("HIGH"))
	RecordAnalysis("HIGH", 0.02)

	if got := testutil.ToFloat64(analysesTotal.WithLabelValues("HIGH")); got != before+1 {
		t.Errorf("expected %v, got %v", before+1, got)
	}
}

func TestBreakerState(t *testing.T) {
	RecordBreakerStateChange("emotion", gobreaker.StateClosed, gobreaker.StateOpen)
	if got := testutil.ToFloat64(breakerStateGauge.WithLabelValues("emotion")); got != 1 {
		t.Errorf("expected open state 1, got %v", got)
	}

	RecordBreakerState("emotion", gobreaker.StateHalfOpen)
	if got := testutil.ToFloat64(breakerStateGauge.WithLabelValues("emotion")); got != 0.5 {
		t.Errorf("expected half-open state 0.5, got %v", got)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "not_found", "404"))
	RecordHTTPRequest("GET", "", 404, 0.001)

	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "not_found", "404")); got != before+1 {
		t.Errorf("expected %v, got %v", before+1, got)
	}
}
