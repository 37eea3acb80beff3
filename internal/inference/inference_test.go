package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

func testConfig(endpoint string) domain.InferenceConfig {
	return domain.InferenceConfig{
		EmotionEndpoint:    endpoint,
		QAEndpoint:         endpoint,
		EmotionModel:       "emotion-test",
		QAModel:            "qa-test",
		APIToken:           "secret-token",
		Timeout:            2 * time.Second,
		BreakerMaxFailures: 2,
		BreakerOpenTimeout: time.Minute,
	}
}

func TestEmotionClientClassify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret-token" {
			t.Errorf("missing bearer token")
		}
		var req struct {
			Inputs string `json:"inputs"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Inputs != "pay now" {
			t.Errorf("unexpected inputs %q", req.Inputs)
		}
		w.Write([]byte(`[[{"label":"fear","score":0.7},{"label":"joy","score":0.2}]]`))
	}))
	defer server.Close()

	c := NewEmotionClassifier(testConfig(server.URL))
	scores, err := c.Classify(context.Background(), "pay now")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(scores) != 2 || scores[0].Label != "fear" || scores[0].Confidence != 0.7 {
		t.Errorf("unexpected scores %+v", scores)
	}
}

func TestDecodeScoresFlat(t *testing.T) {
	scores, err := decodeScores(json.RawMessage(`[{"label":"anger","score":0.4}]`))
	if err != nil || len(scores) != 1 || scores[0].Label != "anger" {
		t.Errorf("unexpected decode %+v, %v", scores, err)
	}
	if _, err := decodeScores(json.RawMessage(`{"error":"loading"}`)); err == nil {
		t.Error("expected error for object response")
	}
}

func TestQAClientAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req qaRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Inputs.Question != "How much?" || req.Inputs.Context != "It costs $5." {
			t.Errorf("unexpected request %+v", req)
		}
		w.Write([]byte(`{"answer":"$5","score":0.93,"start":9,"end":11}`))
	}))
	defer server.Close()

	c := NewQuestionAnswerer(testConfig(server.URL))
	ans, err := c.Answer(context.Background(), "How much?", "It costs $5.")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	want := domain.Answer{Text: "$5", Confidence: 0.93, Start: 9, End: 11}
	if ans != want {
		t.Errorf("expected %+v, got %+v", want, ans)
	}
}

func TestServerErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Model is currently loading"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewEmotionClassifier(testConfig(server.URL))
	_, err := c.Classify(context.Background(), "text")
	if !errors.Is(err, domain.ErrCapabilityUnavailable) {
		t.Errorf("expected ErrCapabilityUnavailable, got %v", err)
	}
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewQuestionAnswerer(testConfig(server.URL))
	for i := 0; i < 5; i++ {
		_, err := c.Answer(context.Background(), "q", "c")
		if !errors.Is(err, domain.ErrCapabilityUnavailable) {
			t.Fatalf("call %d: expected ErrCapabilityUnavailable, got %v", i, err)
		}
	}

	if got := hits.Load(); got != 2 {
		t.Errorf("expected breaker to stop calls after 2 failures, server saw %d", got)
	}
}

func TestUnavailable(t *testing.T) {
	c := NewEmotionClassifier(domain.InferenceConfig{})
	if IsAvailable(c) {
		t.Error("expected unconfigured classifier to be unavailable")
	}
	if _, err := c.Classify(context.Background(), "x"); !errors.Is(err, domain.ErrCapabilityUnavailable) {
		t.Errorf("expected ErrCapabilityUnavailable, got %v", err)
	}

	q := NewQuestionAnswerer(domain.InferenceConfig{})
	if _, err := q.Answer(context.Background(), "q", "c"); !errors.Is(err, domain.ErrCapabilityUnavailable) {
		t.Errorf("expected ErrCapabilityUnavailable, got %v", err)
	}

	if !IsAvailable(NewQuestionAnswerer(testConfig("http://localhost:1"))) {
		t.Error("expected configured answerer to be available")
	}
}
