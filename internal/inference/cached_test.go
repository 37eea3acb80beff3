package inference

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

// mapCache is an in-memory domain.Cache.
type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]byte)}
}

func (m *mapCache) Get(ctx context.Context, ns, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.data[ns+":"+key], nil
}

func (m *mapCache) Set(ctx context.Context, ns, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[ns+":"+key] = value
	return nil
}

func (m *mapCache) Delete(ctx context.Context, ns, key string) error { return nil }
func (m *mapCache) Ping(ctx context.Context) error                   { return nil }
func (m *mapCache) Close() error                                     { return nil }

type countingClassifier struct {
	calls int
	err   error
}

func (c *countingClassifier) Classify(ctx context.Context, text string) ([]domain.EmotionScore, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []domain.EmotionScore{{Label: "fear", Confidence: 0.8}}, nil
}

type countingAnswerer struct{ calls int }

func (c *countingAnswerer) Answer(ctx context.Context, q, text string) (domain.Answer, error) {
	c.calls++
	return domain.Answer{Text: "yes", Confidence: 0.5, Start: 0, End: 3}, nil
}

func TestCachedClassifier(t *testing.T) {
	next := &countingClassifier{}
	c := NewCachedClassifier(next, newMapCache(), "m", time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		scores, err := c.Classify(ctx, "same text")
		if err != nil || len(scores) != 1 || scores[0].Label != "fear" {
			t.Fatalf("unexpected result %+v, %v", scores, err)
		}
	}
	if next.calls != 1 {
		t.Errorf("expected 1 model call, got %d", next.calls)
	}

	c.Classify(ctx, "different text")
	if next.calls != 2 {
		t.Errorf("expected 2 model calls, got %d", next.calls)
	}
}

func TestCachedClassifierDoesNotCacheErrors(t *testing.T) {
	next := &countingClassifier{err: domain.ErrCapabilityUnavailable}
	c := NewCachedClassifier(next, newMapCache(), "m", time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := c.Classify(context.Background(), "t"); !errors.Is(err, domain.ErrCapabilityUnavailable) {
			t.Fatalf("expected error, got %v", err)
		}
	}
	if next.calls != 2 {
		t.Errorf("expected errors to bypass cache, got %d calls", next.calls)
	}
}

func TestCacheFailureFallsThrough(t *testing.T) {
	cache := newMapCache()
	cache.err = errors.New("redis down")
	next := &countingAnswerer{}
	c := NewCachedAnswerer(next, cache, "m", time.Minute)

	ans, err := c.Answer(context.Background(), "q", "ctx")
	if err != nil || ans.Text != "yes" {
		t.Errorf("expected model answer, got %+v, %v", ans, err)
	}
}

func TestCachedAnswerer(t *testing.T) {
	next := &countingAnswerer{}
	c := NewCachedAnswerer(next, newMapCache(), "m", time.Minute)
	ctx := context.Background()

	c.Answer(ctx, "q", "ctx")
	c.Answer(ctx, "q", "ctx")
	c.Answer(ctx, "q2", "ctx")
	if next.calls != 2 {
		t.Errorf("expected 2 model calls, got %d", next.calls)
	}
}

func TestCacheKey(t *testing.T) {
	if cacheKey("m", "answer", "ab", "c") == cacheKey("m", "answer", "a", "bc") {
		t.Error("expected separated inputs to hash differently")
	}
	if cacheKey("m1", "classify", "x") == cacheKey("m2", "classify", "x") {
		t.Error("expected model name in key")
	}
}
