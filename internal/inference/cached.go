package inference

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

const cacheNamespace = "inference"

// CachedClassifier memoizes emotion classifications. Cache failures fall
// through to the model; model failures are never cached.
type CachedClassifier struct {
	next  domain.EmotionClassifier
	cache domain.Cache
	model string
	ttl   time.Duration
}

// NewCachedClassifier wraps next with cache.
func NewCachedClassifier(next domain.EmotionClassifier, cache domain.Cache, model string, ttl time.Duration) *CachedClassifier {
	return &CachedClassifier{next: next, cache: cache, model: model, ttl: ttl}
}

// Classify returns a cached classification or calls the model.
func (c *CachedClassifier) Classify(ctx context.Context, text string) ([]domain.EmotionScore, error) {
	key := cacheKey(c.model, "classify", text)

	var scores []domain.EmotionScore
	if lookup(ctx, c.cache, key, &scores) {
		return scores, nil
	}

	scores, err := c.next.Classify(ctx, text)
	if err != nil {
		return nil, err
	}
	store(ctx, c.cache, key, scores, c.ttl)
	return scores, nil
}

// CachedAnswerer memoizes QA answers.
type CachedAnswerer struct {
	next  domain.QuestionAnswerer
	cache domain.Cache
	model string
	ttl   time.Duration
}

// NewCachedAnswerer wraps next with cache.
func NewCachedAnswerer(next domain.QuestionAnswerer, cache domain.Cache, model string, ttl time.Duration) *CachedAnswerer {
	return &CachedAnswerer{next: next, cache: cache, model: model, ttl: ttl}
}

// Answer returns a cached answer or calls the model.
func (c *CachedAnswerer) Answer(ctx context.Context, question, context string) (domain.Answer, error) {
	key := cacheKey(c.model, "answer", question, context)

	var ans domain.Answer
	if lookup(ctx, c.cache, key, &ans) {
		return ans, nil
	}

	ans, err := c.next.Answer(ctx, question, context)
	if err != nil {
		return domain.Answer{}, err
	}
	store(ctx, c.cache, key, ans, c.ttl)
	return ans, nil
}

// cacheKey hashes the model name and inputs. Parts are NUL separated.
func cacheKey(model, op string, inputs ...string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(op))
	for _, in := range inputs {
		h.Write([]byte{0})
		h.Write([]byte(in))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func lookup(ctx context.Context, cache domain.Cache, key string, out any) bool {
	data, err := cache.Get(ctx, cacheNamespace, key)
	if err != nil {
		slog.Debug("inference cache get failed", "error", err)
		return false
	}
	if data == nil {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		slog.Debug("inference cache entry corrupt", "error", err)
		return false
	}
	return true
}

func store(ctx context.Context, cache domain.Cache, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := cache.Set(ctx, cacheNamespace, key, data, ttl); err != nil {
		slog.Debug("inference cache set failed", "error", err)
	}
}
