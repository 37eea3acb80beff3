package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

func TestLRUCache(t *testing.T) {
	cache := NewLRUCache(100)
	ctx := context.Background()
	ns := "emotion"

	t.Run("SetAndGet", func(t *testing.T) {
		if err := cache.Set(ctx, ns, "key1", []byte("value1"), time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		val, err := cache.Get(ctx, ns, "key1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(val) != "value1" {
			t.Errorf("expected 'value1', got '%s'", string(val))
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		val, err := cache.Get(ctx, ns, "nonexistent")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if val != nil {
			t.Errorf("expected nil for cache miss, got: %v", val)
		}
	})

	t.Run("NamespaceIsolation", func(t *testing.T) {
		_ = cache.Set(ctx, "qa", "shared", []byte("qa-value"), time.Minute)

		val, _ := cache.Get(ctx, ns, "shared")
		if val != nil {
			t.Errorf("expected namespaces to be isolated, got %q", val)
		}
	})

	t.Run("RequiresNamespace", func(t *testing.T) {
		if _, err := cache.Get(ctx, "", "k"); err == nil {
			t.Error("expected error for empty namespace")
		}
		if err := cache.Set(ctx, "", "k", nil, time.Minute); err == nil {
			t.Error("expected error for empty namespace")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = cache.Set(ctx, ns, "key2", []byte("value2"), time.Minute)

		if err := cache.Delete(ctx, ns, "key2"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		val, _ := cache.Get(ctx, ns, "key2")
		if val != nil {
			t.Error("expected nil after delete")
		}
	})

	t.Run("TTLExpiration", func(t *testing.T) {
		c := NewLRUCache(10)
		now := time.Now()
		c.now = func() time.Time { return now }

		_ = c.Set(ctx, ns, "expiring", []byte("temp"), time.Second)
		if val, _ := c.Get(ctx, ns, "expiring"); val == nil {
			t.Fatal("expected value before expiry")
		}

		now = now.Add(2 * time.Second)
		if val, _ := c.Get(ctx, ns, "expiring"); val != nil {
			t.Error("expected value to expire")
		}
	})

	t.Run("ZeroTTLNeverExpires", func(t *testing.T) {
		c := NewLRUCache(10)
		now := time.Now()
		c.now = func() time.Time { return now }

		_ = c.Set(ctx, ns, "forever", []byte("v"), 0)
		now = now.Add(24 * time.Hour)
		if val, _ := c.Get(ctx, ns, "forever"); val == nil {
			t.Error("expected entry without ttl to persist")
		}
	})

	t.Run("LRUEviction", func(t *testing.T) {
		c := NewLRUCache(3)

		_ = c.Set(ctx, ns, "a", []byte("1"), time.Minute)
		_ = c.Set(ctx, ns, "b", []byte("2"), time.Minute)
		_ = c.Set(ctx, ns, "c", []byte("3"), time.Minute)

		// Touch "a" so "b" becomes least recently used
		_, _ = c.Get(ctx, ns, "a")

		_ = c.Set(ctx, ns, "d", []byte("4"), time.Minute)

		if val, _ := c.Get(ctx, ns, "b"); val != nil {
			t.Error("expected 'b' to be evicted")
		}
		if val, _ := c.Get(ctx, ns, "a"); val == nil {
			t.Error("expected 'a' to survive eviction")
		}
		if s := c.Stats(); s.Size != 3 || s.Capacity != 3 {
			t.Errorf("unexpected stats %+v", s)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		c := NewLRUCache(10)
		_ = c.Set(ctx, ns, "k", []byte("v"), time.Minute)
		_, _ = c.Get(ctx, ns, "k")
		_, _ = c.Get(ctx, ns, "missing")

		s := c.Stats()
		if s.Hits != 1 || s.Misses != 1 {
			t.Errorf("expected 1 hit and 1 miss, got %+v", s)
		}
	})

	t.Run("Close", func(t *testing.T) {
		testCache := NewLRUCache(10)
		_ = testCache.Set(ctx, ns, "k", []byte("v"), time.Minute)

		if err := testCache.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}

		val, _ := testCache.Get(ctx, ns, "k")
		if val != nil {
			t.Error("expected cache to be cleared after close")
		}
	})
}

func TestNewCache(t *testing.T) {
	t.Run("MemoryType", func(t *testing.T) {
		cache, err := New(domain.CacheConfig{Type: "memory", LocalMaxSize: 100})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		defer cache.Close()

		if _, ok := cache.(*LRUCache); !ok {
			t.Error("expected LRUCache for memory type")
		}
	})

	t.Run("NoneType", func(t *testing.T) {
		cache, err := New(domain.CacheConfig{Type: "none"})
		if err != nil || cache != nil {
			t.Errorf("expected nil cache, got %v, %v", cache, err)
		}
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		if _, err := New(domain.CacheConfig{Type: "memcached"}); err == nil {
			t.Error("expected error for unsupported type")
		}
	})
}

func TestTwoPhaseCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	c, err := NewTwoPhaseCache(domain.CacheConfig{RedisAddr: addr, LocalMaxSize: 10, LocalTTL: time.Minute})
	if err != nil {
		t.Fatalf("failed to create two-phase cache: %v", err)
	}
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "qa", "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Drop L1 so the read is served by Redis and repopulates L1
	_ = c.local.Delete(ctx, "qa", "k")
	val, err := c.Get(ctx, "qa", "k")
	if err != nil || string(val) != "v" {
		t.Fatalf("expected 'v' from L2, got %q, %v", val, err)
	}
	if l1, _ := c.local.Get(ctx, "qa", "k"); string(l1) != "v" {
		t.Error("expected L1 to be populated from L2")
	}

	if err := c.Delete(ctx, "qa", "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if val, _ := c.Get(ctx, "qa", "k"); val != nil {
		t.Error("expected nil after delete")
	}
}
