package cache_test

import (
	"testing"
	"time"

	"github.com/keilmann/allowance-tracker-go/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	c.Set("key1", "value1")
	val, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != "value1" {
		t.Errorf("expected 'value1', got '%s'", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	_, ok := c.Get("nonexistent")
	if ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_SetWithTTL(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	c.SetWithTTL("short", "v", 50*time.Millisecond)
	if _, ok := c.Get("short"); !ok {
		t.Fatal("expected entry before expiry")
	}
	time.Sleep(100 * time.Millisecond)
	if _, ok := c.Get("short"); ok {
		t.Fatal("expected per-entry TTL to expire the value")
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)

	c.Set("key1", "value1")
	c.Delete("key1")

	_, ok := c.Get("key1")
	if ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_MetricsHooks(t *testing.T) {
	hits, misses := 0, 0
	c := cache.New[string](5 * time.Minute).WithMetrics(
		func() { hits++ },
		func() { misses++ },
	)

	c.Set("key1", "value1")
	c.Get("key1")
	c.Get("other")

	if hits != 1 || misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got %d hits / %d misses", hits, misses)
	}
}

func TestCache_Len(t *testing.T) {
	c := cache.New[int](5 * time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.SetWithTTL("c", 3, -time.Second) // already expired

	if got := c.Len(); got != 2 {
		t.Errorf("expected 2 live entries, got %d", got)
	}
}
