package services

import (
	"testing"
	"time"
)

func TestQueryCacheSetGet(t *testing.T) {
	cache := NewQueryCache(time.Minute)

	cache.Set("live_score_1", "payload")
	data, found := cache.Get("live_score_1")
	if !found {
		t.Fatal("Expected cache hit")
	}
	if data.(string) != "payload" {
		t.Errorf("Unexpected data: %v", data)
	}

	if _, found := cache.Get("missing"); found {
		t.Error("Expected cache miss")
	}
}

func TestQueryCacheExpiry(t *testing.T) {
	cache := NewQueryCache(10 * time.Millisecond)

	cache.Set("key", 1)
	time.Sleep(20 * time.Millisecond)

	if _, found := cache.Get("key"); found {
		t.Error("Expected expired entry to miss")
	}
}

func TestQueryCacheDeleteByPrefix(t *testing.T) {
	cache := NewQueryCache(time.Minute)

	cache.Set("live_score_7", 1)
	cache.Set("live_score_7_scorecard", 2)
	cache.Set("live_score_8", 3)
	cache.Set("live_matches", 4)

	deleted := cache.DeleteByPrefix("live_score_7")
	if deleted != 2 {
		t.Errorf("Expected 2 deletions, got %d", deleted)
	}
	if _, found := cache.Get("live_score_8"); !found {
		t.Error("Other match keys must survive")
	}
	if _, found := cache.Get("live_matches"); !found {
		t.Error("List key must survive a match prefix delete")
	}
}

// 删除不存在的键是空操作
func TestQueryCacheDeleteAbsent(t *testing.T) {
	cache := NewQueryCache(time.Minute)

	cache.Delete("missing")
	if n := cache.DeleteByPrefix("missing_"); n != 0 {
		t.Errorf("Expected 0 deletions, got %d", n)
	}
	if cache.Size() != 0 {
		t.Errorf("Expected empty cache, got %d entries", cache.Size())
	}
}

func TestQueryCacheClear(t *testing.T) {
	cache := NewQueryCache(time.Minute)

	cache.Set("a", 1)
	cache.Set("b", 2)
	cache.Clear()

	if cache.Size() != 0 {
		t.Errorf("Expected empty cache after clear, got %d", cache.Size())
	}
}
