package embedding

import (
	"testing"
)

func TestQueryCache_GetSet(t *testing.T) {
	c := NewQueryCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float32{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float32{4, 5})
	c.Set("c", []float32{6}) // evicts a
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to remain")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to be present")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestQueryCache_recentlyUsedSurvives(t *testing.T) {
	c := NewQueryCache(2)
	c.Set("a", []float32{1})
	c.Set("b", []float32{2})
	c.Get("a")
	c.Set("c", []float32{3}) // evicts b, not a
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to survive after Get")
	}
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
}

func TestQueryCache_disabled(t *testing.T) {
	c := NewQueryCache(0)
	c.Set("a", []float32{1})
	if _, ok := c.Get("a"); ok {
		t.Error("disabled cache should miss")
	}
	if c.Len() != 0 {
		t.Error("disabled cache should be empty")
	}
}

func TestCacheKey(t *testing.T) {
	a := cacheKey(IntentQuery, "m1", "nurse")
	if a != cacheKey(IntentQuery, "m1", "nurse") {
		t.Error("cacheKey not deterministic")
	}
	if a == cacheKey(IntentQuery, "m2", "nurse") {
		t.Error("model must be part of the key")
	}
	if a == cacheKey(IntentDocument, "m1", "nurse") {
		t.Error("intent must be part of the key")
	}
}
