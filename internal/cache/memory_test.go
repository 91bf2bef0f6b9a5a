package cache

import (
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreAddHas(t *testing.T) {
	s := NewMemoryStore(0)

	if ok, _ := s.Has("k1"); ok {
		t.Errorf("unexpected hit before Add")
	}

	if err := s.Add("k1", time.Minute); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if ok, _ := s.Has("k1"); !ok {
		t.Errorf("expected hit after Add")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore(0)

	base := time.Now()
	s.now = func() time.Time { return base }

	s.Add("k1", 300*time.Second)

	if ok, _ := s.Has("k1"); !ok {
		t.Fatalf("expected hit within ttl")
	}

	// Jump past the ttl
	s.now = func() time.Time { return base.Add(301 * time.Second) }

	if ok, _ := s.Has("k1"); ok {
		t.Errorf("expected miss after ttl expiry")
	}
}

type failingStore struct{}

func (failingStore) Add(string, time.Duration) error { return errors.New("unavailable") }
func (failingStore) Has(string) (bool, error)        { return false, errors.New("unavailable") }

func TestTieredFallsBack(t *testing.T) {
	slow := NewMemoryStore(0)
	tiered := NewTiered(failingStore{}, slow)

	if err := tiered.Add("k1", time.Minute); err != nil {
		t.Fatalf("Add should fall back, got: %v", err)
	}

	ok, err := tiered.Has("k1")
	if err != nil {
		t.Fatalf("Has should fall back, got: %v", err)
	}
	if !ok {
		t.Errorf("expected hit via fallback store")
	}
}

func TestTieredPrefersFast(t *testing.T) {
	fast := NewMemoryStore(0)
	slow := NewMemoryStore(0)
	tiered := NewTiered(fast, slow)

	tiered.Add("k1", time.Minute)

	if ok, _ := fast.Has("k1"); !ok {
		t.Errorf("expected key in fast store")
	}
	if ok, _ := slow.Has("k1"); ok {
		t.Errorf("key should not reach fallback store on healthy fast path")
	}
}
