package infra

import (
	"context"
	"testing"
	"time"
)

func TestMemoryNotifiedStore_FirstCallOnly(t *testing.T) {
	s := NewMemoryNotifiedStore()

	first, err := s.MarkNotified(context.Background(), "10.0.0.1")
	if err != nil || !first {
		t.Fatalf("expected first=true on first call, got first=%v err=%v", first, err)
	}

	first, err = s.MarkNotified(context.Background(), "10.0.0.1")
	if err != nil || first {
		t.Fatalf("expected first=false on repeat call, got first=%v err=%v", first, err)
	}

	// chave diferente é independente
	first, _ = s.MarkNotified(context.Background(), "10.0.0.2")
	if !first {
		t.Fatalf("expected first=true for a different key")
	}
}

func TestMemoryNotifiedStore_TTLForgets(t *testing.T) {
	s := NewMemoryNotifiedStore(WithMemoryNotifiedTTL(10 * time.Minute))

	at := time.Unix(1000, 0)
	s.now = func() time.Time { return at }

	if first, _ := s.MarkNotified(context.Background(), "k"); !first {
		t.Fatalf("expected first=true")
	}

	at = at.Add(5 * time.Minute)
	if first, _ := s.MarkNotified(context.Background(), "k"); first {
		t.Fatalf("expected first=false inside the TTL")
	}

	at = at.Add(6 * time.Minute)
	if first, _ := s.MarkNotified(context.Background(), "k"); !first {
		t.Fatalf("expected first=true after the TTL elapsed")
	}
}
