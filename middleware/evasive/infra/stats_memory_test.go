package infra

import (
	"context"
	"testing"
	"time"

	"evasive-gateway/middleware/evasive/domain"
)

func TestMemoryStatsStore_CountsAllowedDeniedBlocked(t *testing.T) {
	s := NewMemoryStatsStore(WithTrackKeys(true))
	ctx := context.Background()
	at := time.Unix(1000, 0)

	events := []domain.StatsEvent{
		{Key: "10.0.0.1", Allowed: true, Method: "GET", Path: "/x", At: at},
		{Key: "10.0.0.1", Allowed: true, Method: "GET", Path: "/x", At: at},
		{Key: "10.0.0.1", Allowed: false, Blocked: true, Method: "GET", Path: "/x", At: at},
		{Key: "10.0.0.1", Allowed: false, Method: "GET", Path: "/y", At: at},
	}
	for _, ev := range events {
		if err := s.Record(ctx, ev); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	total := s.Total()
	if total.Allowed != 2 || total.Denied != 2 || total.Blocked != 1 {
		t.Fatalf("unexpected totals: %+v", total)
	}

	byRoute := s.ByRoute()
	if c := byRoute["GET /x"]; c.Allowed != 2 || c.Denied != 1 {
		t.Fatalf("unexpected counters for GET /x: %+v", c)
	}
	if c := byRoute["GET /y"]; c.Denied != 1 {
		t.Fatalf("unexpected counters for GET /y: %+v", c)
	}

	byKey := s.ByKey()
	if c := byKey["10.0.0.1"]; c.Allowed != 2 || c.Denied != 2 || c.Blocked != 1 {
		t.Fatalf("unexpected counters for key: %+v", c)
	}
}

func TestMemoryStatsStore_KeysNotTrackedByDefault(t *testing.T) {
	s := NewMemoryStatsStore()
	_ = s.Record(context.Background(), domain.StatsEvent{Key: "k", Allowed: true})
	if len(s.ByKey()) != 0 {
		t.Fatalf("expected no per-key tracking by default")
	}
}
