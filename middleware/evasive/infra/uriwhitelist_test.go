package infra

import "testing"

func TestURIWhitelist_MatchesAnywhereInPath(t *testing.T) {
	w := NewURIWhitelist()
	if err := w.Add(`^/static/`); err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	if err := w.Add(`\.ico$`); err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}

	if !w.Match("/static/app.js") {
		t.Fatalf("expected anchored pattern to match")
	}
	if !w.Match("/qualquer/favicon.ico") {
		t.Fatalf("expected suffix pattern to match")
	}
	if w.Match("/api/users") {
		t.Fatalf("expected no match for unlisted path")
	}
}

func TestURIWhitelist_BadPatternIsSkipped(t *testing.T) {
	w := NewURIWhitelist()
	if err := w.Add(`([`); err == nil {
		t.Fatalf("expected compile error for invalid pattern")
	}
	if w.Len() != 0 {
		t.Fatalf("expected invalid pattern to be discarded, got %d patterns", w.Len())
	}

	// as demais entradas não são afetadas
	if err := w.Add(`^/ok`); err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	if !w.Match("/ok/123") {
		t.Fatalf("expected surviving pattern to match")
	}
}

func TestURIWhitelist_NilMatchesNothing(t *testing.T) {
	var w *URIWhitelist
	if w.Match("/x") {
		t.Fatalf("expected nil whitelist to match nothing")
	}
}
