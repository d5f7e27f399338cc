package evasive

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"evasive-gateway/middleware/evasive/application"
	"evasive-gateway/middleware/evasive/domain"
	"evasive-gateway/middleware/evasive/infra"
)

func burstSettings() domain.Settings {
	s := domain.DefaultSettings()
	s.Enabled = true
	s.PageCount = 1 // segunda requisição à mesma URI já estoura
	return s
}

func newTestService(t *testing.T, opts ...application.ServiceOption) *application.Service {
	t.Helper()
	store := infra.NewHitStore(53)
	return application.NewService(store, burstSettings(), opts...)
}

func TestMiddleware_AllowsThenRejectsSameKey(t *testing.T) {
	svc := newTestService(t)

	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})

	h := Middleware(Options{
		Service:              svc,
		AddDiagnosticHeaders: true,
	})(next)

	// 1) primeira passa
	r1 := httptest.NewRequest(http.MethodGet, "http://example/showTela", nil)
	r1.RemoteAddr = "10.0.0.1:1234"
	w1 := httptest.NewRecorder()
	h.ServeHTTP(w1, r1)
	if w1.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w1.Code)
	}
	if got := w1.Header().Get("X-Evasive-Key"); got != "10.0.0.1" {
		t.Fatalf("expected X-Evasive-Key header, got %q", got)
	}

	// 2) segunda deve bloquear com o status do mod_evasive (403)
	r2 := httptest.NewRequest(http.MethodGet, "http://example/showTela", nil)
	r2.RemoteAddr = "10.0.0.1:1234"
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, r2)
	if w2.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w2.Code)
	}
	if got := strings.TrimSpace(w2.Header().Get("Retry-After")); got != "10" {
		// blocking period padrão de 10s
		t.Fatalf("expected Retry-After=10, got %q", got)
	}

	if calls != 1 {
		t.Fatalf("expected next handler to be called once, got %d", calls)
	}
}

func TestMiddleware_RejectStatusFromSettings(t *testing.T) {
	store := infra.NewHitStore(53)
	settings := burstSettings()
	settings.HTTPReply = http.StatusTooManyRequests
	svc := application.NewService(store, settings)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := Middleware(Options{Service: svc})(next)

	for i := 0; i < 2; i++ {
		r := httptest.NewRequest(http.MethodGet, "http://example/x", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if i == 1 && w.Code != http.StatusTooManyRequests {
			t.Fatalf("expected configured 429, got %d", w.Code)
		}
	}
}

func TestMiddleware_KeyByHeaderSeparatesClients(t *testing.T) {
	svc := newTestService(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	h := Middleware(Options{
		Service:   svc,
		KeyHeader: "X-Api-Key",
	})(next)

	// duas chaves diferentes => ambos devem passar (cada chave tem seus contadores)
	r1 := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r1.Header.Set("X-Api-Key", "k1")
	r1.RemoteAddr = "10.0.0.1:1234"
	w1 := httptest.NewRecorder()
	h.ServeHTTP(w1, r1)
	if w1.Code != http.StatusOK {
		t.Fatalf("expected 200 for key k1, got %d", w1.Code)
	}

	r2 := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	r2.Header.Set("X-Api-Key", "k2")
	r2.RemoteAddr = "10.0.0.1:1234"
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, r2)
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200 for key k2, got %d", w2.Code)
	}
}

type recordingNotifier struct {
	count int32
	fired chan string
}

func (n *recordingNotifier) Notify(_ context.Context, ip string) {
	atomic.AddInt32(&n.count, 1)
	n.fired <- ip
}

func TestMiddleware_NotifierFiresOncePerBlock(t *testing.T) {
	svc := newTestService(t,
		application.WithNotifiedStore(infra.NewMemoryNotifiedStore()),
	)
	notifier := &recordingNotifier{fired: make(chan string, 8)}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := Middleware(Options{Service: svc, Notifier: notifier})(next)

	// 1 allow + 3 denies; só a primeira negação dispara o notificador
	for i := 0; i < 4; i++ {
		r := httptest.NewRequest(http.MethodGet, "http://example/x", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(httptest.NewRecorder(), r)
	}

	select {
	case ip := <-notifier.fired:
		if ip != "10.0.0.1" {
			t.Fatalf("expected notification for 10.0.0.1, got %q", ip)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected notifier to fire")
	}

	select {
	case ip := <-notifier.fired:
		t.Fatalf("expected a single notification, got another for %q", ip)
	case <-time.After(50 * time.Millisecond):
	}
	if got := atomic.LoadInt32(&notifier.count); got != 1 {
		t.Fatalf("expected notifier called once, got %d", got)
	}
}

func TestMiddleware_RecordsStats(t *testing.T) {
	svc := newTestService(t,
		application.WithNotifiedStore(infra.NewMemoryNotifiedStore()),
	)
	stats := infra.NewMemoryStatsStore()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := Middleware(Options{Service: svc, Stats: stats})(next)

	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodGet, "http://example/x", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(httptest.NewRecorder(), r)
	}

	total := stats.Total()
	if total.Allowed != 1 || total.Denied != 2 || total.Blocked != 1 {
		t.Fatalf("unexpected totals: %+v", total)
	}
}

func TestMiddleware_NoServicePassesThrough(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := Middleware(Options{})(next)

	r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected pass-through without service, got %d", w.Code)
	}
}
