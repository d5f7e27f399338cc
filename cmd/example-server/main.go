package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"evasive-gateway/middleware/evasive"
	"evasive-gateway/middleware/evasive/application"
	"evasive-gateway/middleware/evasive/domain"
	"evasive-gateway/middleware/evasive/infra"
)

func main() {
	// Exemplo: injetando o middleware diretamente no seu webserver (sem proxy)
	settings := domain.DefaultSettings()
	settings.Enabled = true

	store := infra.NewHitStore(settings.HashTableSize)
	svc := application.NewService(store, settings,
		application.WithNotifiedStore(infra.NewMemoryNotifiedStore()),
	)
	svc.AddWhitelist("127.0.0.1")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	h := http.Handler(mux)
	h = evasive.Middleware(evasive.Options{
		Service:              svc,
		Notifier:             infra.NewBlockNotifier(infra.WithLogDir(os.TempDir())),
		TrustXForwardedFor:   true,
		AddDiagnosticHeaders: true,
	})(h)

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		store.Reset()
	}()

	log.Printf("example server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
