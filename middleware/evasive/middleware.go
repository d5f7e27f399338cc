package evasive

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"evasive-gateway/middleware/evasive/application"
	"evasive-gateway/middleware/evasive/domain"
)

type KeyFunc func(r *http.Request) string

type Options struct {
	Service            *application.Service
	Stats              domain.StatsStore
	Notifier           domain.Notifier
	KeyFn              KeyFunc
	KeyHeader          string
	TrustXForwardedFor bool
	RejectStatus       int
	// AddDiagnosticHeaders expõe X-Evasive-Key na resposta (debug).
	AddDiagnosticHeaders bool
}

func DefaultKeyFunc(keyHeader string, trustXFF bool) KeyFunc {
	return func(r *http.Request) string {
		if keyHeader != "" {
			if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
				return v
			}
		}

		if trustXFF {
			// pega o primeiro IP do X-Forwarded-For (cliente original)
			if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
				parts := strings.Split(xff, ",")
				if len(parts) > 0 {
					ip := strings.TrimSpace(parts[0])
					if ip != "" {
						return ip
					}
				}
			}
		}

		// fallback: RemoteAddr
		host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
		if err == nil && host != "" {
			return host
		}
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusForbidden
		if opts.Service != nil {
			opts.RejectStatus = opts.Service.Settings().HTTPReply
		}
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc(opts.KeyHeader, opts.TrustXForwardedFor)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if opts.Service == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := opts.KeyFn(r)
			if opts.AddDiagnosticHeaders {
				w.Header().Set("X-Evasive-Key", key)
			}

			dec := opts.Service.Evaluate(r.Context(), key, r.URL.Path)

			if opts.Stats != nil {
				_ = opts.Stats.Record(r.Context(), domain.StatsEvent{
					Key:     domain.Key(key),
					Allowed: dec.Allowed,
					Blocked: dec.NewlyBlocked,
					Method:  r.Method,
					Path:    r.URL.Path,
					At:      time.Now(),
				})
			}

			if dec.NewlyBlocked && opts.Notifier != nil {
				// fora do ciclo de vida da requisição: o contexto dela morre
				// junto com a resposta
				go opts.Notifier.Notify(context.Background(), key)
			}

			if !dec.Allowed {
				if dec.RetryAfter > 0 {
					w.Header().Set("Retry-After", formatInt(int(dec.RetryAfter.Seconds())))
				}
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
