package http

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/indigo-iam/iam-service/internal/observability/logger"
)

// WithRequestID makes sure every request carries an X-Request-ID, generating
// one when the client did not send it.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if rid == "" {
			var b [16]byte
			_, _ = rand.Read(b[:])
			rid = hex.EncodeToString(b[:])
		}
		w.Header().Set("X-Request-ID", rid)
		next.ServeHTTP(w, r)
	})
}

// WithRecover turns handler panics into 500s instead of dropped connections.
func WithRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.From(r.Context()).Error("panic recovered",
					logger.Component("http"),
					logger.String("request_id", w.Header().Get("X-Request-ID")),
					logger.Any("panic", rec),
				)
				WriteError(w, http.StatusInternalServerError, "internal_error", "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// WithLogging emits one structured access log line per request.
func WithLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		logger.From(r.Context()).Info("http request",
			logger.Component("http"),
			logger.String("request_id", w.Header().Get("X-Request-ID")),
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rec.status),
			logger.Int("bytes", rec.bytes),
			logger.Any("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

// WithCORS answers preflight and sets the allow headers for known origins.
func WithCORS(next http.Handler, allowed []string) http.Handler {
	trim := func(s string) string { return strings.TrimRight(strings.TrimSpace(s), "/") }
	alist := make([]string, len(allowed))
	for i, v := range allowed {
		alist[i] = trim(v)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := trim(r.Header.Get("Origin"))
		allowedOrigin := ""
		for _, a := range alist {
			if a == "*" || (origin != "" && strings.EqualFold(origin, a)) {
				allowedOrigin = origin
				break
			}
		}

		w.Header().Add("Vary", "Origin")
		w.Header().Add("Vary", "Access-Control-Request-Method")
		w.Header().Add("Vary", "Access-Control-Request-Headers")

		if allowedOrigin != "" {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allowedOrigin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,HEAD,OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, X-Admin-API-Key")
			h.Set("Access-Control-Expose-Headers", "X-Request-ID, Location")
			h.Set("Access-Control-Max-Age", "600")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithSecurityHeaders sets the standard security headers for a JSON API.
func WithSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'")
		if isHTTPS(r) {
			w.Header().Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// WithAdminKey guards the admin surface with the X-Admin-API-Key header.
// An empty configured key disables the whole admin surface.
func WithAdminKey(next http.Handler, key string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key == "" {
			WriteError(w, http.StatusForbidden, "admin_disabled", "admin API is not configured")
			return
		}
		got := r.Header.Get("X-Admin-API-Key")
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid admin API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}
