package server

import (
	"errors"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/curtiv3/gpthome-refurbished/internal/auth"
	"github.com/curtiv3/gpthome-refurbished/internal/logging"
)

const (
	requestIDHeader = "X-Request-ID"
	adminKeyHeader  = "X-Admin-Key"
)

// recoveryMiddleware turns handler panics into 500 responses.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logging.Get(logging.CategoryServer).Error("panic recovered: %v method=%s url=%s remote=%s\n%s",
					rec, r.Method, r.URL.String(), r.RemoteAddr, debug.Stack())
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"Internal server error","code":500}`))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// requestLogMiddleware tags each request with an id and logs it.
func requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.APIDebug("%s %s -> %d in %v (id=%s)", r.Method, r.URL.Path, rec.status, time.Since(start), id)
	})
}

// adminMiddleware requires a valid admin key.
func adminMiddleware(a *auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := a.Authorize(clientIP(r), r.Header.Get(adminKeyHeader))
			switch {
			case errors.Is(err, auth.ErrTooManyAttempts):
				writeError(w, http.StatusTooManyRequests, "Too many login attempts. Try again later.")
			case err != nil:
				writeError(w, http.StatusUnauthorized, "Unauthorized")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// clientIP is the remote host without port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}
	return host
}
