package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"eventtrail/internal/infrastructure/json"
	"eventtrail/internal/infrastructure/logging"

	"github.com/go-chi/chi/v5"
)

// responseWriter captures the status code and body size for logging and
// metrics.
type responseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (rw *responseWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

func (app *Application) enableCors(next http.Handler) http.Handler {
	allowedOrigins := app.config.HTTP.AllowedOrigins
	allowedHeaders := strings.Join(app.config.HTTP.AllowedHeaders, ", ")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		for _, allowed := range allowedOrigins {
			if allowed == "*" || allowed == origin {
				w.Header().Set("Access-Control-Allow-Origin", allowed)
				break
			}
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (app *Application) rateLimiterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sourceKey := app.ratelimiter.GetSourceKey(r)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(app.ratelimiter.GetMaxBurst()))

		if !app.ratelimiter.Allow(sourceKey) {
			app.logger.Warn(logging.General, logging.RateLimiting, "rate limit exceeded", map[logging.ExtraKey]any{
				logging.ClientIp: sourceKey,
				logging.Path:     r.URL.Path,
			})

			w.Header().Set("X-RateLimit-Remaining", "0")
			json.WriteError(w, http.StatusTooManyRequests, errors.New("too many requests"), "Rate limit exceeded")
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(app.ratelimiter.Remaining(sourceKey)))

		next.ServeHTTP(w, r)
	})
}

func (app *Application) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w}

		next.ServeHTTP(rw, r)

		app.logger.Info(logging.RequestResponse, logging.ExternalService, "request handled", map[logging.ExtraKey]any{
			logging.ClientIp:   r.RemoteAddr,
			logging.Method:     r.Method,
			logging.Path:       r.URL.Path,
			logging.StatusCode: rw.status,
			logging.BodySize:   rw.size,
			logging.Latency:    time.Since(start).String(),
		})
	})
}

func (app *Application) prometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w}

		next.ServeHTTP(rw, r)

		// Use the route pattern rather than the raw path to keep metric
		// cardinality bounded.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		app.metrics.RequestCount.WithLabelValues(r.Method, path, strconv.Itoa(rw.status)).Inc()
		app.metrics.RequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
