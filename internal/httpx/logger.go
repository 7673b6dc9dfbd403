package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/logging"
	"github.com/go-chi/chi/v5/middleware"
)

type requestInfoKey struct{}

// requestInfo is filled in by handlers further down the chain and read by
// RequestLogger once the response is written.
type requestInfo struct {
	principal string
}

// NotePrincipal records the authenticated principal for the request log.
// It does nothing outside RequestLogger.
func NotePrincipal(ctx context.Context, id string) {
	if info, ok := ctx.Value(requestInfoKey{}).(*requestInfo); ok {
		info.principal = id
	}
}

// RequestLogger logs method, path, status and latency of every request.
// 5xx are logged at error, 4xx at warn.
func RequestLogger(log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			info := &requestInfo{}
			ctx := context.WithValue(r.Context(), requestInfoKey{}, info)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			args := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"latency_ms", time.Since(start).Milliseconds(),
			}
			if id := middleware.GetReqID(ctx); id != "" {
				args = append(args, "request_id", id)
			}
			if info.principal != "" {
				args = append(args, "user_id", info.principal)
			}

			switch {
			case status >= 500:
				log.Error(ctx, "HTTP request", args...)
			case status >= 400:
				log.Warn(ctx, "HTTP request", args...)
			default:
				log.Info(ctx, "HTTP request", args...)
			}
		})
	}
}
