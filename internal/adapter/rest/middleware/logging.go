package middleware

import (
	"net/http"
	"time"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/platform/logger"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func Logging(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			duration := time.Since(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			kv := []interface{}{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", duration,
				"request_id", chimw.GetReqID(r.Context()),
			}
			switch {
			case status >= 500:
				log.Error("HTTP request failed", kv...)
			case status >= 400:
				log.Warn("HTTP request rejected", kv...)
			default:
				log.Info("HTTP request completed", kv...)
			}
		})
	}
}
