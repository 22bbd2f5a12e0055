package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"po-reconciliation-service/pkg/logger"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// requestID returns the id assigned to this request, or "" outside a request
func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// requestIDMiddleware assigns each request a uuid, echoes it in the response
// header, and logs the request with its duration. A caller-supplied
// X-Request-Id is kept so ids can be traced across services.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)

		ctx := context.WithValue(r.Context(), requestIDKey, id)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		s.logger.WithFields(logger.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"request_id":  id,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("Handled request")
	})
}
