package controller

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/cowatch/server/pkg/ctxlogger"
	"github.com/cowatch/server/pkg/rest"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

func (c controller) requestIdMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestId := r.Header.Get(middleware.RequestIDHeader)
		if requestId == "" {
			requestId = uuid.NewString()
		}
		w.Header().Set(middleware.RequestIDHeader, requestId)

		ctx := ctxlogger.AppendCtx(r.Context(), slog.String("request_id", requestId))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (c controller) requestLoggingMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		c.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"url", r.URL.String(),
			"remote_addr", r.RemoteAddr,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_us", time.Since(start).Microseconds(),
		)
	})
}

// roomIdMw tags every log line of the request with the room id.
func (c controller) roomIdMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		roomId := chi.URLParam(r, "room-id")
		ctx := ctxlogger.AppendCtx(r.Context(), slog.String("room_id", roomId))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (c controller) adminMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := c.getBearerToken(r)
		if !ok || c.adminToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(c.adminToken)) != 1 {
			c.logger.InfoContext(r.Context(), "admin access denied")
			rest.WriteJSON(w, http.StatusUnauthorized, rest.Envelope{"error": "unauthorized"})
			return
		}

		next.ServeHTTP(w, r)
	})
}
