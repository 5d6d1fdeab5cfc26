package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/hotspotkeeper/internal/common"
	"github.com/dmitrijs2005/hotspotkeeper/internal/server/auth"
)

type ctxKey string

const (
	operatorKey  ctxKey = "operator"
	requestIDKey ctxKey = "request_id"
)

// RequestIDHeader carries the per-request identifier in responses.
const RequestIDHeader = "X-Request-ID"

func operatorFrom(ctx context.Context) string {
	v, _ := ctx.Value(operatorKey).(string)
	return v
}

func requestIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logRequests tags each request with an id and logs its outcome.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			var err error
			if id, err = common.MakeRandHexString(8); err != nil {
				id = "unknown"
			}
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		s.logger.Debug(ctx, "http request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

// requireOperator rejects requests without a valid operator bearer token.
func (s *Server) requireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeaderName)
		if !strings.HasPrefix(header, common.BearerPrefix) {
			writeError(w, http.StatusUnauthorized, "Unauthorized", "missing bearer token")
			return
		}

		operator, err := auth.GetOperatorFromToken(strings.TrimPrefix(header, common.BearerPrefix), s.jwtSecret)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, common.ErrTokenExpired) {
				msg = "token expired"
			}
			writeError(w, http.StatusUnauthorized, "Unauthorized", msg)
			return
		}

		ctx := context.WithValue(r.Context(), operatorKey, operator)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
