package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SpeckiJ/sensorweb-server-dao-impl/pkg/requestcontext"
)

// NewRouter wires the public endpoints with request-scoped metadata
// middleware.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestMetadata)

	r.Get("/health", handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	h.Register(r)
	return r
}

// requestMetadata injects a request ID, the request time and the
// requested locale into the context before handlers run.
func requestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx = requestcontext.WithRequestID(ctx, requestID)
		ctx = requestcontext.WithTime(ctx, time.Now())
		if locale := r.URL.Query().Get("locale"); locale != "" {
			ctx = requestcontext.WithLocale(ctx, locale)
		}
		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
