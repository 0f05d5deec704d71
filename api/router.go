// Package api serves recommendations over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"price-recommender/utils"
)

// NewRouter wires the recommendation routes behind the standard middleware stack.
func NewRouter(h *RecommendationHandler, logger *utils.Logger, timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	if timeout > 0 {
		r.Use(chimiddleware.Timeout(timeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"price-recommender"}`))
	})

	r.Route("/recommendations", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{category}", h.GetByCategory)
	})

	return r
}

func requestLogger(logger *utils.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("[api] %s %s %d %dB %s (%s)", r.Method, r.URL.RequestURI(), ww.Status(), ww.BytesWritten(),
				time.Since(start).Round(time.Microsecond), chimiddleware.GetReqID(r.Context()))
		})
	}
}
