package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"essaygenius/internal/infra/logging"
	"essaygenius/internal/infra/metrics"
)

// Server owns the router and the http.Server lifecycle.
type Server struct {
	srv *http.Server
	log *zerolog.Logger
}

func NewServer(port string, corsOrigins []string, auth *Auth, rl *RateLimit, h *Handlers, log *zerolog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}
	r.Use(instrument)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Provider webhooks authenticate by signature, not bearer token.
	r.Post("/api/v1/webhook", h.Webhook)

	r.Group(func(r chi.Router) {
		r.Use(auth.Authenticate)

		r.Group(func(r chi.Router) {
			r.Use(rl.Limit("submit", submitLimitPerMinute))
			r.Get("/api/v1/outline-and-sources", h.OutlineAndSources)
			r.Post("/api/v1/generate-essay", h.GenerateEssay)
		})

		r.Group(func(r chi.Router) {
			r.Use(rl.Limit("status", statusLimitPerMinute))
			r.Get("/api/v1/job-status/{job_id}", h.JobStatus)
			r.Get("/api/v1/essay-status/{job_id}", h.JobStatus)
		})

		r.Get("/api/v1/my-papers", h.MyPapers)
		r.Get("/api/v1/papers/{paper_id}/download", h.DownloadPaper)
		r.Delete("/api/v1/papers/{paper_id}", h.DeletePaper)
		r.Get("/api/v1/get-credits", h.GetCredits)
		r.Post("/api/v1/create-checkout-session", h.CreateCheckoutSession)
	})

	return &Server{
		srv: &http.Server{
			Addr:              ":" + port,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// instrument records per-route request counts using the chi route pattern so
// path parameters don't explode label cardinality.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(logging.WithTraceID(r.Context(), id))
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.IncHTTPRequest(route, ww.Status())
	})
}
