package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/snarg/meetscribe/internal/config"
	"github.com/snarg/meetscribe/internal/metrics"
)

// ServerOptions holds everything the HTTP layer reads from or hands work to.
type ServerOptions struct {
	Config    *config.Config
	Submitter JobSubmitter
	Jobs      JobReader
	Results   ResultReader
	Spool     Spooler
	Health    HealthOptions
	Version   string
	StartTime time.Time
	Log       zerolog.Logger
}

type Server struct {
	http    *http.Server
	handler http.Handler
	log     zerolog.Logger
}

func NewServer(opts ServerOptions) *Server {
	cfg := opts.Config
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Logger(opts.Log))
	r.Use(Recoverer)
	r.Use(metrics.InstrumentHandler)
	r.Use(CORSWithOrigins(cfg.AllowedOrigins()))

	// Unauthenticated
	r.Get("/", Root)
	health := NewHealthHandler(opts.Health, opts.Version, opts.StartTime)
	r.Get("/api/v1/health", health.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(cfg.AuthToken))
		NewUploadHandler(opts.Spool, opts.Submitter, cfg.MaxUploadMB<<20, opts.Log).Routes(r)
		NewProgressHandler(opts.Jobs).Routes(r)
		NewExportHandler(opts.Results, opts.Log).Routes(r)
	})

	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		handler: r,
		log:     opts.Log,
	}
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}

// Root answers GET / so load balancers and the frontend can see the backend is up.
func Root(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Meeting Transcription Tool backend is running.",
	})
}
