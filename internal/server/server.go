// Package server provides the HTTP API for resumatch.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/resumatch/internal/app"
	"github.com/hyperjump/resumatch/internal/config"
	"go.uber.org/zap"
)

// InboxService lists the directories watched for new resumes.
type InboxService interface {
	Directories() []string
}

// Server is the HTTP server for the resumatch API.
type Server struct {
	components *app.Components
	config     *config.Config
	inbox      InboxService // nil when no inbox is watched
	logger     *zap.Logger
	server     *http.Server
}

// NewServer creates a server over c. inbox may be nil.
func NewServer(c *app.Components, inbox InboxService, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		components: c,
		config:     c.Config,
		inbox:      inbox,
		logger:     logger,
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.components.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(s.requestTimeout()))
		r.Post("/resumes/process-path", s.handleProcessPath)
		r.Post("/resumes", s.handleIndexResume)
		r.Get("/resumes", s.handleListResumes)
		r.Get("/resumes/{id}", s.handleGetResume)
		r.Get("/resumes/{id}/insights", s.handleInsights)
		r.Post("/matches", s.handleMatch)
		r.Get("/status", s.handleStatus)
		r.Get("/inbox", s.handleInboxList)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// requestTimeout leaves room for an embedding, its persistence and an LLM call.
func (s *Server) requestTimeout() time.Duration {
	d := s.config.Matcher.EmbedTimeout + s.config.Matcher.PersistTimeout
	if s.config.LLM.Timeout > d {
		d = s.config.LLM.Timeout
	}
	if d <= 0 {
		d = 60 * time.Second
	}
	return d + 5*time.Second
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		}()
		next.ServeHTTP(ww, r)
	})
}
