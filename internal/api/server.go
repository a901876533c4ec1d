package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kapu/herobuilds-api-go/internal/constants"
	"github.com/kapu/herobuilds-api-go/internal/metrics"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Heroes  HeroQueries
	Health  HealthChecker
	Events  *EventHub
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// NewRouter wires every public route. Events and Metrics are optional.
func NewRouter(deps RouterDeps) *chi.Mux {
	h := &handlers{heroes: deps.Heroes, health: deps.Health, logger: deps.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(deps.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/", h.banner)
	r.Get("/healthz", h.healthz)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/heroes", h.roster)
		r.Get("/heroes/{role}", h.roleRoster)
		r.Get("/hero/{name}", h.hero)
		if deps.Events != nil {
			r.Handle("/events", deps.Events)
		}
	})

	return r
}

// LoggingMiddleware logs each request at debug level with its status and latency.
func LoggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Debug("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: constants.HTTPServer.ReadHeaderTimeout,
			WriteTimeout:      constants.HTTPServer.WriteTimeout,
			IdleTimeout:       constants.HTTPServer.IdleTimeout,
		},
		logger: logger,
	}
}

// Start blocks serving requests until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")
	return s.httpServer.Shutdown(ctx)
}
