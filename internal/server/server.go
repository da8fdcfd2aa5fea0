// Package server поднимает служебный HTTP-сервер: проверка здоровья и метрики.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"jeeves-bot/internal/metrics"
	"jeeves-bot/internal/pkg/config"
)

// HealthChecker проверяет доступность хранилища.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server представляет HTTP-сервер
type Server struct {
	HTTPServer *http.Server
	health     HealthChecker
	logger     *slog.Logger
	started    time.Time
}

// New создает новый экземпляр Server
func New(cfg *config.Config, health HealthChecker, logger *slog.Logger) *Server {
	s := &Server{
		health:  health,
		logger:  logger,
		started: time.Now(),
	}

	chiRouter := chi.NewRouter()
	chiRouter.Use(middleware.RequestID)
	chiRouter.Use(middleware.Recoverer)
	chiRouter.Use(metrics.Middleware())

	chiRouter.Get("/health", s.handleHealth)
	chiRouter.Method(http.MethodGet, "/metrics", metrics.Handler())

	s.HTTPServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      chiRouter,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

type healthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db"`
	Uptime string `json:"uptime"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", DB: "ok", Uptime: time.Since(s.started).Round(time.Second).String()}
	code := http.StatusOK
	if err := s.health.HealthCheck(ctx); err != nil {
		s.logger.Warn("health check failed", slog.String("error", err.Error()))
		resp.Status, resp.DB, resp.Error = "degraded", "unavailable", err.Error()
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

// ListenAndServe запускает HTTP-сервер
func (s *Server) ListenAndServe() error {
	return s.HTTPServer.ListenAndServe()
}

// Shutdown корректно завершает работу HTTP-сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.HTTPServer.Shutdown(ctx)
}
