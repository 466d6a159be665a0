// Пакет server — HTTP-сервер Work Records с graceful shutdown.
// Без TLS — TLS termination на ingress.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/workrecords/internal/api/handlers"
	"github.com/bigkaa/workrecords/internal/config"
)

// Handlers — обработчики, подключаемые к маршрутам.
type Handlers struct {
	Records *handlers.RecordsHandler
	Health  *handlers.HealthHandler
	System  *handlers.SystemHandler
}

// Server — HTTP-сервер Work Records.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
// auth — middleware аутентификации изменяющих запросов (nil — без аутентификации).
// middlewares применяются ко всем маршрутам в порядке переданного среза.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	h Handlers,
	auth func(http.Handler) http.Handler,
	middlewares ...func(http.Handler) http.Handler,
) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(h, auth, middlewares...),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает chi-router со всеми маршрутами API.
func NewRouter(h Handlers, auth func(http.Handler) http.Handler, middlewares ...func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()
	for _, mw := range middlewares {
		router.Use(mw)
	}

	router.NotFound(handlers.NotFound)
	router.MethodNotAllowed(handlers.MethodNotAllowed)

	router.Get("/", h.System.Index)
	router.Get("/health", h.Health.HealthLive)
	router.Get("/health/ready", h.Health.HealthReady)
	router.Get("/metrics", h.Health.GetMetrics)
	router.Get("/api/openapi.json", h.System.OpenAPI)
	router.Get("/media/{key}", h.System.Media)

	router.Route("/api/records", func(r chi.Router) {
		if auth != nil {
			r.Use(auth)
		}
		// /stats регистрируется явно и имеет приоритет над /{id}.
		r.Get("/stats", h.Records.Stats)
		r.Get("/", h.Records.List)
		r.Post("/", h.Records.Create)
		r.Get("/{id}", h.Records.Get)
		r.Put("/{id}", h.Records.Update)
		r.Delete("/{id}", h.Records.Delete)
	})

	return router
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
