package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/shieldpay/shieldpay/internal/config"
	"github.com/shieldpay/shieldpay/internal/routes"
)

// Server wraps the Fiber application and the background balance refresher.
type Server struct {
	app    *fiber.App
	cfg    config.Config
	svc    *routes.Services
	logger *slog.Logger

	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds the send services and delegates route wiring to routes.Setup.
func New(ctx context.Context, cfg config.Config, db *pgxpool.Pool, cache *redis.Client, logger *slog.Logger) (*Server, error) {
	d := routes.Deps{Cfg: cfg, DB: db, Cache: cache, Logger: logger}
	svc, err := routes.Build(ctx, d)
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	routes.Setup(app, d, svc)

	runCtx, cancel := context.WithCancel(context.Background())
	return &Server{app: app, cfg: cfg, svc: svc, logger: logger, runCtx: runCtx, cancel: cancel}, nil
}

// App exposes the Fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the balance refresher and then the HTTP server. It blocks
// until the listener stops.
func (s *Server) Listen() error {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.svc.Refresher.Run(s.runCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("balance refresher stopped", "error", err)
		}
	}()
	return s.app.Listen(s.cfg.Address())
}

// Shutdown stops the refresher and gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	err := s.app.ShutdownWithContext(ctx)
	s.wg.Wait()
	return err
}
