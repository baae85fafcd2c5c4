package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/ZeroR0R/LSBank/internal/config"
	"github.com/ZeroR0R/LSBank/internal/routes"
)

// Server wraps the Fiber application, the reserves report schedule and
// shared dependencies.
type Server struct {
	app    *fiber.App
	cfg    config.Config
	db     *pgxpool.Pool
	cache  *redis.Client
	cron   *cron.Cron
	logger *slog.Logger
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
// The reserves report starts running on cfg.ReportSchedule right away.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: routes.ErrorHandler,
	})

	wiring, err := routes.Setup(app, routes.Deps{Cfg: cfg, DB: db, Cache: cache, Logger: logger, AccessLog: cfg.IsDev()})
	if err != nil {
		return nil, err
	}

	scheduler, err := wiring.Reporter.Schedule(cfg.ReportSchedule)
	if err != nil {
		return nil, err
	}
	logger.Info("reserves report scheduled", slog.String("schedule", cfg.ReportSchedule))

	return &Server{app: app, cfg: cfg, db: db, cache: cache, cron: scheduler, logger: logger}, nil
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown stops the report schedule, waiting for a running report, then
// gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("reserves report still running at shutdown")
	}
	return s.app.ShutdownWithContext(ctx)
}
