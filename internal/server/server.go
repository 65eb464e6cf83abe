package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/ghostchain/internal/config"
	"github.com/congo-pay/ghostchain/internal/infra"
	"github.com/congo-pay/ghostchain/internal/orchestrator"
	"github.com/congo-pay/ghostchain/internal/routes"
)

// Server wraps the Fiber application serving one orchestrator.
type Server struct {
	app *fiber.App
	cfg config.Config
}

// New builds the HTTP server and wires routes.
func New(cfg config.Config, orch *orchestrator.Orchestrator, res *infra.Resources, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	routes.Setup(app, routes.Deps{
		Cfg:          cfg,
		Orchestrator: orch,
		DB:           res.DB,
		Cache:        res.Cache,
		Logger:       logger,
	})
	return &Server{app: app, cfg: cfg}
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// errorHandler renders every error as {"error": message}.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
