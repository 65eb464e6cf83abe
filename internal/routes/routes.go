package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/ghostchain/internal/config"
	"github.com/congo-pay/ghostchain/internal/ledger"
	"github.com/congo-pay/ghostchain/internal/middleware"
	"github.com/congo-pay/ghostchain/internal/orchestrator"
)

// Deps aggregates what the routes need.
type Deps struct {
	Cfg          config.Config
	Orchestrator *orchestrator.Orchestrator
	DB           *pgxpool.Pool
	Cache        *redis.Client
	Logger       *slog.Logger
}

// Setup installs middleware and every route.
func Setup(app *fiber.App, d Deps) {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	api := app.Group("/api/v1")
	if d.Cache != nil {
		api.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals(middleware.RequestIDLocal).(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterLedgerRoutes(api, ledger.NewHandler(d.Orchestrator.Engine()))

	var limitStore redis.Cmdable
	if d.Cache != nil {
		limitStore = d.Cache
	}
	limiter := middleware.FaucetRateLimit(limitStore, d.Cfg.FaucetPerMin, d.Logger)
	RegisterFaucetRoutes(api, orchestrator.NewHandler(d.Orchestrator), limiter)
}

// RegisterLedgerRoutes wires account, transfer and denom endpoints.
func RegisterLedgerRoutes(r fiber.Router, h *ledger.Handler) {
	r.Post("/chains/:chain/accounts", h.MakeAccount)
	r.Get("/chains/:chain/accounts/:address/balances", h.Balances)
	r.Post("/chains/:chain/accounts/:address/transfers", h.Transfer)
	r.Get("/denoms/:denom", h.Denom)
}

// RegisterFaucetRoutes wires the faucet behind its rate limiter.
func RegisterFaucetRoutes(r fiber.Router, h *orchestrator.Handler, limiter fiber.Handler) {
	r.Post("/faucet", limiter, h.Faucet)
}
