package routes

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/shieldpay/shieldpay/internal/logging"
	"github.com/shieldpay/shieldpay/internal/middleware"
	"github.com/shieldpay/shieldpay/internal/send"
	"github.com/shieldpay/shieldpay/internal/wallet"
)

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps, svc *Services) {
	log := d.Logger
	if log == nil {
		log = logging.Discard()
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.Cfg.IsDev() {
		// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	} else {
		app.Use(middleware.Audit(logging.Component(log, "http")))
	}

	RegisterHealthRoutes(app, d, svc)
	app.Get("/metrics", svc.Metrics.Handler())

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"network":    d.Cfg.Network,
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	sendGuards := []fiber.Handler{
		middleware.SendRateLimit(d.Cache, d.Cfg.SendRateLimit, func(*fiber.Ctx) string {
			addr, _, _ := svc.Accounts.External()
			return addr
		}),
	}
	if d.Cache != nil {
		sendGuards = append(sendGuards, middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, logging.Component(log, "idempotency")))
	}

	RegisterSendRoutes(api, send.NewHandler(svc.Engine), sendGuards...)
	RegisterWalletRoutes(api, wallet.NewHandler(svc.Wallet))
	RegisterAccountRoutes(api, svc.Accounts)
	RegisterHistoryRoutes(api, svc.History)
}
