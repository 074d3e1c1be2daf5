package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/shieldpay/shieldpay/internal/wallet"
)

// RegisterWalletRoutes wires private wallet endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/wallet", h.Status)
	r.Post("/wallet/sync", h.Sync)
}
