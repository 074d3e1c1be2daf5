package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/shieldpay/shieldpay/internal/send"
)

// RegisterSendRoutes wires the send session. guards run in front of the
// submission endpoint only.
func RegisterSendRoutes(r fiber.Router, h *send.Handler, guards ...fiber.Handler) {
	g := r.Group("/send")
	g.Get("", h.Get)
	g.Get("/status", h.Status)
	g.Post("/sender/toggle", h.ToggleSender)
	g.Post("/receiver/toggle", h.ToggleReceiver)
	g.Post("/swap", h.Swap)
	g.Put("/asset", h.SetAsset)
	g.Put("/target", h.SetTarget)
	g.Put("/receiver", h.SetReceiver)
	g.Post("", append(guards, h.Send)...)
}
