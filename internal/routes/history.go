package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/shieldpay/shieldpay/internal/history"
)

// RegisterHistoryRoutes exposes recorded private transactions, newest first.
func RegisterHistoryRoutes(r fiber.Router, store history.Store) {
	r.Get("/history", func(c *fiber.Ctx) error {
		events, err := store.List(c.UserContext())
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, "history unavailable")
		}
		if events == nil {
			events = []history.Event{}
		}
		return c.JSON(fiber.Map{"events": events})
	})
}
