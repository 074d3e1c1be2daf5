package routes

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/shieldpay/shieldpay/internal/account"
)

type selectAccountRequest struct {
	Address string `json:"address"`
}

// RegisterAccountRoutes exposes the public account selector.
func RegisterAccountRoutes(r fiber.Router, accounts *account.Registry) {
	r.Get("/accounts", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"source":   accounts.Source(),
			"accounts": accounts.Options(),
		})
	})
	r.Put("/accounts/selected", func(c *fiber.Ctx) error {
		var req selectAccountRequest
		if err := c.BodyParser(&req); err != nil || req.Address == "" {
			return fiber.NewError(http.StatusBadRequest, "address is required")
		}
		if err := accounts.Select(c.UserContext(), req.Address); err != nil {
			if errors.Is(err, account.ErrUnknownAccount) {
				return fiber.NewError(http.StatusNotFound, err.Error())
			}
			return err
		}
		selected, _ := accounts.Selected()
		return c.JSON(selected)
	})
}
