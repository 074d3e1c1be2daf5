package wallet

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the private wallet status to the presentation layer.
type Handler struct {
	backend *Backend
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(backend *Backend) *Handler {
	return &Handler{backend: backend}
}

type statusResponse struct {
	Kind           string `json:"kind"`
	Ready          bool   `json:"ready"`
	Version        string `json:"version"`
	OutOfDate      bool   `json:"out_of_date"`
	BalancesStale  bool   `json:"balances_stale"`
	PrivateAddress string `json:"private_address,omitempty"`
}

// Status reports readiness, version and the shielded address.
func (h *Handler) Status(c *fiber.Ctx) error {
	addr, _ := h.backend.PrivateAddress(c.UserContext())
	return c.Status(http.StatusOK).JSON(statusResponse{
		Kind:           h.backend.Kind().String(),
		Ready:          h.backend.IsReady(),
		Version:        h.backend.Version(),
		OutOfDate:      h.backend.OutOfDate(),
		BalancesStale:  h.backend.BalancesStale(),
		PrivateAddress: addr,
	})
}

// Sync triggers a managed wallet sync.
func (h *Handler) Sync(c *fiber.Ctx) error {
	if err := h.backend.Sync(c.UserContext()); err != nil {
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}
	return c.SendStatus(http.StatusNoContent)
}
