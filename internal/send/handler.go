package send

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/shieldpay/shieldpay/internal/asset"
	"github.com/shieldpay/shieldpay/internal/txstatus"
)

// Handler exposes the send engine to the presentation layer.
type Handler struct {
	engine *Engine
}

// NewHandler constructs a send handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

type assetRequest struct {
	Ticker string `json:"ticker"`
}

type targetRequest struct {
	Amount string `json:"amount"`
}

type receiverRequest struct {
	Address string `json:"address"`
}

// Get returns the current snapshot.
func (h *Handler) Get(c *fiber.Ctx) error {
	return c.JSON(h.engine.Snapshot())
}

// Status returns the transaction status slot.
func (h *Handler) Status(c *fiber.Ctx) error {
	return c.JSON(h.engine.Slot().Get())
}

func (h *Handler) ToggleSender(c *fiber.Ctx) error {
	h.engine.ToggleSender(c.UserContext())
	return c.JSON(h.engine.Snapshot())
}

func (h *Handler) ToggleReceiver(c *fiber.Ctx) error {
	h.engine.ToggleReceiver(c.UserContext())
	return c.JSON(h.engine.Snapshot())
}

func (h *Handler) Swap(c *fiber.Ctx) error {
	h.engine.Swap(c.UserContext())
	return c.JSON(h.engine.Snapshot())
}

// SetAsset selects the asset to send.
func (h *Handler) SetAsset(c *fiber.Ctx) error {
	var req assetRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if _, err := h.engine.SetAssetType(c.UserContext(), req.Ticker); err != nil {
		if errors.Is(err, asset.ErrUnknownAsset) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(h.engine.Snapshot())
}

// SetTarget sets the amount to send.
func (h *Handler) SetTarget(c *fiber.Ctx) error {
	var req targetRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if _, err := h.engine.SetTargetInput(req.Amount); err != nil {
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(h.engine.Snapshot())
}

// SetReceiver sets the recipient. Invalid addresses are accepted and
// reported through the snapshot.
func (h *Handler) SetReceiver(c *fiber.Ctx) error {
	var req receiverRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	h.engine.SetReceiverInput(req.Address)
	return c.JSON(h.engine.Snapshot())
}

// Send starts a transfer. With ?wait=true the response is delayed until the
// cycle completes.
func (h *Handler) Send(c *fiber.Ctx) error {
	cycle, err := h.engine.Send(c.UserContext())
	if err != nil {
		switch {
		case errors.Is(err, txstatus.ErrInFlight):
			return fiber.NewError(http.StatusConflict, "transaction already in flight")
		case errors.Is(err, ErrNotValidToSend):
			msg := h.engine.Snapshot().Message
			if msg == "" {
				msg = err.Error()
			}
			return fiber.NewError(http.StatusUnprocessableEntity, msg)
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	if c.QueryBool("wait") {
		status, err := cycle.Wait(c.UserContext())
		if err != nil {
			return fiber.NewError(http.StatusGatewayTimeout, err.Error())
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"cycle_id": cycle.ID,
			"mode":     cycle.Mode,
			"phase":    cycle.Phase(),
			"status":   status,
		})
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"cycle_id": cycle.ID,
		"mode":     cycle.Mode,
		"phase":    cycle.Phase(),
	})
}
