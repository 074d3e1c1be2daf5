package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Audit logs each request once it completes. Replayed idempotent responses
// and client errors are logged at lower levels than server failures.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		}
		if id := RequestIDFrom(c); id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}
		if string(c.Response().Header.Peek(idempotencyReplayHeader)) == "true" {
			attrs = append(attrs, slog.Bool("replayed", true))
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			if err != nil {
				attrs = append(attrs, slog.Any("error", err))
			}
			logger.Error("request failed", attrs...)
		case status >= fiber.StatusBadRequest:
			if err != nil {
				attrs = append(attrs, slog.String("reason", err.Error()))
			}
			logger.Warn("request rejected", attrs...)
		default:
			logger.Info("request completed", attrs...)
		}
		return err
	}
}
