package middleware

import (
	"context"
	"time"

	"moodboard/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// ContextMiddleware injects the request id from Fiber locals into the request
// context so deep layers can log it.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			c.SetUserContext(observability.WithRequestID(c.UserContext(), rid))
		}
		return c.Next()
	}
}

// StructuredLogger logs one line per request with method, path, status, and
// latency.
func StructuredLogger(logger *observability.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		attrs := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"ip", c.IP(),
			"request_id", observability.ExtractRequestID(c.UserContext()),
		}
		if uid, ok := UserIDFromLocals(c); ok {
			attrs = append(attrs, "user_id", uid)
		}
		if err != nil {
			attrs = append(attrs, "error", err.Error())
		}

		switch {
		case status >= 500 || err != nil:
			logger.ErrorContext(context.Background(), "request", attrs...)
		case status >= 400:
			logger.WarnContext(context.Background(), "request", attrs...)
		default:
			logger.InfoContext(context.Background(), "request", attrs...)
		}
		return err
	}
}
