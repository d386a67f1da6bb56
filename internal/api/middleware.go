// internal/api/middleware.go
package api

import (
	"time"

	"agrischemes/internal/common/logger"
	"agrischemes/internal/lifecycle"
	"agrischemes/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	headerRequestID = "X-Request-ID"
	headerUserID    = "X-User-ID"
	headerUserRole  = "X-User-Role"
)

// requestContext tags each request with an ID and logs its outcome.
// Identity headers are trusted; the gateway in front of this service
// authenticates callers and injects them.
func requestContext(log logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Locals("requestID", requestID)
		c.Set(headerRequestID, requestID)

		start := time.Now()
		err := c.Next()

		fields := map[string]interface{}{
			"request_id": requestID,
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     c.Response().StatusCode(),
			"duration":   time.Since(start).String(),
		}
		if err != nil {
			log.WithError(err).Warn("request failed", fields)
			return err
		}
		log.Info("request completed", fields)
		return nil
	}
}

// actorFrom reads the gateway-injected identity headers.
func actorFrom(c *fiber.Ctx) lifecycle.Actor {
	return lifecycle.Actor{
		UserID: c.Get(headerUserID),
		Role:   models.Role(c.Get(headerUserRole)),
	}
}
