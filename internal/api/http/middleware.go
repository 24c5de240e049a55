package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func requestLogger(logger *zap.SugaredLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		logger.Debugw("http: request", "method", c.Method(), "path", c.Path(),
			"status", c.Response().StatusCode(), "duration", time.Since(start))
		return err
	}
}
