package logging

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	RequestIDHeader = "X-Request-ID"
	CtxRequestIDKey = "request_id"
)

// Middleware logs one line per request and tags the response with a request id.
func Middleware(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		reqID := c.Get(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Locals(CtxRequestIDKey, reqID)
		c.Set(RequestIDHeader, reqID)

		chainErr := c.Next()
		if chainErr != nil {
			// Let the app error handler write the status before logging it.
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		fields := []zap.Field{
			zap.String("request_id", reqID),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
		}
		status := c.Response().StatusCode()
		switch {
		case status >= fiber.StatusInternalServerError:
			log.Error("request", append(fields, zap.Error(chainErr))...)
		case status >= fiber.StatusBadRequest:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
		return nil
	}
}

// RequestID returns the id assigned by Middleware, if any.
func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(CtxRequestIDKey).(string)
	return id
}
