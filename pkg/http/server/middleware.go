package server

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RequestIDKey is the fiber.Ctx Locals key holding the request id.
const RequestIDKey = "requestid"

// RequestID returns the id assigned to the current request, if any.
func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(RequestIDKey).(string)
	return id
}

func statusOf(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

// LoggingMiddleware creates a fiber handler for request/response logging.
func LoggingMiddleware(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		logger.Debug("HTTP request started",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("client_addr", c.IP()),
			zap.String("request_id", RequestID(c)))

		err := c.Next()
		duration := time.Since(start)
		status := statusOf(c, err)

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("request_id", RequestID(c)),
		}

		switch {
		case err != nil && status >= fiber.StatusInternalServerError:
			logger.Error("HTTP request failed", append(fields, zap.Error(err))...)
		case err != nil:
			logger.Warn("HTTP request rejected", append(fields, zap.Error(err))...)
		default:
			logger.Info("HTTP request completed", fields...)
		}

		return err
	}
}

// ErrorHandler answers errors that escaped the handlers with a plain status
// page. Internal details are logged, never sent to the client.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := statusOf(c, err)
		msg := fiber.ErrInternalServerError.Message

		var fe *fiber.Error
		if errors.As(err, &fe) {
			msg = fe.Message
		} else {
			logger.Error("unhandled error",
				zap.String("path", c.Path()),
				zap.String("request_id", RequestID(c)),
				zap.Error(err))
		}

		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.Status(status).SendString(msg)
	}
}
