package api

import (
	"context"
	"errors"
	"net"

	"github.com/gofiber/fiber/v2"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/proconnect/messaging-service/internal/service"
)

// statusFromError is the single error→status mapping for every handler in
// this service: validation 400, empty inbox 404, transient store trouble
// 503, anything else 500.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrNoConversations):
		return fiber.StatusNotFound
	case isTransient(err):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func isTransient(err error) bool {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// respondError writes the mapped status. Client errors carry the real
// message; server-side failures stay opaque.
func respondError(c *fiber.Ctx, err error) error {
	status := statusFromError(err)
	msg := err.Error()
	switch status {
	case fiber.StatusInternalServerError:
		msg = "Server error"
	case fiber.StatusServiceUnavailable:
		msg = "Service unavailable - transient network error"
	}
	return c.Status(status).JSON(fiber.Map{"message": msg})
}
