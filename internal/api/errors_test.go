package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"

	"github.com/proconnect/messaging-service/internal/service"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", fmt.Errorf("%w: receiverId and text are required", service.ErrValidation), fiber.StatusBadRequest},
		{"empty inbox", service.ErrNoConversations, fiber.StatusNotFound},
		{"breaker open", gobreaker.ErrOpenState, fiber.StatusServiceUnavailable},
		{"breaker throttling", gobreaker.ErrTooManyRequests, fiber.StatusServiceUnavailable},
		{"deadline", context.DeadlineExceeded, fiber.StatusServiceUnavailable},
		{"network", timeoutErr{}, fiber.StatusServiceUnavailable},
		{"wrapped network", fmt.Errorf("query failed: %w", timeoutErr{}), fiber.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, statusFromError(tc.err))
		})
	}

	// the same transient class maps to 503 everywhere, 500 nowhere
	wrapped := fmt.Errorf("reading conversations: %w", gobreaker.ErrOpenState)
	assert.Equal(t, fiber.StatusServiceUnavailable, statusFromError(wrapped))
}
