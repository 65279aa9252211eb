package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"

	"github.com/proconnect/messaging-service/internal/config"
	"github.com/proconnect/messaging-service/internal/metrics"
	"github.com/proconnect/messaging-service/internal/ws"
)

// NewServer assembles the Fiber app: health/metrics/ws at the root, the
// messaging endpoints behind JWT under /api/v1.
func NewServer(cfg *config.Config, h *Handler, wsServer *ws.Server, rdb *redis.Client) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: cfg.App.Env != "development"})
	app.Use(fiberlogger.New())

	app.Get("/healthz", h.healthz)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	app.Get("/ws", fiberws.New(wsServer.Handle()))

	api := app.Group("/api/v1", JWTAuth(cfg.App.JWTSecret))
	messages := api.Group("/messages")

	if rdb != nil && cfg.RateLimit.Enabled {
		messages.Post("/", RateLimit(rdb, cfg.Redis.Prefix, cfg.RateLimit.Limit, cfg.RateLimitWindow), h.createMessage)
	} else {
		messages.Post("/", h.createMessage)
	}
	messages.Get("/conversation/:peerId", h.getConversation)
	messages.Get("/conversations", h.getConversations)
	messages.Post("/mark-read", h.markRead)

	return app
}
