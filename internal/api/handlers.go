package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/proconnect/messaging-service/internal/service"
)

type Handler struct {
	svc    *service.Messaging
	dbPing func(ctx context.Context) error
	log    *zap.SugaredLogger
}

func NewHandler(svc *service.Messaging, dbPing func(ctx context.Context) error, log *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, dbPing: dbPing, log: log}
}

const storeTimeout = 5 * time.Second

// POST /api/v1/messages  {receiverId, text, [id]}
// Sender is the authenticated caller. No connection/friendship check: any
// member may message any other. The optional id is the idempotency key.
func (h *Handler) createMessage(c *fiber.Ctx) error {
	var body struct {
		ReceiverID string `json:"receiverId"`
		Text       string `json:"text"`
		ID         string `json:"id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "receiverId and text are required."})
	}

	ctx, cancel := context.WithTimeout(c.Context(), storeTimeout)
	defer cancel()
	msg, err := h.svc.Send(ctx, callerID(c), body.ReceiverID, body.Text, body.ID)
	if err != nil {
		h.log.Errorw("create message failed", "error", err)
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// GET /api/v1/messages/conversation/:peerId
func (h *Handler) getConversation(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), storeTimeout)
	defer cancel()
	msgs, err := h.svc.Conversation(ctx, callerID(c), c.Params("peerId"))
	if err != nil {
		h.log.Errorw("get conversation failed", "error", err)
		return respondError(c, err)
	}
	return c.JSON(msgs)
}

// GET /api/v1/messages/conversations
func (h *Handler) getConversations(c *fiber.Ctx) error {
	userID := callerID(c)
	if userID == "" {
		userID = c.Query("userId")
	}

	ctx, cancel := context.WithTimeout(c.Context(), storeTimeout)
	defer cancel()
	summaries, err := h.svc.Conversations(ctx, userID)
	if err != nil {
		if err != service.ErrNoConversations {
			h.log.Errorw("get conversations failed", "userId", userID, "error", err)
		}
		return respondError(c, err)
	}
	return c.JSON(summaries)
}

// POST /api/v1/messages/mark-read  {messageIds}
// No read-receipt notification here; that only happens on the realtime
// path.
func (h *Handler) markRead(c *fiber.Ctx) error {
	var body struct {
		MessageIDs []string `json:"messageIds"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "messageIds are required."})
	}

	ctx, cancel := context.WithTimeout(c.Context(), storeTimeout)
	defer cancel()
	if _, err := h.svc.MarkRead(ctx, body.MessageIDs); err != nil {
		h.log.Errorw("mark read failed", "error", err)
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// GET /healthz
func (h *Handler) healthz(c *fiber.Ctx) error {
	dbConnected := false
	if h.dbPing != nil {
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()
		dbConnected = h.dbPing(ctx) == nil
	}
	return c.JSON(fiber.Map{"ok": true, "dbConnected": dbConnected})
}
