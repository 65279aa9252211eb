package ws

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/proconnect/messaging-service/internal/hub"
	"github.com/proconnect/messaging-service/internal/metrics"
	"github.com/proconnect/messaging-service/internal/presence"
	"github.com/proconnect/messaging-service/internal/service"
)

// Relay bridges inbound realtime events to the conversation store and to
// the other sockets attached to this process. Everything here is best
// effort: a failure is logged and the event dropped, nothing is retried and
// no error reaches the client beyond a missing ack.
type Relay struct {
	hub      *hub.Hub
	registry presence.Registry
	svc      *service.Messaging
	log      *zap.SugaredLogger
}

func NewRelay(h *hub.Hub, registry presence.Registry, svc *service.Messaging, log *zap.SugaredLogger) *Relay {
	return &Relay{hub: h, registry: registry, svc: svc, log: log}
}

// ClientConnected attaches the socket and, for authenticated connections,
// publishes presence: registry entry, user doc flags, userOnline broadcast.
func (r *Relay) ClientConnected(ctx context.Context, c *hub.Client) {
	r.hub.Add(c)
	metrics.WSConnections.Inc()
	if c.UserID == "" {
		return
	}
	if err := r.registry.MarkOnline(ctx, c.UserID, c.SocketID); err != nil {
		r.log.Warnw("presence mark online failed", "userId", c.UserID, "error", err)
	}
	if err := r.svc.SetPresenceFlags(ctx, c.UserID, true); err != nil {
		r.log.Warnw("user online flag update failed", "userId", c.UserID, "error", err)
	}
	r.hub.Broadcast(frame(EventUserOnline, c.UserID))
}

// ClientDisconnected tears presence down and broadcasts userOffline.
func (r *Relay) ClientDisconnected(ctx context.Context, c *hub.Client) {
	r.hub.Remove(c.SocketID)
	metrics.WSConnections.Dec()
	if c.UserID == "" {
		return
	}
	if err := r.registry.MarkOffline(ctx, c.UserID); err != nil {
		r.log.Warnw("presence mark offline failed", "userId", c.UserID, "error", err)
	}
	if err := r.svc.SetPresenceFlags(ctx, c.UserID, false); err != nil {
		r.log.Warnw("user offline flag update failed", "userId", c.UserID, "error", err)
	}
	r.hub.Broadcast(frame(EventUserOffline, c.UserID))
}

// Dispatch routes one inbound frame. Malformed frames are dropped.
func (r *Relay) Dispatch(ctx context.Context, c *hub.Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return
	}
	metrics.WSEvents.WithLabelValues(env.Event).Inc()

	switch env.Event {
	case EventSendMessage:
		r.handleSendMessage(ctx, c, env.Data)
	case EventMarkAsRead:
		r.handleMarkAsRead(ctx, c, env.Data)
	case EventTyping:
		r.handleTyping(ctx, c, env.Data)
	}
}

func (r *Relay) handleSendMessage(ctx context.Context, c *hub.Client, data json.RawMessage) {
	var p sendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	stored, err := r.svc.Send(ctx, p.SenderID, p.ReceiverID, p.Text, p.ID)
	if err != nil {
		r.log.Errorw("relay send failed", "senderId", p.SenderID, "error", err)
		return
	}
	r.sendToUser(ctx, stored.ReceiverID.Hex(), frame(EventReceiveMessage, stored))
	c.Enqueue(frame(EventMessageSent, stored))
}

func (r *Relay) handleMarkAsRead(ctx context.Context, c *hub.Client, data json.RawMessage) {
	var p markAsReadPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	affected, err := r.svc.MarkRead(ctx, p.MessageIDs)
	if err != nil {
		r.log.Errorw("relay mark-read failed", "error", err)
		return
	}
	for _, m := range affected {
		notice := frame(EventMessageRead, readNotice{MessageID: m.ID.Hex(), Reader: c.UserID})
		r.sendToUser(ctx, m.SenderID.Hex(), notice)
	}
}

func (r *Relay) handleTyping(ctx context.Context, c *hub.Client, data json.RawMessage) {
	if c.UserID == "" {
		// anonymous sockets have no identity to put in "from"
		return
	}
	var p typingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	r.sendToUser(ctx, p.To, frame(EventTyping, typingNotice{From: c.UserID, IsTyping: p.IsTyping}))
}

// sendToUser resolves the target through the presence registry and enqueues
// onto the local socket if it is attached here. Offline or remote targets
// are dropped.
func (r *Relay) sendToUser(ctx context.Context, userID string, msg []byte) {
	socketID, ok, err := r.registry.Lookup(ctx, userID)
	if err != nil {
		r.log.Warnw("presence lookup failed", "userId", userID, "error", err)
		return
	}
	if !ok {
		return
	}
	if cl, ok := r.hub.Get(socketID); ok {
		cl.Enqueue(msg)
	}
}
