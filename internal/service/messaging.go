// Package service holds the messaging use-cases shared by the HTTP
// handlers and the realtime relay.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/proconnect/messaging-service/internal/metrics"
	"github.com/proconnect/messaging-service/internal/models"
	"github.com/proconnect/messaging-service/internal/repository"
)

// EventPublisher pushes message lifecycle events to the notification
// pipeline. May be nil when eventing is disabled.
type EventPublisher interface {
	MessageCreated(ctx context.Context, m *models.Message) error
}

type Messaging struct {
	messages repository.MessageRepository
	users    repository.UserRepository
	events   EventPublisher
	breaker  *gobreaker.CircuitBreaker
	log      *zap.SugaredLogger
}

func NewMessaging(messages repository.MessageRepository, users repository.UserRepository, events EventPublisher, log *zap.SugaredLogger) *Messaging {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "conversation-store-reads",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Messaging{messages: messages, users: users, events: events, breaker: cb, log: log}
}

// Send persists a message. existingID, when non-empty, is the idempotency
// key: a repeat of an already-stored id returns the stored record without a
// second write, which is what lets clients use the HTTP path for durability
// and the relay purely for live notification.
func (s *Messaging) Send(ctx context.Context, senderID, receiverID, text, existingID string) (*models.Message, error) {
	if receiverID == "" || text == "" {
		return nil, fmt.Errorf("%w: receiverId and text are required", ErrValidation)
	}
	sender, err := primitive.ObjectIDFromHex(senderID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid sender id", ErrValidation)
	}
	receiver, err := primitive.ObjectIDFromHex(receiverID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid receiver id", ErrValidation)
	}

	m := &models.Message{SenderID: sender, ReceiverID: receiver, Text: text}
	if existingID != "" {
		id, err := primitive.ObjectIDFromHex(existingID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid message id", ErrValidation)
		}
		m.ID = id
	}

	stored, err := s.messages.Insert(ctx, m)
	if err != nil {
		return nil, err
	}
	metrics.MessagesCreated.Inc()

	if s.events != nil {
		if err := s.events.MessageCreated(ctx, stored); err != nil {
			s.log.Warnw("message.created publish failed", "messageId", stored.ID.Hex(), "error", err)
		}
	}
	return stored, nil
}

// Conversation returns the full two-way exchange between the caller and a
// peer, oldest first. Unpaginated.
func (s *Messaging) Conversation(ctx context.Context, userID, peerID string) ([]models.Message, error) {
	a, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id", ErrValidation)
	}
	b, err := primitive.ObjectIDFromHex(peerID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid peer id", ErrValidation)
	}

	res, err := s.breaker.Execute(func() (interface{}, error) {
		return s.messages.Conversation(ctx, a, b)
	})
	if err != nil {
		return nil, err
	}
	return res.([]models.Message), nil
}

// Conversations computes the caller's inbox summaries. An empty inbox is
// ErrNoConversations, not an empty slice.
func (s *Messaging) Conversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id", ErrValidation)
	}

	res, err := s.breaker.Execute(func() (interface{}, error) {
		return s.messages.Summaries(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	summaries := res.([]models.ConversationSummary)
	if len(summaries) == 0 {
		return nil, ErrNoConversations
	}
	return summaries, nil
}

// MarkRead flips the read flag on the given messages and returns the
// affected records so the relay can notify their senders. Ids that are
// malformed or unknown are silently dropped; repeating the call is a no-op.
func (s *Messaging) MarkRead(ctx context.Context, messageIDs []string) ([]models.Message, error) {
	ids := make([]primitive.ObjectID, 0, len(messageIDs))
	for _, raw := range messageIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return s.messages.MarkRead(ctx, ids)
}

// SetPresenceFlags mirrors connect/disconnect onto the user document so the
// rest of the campus app can render online badges without touching the
// relay.
func (s *Messaging) SetPresenceFlags(ctx context.Context, userID string, online bool) error {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return fmt.Errorf("%w: invalid user id", ErrValidation)
	}
	if online {
		return s.users.SetOnline(ctx, id)
	}
	return s.users.SetOffline(ctx, id, time.Now().UTC())
}
