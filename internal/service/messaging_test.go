package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/proconnect/messaging-service/internal/models"
)

// fakeMessages implements repository.MessageRepository in memory, honoring
// the idempotent-insert contract, and counts writes.
type fakeMessages struct {
	mu        sync.Mutex
	stored    map[primitive.ObjectID]models.Message
	inserts   int
	summaries []models.ConversationSummary
	failWith  error
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{stored: map[primitive.ObjectID]models.Message{}}
}

func (f *fakeMessages) Insert(_ context.Context, m *models.Message) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	if !m.ID.IsZero() {
		if existing, ok := f.stored[m.ID]; ok {
			return &existing, nil
		}
	} else {
		m.ID = primitive.NewObjectID()
	}
	m.CreatedAt = time.Now().UTC()
	f.stored[m.ID] = *m
	f.inserts++
	return m, nil
}

func (f *fakeMessages) FindByID(_ context.Context, id primitive.ObjectID) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.stored[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &m, nil
}

func (f *fakeMessages) Conversation(_ context.Context, a, b primitive.ObjectID) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := []models.Message{}
	for _, m := range f.stored {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeMessages) MarkRead(_ context.Context, ids []primitive.ObjectID) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	var affected []models.Message
	for _, id := range ids {
		if m, ok := f.stored[id]; ok {
			m.IsRead = true
			f.stored[id] = m
			affected = append(affected, m)
		}
	}
	return affected, nil
}

func (f *fakeMessages) Summaries(_ context.Context, _ primitive.ObjectID) ([]models.ConversationSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.summaries, nil
}

type fakeUsers struct {
	mu      sync.Mutex
	online  map[primitive.ObjectID]bool
	lastSee map[primitive.ObjectID]time.Time
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{online: map[primitive.ObjectID]bool{}, lastSee: map[primitive.ObjectID]time.Time{}}
}

func (f *fakeUsers) SetOnline(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online[id] = true
	return nil
}

func (f *fakeUsers) SetOffline(_ context.Context, id primitive.ObjectID, lastSeen time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online[id] = false
	f.lastSee[id] = lastSeen
	return nil
}

func newTestMessaging(msgs *fakeMessages) *Messaging {
	return NewMessaging(msgs, newFakeUsers(), nil, zap.NewNop().Sugar())
}

func TestSendValidation(t *testing.T) {
	svc := newTestMessaging(newFakeMessages())
	sender := primitive.NewObjectID().Hex()
	receiver := primitive.NewObjectID().Hex()

	tests := []struct {
		name                           string
		sender, receiver, text, withID string
	}{
		{"missing receiver", sender, "", "hi", ""},
		{"missing text", sender, receiver, "", ""},
		{"malformed sender", "not-an-id", receiver, "hi", ""},
		{"malformed receiver", sender, "not-an-id", "hi", ""},
		{"malformed existing id", sender, receiver, "hi", "zzz"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Send(context.Background(), tc.sender, tc.receiver, tc.text, tc.withID)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestSendPersistsOnce(t *testing.T) {
	msgs := newFakeMessages()
	svc := newTestMessaging(msgs)
	before := time.Now().UTC()

	stored, err := svc.Send(context.Background(), primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex(), "hello", "")
	require.NoError(t, err)

	assert.False(t, stored.ID.IsZero())
	assert.False(t, stored.IsRead, "new messages start unread")
	assert.False(t, stored.CreatedAt.Before(before.Truncate(time.Second)))
	assert.Equal(t, 1, msgs.inserts)
}

func TestSendSelfMessagingAllowed(t *testing.T) {
	msgs := newFakeMessages()
	svc := newTestMessaging(msgs)
	self := primitive.NewObjectID().Hex()

	stored, err := svc.Send(context.Background(), self, self, "note to self", "")
	require.NoError(t, err)
	assert.Equal(t, stored.SenderID, stored.ReceiverID)
	assert.Equal(t, 1, msgs.inserts)
}

func TestSendIdempotencyKey(t *testing.T) {
	msgs := newFakeMessages()
	svc := newTestMessaging(msgs)
	sender := primitive.NewObjectID().Hex()
	receiver := primitive.NewObjectID().Hex()

	first, err := svc.Send(context.Background(), sender, receiver, "hello", "")
	require.NoError(t, err)
	require.Equal(t, 1, msgs.inserts)

	// the relay leg of a dual-path send repeats the stored id
	second, err := svc.Send(context.Background(), sender, receiver, "hello", first.ID.Hex())
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, msgs.inserts, "repeat of a stored id must not write again")
}

func TestMarkReadIdempotent(t *testing.T) {
	msgs := newFakeMessages()
	svc := newTestMessaging(msgs)
	sender := primitive.NewObjectID().Hex()
	receiver := primitive.NewObjectID().Hex()

	stored, err := svc.Send(context.Background(), sender, receiver, "hello", "")
	require.NoError(t, err)

	ids := []string{stored.ID.Hex(), primitive.NewObjectID().Hex(), "malformed"}

	affected, err := svc.MarkRead(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, affected, 1, "unknown and malformed ids are ignored")
	assert.True(t, affected[0].IsRead)

	affected, err = svc.MarkRead(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, affected, 1)
	assert.True(t, affected[0].IsRead, "second call leaves the flag set and does not error")
}

func TestConversationsEmptyIsNotFound(t *testing.T) {
	svc := newTestMessaging(newFakeMessages())

	_, err := svc.Conversations(context.Background(), primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrNoConversations)
}

func TestConversationsValidation(t *testing.T) {
	svc := newTestMessaging(newFakeMessages())

	_, err := svc.Conversations(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Conversations(context.Background(), "not-an-object-id")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestConversationsReturnsSummaries(t *testing.T) {
	msgs := newFakeMessages()
	partner := primitive.NewObjectID()
	msgs.summaries = []models.ConversationSummary{{
		PartnerID:   partner,
		Partner:     models.User{ID: partner, Name: "Maya"},
		LastMessage: models.Message{ID: primitive.NewObjectID(), Text: "see you"},
	}}
	svc := newTestMessaging(msgs)

	got, err := svc.Conversations(context.Background(), primitive.NewObjectID().Hex())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, partner, got[0].PartnerID)
	assert.Equal(t, "see you", got[0].LastMessage.Text)
}

func TestConversationOrdering(t *testing.T) {
	msgs := newFakeMessages()
	svc := newTestMessaging(msgs)
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	for _, text := range []string{"one", "two", "three"} {
		_, err := svc.Send(context.Background(), a.Hex(), b.Hex(), text, "")
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}
	_, err := svc.Send(context.Background(), b.Hex(), a.Hex(), "four", "")
	require.NoError(t, err)

	conv, err := svc.Conversation(context.Background(), a.Hex(), b.Hex())
	require.NoError(t, err)
	require.Len(t, conv, 4, "both directions belong to the conversation")
	for i := 1; i < len(conv); i++ {
		assert.False(t, conv[i].CreatedAt.Before(conv[i-1].CreatedAt), "ascending by creation time")
	}
}

func TestReadPathBreakerOpens(t *testing.T) {
	msgs := newFakeMessages()
	msgs.failWith = errors.New("connection reset by peer")
	svc := newTestMessaging(msgs)
	user := primitive.NewObjectID().Hex()

	for i := 0; i < 5; i++ {
		_, err := svc.Conversations(context.Background(), user)
		require.Error(t, err)
		require.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}

	_, err := svc.Conversations(context.Background(), user)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState, "five consecutive store failures trip the breaker")
}
