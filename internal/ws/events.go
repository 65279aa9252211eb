package ws

import "encoding/json"

// Envelope is the wire shape for every realtime event, both directions:
// {"event": "...", "data": ...}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client → server events.
const (
	EventSendMessage = "sendMessage"
	EventMarkAsRead  = "markAsRead"
	EventTyping      = "typing"
)

// Server → client events.
const (
	EventReceiveMessage = "receiveMessage"
	EventMessageSent    = "messageSent"
	EventMessageRead    = "messageRead"
	EventUserOnline     = "userOnline"
	EventUserOffline    = "userOffline"
)

type sendMessagePayload struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Text       string `json:"text"`
	// ID carries the idempotency key when the message was already persisted
	// over HTTP and this event is relay-only.
	ID string `json:"id,omitempty"`
}

type markAsReadPayload struct {
	MessageIDs []string `json:"messageIds"`
}

type typingPayload struct {
	To       string `json:"to"`
	IsTyping bool   `json:"isTyping"`
}

type typingNotice struct {
	From     string `json:"from"`
	IsTyping bool   `json:"isTyping"`
}

type readNotice struct {
	MessageID string `json:"messageId"`
	Reader    string `json:"reader"`
}

// frame marshals an outbound envelope. Marshal failures cannot happen for
// the types we emit, so they degrade to an empty frame.
func frame(event string, data any) []byte {
	b, err := json.Marshal(data)
	if err != nil {
		b = []byte("null")
	}
	out, _ := json.Marshal(Envelope{Event: event, Data: b})
	return out
}
