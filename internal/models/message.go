package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is one directed text communication between two users.
// Everything except IsRead is immutable once stored.
type Message struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	SenderID   primitive.ObjectID `bson:"senderId" json:"senderId"`
	ReceiverID primitive.ObjectID `bson:"receiverId" json:"receiverId"`
	Text       string             `bson:"text" json:"text"`
	IsRead     bool               `bson:"isRead" json:"isRead"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}

// ConversationSummary is the derived inbox row: one per distinct partner,
// carrying the most recent message of that exchange. Never persisted.
type ConversationSummary struct {
	PartnerID   primitive.ObjectID `bson:"_id" json:"partnerId"`
	Partner     User               `bson:"partnerInfo" json:"partner"`
	LastMessage Message            `bson:"lastMessage" json:"lastMessage"`
}
