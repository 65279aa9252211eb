package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the slice of the campus user document this service reads. The user
// service owns the collection; we only flip IsOnline/LastSeen on socket
// connect/disconnect and join against it to drop orphaned partners.
type User struct {
	ID             primitive.ObjectID `bson:"_id" json:"_id"`
	Name           string             `bson:"name" json:"name"`
	Username       string             `bson:"username" json:"username"`
	ProfilePicture string             `bson:"profilePicture,omitempty" json:"profilePicture,omitempty"`
	IsOnline       bool               `bson:"isOnline" json:"isOnline"`
	LastSeen       *time.Time         `bson:"lastSeen,omitempty" json:"lastSeen,omitempty"`
}
