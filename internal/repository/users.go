package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserRepository covers the narrow slice of the users collection this
// service touches: online flags on socket connect/disconnect.
type UserRepository interface {
	SetOnline(ctx context.Context, id primitive.ObjectID) error
	SetOffline(ctx context.Context, id primitive.ObjectID, lastSeen time.Time) error
}

type mongoUsers struct {
	col *mongo.Collection
}

func NewMongoUsers(col *mongo.Collection) UserRepository {
	return &mongoUsers{col: col}
}

func (r *mongoUsers) SetOnline(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"isOnline": true}})
	return err
}

func (r *mongoUsers) SetOffline(ctx context.Context, id primitive.ObjectID, lastSeen time.Time) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"isOnline": false, "lastSeen": lastSeen}})
	return err
}
