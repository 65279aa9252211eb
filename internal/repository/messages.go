package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/proconnect/messaging-service/internal/models"
)

// MessageRepository is the conversation store. It is the only owner of
// message state; nothing in memory is authoritative.
type MessageRepository interface {
	// Insert persists m and returns the stored record. When m.ID is set it
	// acts as an idempotency key: if a message with that id already exists
	// the existing record is returned and nothing is written.
	Insert(ctx context.Context, m *models.Message) (*models.Message, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error)
	// Conversation returns every message between a and b, both directions,
	// ascending by creation time.
	Conversation(ctx context.Context, a, b primitive.ObjectID) ([]models.Message, error)
	// MarkRead flips isRead on the given ids and returns the affected
	// messages. Unknown ids are ignored; the call is idempotent.
	MarkRead(ctx context.Context, ids []primitive.ObjectID) ([]models.Message, error)
	// Summaries computes the inbox view for user: the most recent message
	// per distinct partner, partners with no surviving user record dropped,
	// ordered by that message's recency descending.
	Summaries(ctx context.Context, user primitive.ObjectID) ([]models.ConversationSummary, error)
}

type mongoMessages struct {
	col       *mongo.Collection
	usersName string
}

func NewMongoMessages(col *mongo.Collection, usersCollection string) MessageRepository {
	return &mongoMessages{col: col, usersName: usersCollection}
}

func (r *mongoMessages) Insert(ctx context.Context, m *models.Message) (*models.Message, error) {
	if !m.ID.IsZero() {
		existing, err := r.FindByID(ctx, m.ID)
		if err == nil {
			return existing, nil
		}
		if err != mongo.ErrNoDocuments {
			return nil, err
		}
	} else {
		m.ID = primitive.NewObjectID()
	}
	m.CreatedAt = time.Now().UTC()
	if _, err := r.col.InsertOne(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *mongoMessages) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	var m models.Message
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *mongoMessages) Conversation(ctx context.Context, a, b primitive.ObjectID) ([]models.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"senderId": a, "receiverId": b},
		bson.M{"senderId": b, "receiverId": a},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Message{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mongoMessages) MarkRead(ctx context.Context, ids []primitive.ObjectID) ([]models.Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	filter := bson.M{"_id": bson.M{"$in": ids}}
	if _, err := r.col.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"isRead": true}}); err != nil {
		return nil, err
	}
	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var affected []models.Message
	if err := cur.All(ctx, &affected); err != nil {
		return nil, err
	}
	return affected, nil
}

func (r *mongoMessages) Summaries(ctx context.Context, user primitive.ObjectID) ([]models.ConversationSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": bson.A{
			bson.M{"senderId": user},
			bson.M{"receiverId": user},
		}}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		{{Key: "$project", Value: bson.M{
			"senderId": 1, "receiverId": 1, "text": 1, "isRead": 1, "createdAt": 1,
			"partner": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$senderId", user}},
				"$receiverId",
				"$senderId",
			}},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":         "$partner",
			"lastMessage": bson.M{"$first": "$$ROOT"},
		}}},
		// drop partners whose user record no longer exists
		{{Key: "$lookup", Value: bson.M{
			"from":         r.usersName,
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "partnerInfo",
		}}},
		{{Key: "$match", Value: bson.M{"partnerInfo.0": bson.M{"$exists": true}}}},
		{{Key: "$addFields", Value: bson.M{
			"partnerInfo": bson.M{"$arrayElemAt": bson.A{"$partnerInfo", 0}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "lastMessage.createdAt", Value: -1}}}},
	}

	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.ConversationSummary
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
