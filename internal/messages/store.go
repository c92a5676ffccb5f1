package messages

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sociallyhq/socially/backend/internal/users"
)

// Store is the durable, append-only record of direct messages. Append is
// synchronous: once it returns, the message is visible to ListConversation.
type Store interface {
	Append(ctx context.Context, sender, recipient users.User, text string, media []Media) (Message, error)
	ListConversation(ctx context.Context, a, b users.User) ([]Message, error)
}

// Notifier is the post-commit delivery step. Implementations must be
// best-effort and must never fail the append that triggered them.
type Notifier interface {
	Notify(m Message)
}

type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("messages")}
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "pair", Value: 1}, {Key: "createdAt", Value: 1}},
	})
	return err
}

func (s *MongoStore) Append(ctx context.Context, sender, recipient users.User, text string, media []Media) (Message, error) {
	if err := ValidateContent(text, media); err != nil {
		return Message{}, err
	}
	if media == nil {
		media = []Media{}
	}

	m := Message{
		SenderID:            sender.ID,
		RecipientID:         recipient.ID,
		SenderExternalID:    sender.ExternalID,
		RecipientExternalID: recipient.ExternalID,
		Pair:                PairKey(sender.ID, recipient.ID),
		Text:                text,
		Media:               media,
		CreatedAt:           time.Now().UTC(),
	}

	res, err := s.col.InsertOne(ctx, m)
	if err != nil {
		return Message{}, err
	}
	m.ID = res.InsertedID.(primitive.ObjectID)
	return m, nil
}

func (s *MongoStore) ListConversation(ctx context.Context, a, b users.User) ([]Message, error) {
	cur, err := s.col.Find(ctx,
		bson.M{"pair": PairKey(a.ID, b.ID)},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var list []Message
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}
