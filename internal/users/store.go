package users

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound means an identity does not resolve to a known user record.
var ErrNotFound = errors.New("user not found")

// User is the local projection of an externally owned identity. The identity
// provider is the source of truth; this record only carries what the app
// needs to display and route.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	ExternalID   string             `bson:"externalId" json:"externalId"`
	Email        string             `bson:"email,omitempty" json:"email,omitempty"`
	FullName     string             `bson:"fullName,omitempty" json:"fullName,omitempty"`
	Username     string             `bson:"username,omitempty" json:"username,omitempty"`
	ProfileImage string             `bson:"profileImage,omitempty" json:"profileImage,omitempty"`
	Bio          string             `bson:"bio,omitempty" json:"bio,omitempty"`
	CoverImage   string             `bson:"coverImage,omitempty" json:"coverImage,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Store resolves identities to user records and keeps them in sync with the
// identity provider's webhook events.
type Store interface {
	ResolveExternal(ctx context.Context, externalID string) (User, error)
	ListOthers(ctx context.Context, selfID primitive.ObjectID) ([]User, error)
	Upsert(ctx context.Context, u User) (User, error)
	DeleteExternal(ctx context.Context, externalID string) error
}

type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("users")}
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "externalId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *MongoStore) ResolveExternal(ctx context.Context, externalID string) (User, error) {
	var u User
	err := s.col.FindOne(ctx, bson.M{"externalId": externalID}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *MongoStore) ListOthers(ctx context.Context, selfID primitive.ObjectID) ([]User, error) {
	cur, err := s.col.Find(ctx,
		bson.M{"_id": bson.M{"$ne": selfID}},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var list []User
	if err := cur.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *MongoStore) Upsert(ctx context.Context, u User) (User, error) {
	now := time.Now().UTC()
	set := bson.M{"updatedAt": now}
	for k, v := range map[string]string{
		"email":        u.Email,
		"fullName":     u.FullName,
		"username":     u.Username,
		"profileImage": u.ProfileImage,
	} {
		if v != "" {
			set[k] = v
		}
	}

	res := s.col.FindOneAndUpdate(ctx,
		bson.M{"externalId": u.ExternalID},
		bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"externalId": u.ExternalID, "createdAt": now},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)

	var out User
	if err := res.Decode(&out); err != nil {
		return User{}, err
	}
	return out, nil
}

func (s *MongoStore) DeleteExternal(ctx context.Context, externalID string) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"externalId": externalID})
	return err
}
