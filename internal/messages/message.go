package messages

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrEmptyMessage rejects an append that carries neither text nor media.
var ErrEmptyMessage = errors.New("message needs text or at least one attachment")

const (
	KindImage = "image"
	KindVideo = "video"
)

// Media is one attachment on a message. Kind is image or video; URL points
// at the media store's public location.
type Media struct {
	URL  string `bson:"url" json:"url" binding:"required"`
	Kind string `bson:"type" json:"type" binding:"required,oneof=image video"`
}

// Message is one direct message. Immutable once created: there is no edit or
// delete path anywhere in the system. The external IDs are denormalized from
// the user records so the push path can route without another lookup.
type Message struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	SenderID            primitive.ObjectID `bson:"senderId" json:"senderId"`
	RecipientID         primitive.ObjectID `bson:"receiverId" json:"receiverId"`
	SenderExternalID    string             `bson:"senderExternalId" json:"senderExternalId"`
	RecipientExternalID string             `bson:"receiverExternalId" json:"receiverExternalId"`
	Pair                string             `bson:"pair" json:"-"`
	Text                string             `bson:"text,omitempty" json:"text,omitempty"`
	Media               []Media            `bson:"media" json:"media"`
	CreatedAt           time.Time          `bson:"createdAt" json:"createdAt"`
}

// PairKey names a conversation by its unordered participant pair. Sorting
// the IDs before joining makes the A,B and B,A lookups hit the same key.
func PairKey(a, b primitive.ObjectID) string {
	x, y := a.Hex(), b.Hex()
	if x > y {
		x, y = y, x
	}
	return x + ":" + y
}

// ValidateContent enforces the at-least-one-of invariant.
func ValidateContent(text string, media []Media) error {
	if strings.TrimSpace(text) == "" && len(media) == 0 {
		return ErrEmptyMessage
	}
	return nil
}
