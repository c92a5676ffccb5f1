package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestValidateContent(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		media   []Media
		wantErr bool
	}{
		{"text only", "hi", nil, false},
		{"media only", "", []Media{{URL: "http://cdn/a.jpg", Kind: KindImage}}, false},
		{"both", "hi", []Media{{URL: "http://cdn/a.mp4", Kind: KindVideo}}, false},
		{"neither", "", nil, true},
		{"whitespace text only", "   \t", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateContent(tt.text, tt.media)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrEmptyMessage)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPairKeySymmetric(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	assert.Equal(t, PairKey(a, b), PairKey(b, a))
	assert.NotEqual(t, PairKey(a, b), PairKey(a, primitive.NewObjectID()))
}
