package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tok, err := NewToken("secret", "user_2abcd1234", 60)
	require.NoError(t, err)

	got, err := ParseToken("secret", tok)
	require.NoError(t, err)
	assert.Equal(t, "user_2abcd1234", got)
}

func TestParseTokenWrongSecret(t *testing.T) {
	tok, err := NewToken("secret", "user_2abcd1234", 60)
	require.NoError(t, err)

	_, err = ParseToken("other", tok)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestParseTokenExpired(t *testing.T) {
	tok, err := NewToken("secret", "user_2abcd1234", -1)
	require.NoError(t, err)

	_, err = ParseToken("secret", tok)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestParseTokenGarbage(t *testing.T) {
	_, err := ParseToken("secret", "not-a-token")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
