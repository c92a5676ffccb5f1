package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sociallyhq/socially/backend/internal/identity"
)

const testJWTSecret = "users-test-secret"

func userRouter(store Store) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	authed := r.Group("/api", identity.Middleware(testJWTSecret))
	Register(authed, store)
	return r
}

func authedGet(t *testing.T, r *gin.Engine, path, externalID string) *httptest.ResponseRecorder {
	t.Helper()
	tok, err := identity.NewToken(testJWTSecret, externalID, 60)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetMe(t *testing.T) {
	store := newMemUsers()
	_, err := store.Upsert(context.Background(), User{ExternalID: "user_me", FullName: "Me Myself"})
	require.NoError(t, err)
	r := userRouter(store)

	w := authedGet(t, r, "/api/users/me", "user_me")
	require.Equal(t, http.StatusOK, w.Code)

	var u User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &u))
	assert.Equal(t, "Me Myself", u.FullName)
}

func TestGetMeUnknownIdentity(t *testing.T) {
	r := userRouter(newMemUsers())

	w := authedGet(t, r, "/api/users/me", "user_ghost")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListChatUsersExcludesSelf(t *testing.T) {
	store := newMemUsers()
	for _, id := range []string{"user_a", "user_b", "user_c"} {
		_, err := store.Upsert(context.Background(), User{ExternalID: id})
		require.NoError(t, err)
	}
	r := userRouter(store)

	w := authedGet(t, r, "/api/messages/users", "user_a")
	require.Equal(t, http.StatusOK, w.Code)

	var list []User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	for _, u := range list {
		assert.NotEqual(t, "user_a", u.ExternalID)
	}
}
