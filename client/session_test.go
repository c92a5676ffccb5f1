package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sociallyhq/socially/backend/internal/chat"
	"github.com/sociallyhq/socially/backend/internal/messages"
)

func pushEvent(t *testing.T, m messages.Message) chat.Event {
	t.Helper()
	body, err := json.Marshal(m)
	require.NoError(t, err)
	return chat.Event{
		Type:    chat.EventNewMessage,
		From:    m.SenderExternalID,
		To:      m.RecipientExternalID,
		Message: body,
	}
}

func msgFrom(from, to, text string, at time.Time) messages.Message {
	return messages.Message{
		ID:                  primitive.NewObjectID(),
		SenderExternalID:    from,
		RecipientExternalID: to,
		Text:                text,
		CreatedAt:           at,
	}
}

func TestPushForOpenConversationAppendsOnce(t *testing.T) {
	s := newSession("http://example.test", "tok")
	s.peer = "bob"

	m := msgFrom("bob", "alice", "hi", time.Now())
	evt := pushEvent(t, m)

	s.handleEvent(evt)
	s.handleEvent(evt) // redelivery must not duplicate

	got := s.Messages()
	require.Len(t, got, 1)
	assert.Equal(t, "hi", got[0].Text)
	assert.Zero(t, s.Unread("bob"))
}

func TestPushForOtherConversationCountsUnread(t *testing.T) {
	s := newSession("http://example.test", "tok")
	s.peer = "bob"

	s.handleEvent(pushEvent(t, msgFrom("carol", "alice", "psst", time.Now())))

	assert.Empty(t, s.Messages())
	assert.Equal(t, 1, s.Unread("carol"))
}

func TestPushAppendsAtTailWithoutResort(t *testing.T) {
	s := newSession("http://example.test", "tok")
	s.peer = "bob"

	base := time.Now()
	early := msgFrom("bob", "alice", "early", base)
	late := msgFrom("bob", "alice", "late", base.Add(2*time.Second))
	s.msgs = []messages.Message{early, late}
	s.seen[early.ID] = true
	s.seen[late.ID] = true

	// A push whose commit time falls between the two displayed messages
	// still lands at the tail. Known, accepted ordering inversion.
	between := msgFrom("bob", "alice", "between", base.Add(time.Second))
	s.handleEvent(pushEvent(t, between))

	got := s.Messages()
	require.Len(t, got, 3)
	assert.Equal(t, "between", got[2].Text)
}

func conversationStub(t *testing.T, history []messages.Message, echo *messages.Message) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/conversation/bob", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "missing bearer token"})
			return
		}
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(history)
		case http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(echo)
		}
	})
	return httptest.NewServer(mux)
}

func TestOpenConversationThenPushDedups(t *testing.T) {
	fetched := msgFrom("bob", "alice", "from history", time.Now())
	srv := conversationStub(t, []messages.Message{fetched}, nil)
	defer srv.Close()

	s := newSession(srv.URL, "tok")
	history, err := s.OpenConversation(context.Background(), "bob")
	require.NoError(t, err)
	require.Len(t, history, 1)

	// The same message arriving over push must not duplicate.
	s.handleEvent(pushEvent(t, fetched))
	assert.Len(t, s.Messages(), 1)

	// A genuinely new push appends.
	s.handleEvent(pushEvent(t, msgFrom("bob", "alice", "fresh", time.Now())))
	assert.Len(t, s.Messages(), 2)
}

func TestSendMergesEchoOnce(t *testing.T) {
	echo := msgFrom("alice", "bob", "outbound", time.Now())
	srv := conversationStub(t, nil, &echo)
	defer srv.Close()

	s := newSession(srv.URL, "tok")
	_, err := s.OpenConversation(context.Background(), "bob")
	require.NoError(t, err)

	sent, err := s.Send(context.Background(), "bob", "outbound", nil)
	require.NoError(t, err)
	assert.Equal(t, echo.ID, sent.ID)
	require.Len(t, s.Messages(), 1)

	// Server-side push of the same committed message must not duplicate.
	s.handleEvent(pushEvent(t, echo))
	assert.Len(t, s.Messages(), 1)
}

func TestServerErrorSurfacesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "receiver not found"})
	}))
	defer srv.Close()

	s := newSession(srv.URL, "tok")
	_, err := s.OpenConversation(context.Background(), "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "receiver not found")
	assert.Contains(t, err.Error(), "404")
}

func TestCloseConversationStopsRouting(t *testing.T) {
	s := newSession("http://example.test", "tok")
	s.peer = "bob"
	s.CloseConversation()

	s.handleEvent(pushEvent(t, msgFrom("bob", "alice", "hi", time.Now())))

	assert.Empty(t, s.Messages())
	assert.Equal(t, 1, s.Unread("bob"))
}
