// Package client is the chat-session side of the messaging slice: it merges
// fetched conversation history with live pushes into one ordered,
// de-duplicated view per conversation.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sociallyhq/socially/backend/internal/chat"
	"github.com/sociallyhq/socially/backend/internal/messages"
)

// Session holds one identity's connection to the server: the HTTP surface
// for durable reads/writes plus the push channel for live delivery. The push
// channel carries every message addressed to the identity, so the session
// routes each event to the open conversation or an unread counter.
type Session struct {
	baseURL string
	token   string
	httpc   *http.Client
	conn    *websocket.Conn

	mu     sync.Mutex
	peer   string
	msgs   []messages.Message
	seen   map[primitive.ObjectID]bool
	unread map[string]int
}

// Dial opens the push channel and returns a session ready for Listen.
func Dial(ctx context.Context, baseURL, token string) (*Session, error) {
	wsURL, err := pushURL(baseURL, token)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial push channel: %w", err)
	}
	s := newSession(baseURL, token)
	s.conn = conn
	return s, nil
}

func newSession(baseURL, token string) *Session {
	return &Session{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpc:   http.DefaultClient,
		seen:    make(map[primitive.ObjectID]bool),
		unread:  make(map[string]int),
	}
}

func pushURL(baseURL, token string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	u.RawQuery = "token=" + url.QueryEscape(token)
	return u.String(), nil
}

// Listen consumes push events until the connection drops or ctx is
// cancelled. Run it in its own goroutine.
func (s *Session) Listen(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			return err
		}
		var evt chat.Event
		if err := json.Unmarshal(payload, &evt); err != nil {
			continue
		}
		s.handleEvent(evt)
	}
}

// handleEvent routes one push. Messages for the open conversation append at
// the tail (no re-sort — matches the rendered UX) unless the fetch or a send
// echo already merged them; anything else bumps the sender's unread count.
func (s *Session) handleEvent(evt chat.Event) {
	if evt.Type != chat.EventNewMessage {
		return
	}
	var m messages.Message
	if err := json.Unmarshal(evt.Message, &m); err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seen[m.ID] {
		return
	}
	if s.peer != "" && evt.From == s.peer {
		s.seen[m.ID] = true
		s.msgs = append(s.msgs, m)
		return
	}
	s.unread[evt.From]++
}

// OpenConversation fetches the full history for peer and makes it the
// displayed conversation. Pushes arriving afterwards merge into it.
func (s *Session) OpenConversation(ctx context.Context, peer string) ([]messages.Message, error) {
	var history []messages.Message
	if err := s.get(ctx, "/api/conversation/"+url.PathEscape(peer), &history); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.peer = peer
	s.msgs = history
	s.seen = make(map[primitive.ObjectID]bool, len(history))
	for _, m := range history {
		s.seen[m.ID] = true
	}
	delete(s.unread, peer)

	return append([]messages.Message(nil), s.msgs...), nil
}

// CloseConversation stops routing pushes into the displayed list.
func (s *Session) CloseConversation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peer = ""
	s.msgs = nil
	s.seen = make(map[primitive.ObjectID]bool)
}

// Send persists the message over HTTP — the only durability path — and
// merges the committed echo into the open conversation. It also emits the
// sendMessage hint over the push channel for the peer's live view.
func (s *Session) Send(ctx context.Context, peer, text string, attachments []messages.Media) (messages.Message, error) {
	body, err := json.Marshal(map[string]any{
		"text":        text,
		"attachments": attachments,
	})
	if err != nil {
		return messages.Message{}, err
	}

	var m messages.Message
	if err := s.post(ctx, "/api/conversation/"+url.PathEscape(peer), body, &m); err != nil {
		return messages.Message{}, err
	}

	s.mu.Lock()
	if s.peer == peer && !s.seen[m.ID] {
		s.seen[m.ID] = true
		s.msgs = append(s.msgs, m)
	}
	s.mu.Unlock()

	if s.conn != nil {
		raw, err := json.Marshal(m)
		if err == nil {
			hint := chat.Event{Type: chat.EventSendMessage, To: peer, Message: raw}
			if payload, err := json.Marshal(hint); err == nil {
				_ = s.conn.WriteMessage(websocket.TextMessage, payload)
			}
		}
	}

	return m, nil
}

// Messages returns a copy of the open conversation in display order.
func (s *Session) Messages() []messages.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]messages.Message(nil), s.msgs...)
}

// Unread reports pushes received for a conversation that is not open.
func (s *Session) Unread(peer string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread[peer]
}

func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

type apiError struct {
	Status  int
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (s *Session) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return err
	}
	return s.do(req, http.StatusOK, out)
}

func (s *Session) post(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, http.StatusCreated, out)
}

func (s *Session) do(req *http.Request, wantStatus int, out any) error {
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
