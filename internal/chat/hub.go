package chat

import (
	"encoding/json"
	"log"

	"github.com/sociallyhq/socially/backend/internal/messages"
)

type outbound struct {
	identity string
	payload  []byte
}

// Hub owns connection membership and the best-effort push path. Membership
// changes and pushes all flow through the run loop: client send channels are
// only ever written and closed on that goroutine, so a displaced handle can
// never be closed while a push to it is in flight.
type Hub struct {
	presence *Presence

	register   chan *Client
	unregister chan *Client
	pushes     chan outbound
}

func NewHub(presence *Presence) *Hub {
	return &Hub{
		presence:   presence,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		pushes:     make(chan outbound, 256),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			if old := h.presence.Register(client.Identity, client); old != nil {
				// Last connection wins; shut the displaced one down.
				close(old.Send)
			}
		case client := <-h.unregister:
			if h.presence.Unregister(client.Identity, client) {
				close(client.Send)
			}
		case p := <-h.pushes:
			h.deliver(p.identity, p.payload)
		}
	}
}

// Notify pushes a freshly persisted message to its recipient if they are
// online. At-most-once: an offline recipient, a full queue or a broken
// handle all just drop the push — the store is the durability guarantee and
// the recipient sees the message on their next fetch.
func (h *Hub) Notify(m messages.Message) {
	body, err := json.Marshal(m)
	if err != nil {
		log.Printf("[hub] failed to marshal message %s: %v", m.ID.Hex(), err)
		return
	}
	payload, err := json.Marshal(Event{
		Type:    EventNewMessage,
		From:    m.SenderExternalID,
		To:      m.RecipientExternalID,
		Message: body,
	})
	if err != nil {
		log.Printf("[hub] failed to marshal wire event: %v", err)
		return
	}
	h.enqueue(m.RecipientExternalID, payload)
}

// Forward relays a client-sent event to another identity without touching
// the store. Used for the sendMessage broadcast hint.
func (h *Hub) Forward(to string, payload []byte) {
	h.enqueue(to, payload)
}

// enqueue hands a push to the run loop without blocking the caller.
func (h *Hub) enqueue(identity string, payload []byte) {
	select {
	case h.pushes <- outbound{identity: identity, payload: payload}:
	default:
		log.Printf("[hub] dropped push for %s: queue full", identity)
	}
}

// deliver runs on the loop goroutine only.
func (h *Hub) deliver(identity string, payload []byte) {
	client, ok := h.presence.Lookup(identity)
	if !ok {
		return
	}
	select {
	case client.Send <- payload:
	default:
		// Slow or wedged client; the ping deadline will reap it.
		log.Printf("[hub] dropped push for %s: send buffer full", identity)
	}
}
