package chat

import "sync"

// Presence tracks which identities currently hold an open push channel.
// One handle per identity; a second connection for the same identity
// displaces the first (last connection wins). The map is process-local and
// empties on restart — reconnecting clients re-register.
type Presence struct {
	mu    sync.RWMutex
	conns map[string]*Client
}

func NewPresence() *Presence {
	return &Presence{conns: make(map[string]*Client)}
}

// Register stores the handle for identity and returns the handle it
// displaced, if any.
func (p *Presence) Register(identity string, c *Client) *Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	old := p.conns[identity]
	p.conns[identity] = c
	if old == c {
		return nil
	}
	return old
}

// Unregister removes the entry only when the stored handle is c, so a stale
// unregister from a displaced connection cannot evict its replacement.
func (p *Presence) Unregister(identity string, c *Client) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conns[identity] != c {
		return false
	}
	delete(p.conns, identity)
	return true
}

func (p *Presence) Lookup(identity string) (*Client, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.conns[identity]
	return c, ok
}
