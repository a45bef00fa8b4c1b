// Package registry tracks connected clients and their per-client state:
// the signaling send path, the rolling latency estimator, and the data
// channel lifecycle state surfaced in telemetry.
package registry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jcmp-relay/server/latency"
)

// Sender delivers a JSON-encodable value to a client over its signaling
// connection. Implemented by the signaling package's per-connection type.
type Sender interface {
	Send(v interface{}) error
}

// Client is the server's record of a connected browser/controller. It is
// created when a signaling connection is accepted and destroyed on
// disconnect; destruction cascades to closing any associated peer
// connection, handled by the caller that owns both the registry and the
// negotiator.
type Client struct {
	ID        int
	Signaling Sender
	Estimator *latency.Estimator

	mu          sync.Mutex
	dcState     string
	lastSeen    time.Time
	hasLastSeen bool
}

// SetDataChannelState records the data channel's lifecycle state
// ("unbound", "connecting", "open", "closed") for telemetry reporting.
func (c *Client) SetDataChannelState(state string) {
	c.mu.Lock()
	c.dcState = state
	c.mu.Unlock()
}

// DataChannelState returns the last recorded data channel state, or
// "unbound" if none has been set yet.
func (c *Client) DataChannelState() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dcState == "" {
		return "unbound"
	}
	return c.dcState
}

// UpdateLastSeen records the time of the client's most recent performance
// lane packet.
func (c *Client) UpdateLastSeen(t time.Time) {
	c.mu.Lock()
	c.lastSeen = t
	c.hasLastSeen = true
	c.mu.Unlock()
}

// LastSeen returns the last recorded performance packet time, and whether
// any packet has been seen at all.
func (c *Client) LastSeen() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen, c.hasLastSeen
}

// Registry is the set of currently connected clients, keyed by a
// monotonically increasing ID allocated at connect time.
type Registry struct {
	mu      sync.Mutex
	clients map[int]*Client
	nextID  atomic.Uint64
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{clients: make(map[int]*Client)}
}

// NewClient allocates the next client ID, registers a Client record bound
// to sender, and returns it.
func (r *Registry) NewClient(sender Sender) *Client {
	id := int(r.nextID.Add(1))
	c := &Client{ID: id, Signaling: sender, Estimator: latency.NewEstimator()}

	r.mu.Lock()
	r.clients[id] = c
	r.mu.Unlock()

	return c
}

// Get looks up a client by ID.
func (r *Registry) Get(id int) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	return c, ok
}

// Remove deletes a client record and returns it, if present.
func (r *Registry) Remove(id int) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if ok {
		delete(r.clients, id)
	}
	return c, ok
}

// Snapshot returns the currently connected clients in no particular order.
func (r *Registry) Snapshot() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

// Len returns the number of currently connected clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Reset clears all client state and resets ID allocation. Exposed for test
// harnesses that need a clean registry between scenarios; production code
// never calls it.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients = make(map[int]*Client)
	r.nextID.Store(0)
}
