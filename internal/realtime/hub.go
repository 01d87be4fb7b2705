package realtime

import (
	"sync"

	"github.com/huangang/ideaforge/backend/internal/access"
	"github.com/huangang/ideaforge/backend/pkg/logger"
	"github.com/huangang/ideaforge/backend/pkg/response"
)

// errNotAdmitted is returned for frames from a connection that already left its room.
var errNotAdmitted = response.NewForbidden("connection is no longer admitted to this project").
	WithReason(string(access.ReasonNotAMember))

// room holds the admitted connections of one project.
type room struct {
	projectID uint

	// seq serialises persist+broadcast so every connection sees messages in
	// the order they were stored.
	seq sync.Mutex

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// Hub manages project rooms and fan-out to their connections.
type Hub struct {
	mu    sync.Mutex
	rooms map[uint]*room
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[uint]*room)}
}

// Join registers c in the room of its project.
func (h *Hub) Join(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[c.projectID]
	if !ok {
		r = &room{projectID: c.projectID, clients: make(map[*Client]struct{})}
		h.rooms[c.projectID] = r
	}
	r.mu.Lock()
	r.clients[c] = struct{}{}
	r.mu.Unlock()
	c.room = r
}

// Leave removes c from its room. Empty rooms are dropped.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r := c.room
	if r == nil {
		return
	}
	r.mu.Lock()
	delete(r.clients, c)
	empty := len(r.clients) == 0
	r.mu.Unlock()
	if empty && h.rooms[c.projectID] == r {
		delete(h.rooms, c.projectID)
	}
}

// Publish runs persist under the sequence lock of from's room and, when it
// succeeds, broadcasts the frame it returns to every connection in the room,
// from included. persist never runs for a connection that has left the room.
func (h *Hub) Publish(from *Client, persist func() (*Frame, error)) error {
	r := from.room
	if r == nil {
		return errNotAdmitted
	}
	r.seq.Lock()
	defer r.seq.Unlock()

	if !r.admits(from) {
		return errNotAdmitted
	}
	frame, err := persist()
	if err != nil {
		return err
	}
	h.broadcast(r, frame, nil)
	return nil
}

// BroadcastOthers sends frame to every connection in from's room except from.
// Frames from a connection that has left are discarded.
func (h *Hub) BroadcastOthers(from *Client, frame *Frame) {
	r := from.room
	if r == nil || !r.admits(from) {
		return
	}
	h.broadcast(r, frame, from)
}

// admits reports whether c is still registered in r and not closed.
func (r *room) admits(c *Client) bool {
	r.mu.RLock()
	_, ok := r.clients[c]
	r.mu.RUnlock()
	return ok && !c.closed()
}

func (h *Hub) broadcast(r *room, frame *Frame, skip *Client) {
	data, err := frame.Encode()
	if err != nil {
		logger.Error().Err(err).Str("event", frame.Event).Msg("Failed to encode realtime frame")
		return
	}

	var slow []*Client
	r.mu.RLock()
	for c := range r.clients {
		if c == skip {
			continue
		}
		if !c.enqueue(data) {
			slow = append(slow, c)
		}
	}
	r.mu.RUnlock()

	// A connection that cannot keep up is dropped rather than skipped, so it
	// never observes a gap in the sequence.
	for _, c := range slow {
		logger.Warn().Str("conn_id", c.id).Uint("project_id", c.projectID).Uint("user_id", c.userID).
			Msg("Realtime send buffer full, dropping connection")
		h.Leave(c)
		c.Close()
	}
}

// RoomSize returns the number of connections admitted to projectID.
func (h *Hub) RoomSize(projectID uint) int {
	h.mu.Lock()
	r, ok := h.rooms[projectID]
	h.mu.Unlock()
	if !ok {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// ClientCount returns the number of connections across all rooms.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, r := range h.rooms {
		r.mu.RLock()
		n += len(r.clients)
		r.mu.RUnlock()
	}
	return n
}

// CloseAll disconnects every connection. Used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	var all []*Client
	for _, r := range h.rooms {
		r.mu.RLock()
		for c := range r.clients {
			all = append(all, c)
		}
		r.mu.RUnlock()
	}
	h.rooms = make(map[uint]*room)
	h.mu.Unlock()

	for _, c := range all {
		c.Close()
	}
}
