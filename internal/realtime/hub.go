package realtime

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub tracks live connections and their employee rooms. Push events are
// scoped per room so one employee's console sessions never see another's.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool // employee id -> members
	stopped bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		rooms:   make(map[string]map[*Client]bool),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		close(c.send)
		return
	}
	h.clients[c] = true
	zap.L().Debug("websocket client registered", zap.String("client_id", c.id))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	h.leaveRoomLocked(c)
	close(c.send)
	zap.L().Debug("websocket client unregistered", zap.String("client_id", c.id))
}

// joinRoom moves the client into the employee's room. Joining again after a
// reconnect is the normal path; membership is never carried across
// connections.
func (h *Hub) joinRoom(c *Client, employeeID string) {
	if employeeID == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return
	}
	h.leaveRoomLocked(c)
	c.employeeID = employeeID
	if h.rooms[employeeID] == nil {
		h.rooms[employeeID] = make(map[*Client]bool)
	}
	h.rooms[employeeID][c] = true

	zap.L().Info("client joined employee room",
		zap.String("client_id", c.id),
		zap.String("employee_id", employeeID),
	)
}

func (h *Hub) leaveRoomLocked(c *Client) {
	if c.employeeID == "" {
		return
	}
	if members, ok := h.rooms[c.employeeID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, c.employeeID)
		}
	}
	c.employeeID = ""
}

// SendToEmployee pushes an event to every connection in the employee's
// room. Slow consumers are dropped rather than blocking the hub.
func (h *Hub) SendToEmployee(employeeID string, msg *Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[employeeID] {
		select {
		case c.send <- msg:
		default:
			zap.L().Warn("dropping message, client send buffer full",
				zap.String("client_id", c.id),
				zap.String("employee_id", employeeID),
			)
		}
	}
}

// RoomSize reports how many connections an employee currently has.
func (h *Hub) RoomSize(employeeID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[employeeID])
}

// Stop closes every connection and rejects further registrations.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return
	}
	h.stopped = true

	for c := range h.clients {
		h.leaveRoomLocked(c)
		close(c.send)
		if c.conn != nil {
			c.conn.Close()
		}
		delete(h.clients, c)
	}
	zap.L().Info("websocket hub stopped")
}
