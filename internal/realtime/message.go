package realtime

import "time"

// Event names shared with the presence agent.
const (
	EventJoinEmployeeRoom = "join-employee-room"
	EventHistoryChanged   = "history-changed"
	EventPresenceUpdated  = "presence-updated"
)

// Message is the JSON frame exchanged over the websocket.
type Message struct {
	Event      string      `json:"event"`
	EmployeeID string      `json:"employee_id,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Timestamp  time.Time   `json:"timestamp,omitempty"`
}
