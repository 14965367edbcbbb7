package realtime

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 64
)

// Client is one live websocket connection. A client belongs to at most one
// employee room, joined via the join-employee-room message.
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan *Message

	employeeID string
}

// readPump reads frames until the connection drops, routing protocol
// messages to the hub. Runs as the connection's single reader.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Debug("websocket read error", zap.String("client_id", c.id), zap.Error(err))
			}
			return
		}

		switch msg.Event {
		case EventJoinEmployeeRoom:
			c.hub.joinRoom(c, msg.EmployeeID)
		default:
			zap.L().Debug("unknown websocket event",
				zap.String("client_id", c.id),
				zap.String("event", msg.Event),
			)
		}
	}
}

// writePump drains the send channel and keeps the connection alive with
// pings. Runs as the connection's single writer.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				zap.L().Debug("websocket write error", zap.String("client_id", c.id), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
