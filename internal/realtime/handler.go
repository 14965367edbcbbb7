package realtime

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The console is served from configurable origins; origin policy
		// is enforced by the reverse proxy in front of this service.
		return true
	},
}

// Handler upgrades HTTP requests to websocket connections and attaches
// them to the hub. Room membership is established afterwards by the
// client's join-employee-room message.
type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

func (h *Handler) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		id:   uuid.New().String(),
		hub:  h.hub,
		conn: conn,
		send: make(chan *Message, sendBuffer),
	}

	h.hub.register(client)

	go client.writePump()
	go client.readPump()
}

const (
	defaultPollWait = 25 * time.Second
	maxPollWait     = 30 * time.Second
)

// Poll is the long-polling companion to Serve, used by consoles whose
// websocket upgrade was refused. Each request registers an ephemeral
// room member for the employee, parks until a message arrives or the
// wait expires, and returns the batch as a JSON array. Membership lives
// only for the duration of the request.
func (h *Handler) Poll(c *gin.Context) {
	employeeID := c.Query("employee_id")
	if employeeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "employee_id is required"})
		return
	}

	wait := defaultPollWait
	if raw := c.Query("wait"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "wait must be a non-negative number of seconds"})
			return
		}
		wait = time.Duration(secs) * time.Second
		if wait > maxPollWait {
			wait = maxPollWait
		}
	}

	client := &Client{
		id:   uuid.New().String(),
		hub:  h.hub,
		send: make(chan *Message, sendBuffer),
	}
	h.hub.register(client)
	defer h.hub.unregister(client)
	h.hub.joinRoom(client, employeeID)

	batch := make([]*Message, 0)
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case msg, ok := <-client.send:
			if ok && msg != nil {
				batch = append(batch, msg)
			}
		case <-timer.C:
		case <-c.Request.Context().Done():
		}
	}

	// Drain whatever else queued up while the first message was in flight.
drain:
	for {
		select {
		case msg, ok := <-client.send:
			if !ok || msg == nil {
				break drain
			}
			batch = append(batch, msg)
		default:
			break drain
		}
	}

	c.JSON(http.StatusOK, batch)
}

// PostEvent accepts outbound events from polling consoles. Room
// membership is per poll request, so join-employee-room needs no state
// here; other events are logged and dropped, matching what the socket
// path does with unknown frames.
func (h *Handler) PostEvent(c *gin.Context) {
	var msg Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
		return
	}

	if msg.Event != EventJoinEmployeeRoom {
		zap.L().Debug("poll event received",
			zap.String("event", msg.Event),
			zap.String("employee_id", msg.EmployeeID),
		)
	}
	c.Status(http.StatusNoContent)
}

func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	r.GET("/realtime", h.Serve)
	r.GET("/realtime/poll", h.Poll)
	r.POST("/realtime/poll", h.PostEvent)
}
