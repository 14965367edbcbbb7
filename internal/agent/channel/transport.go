package channel

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"go-presence/internal/realtime"
)

// errServerClosed marks a disconnect initiated by the server (a close
// frame) as opposed to network loss. The channel reconnects immediately
// on this instead of waiting out the backoff.
var errServerClosed = errors.New("server closed the connection")

// Conn is one live connection produced by a Transport.
type Conn interface {
	WriteJSON(v interface{}) error
	// ReadMessage blocks until the next frame or until the connection
	// drops. A server-initiated close is reported as errServerClosed.
	ReadMessage() (*realtime.Message, error)
	Close() error
}

// Transport dials the realtime endpoint. It exists as an interface so the
// reconnect state machine can be driven deterministically in tests.
type Transport interface {
	Connect(ctx context.Context) (Conn, error)
}

// wsTransport is the primary transport over gorilla/websocket. It only
// speaks the upgraded protocol; when the upgrade is refused the caller
// decides whether to fall back to polling. The handshake timeout doubles
// as the connect timeout.
type wsTransport struct {
	url    string
	dialer *websocket.Dialer
}

func newWSTransport(url string, connectTimeout time.Duration) Transport {
	return &wsTransport{
		url: url,
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: connectTimeout,
		},
	}
}

func (t *wsTransport) Connect(ctx context.Context) (Conn, error) {
	ws, _, err := t.dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return nil, err
	}
	return &wsConn{ws: ws}, nil
}

type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) WriteJSON(v interface{}) error {
	return c.ws.WriteJSON(v)
}

func (c *wsConn) ReadMessage() (*realtime.Message, error) {
	var msg realtime.Message
	if err := c.ws.ReadJSON(&msg); err != nil {
		var closeErr *websocket.CloseError
		if errors.As(err, &closeErr) {
			return nil, errServerClosed
		}
		return nil, err
	}
	return &msg, nil
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}
