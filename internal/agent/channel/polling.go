package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"go-presence/internal/realtime"
)

// fallbackTransport tries the websocket upgrade first and drops to long
// polling when the upgrade is refused. Both transports speak the same
// Conn contract, so the reconnect loop never knows which one it got.
type fallbackTransport struct {
	upgrade Transport
	poll    Transport
	logger  *zap.Logger
}

func (t *fallbackTransport) Connect(ctx context.Context) (Conn, error) {
	conn, err := t.upgrade.Connect(ctx)
	if err == nil {
		return conn, nil
	}
	t.logger.Warn("websocket upgrade failed, falling back to polling", zap.Error(err))
	return t.poll.Connect(ctx)
}

// pollWait is how long one long-poll request parks on the server before
// returning an empty batch. Kept under common proxy idle timeouts.
const pollWait = 25 * time.Second

// pollTransport is the degraded transport used when the websocket upgrade
// is refused, for example by a proxy that strips the Upgrade header. It
// long-polls the companion HTTP endpoint and posts outbound events to the
// same URL.
type pollTransport struct {
	endpoint string
	identity IdentitySource
	client   *http.Client
}

func newPollTransport(endpoint string, connectTimeout time.Duration, identity IdentitySource) Transport {
	return &pollTransport{
		endpoint: endpoint,
		identity: identity,
		// The client timeout must outlast a full long-poll cycle.
		client: &http.Client{Timeout: connectTimeout + pollWait},
	}
}

func (t *pollTransport) Connect(ctx context.Context) (Conn, error) {
	u, err := url.Parse(t.endpoint)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	if id := t.identity.EmployeeID(); id != "" {
		q.Set("employee_id", id)
	}
	u.RawQuery = q.Encode()

	connCtx, cancel := context.WithCancel(context.Background())
	c := &pollConn{
		url:    u.String(),
		client: t.client,
		ctx:    connCtx,
		cancel: cancel,
	}

	// One zero-wait poll up front verifies the endpoint is reachable,
	// which is the polling equivalent of a handshake.
	if _, err := c.poll(ctx, 0); err != nil {
		cancel()
		return nil, err
	}
	return c, nil
}

type pollConn struct {
	url    string
	client *http.Client
	ctx    context.Context
	cancel context.CancelFunc
	buf    []*realtime.Message
}

func (c *pollConn) WriteJSON(v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(c.ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("poll endpoint rejected event: status %d", resp.StatusCode)
	}
	return nil
}

// ReadMessage drains the buffered batch first, then long-polls for the
// next one. Empty batches simply poll again.
func (c *pollConn) ReadMessage() (*realtime.Message, error) {
	for {
		if len(c.buf) > 0 {
			msg := c.buf[0]
			c.buf = c.buf[1:]
			return msg, nil
		}
		if err := c.ctx.Err(); err != nil {
			return nil, err
		}
		batch, err := c.poll(c.ctx, pollWait)
		if err != nil {
			return nil, err
		}
		c.buf = batch
	}
}

func (c *pollConn) poll(ctx context.Context, wait time.Duration) ([]*realtime.Message, error) {
	u := c.url + "&wait=" + fmt.Sprintf("%d", int(wait.Seconds()))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("poll failed: status %d", resp.StatusCode)
	}

	var batch []*realtime.Message
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, err
	}
	return batch, nil
}

func (c *pollConn) Close() error {
	c.cancel()
	return nil
}
