package channel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"go-presence/internal/realtime"
)

// State is the connection-health read model surfaced to the console.
type State struct {
	IsConnected bool
	LastError   string
}

// Config carries the endpoint address and the retry policy. Zero values
// fall back to the defaults the server operations team expects.
type Config struct {
	EndpointURL string
	// PollEndpointURL, when set, enables the long-polling fallback used
	// if the websocket upgrade is refused.
	PollEndpointURL string
	ConnectTimeout  time.Duration
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 20 * time.Second
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 10
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = time.Second
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = 5 * time.Second
	}
	return c
}

// IdentitySource supplies the authenticated employee id, read once per
// connect attempt. An empty id means no identity is available yet.
type IdentitySource interface {
	EmployeeID() string
}

// Handler consumes one inbound event.
type Handler func(msg *realtime.Message)

// Channel keeps one logical connection to the realtime endpoint alive for
// the whole session, reconnecting after transient failures. All methods
// are safe for concurrent use.
type Channel struct {
	cfg      Config
	identity IdentitySource
	clock    clock.Clock
	logger   *zap.Logger

	// newTransport is swapped out in tests.
	newTransport func() Transport

	mu        sync.Mutex
	transport Transport
	conn      Conn
	state     State
	handlers  map[string][]Handler
	watchers  []func(State)
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
}

func New(cfg Config, identity IdentitySource) *Channel {
	cfg = cfg.withDefaults()
	c := &Channel{
		cfg:      cfg,
		identity: identity,
		clock:    clock.New(),
		logger:   zap.L().Named("realtime"),
		handlers: make(map[string][]Handler),
	}
	c.newTransport = func() Transport {
		ws := newWSTransport(cfg.EndpointURL, cfg.ConnectTimeout)
		if cfg.PollEndpointURL == "" {
			return ws
		}
		return &fallbackTransport{
			upgrade: ws,
			poll:    newPollTransport(cfg.PollEndpointURL, cfg.ConnectTimeout, identity),
			logger:  c.logger,
		}
	}
	return c
}

// Initialize establishes the transport and starts the connect loop. A
// missing endpoint address is a soft failure: the channel records the
// error and stays permanently disconnected without retrying.
func (c *Channel) Initialize() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.EndpointURL == "" {
		c.state = State{LastError: "realtime endpoint not configured"}
		c.notifyLocked()
		c.logger.Warn("realtime endpoint not configured, channel disabled")
		return
	}
	if c.running {
		return
	}

	c.transport = c.newTransport()
	c.startLocked(0)
}

// Reconnect resumes connecting after the retry budget was exhausted. If
// the channel was never initialized (or fully torn down) it re-runs
// Initialize instead.
func (c *Channel) Reconnect() {
	c.mu.Lock()
	if c.running || c.state.IsConnected {
		c.mu.Unlock()
		return
	}
	if c.transport == nil {
		c.mu.Unlock()
		c.Initialize()
		return
	}
	c.startLocked(0)
	c.mu.Unlock()
}

func (c *Channel) startLocked(initialDelay time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.running = true
	go c.run(ctx, c.transport, initialDelay, done)
}

// On registers a handler for one inbound event name.
func (c *Channel) On(event string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = append(c.handlers[event], h)
}

// OnStateChange registers a watcher invoked after every health change.
func (c *Channel) OnStateChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watchers = append(c.watchers, fn)
}

// State returns a snapshot of the connection health.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Emit sends a fire-and-forget event. When disconnected it drops the
// event with a warning; callers must not assume delivery.
func (c *Channel) Emit(event string, payload interface{}) {
	c.mu.Lock()
	conn := c.conn
	connected := c.state.IsConnected
	c.mu.Unlock()

	if !connected || conn == nil {
		c.logger.Warn("emit dropped, channel not connected", zap.String("event", event))
		return
	}

	msg := realtime.Message{Event: event, Data: payload, Timestamp: time.Now().UTC()}
	if err := conn.WriteJSON(&msg); err != nil {
		c.logger.Warn("emit failed", zap.String("event", event), zap.Error(err))
	}
}

// Close tears the channel down: stops the connect loop, closes the
// connection, drops all handlers and state watchers and clears the
// transport handle. Required before re-initializing to avoid duplicate
// listeners.
func (c *Channel) Close() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	conn := c.conn
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	if done != nil {
		<-done
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = nil
	c.transport = nil
	c.running = false
	c.handlers = make(map[string][]Handler)
	c.state = State{}
	c.notifyLocked()
	c.watchers = nil
}

// run is the reconnect state machine. attempts counts consecutive failed
// connects; it resets on success and trips the terminal condition at the
// configured budget.
func (c *Channel) run(ctx context.Context, transport Transport, delay time.Duration, done chan struct{}) {
	defer close(done)

	attempts := 0
	for {
		if delay > 0 {
			timer := c.clock.Timer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return
			}
		}
		if ctx.Err() != nil {
			return
		}

		dialCtx, cancelDial := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
		conn, err := transport.Connect(dialCtx)
		cancelDial()

		if err != nil {
			attempts++
			c.setState(State{LastError: fmt.Sprintf("connect failed: %v", err)})
			c.logger.Warn("connect attempt failed",
				zap.Int("attempt", attempts),
				zap.Int("max", c.cfg.MaxAttempts),
				zap.Error(err),
			)

			if attempts >= c.cfg.MaxAttempts {
				c.setState(State{LastError: fmt.Sprintf("reconnect failed after %d attempts", attempts)})
				c.logger.Error("reconnect budget exhausted, manual reconnect required",
					zap.Int("attempts", attempts),
				)
				c.mu.Lock()
				c.running = false
				c.mu.Unlock()
				return
			}

			delay = c.backoff(attempts)
			continue
		}

		attempts = 0
		c.onConnect(conn)

		reason := c.serve(ctx, conn)
		c.onDisconnect(reason)

		if ctx.Err() != nil {
			return
		}

		if reason == errServerClosed {
			// The server kicked the session; retry at once instead of
			// waiting out the backoff.
			delay = 0
		} else {
			delay = c.cfg.InitialBackoff
		}
	}
}

// onConnect records health and re-joins the employee room. Room
// membership is not retained by the server across reconnects, so this
// runs on every successful connect.
func (c *Channel) onConnect(conn Conn) {
	c.mu.Lock()
	c.conn = conn
	c.state = State{IsConnected: true}
	c.notifyLocked()
	c.mu.Unlock()

	c.logger.Info("realtime channel connected")

	employeeID := c.identity.EmployeeID()
	if employeeID == "" {
		return
	}
	msg := realtime.Message{
		Event:      realtime.EventJoinEmployeeRoom,
		EmployeeID: employeeID,
		Timestamp:  time.Now().UTC(),
	}
	if err := conn.WriteJSON(&msg); err != nil {
		c.logger.Warn("join-employee-room failed", zap.Error(err))
	}
}

func (c *Channel) onDisconnect(reason error) {
	c.mu.Lock()
	c.conn = nil
	c.state = State{LastError: fmt.Sprintf("disconnected: %v", reason)}
	c.notifyLocked()
	c.mu.Unlock()

	c.logger.Warn("realtime channel disconnected", zap.Error(reason))
}

// serve reads inbound frames until the connection drops, dispatching each
// to the registered handlers.
func (c *Channel) serve(ctx context.Context, conn Conn) error {
	for {
		msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.mu.Lock()
		handlers := append([]Handler(nil), c.handlers[msg.Event]...)
		c.mu.Unlock()

		for _, h := range handlers {
			h(msg)
		}
	}
}

// backoff returns the wait before the next attempt: doubling from the
// initial delay, capped.
func (c *Channel) backoff(failed int) time.Duration {
	d := c.cfg.InitialBackoff
	for i := 1; i < failed; i++ {
		d *= 2
		if d >= c.cfg.MaxBackoff {
			return c.cfg.MaxBackoff
		}
	}
	if d > c.cfg.MaxBackoff {
		return c.cfg.MaxBackoff
	}
	return d
}

func (c *Channel) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.notifyLocked()
	c.mu.Unlock()
}

// notifyLocked fans the current state out to watchers. Called with the
// mutex held; watchers run on the caller's goroutine and must not call
// back into the channel.
func (c *Channel) notifyLocked() {
	s := c.state
	for _, fn := range c.watchers {
		fn(s)
	}
}
