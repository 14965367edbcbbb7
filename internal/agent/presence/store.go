package presence

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"go-presence/internal/agent/api"
	"go-presence/internal/domain"
)

// State is the presence read model consumed by the console surfaces.
// IsScreenLocked derives from the activity type unless the server
// overrides it; IsTimeLimitExceeded is owned by the monitor and is only
// ever true while a limit, a start time and the lock all hold.
type State struct {
	CurrentActivity     domain.ActivityType
	ActivityStartTime   *time.Time
	IsLoading           bool
	IsScreenLocked      bool
	TimeLimitMinutes    *int
	IsTimeLimitExceeded bool
}

// Notifier receives errors from failed presence operations. The store
// never propagates them to callers; presentation only reads flags.
type Notifier interface {
	NotifyError(operation string, err error)
}

// LogNotifier is the default sink, logging through zap.
type LogNotifier struct{}

func (LogNotifier) NotifyError(operation string, err error) {
	zap.L().Named("presence").Error("operation failed",
		zap.String("operation", operation),
		zap.Error(err),
	)
}

// Store is the single source of truth for what the employee is doing
// right now. One store exists per authenticated session.
type Store struct {
	api      api.Client
	notifier Notifier
	clock    clock.Clock
	logger   *zap.Logger

	mu       sync.Mutex
	state    State
	watchers []func(State)
	monitor  *monitor

	// Request tokens order overlapping operations: a response that
	// resolves after a newer operation has already applied is discarded
	// instead of silently overwriting state.
	nextToken    uint64
	appliedToken uint64

	initialFetch bool
}

type Option func(*Store)

// WithClock injects a clock for deterministic tests.
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithoutInitialFetch skips the automatic fetch at construction. Tests
// use it to drive the store explicitly.
func WithoutInitialFetch() Option {
	return func(s *Store) { s.initialFetch = false }
}

// NewStore builds the store with on-desk defaults and fetches the open
// activity record once in the background.
func NewStore(client api.Client, notifier Notifier, opts ...Option) *Store {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	s := &Store{
		api:          client,
		notifier:     notifier,
		clock:        clock.New(),
		logger:       zap.L().Named("presence"),
		initialFetch: true,
		state: State{
			CurrentActivity: domain.ActivityOnDesk,
		},
	}
	s.monitor = newMonitor(s)
	for _, opt := range opts {
		opt(s)
	}
	s.monitor.clock = s.clock

	if s.initialFetch {
		go s.FetchCurrentActivity(context.Background())
	}
	return s
}

// OnChange registers a watcher invoked after every state change with a
// snapshot. Watchers run on the mutating goroutine; the lock-screen
// controller and the selector surface both subscribe here.
func (s *Store) OnChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}

// State returns a snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// FetchCurrentActivity refreshes state from the employee's open activity
// record. On failure the prior state is kept untouched apart from
// IsLoading returning to false.
func (s *Store) FetchCurrentActivity(ctx context.Context) {
	token := s.begin()

	current, err := s.api.FetchCurrent(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.state.IsLoading = false
		s.notifyLocked()
		s.notifier.NotifyError("fetch-current-activity", err)
		return
	}
	if !s.applyLocked(token) {
		return
	}

	s.state.CurrentActivity = current.Type
	s.state.ActivityStartTime = current.StartTime
	// The server's shouldBlock wins over the derived rule; policy can
	// force-lock even ON_DESK.
	s.state.IsScreenLocked = current.ShouldBlock
	s.state.TimeLimitMinutes = current.TimeLimitMinutes
	s.state.IsLoading = false
	s.monitor.recomputeLocked()
	s.notifyLocked()
}

// StartActivity opens a new activity record, implicitly closing the open
// one server-side. A freshly started activity is never over limit.
func (s *Store) StartActivity(ctx context.Context, t domain.ActivityType) {
	token := s.begin()

	started, err := s.api.StartActivity(ctx, t)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.state.IsLoading = false
		s.notifyLocked()
		s.notifier.NotifyError("start-activity", err)
		return
	}
	if !s.applyLocked(token) {
		return
	}

	start := started.StartTime
	s.state.CurrentActivity = t
	s.state.ActivityStartTime = &start
	s.state.IsScreenLocked = t.Locks()
	s.state.TimeLimitMinutes = started.TimeLimitMinutes
	s.state.IsTimeLimitExceeded = false
	s.state.IsLoading = false
	s.monitor.recomputeLocked()
	s.notifyLocked()
}

// GoOnDesk closes the open record and returns the employee to the desk:
// unlocked, no limit, not exceeded.
func (s *Store) GoOnDesk(ctx context.Context) {
	token := s.begin()

	started, err := s.api.GoOnDesk(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.state.IsLoading = false
		s.notifyLocked()
		s.notifier.NotifyError("go-on-desk", err)
		return
	}
	if !s.applyLocked(token) {
		return
	}

	start := started.StartTime
	s.state.CurrentActivity = domain.ActivityOnDesk
	s.state.ActivityStartTime = &start
	s.state.IsScreenLocked = false
	s.state.TimeLimitMinutes = nil
	s.state.IsTimeLimitExceeded = false
	s.state.IsLoading = false
	s.monitor.recomputeLocked()
	s.notifyLocked()
}

// Close stops the monitor cadence. In-flight operations are not
// cancelled; their responses are simply applied to a store nobody reads.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monitor.stopLocked()
}

// begin claims a request token and raises the loading flag.
func (s *Store) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextToken++
	token := s.nextToken
	s.state.IsLoading = true
	s.notifyLocked()
	return token
}

// applyLocked reports whether a response with this token may still be
// applied; stale responses lose to anything newer that already landed.
func (s *Store) applyLocked(token uint64) bool {
	if token < s.appliedToken {
		s.logger.Debug("discarding stale response", zap.Uint64("token", token))
		return false
	}
	s.appliedToken = token
	return true
}

func (s *Store) notifyLocked() {
	snapshot := s.state
	for _, fn := range s.watchers {
		fn(snapshot)
	}
}
