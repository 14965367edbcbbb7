package presence

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// evaluationInterval is the cadence of time-limit checks. Coarse on
// purpose: the limit is in minutes, so a ten second tick is plenty.
const evaluationInterval = 10 * time.Second

// monitor decides on a fixed cadence whether the current activity has
// overrun its budget. It runs only while a limit, a start time and the
// screen lock all hold; anything else forces the exceeded flag off and
// stops the ticker so nothing idles when irrelevant.
type monitor struct {
	store  *Store
	clock  clock.Clock
	cancel context.CancelFunc
}

func newMonitor(s *Store) *monitor {
	return &monitor{store: s, clock: s.clock}
}

// recomputeLocked reacts to a write to any of the three inputs: it
// evaluates immediately and restarts the cadence from zero. Called with
// the store lock held.
func (m *monitor) recomputeLocked() {
	m.stopLocked()

	if !m.activeLocked() {
		m.store.state.IsTimeLimitExceeded = false
		return
	}

	m.evaluateLocked()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	go m.tick(ctx)
}

func (m *monitor) activeLocked() bool {
	st := m.store.state
	return st.TimeLimitMinutes != nil && st.ActivityStartTime != nil && st.IsScreenLocked
}

// evaluateLocked applies the rule: elapsed fractional minutes on the wall
// clock, strictly greater than the limit. Exactly at the limit is not yet
// exceeded.
func (m *monitor) evaluateLocked() {
	st := &m.store.state
	if !m.activeLocked() {
		st.IsTimeLimitExceeded = false
		return
	}

	elapsed := m.clock.Now().Sub(*st.ActivityStartTime).Minutes()
	st.IsTimeLimitExceeded = elapsed > float64(*st.TimeLimitMinutes)
}

func (m *monitor) tick(ctx context.Context) {
	ticker := m.clock.Ticker(evaluationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.store.mu.Lock()
			if ctx.Err() == nil {
				before := m.store.state.IsTimeLimitExceeded
				m.evaluateLocked()
				if m.store.state.IsTimeLimitExceeded != before {
					m.store.notifyLocked()
				}
			}
			m.store.mu.Unlock()
		}
	}
}

// stopLocked cancels the running cadence, if any. The goroutine exits on
// its next select; evaluation is idempotent so a final stray tick is
// harmless.
func (m *monitor) stopLocked() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}
