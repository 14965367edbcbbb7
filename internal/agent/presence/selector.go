package presence

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"go-presence/internal/agent/bus"
	"go-presence/internal/domain"
)

// blinkInterval is how fast the over-limit emphasis flips. Purely visual.
const blinkInterval = 600 * time.Millisecond

// CatalogEntry is one selectable activity with its display label.
type CatalogEntry struct {
	Type  domain.ActivityType
	Label string
}

// Selector is the presence surface: it renders the catalog and the
// current state and issues start commands. It owns no state beyond
// transient UI toggles (menu open, blink phase); everything else is read
// from the store.
type Selector struct {
	store *Store
	bus   *bus.Bus
	clock clock.Clock

	mu          sync.Mutex
	menuOpen    bool
	blinkPhase  bool
	blinkCancel context.CancelFunc
}

func NewSelector(store *Store, b *bus.Bus, clk clock.Clock) *Selector {
	if clk == nil {
		clk = clock.New()
	}
	s := &Selector{store: store, bus: b, clock: clk}

	// Blink runs exactly while the limit is exceeded.
	store.OnChange(func(st State) {
		s.setBlinking(st.IsTimeLimitExceeded)
	})
	return s
}

// Catalog lists the selectable activities in display order.
func (s *Selector) Catalog() []CatalogEntry {
	entries := make([]CatalogEntry, len(domain.Catalog))
	for i, t := range domain.Catalog {
		entries[i] = CatalogEntry{Type: t, Label: t.Label()}
	}
	return entries
}

func (s *Selector) OpenMenu() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.menuOpen = true
}

func (s *Selector) MenuOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.menuOpen
}

// BlinkPhase reports the current emphasis phase. Always false while the
// limit is not exceeded.
func (s *Selector) BlinkPhase() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blinkPhase
}

// Select issues a start command for the chosen activity and closes the
// menu. Re-selecting the current activity, or selecting while an
// operation is in flight, is a no-op. After the command completes the
// history views are told to refresh through the bus, not called
// directly.
func (s *Selector) Select(ctx context.Context, t domain.ActivityType) {
	s.mu.Lock()
	s.menuOpen = false
	s.mu.Unlock()

	st := s.store.State()
	if st.IsLoading || st.CurrentActivity == t {
		return
	}

	if t == domain.ActivityOnDesk {
		s.store.GoOnDesk(ctx)
	} else {
		s.store.StartActivity(ctx, t)
	}

	if s.bus != nil {
		s.bus.Publish(bus.TopicHistoryRefresh)
	}
}

func (s *Selector) setBlinking(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if on {
		if s.blinkCancel != nil {
			return
		}
		ctx, cancel := context.WithCancel(context.Background())
		s.blinkCancel = cancel
		go s.blink(ctx)
		return
	}

	if s.blinkCancel != nil {
		s.blinkCancel()
		s.blinkCancel = nil
	}
	s.blinkPhase = false
}

func (s *Selector) blink(ctx context.Context) {
	ticker := s.clock.Ticker(blinkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			s.blinkPhase = !s.blinkPhase
			s.mu.Unlock()
		}
	}
}
