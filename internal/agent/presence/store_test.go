package presence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"

	"go-presence/internal/agent/api"
	"go-presence/internal/domain"
)

type fakeAPI struct {
	fetchCurrentFn  func(ctx context.Context) (api.CurrentActivity, error)
	startActivityFn func(ctx context.Context, t domain.ActivityType) (api.StartedActivity, error)
	goOnDeskFn      func(ctx context.Context) (api.StartedActivity, error)
}

func (f *fakeAPI) FetchCurrent(ctx context.Context) (api.CurrentActivity, error) {
	return f.fetchCurrentFn(ctx)
}
func (f *fakeAPI) StartActivity(ctx context.Context, t domain.ActivityType) (api.StartedActivity, error) {
	return f.startActivityFn(ctx, t)
}
func (f *fakeAPI) GoOnDesk(ctx context.Context) (api.StartedActivity, error) {
	return f.goOnDeskFn(ctx)
}

type recordingNotifier struct {
	mu     sync.Mutex
	errors []string
}

func (n *recordingNotifier) NotifyError(operation string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, operation)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.errors)
}

func intPtr(v int) *int { return &v }

func newTestStore(t *testing.T, f *fakeAPI) (*Store, *clock.Mock, *recordingNotifier) {
	t.Helper()
	mockClock := clock.NewMock()
	notifier := &recordingNotifier{}
	store := NewStore(f, notifier, WithClock(mockClock), WithoutInitialFetch())
	t.Cleanup(store.Close)
	return store, mockClock, notifier
}

func TestStartActivity_NonDeskLocksScreen(t *testing.T) {
	f := &fakeAPI{}
	store, mockClock, _ := newTestStore(t, f)

	for _, typ := range domain.Catalog {
		if typ == domain.ActivityOnDesk {
			continue
		}
		f.startActivityFn = func(ctx context.Context, tt domain.ActivityType) (api.StartedActivity, error) {
			return api.StartedActivity{Type: tt, StartTime: mockClock.Now(), TimeLimitMinutes: intPtr(30)}, nil
		}

		store.StartActivity(context.Background(), typ)

		st := store.State()
		assert.Equal(t, typ, st.CurrentActivity)
		assert.True(t, st.IsScreenLocked, "type %s must lock", typ)
		assert.False(t, st.IsTimeLimitExceeded, "freshly started %s is never over limit", typ)
		assert.False(t, st.IsLoading)
	}
}

func TestGoOnDesk_ResetsState(t *testing.T) {
	f := &fakeAPI{}
	store, mockClock, _ := newTestStore(t, f)

	f.startActivityFn = func(ctx context.Context, tt domain.ActivityType) (api.StartedActivity, error) {
		return api.StartedActivity{Type: tt, StartTime: mockClock.Now(), TimeLimitMinutes: intPtr(30)}, nil
	}
	store.StartActivity(context.Background(), domain.ActivityLunchBreak)

	f.goOnDeskFn = func(ctx context.Context) (api.StartedActivity, error) {
		return api.StartedActivity{Type: domain.ActivityOnDesk, StartTime: mockClock.Now()}, nil
	}
	store.GoOnDesk(context.Background())

	st := store.State()
	assert.Equal(t, domain.ActivityOnDesk, st.CurrentActivity)
	assert.False(t, st.IsScreenLocked)
	assert.Nil(t, st.TimeLimitMinutes)
	assert.False(t, st.IsTimeLimitExceeded)
}

func TestFetchCurrentActivity_ServerShouldBlockWins(t *testing.T) {
	f := &fakeAPI{}
	store, mockClock, _ := newTestStore(t, f)

	// Server-side policy can force-lock even ON_DESK.
	now := mockClock.Now()
	f.fetchCurrentFn = func(ctx context.Context) (api.CurrentActivity, error) {
		return api.CurrentActivity{
			Type:        domain.ActivityOnDesk,
			StartTime:   &now,
			ShouldBlock: true,
		}, nil
	}
	store.FetchCurrentActivity(context.Background())

	st := store.State()
	assert.Equal(t, domain.ActivityOnDesk, st.CurrentActivity)
	assert.True(t, st.IsScreenLocked)
}

func TestFetchCurrentActivity_FailureLeavesStateUntouched(t *testing.T) {
	f := &fakeAPI{}
	store, mockClock, notifier := newTestStore(t, f)

	f.startActivityFn = func(ctx context.Context, tt domain.ActivityType) (api.StartedActivity, error) {
		return api.StartedActivity{Type: tt, StartTime: mockClock.Now(), TimeLimitMinutes: intPtr(45)}, nil
	}
	store.StartActivity(context.Background(), domain.ActivityTeamMeeting)
	before := store.State()

	f.fetchCurrentFn = func(ctx context.Context) (api.CurrentActivity, error) {
		return api.CurrentActivity{}, errors.New("boom")
	}
	store.FetchCurrentActivity(context.Background())

	after := store.State()
	before.IsLoading = false
	assert.Equal(t, before, after)
	assert.Equal(t, 1, notifier.count())
}

func TestMonitor_BoundaryNotYetExceeded(t *testing.T) {
	f := &fakeAPI{}
	store, mockClock, _ := newTestStore(t, f)

	started := mockClock.Now().Add(-29 * time.Minute)
	f.fetchCurrentFn = func(ctx context.Context) (api.CurrentActivity, error) {
		return api.CurrentActivity{
			Type:             domain.ActivityLunchBreak,
			StartTime:        &started,
			ShouldBlock:      true,
			TimeLimitMinutes: intPtr(30),
		}, nil
	}
	store.FetchCurrentActivity(context.Background())

	assert.False(t, store.State().IsTimeLimitExceeded)
}

func TestMonitor_OverLimitEvaluatedImmediately(t *testing.T) {
	f := &fakeAPI{}
	store, mockClock, _ := newTestStore(t, f)

	started := mockClock.Now().Add(-31 * time.Minute)
	f.fetchCurrentFn = func(ctx context.Context) (api.CurrentActivity, error) {
		return api.CurrentActivity{
			Type:             domain.ActivityLunchBreak,
			StartTime:        &started,
			ShouldBlock:      true,
			TimeLimitMinutes: intPtr(30),
		}, nil
	}
	store.FetchCurrentActivity(context.Background())

	// Activation evaluates at once; no tick needed.
	assert.True(t, store.State().IsTimeLimitExceeded)
}

func TestMonitor_GuardUnlockedNeverExceeds(t *testing.T) {
	f := &fakeAPI{}
	store, mockClock, _ := newTestStore(t, f)

	started := mockClock.Now().Add(-5 * time.Hour)
	f.fetchCurrentFn = func(ctx context.Context) (api.CurrentActivity, error) {
		return api.CurrentActivity{
			Type:             domain.ActivityLunchBreak,
			StartTime:        &started,
			ShouldBlock:      false,
			TimeLimitMinutes: intPtr(30),
		}, nil
	}
	store.FetchCurrentActivity(context.Background())

	st := store.State()
	assert.False(t, st.IsScreenLocked)
	assert.False(t, st.IsTimeLimitExceeded)

	mockClock.Add(time.Hour)
	assert.False(t, store.State().IsTimeLimitExceeded)
}

func TestMonitor_EndToEndLunchBreak(t *testing.T) {
	f := &fakeAPI{}
	store, mockClock, _ := newTestStore(t, f)

	f.startActivityFn = func(ctx context.Context, tt domain.ActivityType) (api.StartedActivity, error) {
		return api.StartedActivity{Type: tt, StartTime: mockClock.Now(), TimeLimitMinutes: intPtr(30)}, nil
	}
	store.StartActivity(context.Background(), domain.ActivityLunchBreak)

	st := store.State()
	assert.Equal(t, domain.ActivityLunchBreak, st.CurrentActivity)
	assert.True(t, st.IsScreenLocked)
	assert.Equal(t, 30, *st.TimeLimitMinutes)
	assert.False(t, st.IsTimeLimitExceeded)

	// Give the cadence goroutine a moment to arm its ticker, then jump
	// past the budget.
	time.Sleep(20 * time.Millisecond)
	mockClock.Add(31 * time.Minute)

	assert.Eventually(t, func() bool {
		return store.State().IsTimeLimitExceeded
	}, time.Second, 5*time.Millisecond)

	f.goOnDeskFn = func(ctx context.Context) (api.StartedActivity, error) {
		return api.StartedActivity{Type: domain.ActivityOnDesk, StartTime: mockClock.Now()}, nil
	}
	store.GoOnDesk(context.Background())

	st = store.State()
	assert.Equal(t, domain.ActivityOnDesk, st.CurrentActivity)
	assert.False(t, st.IsScreenLocked)
	assert.Nil(t, st.TimeLimitMinutes)
	assert.False(t, st.IsTimeLimitExceeded)
}

func TestStaleResponseDiscarded(t *testing.T) {
	f := &fakeAPI{}
	store, mockClock, _ := newTestStore(t, f)

	release := make(chan struct{})
	now := mockClock.Now()
	f.fetchCurrentFn = func(ctx context.Context) (api.CurrentActivity, error) {
		<-release
		return api.CurrentActivity{Type: domain.ActivityTeamMeeting, StartTime: &now, ShouldBlock: true}, nil
	}
	f.startActivityFn = func(ctx context.Context, tt domain.ActivityType) (api.StartedActivity, error) {
		return api.StartedActivity{Type: tt, StartTime: mockClock.Now(), TimeLimitMinutes: intPtr(45)}, nil
	}

	fetchDone := make(chan struct{})
	go func() {
		store.FetchCurrentActivity(context.Background())
		close(fetchDone)
	}()
	// Keep ordering deterministic: the fetch claims its token first.
	assert.Eventually(t, func() bool {
		return store.State().IsLoading
	}, time.Second, time.Millisecond)

	store.StartActivity(context.Background(), domain.ActivityLunchBreak)
	assert.Equal(t, domain.ActivityLunchBreak, store.State().CurrentActivity)

	close(release)
	<-fetchDone

	// The stale fetch resolved last but must not win.
	assert.Equal(t, domain.ActivityLunchBreak, store.State().CurrentActivity)
}
