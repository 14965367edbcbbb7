package bus

import "sync"

// Topic names used between console views.
const (
	TopicHistoryRefresh = "history-refresh"
)

// Bus is a fire-and-forget in-process pub/sub channel between views that
// must stay decoupled: the presence selector announces that history
// changed without knowing who renders it.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]func()
}

func New() *Bus {
	return &Bus{subs: make(map[string][]func())}
}

// Subscribe registers fn for a topic. Delivery is synchronous on the
// publisher's goroutine; handlers must be quick and must not publish
// back into the same topic.
func (b *Bus) Subscribe(topic string, fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = append(b.subs[topic], fn)
}

// Publish notifies every subscriber of the topic. There is no payload;
// the notification itself is the signal.
func (b *Bus) Publish(topic string) {
	b.mu.RLock()
	subs := append(make([]func(), 0, len(b.subs[topic])), b.subs[topic]...)
	b.mu.RUnlock()

	for _, fn := range subs {
		fn()
	}
}
