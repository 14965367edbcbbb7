package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"go-presence/internal/events"
)

// Bridge relays history-changed notices from redis pub/sub into employee
// rooms, so activity writes on any api instance reach every connected
// console session.
type Bridge struct {
	rdb *redis.Client
	hub *Hub
}

func NewBridge(rdb *redis.Client, hub *Hub) *Bridge {
	return &Bridge{rdb: rdb, hub: hub}
}

// Run blocks until ctx is cancelled, forwarding notices as they arrive.
func (b *Bridge) Run(ctx context.Context) {
	sub := b.rdb.Subscribe(ctx, events.HistoryChangedChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var notice events.HistoryChangedNotice
			if err := json.Unmarshal([]byte(m.Payload), &notice); err != nil {
				zap.L().Warn("malformed history-changed notice", zap.Error(err))
				continue
			}
			b.hub.SendToEmployee(notice.EmployeeID, &Message{
				Event:      EventHistoryChanged,
				EmployeeID: notice.EmployeeID,
			})
		}
	}
}
