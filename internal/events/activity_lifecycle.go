package events

import "time"

const ActivityLifecycleTopic = "hr.presence.activity.v1"

// HistoryChangedChannel is the redis pub/sub channel the realtime hub
// listens on to push history-refresh notices to connected agents.
const HistoryChangedChannel = "presence:history-changed"

type ActivityStartedEvent struct {
	EventType  string    `json:"event_type"`
	EmployeeID string    `json:"employee_id"`
	CompanyID  string    `json:"company_id"`
	Activity   string    `json:"activity"`
	OccurredAt time.Time `json:"occurred_at"`
}

type ActivityEndedEvent struct {
	EventType  string    `json:"event_type"`
	EmployeeID string    `json:"employee_id"`
	CompanyID  string    `json:"company_id"`
	Activity   string    `json:"activity"`
	OccurredAt time.Time `json:"occurred_at"`
}

// HistoryChangedNotice is the payload published on HistoryChangedChannel.
type HistoryChangedNotice struct {
	EmployeeID string `json:"employee_id"`
}
