package activity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"go-presence/internal/domain"
)

// Activity is one presence record. A NULL end_time marks the open
// record; the partial unique index uq_activity_open (see
// migrations/0001_presence.sql) keeps it to one per employee.
type Activity struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID  uuid.UUID           `gorm:"column:company_id;type:uuid;not null;index"`
	EmployeeID uuid.UUID           `gorm:"column:employee_id;type:uuid;not null;index"`
	Type       domain.ActivityType `gorm:"column:type;type:varchar(30);not null"`
	StartTime  time.Time           `gorm:"column:start_time;type:timestamptz;not null"`
	EndTime    *time.Time          `gorm:"column:end_time;type:timestamptz;index"`
	CreatedAt  time.Time           `gorm:"column:created_at"`
	UpdatedAt  time.Time           `gorm:"column:updated_at"`
	DeletedAt  gorm.DeletedAt      `gorm:"column:deleted_at;index"`
}

func (Activity) TableName() string {
	return "activities"
}

// TimeLimitPolicy overrides the built-in budget for one activity type in
// one company. LimitMinutes of zero disables the limit entirely.
type TimeLimitPolicy struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID    uuid.UUID           `gorm:"column:company_id;type:uuid;not null;uniqueIndex:idx_policy_company_type"`
	ActivityType domain.ActivityType `gorm:"column:activity_type;type:varchar(30);not null;uniqueIndex:idx_policy_company_type"`
	LimitMinutes int                 `gorm:"column:limit_minutes;not null"`
	CreatedAt    time.Time           `gorm:"column:created_at"`
	UpdatedAt    time.Time           `gorm:"column:updated_at"`
}

func (TimeLimitPolicy) TableName() string {
	return "activity_time_limit_policies"
}

// LockOverride force-locks an employee's screen regardless of activity.
// Its presence (unexpired) makes the current-activity response block even
// for ON_DESK.
type LockOverride struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID  uuid.UUID  `gorm:"column:company_id;type:uuid;not null;index"`
	EmployeeID uuid.UUID  `gorm:"column:employee_id;type:uuid;not null;index"`
	Reason     string     `gorm:"column:reason;type:varchar(200)"`
	ExpiresAt  *time.Time `gorm:"column:expires_at;type:timestamptz"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
}

func (LockOverride) TableName() string {
	return "activity_lock_overrides"
}
