package activity

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"

	"go-presence/internal/domain"
)

//go:generate mockgen -source=activity_repo.go -destination=mock/activity_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, a *Activity) error
	FindOpenByEmployee(ctx context.Context, companyID, employeeID string) (*Activity, error)
	CloseOpenByEmployee(ctx context.Context, companyID, employeeID string, endTime time.Time) error
	FindAllByEmployee(ctx context.Context, companyID, employeeID string, limit, offset int) ([]Activity, int64, error)
	FindTimeLimitPolicies(ctx context.Context, companyID string) ([]TimeLimitPolicy, error)
	HasActiveLockOverride(ctx context.Context, companyID, employeeID string, now time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// WithTx binds the repository to an open transaction. Statements issued
// through the bound repository run on the tx connection, not the pool,
// so the service's commit covers them.
func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

func (r *repository) Create(ctx context.Context, a *Activity) error {
	if r.tx != nil {
		now := time.Now().UTC()
		_, err := r.tx.ExecContext(ctx,
			`INSERT INTO activities (id, company_id, employee_id, type, start_time, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $6)`,
			a.ID, a.CompanyID, a.EmployeeID, string(a.Type), a.StartTime, now,
		)
		return err
	}
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *repository) FindOpenByEmployee(ctx context.Context, companyID, employeeID string) (*Activity, error) {
	if r.tx != nil {
		var a Activity
		var typ string
		err := r.tx.QueryRowContext(ctx,
			`SELECT id, type, start_time FROM activities
			 WHERE company_id = $1 AND employee_id = $2 AND end_time IS NULL AND deleted_at IS NULL
			 ORDER BY start_time DESC LIMIT 1`,
			companyID, employeeID,
		).Scan(&a.ID, &typ, &a.StartTime)
		if err == sql.ErrNoRows {
			return nil, gorm.ErrRecordNotFound
		}
		if err != nil {
			return nil, err
		}
		a.Type = domain.ActivityType(typ)
		return &a, nil
	}

	var a Activity
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Where("employee_id = ?", employeeID).
		Where("end_time IS NULL").
		Order("start_time DESC").
		First(&a).Error
	return &a, err
}

func (r *repository) CloseOpenByEmployee(ctx context.Context, companyID, employeeID string, endTime time.Time) error {
	if r.tx != nil {
		_, err := r.tx.ExecContext(ctx,
			`UPDATE activities SET end_time = $1, updated_at = $1
			 WHERE company_id = $2 AND employee_id = $3 AND end_time IS NULL AND deleted_at IS NULL`,
			endTime, companyID, employeeID,
		)
		return err
	}
	return r.db.WithContext(ctx).
		Model(&Activity{}).
		Where("company_id = ?", companyID).
		Where("employee_id = ?", employeeID).
		Where("end_time IS NULL").
		Update("end_time", endTime).Error
}

func (r *repository) FindAllByEmployee(ctx context.Context, companyID, employeeID string, limit, offset int) ([]Activity, int64, error) {
	q := r.db.WithContext(ctx).
		Model(&Activity{}).
		Where("company_id = ?", companyID).
		Where("employee_id = ?", employeeID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []Activity
	err := q.Order("start_time DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	return rows, total, err
}

func (r *repository) FindTimeLimitPolicies(ctx context.Context, companyID string) ([]TimeLimitPolicy, error) {
	var rows []TimeLimitPolicy
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Find(&rows).Error
	return rows, err
}

func (r *repository) HasActiveLockOverride(ctx context.Context, companyID, employeeID string, now time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&LockOverride{}).
		Where("company_id = ?", companyID).
		Where("employee_id = ?", employeeID).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Count(&count).Error
	return count > 0, err
}

// resolveTimeLimit returns the budget in minutes for one activity type,
// preferring the company policy rows over the built-in defaults. Zero means
// no limit. ON_DESK never carries a limit regardless of policy.
func resolveTimeLimit(policies []TimeLimitPolicy, t domain.ActivityType) int {
	if t == domain.ActivityOnDesk {
		return 0
	}
	for _, p := range policies {
		if p.ActivityType == t {
			return p.LimitMinutes
		}
	}
	return domain.DefaultTimeLimitMinutes[t]
}
