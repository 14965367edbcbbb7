package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	activityerrors "go-presence/internal/activity/errors"
	"go-presence/internal/domain"
	"go-presence/internal/events"
)

const policyCacheTTL = 30 * time.Minute

func policyCacheKey(companyID string) string {
	return "activity:policies:" + companyID
}

//go:generate mockgen -source=activity_service.go -destination=mock/activity_service_mock.go -package=mock
type Service interface {
	GetCurrent(ctx context.Context, companyID, employeeID string) (CurrentActivityResponse, error)
	Start(ctx context.Context, companyID, employeeID string, req StartActivityRequest) (StartActivityResponse, error)
	GoOnDesk(ctx context.Context, companyID, employeeID string) (GoOnDeskResponse, error)
	GetHistory(ctx context.Context, companyID, employeeID string, page, pageSize int) ([]HistoryItem, int64, error)
}

type service struct {
	db        *sql.DB
	repo      Repository
	rdb       *redis.Client
	publisher EventPublisher
	sf        *singleflight.Group
}

func NewService(db *sql.DB, repo Repository, rdb *redis.Client, publisher EventPublisher) Service {
	if publisher == nil {
		publisher = noopEventPublisher{}
	}
	return &service{
		db:        db,
		repo:      repo,
		rdb:       rdb,
		publisher: publisher,
		sf:        &singleflight.Group{},
	}
}

func (s *service) GetCurrent(ctx context.Context, companyID, employeeID string) (CurrentActivityResponse, error) {
	if _, err := uuid.Parse(companyID); err != nil {
		return CurrentActivityResponse{}, activityerrors.ErrInvalidCompanyID
	}
	if _, err := uuid.Parse(employeeID); err != nil {
		return CurrentActivityResponse{}, activityerrors.ErrInvalidEmployeeID
	}

	current := domain.ActivityOnDesk
	payload := &ActivityPayload{Type: string(domain.ActivityOnDesk)}

	open, err := s.repo.FindOpenByEmployee(ctx, companyID, employeeID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return CurrentActivityResponse{}, err
	}
	if err == nil {
		current = open.Type
		payload = &ActivityPayload{
			Type:      string(open.Type),
			StartTime: open.StartTime.Format(time.RFC3339),
		}
	}

	now := time.Now().UTC()
	forced, err := s.repo.HasActiveLockOverride(ctx, companyID, employeeID, now)
	if err != nil {
		return CurrentActivityResponse{}, err
	}

	limit, err := s.timeLimitFor(ctx, companyID, current)
	if err != nil {
		return CurrentActivityResponse{}, err
	}

	resp := CurrentActivityResponse{
		Success:     true,
		Activity:    payload,
		ShouldBlock: forced || current.Locks(),
	}
	if limit > 0 {
		resp.TimeLimit = &limit
	}
	return resp, nil
}

func (s *service) Start(ctx context.Context, companyID, employeeID string, req StartActivityRequest) (StartActivityResponse, error) {
	t := domain.ActivityType(req.Type)
	if !t.Valid() {
		return StartActivityResponse{}, activityerrors.ErrUnknownActivityType
	}

	row, prev, err := s.openActivity(ctx, companyID, employeeID, t)
	if err != nil {
		return StartActivityResponse{}, err
	}

	limit, err := s.timeLimitFor(ctx, companyID, t)
	if err != nil {
		return StartActivityResponse{}, err
	}

	s.announce(ctx, companyID, employeeID, t, row.StartTime, prev)

	resp := StartActivityResponse{
		Success: true,
		Activity: &ActivityPayload{
			Type:      string(t),
			StartTime: row.StartTime.Format(time.RFC3339),
		},
	}
	if limit > 0 {
		resp.TimeLimit = &limit
	}
	return resp, nil
}

func (s *service) GoOnDesk(ctx context.Context, companyID, employeeID string) (GoOnDeskResponse, error) {
	row, prev, err := s.openActivity(ctx, companyID, employeeID, domain.ActivityOnDesk)
	if err != nil {
		return GoOnDeskResponse{}, err
	}

	s.announce(ctx, companyID, employeeID, domain.ActivityOnDesk, row.StartTime, prev)

	return GoOnDeskResponse{
		Success: true,
		Activity: &ActivityPayload{
			Type:      string(domain.ActivityOnDesk),
			StartTime: row.StartTime.Format(time.RFC3339),
		},
	}, nil
}

// openActivity closes the currently open record and opens a new one of the
// given type, in one transaction. At most one open record per employee.
func (s *service) openActivity(ctx context.Context, companyID, employeeID string, t domain.ActivityType) (*Activity, *Activity, error) {
	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return nil, nil, activityerrors.ErrInvalidCompanyID
	}
	employeeUUID, err := uuid.Parse(employeeID)
	if err != nil {
		return nil, nil, activityerrors.ErrInvalidEmployeeID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	now := time.Now().UTC()

	prev, err := qtx.FindOpenByEmployee(ctx, companyID, employeeID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, mapRepositoryError(err)
		}
		prev = nil
	}

	if err := qtx.CloseOpenByEmployee(ctx, companyID, employeeID, now); err != nil {
		return nil, nil, mapRepositoryError(err)
	}

	row := &Activity{
		ID:         uuid.New(),
		CompanyID:  companyUUID,
		EmployeeID: employeeUUID,
		Type:       t,
		StartTime:  now,
	}
	if err := qtx.Create(ctx, row); err != nil {
		return nil, nil, mapRepositoryError(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return row, prev, nil
}

func (s *service) GetHistory(ctx context.Context, companyID, employeeID string, page, pageSize int) ([]HistoryItem, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	rows, total, err := s.repo.FindAllByEmployee(ctx, companyID, employeeID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]HistoryItem, len(rows))
	for i, r := range rows {
		items[i] = mapToHistoryItem(r)
	}
	return items, total, nil
}

// timeLimitFor resolves the budget for one activity type, reading the
// company policy set through the redis cache with singleflight collapsing
// concurrent cold reads.
func (s *service) timeLimitFor(ctx context.Context, companyID string, t domain.ActivityType) (int, error) {
	policies, err := s.cachedPolicies(ctx, companyID)
	if err != nil {
		return 0, err
	}
	return resolveTimeLimit(policies, t), nil
}

func (s *service) cachedPolicies(ctx context.Context, companyID string) ([]TimeLimitPolicy, error) {
	cacheKey := policyCacheKey(companyID)

	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, cacheKey).Result()
		if err == nil {
			var policies []TimeLimitPolicy
			if err := json.Unmarshal([]byte(cached), &policies); err == nil {
				return policies, nil
			}
		}
	}

	v, err, _ := s.sf.Do(cacheKey, func() (interface{}, error) {
		policies, err := s.repo.FindTimeLimitPolicies(ctx, companyID)
		if err != nil {
			return nil, err
		}

		if s.rdb != nil {
			if jsonData, err := json.Marshal(policies); err == nil {
				s.rdb.Set(ctx, cacheKey, jsonData, policyCacheTTL)
			}
		}

		return policies, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]TimeLimitPolicy), nil
}

// announce publishes the lifecycle event and the history-changed notice.
// Both are best-effort; a broker outage must not fail the user's request.
func (s *service) announce(ctx context.Context, companyID, employeeID string, t domain.ActivityType, startTime time.Time, prev *Activity) {
	if prev != nil {
		if err := s.publisher.PublishActivityEnded(ctx, companyID, employeeID, prev.Type, startTime); err != nil {
			zap.L().Warn("publish activity.ended failed",
				zap.String("employee_id", employeeID),
				zap.Error(err),
			)
		}
	}

	if err := s.publisher.PublishActivityStarted(ctx, companyID, employeeID, t, startTime); err != nil {
		zap.L().Warn("publish activity.started failed",
			zap.String("employee_id", employeeID),
			zap.Error(err),
		)
	}

	if s.rdb != nil {
		notice, _ := json.Marshal(map[string]string{"employee_id": employeeID})
		if err := s.rdb.Publish(ctx, events.HistoryChangedChannel, notice).Err(); err != nil {
			zap.L().Warn("publish history-changed notice failed",
				zap.String("employee_id", employeeID),
				zap.Error(err),
			)
		}
	}
}

func mapToHistoryItem(a Activity) HistoryItem {
	item := HistoryItem{
		ID:        a.ID.String(),
		Type:      string(a.Type),
		TypeLabel: a.Type.Label(),
		StartTime: a.StartTime.Format(time.RFC3339),
	}
	if a.EndTime != nil {
		v := a.EndTime.Format(time.RFC3339)
		item.EndTime = &v
		item.DurationMs = a.EndTime.Sub(a.StartTime).Milliseconds()
	}
	return item
}
