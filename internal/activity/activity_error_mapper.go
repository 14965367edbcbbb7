package activity

import (
	"errors"
	"strings"

	activityerrors "go-presence/internal/activity/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// mapRepositoryError translates driver errors into the module's
// sentinels. The partial unique index uq_activity_open backs the
// one-open-record invariant; hitting it means a concurrent start won the
// race.
func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return activityerrors.ErrActivityNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" && pgErr.ConstraintName == "uq_activity_open" {
			return activityerrors.ErrActivityAlreadyOpen
		}
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "duplicate key value") && strings.Contains(errMsg, "uq_activity_open") {
		return activityerrors.ErrActivityAlreadyOpen
	}

	return err
}
