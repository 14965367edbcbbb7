package activity

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"go-presence/internal/domain"
)

// Drives the repository through a real *sql.Tx so every statement runs on
// the transaction connection, not an autocommit one.
func TestRepository_WithTx_RunsStatementsOnTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	companyID := uuid.New().String()
	employeeID := uuid.New().String()
	openID := uuid.New()
	started := time.Now().UTC().Add(-15 * time.Minute)
	now := time.Now().UTC()
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, type, start_time FROM activities").
		WithArgs(companyID, employeeID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "start_time"}).
			AddRow(openID.String(), string(domain.ActivityLunchBreak), started))
	mock.ExpectExec("UPDATE activities SET end_time").
		WithArgs(now, companyID, employeeID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO activities").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	assert.NoError(t, err)

	qtx := NewRepository(nil).WithTx(tx)

	prev, err := qtx.FindOpenByEmployee(ctx, companyID, employeeID)
	assert.NoError(t, err)
	assert.Equal(t, openID, prev.ID)
	assert.Equal(t, domain.ActivityLunchBreak, prev.Type)

	assert.NoError(t, qtx.CloseOpenByEmployee(ctx, companyID, employeeID, now))

	row := &Activity{
		ID:         uuid.New(),
		CompanyID:  uuid.MustParse(companyID),
		EmployeeID: uuid.MustParse(employeeID),
		Type:       domain.ActivityTeamMeeting,
		StartTime:  now,
	}
	assert.NoError(t, qtx.Create(ctx, row))

	assert.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_WithTx_FindOpenNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	companyID := uuid.New().String()
	employeeID := uuid.New().String()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, type, start_time FROM activities").
		WithArgs(companyID, employeeID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "start_time"}))
	mock.ExpectRollback()

	tx, err := db.Begin()
	assert.NoError(t, err)
	defer tx.Rollback()

	qtx := NewRepository(nil).WithTx(tx)
	_, err = qtx.FindOpenByEmployee(context.Background(), companyID, employeeID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
