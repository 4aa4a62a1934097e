package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vgs-ops/shift-ops-api/internal/models"
)

func newShiftRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func shiftRowColumns() []string {
	return []string{
		"id", "template_id", "location_id", "shift_date", "start_at", "end_at", "duration_hours", "work_minutes", "break_minutes",
		"is_night_shift", "is_weekend", "is_holiday", "is_tet_holiday", "holiday_name", "status", "required_guards", "required_level",
		"allow_overlap", "version", "created_at", "updated_at",
	}
}

func testShift() *models.Shift {
	day := time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC)
	return &models.Shift{
		LocationID:     "loc-1",
		ShiftDate:      day,
		StartAt:        day.Add(6 * time.Hour),
		EndAt:          day.Add(14 * time.Hour),
		DurationHours:  8,
		WorkMinutes:    450,
		BreakMinutes:   30,
		Status:         models.ShiftStatusScheduled,
		RequiredGuards: 2,
		RequiredLevel:  1,
	}
}

func TestShiftRepositoryCreateGuardedLocksAndInserts(t *testing.T) {
	db, mock, cleanup := newShiftRepoMock(t)
	defer cleanup()

	repo := NewShiftRepository(db)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM shifts WHERE location_id (.+) FOR UPDATE").
		WithArgs("loc-1", testShift().ShiftDate, string(models.ShiftStatusCancelled)).
		WillReturnRows(sqlmock.NewRows(shiftRowColumns()))
	mock.ExpectExec("INSERT INTO shifts").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	shift := testShift()
	require.NoError(t, repo.CreateGuarded(context.Background(), shift, func(models.Shift) bool { return true }))
	assert.NotEmpty(t, shift.ID)
	assert.Equal(t, 1, shift.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestShiftRepositoryCreateGuardedRejectsCollision(t *testing.T) {
	db, mock, cleanup := newShiftRepoMock(t)
	defer cleanup()

	repo := NewShiftRepository(db)
	existing := testShift()
	existing.ID = "shift-existing"
	now := time.Now()
	rows := sqlmock.NewRows(shiftRowColumns()).AddRow(
		existing.ID, nil, existing.LocationID, existing.ShiftDate, existing.StartAt, existing.EndAt,
		existing.DurationHours, existing.WorkMinutes, existing.BreakMinutes,
		false, true, false, false, nil, string(existing.Status), existing.RequiredGuards, existing.RequiredLevel,
		false, 1, now, now,
	)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FOR UPDATE").WillReturnRows(rows)
	mock.ExpectRollback()

	err := repo.CreateGuarded(context.Background(), testShift(), func(models.Shift) bool { return true })
	require.Error(t, err)

	var overlapErr *models.ShiftOverlapError
	require.True(t, errors.As(err, &overlapErr))
	require.Len(t, overlapErr.Collisions, 1)
	assert.Equal(t, "shift-existing", overlapErr.Collisions[0].ShiftID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestShiftRepositoryCreateGuardedSkipsGuardWhenOverlapAllowed(t *testing.T) {
	db, mock, cleanup := newShiftRepoMock(t)
	defer cleanup()

	repo := NewShiftRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO shifts").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	shift := testShift()
	shift.AllowOverlap = true
	require.NoError(t, repo.CreateGuarded(context.Background(), shift, func(models.Shift) bool { return true }))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestShiftRepositoryUpdateGuardedStaleVersion(t *testing.T) {
	db, mock, cleanup := newShiftRepoMock(t)
	defer cleanup()

	repo := NewShiftRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE shifts SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	shift := testShift()
	shift.ID = "shift-1"
	err := repo.UpdateGuarded(context.Background(), shift, 3, nil)
	require.Error(t, err)

	var versionErr *models.ShiftVersionError
	require.True(t, errors.As(err, &versionErr))
	assert.Equal(t, "shift-1", versionErr.ShiftID)
	assert.Equal(t, 3, versionErr.ExpectedVersion)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestShiftRepositoryCancel(t *testing.T) {
	db, mock, cleanup := newShiftRepoMock(t)
	defer cleanup()

	repo := NewShiftRepository(db)
	mock.ExpectExec("UPDATE shifts SET status").
		WithArgs("shift-1", string(models.ShiftStatusCancelled)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Cancel(context.Background(), "shift-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
