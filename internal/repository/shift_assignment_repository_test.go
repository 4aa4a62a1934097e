package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vgs-ops/shift-ops-api/internal/models"
)

func newAssignmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func testAssignment() *models.ShiftAssignment {
	return &models.ShiftAssignment{
		ShiftID: "shift-1",
		GuardID: "guard-1",
		Type:    models.AssignmentTypeRegular,
		Status:  models.AssignmentStatusAssigned,
	}
}

func TestAssignmentRepositoryCreateRecountsTeam(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()

	repo := NewShiftAssignmentRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO shift_assignments").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE teams SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	assignment := testAssignment()
	teamID := "team-1"
	assignment.TeamID = &teamID
	require.NoError(t, repo.Create(context.Background(), assignment))
	assert.NotEmpty(t, assignment.ID)
	assert.False(t, assignment.AssignedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryCreateWithoutTeamSkipsRecount(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()

	repo := NewShiftAssignmentRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO shift_assignments").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), testAssignment()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryReplaceIsOneTransaction(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()

	repo := NewShiftAssignmentRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE shift_assignments SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO shift_assignments").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	replaced := testAssignment()
	replaced.ID = "asg-1"
	replaced.Status = models.AssignmentStatusCancelled

	replacement := testAssignment()
	replacement.GuardID = "guard-2"
	replacement.Type = models.AssignmentTypeReplacement
	replacement.IsReplacement = true

	require.NoError(t, repo.Replace(context.Background(), replacement, replaced))
	assert.NotEmpty(t, replacement.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryReplaceRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()

	repo := NewShiftAssignmentRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE shift_assignments SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO shift_assignments").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	replaced := testAssignment()
	replaced.ID = "asg-1"
	require.Error(t, repo.Replace(context.Background(), testAssignment(), replaced))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryCountActiveByShift(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()

	repo := NewShiftAssignmentRepository(db)
	mock.ExpectQuery("SELECT COUNT(.+) FROM shift_assignments").
		WithArgs("shift-1", string(models.AssignmentStatusCancelled), string(models.AssignmentStatusDeclined)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountActiveByShift(context.Background(), "shift-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestAssignmentRepositoryHasActiveOverlapping(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()

	repo := NewShiftAssignmentRepository(db)
	start := time.Date(2025, 7, 5, 6, 0, 0, 0, time.UTC)
	end := start.Add(8 * time.Hour)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("guard-1",
			string(models.AssignmentStatusCancelled), string(models.AssignmentStatusDeclined),
			string(models.ShiftStatusCancelled), "shift-2", start, end).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	overlapping, err := repo.HasActiveOverlapping(context.Background(), "guard-1", start, end, "shift-2")
	require.NoError(t, err)
	assert.True(t, overlapping)
}

func TestAssignmentRepositorySumWorkMinutesForMonth(t *testing.T) {
	db, mock, cleanup := newAssignmentRepoMock(t)
	defer cleanup()

	repo := NewShiftAssignmentRepository(db)
	monthStart := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT COALESCE").
		WithArgs("guard-1",
			string(models.AssignmentStatusCancelled), string(models.AssignmentStatusDeclined),
			string(models.ShiftStatusCancelled), monthStart, monthStart.AddDate(0, 1, 0)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(9600))

	total, err := repo.SumWorkMinutesForMonth(context.Background(), "guard-1", time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 9600, total)
}
