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

func newShiftTemplateRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func templateRow() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "contract_id", "code", "name", "start_time", "end_time", "duration_hours", "break_minutes", "paid_break",
		"is_night_shift", "crosses_midnight", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
		"required_level", "min_guards", "max_guards", "optimal_guards", "location_id", "effective_from", "effective_to",
		"status", "active", "created_at", "updated_at",
	}).AddRow(
		"tpl-1", "contract-1", "DAY-GATE-0600-1400", "Day Gate", "06:00", "14:00", 8.0, 30, false,
		false, false, true, true, true, true, true, false, false,
		1, 2, 4, 2, "loc-1", now, nil,
		"AWAIT_CREATE_SHIFT", true, now, now,
	)
}

func TestShiftTemplateRepositoryFindByCode(t *testing.T) {
	db, mock, cleanup := newShiftTemplateRepoMock(t)
	defer cleanup()

	repo := NewShiftTemplateRepository(db)
	mock.ExpectQuery("SELECT (.+) FROM shift_templates WHERE code").
		WithArgs("DAY-GATE-0600-1400").
		WillReturnRows(templateRow())

	tpl, err := repo.FindByCode(context.Background(), "DAY-GATE-0600-1400")
	require.NoError(t, err)
	assert.Equal(t, "tpl-1", tpl.ID)
	assert.Equal(t, models.TemplateStatusAwaitCreateShift, tpl.Status)
	assert.InDelta(t, 8.0, tpl.DurationHours, 1e-9)
}

func TestShiftTemplateRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newShiftTemplateRepoMock(t)
	defer cleanup()

	repo := NewShiftTemplateRepository(db)
	mock.ExpectExec("INSERT INTO shift_templates").
		WillReturnResult(sqlmock.NewResult(1, 1))

	tpl := &models.ShiftTemplate{
		ContractID:    "contract-1",
		Code:          "DAY-GATE-0600-1400",
		Name:          "Day Gate",
		StartTime:     "06:00",
		EndTime:       "14:00",
		DurationHours: 8,
		MinGuards:     2,
		LocationID:    "loc-1",
		EffectiveFrom: time.Now(),
		Status:        models.TemplateStatusAwaitCreateShift,
		Active:        true,
	}
	require.NoError(t, repo.Create(context.Background(), tpl))
	assert.NotEmpty(t, tpl.ID, "create must assign an id")
	assert.False(t, tpl.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestShiftTemplateRepositoryListFiltersByContract(t *testing.T) {
	db, mock, cleanup := newShiftTemplateRepoMock(t)
	defer cleanup()

	repo := NewShiftTemplateRepository(db)
	mock.ExpectQuery("SELECT (.+) FROM shift_templates WHERE 1=1 AND contract_id").
		WithArgs("contract-1").
		WillReturnRows(templateRow())
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("contract-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	templates, total, err := repo.List(context.Background(), models.TemplateFilter{ContractID: "contract-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, templates, 1)
	assert.Equal(t, "DAY-GATE-0600-1400", templates[0].Code)
}

func TestShiftTemplateRepositoryDeactivate(t *testing.T) {
	db, mock, cleanup := newShiftTemplateRepoMock(t)
	defer cleanup()

	repo := NewShiftTemplateRepository(db)
	mock.ExpectExec("UPDATE shift_templates SET active = FALSE").
		WithArgs("tpl-1", string(models.TemplateStatusRetired)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Deactivate(context.Background(), "tpl-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
