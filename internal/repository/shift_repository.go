package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vgs-ops/shift-ops-api/internal/models"
)

const shiftColumns = `id, template_id, location_id, shift_date, start_at, end_at, duration_hours, work_minutes, break_minutes,
is_night_shift, is_weekend, is_holiday, is_tet_holiday, holiday_name, status, required_guards, required_level,
allow_overlap, version, created_at, updated_at`

// ShiftRepository provides persistence for concrete shift occurrences. The
// guarded write paths lock the location+date slice inside one transaction so
// two concurrent writers cannot both pass the overlap check on a stale
// snapshot and commit colliding shifts.
type ShiftRepository struct {
	db *sqlx.DB
}

// NewShiftRepository creates a new shift repository.
func NewShiftRepository(db *sqlx.DB) *ShiftRepository {
	return &ShiftRepository{db: db}
}

// FindByID loads a shift by id.
func (r *ShiftRepository) FindByID(ctx context.Context, id string) (*models.Shift, error) {
	query := fmt.Sprintf("SELECT %s FROM shifts WHERE id = $1", shiftColumns)
	var shift models.Shift
	if err := r.db.GetContext(ctx, &shift, query, id); err != nil {
		return nil, err
	}
	return &shift, nil
}

// List returns shifts with optional filtering and pagination.
func (r *ShiftRepository) List(ctx context.Context, filter models.ShiftFilter) ([]models.Shift, int, error) {
	base := "FROM shifts WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.LocationID != "" {
		conditions = append(conditions, fmt.Sprintf("location_id = $%d", len(args)+1))
		args = append(args, filter.LocationID)
	}
	if filter.TemplateID != "" {
		conditions = append(conditions, fmt.Sprintf("template_id = $%d", len(args)+1))
		args = append(args, filter.TemplateID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("shift_date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("shift_date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY shift_date ASC, start_at ASC LIMIT %d OFFSET %d", shiftColumns, base, size, offset)
	var shifts []models.Shift
	if err := r.db.SelectContext(ctx, &shifts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list shifts: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count shifts: %w", err)
	}

	return shifts, total, nil
}

// CreateGuarded inserts a shift after running the overlap guard against all
// other non-cancelled shifts at the same location and date, all inside one
// transaction with the candidate rows locked. The collides callback decides
// whether an existing shift counts as a collision.
func (r *ShiftRepository) CreateGuarded(ctx context.Context, shift *models.Shift, collides func(models.Shift) bool) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create shift: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.guardOverlap(ctx, tx, shift, "", collides); err != nil {
		return err
	}

	if shift.ID == "" {
		shift.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if shift.CreatedAt.IsZero() {
		shift.CreatedAt = now
	}
	shift.UpdatedAt = now
	shift.Version = 1

	const query = `INSERT INTO shifts (id, template_id, location_id, shift_date, start_at, end_at, duration_hours, work_minutes, break_minutes,
is_night_shift, is_weekend, is_holiday, is_tet_holiday, holiday_name, status, required_guards, required_level, allow_overlap, version, created_at, updated_at)
VALUES (:id, :template_id, :location_id, :shift_date, :start_at, :end_at, :duration_hours, :work_minutes, :break_minutes,
:is_night_shift, :is_weekend, :is_holiday, :is_tet_holiday, :holiday_name, :status, :required_guards, :required_level, :allow_overlap, :version, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, shift); err != nil {
		return fmt.Errorf("create shift: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create shift: %w", err)
	}
	return nil
}

// UpdateGuarded rewrites a shift's time fields after re-running the overlap
// guard (excluding the shift itself) and bumps the version counter. A stale
// expected version surfaces as *models.ShiftVersionError.
func (r *ShiftRepository) UpdateGuarded(ctx context.Context, shift *models.Shift, expectedVersion int, collides func(models.Shift) bool) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update shift: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.guardOverlap(ctx, tx, shift, shift.ID, collides); err != nil {
		return err
	}

	shift.UpdatedAt = time.Now().UTC()
	shift.Version = expectedVersion + 1

	const query = `UPDATE shifts SET template_id = :template_id, location_id = :location_id, shift_date = :shift_date,
start_at = :start_at, end_at = :end_at, duration_hours = :duration_hours, work_minutes = :work_minutes, break_minutes = :break_minutes,
is_night_shift = :is_night_shift, is_weekend = :is_weekend, is_holiday = :is_holiday, is_tet_holiday = :is_tet_holiday, holiday_name = :holiday_name,
status = :status, required_guards = :required_guards, required_level = :required_level, allow_overlap = :allow_overlap,
version = :version, updated_at = :updated_at
WHERE id = :id AND version = :expected_version`

	res, execErr := tx.NamedExecContext(ctx, query, struct {
		*models.Shift
		ExpectedVersion int `db:"expected_version"`
	}{shift, expectedVersion})
	if execErr != nil {
		err = fmt.Errorf("update shift: %w", execErr)
		return err
	}
	affected, raErr := res.RowsAffected()
	if raErr != nil {
		err = fmt.Errorf("update shift rows affected: %w", raErr)
		return err
	}
	if affected == 0 {
		err = &models.ShiftVersionError{ShiftID: shift.ID, ExpectedVersion: expectedVersion}
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update shift: %w", err)
	}
	return nil
}

// Cancel soft-deletes a shift by moving it to CANCELLED.
func (r *ShiftRepository) Cancel(ctx context.Context, id string) error {
	const query = `UPDATE shifts SET status = $2, version = version + 1, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.ShiftStatusCancelled); err != nil {
		return fmt.Errorf("cancel shift: %w", err)
	}
	return nil
}

func (r *ShiftRepository) guardOverlap(ctx context.Context, tx *sqlx.Tx, shift *models.Shift, excludeID string, collides func(models.Shift) bool) error {
	if collides == nil || shift.AllowOverlap {
		return nil
	}

	query := fmt.Sprintf(`SELECT %s FROM shifts WHERE location_id = $1 AND shift_date = $2 AND status <> $3 FOR UPDATE`, shiftColumns)
	var candidates []models.Shift
	if err := tx.SelectContext(ctx, &candidates, query, shift.LocationID, shift.ShiftDate, models.ShiftStatusCancelled); err != nil {
		return fmt.Errorf("load overlap candidates: %w", err)
	}

	var collisions []models.ShiftCollision
	for _, existing := range candidates {
		if existing.ID == excludeID || existing.AllowOverlap {
			continue
		}
		if collides(existing) {
			collisions = append(collisions, models.ShiftCollision{ShiftID: existing.ID, StartAt: existing.StartAt, EndAt: existing.EndAt})
		}
	}
	if len(collisions) > 0 {
		return &models.ShiftOverlapError{LocationID: shift.LocationID, ShiftDate: shift.ShiftDate, Collisions: collisions}
	}
	return nil
}
