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

const assignmentColumns = `id, shift_id, guard_id, team_id, assignment_type, is_replacement, replaced_guard_id, status,
assigned_at, confirmed_at, declined_at, checked_in_at, checked_out_at, completed_at, no_show_at, cancelled_at,
status_reason, notified, reminder_sent, performance_note, rating, created_at, updated_at`

const assignmentDetailColumns = `a.id, a.shift_id, a.guard_id, a.team_id, a.assignment_type, a.is_replacement, a.replaced_guard_id, a.status,
a.assigned_at, a.confirmed_at, a.declined_at, a.checked_in_at, a.checked_out_at, a.completed_at, a.no_show_at, a.cancelled_at,
a.status_reason, a.notified, a.reminder_sent, a.performance_note, a.rating, a.created_at, a.updated_at,
s.shift_date, s.start_at AS shift_start_at, s.end_at AS shift_end_at, s.location_id, s.work_minutes, s.required_level`

// ShiftAssignmentRepository provides persistence for guard-to-shift
// assignments. Mutations that change team membership recount the team's
// counters inside the same transaction.
type ShiftAssignmentRepository struct {
	db *sqlx.DB
}

// NewShiftAssignmentRepository creates a new assignment repository.
func NewShiftAssignmentRepository(db *sqlx.DB) *ShiftAssignmentRepository {
	return &ShiftAssignmentRepository{db: db}
}

// FindByID loads an assignment by id.
func (r *ShiftAssignmentRepository) FindByID(ctx context.Context, id string) (*models.ShiftAssignment, error) {
	query := fmt.Sprintf("SELECT %s FROM shift_assignments WHERE id = $1", assignmentColumns)
	var assignment models.ShiftAssignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// List returns assignments with optional filtering and pagination.
func (r *ShiftAssignmentRepository) List(ctx context.Context, filter models.AssignmentFilter) ([]models.ShiftAssignment, int, error) {
	base := "FROM shift_assignments WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.ShiftID != "" {
		conditions = append(conditions, fmt.Sprintf("shift_id = $%d", len(args)+1))
		args = append(args, filter.ShiftID)
	}
	if filter.GuardID != "" {
		conditions = append(conditions, fmt.Sprintf("guard_id = $%d", len(args)+1))
		args = append(args, filter.GuardID)
	}
	if filter.TeamID != "" {
		conditions = append(conditions, fmt.Sprintf("team_id = $%d", len(args)+1))
		args = append(args, filter.TeamID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY assigned_at DESC LIMIT %d OFFSET %d", assignmentColumns, base, size, offset)
	var assignments []models.ShiftAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assignments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count assignments: %w", err)
	}

	return assignments, total, nil
}

// FindActiveByShiftAndGuard returns the guard's non-released assignment on a
// shift, if any. At most one such row may exist per guard and shift.
func (r *ShiftAssignmentRepository) FindActiveByShiftAndGuard(ctx context.Context, shiftID, guardID string) (*models.ShiftAssignment, error) {
	query := fmt.Sprintf(`SELECT %s FROM shift_assignments WHERE shift_id = $1 AND guard_id = $2 AND status NOT IN ($3, $4) LIMIT 1`, assignmentColumns)
	var assignment models.ShiftAssignment
	if err := r.db.GetContext(ctx, &assignment, query, shiftID, guardID, models.AssignmentStatusCancelled, models.AssignmentStatusDeclined); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// CountActiveByShift returns how many guards currently occupy the shift.
func (r *ShiftAssignmentRepository) CountActiveByShift(ctx context.Context, shiftID string) (int, error) {
	const query = `SELECT COUNT(*) FROM shift_assignments WHERE shift_id = $1 AND status NOT IN ($2, $3)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, shiftID, models.AssignmentStatusCancelled, models.AssignmentStatusDeclined); err != nil {
		return 0, fmt.Errorf("count active assignments: %w", err)
	}
	return count, nil
}

// ListActiveDetailsByGuard returns the guard's active assignments joined with
// shift timing inside the window, ordered by shift start.
func (r *ShiftAssignmentRepository) ListActiveDetailsByGuard(ctx context.Context, guardID string, from, to time.Time) ([]models.AssignmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM shift_assignments a
JOIN shifts s ON s.id = a.shift_id
WHERE a.guard_id = $1 AND a.status NOT IN ($2, $3) AND s.status <> $4 AND s.start_at < $6 AND s.end_at > $5
ORDER BY s.start_at ASC`, assignmentDetailColumns)
	var details []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &details, query, guardID, models.AssignmentStatusCancelled, models.AssignmentStatusDeclined, models.ShiftStatusCancelled, from, to); err != nil {
		return nil, fmt.Errorf("list active assignment details: %w", err)
	}
	return details, nil
}

// ListActiveGuardsByLocation returns distinct guard ids holding active
// assignments at a location within the window.
func (r *ShiftAssignmentRepository) ListActiveGuardsByLocation(ctx context.Context, locationID string, from, to time.Time) ([]string, error) {
	const query = `SELECT DISTINCT a.guard_id FROM shift_assignments a
JOIN shifts s ON s.id = a.shift_id
WHERE s.location_id = $1 AND a.status NOT IN ($2, $3) AND s.status <> $4 AND s.start_at < $6 AND s.end_at > $5`
	var guardIDs []string
	if err := r.db.SelectContext(ctx, &guardIDs, query, locationID, models.AssignmentStatusCancelled, models.AssignmentStatusDeclined, models.ShiftStatusCancelled, from, to); err != nil {
		return nil, fmt.Errorf("list active guards by location: %w", err)
	}
	return guardIDs, nil
}

// SumWorkMinutesForMonth totals the guard's scheduled work minutes across
// active assignments in the calendar month containing ref.
func (r *ShiftAssignmentRepository) SumWorkMinutesForMonth(ctx context.Context, guardID string, ref time.Time) (int, error) {
	monthStart := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	const query = `SELECT COALESCE(SUM(s.work_minutes), 0) FROM shift_assignments a
JOIN shifts s ON s.id = a.shift_id
WHERE a.guard_id = $1 AND a.status NOT IN ($2, $3) AND s.status <> $4 AND s.shift_date >= $5 AND s.shift_date < $6`
	var total int
	if err := r.db.GetContext(ctx, &total, query, guardID, models.AssignmentStatusCancelled, models.AssignmentStatusDeclined, models.ShiftStatusCancelled, monthStart, monthEnd); err != nil {
		return 0, fmt.Errorf("sum work minutes: %w", err)
	}
	return total, nil
}

// HasActiveOverlapping reports whether the guard holds an active assignment
// whose shift overlaps the window, excluding the given shift.
func (r *ShiftAssignmentRepository) HasActiveOverlapping(ctx context.Context, guardID string, start, end time.Time, excludeShiftID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM shift_assignments a
JOIN shifts s ON s.id = a.shift_id
WHERE a.guard_id = $1 AND a.status NOT IN ($2, $3) AND s.status <> $4 AND s.id <> $5 AND s.start_at < $7 AND s.end_at > $6)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, guardID, models.AssignmentStatusCancelled, models.AssignmentStatusDeclined, models.ShiftStatusCancelled, excludeShiftID, start, end); err != nil {
		return false, fmt.Errorf("check overlapping assignment: %w", err)
	}
	return exists, nil
}

// Create inserts an assignment and recounts the team's counters in the same
// transaction when the assignment is team-bound.
func (r *ShiftAssignmentRepository) Create(ctx context.Context, assignment *models.ShiftAssignment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create assignment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.insertAssignment(ctx, tx, assignment); err != nil {
		return err
	}

	if assignment.TeamID != nil {
		if err = recountTeam(ctx, tx, *assignment.TeamID); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create assignment: %w", err)
	}
	return nil
}

// UpdateStatus persists a lifecycle transition together with its audit
// timestamps, recounting the team when the transition releases the slot.
func (r *ShiftAssignmentRepository) UpdateStatus(ctx context.Context, assignment *models.ShiftAssignment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update assignment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.updateAssignment(ctx, tx, assignment); err != nil {
		return err
	}

	if assignment.TeamID != nil && !assignment.Status.Active() {
		if err = recountTeam(ctx, tx, *assignment.TeamID); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update assignment: %w", err)
	}
	return nil
}

// Replace cancels the replaced assignment and inserts its replacement as one
// atomic unit.
func (r *ShiftAssignmentRepository) Replace(ctx context.Context, replacement *models.ShiftAssignment, replaced *models.ShiftAssignment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace assignment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.updateAssignment(ctx, tx, replaced); err != nil {
		return err
	}
	if err = r.insertAssignment(ctx, tx, replacement); err != nil {
		return err
	}

	for _, teamID := range []*string{replaced.TeamID, replacement.TeamID} {
		if teamID != nil {
			if err = recountTeam(ctx, tx, *teamID); err != nil {
				return err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace assignment: %w", err)
	}
	return nil
}

func (r *ShiftAssignmentRepository) insertAssignment(ctx context.Context, tx *sqlx.Tx, assignment *models.ShiftAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = now
	}
	assignment.UpdatedAt = now

	const query = `INSERT INTO shift_assignments (id, shift_id, guard_id, team_id, assignment_type, is_replacement, replaced_guard_id, status,
assigned_at, confirmed_at, declined_at, checked_in_at, checked_out_at, completed_at, no_show_at, cancelled_at,
status_reason, notified, reminder_sent, performance_note, rating, created_at, updated_at)
VALUES (:id, :shift_id, :guard_id, :team_id, :assignment_type, :is_replacement, :replaced_guard_id, :status,
:assigned_at, :confirmed_at, :declined_at, :checked_in_at, :checked_out_at, :completed_at, :no_show_at, :cancelled_at,
:status_reason, :notified, :reminder_sent, :performance_note, :rating, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

func (r *ShiftAssignmentRepository) updateAssignment(ctx context.Context, tx *sqlx.Tx, assignment *models.ShiftAssignment) error {
	assignment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE shift_assignments SET status = :status,
confirmed_at = :confirmed_at, declined_at = :declined_at, checked_in_at = :checked_in_at, checked_out_at = :checked_out_at,
completed_at = :completed_at, no_show_at = :no_show_at, cancelled_at = :cancelled_at, status_reason = :status_reason,
notified = :notified, reminder_sent = :reminder_sent, performance_note = :performance_note, rating = :rating,
updated_at = :updated_at
WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return nil
}
