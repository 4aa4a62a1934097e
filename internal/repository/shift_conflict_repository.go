package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vgs-ops/shift-ops-api/internal/models"
)

const conflictColumns = `id, conflict_type, severity, guard_id, shift_id, second_shift_id, assignment_id, description,
detected_at, resolution, resolved_by, resolved_at, resolution_notes, auto_resolvable, suggested_action, created_at, updated_at`

// ShiftConflictRepository provides persistence for detected conflicts.
type ShiftConflictRepository struct {
	db *sqlx.DB
}

// NewShiftConflictRepository creates a new conflict repository.
func NewShiftConflictRepository(db *sqlx.DB) *ShiftConflictRepository {
	return &ShiftConflictRepository{db: db}
}

// FindByID loads a conflict by id.
func (r *ShiftConflictRepository) FindByID(ctx context.Context, id string) (*models.ShiftConflict, error) {
	query := fmt.Sprintf("SELECT %s FROM shift_conflicts WHERE id = $1", conflictColumns)
	var conflict models.ShiftConflict
	if err := r.db.GetContext(ctx, &conflict, query, id); err != nil {
		return nil, err
	}
	return &conflict, nil
}

// FindOpenByKey returns the OPEN conflict matching guard+shift-pair+type, or
// nil when detection has not recorded one yet. Keeps re-detection idempotent.
func (r *ShiftConflictRepository) FindOpenByKey(ctx context.Context, conflictType models.ConflictType, guardID, shiftID string, secondShiftID *string) (*models.ShiftConflict, error) {
	query := fmt.Sprintf(`SELECT %s FROM shift_conflicts
WHERE conflict_type = $1 AND guard_id = $2 AND shift_id = $3 AND second_shift_id IS NOT DISTINCT FROM $4 AND resolution = $5
LIMIT 1`, conflictColumns)
	var conflict models.ShiftConflict
	err := r.db.GetContext(ctx, &conflict, query, conflictType, guardID, shiftID, secondShiftID, models.ConflictResolutionOpen)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find open conflict: %w", err)
	}
	return &conflict, nil
}

// List returns conflicts with optional filtering and pagination.
func (r *ShiftConflictRepository) List(ctx context.Context, filter models.ConflictFilter) ([]models.ShiftConflict, int, error) {
	base := "FROM shift_conflicts WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.GuardID != "" {
		conditions = append(conditions, fmt.Sprintf("guard_id = $%d", len(args)+1))
		args = append(args, filter.GuardID)
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("conflict_type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.Severity != "" {
		conditions = append(conditions, fmt.Sprintf("severity = $%d", len(args)+1))
		args = append(args, filter.Severity)
	}
	if filter.Resolution != "" {
		conditions = append(conditions, fmt.Sprintf("resolution = $%d", len(args)+1))
		args = append(args, filter.Resolution)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("detected_at >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("detected_at <= $%d", len(args)+1))
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY detected_at DESC LIMIT %d OFFSET %d", conflictColumns, base, size, offset)
	var conflicts []models.ShiftConflict
	if err := r.db.SelectContext(ctx, &conflicts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list conflicts: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count conflicts: %w", err)
	}

	return conflicts, total, nil
}

// Create appends a new conflict finding.
func (r *ShiftConflictRepository) Create(ctx context.Context, conflict *models.ShiftConflict) error {
	if conflict.ID == "" {
		conflict.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if conflict.CreatedAt.IsZero() {
		conflict.CreatedAt = now
	}
	if conflict.DetectedAt.IsZero() {
		conflict.DetectedAt = now
	}
	conflict.UpdatedAt = now

	const query = `INSERT INTO shift_conflicts (id, conflict_type, severity, guard_id, shift_id, second_shift_id, assignment_id, description,
detected_at, resolution, resolved_by, resolved_at, resolution_notes, auto_resolvable, suggested_action, created_at, updated_at)
VALUES (:id, :conflict_type, :severity, :guard_id, :shift_id, :second_shift_id, :assignment_id, :description,
:detected_at, :resolution, :resolved_by, :resolved_at, :resolution_notes, :auto_resolvable, :suggested_action, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, conflict); err != nil {
		return fmt.Errorf("create conflict: %w", err)
	}
	return nil
}

// UpdateResolution persists a human resolution decision.
func (r *ShiftConflictRepository) UpdateResolution(ctx context.Context, conflict *models.ShiftConflict) error {
	conflict.UpdatedAt = time.Now().UTC()
	const query = `UPDATE shift_conflicts SET resolution = :resolution, resolved_by = :resolved_by, resolved_at = :resolved_at,
resolution_notes = :resolution_notes, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, conflict); err != nil {
		return fmt.Errorf("update conflict resolution: %w", err)
	}
	return nil
}
