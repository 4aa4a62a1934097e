package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vgs-ops/shift-ops-api/internal/models"
)

const guardColumns = `id, employee_code, full_name, certification_level, status, team_id, manager_id, created_at, updated_at`

// GuardRepository provides read access to the guard roster.
type GuardRepository struct {
	db *sqlx.DB
}

// NewGuardRepository creates a new guard repository.
func NewGuardRepository(db *sqlx.DB) *GuardRepository {
	return &GuardRepository{db: db}
}

// FindByID loads a guard by id.
func (r *GuardRepository) FindByID(ctx context.Context, id string) (*models.Guard, error) {
	query := fmt.Sprintf("SELECT %s FROM guards WHERE id = $1", guardColumns)
	var guard models.Guard
	if err := r.db.GetContext(ctx, &guard, query, id); err != nil {
		return nil, err
	}
	return &guard, nil
}

// FindAvailableReplacements returns eligible guards holding at least the
// required certification level with no active assignment overlapping the
// window. Used to propose auto-resolutions; never to mutate assignments.
func (r *GuardRepository) FindAvailableReplacements(ctx context.Context, requiredLevel int, start, end time.Time, excludeGuardID string, limit int) ([]models.Guard, error) {
	if limit <= 0 {
		limit = 5
	}
	query := fmt.Sprintf(`SELECT %s FROM guards g
WHERE g.certification_level >= $1 AND g.status IN ($2, $3) AND g.id <> $4
AND NOT EXISTS (
	SELECT 1 FROM shift_assignments a JOIN shifts s ON s.id = a.shift_id
	WHERE a.guard_id = g.id AND a.status NOT IN ($5, $6) AND s.status <> $7 AND s.start_at < $9 AND s.end_at > $8
)
ORDER BY g.certification_level ASC, g.full_name ASC
LIMIT %d`, guardColumns, limit)
	var guards []models.Guard
	if err := r.db.SelectContext(ctx, &guards, query,
		requiredLevel, models.GuardStatusActive, models.GuardStatusProbation, excludeGuardID,
		models.AssignmentStatusCancelled, models.AssignmentStatusDeclined, models.ShiftStatusCancelled,
		start, end); err != nil {
		return nil, fmt.Errorf("find available replacements: %w", err)
	}
	return guards, nil
}
