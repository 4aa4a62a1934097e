package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vgs-ops/shift-ops-api/internal/models"
)

// TeamRepository provides read access to guard teams. Counter maintenance
// lives in recountTeam so every membership-changing transaction can reuse it.
type TeamRepository struct {
	db *sqlx.DB
}

// NewTeamRepository creates a new team repository.
func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// FindByID loads a team by id.
func (r *TeamRepository) FindByID(ctx context.Context, id string) (*models.Team, error) {
	const query = `SELECT id, name, manager_id, member_count, active_shift_count, created_at, updated_at FROM teams WHERE id = $1`
	var team models.Team
	if err := r.db.GetContext(ctx, &team, query, id); err != nil {
		return nil, err
	}
	return &team, nil
}

// recountTeam derives member_count and active_shift_count from their source
// tables rather than incrementing counters, so drift cannot accumulate.
func recountTeam(ctx context.Context, tx *sqlx.Tx, teamID string) error {
	const query = `UPDATE teams SET
member_count = (SELECT COUNT(*) FROM guards WHERE team_id = $1 AND status IN ($2, $3)),
active_shift_count = (SELECT COUNT(*) FROM shift_assignments a JOIN shifts s ON s.id = a.shift_id
	WHERE a.team_id = $1 AND a.status NOT IN ($4, $5) AND s.status <> $6),
updated_at = NOW()
WHERE id = $1`
	if _, err := tx.ExecContext(ctx, query, teamID,
		models.GuardStatusActive, models.GuardStatusProbation,
		models.AssignmentStatusCancelled, models.AssignmentStatusDeclined, models.ShiftStatusCancelled); err != nil {
		return fmt.Errorf("recount team %s: %w", teamID, err)
	}
	return nil
}
