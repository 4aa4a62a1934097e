package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vgs-ops/shift-ops-api/internal/models"
)

// LeaveRepository provides read access to approved absence records.
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository creates a new leave repository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

// ListApprovedByGuard returns the guard's approved leave periods touching
// the date window.
func (r *LeaveRepository) ListApprovedByGuard(ctx context.Context, guardID string, from, to time.Time) ([]models.LeavePeriod, error) {
	const query = `SELECT id, guard_id, start_date, end_date, leave_type, approved, created_at
FROM leave_periods WHERE guard_id = $1 AND approved = TRUE AND start_date <= $3 AND end_date >= $2
ORDER BY start_date ASC`
	var periods []models.LeavePeriod
	if err := r.db.SelectContext(ctx, &periods, query, guardID, from, to); err != nil {
		return nil, fmt.Errorf("list approved leave periods: %w", err)
	}
	return periods, nil
}
