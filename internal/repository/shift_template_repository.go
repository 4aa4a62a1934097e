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

const templateColumns = `id, contract_id, code, name, start_time, end_time, duration_hours, break_minutes, paid_break,
is_night_shift, crosses_midnight, monday, tuesday, wednesday, thursday, friday, saturday, sunday,
required_level, min_guards, max_guards, optimal_guards, location_id, effective_from, effective_to,
status, active, created_at, updated_at`

// ShiftTemplateRepository provides persistence for shift templates.
type ShiftTemplateRepository struct {
	db *sqlx.DB
}

// NewShiftTemplateRepository creates a new template repository.
func NewShiftTemplateRepository(db *sqlx.DB) *ShiftTemplateRepository {
	return &ShiftTemplateRepository{db: db}
}

// FindByID loads a template by id, including soft-deleted ones.
func (r *ShiftTemplateRepository) FindByID(ctx context.Context, id string) (*models.ShiftTemplate, error) {
	query := fmt.Sprintf("SELECT %s FROM shift_templates WHERE id = $1", templateColumns)
	var tpl models.ShiftTemplate
	if err := r.db.GetContext(ctx, &tpl, query, id); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// FindByCode loads the non-deleted template carrying the derived code.
func (r *ShiftTemplateRepository) FindByCode(ctx context.Context, code string) (*models.ShiftTemplate, error) {
	query := fmt.Sprintf("SELECT %s FROM shift_templates WHERE code = $1 AND active = TRUE", templateColumns)
	var tpl models.ShiftTemplate
	if err := r.db.GetContext(ctx, &tpl, query, code); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// List returns templates with optional filtering and pagination.
func (r *ShiftTemplateRepository) List(ctx context.Context, filter models.TemplateFilter) ([]models.ShiftTemplate, int, error) {
	base := "FROM shift_templates WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.ContractID != "" {
		conditions = append(conditions, fmt.Sprintf("contract_id = $%d", len(args)+1))
		args = append(args, filter.ContractID)
	}
	if filter.LocationID != "" {
		conditions = append(conditions, fmt.Sprintf("location_id = $%d", len(args)+1))
		args = append(args, filter.LocationID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY code ASC LIMIT %d OFFSET %d", templateColumns, base, size, offset)
	var templates []models.ShiftTemplate
	if err := r.db.SelectContext(ctx, &templates, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list shift templates: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count shift templates: %w", err)
	}

	return templates, total, nil
}

// Create stores a new template record.
func (r *ShiftTemplateRepository) Create(ctx context.Context, tpl *models.ShiftTemplate) error {
	if tpl.ID == "" {
		tpl.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = now
	}
	tpl.UpdatedAt = now

	const query = `INSERT INTO shift_templates (id, contract_id, code, name, start_time, end_time, duration_hours, break_minutes, paid_break,
is_night_shift, crosses_midnight, monday, tuesday, wednesday, thursday, friday, saturday, sunday,
required_level, min_guards, max_guards, optimal_guards, location_id, effective_from, effective_to, status, active, created_at, updated_at)
VALUES (:id, :contract_id, :code, :name, :start_time, :end_time, :duration_hours, :break_minutes, :paid_break,
:is_night_shift, :crosses_midnight, :monday, :tuesday, :wednesday, :thursday, :friday, :saturday, :sunday,
:required_level, :min_guards, :max_guards, :optimal_guards, :location_id, :effective_from, :effective_to, :status, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tpl); err != nil {
		return fmt.Errorf("create shift template: %w", err)
	}
	return nil
}

// Update overwrites the schedule fields of an existing template.
func (r *ShiftTemplateRepository) Update(ctx context.Context, tpl *models.ShiftTemplate) error {
	tpl.UpdatedAt = time.Now().UTC()
	const query = `UPDATE shift_templates SET contract_id = :contract_id, name = :name, start_time = :start_time, end_time = :end_time,
duration_hours = :duration_hours, break_minutes = :break_minutes, paid_break = :paid_break,
is_night_shift = :is_night_shift, crosses_midnight = :crosses_midnight,
monday = :monday, tuesday = :tuesday, wednesday = :wednesday, thursday = :thursday, friday = :friday, saturday = :saturday, sunday = :sunday,
required_level = :required_level, min_guards = :min_guards, max_guards = :max_guards, optimal_guards = :optimal_guards,
location_id = :location_id, effective_from = :effective_from, effective_to = :effective_to,
status = :status, active = :active, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, tpl); err != nil {
		return fmt.Errorf("update shift template: %w", err)
	}
	return nil
}

// Deactivate soft-deletes a template; rows are never removed.
func (r *ShiftTemplateRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE shift_templates SET active = FALSE, status = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.TemplateStatusRetired); err != nil {
		return fmt.Errorf("deactivate shift template: %w", err)
	}
	return nil
}
