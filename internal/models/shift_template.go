package models

import "time"

// TemplateStatus tracks the downstream generation lifecycle of a template.
type TemplateStatus string

const (
	TemplateStatusAwaitCreateShift TemplateStatus = "AWAIT_CREATE_SHIFT"
	TemplateStatusActive           TemplateStatus = "ACTIVE"
	TemplateStatusRetired          TemplateStatus = "RETIRED"
)

// ShiftTemplate is a recurring shift definition derived from a contract's
// coverage requirement. Duration, night-shift and cross-midnight flags are
// derived at validation time and never trusted from caller input.
type ShiftTemplate struct {
	ID                 string         `db:"id" json:"id"`
	ContractID         string         `db:"contract_id" json:"contract_id"`
	Code               string         `db:"code" json:"code"`
	Name               string         `db:"name" json:"name"`
	StartTime          string         `db:"start_time" json:"start_time"`
	EndTime            string         `db:"end_time" json:"end_time"`
	DurationHours      float64        `db:"duration_hours" json:"duration_hours"`
	BreakMinutes       int            `db:"break_minutes" json:"break_minutes"`
	PaidBreak          bool           `db:"paid_break" json:"paid_break"`
	IsNightShift       bool           `db:"is_night_shift" json:"is_night_shift"`
	CrossesMidnight    bool           `db:"crosses_midnight" json:"crosses_midnight"`
	Monday             bool           `db:"monday" json:"monday"`
	Tuesday            bool           `db:"tuesday" json:"tuesday"`
	Wednesday          bool           `db:"wednesday" json:"wednesday"`
	Thursday           bool           `db:"thursday" json:"thursday"`
	Friday             bool           `db:"friday" json:"friday"`
	Saturday           bool           `db:"saturday" json:"saturday"`
	Sunday             bool           `db:"sunday" json:"sunday"`
	RequiredLevel      int            `db:"required_level" json:"required_level"`
	MinGuards          int            `db:"min_guards" json:"min_guards"`
	MaxGuards          int            `db:"max_guards" json:"max_guards"`
	OptimalGuards      int            `db:"optimal_guards" json:"optimal_guards"`
	LocationID         string         `db:"location_id" json:"location_id"`
	EffectiveFrom      time.Time      `db:"effective_from" json:"effective_from"`
	EffectiveTo        *time.Time     `db:"effective_to" json:"effective_to,omitempty"`
	Status             TemplateStatus `db:"status" json:"status"`
	Active             bool           `db:"active" json:"active"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// WeekdayCount returns how many weekdays the template applies to.
func (t *ShiftTemplate) WeekdayCount() int {
	count := 0
	for _, day := range []bool{t.Monday, t.Tuesday, t.Wednesday, t.Thursday, t.Friday, t.Saturday, t.Sunday} {
		if day {
			count++
		}
	}
	return count
}

// TemplateFilter describes query params for listing templates.
type TemplateFilter struct {
	ContractID string
	LocationID string
	Status     TemplateStatus
	Active     *bool
	Page       int
	PageSize   int
}

// TemplateValidationResult is the structured outcome of schedule validation.
type TemplateValidationResult struct {
	IsValid             bool     `json:"is_valid"`
	Errors              []string `json:"errors,omitempty"`
	Warnings            []string `json:"warnings,omitempty"`
	ActualDurationHours float64  `json:"actual_duration_hours"`
	CrossesMidnight     bool     `json:"crosses_midnight"`
	IsNightShift        bool     `json:"is_night_shift"`
}

// ImportAction describes what the importer did with one schedule item.
type ImportAction string

const (
	ImportActionCreated ImportAction = "CREATED"
	ImportActionUpdated ImportAction = "UPDATED"
	ImportActionSkipped ImportAction = "SKIPPED"
)

// ImportItemResult records the per-item outcome of a batch import.
type ImportItemResult struct {
	Code       string                    `json:"code"`
	Name       string                    `json:"name"`
	Action     ImportAction              `json:"action"`
	Reason     string                    `json:"reason,omitempty"`
	Validation *TemplateValidationResult `json:"validation,omitempty"`
}

// ImportReport summarises a whole import batch.
type ImportReport struct {
	Created    int                `json:"created"`
	Updated    int                `json:"updated"`
	Skipped    int                `json:"skipped"`
	CreatedIDs []string           `json:"created_ids,omitempty"`
	Items      []ImportItemResult `json:"items"`
}

// Success reports whether the batch produced at least one usable template.
func (r *ImportReport) Success() bool {
	return r.Created+r.Updated > 0
}
