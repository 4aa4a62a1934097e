package models

import (
	"fmt"
	"strings"
	"time"
)

// ShiftStatus is the lifecycle state of a concrete shift occurrence.
type ShiftStatus string

const (
	ShiftStatusScheduled  ShiftStatus = "SCHEDULED"
	ShiftStatusInProgress ShiftStatus = "IN_PROGRESS"
	ShiftStatusCompleted  ShiftStatus = "COMPLETED"
	ShiftStatusCancelled  ShiftStatus = "CANCELLED"
)

// Shift is one dated occurrence of coverage at a location. Start/End are
// absolute instants: cross-midnight shifts have End on the following day.
type Shift struct {
	ID             string      `db:"id" json:"id"`
	TemplateID     *string     `db:"template_id" json:"template_id,omitempty"`
	LocationID     string      `db:"location_id" json:"location_id"`
	ShiftDate      time.Time   `db:"shift_date" json:"shift_date"`
	StartAt        time.Time   `db:"start_at" json:"start_at"`
	EndAt          time.Time   `db:"end_at" json:"end_at"`
	DurationHours  float64     `db:"duration_hours" json:"duration_hours"`
	WorkMinutes    int         `db:"work_minutes" json:"work_minutes"`
	BreakMinutes   int         `db:"break_minutes" json:"break_minutes"`
	IsNightShift   bool        `db:"is_night_shift" json:"is_night_shift"`
	IsWeekend      bool        `db:"is_weekend" json:"is_weekend"`
	IsHoliday      bool        `db:"is_holiday" json:"is_holiday"`
	IsTetHoliday   bool        `db:"is_tet_holiday" json:"is_tet_holiday"`
	HolidayName    *string     `db:"holiday_name" json:"holiday_name,omitempty"`
	Status         ShiftStatus `db:"status" json:"status"`
	RequiredGuards int         `db:"required_guards" json:"required_guards"`
	RequiredLevel  int         `db:"required_level" json:"required_level"`
	AllowOverlap   bool        `db:"allow_overlap" json:"allow_overlap"`
	Version        int         `db:"version" json:"version"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}

// ShiftFilter describes query params for listing shifts.
type ShiftFilter struct {
	LocationID string
	TemplateID string
	Status     ShiftStatus
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
}

// ShiftCollision identifies one existing shift that collides with a proposal.
type ShiftCollision struct {
	ShiftID string    `json:"shift_id"`
	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`
}

// ShiftOverlapError is returned when a proposed shift collides with existing
// shifts at the same location and date.
type ShiftOverlapError struct {
	LocationID string           `json:"location_id"`
	ShiftDate  time.Time        `json:"shift_date"`
	Collisions []ShiftCollision `json:"collisions"`
}

// Error implements the error interface.
func (e *ShiftOverlapError) Error() string {
	if e == nil {
		return "<nil>"
	}
	ids := make([]string, 0, len(e.Collisions))
	for _, c := range e.Collisions {
		ids = append(ids, c.ShiftID)
	}
	return fmt.Sprintf("shift overlaps %d existing shift(s) at location %s: %s",
		len(e.Collisions), e.LocationID, strings.Join(ids, ", "))
}

// ShiftVersionError is returned when an optimistic update loses the race.
type ShiftVersionError struct {
	ShiftID         string `json:"shift_id"`
	ExpectedVersion int    `json:"expected_version"`
}

// Error implements the error interface.
func (e *ShiftVersionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("shift %s was modified concurrently (expected version %d)", e.ShiftID, e.ExpectedVersion)
}
