package models

import (
	"fmt"
	"time"
)

// AssignmentStatus is the lifecycle state of a guard's assignment to a shift.
type AssignmentStatus string

const (
	AssignmentStatusAssigned   AssignmentStatus = "ASSIGNED"
	AssignmentStatusConfirmed  AssignmentStatus = "CONFIRMED"
	AssignmentStatusDeclined   AssignmentStatus = "DECLINED"
	AssignmentStatusCheckedIn  AssignmentStatus = "CHECKED_IN"
	AssignmentStatusCheckedOut AssignmentStatus = "CHECKED_OUT"
	AssignmentStatusCompleted  AssignmentStatus = "COMPLETED"
	AssignmentStatusNoShow     AssignmentStatus = "NO_SHOW"
	AssignmentStatusCancelled  AssignmentStatus = "CANCELLED"
)

// assignmentTransitions is the closed transition table for the lifecycle.
// NO_SHOW and CANCELLED are reachable from any non-terminal state and no
// state is ever re-entered.
var assignmentTransitions = map[AssignmentStatus][]AssignmentStatus{
	AssignmentStatusAssigned:   {AssignmentStatusConfirmed, AssignmentStatusDeclined, AssignmentStatusCheckedIn, AssignmentStatusNoShow, AssignmentStatusCancelled},
	AssignmentStatusConfirmed:  {AssignmentStatusCheckedIn, AssignmentStatusNoShow, AssignmentStatusCancelled},
	AssignmentStatusCheckedIn:  {AssignmentStatusCheckedOut, AssignmentStatusNoShow, AssignmentStatusCancelled},
	AssignmentStatusCheckedOut: {AssignmentStatusCompleted, AssignmentStatusNoShow, AssignmentStatusCancelled},
	AssignmentStatusDeclined:   nil,
	AssignmentStatusCompleted:  nil,
	AssignmentStatusNoShow:     nil,
	AssignmentStatusCancelled:  nil,
}

// CanTransitionTo reports whether the lifecycle allows moving to next.
func (s AssignmentStatus) CanTransitionTo(next AssignmentStatus) bool {
	for _, allowed := range assignmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status ends the lifecycle.
func (s AssignmentStatus) Terminal() bool {
	return len(assignmentTransitions[s]) == 0
}

// Active reports whether the assignment still occupies the guard's slot.
func (s AssignmentStatus) Active() bool {
	return s != AssignmentStatusCancelled && s != AssignmentStatusDeclined
}

// InvalidTransitionError is returned on a lifecycle transition the state
// machine does not allow.
type InvalidTransitionError struct {
	AssignmentID string           `json:"assignment_id"`
	From         AssignmentStatus `json:"from"`
	To           AssignmentStatus `json:"to"`
}

// Error implements the error interface.
func (e *InvalidTransitionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("assignment %s cannot transition from %s to %s", e.AssignmentID, e.From, e.To)
}

// AssignmentType classifies why the guard was put on the shift.
type AssignmentType string

const (
	AssignmentTypeRegular     AssignmentType = "REGULAR"
	AssignmentTypeOvertime    AssignmentType = "OVERTIME"
	AssignmentTypeReplacement AssignmentType = "REPLACEMENT"
	AssignmentTypeEmergency   AssignmentType = "EMERGENCY"
	AssignmentTypeVoluntary   AssignmentType = "VOLUNTARY"
	AssignmentTypeMandatory   AssignmentType = "MANDATORY"
)

// ValidAssignmentType reports whether t is a known assignment type.
func ValidAssignmentType(t AssignmentType) bool {
	switch t {
	case AssignmentTypeRegular, AssignmentTypeOvertime, AssignmentTypeReplacement,
		AssignmentTypeEmergency, AssignmentTypeVoluntary, AssignmentTypeMandatory:
		return true
	default:
		return false
	}
}

// ShiftAssignment binds one guard to one shift. Each lifecycle state stamps
// its own timestamp column so the transition history stays auditable.
type ShiftAssignment struct {
	ID              string           `db:"id" json:"id"`
	ShiftID         string           `db:"shift_id" json:"shift_id"`
	GuardID         string           `db:"guard_id" json:"guard_id"`
	TeamID          *string          `db:"team_id" json:"team_id,omitempty"`
	Type            AssignmentType   `db:"assignment_type" json:"assignment_type"`
	IsReplacement   bool             `db:"is_replacement" json:"is_replacement"`
	ReplacedGuardID *string          `db:"replaced_guard_id" json:"replaced_guard_id,omitempty"`
	Status          AssignmentStatus `db:"status" json:"status"`
	AssignedAt      time.Time        `db:"assigned_at" json:"assigned_at"`
	ConfirmedAt     *time.Time       `db:"confirmed_at" json:"confirmed_at,omitempty"`
	DeclinedAt      *time.Time       `db:"declined_at" json:"declined_at,omitempty"`
	CheckedInAt     *time.Time       `db:"checked_in_at" json:"checked_in_at,omitempty"`
	CheckedOutAt    *time.Time       `db:"checked_out_at" json:"checked_out_at,omitempty"`
	CompletedAt     *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
	NoShowAt        *time.Time       `db:"no_show_at" json:"no_show_at,omitempty"`
	CancelledAt     *time.Time       `db:"cancelled_at" json:"cancelled_at,omitempty"`
	StatusReason    *string          `db:"status_reason" json:"status_reason,omitempty"`
	Notified        bool             `db:"notified" json:"notified"`
	ReminderSent    bool             `db:"reminder_sent" json:"reminder_sent"`
	PerformanceNote *string          `db:"performance_note" json:"performance_note,omitempty"`
	Rating          *int             `db:"rating" json:"rating,omitempty"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at" json:"updated_at"`
}

// AssignmentFilter describes query params for listing assignments.
type AssignmentFilter struct {
	ShiftID  string
	GuardID  string
	TeamID   string
	Status   AssignmentStatus
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	PageSize int
}

// AssignmentDetail joins an assignment with its shift timing for
// conflict scans and roster views.
type AssignmentDetail struct {
	ShiftAssignment
	ShiftDate     time.Time `db:"shift_date" json:"shift_date"`
	ShiftStartAt  time.Time `db:"shift_start_at" json:"shift_start_at"`
	ShiftEndAt    time.Time `db:"shift_end_at" json:"shift_end_at"`
	LocationID    string    `db:"location_id" json:"location_id"`
	WorkMinutes   int       `db:"work_minutes" json:"work_minutes"`
	RequiredLevel int       `db:"required_level" json:"required_level"`
}
