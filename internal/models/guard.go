package models

import "time"

// GuardStatus is the employment status of a guard on the roster.
type GuardStatus string

const (
	GuardStatusActive    GuardStatus = "ACTIVE"
	GuardStatusProbation GuardStatus = "PROBATION"
	GuardStatusSuspended GuardStatus = "SUSPENDED"
	GuardStatusInactive  GuardStatus = "INACTIVE"
)

// Eligible reports whether the guard may take new assignments.
func (s GuardStatus) Eligible() bool {
	return s == GuardStatusActive || s == GuardStatusProbation
}

// Guard is a roster entry consulted for eligibility and skill checks.
type Guard struct {
	ID                 string      `db:"id" json:"id"`
	EmployeeCode       string      `db:"employee_code" json:"employee_code"`
	FullName           string      `db:"full_name" json:"full_name"`
	CertificationLevel int         `db:"certification_level" json:"certification_level"`
	Status             GuardStatus `db:"status" json:"status"`
	TeamID             *string     `db:"team_id" json:"team_id,omitempty"`
	ManagerID          *string     `db:"manager_id" json:"manager_id,omitempty"`
	CreatedAt          time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at" json:"updated_at"`
}

// Team groups guards under a manager; counters are recomputed
// authoritatively inside the same transaction as membership changes.
type Team struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	ManagerID      string    `db:"manager_id" json:"manager_id"`
	MemberCount    int       `db:"member_count" json:"member_count"`
	ActiveShiftCnt int       `db:"active_shift_count" json:"active_shift_count"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// LeavePeriod is an approved absence window for a guard.
type LeavePeriod struct {
	ID        string    `db:"id" json:"id"`
	GuardID   string    `db:"guard_id" json:"guard_id"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	LeaveType string    `db:"leave_type" json:"leave_type"`
	Approved  bool      `db:"approved" json:"approved"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Covers reports whether the leave period includes the given date.
func (l *LeavePeriod) Covers(date time.Time) bool {
	day := date.Truncate(24 * time.Hour)
	return !day.Before(l.StartDate.Truncate(24*time.Hour)) && !day.After(l.EndDate.Truncate(24*time.Hour))
}
