package models

import "time"

// ConflictType enumerates the scheduling problems the detector can surface.
type ConflictType string

const (
	ConflictTypeDoubleBooking    ConflictType = "DOUBLE_BOOKING"
	ConflictTypeInsufficientRest ConflictType = "INSUFFICIENT_REST"
	ConflictTypeOvertimeLimit    ConflictType = "OVERTIME_LIMIT"
	ConflictTypeLeaveOverlap     ConflictType = "LEAVE_OVERLAP"
	ConflictTypeSkillMismatch    ConflictType = "SKILL_MISMATCH"
)

// ConflictSeverity ranks how urgently a conflict needs attention.
type ConflictSeverity string

const (
	ConflictSeverityLow      ConflictSeverity = "LOW"
	ConflictSeverityMedium   ConflictSeverity = "MEDIUM"
	ConflictSeverityHigh     ConflictSeverity = "HIGH"
	ConflictSeverityCritical ConflictSeverity = "CRITICAL"
)

// ConflictResolution is the human-driven resolution state of a conflict.
type ConflictResolution string

const (
	ConflictResolutionOpen       ConflictResolution = "OPEN"
	ConflictResolutionInProgress ConflictResolution = "IN_PROGRESS"
	ConflictResolutionResolved   ConflictResolution = "RESOLVED"
	ConflictResolutionIgnored    ConflictResolution = "IGNORED"
)

// ShiftConflict is an append-only finding produced by the conflict detector.
// Resolving one never mutates the underlying assignment; that stays a
// separate explicit operation.
type ShiftConflict struct {
	ID              string             `db:"id" json:"id"`
	Type            ConflictType       `db:"conflict_type" json:"conflict_type"`
	Severity        ConflictSeverity   `db:"severity" json:"severity"`
	GuardID         string             `db:"guard_id" json:"guard_id"`
	ShiftID         string             `db:"shift_id" json:"shift_id"`
	SecondShiftID   *string            `db:"second_shift_id" json:"second_shift_id,omitempty"`
	AssignmentID    *string            `db:"assignment_id" json:"assignment_id,omitempty"`
	Description     string             `db:"description" json:"description"`
	DetectedAt      time.Time          `db:"detected_at" json:"detected_at"`
	Resolution      ConflictResolution `db:"resolution" json:"resolution"`
	ResolvedBy      *string            `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time         `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolutionNotes *string            `db:"resolution_notes" json:"resolution_notes,omitempty"`
	AutoResolvable  bool               `db:"auto_resolvable" json:"auto_resolvable"`
	SuggestedAction *string            `db:"suggested_action" json:"suggested_action,omitempty"`
	CreatedAt       time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `db:"updated_at" json:"updated_at"`
}

// Key identifies the guard+shift-pair+type tuple used to keep re-detection
// idempotent: an OPEN conflict with the same key is never duplicated.
func (c *ShiftConflict) Key() string {
	second := ""
	if c.SecondShiftID != nil {
		second = *c.SecondShiftID
	}
	return string(c.Type) + "|" + c.GuardID + "|" + c.ShiftID + "|" + second
}

// ConflictFilter describes query params for listing conflicts.
type ConflictFilter struct {
	GuardID    string
	Type       ConflictType
	Severity   ConflictSeverity
	Resolution ConflictResolution
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	PageSize   int
}
