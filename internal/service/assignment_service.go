package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vgs-ops/shift-ops-api/internal/models"
	"github.com/vgs-ops/shift-ops-api/pkg/config"
	appErrors "github.com/vgs-ops/shift-ops-api/pkg/errors"
)

type assignmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.ShiftAssignment, error)
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.ShiftAssignment, int, error)
	FindActiveByShiftAndGuard(ctx context.Context, shiftID, guardID string) (*models.ShiftAssignment, error)
	CountActiveByShift(ctx context.Context, shiftID string) (int, error)
	HasActiveOverlapping(ctx context.Context, guardID string, start, end time.Time, excludeShiftID string) (bool, error)
	Create(ctx context.Context, assignment *models.ShiftAssignment) error
	UpdateStatus(ctx context.Context, assignment *models.ShiftAssignment) error
	Replace(ctx context.Context, replacement *models.ShiftAssignment, replaced *models.ShiftAssignment) error
}

type shiftReader interface {
	FindByID(ctx context.Context, id string) (*models.Shift, error)
}

type guardReader interface {
	FindByID(ctx context.Context, id string) (*models.Guard, error)
}

type teamReader interface {
	FindByID(ctx context.Context, id string) (*models.Team, error)
}

type notifier interface {
	Dispatch(event models.NotificationEvent)
}

// CreateAssignmentRequest describes payload for assigning a guard.
type CreateAssignmentRequest struct {
	ShiftID string                `json:"shift_id" validate:"required"`
	GuardID string                `json:"guard_id" validate:"required"`
	TeamID  *string               `json:"team_id"`
	Type    models.AssignmentType `json:"assignment_type" validate:"required"`
}

// ReplaceAssignmentRequest swaps the guard on an active assignment.
type ReplaceAssignmentRequest struct {
	NewGuardID string  `json:"new_guard_id" validate:"required"`
	TeamID     *string `json:"team_id"`
	Reason     string  `json:"reason" validate:"required"`
}

// AssignmentService governs the assignment lifecycle state machine, from
// creation through completion or cancellation.
type AssignmentService struct {
	assignments assignmentRepository
	shifts      shiftReader
	guards      guardReader
	teams       teamReader
	events      notifier
	policy      config.ScheduleConfig
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewAssignmentService instantiates AssignmentService.
func NewAssignmentService(
	assignments assignmentRepository,
	shifts shiftReader,
	guards guardReader,
	teams teamReader,
	events notifier,
	policy config.ScheduleConfig,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		assignments: assignments,
		shifts:      shifts,
		guards:      guards,
		teams:       teams,
		events:      events,
		policy:      policy,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// List returns assignments with pagination metadata.
func (s *AssignmentService) List(ctx context.Context, filter models.AssignmentFilter) ([]models.ShiftAssignment, *models.Pagination, error) {
	assignments, total, err := s.assignments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return assignments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Assign binds a guard to a shift after eligibility and capacity checks.
func (s *AssignmentService) Assign(ctx context.Context, req CreateAssignmentRequest) (*models.ShiftAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	if !models.ValidAssignmentType(req.Type) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown assignment type %q", req.Type))
	}

	shift, guard, err := s.loadShiftAndGuard(ctx, req.ShiftID, req.GuardID)
	if err != nil {
		return nil, err
	}
	if shift.Status == models.ShiftStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "cannot assign to a cancelled shift")
	}
	if !guard.Status.Eligible() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("guard %s is not eligible for assignments", guard.ID))
	}

	if err := s.ensureSlotFree(ctx, req.ShiftID, req.GuardID, shift); err != nil {
		return nil, err
	}

	occupied, err := s.assignments.CountActiveByShift(ctx, req.ShiftID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count shift occupancy")
	}
	if shift.RequiredGuards > 0 && occupied >= shift.RequiredGuards {
		return nil, appErrors.Clone(appErrors.ErrConflict, "shift is already fully staffed")
	}

	// An explicit team id must exist; the guard's own team is trusted.
	if err := s.ensureTeam(ctx, req.TeamID); err != nil {
		return nil, err
	}
	teamID := req.TeamID
	if teamID == nil {
		teamID = guard.TeamID
	}

	assignment := &models.ShiftAssignment{
		ShiftID:    req.ShiftID,
		GuardID:    req.GuardID,
		TeamID:     teamID,
		Type:       req.Type,
		Status:     models.AssignmentStatusAssigned,
		AssignedAt: s.now().UTC(),
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}

	s.metrics.RecordTransition(string(models.AssignmentStatusAssigned))
	s.notify(guard.ID, "ASSIGNMENT_CREATED", "New shift assignment",
		fmt.Sprintf("You have been assigned to a shift on %s", shift.ShiftDate.Format("2006-01-02")),
		models.NotificationPriorityNormal, map[string]interface{}{"shift_id": shift.ID, "assignment_id": assignment.ID})

	return assignment, nil
}

// Confirm moves an assignment to CONFIRMED.
func (s *AssignmentService) Confirm(ctx context.Context, id string) (*models.ShiftAssignment, error) {
	return s.transition(ctx, id, models.AssignmentStatusConfirmed, "")
}

// Decline releases the guard's slot with a mandatory reason.
func (s *AssignmentService) Decline(ctx context.Context, id, reason string) (*models.ShiftAssignment, error) {
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "declining an assignment requires a reason")
	}
	return s.transition(ctx, id, models.AssignmentStatusDeclined, reason)
}

// CheckIn records arrival. It requires prior confirmation (unless skipped by
// policy) and must happen inside the shift window plus the grace margin.
func (s *AssignmentService) CheckIn(ctx context.Context, id string) (*models.ShiftAssignment, error) {
	assignment, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if assignment.Status == models.AssignmentStatusAssigned && !s.policy.SkipConfirmation {
		return nil, appErrors.Clone(appErrors.ErrConflict, "assignment must be confirmed before check-in")
	}

	shift, err := s.shifts.FindByID(ctx, assignment.ShiftID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shift for check-in")
	}
	at := s.now().UTC()
	if at.Before(shift.StartAt.Add(-s.policy.CheckInGrace)) || at.After(shift.EndAt.Add(s.policy.CheckInGrace)) {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf(
			"check-in at %s is outside the shift window %s - %s (grace %s)",
			at.Format(time.RFC3339), shift.StartAt.Format(time.RFC3339), shift.EndAt.Format(time.RFC3339), s.policy.CheckInGrace))
	}

	return s.transition(ctx, id, models.AssignmentStatusCheckedIn, "")
}

// CheckOut records departure.
func (s *AssignmentService) CheckOut(ctx context.Context, id string) (*models.ShiftAssignment, error) {
	return s.transition(ctx, id, models.AssignmentStatusCheckedOut, "")
}

// Complete closes out a checked-out assignment.
func (s *AssignmentService) Complete(ctx context.Context, id string) (*models.ShiftAssignment, error) {
	return s.transition(ctx, id, models.AssignmentStatusCompleted, "")
}

// NoShow marks the guard as absent.
func (s *AssignmentService) NoShow(ctx context.Context, id, reason string) (*models.ShiftAssignment, error) {
	return s.transition(ctx, id, models.AssignmentStatusNoShow, reason)
}

// Cancel releases the guard's slot with a mandatory reason. The record is
// retained with its reason; rows are never hard-deleted.
func (s *AssignmentService) Cancel(ctx context.Context, id, reason string) (*models.ShiftAssignment, error) {
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cancelling an assignment requires a reason")
	}
	assignment, err := s.transition(ctx, id, models.AssignmentStatusCancelled, reason)
	if err != nil {
		return nil, err
	}
	s.notify(assignment.GuardID, "ASSIGNMENT_CANCELLED", "Shift assignment cancelled", reason,
		models.NotificationPriorityHigh, map[string]interface{}{"assignment_id": assignment.ID})
	return assignment, nil
}

// Replace cancels the given assignment and creates a replacement assignment
// for another guard as one atomic unit.
func (s *AssignmentService) Replace(ctx context.Context, id string, req ReplaceAssignmentRequest) (*models.ShiftAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid replacement payload")
	}

	replaced, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !replaced.Status.Active() {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only active assignments can be replaced")
	}
	if !replaced.Status.CanTransitionTo(models.AssignmentStatusCancelled) {
		return nil, s.invalidTransition(replaced, models.AssignmentStatusCancelled)
	}

	shift, newGuard, err := s.loadShiftAndGuard(ctx, replaced.ShiftID, req.NewGuardID)
	if err != nil {
		return nil, err
	}
	if !newGuard.Status.Eligible() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("guard %s is not eligible for assignments", newGuard.ID))
	}
	// The incoming guard is held to the same slot rules as a fresh
	// assignment; only the outgoing slot is exempt.
	if err := s.ensureSlotFree(ctx, replaced.ShiftID, req.NewGuardID, shift); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	replacedGuardID := replaced.GuardID
	reason := req.Reason

	stamp(replaced, models.AssignmentStatusCancelled, now)
	replaced.StatusReason = &reason

	if err := s.ensureTeam(ctx, req.TeamID); err != nil {
		return nil, err
	}
	teamID := req.TeamID
	if teamID == nil {
		teamID = newGuard.TeamID
	}
	replacement := &models.ShiftAssignment{
		ShiftID:         replaced.ShiftID,
		GuardID:         req.NewGuardID,
		TeamID:          teamID,
		Type:            models.AssignmentTypeReplacement,
		IsReplacement:   true,
		ReplacedGuardID: &replacedGuardID,
		Status:          models.AssignmentStatusAssigned,
		AssignedAt:      now,
	}

	if err := s.assignments.Replace(ctx, replacement, replaced); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace assignment")
	}

	s.metrics.RecordTransition(string(models.AssignmentStatusCancelled))
	s.metrics.RecordTransition(string(models.AssignmentStatusAssigned))
	s.notify(replacedGuardID, "ASSIGNMENT_REPLACED", "Shift assignment reassigned", reason,
		models.NotificationPriorityHigh, map[string]interface{}{"assignment_id": replaced.ID, "shift_id": shift.ID})
	s.notify(req.NewGuardID, "ASSIGNMENT_CREATED", "Replacement shift assignment",
		fmt.Sprintf("You are covering a shift on %s", shift.ShiftDate.Format("2006-01-02")),
		models.NotificationPriorityHigh, map[string]interface{}{"assignment_id": replacement.ID, "shift_id": shift.ID})

	return replacement, nil
}

func (s *AssignmentService) get(ctx context.Context, id string) (*models.ShiftAssignment, error) {
	assignment, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return assignment, nil
}

func (s *AssignmentService) loadShiftAndGuard(ctx context.Context, shiftID, guardID string) (*models.Shift, *models.Guard, error) {
	shift, err := s.shifts.FindByID(ctx, shiftID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "shift not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shift")
	}
	guard, err := s.guards.FindByID(ctx, guardID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "guard not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load guard")
	}
	return shift, guard, nil
}

// ensureSlotFree rejects the guard when they already occupy this shift or
// any other shift whose window overlaps it. Overlaps introduced later by
// shift time edits are the conflict detector's territory.
func (s *AssignmentService) ensureSlotFree(ctx context.Context, shiftID, guardID string, shift *models.Shift) error {
	if existing, err := s.assignments.FindActiveByShiftAndGuard(ctx, shiftID, guardID); err == nil && existing != nil {
		return appErrors.Clone(appErrors.ErrConflict, "guard already holds an active assignment on this shift")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing assignment")
	}

	overlapping, err := s.assignments.HasActiveOverlapping(ctx, guardID, shift.StartAt, shift.EndAt, shiftID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check overlapping assignments")
	}
	if overlapping {
		return appErrors.Clone(appErrors.ErrConflict, "guard already holds an active assignment overlapping this shift window")
	}
	return nil
}

func (s *AssignmentService) ensureTeam(ctx context.Context, teamID *string) error {
	if teamID == nil || s.teams == nil {
		return nil
	}
	if _, err := s.teams.FindByID(ctx, *teamID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "team not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load team")
	}
	return nil
}

func (s *AssignmentService) transition(ctx context.Context, id string, next models.AssignmentStatus, reason string) (*models.ShiftAssignment, error) {
	assignment, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !assignment.Status.CanTransitionTo(next) {
		return nil, s.invalidTransition(assignment, next)
	}

	stamp(assignment, next, s.now().UTC())
	if reason != "" {
		assignment.StatusReason = &reason
	}

	if err := s.assignments.UpdateStatus(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist transition")
	}
	s.metrics.RecordTransition(string(next))
	return assignment, nil
}

func (s *AssignmentService) invalidTransition(assignment *models.ShiftAssignment, next models.AssignmentStatus) error {
	err := &models.InvalidTransitionError{AssignmentID: assignment.ID, From: assignment.Status, To: next}
	return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, err.Error())
}

func (s *AssignmentService) notify(recipientID, action, title, message string, priority models.NotificationPriority, metadata map[string]interface{}) {
	if s.events == nil {
		return
	}
	s.events.Dispatch(models.NotificationEvent{
		RecipientID:   recipientID,
		RecipientType: "GUARD",
		Action:        action,
		Title:         title,
		Message:       message,
		Metadata:      metadata,
		Priority:      priority,
	})
}

// stamp applies the transition and its audit timestamp.
func stamp(assignment *models.ShiftAssignment, next models.AssignmentStatus, at time.Time) {
	assignment.Status = next
	switch next {
	case models.AssignmentStatusConfirmed:
		assignment.ConfirmedAt = &at
	case models.AssignmentStatusDeclined:
		assignment.DeclinedAt = &at
	case models.AssignmentStatusCheckedIn:
		assignment.CheckedInAt = &at
	case models.AssignmentStatusCheckedOut:
		assignment.CheckedOutAt = &at
	case models.AssignmentStatusCompleted:
		assignment.CompletedAt = &at
	case models.AssignmentStatusNoShow:
		assignment.NoShowAt = &at
	case models.AssignmentStatusCancelled:
		assignment.CancelledAt = &at
	}
}
