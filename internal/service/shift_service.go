package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vgs-ops/shift-ops-api/internal/models"
	"github.com/vgs-ops/shift-ops-api/internal/timewindow"
	appErrors "github.com/vgs-ops/shift-ops-api/pkg/errors"
)

type shiftRepository interface {
	FindByID(ctx context.Context, id string) (*models.Shift, error)
	List(ctx context.Context, filter models.ShiftFilter) ([]models.Shift, int, error)
	CreateGuarded(ctx context.Context, shift *models.Shift, collides func(models.Shift) bool) error
	UpdateGuarded(ctx context.Context, shift *models.Shift, expectedVersion int, collides func(models.Shift) bool) error
	Cancel(ctx context.Context, id string) error
}

type holidayLookup interface {
	Lookup(ctx context.Context, date time.Time) (models.HolidayInfo, error)
}

// CreateShiftRequest describes payload for creating a concrete shift.
type CreateShiftRequest struct {
	TemplateID     *string `json:"template_id"`
	LocationID     string  `json:"location_id" validate:"required"`
	ShiftDate      string  `json:"shift_date" validate:"required,datetime=2006-01-02"`
	StartTime      string  `json:"start_time" validate:"required"`
	EndTime        string  `json:"end_time" validate:"required"`
	BreakMinutes   int     `json:"break_minutes" validate:"gte=0"`
	RequiredGuards int     `json:"required_guards" validate:"gt=0"`
	RequiredLevel  int     `json:"required_level" validate:"gte=0"`
	AllowOverlap   bool    `json:"allow_overlap"`
}

// UpdateShiftRequest rewrites a shift's time fields under optimistic
// concurrency control.
type UpdateShiftRequest struct {
	ShiftDate      string `json:"shift_date" validate:"required,datetime=2006-01-02"`
	StartTime      string `json:"start_time" validate:"required"`
	EndTime        string `json:"end_time" validate:"required"`
	BreakMinutes   int    `json:"break_minutes" validate:"gte=0"`
	RequiredGuards int    `json:"required_guards" validate:"gt=0"`
	RequiredLevel  int    `json:"required_level" validate:"gte=0"`
	AllowOverlap   bool   `json:"allow_overlap"`
	Version        int    `json:"version" validate:"gte=1"`
}

// ShiftService manages concrete shift occurrences: time validation, holiday
// classification and the transactional overlap guard.
type ShiftService struct {
	repo      shiftRepository
	holidays  holidayLookup
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewShiftService instantiates ShiftService.
func NewShiftService(repo shiftRepository, holidays holidayLookup, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ShiftService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShiftService{repo: repo, holidays: holidays, metrics: metrics, validator: validate, logger: logger}
}

// List returns shifts with pagination metadata.
func (s *ShiftService) List(ctx context.Context, filter models.ShiftFilter) ([]models.Shift, *models.Pagination, error) {
	shifts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list shifts")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return shifts, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads one shift by id.
func (s *ShiftService) Get(ctx context.Context, id string) (*models.Shift, error) {
	shift, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "shift not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shift")
	}
	return shift, nil
}

// Create validates the time window, classifies the date and inserts the
// shift behind the overlap guard.
func (s *ShiftService) Create(ctx context.Context, req CreateShiftRequest) (*models.Shift, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid shift payload")
	}

	shift, err := s.buildShift(ctx, req.ShiftDate, req.StartTime, req.EndTime, req.BreakMinutes)
	if err != nil {
		return nil, err
	}
	shift.TemplateID = req.TemplateID
	shift.LocationID = req.LocationID
	shift.RequiredGuards = req.RequiredGuards
	shift.RequiredLevel = req.RequiredLevel
	shift.AllowOverlap = req.AllowOverlap
	shift.Status = models.ShiftStatusScheduled

	if err := s.repo.CreateGuarded(ctx, shift, overlapCheck(shift)); err != nil {
		return nil, s.wrapWriteError(err, "failed to create shift")
	}
	return shift, nil
}

// Update rewrites a shift's schedule after re-running time validation and
// the overlap guard. The caller's version must match the stored row.
func (s *ShiftService) Update(ctx context.Context, id string, req UpdateShiftRequest) (*models.Shift, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid shift payload")
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status == models.ShiftStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "cancelled shifts cannot be updated")
	}

	shift, err := s.buildShift(ctx, req.ShiftDate, req.StartTime, req.EndTime, req.BreakMinutes)
	if err != nil {
		return nil, err
	}
	shift.ID = existing.ID
	shift.TemplateID = existing.TemplateID
	shift.LocationID = existing.LocationID
	shift.Status = existing.Status
	shift.RequiredGuards = req.RequiredGuards
	shift.RequiredLevel = req.RequiredLevel
	shift.AllowOverlap = req.AllowOverlap
	shift.CreatedAt = existing.CreatedAt

	if err := s.repo.UpdateGuarded(ctx, shift, req.Version, overlapCheck(shift)); err != nil {
		return nil, s.wrapWriteError(err, "failed to update shift")
	}
	return shift, nil
}

// Cancel soft-deletes a shift.
func (s *ShiftService) Cancel(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Cancel(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel shift")
	}
	return nil
}

// buildShift derives the absolute window and classification flags for a
// shift proposal. A holiday lookup failure degrades to "not a holiday"
// instead of blocking the operation.
func (s *ShiftService) buildShift(ctx context.Context, dateStr, startStr, endStr string, breakMinutes int) (*models.Shift, error) {
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid shift date")
	}
	start, err := timewindow.Parse(startStr)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start time")
	}
	end, err := timewindow.Parse(endStr)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end time")
	}

	crosses := timewindow.CrossesMidnight(start, end)
	duration := timewindow.ComputeDuration(start, end)
	durationMinutes := int(math.Round(duration * 60))
	if breakMinutes > durationMinutes {
		return nil, appErrors.Clone(appErrors.ErrValidation, "break minutes exceed the shift length")
	}

	startAt, endAt := timewindow.AbsoluteRange(date.UTC(), start, end)

	shift := &models.Shift{
		ShiftDate:     time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
		StartAt:       startAt,
		EndAt:         endAt,
		DurationHours: duration,
		WorkMinutes:   durationMinutes - breakMinutes,
		BreakMinutes:  breakMinutes,
		IsNightShift:  timewindow.IsNightShift(start, end, crosses),
		IsWeekend:     date.Weekday() == time.Saturday || date.Weekday() == time.Sunday,
	}

	if s.holidays != nil {
		info, err := s.holidays.Lookup(ctx, shift.ShiftDate)
		if err != nil {
			s.logger.Warn("holiday lookup failed, treating date as a working day",
				zap.String("date", dateStr), zap.Error(err))
		} else {
			shift.IsHoliday = info.IsHoliday
			shift.IsTetHoliday = info.IsTetPeriod
			if info.Name != "" {
				name := info.Name
				shift.HolidayName = &name
			}
		}
	}

	return shift, nil
}

func (s *ShiftService) wrapWriteError(err error, message string) error {
	var overlapErr *models.ShiftOverlapError
	if errors.As(err, &overlapErr) {
		s.metrics.RecordOverlapRejection()
		return appErrors.Wrap(overlapErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, overlapErr.Error())
	}
	var versionErr *models.ShiftVersionError
	if errors.As(err, &versionErr) {
		return appErrors.Wrap(versionErr, appErrors.ErrVersionConflict.Code, appErrors.ErrVersionConflict.Status, versionErr.Error())
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func overlapCheck(proposed *models.Shift) func(models.Shift) bool {
	return func(existing models.Shift) bool {
		return timewindow.Overlaps(proposed.StartAt, proposed.EndAt, existing.StartAt, existing.EndAt)
	}
}
