package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vgs-ops/shift-ops-api/internal/models"
	appErrors "github.com/vgs-ops/shift-ops-api/pkg/errors"
)

type templateRepository interface {
	FindByCode(ctx context.Context, code string) (*models.ShiftTemplate, error)
	FindByID(ctx context.Context, id string) (*models.ShiftTemplate, error)
	List(ctx context.Context, filter models.TemplateFilter) ([]models.ShiftTemplate, int, error)
	Create(ctx context.Context, tpl *models.ShiftTemplate) error
	Update(ctx context.Context, tpl *models.ShiftTemplate) error
}

// TemplateImportService consumes contract schedule feeds and upserts shift
// templates by deterministic code. The batch is partial-tolerant: an invalid
// item is recorded as skipped and the rest of the batch continues.
type TemplateImportService struct {
	repo      templateRepository
	rules     *TemplateValidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewTemplateImportService instantiates the importer.
func NewTemplateImportService(repo templateRepository, rules *TemplateValidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *TemplateImportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateImportService{
		repo:      repo,
		rules:     rules,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// TemplateCode derives the deterministic upsert key from the schedule name
// and its time window. Re-importing the same schedule always maps to the
// same template.
func TemplateCode(name, startTime, endTime string) string {
	slug := strings.Builder{}
	for _, r := range strings.ToUpper(strings.TrimSpace(name)) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			slug.WriteRune(r)
		default:
			slug.WriteRune('-')
		}
	}
	compact := func(s string) string {
		return strings.ReplaceAll(strings.TrimSpace(s), ":", "")
	}
	return fmt.Sprintf("%s-%s-%s", strings.Trim(slug.String(), "-"), compact(startTime), compact(endTime))
}

// Import processes one contract schedule feed and returns the itemized
// report. The returned error is non-nil only when every item failed.
func (s *TemplateImportService) Import(ctx context.Context, feed models.ContractScheduleFeed) (*models.ImportReport, error) {
	if err := s.validator.Struct(feed); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule feed payload")
	}

	report := &models.ImportReport{}
	now := s.now()

	for _, item := range feed.Items {
		code := TemplateCode(item.ScheduleName, item.StartTime, item.EndTime)

		existing, err := s.repo.FindByCode(ctx, code)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up template by code")
		}

		validation := s.rules.Validate(item, now)
		if !validation.IsValid {
			report.Skipped++
			report.Items = append(report.Items, models.ImportItemResult{
				Code:       code,
				Name:       item.ScheduleName,
				Action:     models.ImportActionSkipped,
				Reason:     strings.Join(validation.Errors, "; "),
				Validation: &validation,
			})
			s.metrics.RecordTemplateImport(string(models.ImportActionSkipped))
			s.logger.Warn("schedule item skipped",
				zap.String("code", code),
				zap.Strings("errors", validation.Errors))
			continue
		}

		if existing == nil {
			tpl := buildTemplate(feed, item, code, validation)
			if err := s.repo.Create(ctx, tpl); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create template")
			}
			report.Created++
			report.CreatedIDs = append(report.CreatedIDs, tpl.ID)
			report.Items = append(report.Items, models.ImportItemResult{
				Code:       code,
				Name:       item.ScheduleName,
				Action:     models.ImportActionCreated,
				Validation: &validation,
			})
			s.metrics.RecordTemplateImport(string(models.ImportActionCreated))
			continue
		}

		updated := buildTemplate(feed, item, code, validation)
		updated.ID = existing.ID
		updated.CreatedAt = existing.CreatedAt
		// Status resets so downstream shift generation is re-triggered.
		updated.Status = models.TemplateStatusAwaitCreateShift
		if err := s.repo.Update(ctx, updated); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update template")
		}
		report.Updated++
		report.Items = append(report.Items, models.ImportItemResult{
			Code:       code,
			Name:       item.ScheduleName,
			Action:     models.ImportActionUpdated,
			Validation: &validation,
		})
		s.metrics.RecordTemplateImport(string(models.ImportActionUpdated))
	}

	if !report.Success() {
		return report, appErrors.Clone(appErrors.ErrValidation, "no schedule item in the batch could be imported")
	}
	return report, nil
}

// List returns templates with pagination metadata.
func (s *TemplateImportService) List(ctx context.Context, filter models.TemplateFilter) ([]models.ShiftTemplate, *models.Pagination, error) {
	templates, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list templates")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return templates, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads one template by id.
func (s *TemplateImportService) Get(ctx context.Context, id string) (*models.ShiftTemplate, error) {
	tpl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "template not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template")
	}
	return tpl, nil
}

func buildTemplate(feed models.ContractScheduleFeed, item models.ContractScheduleItem, code string, validation models.TemplateValidationResult) *models.ShiftTemplate {
	guards := item.GuardsPerShift
	return &models.ShiftTemplate{
		ContractID:      feed.ContractID,
		Code:            code,
		Name:            item.ScheduleName,
		StartTime:       item.StartTime,
		EndTime:         item.EndTime,
		DurationHours:   validation.ActualDurationHours,
		BreakMinutes:    item.BreakMinutes,
		PaidBreak:       item.PaidBreak,
		IsNightShift:    validation.IsNightShift,
		CrossesMidnight: validation.CrossesMidnight,
		Monday:          item.Monday,
		Tuesday:         item.Tuesday,
		Wednesday:       item.Wednesday,
		Thursday:        item.Thursday,
		Friday:          item.Friday,
		Saturday:        item.Saturday,
		Sunday:          item.Sunday,
		RequiredLevel:   item.RequiredLevel,
		MinGuards:       guards,
		MaxGuards:       guards,
		OptimalGuards:   guards,
		LocationID:      item.LocationID,
		EffectiveFrom:   item.EffectiveFrom,
		EffectiveTo:     item.EffectiveTo,
		Status:          models.TemplateStatusAwaitCreateShift,
		Active:          true,
	}
}
