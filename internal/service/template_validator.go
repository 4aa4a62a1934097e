package service

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/vgs-ops/shift-ops-api/internal/models"
	"github.com/vgs-ops/shift-ops-api/internal/timewindow"
	"github.com/vgs-ops/shift-ops-api/pkg/config"
)

// floatSlack absorbs binary float noise so a declared duration exactly at
// the tolerance boundary still passes.
const floatSlack = 1e-9

// TemplateValidator applies business rules to a proposed recurring shift
// definition. Duration, night-shift and cross-midnight classification are
// always derived from the time window, never trusted from the caller:
// downstream overtime and conflict logic depend on them being right.
type TemplateValidator struct {
	policy config.ScheduleConfig
	logger *zap.Logger
}

// NewTemplateValidator constructs a validator with the given shift policy.
func NewTemplateValidator(policy config.ScheduleConfig, logger *zap.Logger) *TemplateValidator {
	if policy.MinShiftHours <= 0 {
		policy.MinShiftHours = 1
	}
	if policy.MaxShiftHours <= 0 {
		policy.MaxShiftHours = 24
	}
	if policy.LongShiftWarningHours <= 0 {
		policy.LongShiftWarningHours = 12
	}
	if policy.BreakRequiredFromHours <= 0 {
		policy.BreakRequiredFromHours = 6
	}
	if policy.MaxGuardsWarning <= 0 {
		policy.MaxGuardsWarning = 50
	}
	if policy.DurationToleranceHours <= 0 {
		policy.DurationToleranceHours = 0.1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TemplateValidator{policy: policy, logger: logger}
}

// Validate checks one contract schedule item against the shift policy as of
// now. Errors block template creation; warnings are informational only.
func (v *TemplateValidator) Validate(item models.ContractScheduleItem, now time.Time) models.TemplateValidationResult {
	result := models.TemplateValidationResult{}

	start, startErr := timewindow.Parse(item.StartTime)
	if startErr != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("start time %q is not a valid time of day", item.StartTime))
	}
	end, endErr := timewindow.Parse(item.EndTime)
	if endErr != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("end time %q is not a valid time of day", item.EndTime))
	}

	if startErr == nil && endErr == nil {
		result.CrossesMidnight = timewindow.CrossesMidnight(start, end)
		result.ActualDurationHours = timewindow.ComputeDuration(start, end)
		result.IsNightShift = timewindow.IsNightShift(start, end, result.CrossesMidnight)

		diff := math.Abs(item.DeclaredDurationHours - result.ActualDurationHours)
		if diff > v.policy.DurationToleranceHours+floatSlack {
			result.Errors = append(result.Errors, fmt.Sprintf(
				"declared duration %.2fh does not match computed duration %.2fh (difference %.2fh exceeds %.1fh tolerance)",
				item.DeclaredDurationHours, result.ActualDurationHours, diff, v.policy.DurationToleranceHours))
		}

		if result.ActualDurationHours < v.policy.MinShiftHours {
			result.Errors = append(result.Errors, fmt.Sprintf("computed duration %.2fh is below the %.1fh minimum", result.ActualDurationHours, v.policy.MinShiftHours))
		}
		if result.ActualDurationHours > v.policy.MaxShiftHours {
			result.Errors = append(result.Errors, fmt.Sprintf("computed duration %.2fh exceeds the %.1fh maximum", result.ActualDurationHours, v.policy.MaxShiftHours))
		}

		durationMinutes := int(math.Round(result.ActualDurationHours * 60))
		if item.BreakMinutes < 0 {
			result.Errors = append(result.Errors, "break minutes cannot be negative")
		} else if item.BreakMinutes > durationMinutes {
			result.Errors = append(result.Errors, fmt.Sprintf("break of %d minutes exceeds the %d-minute shift", item.BreakMinutes, durationMinutes))
		}

		if item.DeclaredCrossMidnight != result.CrossesMidnight {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"declared cross-midnight flag %t disagrees with computed value %t; computed value wins",
				item.DeclaredCrossMidnight, result.CrossesMidnight))
		}
		if result.ActualDurationHours > v.policy.LongShiftWarningHours {
			result.Warnings = append(result.Warnings, fmt.Sprintf("duration %.2fh exceeds %.1fh; verify labor-law compliance", result.ActualDurationHours, v.policy.LongShiftWarningHours))
		}
		if result.ActualDurationHours >= v.policy.BreakRequiredFromHours && item.BreakMinutes == 0 {
			result.Warnings = append(result.Warnings, fmt.Sprintf("shifts of %.1fh or more normally require a rest break", v.policy.BreakRequiredFromHours))
		}
	}

	if item.Weekdays() == [7]bool{} {
		result.Errors = append(result.Errors, "at least one weekday must be selected")
	}

	if item.GuardsPerShift <= 0 {
		result.Errors = append(result.Errors, "guards per shift must be greater than zero")
	} else if item.GuardsPerShift > v.policy.MaxGuardsWarning {
		result.Warnings = append(result.Warnings, fmt.Sprintf("guards per shift %d is unusually high (above %d)", item.GuardsPerShift, v.policy.MaxGuardsWarning))
	}

	today := dateOnly(now)
	if !dateOnly(item.EffectiveFrom).After(today) {
		result.Errors = append(result.Errors, fmt.Sprintf("effective-from %s must be strictly after %s", dateOnly(item.EffectiveFrom).Format("2006-01-02"), today.Format("2006-01-02")))
	}
	if item.EffectiveTo != nil && dateOnly(*item.EffectiveTo).Before(dateOnly(item.EffectiveFrom)) {
		result.Errors = append(result.Errors, "effective-to cannot be earlier than effective-from")
	}

	result.IsValid = len(result.Errors) == 0

	if len(result.Warnings) > 0 {
		v.logger.Info("schedule validation warnings",
			zap.String("schedule", item.ScheduleName),
			zap.Strings("warnings", result.Warnings))
	}

	return result
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
