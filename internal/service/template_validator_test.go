package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vgs-ops/shift-ops-api/internal/models"
	"github.com/vgs-ops/shift-ops-api/pkg/config"
)

func validScheduleItem() models.ContractScheduleItem {
	return models.ContractScheduleItem{
		ScheduleName:          "Day Gate",
		StartTime:             "06:00",
		EndTime:               "14:00",
		DeclaredDurationHours: 8,
		BreakMinutes:          30,
		Monday:                true,
		Tuesday:               true,
		Wednesday:             true,
		Thursday:              true,
		Friday:                true,
		GuardsPerShift:        2,
		EffectiveFrom:         time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
	}
}

func validationNow() time.Time {
	return time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
}

func TestValidateAcceptsCleanItem(t *testing.T) {
	v := NewTemplateValidator(config.ScheduleConfig{}, nil)
	result := v.Validate(validScheduleItem(), validationNow())
	require.True(t, result.IsValid, "errors: %v", result.Errors)
	assert.InDelta(t, 8.0, result.ActualDurationHours, 1e-9)
	assert.False(t, result.CrossesMidnight)
	assert.False(t, result.IsNightShift)
}

func TestValidateDurationTolerance(t *testing.T) {
	cases := []struct {
		name     string
		declared float64
		valid    bool
	}{
		{"exact", 8.0, true},
		{"at boundary", 8.1, true},
		{"just past boundary", 8.11, false},
		{"well off", 9.5, false},
	}
	v := NewTemplateValidator(config.ScheduleConfig{}, nil)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item := validScheduleItem()
			item.DeclaredDurationHours = tc.declared
			result := v.Validate(item, validationNow())
			assert.Equal(t, tc.valid, result.IsValid, "errors: %v", result.Errors)
		})
	}
}

func TestValidateNightShiftAcrossMidnight(t *testing.T) {
	item := validScheduleItem()
	item.ScheduleName = "Night Gate"
	item.StartTime = "23:00"
	item.EndTime = "05:00"
	item.DeclaredDurationHours = 6
	item.DeclaredCrossMidnight = true

	v := NewTemplateValidator(config.ScheduleConfig{}, nil)
	result := v.Validate(item, validationNow())
	require.True(t, result.IsValid, "errors: %v", result.Errors)
	assert.True(t, result.CrossesMidnight)
	assert.True(t, result.IsNightShift)
	assert.InDelta(t, 6.0, result.ActualDurationHours, 1e-9)
}

func TestValidateCrossMidnightDisagreementWarns(t *testing.T) {
	item := validScheduleItem()
	item.StartTime = "22:00"
	item.EndTime = "06:00"
	item.DeclaredDurationHours = 8
	item.DeclaredCrossMidnight = false

	v := NewTemplateValidator(config.ScheduleConfig{}, nil)
	result := v.Validate(item, validationNow())
	require.True(t, result.IsValid)
	assert.True(t, result.CrossesMidnight)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, strings.Join(result.Warnings, "\n"), "cross-midnight")
}

func TestValidateEffectiveFromBoundary(t *testing.T) {
	now := validationNow()

	item := validScheduleItem()
	item.EffectiveFrom = time.Date(2025, 6, 15, 23, 59, 0, 0, time.UTC)
	v := NewTemplateValidator(config.ScheduleConfig{}, nil)
	result := v.Validate(item, now)
	assert.False(t, result.IsValid, "effective-from on the current day must be rejected")

	item.EffectiveFrom = time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)
	result = v.Validate(item, now)
	assert.True(t, result.IsValid, "errors: %v", result.Errors)
}

func TestValidateEffectiveToBeforeFrom(t *testing.T) {
	item := validScheduleItem()
	to := item.EffectiveFrom.AddDate(0, 0, -1)
	item.EffectiveTo = &to

	v := NewTemplateValidator(config.ScheduleConfig{}, nil)
	result := v.Validate(item, validationNow())
	assert.False(t, result.IsValid)
}

func TestValidateNoWeekdaySelected(t *testing.T) {
	item := validScheduleItem()
	item.Monday, item.Tuesday, item.Wednesday, item.Thursday, item.Friday = false, false, false, false, false

	v := NewTemplateValidator(config.ScheduleConfig{}, nil)
	result := v.Validate(item, validationNow())
	assert.False(t, result.IsValid)
}

func TestValidateGuardCounts(t *testing.T) {
	v := NewTemplateValidator(config.ScheduleConfig{}, nil)

	item := validScheduleItem()
	item.GuardsPerShift = 0
	assert.False(t, v.Validate(item, validationNow()).IsValid)

	item.GuardsPerShift = 51
	result := v.Validate(item, validationNow())
	assert.True(t, result.IsValid)
	assert.NotEmpty(t, result.Warnings)
}

func TestValidateBreakExceedsShift(t *testing.T) {
	item := validScheduleItem()
	item.StartTime = "08:00"
	item.EndTime = "10:00"
	item.DeclaredDurationHours = 2
	item.BreakMinutes = 180

	v := NewTemplateValidator(config.ScheduleConfig{}, nil)
	assert.False(t, v.Validate(item, validationNow()).IsValid)
}

func TestValidateInvalidTimes(t *testing.T) {
	item := validScheduleItem()
	item.StartTime = "25:00"

	v := NewTemplateValidator(config.ScheduleConfig{}, nil)
	result := v.Validate(item, validationNow())
	assert.False(t, result.IsValid)
}

func TestValidateLongShiftWarning(t *testing.T) {
	item := validScheduleItem()
	item.StartTime = "06:00"
	item.EndTime = "19:00"
	item.DeclaredDurationHours = 13
	item.BreakMinutes = 60

	v := NewTemplateValidator(config.ScheduleConfig{}, nil)
	result := v.Validate(item, validationNow())
	require.True(t, result.IsValid, "errors: %v", result.Errors)
	assert.NotEmpty(t, result.Warnings)
}
