package models

import "time"

// ContractScheduleItem is one contract-derived coverage requirement as
// received from the contract service feed.
type ContractScheduleItem struct {
	ScheduleName          string     `json:"schedule_name" validate:"required"`
	LocationID            string     `json:"location_id" validate:"required"`
	StartTime             string     `json:"start_time" validate:"required"`
	EndTime               string     `json:"end_time" validate:"required"`
	DeclaredDurationHours float64    `json:"declared_duration_hours" validate:"required"`
	BreakMinutes          int        `json:"break_minutes"`
	PaidBreak             bool       `json:"paid_break"`
	Monday                bool       `json:"monday"`
	Tuesday               bool       `json:"tuesday"`
	Wednesday             bool       `json:"wednesday"`
	Thursday              bool       `json:"thursday"`
	Friday                bool       `json:"friday"`
	Saturday              bool       `json:"saturday"`
	Sunday                bool       `json:"sunday"`
	GuardsPerShift        int        `json:"guards_per_shift"`
	RequiredLevel         int        `json:"required_level"`
	EffectiveFrom         time.Time  `json:"effective_from" validate:"required"`
	EffectiveTo           *time.Time `json:"effective_to,omitempty"`
	DeclaredCrossMidnight bool       `json:"declared_cross_midnight"`
}

// Weekdays returns the per-weekday applicability flags Monday first.
func (i *ContractScheduleItem) Weekdays() [7]bool {
	return [7]bool{i.Monday, i.Tuesday, i.Wednesday, i.Thursday, i.Friday, i.Saturday, i.Sunday}
}

// ContractScheduleFeed is the batch payload emitted by the contract service.
type ContractScheduleFeed struct {
	ContractID     string                 `json:"contract_id" validate:"required"`
	ContractNumber string                 `json:"contract_number"`
	ManagerID      string                 `json:"manager_id"`
	Items          []ContractScheduleItem `json:"items" validate:"required,min=1,dive"`
}
