package models

// NotificationPriority ranks delivery urgency for the dispatcher.
type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "LOW"
	NotificationPriorityNormal NotificationPriority = "NORMAL"
	NotificationPriorityHigh   NotificationPriority = "HIGH"
	NotificationPriorityUrgent NotificationPriority = "URGENT"
)

// NotificationEvent is the structured outbound event handed to the
// notification dispatcher. The core never renders or sends messages itself.
type NotificationEvent struct {
	RecipientID   string                 `json:"recipient_id"`
	RecipientType string                 `json:"recipient_type"`
	Action        string                 `json:"action"`
	Title         string                 `json:"title"`
	Message       string                 `json:"message"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Priority      NotificationPriority   `json:"priority"`
}

// HolidayInfo is the result of a holiday calendar lookup.
type HolidayInfo struct {
	IsHoliday   bool   `json:"is_holiday"`
	Name        string `json:"name,omitempty"`
	Category    string `json:"category,omitempty"`
	IsTetPeriod bool   `json:"is_tet_period"`
}
