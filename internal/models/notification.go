package models

import "time"

// Notification priorities, lowest to highest.
const (
	PriorityLow      = 1
	PriorityNormal   = 2
	PriorityHigh     = 3
	PriorityCritical = 4
)

// Notification is an in-app notification row visible to one recipient.
type Notification struct {
	ID         int       `json:"id"`
	UserID     int       `json:"user_id"`
	EventType  string    `json:"event_type"`
	EntityID   string    `json:"entity_id,omitempty"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Priority   int       `json:"priority"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}

// NotificationPreferences is per-recipient delivery configuration. A row is
// created with defaults on the first dispatch that touches the recipient.
type NotificationPreferences struct {
	UserID          int             `json:"user_id"`
	EmailEnabled    bool            `json:"email_enabled"`
	InAppEnabled    bool            `json:"in_app_enabled"`
	EventOverrides  map[string]bool `json:"event_overrides,omitempty"` // eventType -> email on/off
	QuietHoursStart string          `json:"quiet_hours_start,omitempty"` // "22:00"
	QuietHoursEnd   string          `json:"quiet_hours_end,omitempty"`   // "07:00"
	Timezone        string          `json:"timezone,omitempty"`
	MinEmailPriority int            `json:"min_email_priority"` // below this, email goes to digest
	UpdatedAt       time.Time       `json:"updated_at"`
}

// DefaultPreferences returns the preferences applied to a recipient who has
// never configured anything.
func DefaultPreferences(userID int) *NotificationPreferences {
	return &NotificationPreferences{
		UserID:           userID,
		EmailEnabled:     true,
		InAppEnabled:     true,
		MinEmailPriority: PriorityNormal,
		Timezone:         "America/Los_Angeles",
	}
}

// Digest item statuses
const (
	DigestPending = "pending"
	DigestSent    = "sent"
)

// DigestItem is a deferred email queued for the next daily digest.
type DigestItem struct {
	ID           int       `json:"id"`
	UserID       int       `json:"user_id"`
	EventType    string    `json:"event_type"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	ScheduledFor time.Time `json:"scheduled_for"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// DispatchResult summarizes one notification fan-out.
type DispatchResult struct {
	EmployeesNotified int            `json:"employees_notified"`
	PerChannel        map[string]int `json:"per_channel"`
	Errors            []string       `json:"errors,omitempty"`
}
