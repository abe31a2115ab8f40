package models

import "time"

// Quote lifecycle: pending -> in_review -> quoted -> accepted/rejected/expired
// (terminal). Cancellation is allowed from any non-terminal state.
const (
	QuotePending  = "pending"
	QuoteInReview = "in_review"
	QuoteQuoted   = "quoted"
	QuoteAccepted = "accepted"
	QuoteRejected = "rejected"
	QuoteExpired  = "expired"
	QuoteCancelled = "cancelled"
)

// AssignableStatuses are the lifecycle states in which an assignee may be set.
var AssignableStatuses = map[string]bool{
	QuotePending:  true,
	QuoteInReview: true,
	QuoteQuoted:   true,
}

// ActiveStatuses are the states in which SLA tracking is meaningful.
var ActiveStatuses = map[string]bool{
	QuotePending:  true,
	QuoteInReview: true,
}

// Request types that are urgent regardless of computed score.
var UrgentRequestTypes = map[string]bool{
	"expedited":      true,
	"demurrage_risk": true,
	"port_pickup":    true,
}

type Quote struct {
	ID              int        `json:"id"`
	CompanyName     string     `json:"company_name,omitempty"`
	ContactName     string     `json:"contact_name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone,omitempty"`
	RequestType     string     `json:"request_type"`
	ContainerNumber string     `json:"container_number,omitempty"`
	Origin          string     `json:"origin,omitempty"`
	Destination     string     `json:"destination,omitempty"`
	LastFreeDay     *time.Time `json:"last_free_day,omitempty"`
	TimeSensitive   bool       `json:"time_sensitive"`
	Urgent          bool       `json:"is_urgent"`
	Notes           string     `json:"notes,omitempty"`
	LeadScore       int        `json:"lead_score"` // derived, never set directly
	Status          string     `json:"status"`
	AssigneeID      *int       `json:"assignee_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type CreateQuoteRequest struct {
	CompanyName     string     `json:"company_name"`
	ContactName     string     `json:"contact_name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	RequestType     string     `json:"request_type"`
	ContainerNumber string     `json:"container_number"`
	Origin          string     `json:"origin"`
	Destination     string     `json:"destination"`
	LastFreeDay     *time.Time `json:"last_free_day"`
	TimeSensitive   bool       `json:"time_sensitive"`
	Urgent          bool       `json:"is_urgent"`
	Notes           string     `json:"notes"`
}

type AssignQuoteRequest struct {
	AssigneeID int       `json:"assignee_id"`
	UpdatedAt  time.Time `json:"updated_at"` // optimistic lock token from the fetched quote
}

type UpdateQuoteStatusRequest struct {
	Status string `json:"status"`
}
