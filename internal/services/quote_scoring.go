package services

import (
	"time"

	"drayage-backend/internal/models"
)

// SLA thresholds for first response on a quote. Urgent quotes get half the
// standard window; "warning" starts past one threshold, "overdue" past two.
const (
	slaStandardThreshold = 4 * time.Hour
	slaUrgentThreshold   = 2 * time.Hour

	// Lead scores at or above this mark a quote urgent.
	urgentScoreThreshold = 3

	// Last-free-day window that adds demurrage urgency to the lead score.
	lfdUrgencyWindow = 72 * time.Hour
)

// SLA statuses
const (
	SLAOk      = "ok"
	SLAWarning = "warning"
	SLAOverdue = "overdue"
)

// LeadScore computes the additive lead score from submission fields. The raw
// score is uncapped; PriorityScore caps its scaled contribution instead.
func LeadScore(q *models.Quote, now time.Time) int {
	score := 0
	if models.UrgentRequestTypes[q.RequestType] {
		score += 2
	}
	if q.TimeSensitive {
		score++
	}
	if q.ContainerNumber != "" {
		score++
	}
	if q.Phone != "" {
		score++
	}
	if q.LastFreeDay != nil && q.LastFreeDay.Sub(now) <= lfdUrgencyWindow {
		score += 2
	}
	return score
}

// IsUrgent reports whether a quote needs expedited handling: score at or
// above the threshold, or a request type that is urgent by definition
// regardless of score.
func IsUrgent(score int, q *models.Quote) bool {
	return score >= urgentScoreThreshold || models.UrgentRequestTypes[q.RequestType]
}

// SLAStatus reports where a quote stands against its response-time SLA.
// Only active quotes are tracked; resolved and terminal states always read ok.
func SLAStatus(q *models.Quote, now time.Time) string {
	if !models.ActiveStatuses[q.Status] {
		return SLAOk
	}

	threshold := slaStandardThreshold
	if IsUrgent(q.LeadScore, q) {
		threshold = slaUrgentThreshold
	}

	elapsed := now.Sub(q.CreatedAt)
	switch {
	case elapsed > 2*threshold:
		return SLAOverdue
	case elapsed > threshold:
		return SLAWarning
	default:
		return SLAOk
	}
}

// PriorityScore ranks a quote 0-100 for triage ordering: scaled lead score
// (cap 30), elapsed-time urgency (cap 30), a customer-value bonus, and a
// time-sensitivity bonus, clamped to 100.
func PriorityScore(q *models.Quote, now time.Time) int {
	lead := q.LeadScore * 2
	if lead > 30 {
		lead = 30
	}

	elapsed := now.Sub(q.CreatedAt)
	var age int
	switch {
	case elapsed >= 24*time.Hour:
		age = 30
	case elapsed >= 12*time.Hour:
		age = 25
	case elapsed >= 8*time.Hour:
		age = 20
	case elapsed >= 4*time.Hour:
		age = 15
	case elapsed >= 2*time.Hour:
		age = 10
	case elapsed >= time.Hour:
		age = 5
	}

	customer := 5
	if q.CompanyName != "" {
		customer = 10
	}

	var sensitivity int
	switch {
	case q.Urgent:
		sensitivity = 20
	case q.TimeSensitive || models.UrgentRequestTypes[q.RequestType]:
		sensitivity = 15
	}

	total := lead + age + customer + sensitivity
	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}
	return total
}
