package services

import (
	"testing"
	"time"

	"drayage-backend/internal/models"
	"github.com/stretchr/testify/assert"
)

var scoringNow = time.Date(2026, 1, 26, 12, 0, 0, 0, time.UTC)

func TestLeadScoreSumsLinearly(t *testing.T) {
	assert.Equal(t, 0, LeadScore(&models.Quote{RequestType: "standard"}, scoringNow))

	lfd := scoringNow.Add(48 * time.Hour)
	full := &models.Quote{
		RequestType:     "expedited",
		TimeSensitive:   true,
		ContainerNumber: "MSCU1234567",
		Phone:           "555-0100",
		LastFreeDay:     &lfd,
	}
	assert.Equal(t, 7, LeadScore(full, scoringNow))

	// Each contributor is independent.
	assert.Equal(t, 2, LeadScore(&models.Quote{RequestType: "expedited"}, scoringNow))
	assert.Equal(t, 1, LeadScore(&models.Quote{RequestType: "standard", TimeSensitive: true}, scoringNow))
	assert.Equal(t, 1, LeadScore(&models.Quote{RequestType: "standard", Phone: "555-0100"}, scoringNow))

	// A last free day outside the window adds nothing.
	farLFD := scoringNow.Add(10 * 24 * time.Hour)
	assert.Equal(t, 0, LeadScore(&models.Quote{RequestType: "standard", LastFreeDay: &farLFD}, scoringNow))
}

func TestIsUrgentTypeOverridesScore(t *testing.T) {
	assert.True(t, IsUrgent(3, &models.Quote{RequestType: "standard"}))
	assert.False(t, IsUrgent(2, &models.Quote{RequestType: "standard"}))

	// Urgent request types win regardless of score.
	assert.True(t, IsUrgent(0, &models.Quote{RequestType: "demurrage_risk"}))
	assert.True(t, IsUrgent(0, &models.Quote{RequestType: "port_pickup"}))
}

func TestSLAThresholds(t *testing.T) {
	standard := func(age time.Duration) *models.Quote {
		return &models.Quote{Status: models.QuotePending, RequestType: "standard", CreatedAt: scoringNow.Add(-age)}
	}
	urgent := func(age time.Duration) *models.Quote {
		return &models.Quote{Status: models.QuotePending, RequestType: "expedited", LeadScore: 4, CreatedAt: scoringNow.Add(-age)}
	}

	assert.Equal(t, SLAOk, SLAStatus(standard(3*time.Hour), scoringNow))
	assert.Equal(t, SLAWarning, SLAStatus(standard(5*time.Hour), scoringNow))
	assert.Equal(t, SLAOverdue, SLAStatus(standard(9*time.Hour), scoringNow))

	assert.Equal(t, SLAOk, SLAStatus(urgent(1*time.Hour), scoringNow))
	assert.Equal(t, SLAWarning, SLAStatus(urgent(3*time.Hour), scoringNow))
	assert.Equal(t, SLAOverdue, SLAStatus(urgent(5*time.Hour), scoringNow))
}

func TestSLAResolvedStatesAlwaysOk(t *testing.T) {
	old := scoringNow.Add(-48 * time.Hour)
	for _, status := range []string{models.QuoteQuoted, models.QuoteAccepted, models.QuoteRejected, models.QuoteExpired, models.QuoteCancelled} {
		q := &models.Quote{Status: status, CreatedAt: old, LeadScore: 10}
		assert.Equal(t, SLAOk, SLAStatus(q, scoringNow), status)
	}
}

func TestPriorityScoreCappedAt100(t *testing.T) {
	q := &models.Quote{
		Status:      models.QuotePending,
		RequestType: "expedited",
		CompanyName: "Acme Logistics",
		Urgent:      true,
		LeadScore:   15,
		CreatedAt:   scoringNow.Add(-72 * time.Hour),
	}
	score := PriorityScore(q, scoringNow)
	assert.LessOrEqual(t, score, 100)
	assert.Equal(t, 90, score) // 30 lead + 30 age + 10 company + 20 urgent
}

func TestPriorityScoreComponents(t *testing.T) {
	base := &models.Quote{Status: models.QuotePending, RequestType: "standard", CreatedAt: scoringNow}
	assert.Equal(t, 5, PriorityScore(base, scoringNow)) // individual-customer bonus only

	withCompany := &models.Quote{Status: models.QuotePending, RequestType: "standard", CompanyName: "Acme", CreatedAt: scoringNow}
	assert.Equal(t, 10, PriorityScore(withCompany, scoringNow))

	timeSensitive := &models.Quote{Status: models.QuotePending, RequestType: "standard", TimeSensitive: true, CreatedAt: scoringNow}
	assert.Equal(t, 20, PriorityScore(timeSensitive, scoringNow)) // 5 + 15

	aged := &models.Quote{Status: models.QuotePending, RequestType: "standard", CreatedAt: scoringNow.Add(-5 * time.Hour)}
	assert.Equal(t, 20, PriorityScore(aged, scoringNow)) // 5 + 15 age
}
