package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	"drayage-backend/internal/models"
)

// QuoteStore is the persistence surface for quotes.
type QuoteStore interface {
	Create(ctx context.Context, q *models.Quote) error
	Get(ctx context.Context, id int) (*models.Quote, error)
	List(ctx context.Context, status string) ([]*models.Quote, error)
	ListActive(ctx context.Context) ([]*models.Quote, error)
	Assign(ctx context.Context, id, assigneeID int, expectedUpdatedAt time.Time) (*models.Quote, error)
	UpdateStatus(ctx context.Context, id int, status string) (*models.Quote, error)
}

// QuoteNotifier is the dispatch hook for quote lifecycle events.
type QuoteNotifier interface {
	Dispatch(ctx context.Context, eventType, entityID string, data map[string]interface{}) *models.DispatchResult
}

// quoteTransitions is the legal lifecycle graph. Cancellation is allowed from
// any non-terminal state.
var quoteTransitions = map[string][]string{
	models.QuotePending:  {models.QuoteInReview, models.QuoteCancelled},
	models.QuoteInReview: {models.QuoteQuoted, models.QuoteCancelled},
	models.QuoteQuoted:   {models.QuoteAccepted, models.QuoteRejected, models.QuoteExpired, models.QuoteCancelled},
}

type QuoteService struct {
	quotes   QuoteStore
	notifier QuoteNotifier
	now      func() time.Time
}

func NewQuoteService(quotes QuoteStore) *QuoteService {
	return &QuoteService{quotes: quotes, now: time.Now}
}

// SetNotifier wires the notification dispatcher after construction.
func (s *QuoteService) SetNotifier(n QuoteNotifier) {
	s.notifier = n
}

// Submit validates and stores a new quote request, scoring it on the way in,
// and announces it to the sales audience.
func (s *QuoteService) Submit(ctx context.Context, req *models.CreateQuoteRequest) (*models.Quote, error) {
	if req.ContactName == "" {
		return nil, fmt.Errorf("contact name is required")
	}
	if req.Email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if req.RequestType == "" {
		return nil, fmt.Errorf("request type is required")
	}

	q := &models.Quote{
		CompanyName:     req.CompanyName,
		ContactName:     req.ContactName,
		Email:           req.Email,
		Phone:           req.Phone,
		RequestType:     req.RequestType,
		ContainerNumber: req.ContainerNumber,
		Origin:          req.Origin,
		Destination:     req.Destination,
		LastFreeDay:     req.LastFreeDay,
		TimeSensitive:   req.TimeSensitive,
		Notes:           req.Notes,
		Status:          models.QuotePending,
	}
	q.LeadScore = LeadScore(q, s.now())
	q.Urgent = req.Urgent || IsUrgent(q.LeadScore, q)

	if err := s.quotes.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create quote: %w", err)
	}

	if s.notifier != nil {
		result := s.notifier.Dispatch(ctx, "quote_submitted", strconv.Itoa(q.ID), map[string]interface{}{
			"quote_id":     q.ID,
			"contact_name": q.ContactName,
			"company_name": q.CompanyName,
			"request_type": q.RequestType,
			"origin":       q.Origin,
			"destination":  q.Destination,
			"lead_score":   q.LeadScore,
		})
		for _, e := range result.Errors {
			log.Printf("[Quotes] notification issue for quote %d: %s", q.ID, e)
		}
	}
	return q, nil
}

// Assign claims a quote for an admin. The updated_at token from the caller's
// fetched copy guards against two admins claiming concurrently; the loser
// receives a conflict and must refetch.
func (s *QuoteService) Assign(ctx context.Context, id int, req *models.AssignQuoteRequest) (*models.Quote, error) {
	q, err := s.quotes.Assign(ctx, id, req.AssigneeID, req.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Dispatch(ctx, "quote_assigned", strconv.Itoa(q.ID), map[string]interface{}{
			"quote_id":     q.ID,
			"contact_name": q.ContactName,
			"request_type": q.RequestType,
			"assignee_id":  req.AssigneeID,
		})
	}
	return q, nil
}

// UpdateStatus advances the quote lifecycle, rejecting transitions the graph
// does not allow.
func (s *QuoteService) UpdateStatus(ctx context.Context, id int, status string) (*models.Quote, error) {
	q, err := s.quotes.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, next := range quoteTransitions[q.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("illegal transition %s -> %s", q.Status, status)
	}
	return s.quotes.UpdateStatus(ctx, id, status)
}

func (s *QuoteService) Get(ctx context.Context, id int) (*models.Quote, error) {
	return s.quotes.Get(ctx, id)
}

func (s *QuoteService) List(ctx context.Context, status string) ([]*models.Quote, error) {
	return s.quotes.List(ctx, status)
}

// QuoteTriage is a quote annotated for the triage dashboard.
type QuoteTriage struct {
	*models.Quote
	SLA      string `json:"sla_status"`
	Priority int    `json:"priority_score"`
}

// Triage returns active quotes with SLA and priority annotations, highest
// priority first.
func (s *QuoteService) Triage(ctx context.Context) ([]QuoteTriage, error) {
	quotes, err := s.quotes.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]QuoteTriage, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, QuoteTriage{
			Quote:    q,
			SLA:      SLAStatus(q, now),
			Priority: PriorityScore(q, now),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out, nil
}
