package services

import (
	"context"
	"testing"
	"time"

	"drayage-backend/internal/models"
	"drayage-backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuoteStore struct {
	quotes map[int]*models.Quote
	nextID int
}

func newFakeQuoteStore() *fakeQuoteStore {
	return &fakeQuoteStore{quotes: map[int]*models.Quote{}, nextID: 1}
}

func (f *fakeQuoteStore) Create(_ context.Context, q *models.Quote) error {
	q.ID = f.nextID
	f.nextID++
	q.CreatedAt = time.Now()
	q.UpdatedAt = q.CreatedAt
	cp := *q
	f.quotes[q.ID] = &cp
	return nil
}

func (f *fakeQuoteStore) Get(_ context.Context, id int) (*models.Quote, error) {
	q, ok := f.quotes[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (f *fakeQuoteStore) List(_ context.Context, status string) ([]*models.Quote, error) {
	var out []*models.Quote
	for _, q := range f.quotes {
		if status == "" || q.Status == status {
			cp := *q
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeQuoteStore) ListActive(_ context.Context) ([]*models.Quote, error) {
	var out []*models.Quote
	for _, q := range f.quotes {
		if models.ActiveStatuses[q.Status] {
			cp := *q
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Assign mirrors the repository's optimistic guard semantics.
func (f *fakeQuoteStore) Assign(_ context.Context, id, assigneeID int, expectedUpdatedAt time.Time) (*models.Quote, error) {
	q, ok := f.quotes[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if !q.UpdatedAt.Equal(expectedUpdatedAt) || !models.AssignableStatuses[q.Status] {
		return nil, repositories.ErrConflict
	}
	q.AssigneeID = &assigneeID
	if q.Status == models.QuotePending {
		q.Status = models.QuoteInReview
	}
	q.UpdatedAt = q.UpdatedAt.Add(time.Millisecond)
	cp := *q
	return &cp, nil
}

func (f *fakeQuoteStore) UpdateStatus(_ context.Context, id int, status string) (*models.Quote, error) {
	q, ok := f.quotes[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	q.Status = status
	q.UpdatedAt = q.UpdatedAt.Add(time.Millisecond)
	cp := *q
	return &cp, nil
}

type fakeQuoteNotifier struct {
	events []string
}

func (f *fakeQuoteNotifier) Dispatch(_ context.Context, eventType, _ string, _ map[string]interface{}) *models.DispatchResult {
	f.events = append(f.events, eventType)
	return &models.DispatchResult{PerChannel: map[string]int{}}
}

func TestSubmitScoresAndNotifies(t *testing.T) {
	store := newFakeQuoteStore()
	notifier := &fakeQuoteNotifier{}
	svc := NewQuoteService(store)
	svc.SetNotifier(notifier)

	q, err := svc.Submit(context.Background(), &models.CreateQuoteRequest{
		ContactName:     "Jo",
		Email:           "jo@acme.com",
		Phone:           "555-0100",
		RequestType:     "expedited",
		ContainerNumber: "MSCU1234567",
	})
	require.NoError(t, err)
	assert.Equal(t, models.QuotePending, q.Status)
	assert.Equal(t, 4, q.LeadScore) // type +2, container +1, phone +1
	assert.True(t, q.Urgent)
	assert.Equal(t, []string{"quote_submitted"}, notifier.events)
}

func TestSubmitValidation(t *testing.T) {
	svc := NewQuoteService(newFakeQuoteStore())

	_, err := svc.Submit(context.Background(), &models.CreateQuoteRequest{Email: "jo@acme.com", RequestType: "standard"})
	assert.Error(t, err)

	_, err = svc.Submit(context.Background(), &models.CreateQuoteRequest{ContactName: "Jo", RequestType: "standard"})
	assert.Error(t, err)
}

func TestAssignConflictOnStaleToken(t *testing.T) {
	store := newFakeQuoteStore()
	svc := NewQuoteService(store)
	notifier := &fakeQuoteNotifier{}
	svc.SetNotifier(notifier)
	ctx := context.Background()

	q, err := svc.Submit(ctx, &models.CreateQuoteRequest{
		ContactName: "Jo", Email: "jo@acme.com", RequestType: "standard",
	})
	require.NoError(t, err)

	// First claim wins.
	assigned, err := svc.Assign(ctx, q.ID, &models.AssignQuoteRequest{AssigneeID: 7, UpdatedAt: q.UpdatedAt})
	require.NoError(t, err)
	require.NotNil(t, assigned.AssigneeID)
	assert.Equal(t, 7, *assigned.AssigneeID)
	assert.Equal(t, models.QuoteInReview, assigned.Status)

	// Second claim with the same token loses and must refetch.
	_, err = svc.Assign(ctx, q.ID, &models.AssignQuoteRequest{AssigneeID: 8, UpdatedAt: q.UpdatedAt})
	assert.ErrorIs(t, err, repositories.ErrConflict)

	// Exactly one assignee survives.
	final, _ := store.Get(ctx, q.ID)
	assert.Equal(t, 7, *final.AssigneeID)
	assert.Contains(t, notifier.events, "quote_assigned")
}

func TestUpdateStatusEnforcesLifecycle(t *testing.T) {
	store := newFakeQuoteStore()
	svc := NewQuoteService(store)
	ctx := context.Background()

	q, err := svc.Submit(ctx, &models.CreateQuoteRequest{
		ContactName: "Jo", Email: "jo@acme.com", RequestType: "standard",
	})
	require.NoError(t, err)

	// pending cannot jump straight to accepted.
	_, err = svc.UpdateStatus(ctx, q.ID, models.QuoteAccepted)
	assert.Error(t, err)

	// The legal path walks forward.
	_, err = svc.UpdateStatus(ctx, q.ID, models.QuoteInReview)
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, q.ID, models.QuoteQuoted)
	require.NoError(t, err)
	updated, err := svc.UpdateStatus(ctx, q.ID, models.QuoteAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.QuoteAccepted, updated.Status)

	// Terminal states are frozen.
	_, err = svc.UpdateStatus(ctx, q.ID, models.QuoteCancelled)
	assert.Error(t, err)
}

func TestTriageOrdersByPriority(t *testing.T) {
	store := newFakeQuoteStore()
	svc := NewQuoteService(store)
	now := time.Date(2026, 1, 26, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	low := &models.Quote{ContactName: "A", Email: "a@x.com", RequestType: "standard", Status: models.QuotePending}
	high := &models.Quote{ContactName: "B", Email: "b@x.com", RequestType: "expedited", Status: models.QuotePending,
		CompanyName: "Acme", Urgent: true, LeadScore: 6}
	store.Create(ctx, low)
	store.Create(ctx, high)
	store.quotes[low.ID].CreatedAt = now.Add(-time.Hour)
	store.quotes[high.ID].CreatedAt = now.Add(-time.Hour)

	triage, err := svc.Triage(ctx)
	require.NoError(t, err)
	require.Len(t, triage, 2)
	assert.Equal(t, "B", triage[0].ContactName)
	assert.Greater(t, triage[0].Priority, triage[1].Priority)
	assert.Equal(t, SLAOk, triage[0].SLA)
}
