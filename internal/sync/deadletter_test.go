package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"drayage-backend/internal/models"
	"drayage-backend/internal/portpro"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDeadLetterStore keeps entries in memory.
type fakeDeadLetterStore struct {
	entries map[int]*models.DeadLetterEntry
	nextID  int
}

func newFakeDeadLetterStore() *fakeDeadLetterStore {
	return &fakeDeadLetterStore{entries: map[int]*models.DeadLetterEntry{}, nextID: 1}
}

func (f *fakeDeadLetterStore) Create(_ context.Context, e *models.DeadLetterEntry) error {
	e.ID = f.nextID
	f.nextID++
	cp := *e
	f.entries[e.ID] = &cp
	return nil
}

func (f *fakeDeadLetterStore) Get(_ context.Context, id int) (*models.DeadLetterEntry, error) {
	e, ok := f.entries[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *e
	return &cp, nil
}

func (f *fakeDeadLetterStore) ListDue(_ context.Context, now time.Time, limit int) ([]*models.DeadLetterEntry, error) {
	var due []*models.DeadLetterEntry
	for _, e := range f.entries {
		if !e.NextRetryAt.After(now) && e.Status != models.DeadLetterExhausted && len(due) < limit {
			cp := *e
			due = append(due, &cp)
		}
	}
	return due, nil
}

func (f *fakeDeadLetterStore) List(_ context.Context, status string) ([]*models.DeadLetterEntry, error) {
	var out []*models.DeadLetterEntry
	for _, e := range f.entries {
		if status == "" || e.Status == status {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeDeadLetterStore) UpdateRetryState(_ context.Context, id, retryCount int, nextRetryAt time.Time, status, errorMessage string) error {
	e, ok := f.entries[id]
	if !ok {
		return errors.New("not found")
	}
	e.RetryCount = retryCount
	e.NextRetryAt = nextRetryAt
	e.Status = status
	e.ErrorMessage = errorMessage
	return nil
}

func (f *fakeDeadLetterStore) MarkStatus(_ context.Context, id int, status string) error {
	e, ok := f.entries[id]
	if !ok {
		return errors.New("not found")
	}
	e.Status = status
	return nil
}

func (f *fakeDeadLetterStore) Delete(_ context.Context, id int) error {
	delete(f.entries, id)
	return nil
}

func (f *fakeDeadLetterStore) Requeue(_ context.Context, id int) error {
	e, ok := f.entries[id]
	if !ok {
		return errors.New("not found")
	}
	e.RetryCount = 0
	e.NextRetryAt = time.Time{}
	e.Status = models.DeadLetterPending
	return nil
}

func (f *fakeDeadLetterStore) Counts(_ context.Context) (int, int, error) {
	pending, exhausted := 0, 0
	for _, e := range f.entries {
		if e.Status == models.DeadLetterExhausted {
			exhausted++
		} else {
			pending++
		}
	}
	return pending, exhausted, nil
}

func TestBackoffDelay(t *testing.T) {
	svc := NewDLQService(newFakeDeadLetterStore(), time.Minute, time.Hour, 5)

	assert.Equal(t, time.Minute, svc.BackoffDelay(0))
	assert.Equal(t, 2*time.Minute, svc.BackoffDelay(1))
	assert.Equal(t, 4*time.Minute, svc.BackoffDelay(2))
	assert.Equal(t, 32*time.Minute, svc.BackoffDelay(5))

	// Capped at the maximum delay.
	assert.Equal(t, time.Hour, svc.BackoffDelay(6))
	assert.Equal(t, time.Hour, svc.BackoffDelay(50))
}

func TestPushSchedulesRetry(t *testing.T) {
	store := newFakeDeadLetterStore()
	svc := NewDLQService(store, time.Minute, time.Hour, 5)
	base := time.Date(2026, 1, 26, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	ctx := context.Background()

	err := svc.Push(ctx, "load_status_updated", json.RawMessage(`{}`), errors.New("db write failed"))
	require.NoError(t, err)

	entry := store.entries[1]
	assert.Equal(t, models.DeadLetterPending, entry.Status)
	assert.Equal(t, 0, entry.RetryCount)
	assert.Equal(t, base.Add(time.Minute), entry.NextRetryAt)
}

func TestPushVendorOutageGetsLongerDelay(t *testing.T) {
	store := newFakeDeadLetterStore()
	svc := NewDLQService(store, time.Minute, time.Hour, 5)
	base := time.Date(2026, 1, 26, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	wrapped := fmt.Errorf("fetch: %w", portpro.ErrVendorUnavailable)
	require.NoError(t, svc.Push(context.Background(), "load_polled", json.RawMessage(`{}`), wrapped))

	assert.Equal(t, base.Add(4*time.Minute), store.entries[1].NextRetryAt)
}

func TestProcessDueRetriesAndDeletesOnSuccess(t *testing.T) {
	store := newFakeDeadLetterStore()
	svc := NewDLQService(store, time.Minute, time.Hour, 5)
	svc.now = func() time.Time { return time.Date(2026, 1, 26, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	store.Create(ctx, &models.DeadLetterEntry{
		EventType:   "load_status_updated",
		Payload:     json.RawMessage(`{}`),
		NextRetryAt: time.Date(2026, 1, 26, 11, 0, 0, 0, time.UTC),
		Status:      models.DeadLetterPending,
	})

	svc.SetHandler(func(context.Context, *models.DeadLetterEntry) error { return nil })
	attempted, succeeded, err := svc.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, attempted)
	assert.Equal(t, 1, succeeded)
	assert.Empty(t, store.entries)
}

func TestProcessDueReschedulesOnFailure(t *testing.T) {
	store := newFakeDeadLetterStore()
	svc := NewDLQService(store, time.Minute, time.Hour, 5)
	now := time.Date(2026, 1, 26, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	store.Create(ctx, &models.DeadLetterEntry{
		EventType:   "load_status_updated",
		Payload:     json.RawMessage(`{}`),
		RetryCount:  1,
		NextRetryAt: now.Add(-time.Minute),
		Status:      models.DeadLetterRetrying,
	})

	svc.SetHandler(func(context.Context, *models.DeadLetterEntry) error { return errors.New("still broken") })
	attempted, succeeded, err := svc.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, attempted)
	assert.Equal(t, 0, succeeded)

	entry := store.entries[1]
	assert.Equal(t, 2, entry.RetryCount)
	assert.Equal(t, models.DeadLetterRetrying, entry.Status)
	assert.Equal(t, now.Add(4*time.Minute), entry.NextRetryAt)
	assert.Equal(t, "still broken", entry.ErrorMessage)
}

func TestProcessDueExhaustsAfterMaxRetries(t *testing.T) {
	store := newFakeDeadLetterStore()
	svc := NewDLQService(store, time.Minute, time.Hour, 3)
	now := time.Date(2026, 1, 26, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	store.Create(ctx, &models.DeadLetterEntry{
		EventType:   "load_status_updated",
		Payload:     json.RawMessage(`{}`),
		RetryCount:  2,
		NextRetryAt: now.Add(-time.Minute),
		Status:      models.DeadLetterRetrying,
	})

	svc.SetHandler(func(context.Context, *models.DeadLetterEntry) error { return errors.New("permanent") })
	_, _, err := svc.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DeadLetterExhausted, store.entries[1].Status)

	// Exhausted entries are not picked up again.
	attempted, _, err := svc.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, attempted)

	// Until a manual requeue resets them.
	require.NoError(t, svc.Requeue(ctx, 1))
	attempted, _, err = svc.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, attempted)
}
