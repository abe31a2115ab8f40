package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"drayage-backend/internal/metrics"
	"drayage-backend/internal/models"
	"drayage-backend/internal/portpro"
)

// DeadLetterStore is the persistence surface the DLQ service needs.
type DeadLetterStore interface {
	Create(ctx context.Context, e *models.DeadLetterEntry) error
	Get(ctx context.Context, id int) (*models.DeadLetterEntry, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.DeadLetterEntry, error)
	List(ctx context.Context, status string) ([]*models.DeadLetterEntry, error)
	UpdateRetryState(ctx context.Context, id, retryCount int, nextRetryAt time.Time, status, errorMessage string) error
	MarkStatus(ctx context.Context, id int, status string) error
	Delete(ctx context.Context, id int) error
	Requeue(ctx context.Context, id int) error
	Counts(ctx context.Context) (pending int, exhausted int, err error)
}

// RetryHandler reprocesses one dead-lettered event.
type RetryHandler func(ctx context.Context, entry *models.DeadLetterEntry) error

// DLQService schedules failed events for exponential-backoff retry. Entries
// past maxRetries flip to exhausted and wait for manual requeue.
type DLQService struct {
	store      DeadLetterStore
	baseDelay  time.Duration
	maxDelay   time.Duration
	maxRetries int
	handler    RetryHandler
	now        func() time.Time
}

func NewDLQService(store DeadLetterStore, baseDelay, maxDelay time.Duration, maxRetries int) *DLQService {
	return &DLQService{
		store:      store,
		baseDelay:  baseDelay,
		maxDelay:   maxDelay,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

// SetHandler wires the retry handler after construction. The sync engine owns
// event processing but also pushes into this queue, so the dependency is
// injected late.
func (s *DLQService) SetHandler(h RetryHandler) {
	s.handler = h
}

// BackoffDelay returns the delay before attempt retryCount+1:
// min(base * 2^retryCount, max).
func (s *DLQService) BackoffDelay(retryCount int) time.Duration {
	d := s.baseDelay
	for i := 0; i < retryCount; i++ {
		d *= 2
		if d >= s.maxDelay || d <= 0 {
			return s.maxDelay
		}
	}
	if d > s.maxDelay {
		return s.maxDelay
	}
	return d
}

// Push records a failed event for later retry. Vendor outages get a longer
// initial delay since immediate retries against a down API are pointless.
func (s *DLQService) Push(ctx context.Context, eventType string, payload json.RawMessage, procErr error) error {
	delay := s.BackoffDelay(0)
	if errors.Is(procErr, portpro.ErrVendorUnavailable) {
		delay = s.BackoffDelay(2)
	}

	entry := &models.DeadLetterEntry{
		EventType:    eventType,
		Payload:      payload,
		ErrorMessage: procErr.Error(),
		RetryCount:   0,
		NextRetryAt:  s.now().Add(delay),
		Status:       models.DeadLetterPending,
	}
	if err := s.store.Create(ctx, entry); err != nil {
		return fmt.Errorf("%w: dead-letter push: %v", ErrStoreUnavailable, err)
	}
	log.Printf("[DLQ] queued %s event for retry at %s: %v", eventType, entry.NextRetryAt.Format(time.RFC3339), procErr)
	s.refreshGauges(ctx)
	return nil
}

// ProcessDue retries every entry whose schedule has come. Returns how many
// entries were attempted and how many succeeded.
func (s *DLQService) ProcessDue(ctx context.Context) (attempted, succeeded int, err error) {
	if s.handler == nil {
		return 0, 0, errors.New("dlq retry handler not set")
	}

	entries, err := s.store.ListDue(ctx, s.now(), 50)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: list due: %v", ErrStoreUnavailable, err)
	}

	for _, entry := range entries {
		attempted++
		retryErr := s.handler(ctx, entry)
		if retryErr == nil {
			if delErr := s.store.Delete(ctx, entry.ID); delErr != nil {
				log.Printf("[DLQ] entry %d succeeded but cleanup failed: %v", entry.ID, delErr)
			}
			succeeded++
			continue
		}

		retryCount := entry.RetryCount + 1
		if retryCount >= s.maxRetries {
			log.Printf("[DLQ] entry %d exhausted after %d retries: %v", entry.ID, retryCount, retryErr)
			if markErr := s.store.UpdateRetryState(ctx, entry.ID, retryCount, s.now(), models.DeadLetterExhausted, retryErr.Error()); markErr != nil {
				log.Printf("[DLQ] failed to mark entry %d exhausted: %v", entry.ID, markErr)
			}
			continue
		}
		next := s.now().Add(s.BackoffDelay(retryCount))
		if updErr := s.store.UpdateRetryState(ctx, entry.ID, retryCount, next, models.DeadLetterRetrying, retryErr.Error()); updErr != nil {
			log.Printf("[DLQ] failed to reschedule entry %d: %v", entry.ID, updErr)
		}
	}

	s.refreshGauges(ctx)
	return attempted, succeeded, nil
}

// Requeue resets an exhausted entry for immediate retry.
func (s *DLQService) Requeue(ctx context.Context, id int) error {
	if err := s.store.Requeue(ctx, id); err != nil {
		return err
	}
	s.refreshGauges(ctx)
	return nil
}

func (s *DLQService) List(ctx context.Context, status string) ([]*models.DeadLetterEntry, error) {
	return s.store.List(ctx, status)
}

func (s *DLQService) Delete(ctx context.Context, id int) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.refreshGauges(ctx)
	return nil
}

// Stats returns current queue depth for the monitoring surface.
func (s *DLQService) Stats(ctx context.Context) (pending int, exhausted int, err error) {
	return s.store.Counts(ctx)
}

func (s *DLQService) refreshGauges(ctx context.Context) {
	pending, exhausted, err := s.store.Counts(ctx)
	if err != nil {
		return
	}
	metrics.DLQDepth.Set(float64(pending))
	metrics.DLQExhausted.Set(float64(exhausted))
}
