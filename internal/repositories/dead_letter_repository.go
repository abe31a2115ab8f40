package repositories

import (
	"context"
	"errors"
	"time"

	"drayage-backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DeadLetterRepository struct {
	DB *pgxpool.Pool
}

func NewDeadLetterRepository(db *pgxpool.Pool) *DeadLetterRepository {
	return &DeadLetterRepository{DB: db}
}

const deadLetterColumns = `id, event_type, payload, error_message, retry_count, next_retry_at, status, created_at, updated_at`

func scanDeadLetter(row pgx.Row) (*models.DeadLetterEntry, error) {
	var e models.DeadLetterEntry
	err := row.Scan(&e.ID, &e.EventType, &e.Payload, &e.ErrorMessage,
		&e.RetryCount, &e.NextRetryAt, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *DeadLetterRepository) Create(ctx context.Context, e *models.DeadLetterEntry) error {
	query := `
		INSERT INTO dead_letter_events (event_type, payload, error_message, retry_count, next_retry_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	return r.DB.QueryRow(ctx, query,
		e.EventType, e.Payload, e.ErrorMessage, e.RetryCount, e.NextRetryAt, e.Status,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

func (r *DeadLetterRepository) Get(ctx context.Context, id int) (*models.DeadLetterEntry, error) {
	return scanDeadLetter(r.DB.QueryRow(ctx,
		`SELECT `+deadLetterColumns+` FROM dead_letter_events WHERE id=$1`, id))
}

// ListDue returns non-exhausted entries whose retry time has come.
func (r *DeadLetterRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.DeadLetterEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.Query(ctx, `
		SELECT `+deadLetterColumns+`
		FROM dead_letter_events
		WHERE next_retry_at <= $1 AND status != 'exhausted'
		ORDER BY next_retry_at ASC
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDeadLetters(rows)
}

func (r *DeadLetterRepository) List(ctx context.Context, status string) ([]*models.DeadLetterEntry, error) {
	query := `SELECT ` + deadLetterColumns + ` FROM dead_letter_events`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status=$1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC LIMIT 200`

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDeadLetters(rows)
}

func collectDeadLetters(rows pgx.Rows) ([]*models.DeadLetterEntry, error) {
	var entries []*models.DeadLetterEntry
	for rows.Next() {
		e, err := scanDeadLetter(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// UpdateRetryState records a failed retry attempt.
func (r *DeadLetterRepository) UpdateRetryState(ctx context.Context, id, retryCount int, nextRetryAt time.Time, status, errorMessage string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE dead_letter_events
		SET retry_count=$1, next_retry_at=$2, status=$3, error_message=$4, updated_at=NOW()
		WHERE id=$5`, retryCount, nextRetryAt, status, errorMessage, id)
	return err
}

func (r *DeadLetterRepository) MarkStatus(ctx context.Context, id int, status string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE dead_letter_events SET status=$1, updated_at=NOW() WHERE id=$2`, status, id)
	return err
}

func (r *DeadLetterRepository) Delete(ctx context.Context, id int) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM dead_letter_events WHERE id=$1`, id)
	return err
}

// Requeue resets an entry (typically exhausted) for immediate retry.
func (r *DeadLetterRepository) Requeue(ctx context.Context, id int) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE dead_letter_events
		SET retry_count=0, next_retry_at=NOW(), status='pending', updated_at=NOW()
		WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountCreatedSince reports how many entries were dead-lettered after the
// given time, used for failure-rate alerting.
func (r *DeadLetterRepository) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.DB.QueryRow(ctx,
		`SELECT COUNT(*) FROM dead_letter_events WHERE created_at >= $1`, since).Scan(&count)
	return count, err
}

// Counts returns total non-exhausted and exhausted entry counts.
func (r *DeadLetterRepository) Counts(ctx context.Context) (pending int, exhausted int, err error) {
	err = r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE status != 'exhausted'),
		       COUNT(*) FILTER (WHERE status = 'exhausted')
		FROM dead_letter_events`).Scan(&pending, &exhausted)
	return pending, exhausted, err
}
