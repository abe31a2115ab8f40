package repositories

import (
	"context"
	"errors"
	"time"

	"drayage-backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type QuoteRepository struct {
	DB *pgxpool.Pool
}

func NewQuoteRepository(db *pgxpool.Pool) *QuoteRepository {
	return &QuoteRepository{DB: db}
}

const quoteColumns = `id, COALESCE(company_name, ''), contact_name, email, COALESCE(phone, ''),
	request_type, COALESCE(container_number, ''), COALESCE(origin, ''), COALESCE(destination, ''),
	last_free_day, time_sensitive, is_urgent, COALESCE(notes, ''), lead_score, status,
	assignee_id, created_at, updated_at`

func scanQuote(row pgx.Row) (*models.Quote, error) {
	var q models.Quote
	err := row.Scan(&q.ID, &q.CompanyName, &q.ContactName, &q.Email, &q.Phone,
		&q.RequestType, &q.ContainerNumber, &q.Origin, &q.Destination,
		&q.LastFreeDay, &q.TimeSensitive, &q.Urgent, &q.Notes, &q.LeadScore, &q.Status,
		&q.AssigneeID, &q.CreatedAt, &q.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuoteRepository) Create(ctx context.Context, q *models.Quote) error {
	query := `
		INSERT INTO quotes (company_name, contact_name, email, phone, request_type,
			container_number, origin, destination, last_free_day, time_sensitive,
			is_urgent, notes, lead_score, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at
	`
	return r.DB.QueryRow(ctx, query,
		q.CompanyName, q.ContactName, q.Email, q.Phone, q.RequestType,
		q.ContainerNumber, q.Origin, q.Destination, q.LastFreeDay, q.TimeSensitive,
		q.Urgent, q.Notes, q.LeadScore, q.Status,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}

func (r *QuoteRepository) Get(ctx context.Context, id int) (*models.Quote, error) {
	return scanQuote(r.DB.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id=$1`, id))
}

func (r *QuoteRepository) List(ctx context.Context, status string) ([]*models.Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status=$1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotes []*models.Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

// ListActive returns quotes still awaiting a response, for SLA dashboards.
func (r *QuoteRepository) ListActive(ctx context.Context) ([]*models.Quote, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+quoteColumns+` FROM quotes WHERE status IN ('pending', 'in_review') ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotes []*models.Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

// Assign sets the assignee with an updated_at optimistic guard. Two admins
// claiming the same quote race on the guard; the loser gets ErrConflict and
// must refetch. Assignment is only legal while the quote is assignable.
func (r *QuoteRepository) Assign(ctx context.Context, id, assigneeID int, expectedUpdatedAt time.Time) (*models.Quote, error) {
	query := `
		UPDATE quotes
		SET assignee_id=$1,
			status=CASE WHEN status='pending' THEN 'in_review' ELSE status END,
			updated_at=NOW()
		WHERE id=$2 AND updated_at=$3 AND status IN ('pending', 'in_review', 'quoted')
		RETURNING ` + quoteColumns
	q, err := scanQuote(r.DB.QueryRow(ctx, query, assigneeID, id, expectedUpdatedAt))
	if errors.Is(err, ErrNotFound) {
		// Distinguish a stale guard from a missing quote.
		if _, getErr := r.Get(ctx, id); getErr == nil {
			return nil, ErrConflict
		}
		return nil, ErrNotFound
	}
	return q, err
}

func (r *QuoteRepository) UpdateStatus(ctx context.Context, id int, status string) (*models.Quote, error) {
	query := `UPDATE quotes SET status=$1, updated_at=NOW() WHERE id=$2 RETURNING ` + quoteColumns
	return scanQuote(r.DB.QueryRow(ctx, query, status, id))
}
