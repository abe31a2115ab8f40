package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"drayage-backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationRepository struct {
	DB *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

// CreateInApp inserts an in-app notification row for one recipient.
func (r *NotificationRepository) CreateInApp(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (user_id, event_type, entity_id, title, body, priority)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	return r.DB.QueryRow(ctx, query,
		n.UserID, n.EventType, n.EntityID, n.Title, n.Body, n.Priority,
	).Scan(&n.ID, &n.CreatedAt)
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, event_type, COALESCE(entity_id, ''), title, body, priority, read, created_at
		FROM notifications WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.EventType, &n.EntityID, &n.Title, &n.Body,
			&n.Priority, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID int) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE notifications SET read=true WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetPreferences loads a recipient's preferences, or ErrNotFound when the
// recipient never configured any.
func (r *NotificationRepository) GetPreferences(ctx context.Context, userID int) (*models.NotificationPreferences, error) {
	var p models.NotificationPreferences
	var overrides []byte
	err := r.DB.QueryRow(ctx, `
		SELECT user_id, email_enabled, in_app_enabled, COALESCE(event_overrides, '{}'),
			COALESCE(quiet_hours_start, ''), COALESCE(quiet_hours_end, ''),
			COALESCE(timezone, ''), min_email_priority, updated_at
		FROM notification_preferences WHERE user_id=$1`, userID,
	).Scan(&p.UserID, &p.EmailEnabled, &p.InAppEnabled, &overrides,
		&p.QuietHoursStart, &p.QuietHoursEnd, &p.Timezone, &p.MinEmailPriority, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(overrides) > 0 {
		if err := json.Unmarshal(overrides, &p.EventOverrides); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func (r *NotificationRepository) UpsertPreferences(ctx context.Context, p *models.NotificationPreferences) error {
	overrides, err := json.Marshal(p.EventOverrides)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO notification_preferences
			(user_id, email_enabled, in_app_enabled, event_overrides, quiet_hours_start,
			 quiet_hours_end, timezone, min_email_priority, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET email_enabled=$2, in_app_enabled=$3, event_overrides=$4,
			quiet_hours_start=$5, quiet_hours_end=$6, timezone=$7,
			min_email_priority=$8, updated_at=NOW()
	`
	_, err = r.DB.Exec(ctx, query,
		p.UserID, p.EmailEnabled, p.InAppEnabled, overrides,
		p.QuietHoursStart, p.QuietHoursEnd, p.Timezone, p.MinEmailPriority)
	return err
}

func (r *NotificationRepository) CreateDigestItem(ctx context.Context, d *models.DigestItem) error {
	query := `
		INSERT INTO notification_digest_items (user_id, event_type, title, body, scheduled_for, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	return r.DB.QueryRow(ctx, query,
		d.UserID, d.EventType, d.Title, d.Body, d.ScheduledFor, d.Status,
	).Scan(&d.ID, &d.CreatedAt)
}

// ListDigestUsersDue returns the distinct recipients with pending digest
// items scheduled at or before now.
func (r *NotificationRepository) ListDigestUsersDue(ctx context.Context, now time.Time) ([]int, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT DISTINCT user_id FROM notification_digest_items
		WHERE status='pending' AND scheduled_for <= $1`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *NotificationRepository) ListPendingDigestItems(ctx context.Context, userID int, now time.Time) ([]*models.DigestItem, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, event_type, title, body, scheduled_for, status, created_at
		FROM notification_digest_items
		WHERE user_id=$1 AND status='pending' AND scheduled_for <= $2
		ORDER BY created_at ASC`, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.DigestItem
	for rows.Next() {
		var d models.DigestItem
		if err := rows.Scan(&d.ID, &d.UserID, &d.EventType, &d.Title, &d.Body,
			&d.ScheduledFor, &d.Status, &d.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &d)
	}
	return items, rows.Err()
}

// MarkDigestItemsSent flips items to sent so a crashed digest run never
// resends what already went out.
func (r *NotificationRepository) MarkDigestItemsSent(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.DB.Exec(ctx,
		`UPDATE notification_digest_items SET status='sent' WHERE id = ANY($1)`, ids)
	return err
}
