package repositories

import (
	"context"
	"fmt"

	"drayage-backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LoadEventRepository struct {
	DB *pgxpool.Pool
}

func NewLoadEventRepository(db *pgxpool.Pool) *LoadEventRepository {
	return &LoadEventRepository{DB: db}
}

// DeleteBySource removes every event of the given source for a load. Sync
// passes delete and regenerate vendor-sourced history wholesale so that
// out-of-order webhook deliveries cannot accumulate duplicates.
func (r *LoadEventRepository) DeleteBySource(ctx context.Context, loadID int, source string) error {
	_, err := r.DB.Exec(ctx,
		`DELETE FROM load_events WHERE load_id=$1 AND source=$2`, loadID, source)
	return err
}

func (r *LoadEventRepository) Create(ctx context.Context, e *models.LoadEvent) error {
	query := `
		INSERT INTO load_events (load_id, source, move_number, stop_number, stop_type,
			location, driver, arrived_at, departed_at, duration_minutes, completed, in_progress)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`
	return r.DB.QueryRow(ctx, query,
		e.LoadID, e.Source, e.MoveNumber, e.StopNumber, e.StopType,
		e.Location, e.Driver, e.ArrivedAt, e.DepartedAt, e.DurationMin,
		e.Completed, e.InProgress,
	).Scan(&e.ID, &e.CreatedAt)
}

// ReplaceForLoad deletes prior events of the source and inserts the new set
// in one transaction.
func (r *LoadEventRepository) ReplaceForLoad(ctx context.Context, loadID int, source string, events []models.LoadEvent) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin event replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM load_events WHERE load_id=$1 AND source=$2`, loadID, source); err != nil {
		return fmt.Errorf("delete prior events: %w", err)
	}

	for _, e := range events {
		_, err := tx.Exec(ctx, `
			INSERT INTO load_events (load_id, source, move_number, stop_number, stop_type,
				location, driver, arrived_at, departed_at, duration_minutes, completed, in_progress)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			loadID, source, e.MoveNumber, e.StopNumber, e.StopType,
			e.Location, e.Driver, e.ArrivedAt, e.DepartedAt, e.DurationMin,
			e.Completed, e.InProgress)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *LoadEventRepository) ListByLoad(ctx context.Context, loadID int) ([]*models.LoadEvent, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, load_id, source, move_number, stop_number, stop_type,
			COALESCE(location, ''), COALESCE(driver, ''), arrived_at, departed_at,
			duration_minutes, completed, in_progress, created_at
		FROM load_events
		WHERE load_id=$1
		ORDER BY move_number, stop_number`, loadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.LoadEvent
	for rows.Next() {
		var e models.LoadEvent
		err := rows.Scan(&e.ID, &e.LoadID, &e.Source, &e.MoveNumber, &e.StopNumber, &e.StopType,
			&e.Location, &e.Driver, &e.ArrivedAt, &e.DepartedAt,
			&e.DurationMin, &e.Completed, &e.InProgress, &e.CreatedAt)
		if err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
