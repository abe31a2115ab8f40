package repositories

import (
	"context"
	"errors"

	"drayage-backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LoadRepository struct {
	DB *pgxpool.Pool
}

func NewLoadRepository(db *pgxpool.Pool) *LoadRepository {
	return &LoadRepository{DB: db}
}

const loadColumns = `id, tracking_number, COALESCE(reference_number, ''), COALESCE(vendor_id, ''),
	container_number, COALESCE(container_size, ''), COALESCE(container_type, ''), COALESCE(ssl, ''),
	COALESCE(chassis_number, ''), status, COALESCE(origin, ''), COALESCE(destination, ''),
	COALESCE(return_location, ''), eta, pickup_date, delivery_date, last_free_day,
	revenue, margin, COALESCE(customer_name, ''), created_at, updated_at`

func scanLoad(row pgx.Row) (*models.Load, error) {
	var l models.Load
	err := row.Scan(&l.ID, &l.TrackingNumber, &l.ReferenceNumber, &l.VendorID,
		&l.ContainerNumber, &l.ContainerSize, &l.ContainerType, &l.SSL,
		&l.ChassisNumber, &l.Status, &l.Origin, &l.Destination,
		&l.ReturnLocation, &l.ETA, &l.PickupDate, &l.DeliveryDate, &l.LastFreeDay,
		&l.Revenue, &l.Margin, &l.CustomerName, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserts a new load with a generated DRY-prefixed tracking number.
func (r *LoadRepository) Create(ctx context.Context, l *models.Load) error {
	query := `
		WITH next_num AS (
			SELECT COALESCE(COUNT(*), 0) + 1 AS num FROM loads
		)
		INSERT INTO loads (tracking_number, reference_number, vendor_id, container_number,
			container_size, container_type, ssl, chassis_number, status, origin, destination,
			return_location, eta, pickup_date, delivery_date, last_free_day, revenue, margin, customer_name)
		SELECT 'DRY-' || LPAD(num::text, 6, '0'),
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		FROM next_num
		RETURNING id, tracking_number, created_at, updated_at
	`
	return r.DB.QueryRow(ctx, query,
		l.ReferenceNumber, l.VendorID, l.ContainerNumber,
		l.ContainerSize, l.ContainerType, l.SSL, l.ChassisNumber, l.Status,
		l.Origin, l.Destination, l.ReturnLocation,
		l.ETA, l.PickupDate, l.DeliveryDate, l.LastFreeDay,
		l.Revenue, l.Margin, l.CustomerName,
	).Scan(&l.ID, &l.TrackingNumber, &l.CreatedAt, &l.UpdatedAt)
}

// Update overwrites the vendor-sourced fields of an existing load.
func (r *LoadRepository) Update(ctx context.Context, l *models.Load) error {
	query := `
		UPDATE loads SET reference_number=$1, vendor_id=$2, container_number=$3,
			container_size=$4, container_type=$5, ssl=$6, chassis_number=$7, status=$8,
			origin=$9, destination=$10, return_location=$11, eta=$12, pickup_date=$13,
			delivery_date=$14, last_free_day=$15, revenue=$16, margin=$17,
			customer_name=$18, updated_at=NOW()
		WHERE id=$19
	`
	_, err := r.DB.Exec(ctx, query,
		l.ReferenceNumber, l.VendorID, l.ContainerNumber,
		l.ContainerSize, l.ContainerType, l.SSL, l.ChassisNumber, l.Status,
		l.Origin, l.Destination, l.ReturnLocation, l.ETA, l.PickupDate,
		l.DeliveryDate, l.LastFreeDay, l.Revenue, l.Margin, l.CustomerName, l.ID)
	return err
}

func (r *LoadRepository) Get(ctx context.Context, id int) (*models.Load, error) {
	return scanLoad(r.DB.QueryRow(ctx, `SELECT `+loadColumns+` FROM loads WHERE id=$1`, id))
}

// GetByVendorID looks a load up by PortPro's internal id, the preferred match
// key for upserts since container numbers get reused in drayage.
func (r *LoadRepository) GetByVendorID(ctx context.Context, vendorID string) (*models.Load, error) {
	return scanLoad(r.DB.QueryRow(ctx, `SELECT `+loadColumns+` FROM loads WHERE vendor_id=$1`, vendorID))
}

func (r *LoadRepository) GetByContainer(ctx context.Context, container string) (*models.Load, error) {
	return scanLoad(r.DB.QueryRow(ctx,
		`SELECT `+loadColumns+` FROM loads WHERE container_number=$1 ORDER BY updated_at DESC LIMIT 1`, container))
}

func (r *LoadRepository) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Load, error) {
	return scanLoad(r.DB.QueryRow(ctx,
		`SELECT `+loadColumns+` FROM loads WHERE tracking_number=$1`, trackingNumber))
}

func (r *LoadRepository) List(ctx context.Context, limit, offset int) ([]*models.Load, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.Query(ctx,
		`SELECT `+loadColumns+` FROM loads ORDER BY updated_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var loads []*models.Load
	for rows.Next() {
		l, err := scanLoad(rows)
		if err != nil {
			return nil, err
		}
		loads = append(loads, l)
	}
	return loads, rows.Err()
}
