package models

import "time"

// Load statuses form a closed set. Unmapped vendor statuses fall back to
// StatusBooked, never to an empty string.
const (
	StatusBooked         = "booked"
	StatusAtPort         = "at_port"
	StatusPickedUp       = "picked_up"
	StatusInTransit      = "in_transit"
	StatusOutForDelivery = "out_for_delivery"
	StatusDelivered      = "delivered"
	StatusCancelled      = "cancelled"
	StatusException      = "exception"
)

// ValidStatuses is the closed set of internal load statuses.
var ValidStatuses = map[string]bool{
	StatusBooked:         true,
	StatusAtPort:         true,
	StatusPickedUp:       true,
	StatusInTransit:      true,
	StatusOutForDelivery: true,
	StatusDelivered:      true,
	StatusCancelled:      true,
	StatusException:      true,
}

type Load struct {
	ID              int        `json:"id"`
	TrackingNumber  string     `json:"tracking_number"`
	ReferenceNumber string     `json:"reference_number"`          // PortPro reference (customer-visible)
	VendorID        string     `json:"vendor_id,omitempty"`       // PortPro internal _id, preferred match key
	ContainerNumber string     `json:"container_number"`
	ContainerSize   string     `json:"container_size,omitempty"`
	ContainerType   string     `json:"container_type,omitempty"`
	SSL             string     `json:"ssl,omitempty"` // steamship line
	ChassisNumber   string     `json:"chassis_number,omitempty"`
	Status          string     `json:"status"`
	Origin          string     `json:"origin,omitempty"`
	Destination     string     `json:"destination,omitempty"`
	ReturnLocation  string     `json:"return_location,omitempty"`
	ETA             *time.Time `json:"eta,omitempty"`
	PickupDate      *time.Time `json:"pickup_date,omitempty"`
	DeliveryDate    *time.Time `json:"delivery_date,omitempty"`
	LastFreeDay     *time.Time `json:"last_free_day,omitempty"`
	Revenue         *float64   `json:"revenue,omitempty"`
	Margin          *float64   `json:"margin,omitempty"`
	CustomerName    string     `json:"customer_name,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Stop types for load events
const (
	StopPickup   = "pickup"
	StopHook     = "hook"
	StopDrop     = "drop"
	StopDeliver  = "deliver"
	StopReturn   = "return"
	StopYard     = "yard"
	StopTerminal = "terminal"
)

// LoadEvent is one entry in a load's append-only movement history.
// PortPro-sourced events are deleted and regenerated wholesale on each sync
// pass, so out-of-order webhook deliveries cannot leave partial histories.
type LoadEvent struct {
	ID          int        `json:"id"`
	LoadID      int        `json:"load_id"`
	Source      string     `json:"source"` // 'portpro' or 'manual'
	MoveNumber  int        `json:"move_number"`
	StopNumber  int        `json:"stop_number"`
	StopType    string     `json:"stop_type"`
	Location    string     `json:"location,omitempty"`
	Driver      string     `json:"driver,omitempty"`
	ArrivedAt   *time.Time `json:"arrived_at,omitempty"`
	DepartedAt  *time.Time `json:"departed_at,omitempty"`
	DurationMin *int       `json:"duration_minutes,omitempty"`
	Completed   bool       `json:"completed"`
	InProgress  bool       `json:"in_progress"`
	CreatedAt   time.Time  `json:"created_at"`
}

const EventSourcePortPro = "portpro"
