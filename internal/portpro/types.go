package portpro

import "time"

// Vendor-shaped payloads. PortPro sends loosely typed JSON: lookup fields may
// be a bare string, an object with a label, or an object with a name, and
// driver orders may or may not nest their stops under "moves". All of that
// shape variance is normalized here and nowhere else.

// WebhookEnvelope is the body of an inbound PortPro webhook.
type WebhookEnvelope struct {
	Event     string     `json:"event"`
	Timestamp string     `json:"timestamp,omitempty"`
	Data      VendorLoad `json:"data"`
}

// VendorLoad is a PortPro load record as delivered by webhook or pull API.
type VendorLoad struct {
	ID              string       `json:"_id"`
	ReferenceNumber string       `json:"reference_number"`
	ContainerNo     string       `json:"containerNo"`
	ContainerSize   interface{}  `json:"containerSize"`   // lookup field
	ContainerType   interface{}  `json:"containerType"`   // lookup field
	ContainerOwner  interface{}  `json:"containerOwner"`  // lookup field (SSL)
	ChassisNo       string       `json:"chassisNo"`
	Status          string       `json:"status"`
	Caller          *VendorParty `json:"caller"`
	Shipper         *VendorParty `json:"shipper"`
	Consignee       *VendorParty `json:"consignee"`
	EmptyOrigin     *VendorParty `json:"emptyOrigin"`
	ETA             string       `json:"vesselETA"`
	PickupDate      string       `json:"pickupTime"`
	DeliveryDate    string       `json:"deliveryTime"`
	LastFreeDay     string       `json:"lastFreeDay"`
	TotalAmount     *float64     `json:"totalAmount"` // revenue
	DriverPays      []CostItem   `json:"driverPays"`
	CarrierPays     []CostItem   `json:"carrierPays"`
	Expenses        []CostItem   `json:"expenses"`
	DriverOrder     []DriverStop `json:"driverOrder"`
}

// VendorParty is a company/location attached to a load.
type VendorParty struct {
	CompanyName string `json:"company_name"`
	Address     struct {
		Address string `json:"address"` // pre-formatted full address, preferred
		Street  string `json:"street"`
		City    string `json:"city"`
		State   string `json:"state"`
		Zip     string `json:"zip_code"`
		Country string `json:"country"`
	} `json:"address"`
}

// CostItem is one cost line: either a flat amount or a nested pricing
// breakdown whose finalAmounts sum to the line total.
type CostItem struct {
	Amount  *float64      `json:"amount"`
	Pricing []PricingPart `json:"pricing"`
}

type PricingPart struct {
	FinalAmount float64 `json:"finalAmount"`
}

// DriverStop is one element of driverOrder. The flat variant carries stop
// fields directly; the nested variant wraps them in Moves.
type DriverStop struct {
	Type         string        `json:"type"` // PULLCONTAINER, DELIVERLOAD, ...
	MoveID       string        `json:"moveId"`
	CustomerName string        `json:"company_name"`
	Address      interface{}   `json:"address"` // string or {address: ...}
	Arrived      string        `json:"arrived"`
	Departed     string        `json:"departed"`
	IsVoidOut    bool          `json:"isVoidOut"`
	Driver       *VendorDriver `json:"driver"`
	DriverName   string        `json:"driverName"`
	Moves        []DriverStop  `json:"moves"` // nested variant
}

type VendorDriver struct {
	Name     string `json:"name"`
	LastName string `json:"lastName"`
}

// LoadList is the pull API page response.
type LoadList struct {
	Data  []VendorLoad `json:"data"`
	Count int          `json:"count"`
}

// vendor timestamps arrive as RFC3339 or date-only strings
var vendorTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02",
}

// ParseVendorTime parses a vendor timestamp, returning nil for empty or
// unparseable values.
func ParseVendorTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range vendorTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
