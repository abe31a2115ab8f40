package portpro

import (
	"fmt"
	"strings"

	"drayage-backend/internal/models"
)

// statusMap translates PortPro load statuses into the internal enumeration.
// Anything not listed maps to booked.
var statusMap = map[string]string{
	"PENDING":                models.StatusBooked,
	"AVAILABLE":              models.StatusAtPort,
	"DEPARTED":               models.StatusAtPort,
	"DISPATCHED":             models.StatusPickedUp,
	"CHASSISPICK_ARRIVED":    models.StatusAtPort,
	"CHASSISPICK_DEPARTED":   models.StatusAtPort,
	"PULLCONTAINER_ARRIVED":  models.StatusAtPort,
	"PULLCONTAINER_DEPARTED": models.StatusPickedUp,
	"DROPCONTAINER_ARRIVED":  models.StatusInTransit,
	"DROPCONTAINER_DEPARTED": models.StatusInTransit,
	"HOOKCONTAINER_ARRIVED":  models.StatusInTransit,
	"HOOKCONTAINER_DEPARTED": models.StatusInTransit,
	"DELIVERLOAD_ARRIVED":    models.StatusOutForDelivery,
	"DELIVERLOAD_DEPARTED":   models.StatusDelivered,
	"RETURNCONTAINER_ARRIVED": models.StatusDelivered,
	"COMPLETED":              models.StatusDelivered,
	"APPROVED":               models.StatusDelivered,
	"BILLING":                models.StatusDelivered,
	"CANCELLED":              models.StatusCancelled,
	"HOLD":                   models.StatusException,
	"PROBLEM":                models.StatusException,
}

// MapVendorStatus translates a PortPro status into the internal status enum.
// Total over all strings: unknown and empty statuses map to booked.
func MapVendorStatus(vendorStatus string) string {
	if s, ok := statusMap[strings.ToUpper(strings.TrimSpace(vendorStatus))]; ok {
		return s
	}
	return models.StatusBooked
}

// ExtractLookupValue normalizes a lookup field that may arrive as a bare
// string, an object with a label, or an object with a name. Label wins over
// name. Absent values yield "".
func ExtractLookupValue(field interface{}) string {
	switch v := field.(type) {
	case string:
		return v
	case map[string]interface{}:
		if label, ok := v["label"].(string); ok && label != "" {
			return label
		}
		if name, ok := v["name"].(string); ok {
			return name
		}
	}
	return ""
}

// FormatLocation builds a display address from a vendor party. The vendor's
// pre-formatted address field wins when present; otherwise parts are joined
// with graceful omission. The country token is dropped when it is the
// domestic default.
func FormatLocation(p *VendorParty) string {
	if p == nil {
		return ""
	}
	if p.Address.Address != "" {
		return p.Address.Address
	}

	var parts []string
	if p.CompanyName != "" {
		parts = append(parts, p.CompanyName)
	}
	if p.Address.Street != "" {
		parts = append(parts, p.Address.Street)
	}
	if p.Address.City != "" {
		parts = append(parts, p.Address.City)
	}
	if p.Address.State != "" {
		stateZip := p.Address.State
		if p.Address.Zip != "" {
			stateZip += " " + p.Address.Zip
		}
		parts = append(parts, stateZip)
	}
	country := strings.ToUpper(p.Address.Country)
	if country != "" && country != "US" && country != "USA" {
		parts = append(parts, p.Address.Country)
	}
	return strings.Join(parts, ", ")
}

// ComputeMargin returns revenue minus all cost line items across the three
// cost collections, or nil when the load carries no revenue figure. Missing
// or empty cost collections count as zero.
func ComputeMargin(load *VendorLoad) *float64 {
	if load == nil || load.TotalAmount == nil {
		return nil
	}
	costs := 0.0
	for _, coll := range [][]CostItem{load.DriverPays, load.CarrierPays, load.Expenses} {
		for _, item := range coll {
			costs += costItemTotal(item)
		}
	}
	margin := *load.TotalAmount - costs
	return &margin
}

func costItemTotal(item CostItem) float64 {
	if len(item.Pricing) > 0 {
		sum := 0.0
		for _, p := range item.Pricing {
			sum += p.FinalAmount
		}
		return sum
	}
	if item.Amount != nil {
		return *item.Amount
	}
	return 0
}

// moveTypeMap translates PortPro move types into internal stop types.
var moveTypeMap = map[string]string{
	"PULLCONTAINER":   models.StopPickup,
	"HOOKCONTAINER":   models.StopHook,
	"DROPCONTAINER":   models.StopDrop,
	"DELIVERLOAD":     models.StopDeliver,
	"RETURNCONTAINER": models.StopReturn,
	"CHASSISPICK":     models.StopYard,
	"CHASSISTERMINATION": models.StopYard,
	"LIFTOFF":         models.StopTerminal,
	"LIFTON":          models.StopTerminal,
}

// MapMoveTypeToStopType translates a driver-order move type. Unknown types
// map to yard.
func MapMoveTypeToStopType(moveType string) string {
	if t, ok := moveTypeMap[strings.ToUpper(strings.TrimSpace(moveType))]; ok {
		return t
	}
	return models.StopYard
}

// stopAddress extracts a display location from the polymorphic address field.
func stopAddress(stop DriverStop) string {
	loc := ExtractLookupValue(stop.Address)
	if loc == "" {
		if m, ok := stop.Address.(map[string]interface{}); ok {
			if addr, ok := m["address"].(string); ok {
				loc = addr
			}
		}
	}
	if loc == "" {
		loc = stop.CustomerName
	}
	return loc
}

func stopDriver(stop DriverStop) string {
	if stop.Driver != nil {
		return strings.TrimSpace(stop.Driver.Name + " " + stop.Driver.LastName)
	}
	return stop.DriverName
}

// BuildStopEvent constructs a LoadEvent from one normalized driver stop.
// Completed once a departure time is set; in progress when arrived but not
// yet departed.
func BuildStopEvent(loadID int, moveNumber, stopNumber int, stop DriverStop) models.LoadEvent {
	arrived := ParseVendorTime(stop.Arrived)
	departed := ParseVendorTime(stop.Departed)

	ev := models.LoadEvent{
		LoadID:     loadID,
		Source:     models.EventSourcePortPro,
		MoveNumber: moveNumber,
		StopNumber: stopNumber,
		StopType:   MapMoveTypeToStopType(stop.Type),
		Location:   stopAddress(stop),
		Driver:     stopDriver(stop),
		ArrivedAt:  arrived,
		DepartedAt: departed,
		Completed:  departed != nil,
		InProgress: arrived != nil && departed == nil,
	}
	if arrived != nil && departed != nil {
		mins := int(departed.Sub(*arrived).Minutes())
		ev.DurationMin = &mins
	}
	return ev
}

// BuildMoveStartEvent constructs the synthetic event marking the start of a
// move (driver dispatched, no stop reached yet).
func BuildMoveStartEvent(loadID int, moveNumber int, first DriverStop) models.LoadEvent {
	return models.LoadEvent{
		LoadID:     loadID,
		Source:     models.EventSourcePortPro,
		MoveNumber: moveNumber,
		StopNumber: 0,
		StopType:   models.StopYard,
		Driver:     stopDriver(first),
		Completed:  ParseVendorTime(first.Arrived) != nil,
		InProgress: ParseVendorTime(first.Arrived) == nil,
	}
}

// flattenDriverOrder normalizes the two driverOrder shapes (flat stops vs
// stops nested under moves) into one ordered stop slice, skipping voided
// stops.
func flattenDriverOrder(order []DriverStop) []DriverStop {
	var flat []DriverStop
	for _, entry := range order {
		if len(entry.Moves) > 0 {
			for _, m := range entry.Moves {
				if m.MoveID == "" {
					m.MoveID = entry.MoveID
				}
				if !m.IsVoidOut {
					flat = append(flat, m)
				}
			}
			continue
		}
		if !entry.IsVoidOut {
			flat = append(flat, entry)
		}
	}
	return flat
}

// BuildLoadEvents converts a vendor driver order into the full ordered
// LoadEvent history for a load. Stop numbers increase monotonically within
// each move; a new moveId starts the next move.
func BuildLoadEvents(loadID int, order []DriverStop) []models.LoadEvent {
	stops := flattenDriverOrder(order)
	if len(stops) == 0 {
		return nil
	}

	var events []models.LoadEvent
	moveNumber := 0
	stopNumber := 0
	currentMove := ""
	for _, stop := range stops {
		key := stop.MoveID
		if key == "" {
			key = fmt.Sprintf("implicit-%d", moveNumber)
		}
		if currentMove == "" || stop.MoveID != "" && stop.MoveID != currentMove {
			moveNumber++
			stopNumber = 0
			currentMove = key
			events = append(events, BuildMoveStartEvent(loadID, moveNumber, stop))
		}
		stopNumber++
		events = append(events, BuildStopEvent(loadID, moveNumber, stopNumber, stop))
	}
	return events
}
