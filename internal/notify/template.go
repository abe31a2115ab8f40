package notify

import (
	"fmt"
	"regexp"

	"drayage-backend/internal/models"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Interpolate replaces {{key}} placeholders with string-coerced values from
// the data map. Unresolved keys become empty strings; the literal placeholder
// never survives.
func Interpolate(template string, data map[string]interface{}) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		key := placeholderRe.FindStringSubmatch(match)[1]
		v, ok := data[key]
		if !ok || v == nil {
			return ""
		}
		return fmt.Sprint(v)
	})
}

// eventConfig describes how one event type fans out: message templates,
// priority, which permission scopes the audience, and the chat channel.
type eventConfig struct {
	Title      string
	Body       string
	Priority   int
	Permission string
	Broadcast  bool   // policy 1: always everyone with the permission
	Channel    string // chat channel override, "" = default
}

// eventCatalog is the registry of dispatchable event types.
var eventCatalog = map[string]eventConfig{
	"quote_submitted": {
		Title:      "New quote request from {{contact_name}}",
		Body:       "{{company_name}} requested a {{request_type}} quote ({{origin}} -> {{destination}}).",
		Priority:   models.PriorityHigh,
		Permission: "quotes:read",
		Broadcast:  true,
		Channel:    "#sales",
	},
	"quote_assigned": {
		Title:      "Quote {{quote_id}} assigned to you",
		Body:       "{{contact_name}}'s {{request_type}} request is now yours to work.",
		Priority:   models.PriorityNormal,
		Permission: "quotes:read",
	},
	"load_created": {
		Title:      "Load {{tracking_number}} created",
		Body:       "New load {{reference_number}} ({{container_number}}) synced from PortPro.",
		Priority:   models.PriorityNormal,
		Permission: "loads:read",
		Broadcast:  true,
	},
	"load_status_changed": {
		Title:      "Load {{tracking_number}} is now {{status}}",
		Body:       "{{reference_number}} moved from {{previous_status}} to {{status}}.",
		Priority:   models.PriorityNormal,
		Permission: "loads:read",
	},
	"load_delivered": {
		Title:      "Load {{tracking_number}} delivered",
		Body:       "{{reference_number}} ({{container_number}}) completed delivery.",
		Priority:   models.PriorityHigh,
		Permission: "loads:read",
	},
	"load_exception": {
		Title:      "Load {{tracking_number}} needs attention",
		Body:       "{{reference_number}} flipped to exception: {{status_detail}}",
		Priority:   models.PriorityCritical,
		Permission: "loads:read",
	},
	"sync_alert": {
		Title:      "{{alert_name}}",
		Body:       "{{alert_detail}}",
		Priority:   models.PriorityCritical,
		Permission: "admin:ops",
		Broadcast:  true,
		Channel:    "#ops-alerts",
	},
}
