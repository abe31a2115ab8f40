package models

import "time"

type SystemSetting struct {
	ID           int       `json:"id"`
	SettingKey   string    `json:"setting_key"`
	SettingValue string    `json:"setting_value"`
	Description  string    `json:"description"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Well-known setting keys used by the sync and notification subsystems.
const (
	SettingPollCursor         = "portpro_poll_skip"
	SettingLastPollAt         = "portpro_last_poll_at"
	SettingLastWebhookAt      = "portpro_last_webhook_at"
	SettingLastReconcileAt    = "portpro_last_reconcile_at"
	SettingLastReconcileDrift = "portpro_last_reconcile_drift"
	SettingChatEnabled        = "chat_notifications_enabled"
)
