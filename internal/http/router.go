package http

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"drayage-backend/internal/handlers"
	"drayage-backend/internal/middleware"
)

func NewRouter(
	webhookHandler *handlers.WebhookHandler,
	syncHandler *handlers.SyncHandler,
	loadHandler *handlers.LoadHandler,
	quoteHandler *handlers.QuoteHandler,
	notificationHandler *handlers.NotificationHandler,
	dlqHandler *handlers.DLQHandler,
	systemSettingHandler *handlers.SystemSettingHandler,
	healthHandler *handlers.HealthHandler,
	cronToken string,
) *mux.Router {
	r := mux.NewRouter()

	// Vendor webhook intake (signature-verified, no auth middleware)
	r.HandleFunc("/webhooks/portpro", webhookHandler.HandlePortProWebhook).Methods("POST")

	// Public API - quote intake and shipment tracking
	r.HandleFunc("/api/quotes", quoteHandler.SubmitQuote).Methods("POST")
	r.HandleFunc("/api/track/{trackingNumber}", loadHandler.TrackLoad).Methods("GET")

	// API routes - Loads
	loadsAPI := r.PathPrefix("/api/loads").Subrouter()
	loadsAPI.HandleFunc("", loadHandler.ListLoads).Methods("GET")
	loadsAPI.HandleFunc("/{id}", loadHandler.GetLoad).Methods("GET")
	loadsAPI.HandleFunc("/{id}/events", loadHandler.GetLoadEvents).Methods("GET")

	// API routes - Quotes
	quotesAPI := r.PathPrefix("/api/quotes").Subrouter()
	quotesAPI.HandleFunc("", quoteHandler.ListQuotes).Methods("GET")
	quotesAPI.HandleFunc("/triage", quoteHandler.GetTriageBoard).Methods("GET")
	quotesAPI.HandleFunc("/{id}", quoteHandler.GetQuote).Methods("GET")
	quotesAPI.HandleFunc("/{id}/assign", quoteHandler.AssignQuote).Methods("POST")
	quotesAPI.HandleFunc("/{id}/status", quoteHandler.UpdateQuoteStatus).Methods("PUT")

	// API routes - Notifications
	notificationsAPI := r.PathPrefix("/api/notifications").Subrouter()
	notificationsAPI.HandleFunc("", notificationHandler.ListNotifications).Methods("GET")
	notificationsAPI.HandleFunc("/{id}/read", notificationHandler.MarkNotificationRead).Methods("PUT")
	notificationsAPI.HandleFunc("/preferences/{userId}", notificationHandler.GetPreferences).Methods("GET")
	notificationsAPI.HandleFunc("/preferences/{userId}", notificationHandler.UpdatePreferences).Methods("PUT")

	// API routes - Dead letter queue (ops)
	dlqAPI := r.PathPrefix("/api/dlq").Subrouter()
	dlqAPI.HandleFunc("", dlqHandler.ListEntries).Methods("GET")
	dlqAPI.HandleFunc("/stats", dlqHandler.GetStats).Methods("GET")
	dlqAPI.HandleFunc("/{id}/requeue", dlqHandler.RequeueEntry).Methods("POST")
	dlqAPI.HandleFunc("/{id}", dlqHandler.DeleteEntry).Methods("DELETE")

	// API routes - System Settings
	settingsAPI := r.PathPrefix("/api/settings").Subrouter()
	settingsAPI.HandleFunc("", systemSettingHandler.ListSettings).Methods("GET")
	settingsAPI.HandleFunc("/{key}", systemSettingHandler.GetSetting).Methods("GET")
	settingsAPI.HandleFunc("/{key}", systemSettingHandler.UpdateSetting).Methods("PUT")

	// Scheduled triggers, token-guarded for the external cron runner
	cronAPI := r.PathPrefix("/api/sync").Subrouter()
	cronAPI.Use(middleware.CronAuth(cronToken))
	cronAPI.HandleFunc("/poll", syncHandler.TriggerPoll).Methods("POST")
	cronAPI.HandleFunc("/reconcile", syncHandler.TriggerReconcile).Methods("POST")
	cronAPI.HandleFunc("/retry-dlq", syncHandler.TriggerDLQRetry).Methods("POST")
	cronAPI.HandleFunc("/digest", syncHandler.TriggerDigest).Methods("POST")

	// Health endpoints (no auth required - for Kubernetes probes)
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", healthHandler.DetailedHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
