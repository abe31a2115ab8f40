package monitoring

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"drayage-backend/internal/models"
	"drayage-backend/internal/notify"
)

type Alert struct {
	ID        int       `json:"id"`
	Severity  string    `json:"severity"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Resolved  bool      `json:"resolved"`
}

const (
	AlertDLQOverflow     = "dlq_overflow"
	AlertHighFailureRate = "high_failure_rate"
	AlertReconcileDrift  = "reconciliation_drift"
	AlertSyncStale       = "sync_stale"
)

// FailureCounter reports dead-letter queue depth and recent inflow.
type FailureCounter interface {
	Counts(ctx context.Context) (pending int, exhausted int, err error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
}

type SettingReader interface {
	GetValue(ctx context.Context, key string) (string, error)
}

type EvaluatorConfig struct {
	DLQDepthThreshold    int
	FailureWindow        time.Duration
	FailureRateThreshold int
	DriftThreshold       int
	StaleAfter           time.Duration
	OpsChannel           string
}

// AlertEvaluator watches sync health indicators and raises alerts when
// they cross thresholds. Each alert type fires once per incident: it is
// suppressed until the condition clears, then armed again.
type AlertEvaluator struct {
	failures FailureCounter
	settings SettingReader
	chat     notify.ChatProvider
	cfg      EvaluatorConfig

	activeMux sync.Mutex
	active    map[string]bool

	now func() time.Time
}

func NewAlertEvaluator(failures FailureCounter, settings SettingReader, chat notify.ChatProvider, cfg EvaluatorConfig) *AlertEvaluator {
	if cfg.DLQDepthThreshold <= 0 {
		cfg.DLQDepthThreshold = 25
	}
	if cfg.FailureWindow <= 0 {
		cfg.FailureWindow = 15 * time.Minute
	}
	if cfg.FailureRateThreshold <= 0 {
		cfg.FailureRateThreshold = 10
	}
	if cfg.DriftThreshold <= 0 {
		cfg.DriftThreshold = 25
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = time.Hour
	}
	if cfg.OpsChannel == "" {
		cfg.OpsChannel = "#ops-alerts"
	}
	return &AlertEvaluator{
		failures: failures,
		settings: settings,
		chat:     chat,
		cfg:      cfg,
		active:   make(map[string]bool),
		now:      time.Now,
	}
}

// Evaluate runs all checks and returns the alerts raised this round.
func (ae *AlertEvaluator) Evaluate(ctx context.Context) []Alert {
	var raised []Alert

	raised = ae.check(raised, AlertDLQOverflow, ae.checkDLQDepth(ctx))
	raised = ae.check(raised, AlertHighFailureRate, ae.checkFailureRate(ctx))
	raised = ae.check(raised, AlertReconcileDrift, ae.checkDrift(ctx))
	raised = ae.check(raised, AlertSyncStale, ae.checkStaleness(ctx))

	for _, alert := range raised {
		ae.postToChat(ctx, alert)
	}
	return raised
}

// check applies the once-per-incident gate. A nil alert means the
// condition is clear and the type is re-armed.
func (ae *AlertEvaluator) check(raised []Alert, alertType string, alert *Alert) []Alert {
	ae.activeMux.Lock()
	defer ae.activeMux.Unlock()

	if alert == nil {
		delete(ae.active, alertType)
		return raised
	}
	if ae.active[alertType] {
		return raised
	}
	ae.active[alertType] = true
	return append(raised, *alert)
}

func (ae *AlertEvaluator) checkDLQDepth(ctx context.Context) *Alert {
	pending, exhausted, err := ae.failures.Counts(ctx)
	if err != nil {
		log.Printf("[Alerts] DLQ depth check failed: %v", err)
		return nil
	}
	depth := pending + exhausted
	if depth < ae.cfg.DLQDepthThreshold {
		return nil
	}
	return &Alert{
		Severity:  "critical",
		Type:      AlertDLQOverflow,
		Message:   fmt.Sprintf("Dead letter queue depth %d (%d exhausted), threshold %d", depth, exhausted, ae.cfg.DLQDepthThreshold),
		Timestamp: ae.now(),
	}
}

func (ae *AlertEvaluator) checkFailureRate(ctx context.Context) *Alert {
	since := ae.now().Add(-ae.cfg.FailureWindow)
	count, err := ae.failures.CountCreatedSince(ctx, since)
	if err != nil {
		log.Printf("[Alerts] failure rate check failed: %v", err)
		return nil
	}
	if count < ae.cfg.FailureRateThreshold {
		return nil
	}
	return &Alert{
		Severity:  "critical",
		Type:      AlertHighFailureRate,
		Message:   fmt.Sprintf("%d events dead-lettered in the last %s", count, ae.cfg.FailureWindow),
		Timestamp: ae.now(),
	}
}

func (ae *AlertEvaluator) checkDrift(ctx context.Context) *Alert {
	raw, err := ae.settings.GetValue(ctx, models.SettingLastReconcileDrift)
	if err != nil || raw == "" {
		return nil
	}
	drift, err := strconv.Atoi(raw)
	if err != nil || drift < ae.cfg.DriftThreshold {
		return nil
	}
	return &Alert{
		Severity:  "warning",
		Type:      AlertReconcileDrift,
		Message:   fmt.Sprintf("Last reconciliation corrected %d drifted loads, threshold %d", drift, ae.cfg.DriftThreshold),
		Timestamp: ae.now(),
	}
}

// checkStaleness alerts when neither a webhook nor a poll has landed
// within the stale window. Before the first sync both timestamps are
// absent and the check stays quiet.
func (ae *AlertEvaluator) checkStaleness(ctx context.Context) *Alert {
	lastWebhook := ae.settingTime(ctx, models.SettingLastWebhookAt)
	lastPoll := ae.settingTime(ctx, models.SettingLastPollAt)

	last := lastWebhook
	if lastPoll.After(last) {
		last = lastPoll
	}
	if last.IsZero() {
		return nil
	}
	age := ae.now().Sub(last)
	if age < ae.cfg.StaleAfter {
		return nil
	}
	return &Alert{
		Severity:  "warning",
		Type:      AlertSyncStale,
		Message:   fmt.Sprintf("No vendor data received for %s (last sync %s)", age.Round(time.Minute), last.Format(time.RFC3339)),
		Timestamp: ae.now(),
	}
}

func (ae *AlertEvaluator) settingTime(ctx context.Context, key string) time.Time {
	raw, err := ae.settings.GetValue(ctx, key)
	if err != nil || raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (ae *AlertEvaluator) postToChat(ctx context.Context, alert Alert) {
	if ae.chat == nil {
		return
	}
	msg := notify.ChatMessage{
		Channel: ae.cfg.OpsChannel,
		Header:  fmt.Sprintf("[%s] %s", alert.Severity, alert.Type),
		Sections: []string{
			alert.Message,
		},
		Context: "raised at " + alert.Timestamp.Format(time.RFC3339),
	}
	if err := ae.chat.Post(ctx, msg); err != nil {
		log.Printf("[Alerts] chat post failed for %s: %v", alert.Type, err)
	}
}
