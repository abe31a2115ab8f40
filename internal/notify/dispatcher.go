package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"drayage-backend/internal/metrics"
	"drayage-backend/internal/models"
	"drayage-backend/internal/repositories"
	"drayage-backend/internal/timeutil"
)

// NotificationStore is the persistence surface for in-app rows, preferences
// and digest items.
type NotificationStore interface {
	CreateInApp(ctx context.Context, n *models.Notification) error
	GetPreferences(ctx context.Context, userID int) (*models.NotificationPreferences, error)
	UpsertPreferences(ctx context.Context, p *models.NotificationPreferences) error
	CreateDigestItem(ctx context.Context, d *models.DigestItem) error
	ListDigestUsersDue(ctx context.Context, now time.Time) ([]int, error)
	ListPendingDigestItems(ctx context.Context, userID int, now time.Time) ([]*models.DigestItem, error)
	MarkDigestItemsSent(ctx context.Context, ids []int) error
}

// UserStore resolves notification recipients.
type UserStore interface {
	Get(ctx context.Context, id int) (*models.User, error)
	ListByPermission(ctx context.Context, permission string) ([]*models.User, error)
	ListSuperAdmins(ctx context.Context) ([]*models.User, error)
}

// SettingReader exposes runtime toggles (chat kill switch).
type SettingReader interface {
	GetValue(ctx context.Context, key string) (string, error)
}

// Dispatcher fans one domain event out to its recipients across the in-app,
// email and chat channels, honoring per-recipient preferences, quiet hours
// and digest deferral. Channel failures are isolated: one channel failing
// never blocks the others.
type Dispatcher struct {
	store    NotificationStore
	users    UserStore
	settings SettingReader
	email    EmailProvider
	chat     ChatProvider

	defaultChannel string
	now            func() time.Time
}

func NewDispatcher(store NotificationStore, users UserStore, settings SettingReader,
	email EmailProvider, chat ChatProvider, defaultChannel string) *Dispatcher {

	if defaultChannel == "" {
		defaultChannel = "#dispatch"
	}
	return &Dispatcher{
		store:          store,
		users:          users,
		settings:       settings,
		email:          email,
		chat:           chat,
		defaultChannel: defaultChannel,
		now:            time.Now,
	}
}

// Dispatch fans out one event. The entity id ties in-app rows back to the
// record that changed; data feeds template interpolation and, when present,
// an "assignee_id" scopes the audience.
func (d *Dispatcher) Dispatch(ctx context.Context, eventType, entityID string, data map[string]interface{}) *models.DispatchResult {
	result := &models.DispatchResult{PerChannel: map[string]int{}}

	cfg, ok := eventCatalog[eventType]
	if !ok {
		result.Errors = append(result.Errors, fmt.Sprintf("unknown event type %q", eventType))
		return result
	}

	title := Interpolate(cfg.Title, data)
	body := Interpolate(cfg.Body, data)

	recipients, err := d.resolveRecipients(ctx, cfg, data)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("recipient resolution: %v", err))
	}

	for _, user := range recipients {
		d.deliverToRecipient(ctx, user, eventType, entityID, title, body, cfg.Priority, result)
		result.EmployeesNotified++
	}

	// Chat goes out once per dispatch, never per recipient.
	d.postChat(ctx, cfg, eventType, title, body, result)

	return result
}

// resolveRecipients applies the audience policy: broadcast events reach
// everyone holding the permission; entity-scoped events with an assignee
// reach only the assignee; both always include super admins, deduplicated.
func (d *Dispatcher) resolveRecipients(ctx context.Context, cfg eventConfig, data map[string]interface{}) ([]*models.User, error) {
	var base []*models.User

	assigneeID, hasAssignee := assigneeFrom(data)
	if !cfg.Broadcast && hasAssignee {
		assignee, err := d.users.Get(ctx, assigneeID)
		if err != nil {
			return nil, fmt.Errorf("assignee %d: %w", assigneeID, err)
		}
		base = []*models.User{assignee}
	} else {
		var err error
		base, err = d.users.ListByPermission(ctx, cfg.Permission)
		if err != nil {
			return nil, fmt.Errorf("permission %s: %w", cfg.Permission, err)
		}
	}

	admins, err := d.users.ListSuperAdmins(ctx)
	if err != nil {
		log.Printf("[Notify] super admin lookup failed: %v", err)
	}

	seen := map[int]bool{}
	var recipients []*models.User
	for _, u := range append(base, admins...) {
		if u == nil || seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		recipients = append(recipients, u)
	}
	return recipients, nil
}

func assigneeFrom(data map[string]interface{}) (int, bool) {
	switch v := data["assignee_id"].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n, true
		}
	}
	return 0, false
}

func (d *Dispatcher) deliverToRecipient(ctx context.Context, user *models.User,
	eventType, entityID, title, body string, priority int, result *models.DispatchResult) {

	prefs := d.preferencesFor(ctx, user.ID)

	if prefs.InAppEnabled {
		n := &models.Notification{
			UserID:    user.ID,
			EventType: eventType,
			EntityID:  entityID,
			Title:     title,
			Body:      body,
			Priority:  priority,
		}
		if err := d.store.CreateInApp(ctx, n); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("in-app for user %d: %v", user.ID, err))
			metrics.NotificationsTotal.WithLabelValues("in_app", "failed").Inc()
		} else {
			result.PerChannel["in_app"]++
			metrics.NotificationsTotal.WithLabelValues("in_app", "sent").Inc()
		}
	}

	d.deliverEmail(ctx, user, prefs, eventType, title, body, priority, result)
}

// deliverEmail applies the deferral ladder: disabled -> skip, quiet hours or
// below the priority floor -> digest, otherwise immediate send.
func (d *Dispatcher) deliverEmail(ctx context.Context, user *models.User,
	prefs *models.NotificationPreferences, eventType, title, body string,
	priority int, result *models.DispatchResult) {

	if !prefs.EmailEnabled {
		metrics.NotificationsTotal.WithLabelValues("email", "skipped").Inc()
		return
	}
	if enabled, ok := prefs.EventOverrides[eventType]; ok && !enabled {
		metrics.NotificationsTotal.WithLabelValues("email", "skipped").Inc()
		return
	}

	loc := timeutil.Location(prefs.Timezone)
	now := d.now()

	inQuietHours := timeutil.InWindow(now, prefs.QuietHoursStart, prefs.QuietHoursEnd, loc)
	if (inQuietHours && priority < models.PriorityCritical) || priority < prefs.MinEmailPriority {
		item := &models.DigestItem{
			UserID:       user.ID,
			EventType:    eventType,
			Title:        title,
			Body:         body,
			ScheduledFor: timeutil.NextDailyAt(now, 9, 0, loc),
			Status:       models.DigestPending,
		}
		if err := d.store.CreateDigestItem(ctx, item); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("digest queue for user %d: %v", user.ID, err))
			metrics.NotificationsTotal.WithLabelValues("email", "failed").Inc()
			return
		}
		result.PerChannel["email_digest"]++
		metrics.NotificationsTotal.WithLabelValues("email", "queued").Inc()
		return
	}

	if err := d.email.Send(ctx, user.Email, title, body); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("email to user %d: %v", user.ID, err))
		metrics.NotificationsTotal.WithLabelValues("email", "failed").Inc()
		return
	}
	result.PerChannel["email"]++
	metrics.NotificationsTotal.WithLabelValues("email", "sent").Inc()
}

func (d *Dispatcher) postChat(ctx context.Context, cfg eventConfig, eventType, title, body string, result *models.DispatchResult) {
	if d.chat == nil || !d.chatEnabled(ctx) {
		return
	}

	channel := cfg.Channel
	if channel == "" {
		channel = d.defaultChannel
	}
	msg := ChatMessage{
		Channel:  channel,
		Header:   title,
		Sections: []string{body},
		Context:  "event: " + eventType,
	}
	if err := d.chat.Post(ctx, msg); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("chat: %v", err))
		metrics.NotificationsTotal.WithLabelValues("chat", "failed").Inc()
		return
	}
	result.PerChannel["chat"]++
	metrics.NotificationsTotal.WithLabelValues("chat", "sent").Inc()
}

// chatEnabled honors the runtime kill switch; missing setting means on.
func (d *Dispatcher) chatEnabled(ctx context.Context) bool {
	if d.settings == nil {
		return true
	}
	v, err := d.settings.GetValue(ctx, models.SettingChatEnabled)
	if err != nil {
		return true
	}
	return v != "false"
}

// preferencesFor loads a recipient's preferences, creating the default row on
// first contact.
func (d *Dispatcher) preferencesFor(ctx context.Context, userID int) *models.NotificationPreferences {
	prefs, err := d.store.GetPreferences(ctx, userID)
	if err == nil {
		return prefs
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		log.Printf("[Notify] preference lookup failed for user %d, using defaults: %v", userID, err)
		return models.DefaultPreferences(userID)
	}

	prefs = models.DefaultPreferences(userID)
	if err := d.store.UpsertPreferences(ctx, prefs); err != nil {
		log.Printf("[Notify] failed to persist default preferences for user %d: %v", userID, err)
	}
	return prefs
}

// LoadCreated implements the sync engine's notifier hook.
func (d *Dispatcher) LoadCreated(ctx context.Context, load *models.Load) {
	d.Dispatch(ctx, "load_created", load.TrackingNumber, loadData(load, ""))
}

// LoadStatusChanged implements the sync engine's notifier hook. Deliveries
// and exceptions use their own higher-priority event types.
func (d *Dispatcher) LoadStatusChanged(ctx context.Context, load *models.Load, previousStatus string) {
	eventType := "load_status_changed"
	switch load.Status {
	case models.StatusDelivered:
		eventType = "load_delivered"
	case models.StatusException:
		eventType = "load_exception"
	}
	d.Dispatch(ctx, eventType, load.TrackingNumber, loadData(load, previousStatus))
}

func loadData(load *models.Load, previousStatus string) map[string]interface{} {
	return map[string]interface{}{
		"tracking_number":  load.TrackingNumber,
		"reference_number": load.ReferenceNumber,
		"container_number": load.ContainerNumber,
		"status":           load.Status,
		"previous_status":  previousStatus,
		"destination":      load.Destination,
	}
}
