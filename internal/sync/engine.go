package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"drayage-backend/internal/metrics"
	"drayage-backend/internal/models"
	"drayage-backend/internal/portpro"
	"drayage-backend/internal/repositories"
)

// Webhook processing outcomes, used as the metric label and audit log tag.
const (
	OutcomeProcessed        = "processed"
	OutcomeDuplicate        = "duplicate"
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeDeadLettered     = "dead_lettered"
	OutcomeMalformed        = "malformed"
)

// LoadStore is the load persistence surface the engine needs.
type LoadStore interface {
	Create(ctx context.Context, l *models.Load) error
	Update(ctx context.Context, l *models.Load) error
	GetByVendorID(ctx context.Context, vendorID string) (*models.Load, error)
	GetByContainer(ctx context.Context, container string) (*models.Load, error)
}

// EventStore replaces a load's vendor-sourced movement history.
type EventStore interface {
	ReplaceForLoad(ctx context.Context, loadID int, source string, events []models.LoadEvent) error
}

// SettingStore persists sync cursors and heartbeat timestamps.
type SettingStore interface {
	GetValue(ctx context.Context, key string) (string, error)
	Upsert(ctx context.Context, key, value, description string) error
}

// VendorAPI is the PortPro pull surface used by poll sync and reconciliation.
type VendorAPI interface {
	FetchLoads(ctx context.Context, skip, limit int) ([]portpro.VendorLoad, error)
}

// Notifier receives load lifecycle events for fan-out. The engine never blocks
// on delivery outcomes.
type Notifier interface {
	LoadCreated(ctx context.Context, load *models.Load)
	LoadStatusChanged(ctx context.Context, load *models.Load, previousStatus string)
}

// Engine drives the PortPro sync pipeline: webhook ingestion, scheduled
// polling, reconciliation, and dead-letter retries.
type Engine struct {
	loads    LoadStore
	events   EventStore
	settings SettingStore
	idem     *IdempotencyStore
	dlq      *DLQService
	client   VendorAPI
	notifier Notifier

	webhookSecret     string
	pollLimit         int
	reconcilePageSize int
	now               func() time.Time
}

type EngineConfig struct {
	WebhookSecret     string
	PollLimit         int
	ReconcilePageSize int
}

func NewEngine(loads LoadStore, events EventStore, settings SettingStore,
	idem *IdempotencyStore, dlq *DLQService, client VendorAPI, cfg EngineConfig) *Engine {

	e := &Engine{
		loads:             loads,
		events:            events,
		settings:          settings,
		idem:              idem,
		dlq:               dlq,
		client:            client,
		webhookSecret:     cfg.WebhookSecret,
		pollLimit:         cfg.PollLimit,
		reconcilePageSize: cfg.ReconcilePageSize,
		now:               time.Now,
	}
	if e.pollLimit <= 0 {
		e.pollLimit = 50
	}
	if e.reconcilePageSize <= 0 {
		e.reconcilePageSize = 100
	}
	dlq.SetHandler(e.retryDeadLetter)
	return e
}

// SetNotifier wires the notification dispatcher after construction.
func (e *Engine) SetNotifier(n Notifier) {
	e.notifier = n
}

// HandleWebhook runs the full inbound pipeline: verify, dedupe, map, persist,
// notify. Every outcome except a malformed body resolves without error so the
// HTTP layer can answer 200 and keep the vendor from retry-storming; failures
// are retried internally through the dead-letter queue.
func (e *Engine) HandleWebhook(ctx context.Context, body []byte, signatureHeader string) (string, error) {
	if e.webhookSecret == "" || !portpro.VerifySignature(signatureHeader, body, e.webhookSecret) {
		log.Printf("[Sync] webhook rejected: %v", ErrSignatureInvalid)
		metrics.WebhookEventsTotal.WithLabelValues("unknown", OutcomeInvalidSignature).Inc()
		return OutcomeInvalidSignature, nil
	}

	var env portpro.WebhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		metrics.WebhookEventsTotal.WithLabelValues("unknown", OutcomeMalformed).Inc()
		return OutcomeMalformed, fmt.Errorf("malformed webhook body: %w", err)
	}

	key := e.eventKey(&env)
	if !e.idem.MarkIfFirst(ctx, key) {
		log.Printf("[Sync] duplicate event %s skipped", key)
		metrics.WebhookEventsTotal.WithLabelValues(env.Event, OutcomeDuplicate).Inc()
		return OutcomeDuplicate, nil
	}

	if err := e.processEnvelope(ctx, &env); err != nil {
		// Release the marker so the scheduled retry is not treated as a
		// duplicate of its own failed first attempt.
		e.idem.RemoveMarker(ctx, key)
		if pushErr := e.dlq.Push(ctx, env.Event, json.RawMessage(body), err); pushErr != nil {
			log.Printf("[Sync] dead-letter push failed, event lost: %v (original: %v)", pushErr, err)
		}
		metrics.WebhookEventsTotal.WithLabelValues(env.Event, OutcomeDeadLettered).Inc()
		return OutcomeDeadLettered, nil
	}

	e.touchSetting(ctx, models.SettingLastWebhookAt, "last successful webhook ingest")
	metrics.WebhookEventsTotal.WithLabelValues(env.Event, OutcomeProcessed).Inc()
	return OutcomeProcessed, nil
}

func (e *Engine) eventKey(env *portpro.WebhookEnvelope) string {
	ref := env.Data.ReferenceNumber
	if ref == "" {
		ref = env.Data.ID
	}
	return GenerateKey(env.Event, ref, env.Timestamp)
}

// retryDeadLetter reprocesses a dead-lettered webhook. Dedup is bypassed: the
// marker was released when the event first failed.
func (e *Engine) retryDeadLetter(ctx context.Context, entry *models.DeadLetterEntry) error {
	var env portpro.WebhookEnvelope
	if err := json.Unmarshal(entry.Payload, &env); err != nil {
		return fmt.Errorf("%w: dead-letter payload: %v", ErrMapping, err)
	}
	if err := e.processEnvelope(ctx, &env); err != nil {
		return err
	}
	e.idem.MarkProcessed(ctx, e.eventKey(&env))
	return nil
}

// processEnvelope maps a vendor payload onto the local load record, replaces
// its movement history, and dispatches notifications on lifecycle changes.
func (e *Engine) processEnvelope(ctx context.Context, env *portpro.WebhookEnvelope) error {
	v := &env.Data
	if v.ID == "" && v.ReferenceNumber == "" && v.ContainerNo == "" {
		return fmt.Errorf("%w: payload has no load identity", ErrMapping)
	}

	load, created, previousStatus, err := e.upsertFromVendor(ctx, v)
	if err != nil {
		return err
	}

	events := portpro.BuildLoadEvents(load.ID, v.DriverOrder)
	if len(events) > 0 {
		if err := e.events.ReplaceForLoad(ctx, load.ID, models.EventSourcePortPro, events); err != nil {
			return fmt.Errorf("%w: replace events for load %d: %v", ErrPersist, load.ID, err)
		}
	}

	if e.notifier != nil {
		if created {
			e.notifier.LoadCreated(ctx, load)
		} else if load.Status != previousStatus {
			e.notifier.LoadStatusChanged(ctx, load, previousStatus)
		}
	}
	return nil
}

// upsertFromVendor finds the local load for a vendor payload (vendor id first,
// container number as fallback since containers get reused) and overwrites its
// vendor-sourced fields.
func (e *Engine) upsertFromVendor(ctx context.Context, v *portpro.VendorLoad) (load *models.Load, created bool, previousStatus string, err error) {
	mapped := mapVendorLoad(v)

	existing, err := e.findExisting(ctx, v)
	if err != nil {
		return nil, false, "", fmt.Errorf("%w: lookup: %v", ErrPersist, err)
	}

	if existing == nil {
		if err := e.loads.Create(ctx, mapped); err != nil {
			return nil, false, "", fmt.Errorf("%w: create load: %v", ErrPersist, err)
		}
		return mapped, true, "", nil
	}

	previousStatus = existing.Status
	mapped.ID = existing.ID
	mapped.TrackingNumber = existing.TrackingNumber
	mapped.CreatedAt = existing.CreatedAt
	if err := e.loads.Update(ctx, mapped); err != nil {
		return nil, false, "", fmt.Errorf("%w: update load %d: %v", ErrPersist, existing.ID, err)
	}
	return mapped, false, previousStatus, nil
}

func (e *Engine) findExisting(ctx context.Context, v *portpro.VendorLoad) (*models.Load, error) {
	if v.ID != "" {
		l, err := e.loads.GetByVendorID(ctx, v.ID)
		if err == nil {
			return l, nil
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
	}
	if v.ContainerNo != "" {
		l, err := e.loads.GetByContainer(ctx, v.ContainerNo)
		if err == nil {
			return l, nil
		}
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

// mapVendorLoad translates a vendor payload into the internal load shape.
func mapVendorLoad(v *portpro.VendorLoad) *models.Load {
	l := &models.Load{
		ReferenceNumber: v.ReferenceNumber,
		VendorID:        v.ID,
		ContainerNumber: v.ContainerNo,
		ContainerSize:   portpro.ExtractLookupValue(v.ContainerSize),
		ContainerType:   portpro.ExtractLookupValue(v.ContainerType),
		SSL:             portpro.ExtractLookupValue(v.ContainerOwner),
		ChassisNumber:   v.ChassisNo,
		Status:          portpro.MapVendorStatus(v.Status),
		Origin:          portpro.FormatLocation(v.Shipper),
		Destination:     portpro.FormatLocation(v.Consignee),
		ReturnLocation:  portpro.FormatLocation(v.EmptyOrigin),
		ETA:             portpro.ParseVendorTime(v.ETA),
		PickupDate:      portpro.ParseVendorTime(v.PickupDate),
		DeliveryDate:    portpro.ParseVendorTime(v.DeliveryDate),
		LastFreeDay:     portpro.ParseVendorTime(v.LastFreeDay),
		Revenue:         v.TotalAmount,
		Margin:          portpro.ComputeMargin(v),
	}
	if v.Caller != nil {
		l.CustomerName = v.Caller.CompanyName
	}
	return l
}

// Poll pulls one page of loads from the vendor API using a persisted
// skip/limit cursor and upserts each. The cursor advances by the page size
// and resets to zero once a short page signals the end of the collection.
func (e *Engine) Poll(ctx context.Context) (fetched int, err error) {
	skip := 0
	if raw, err := e.settings.GetValue(ctx, models.SettingPollCursor); err == nil && raw != "" {
		if n, convErr := strconv.Atoi(raw); convErr == nil && n >= 0 {
			skip = n
		}
	}

	loads, err := e.client.FetchLoads(ctx, skip, e.pollLimit)
	if err != nil {
		return 0, fmt.Errorf("poll fetch at skip=%d: %w", skip, err)
	}

	for i := range loads {
		env := portpro.WebhookEnvelope{Event: "load_polled", Data: loads[i]}
		if procErr := e.processEnvelope(ctx, &env); procErr != nil {
			payload, _ := json.Marshal(&env)
			if pushErr := e.dlq.Push(ctx, env.Event, payload, procErr); pushErr != nil {
				log.Printf("[Sync] poll dead-letter push failed: %v (original: %v)", pushErr, procErr)
			}
			continue
		}
		fetched++
	}

	next := skip + len(loads)
	if len(loads) < e.pollLimit {
		next = 0
	}
	if err := e.settings.Upsert(ctx, models.SettingPollCursor, strconv.Itoa(next), "poll pagination cursor"); err != nil {
		log.Printf("[Sync] failed to persist poll cursor: %v", err)
	}
	e.touchSetting(ctx, models.SettingLastPollAt, "last successful poll")

	log.Printf("[Sync] poll upserted %d/%d loads (skip %d -> %d)", fetched, len(loads), skip, next)
	return fetched, nil
}

// Reconcile walks the entire vendor collection and corrects local records
// that drifted from the vendor's view, typically from webhooks that never
// arrived. Returns how many loads were checked and how many had drifted.
func (e *Engine) Reconcile(ctx context.Context) (checked, drifted int, err error) {
	skip := 0
	for {
		page, err := e.client.FetchLoads(ctx, skip, e.reconcilePageSize)
		if err != nil {
			return checked, drifted, fmt.Errorf("reconcile fetch at skip=%d: %w", skip, err)
		}

		for i := range page {
			v := &page[i]
			checked++
			changed, recErr := e.reconcileLoad(ctx, v)
			if recErr != nil {
				log.Printf("[Sync] reconcile failed for vendor load %s: %v", v.ID, recErr)
				continue
			}
			if changed {
				drifted++
				metrics.ReconcileDrift.Inc()
			}
		}

		if len(page) < e.reconcilePageSize {
			break
		}
		skip += len(page)
	}

	e.touchSetting(ctx, models.SettingLastReconcileAt, "last reconciliation run")
	if err := e.settings.Upsert(ctx, models.SettingLastReconcileDrift, strconv.Itoa(drifted), "loads corrected in last reconciliation"); err != nil {
		log.Printf("[Sync] failed to persist reconcile drift: %v", err)
	}
	log.Printf("[Sync] reconcile checked %d loads, corrected %d", checked, drifted)
	return checked, drifted, nil
}

// reconcileLoad upserts one vendor load and reports whether the local record
// actually changed.
func (e *Engine) reconcileLoad(ctx context.Context, v *portpro.VendorLoad) (changed bool, err error) {
	existing, err := e.findExisting(ctx, v)
	if err != nil {
		return false, fmt.Errorf("%w: lookup: %v", ErrPersist, err)
	}

	env := portpro.WebhookEnvelope{Event: "load_reconciled", Data: *v}
	if existing == nil {
		// Missed creation webhook: the load exists at the vendor only.
		return true, e.processEnvelope(ctx, &env)
	}

	if !loadDrifted(existing, mapVendorLoad(v)) {
		return false, nil
	}
	return true, e.processEnvelope(ctx, &env)
}

// loadDrifted compares the vendor-sourced fields that reconciliation guards.
func loadDrifted(local, vendor *models.Load) bool {
	return local.Status != vendor.Status ||
		local.ReferenceNumber != vendor.ReferenceNumber ||
		local.ContainerNumber != vendor.ContainerNumber ||
		!timePtrEqual(local.ETA, vendor.ETA) ||
		!timePtrEqual(local.LastFreeDay, vendor.LastFreeDay) ||
		!floatPtrEqual(local.Revenue, vendor.Revenue) ||
		!floatPtrEqual(local.Margin, vendor.Margin)
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (e *Engine) touchSetting(ctx context.Context, key, description string) {
	if err := e.settings.Upsert(ctx, key, e.now().UTC().Format(time.RFC3339), description); err != nil {
		log.Printf("[Sync] failed to persist setting %s: %v", key, err)
	}
}
