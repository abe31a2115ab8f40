package sync

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"drayage-backend/internal/models"
	"drayage-backend/internal/portpro"
	"drayage-backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

type fakeLoadStore struct {
	loads     map[int]*models.Load
	nextID    int
	createErr error
	creates   int
	updates   int
}

func newFakeLoadStore() *fakeLoadStore {
	return &fakeLoadStore{loads: map[int]*models.Load{}, nextID: 1}
}

func (f *fakeLoadStore) Create(_ context.Context, l *models.Load) error {
	if f.createErr != nil {
		return f.createErr
	}
	l.ID = f.nextID
	f.nextID++
	l.TrackingNumber = fmt.Sprintf("DRY-%06d", l.ID)
	cp := *l
	f.loads[l.ID] = &cp
	f.creates++
	return nil
}

func (f *fakeLoadStore) Update(_ context.Context, l *models.Load) error {
	cp := *l
	f.loads[l.ID] = &cp
	f.updates++
	return nil
}

func (f *fakeLoadStore) GetByVendorID(_ context.Context, vendorID string) (*models.Load, error) {
	for _, l := range f.loads {
		if l.VendorID == vendorID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeLoadStore) GetByContainer(_ context.Context, container string) (*models.Load, error) {
	for _, l := range f.loads {
		if l.ContainerNumber == container {
			cp := *l
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

type fakeEventStore struct {
	byLoad map[int][]models.LoadEvent
}

func (f *fakeEventStore) ReplaceForLoad(_ context.Context, loadID int, _ string, events []models.LoadEvent) error {
	if f.byLoad == nil {
		f.byLoad = map[int][]models.LoadEvent{}
	}
	f.byLoad[loadID] = events
	return nil
}

type fakeSettingStore struct {
	values map[string]string
}

func (f *fakeSettingStore) GetValue(_ context.Context, key string) (string, error) {
	return f.values[key], nil
}

func (f *fakeSettingStore) Upsert(_ context.Context, key, value, _ string) error {
	if f.values == nil {
		f.values = map[string]string{}
	}
	f.values[key] = value
	return nil
}

type fakeVendorAPI struct {
	pages map[int][]portpro.VendorLoad
	err   error
}

func (f *fakeVendorAPI) FetchLoads(_ context.Context, skip, _ int) ([]portpro.VendorLoad, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pages[skip], nil
}

type fakeNotifier struct {
	created       []string
	statusChanges []string
}

func (f *fakeNotifier) LoadCreated(_ context.Context, load *models.Load) {
	f.created = append(f.created, load.ReferenceNumber)
}

func (f *fakeNotifier) LoadStatusChanged(_ context.Context, load *models.Load, previousStatus string) {
	f.statusChanges = append(f.statusChanges, previousStatus+"->"+load.Status)
}

type engineFixture struct {
	engine   *Engine
	loads    *fakeLoadStore
	events   *fakeEventStore
	settings *fakeSettingStore
	dlqStore *fakeDeadLetterStore
	dlq      *DLQService
	api      *fakeVendorAPI
	notifier *fakeNotifier
}

func newEngineFixture() *engineFixture {
	f := &engineFixture{
		loads:    newFakeLoadStore(),
		events:   &fakeEventStore{},
		settings: &fakeSettingStore{},
		dlqStore: newFakeDeadLetterStore(),
		api:      &fakeVendorAPI{},
		notifier: &fakeNotifier{},
	}
	f.dlq = NewDLQService(f.dlqStore, time.Minute, time.Hour, 5)
	idem := NewIdempotencyStoreWithKV(newFakeKV(), 24*time.Hour)
	f.engine = NewEngine(f.loads, f.events, f.settings, idem, f.dlq, f.api, EngineConfig{
		WebhookSecret:     testSecret,
		PollLimit:         2,
		ReconcilePageSize: 2,
	})
	f.engine.SetNotifier(f.notifier)
	return f
}

const webhookBody = `{
	"event": "load#status_updated",
	"timestamp": "2026-01-26T10:00:00Z",
	"data": {
		"_id": "pp-1",
		"reference_number": "REF-123",
		"containerNo": "MSCU1234567",
		"containerSize": {"label": "40HC"},
		"status": "PULLCONTAINER_DEPARTED",
		"consignee": {"company_name": "Acme Warehouse", "address": {"city": "Fontana", "state": "CA"}},
		"totalAmount": 1000,
		"driverPays": [{"amount": 450}],
		"driverOrder": [
			{"type": "PULLCONTAINER", "moveId": "m1", "arrived": "2026-01-26T08:00:00Z", "departed": "2026-01-26T09:00:00Z"},
			{"type": "DELIVERLOAD", "moveId": "m1", "arrived": "2026-01-26T10:00:00Z"}
		]
	}
}`

func TestHandleWebhookProcessesAndDedupes(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	body := []byte(webhookBody)

	outcome, err := f.engine.HandleWebhook(ctx, body, sign(body))
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	require.Equal(t, 1, f.loads.creates)
	load := f.loads.loads[1]
	assert.Equal(t, "REF-123", load.ReferenceNumber)
	assert.Equal(t, "pp-1", load.VendorID)
	assert.Equal(t, models.StatusPickedUp, load.Status)
	assert.Equal(t, "40HC", load.ContainerSize)
	assert.Equal(t, "Acme Warehouse, Fontana, CA", load.Destination)
	require.NotNil(t, load.Margin)
	assert.Equal(t, 550.0, *load.Margin)

	// Move start marker plus two stops.
	require.Len(t, f.events.byLoad[1], 3)
	assert.Equal(t, []string{"REF-123"}, f.notifier.created)

	// Same delivery again: silently skipped, nothing re-persisted.
	outcome, err = f.engine.HandleWebhook(ctx, body, sign(body))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Equal(t, 1, f.loads.creates)
	assert.Len(t, f.notifier.created, 1)
}

func TestHandleWebhookStatusChangeNotifies(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()

	f.loads.Create(ctx, &models.Load{VendorID: "pp-1", ContainerNumber: "MSCU1234567", Status: models.StatusAtPort})
	f.loads.creates = 0

	body := []byte(webhookBody)
	outcome, err := f.engine.HandleWebhook(ctx, body, sign(body))
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, outcome)

	assert.Equal(t, 0, f.loads.creates)
	assert.Equal(t, 1, f.loads.updates)
	assert.Empty(t, f.notifier.created)
	assert.Equal(t, []string{"at_port->picked_up"}, f.notifier.statusChanges)
}

func TestHandleWebhookInvalidSignature(t *testing.T) {
	f := newEngineFixture()
	body := []byte(webhookBody)

	outcome, err := f.engine.HandleWebhook(context.Background(), body, "sha256=deadbeef")
	require.NoError(t, err)
	assert.Equal(t, OutcomeInvalidSignature, outcome)
	assert.Equal(t, 0, f.loads.creates)
}

func TestHandleWebhookMalformedBody(t *testing.T) {
	f := newEngineFixture()
	body := []byte(`{not json`)

	outcome, err := f.engine.HandleWebhook(context.Background(), body, sign(body))
	assert.Error(t, err)
	assert.Equal(t, OutcomeMalformed, outcome)
}

func TestHandleWebhookFailureDeadLettersAndReleasesMarker(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	f.loads.createErr = fmt.Errorf("db down")
	body := []byte(webhookBody)

	outcome, err := f.engine.HandleWebhook(ctx, body, sign(body))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeadLettered, outcome)
	require.Len(t, f.dlqStore.entries, 1)
	assert.Equal(t, "load#status_updated", f.dlqStore.entries[1].EventType)

	// The marker was released, so the failed event does not poison dedup.
	outcome, err = f.engine.HandleWebhook(ctx, body, sign(body))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeadLettered, outcome)
}

func TestDeadLetterRetrySucceedsAfterRecovery(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	f.loads.createErr = fmt.Errorf("db down")
	body := []byte(webhookBody)

	outcome, err := f.engine.HandleWebhook(ctx, body, sign(body))
	require.NoError(t, err)
	require.Equal(t, OutcomeDeadLettered, outcome)

	// Database recovers; the scheduled retry drains the queue.
	f.loads.createErr = nil
	f.dlq.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	attempted, succeeded, err := f.dlq.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, attempted)
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.loads.creates)
	assert.Empty(t, f.dlqStore.entries)

	// The retry marked the event processed: a late vendor redelivery dedupes.
	outcome, err = f.engine.HandleWebhook(ctx, body, sign(body))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
}

func TestPollAdvancesAndResetsCursor(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	f.api.pages = map[int][]portpro.VendorLoad{
		0: {
			{ID: "pp-1", ReferenceNumber: "REF-1", Status: "AVAILABLE"},
			{ID: "pp-2", ReferenceNumber: "REF-2", Status: "DISPATCHED"},
		},
		2: {
			{ID: "pp-3", ReferenceNumber: "REF-3", Status: "COMPLETED"},
		},
	}

	fetched, err := f.engine.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fetched)
	assert.Equal(t, "2", f.settings.values[models.SettingPollCursor])

	// Short page: end of collection, cursor resets.
	fetched, err = f.engine.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fetched)
	assert.Equal(t, "0", f.settings.values[models.SettingPollCursor])
	assert.Equal(t, 3, f.loads.creates)
}

func TestReconcileCorrectsDrift(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()

	// Local copy drifted: a delivery webhook never arrived.
	f.loads.Create(ctx, &models.Load{VendorID: "pp-1", ReferenceNumber: "REF-1", Status: models.StatusInTransit})
	f.api.pages = map[int][]portpro.VendorLoad{
		0: {{ID: "pp-1", ReferenceNumber: "REF-1", Status: "COMPLETED"}},
	}

	checked, drifted, err := f.engine.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, checked)
	assert.Equal(t, 1, drifted)
	assert.Equal(t, models.StatusDelivered, f.loads.loads[1].Status)
	assert.Equal(t, []string{"in_transit->delivered"}, f.notifier.statusChanges)

	// A second run finds nothing to correct.
	checked, drifted, err = f.engine.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, checked)
	assert.Equal(t, 0, drifted)
}

func TestReconcileCreatesMissingLoad(t *testing.T) {
	f := newEngineFixture()
	f.api.pages = map[int][]portpro.VendorLoad{
		0: {{ID: "pp-9", ReferenceNumber: "REF-9", Status: "PENDING"}},
	}

	checked, drifted, err := f.engine.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, checked)
	assert.Equal(t, 1, drifted)
	assert.Equal(t, 1, f.loads.creates)
}
