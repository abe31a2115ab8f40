package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"drayage-backend/internal/models"
	"drayage-backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifyStore struct {
	inApp        []models.Notification
	prefs        map[int]*models.NotificationPreferences
	digest       map[int]*models.DigestItem
	nextDigestID int
	inAppErr     error
}

func newFakeNotifyStore() *fakeNotifyStore {
	return &fakeNotifyStore{
		prefs:        map[int]*models.NotificationPreferences{},
		digest:       map[int]*models.DigestItem{},
		nextDigestID: 1,
	}
}

func (f *fakeNotifyStore) CreateInApp(_ context.Context, n *models.Notification) error {
	if f.inAppErr != nil {
		return f.inAppErr
	}
	n.ID = len(f.inApp) + 1
	f.inApp = append(f.inApp, *n)
	return nil
}

func (f *fakeNotifyStore) GetPreferences(_ context.Context, userID int) (*models.NotificationPreferences, error) {
	p, ok := f.prefs[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeNotifyStore) UpsertPreferences(_ context.Context, p *models.NotificationPreferences) error {
	cp := *p
	f.prefs[p.UserID] = &cp
	return nil
}

func (f *fakeNotifyStore) CreateDigestItem(_ context.Context, d *models.DigestItem) error {
	d.ID = f.nextDigestID
	f.nextDigestID++
	cp := *d
	f.digest[d.ID] = &cp
	return nil
}

func (f *fakeNotifyStore) ListDigestUsersDue(_ context.Context, now time.Time) ([]int, error) {
	seen := map[int]bool{}
	var ids []int
	for _, d := range f.digest {
		if d.Status == models.DigestPending && !d.ScheduledFor.After(now) && !seen[d.UserID] {
			seen[d.UserID] = true
			ids = append(ids, d.UserID)
		}
	}
	return ids, nil
}

func (f *fakeNotifyStore) ListPendingDigestItems(_ context.Context, userID int, now time.Time) ([]*models.DigestItem, error) {
	var items []*models.DigestItem
	for _, d := range f.digest {
		if d.UserID == userID && d.Status == models.DigestPending && !d.ScheduledFor.After(now) {
			cp := *d
			items = append(items, &cp)
		}
	}
	return items, nil
}

func (f *fakeNotifyStore) MarkDigestItemsSent(_ context.Context, ids []int) error {
	for _, id := range ids {
		if d, ok := f.digest[id]; ok {
			d.Status = models.DigestSent
		}
	}
	return nil
}

type fakeUserStore struct {
	users         map[int]*models.User
	byPermission  map[string][]int
	superAdminIDs []int
}

func (f *fakeUserStore) Get(_ context.Context, id int) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) ListByPermission(_ context.Context, permission string) ([]*models.User, error) {
	var out []*models.User
	for _, id := range f.byPermission[permission] {
		out = append(out, f.users[id])
	}
	return out, nil
}

func (f *fakeUserStore) ListSuperAdmins(_ context.Context) ([]*models.User, error) {
	var out []*models.User
	for _, id := range f.superAdminIDs {
		out = append(out, f.users[id])
	}
	return out, nil
}

type fakeSettings struct {
	values map[string]string
}

func (f *fakeSettings) GetValue(_ context.Context, key string) (string, error) {
	return f.values[key], nil
}

type dispatcherFixture struct {
	d     *Dispatcher
	store *fakeNotifyStore
	users *fakeUserStore
	email *MockEmailService
	chat  *MockChatService
}

func newDispatcherFixture() *dispatcherFixture {
	f := &dispatcherFixture{
		store: newFakeNotifyStore(),
		users: &fakeUserStore{
			users: map[int]*models.User{
				1: {ID: 1, Name: "Dana", Email: "dana@example.com", Role: models.RoleSales, IsActive: true},
				2: {ID: 2, Name: "Marco", Email: "marco@example.com", Role: models.RoleDispatcher, IsActive: true},
				9: {ID: 9, Name: "Root", Email: "root@example.com", Role: models.RoleSuperAdmin, IsActive: true},
			},
			byPermission: map[string][]int{
				"quotes:read": {1},
				"loads:read":  {1, 2},
			},
			superAdminIDs: []int{9},
		},
		email: &MockEmailService{},
		chat:  &MockChatService{},
	}
	f.d = NewDispatcher(f.store, f.users, &fakeSettings{values: map[string]string{}}, f.email, f.chat, "#dispatch")
	// Mid-afternoon UTC, outside any default quiet hours.
	f.d.now = func() time.Time { return time.Date(2026, 1, 26, 15, 0, 0, 0, time.UTC) }
	return f
}

func TestInterpolate(t *testing.T) {
	data := map[string]interface{}{"name": "Acme", "count": 3}

	assert.Equal(t, "Acme sent 3 loads", Interpolate("{{name}} sent {{count}} loads", data))

	// Missing keys resolve to empty, never the literal placeholder.
	assert.Equal(t, "hello ", Interpolate("hello {{missing}}", data))
	assert.Equal(t, "x", Interpolate("x", nil))
}

func TestDispatchBroadcastReachesPermissionHoldersAndAdmins(t *testing.T) {
	f := newDispatcherFixture()

	result := f.d.Dispatch(context.Background(), "quote_submitted", "42", map[string]interface{}{
		"contact_name": "Jo", "company_name": "Acme", "request_type": "expedited",
		"origin": "LAX", "destination": "Fontana",
	})

	assert.Empty(t, result.Errors)
	assert.Equal(t, 2, result.EmployeesNotified) // sales user + super admin
	assert.Equal(t, 2, result.PerChannel["in_app"])
	assert.Equal(t, 2, result.PerChannel["email"])
	require.Len(t, f.store.inApp, 2)
	assert.Equal(t, "New quote request from Jo", f.store.inApp[0].Title)

	// Chat fires once per dispatch regardless of recipient count.
	require.Len(t, f.chat.Posted, 1)
	assert.Equal(t, "#sales", f.chat.Posted[0].Channel)
	assert.Equal(t, 1, result.PerChannel["chat"])
}

func TestDispatchAssigneeScoped(t *testing.T) {
	f := newDispatcherFixture()

	result := f.d.Dispatch(context.Background(), "load_status_changed", "DRY-000001", map[string]interface{}{
		"tracking_number": "DRY-000001", "status": "in_transit", "assignee_id": 2,
	})

	// Assignee plus super admin, not the whole loads:read audience.
	assert.Equal(t, 2, result.EmployeesNotified)
	notified := map[int]bool{}
	for _, n := range f.store.inApp {
		notified[n.UserID] = true
	}
	assert.True(t, notified[2])
	assert.True(t, notified[9])
	assert.False(t, notified[1])
}

func TestDispatchFallsBackToBroadcastWithoutAssignee(t *testing.T) {
	f := newDispatcherFixture()

	result := f.d.Dispatch(context.Background(), "load_status_changed", "DRY-000001", map[string]interface{}{
		"tracking_number": "DRY-000001", "status": "in_transit",
	})

	// Both loads:read holders plus the super admin.
	assert.Equal(t, 3, result.EmployeesNotified)
}

func TestEmailRespectsDisableAndOverride(t *testing.T) {
	f := newDispatcherFixture()
	f.store.prefs[1] = &models.NotificationPreferences{
		UserID: 1, EmailEnabled: false, InAppEnabled: true, MinEmailPriority: models.PriorityLow,
	}
	f.store.prefs[9] = &models.NotificationPreferences{
		UserID: 9, EmailEnabled: true, InAppEnabled: true, MinEmailPriority: models.PriorityLow,
		EventOverrides: map[string]bool{"quote_submitted": false},
	}

	result := f.d.Dispatch(context.Background(), "quote_submitted", "42", map[string]interface{}{})

	// Everyone still gets in-app; nobody gets email.
	assert.Equal(t, 2, result.PerChannel["in_app"])
	assert.Equal(t, 0, result.PerChannel["email"])
	assert.Empty(t, f.email.Sent)
}

func TestQuietHoursDeferToDigest(t *testing.T) {
	f := newDispatcherFixture()
	f.d.now = func() time.Time { return time.Date(2026, 1, 26, 23, 0, 0, 0, time.UTC) }
	for _, id := range []int{1, 2, 9} {
		f.store.prefs[id] = &models.NotificationPreferences{
			UserID: id, EmailEnabled: true, InAppEnabled: true,
			QuietHoursStart: "22:00", QuietHoursEnd: "07:00", Timezone: "UTC",
			MinEmailPriority: models.PriorityLow,
		}
	}

	result := f.d.Dispatch(context.Background(), "load_status_changed", "DRY-000001", map[string]interface{}{
		"tracking_number": "DRY-000001", "status": "in_transit", "assignee_id": 2,
	})

	assert.Equal(t, 0, result.PerChannel["email"])
	assert.Equal(t, 2, result.PerChannel["email_digest"])
	assert.Empty(t, f.email.Sent)

	for _, item := range f.store.digest {
		assert.Equal(t, time.Date(2026, 1, 27, 9, 0, 0, 0, time.UTC), item.ScheduledFor.In(time.UTC))
		assert.Equal(t, models.DigestPending, item.Status)
	}
}

func TestQuietHoursBypassedForCriticalPriority(t *testing.T) {
	f := newDispatcherFixture()
	f.d.now = func() time.Time { return time.Date(2026, 1, 26, 23, 0, 0, 0, time.UTC) }
	f.store.prefs[2] = &models.NotificationPreferences{
		UserID: 2, EmailEnabled: true, InAppEnabled: true,
		QuietHoursStart: "22:00", QuietHoursEnd: "07:00", Timezone: "UTC",
		MinEmailPriority: models.PriorityLow,
	}

	f.d.Dispatch(context.Background(), "load_exception", "DRY-000001", map[string]interface{}{
		"tracking_number": "DRY-000001", "assignee_id": 2,
	})

	// Critical events cut through quiet hours.
	var toMarco int
	for _, sent := range f.email.Sent {
		if sent.To == "marco@example.com" {
			toMarco++
		}
	}
	assert.Equal(t, 1, toMarco)
}

func TestBelowMinPriorityDefersToDigest(t *testing.T) {
	f := newDispatcherFixture()
	f.store.prefs[2] = &models.NotificationPreferences{
		UserID: 2, EmailEnabled: true, InAppEnabled: true,
		MinEmailPriority: models.PriorityHigh,
	}

	result := f.d.Dispatch(context.Background(), "load_status_changed", "DRY-000001", map[string]interface{}{
		"tracking_number": "DRY-000001", "status": "in_transit", "assignee_id": 2,
	})

	// Normal priority is below Marco's floor; the super admin still gets email.
	assert.Equal(t, 1, result.PerChannel["email_digest"])
	assert.Equal(t, 1, result.PerChannel["email"])
}

func TestChannelFailuresAreIsolated(t *testing.T) {
	f := newDispatcherFixture()
	f.email.Err = errors.New("smtp down")

	result := f.d.Dispatch(context.Background(), "quote_submitted", "42", map[string]interface{}{})

	// In-app and chat still delivered, email failures reported not fatal.
	assert.Equal(t, 2, result.PerChannel["in_app"])
	assert.Equal(t, 1, result.PerChannel["chat"])
	assert.Equal(t, 0, result.PerChannel["email"])
	assert.Len(t, result.Errors, 2)
}

func TestChatKillSwitch(t *testing.T) {
	f := newDispatcherFixture()
	f.d.settings = &fakeSettings{values: map[string]string{models.SettingChatEnabled: "false"}}

	result := f.d.Dispatch(context.Background(), "quote_submitted", "42", map[string]interface{}{})

	assert.Empty(t, f.chat.Posted)
	assert.Equal(t, 0, result.PerChannel["chat"])
}

func TestDefaultPreferencesCreatedOnFirstDispatch(t *testing.T) {
	f := newDispatcherFixture()

	f.d.Dispatch(context.Background(), "quote_submitted", "42", map[string]interface{}{})

	require.Contains(t, f.store.prefs, 1)
	assert.True(t, f.store.prefs[1].EmailEnabled)
	assert.Equal(t, models.PriorityNormal, f.store.prefs[1].MinEmailPriority)
}

func TestRunDigestBatchesAndNeverResends(t *testing.T) {
	f := newDispatcherFixture()
	ctx := context.Background()

	past := time.Date(2026, 1, 26, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		f.store.CreateDigestItem(ctx, &models.DigestItem{
			UserID: 2, EventType: "load_status_changed",
			Title: "Load update", Body: "details",
			ScheduledFor: past, Status: models.DigestPending,
		})
	}

	users, items, errs := f.d.RunDigest(ctx)
	assert.Empty(t, errs)
	assert.Equal(t, 1, users)
	assert.Equal(t, 3, items)
	require.Len(t, f.email.Sent, 1)
	assert.Equal(t, "Daily digest: 3 notifications", f.email.Sent[0].Subject)

	// Everything is marked sent; a rerun delivers nothing.
	users, items, errs = f.d.RunDigest(ctx)
	assert.Empty(t, errs)
	assert.Equal(t, 0, users)
	assert.Equal(t, 0, items)
	assert.Len(t, f.email.Sent, 1)
}

func TestRunDigestLeavesPendingOnEmailFailure(t *testing.T) {
	f := newDispatcherFixture()
	ctx := context.Background()
	f.email.Err = errors.New("provider down")

	f.store.CreateDigestItem(ctx, &models.DigestItem{
		UserID: 2, EventType: "load_status_changed",
		Title: "Load update", Body: "details",
		ScheduledFor: time.Date(2026, 1, 26, 9, 0, 0, 0, time.UTC),
		Status:       models.DigestPending,
	})

	users, items, errs := f.d.RunDigest(ctx)
	assert.Equal(t, 0, users)
	assert.Equal(t, 0, items)
	assert.Len(t, errs, 1)
	assert.Equal(t, models.DigestPending, f.store.digest[1].Status)
}
