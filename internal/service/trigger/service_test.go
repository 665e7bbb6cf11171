package trigger

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/miyakawa-dev/yorimichi-backend/internal/adapter/postgres/triggerlog"
	"github.com/miyakawa-dev/yorimichi-backend/internal/domain"
	"github.com/miyakawa-dev/yorimichi-backend/internal/service/catalog"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type reminderRegistryMock struct {
	ListActiveFunc func(ctx context.Context, userID uuid.UUID) ([]domain.Reminder, error)
	MarkFiredFunc  func(ctx context.Context, id uuid.UUID, firedAt time.Time) (bool, error)
}

func (m *reminderRegistryMock) ListActive(ctx context.Context, userID uuid.UUID) ([]domain.Reminder, error) {
	return m.ListActiveFunc(ctx, userID)
}
func (m *reminderRegistryMock) MarkFired(ctx context.Context, id uuid.UUID, firedAt time.Time) (bool, error) {
	return m.MarkFiredFunc(ctx, id, firedAt)
}

type triggerLogMock struct {
	AppendFunc      func(ctx context.Context, event domain.TriggerEvent) (uuid.UUID, error)
	ListForUserFunc func(ctx context.Context, userID uuid.UUID) ([]triggerlog.EventWithReminder, error)
}

func (m *triggerLogMock) Append(ctx context.Context, event domain.TriggerEvent) (uuid.UUID, error) {
	return m.AppendFunc(ctx, event)
}
func (m *triggerLogMock) ListForUser(ctx context.Context, userID uuid.UUID) ([]triggerlog.EventWithReminder, error) {
	return m.ListForUserFunc(ctx, userID)
}

type resolverMock struct {
	NearestFunc func(ctx context.Context, pos domain.Position, category domain.StoreCategory) (*catalog.StoreWithDistance, error)
}

func (m *resolverMock) Nearest(ctx context.Context, pos domain.Position, category domain.StoreCategory) (*catalog.StoreWithDistance, error) {
	return m.NearestFunc(ctx, pos, category)
}

// txManagerMock runs the callback inline; firing code must behave the same
// inside or outside a real transaction.
type txManagerMock struct{}

func (txManagerMock) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService(reminders *reminderRegistryMock, events *triggerLogMock, resolver *resolverMock) *Service {
	svc := NewService(slog.Default(), reminders, events, resolver, txManagerMock{}, time.Hour)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func armedReminder(userID uuid.UUID, radiusM int) domain.Reminder {
	return domain.Reminder{
		ID:             uuid.New(),
		UserID:         userID,
		Category:       domain.StoreCategoryConvenience,
		Title:          "buy milk",
		TriggerRadiusM: radiusM,
		IsActive:       true,
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestService_Evaluate_FiresAtZeroDistance(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	rem := armedReminder(userID, 100)
	store := domain.Store{ID: uuid.New(), Name: "Lawson Shinjuku", Category: domain.StoreCategoryConvenience}

	var appended []domain.TriggerEvent
	reminders := &reminderRegistryMock{
		ListActiveFunc: func(ctx context.Context, id uuid.UUID) ([]domain.Reminder, error) {
			return []domain.Reminder{rem}, nil
		},
		MarkFiredFunc: func(ctx context.Context, id uuid.UUID, firedAt time.Time) (bool, error) {
			return true, nil
		},
	}
	events := &triggerLogMock{
		AppendFunc: func(ctx context.Context, event domain.TriggerEvent) (uuid.UUID, error) {
			appended = append(appended, event)
			return uuid.New(), nil
		},
	}
	resolver := &resolverMock{
		NearestFunc: func(ctx context.Context, pos domain.Position, category domain.StoreCategory) (*catalog.StoreWithDistance, error) {
			return &catalog.StoreWithDistance{Store: store, DistanceM: 0}, nil
		},
	}

	svc := newTestService(reminders, events, resolver)
	result, err := svc.Evaluate(context.Background(), userID, domain.Position{Latitude: 35.6895, Longitude: 139.6917})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if len(result.Fired) != 1 {
		t.Fatalf("fired = %d, want 1", len(result.Fired))
	}
	fired := result.Fired[0]
	if fired.Reminder.ID != rem.ID {
		t.Errorf("fired reminder = %v, want %v", fired.Reminder.ID, rem.ID)
	}
	if fired.Reminder.IsActive {
		t.Error("fired reminder must be disarmed in the result")
	}
	if fired.Reminder.LastFired == nil {
		t.Error("fired reminder must carry a LastFired stamp")
	}
	if fired.DistanceM != 0 {
		t.Errorf("distance = %v, want 0", fired.DistanceM)
	}
	if len(appended) != 1 {
		t.Fatalf("events appended = %d, want 1", len(appended))
	}
	if appended[0].ReminderID != rem.ID {
		t.Errorf("event reminder = %v, want %v", appended[0].ReminderID, rem.ID)
	}
}

func TestService_Evaluate_OutsideRadiusDoesNotFire(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	rem := armedReminder(userID, 100)

	reminders := &reminderRegistryMock{
		ListActiveFunc: func(ctx context.Context, id uuid.UUID) ([]domain.Reminder, error) {
			return []domain.Reminder{rem}, nil
		},
		MarkFiredFunc: func(ctx context.Context, id uuid.UUID, firedAt time.Time) (bool, error) {
			t.Error("MarkFired must not be called outside the trigger radius")
			return false, nil
		},
	}
	events := &triggerLogMock{
		AppendFunc: func(ctx context.Context, event domain.TriggerEvent) (uuid.UUID, error) {
			t.Error("no event may be appended outside the trigger radius")
			return uuid.Nil, nil
		},
	}
	resolver := &resolverMock{
		NearestFunc: func(ctx context.Context, pos domain.Position, category domain.StoreCategory) (*catalog.StoreWithDistance, error) {
			return &catalog.StoreWithDistance{Store: domain.Store{ID: uuid.New()}, DistanceM: 500}, nil
		},
	}

	svc := newTestService(reminders, events, resolver)
	result, err := svc.Evaluate(context.Background(), userID, domain.Position{Latitude: 35.6895, Longitude: 139.6917})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(result.Fired) != 0 || len(result.Failures) != 0 {
		t.Fatalf("got %d fired, %d failures; want none", len(result.Fired), len(result.Failures))
	}
}

func TestService_Evaluate_NoStoreNearbyKeepsReminderArmed(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	rem := armedReminder(userID, 100)

	reminders := &reminderRegistryMock{
		ListActiveFunc: func(ctx context.Context, id uuid.UUID) ([]domain.Reminder, error) {
			return []domain.Reminder{rem}, nil
		},
		MarkFiredFunc: func(ctx context.Context, id uuid.UUID, firedAt time.Time) (bool, error) {
			t.Error("MarkFired must not be called when no store resolves")
			return false, nil
		},
	}
	events := &triggerLogMock{}
	resolver := &resolverMock{
		NearestFunc: func(ctx context.Context, pos domain.Position, category domain.StoreCategory) (*catalog.StoreWithDistance, error) {
			return nil, nil
		},
	}

	svc := newTestService(reminders, events, resolver)
	result, err := svc.Evaluate(context.Background(), userID, domain.Position{Latitude: 35.6895, Longitude: 139.6917})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(result.Fired) != 0 {
		t.Fatalf("fired = %d, want 0", len(result.Fired))
	}
}

func TestService_Evaluate_CooldownSuppressesRefire(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	rem := armedReminder(userID, 100)
	recent := time.Date(2025, 6, 1, 11, 30, 0, 0, time.UTC)
	rem.LastFired = &recent

	reminders := &reminderRegistryMock{
		ListActiveFunc: func(ctx context.Context, id uuid.UUID) ([]domain.Reminder, error) {
			return []domain.Reminder{rem}, nil
		},
	}
	resolver := &resolverMock{
		NearestFunc: func(ctx context.Context, pos domain.Position, category domain.StoreCategory) (*catalog.StoreWithDistance, error) {
			t.Error("resolver must not be consulted inside the cooldown window")
			return nil, nil
		},
	}

	svc := newTestService(reminders, &triggerLogMock{}, resolver)
	result, err := svc.Evaluate(context.Background(), userID, domain.Position{Latitude: 35.6895, Longitude: 139.6917})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(result.Fired) != 0 {
		t.Fatalf("fired = %d, want 0", len(result.Fired))
	}
}

func TestService_Evaluate_CooldownExpiredFires(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	rem := armedReminder(userID, 100)
	stale := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	rem.LastFired = &stale

	reminders := &reminderRegistryMock{
		ListActiveFunc: func(ctx context.Context, id uuid.UUID) ([]domain.Reminder, error) {
			return []domain.Reminder{rem}, nil
		},
		MarkFiredFunc: func(ctx context.Context, id uuid.UUID, firedAt time.Time) (bool, error) {
			return true, nil
		},
	}
	events := &triggerLogMock{
		AppendFunc: func(ctx context.Context, event domain.TriggerEvent) (uuid.UUID, error) {
			return uuid.New(), nil
		},
	}
	resolver := &resolverMock{
		NearestFunc: func(ctx context.Context, pos domain.Position, category domain.StoreCategory) (*catalog.StoreWithDistance, error) {
			return &catalog.StoreWithDistance{Store: domain.Store{ID: uuid.New()}, DistanceM: 10}, nil
		},
	}

	svc := newTestService(reminders, events, resolver)
	result, err := svc.Evaluate(context.Background(), userID, domain.Position{Latitude: 35.6895, Longitude: 139.6917})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(result.Fired) != 1 {
		t.Fatalf("fired = %d, want 1", len(result.Fired))
	}
}

func TestService_Evaluate_StaleFireAppendsNoEvent(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	rem := armedReminder(userID, 100)

	reminders := &reminderRegistryMock{
		ListActiveFunc: func(ctx context.Context, id uuid.UUID) ([]domain.Reminder, error) {
			return []domain.Reminder{rem}, nil
		},
		MarkFiredFunc: func(ctx context.Context, id uuid.UUID, firedAt time.Time) (bool, error) {
			// A concurrent evaluation already fired this reminder.
			return false, nil
		},
	}
	events := &triggerLogMock{
		AppendFunc: func(ctx context.Context, event domain.TriggerEvent) (uuid.UUID, error) {
			t.Error("a lost fire race must not append an event")
			return uuid.Nil, nil
		},
	}
	resolver := &resolverMock{
		NearestFunc: func(ctx context.Context, pos domain.Position, category domain.StoreCategory) (*catalog.StoreWithDistance, error) {
			return &catalog.StoreWithDistance{Store: domain.Store{ID: uuid.New()}, DistanceM: 5}, nil
		},
	}

	svc := newTestService(reminders, events, resolver)
	result, err := svc.Evaluate(context.Background(), userID, domain.Position{Latitude: 35.6895, Longitude: 139.6917})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(result.Fired) != 0 {
		t.Fatalf("fired = %d, want 0 after losing the race", len(result.Fired))
	}
	if len(result.Failures) != 0 {
		t.Fatalf("failures = %d, want 0; a stale fire is benign", len(result.Failures))
	}
}

func TestService_Evaluate_InvalidPositionTouchesNothing(t *testing.T) {
	t.Parallel()

	reminders := &reminderRegistryMock{
		ListActiveFunc: func(ctx context.Context, id uuid.UUID) ([]domain.Reminder, error) {
			t.Error("reminders must not be listed for an invalid position")
			return nil, nil
		},
	}

	svc := newTestService(reminders, &triggerLogMock{}, &resolverMock{})
	_, err := svc.Evaluate(context.Background(), uuid.New(), domain.Position{Latitude: 200, Longitude: 139.6917})
	if !errors.Is(err, domain.ErrInvalidPosition) {
		t.Fatalf("Evaluate() error = %v, want ErrInvalidPosition", err)
	}
}

func TestService_Evaluate_FailureIsolation(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	broken := armedReminder(userID, 100)
	healthy := armedReminder(userID, 100)
	dbErr := errors.New("connection reset")

	reminders := &reminderRegistryMock{
		ListActiveFunc: func(ctx context.Context, id uuid.UUID) ([]domain.Reminder, error) {
			return []domain.Reminder{broken, healthy}, nil
		},
		MarkFiredFunc: func(ctx context.Context, id uuid.UUID, firedAt time.Time) (bool, error) {
			if id == broken.ID {
				return false, dbErr
			}
			return true, nil
		},
	}
	events := &triggerLogMock{
		AppendFunc: func(ctx context.Context, event domain.TriggerEvent) (uuid.UUID, error) {
			return uuid.New(), nil
		},
	}
	resolver := &resolverMock{
		NearestFunc: func(ctx context.Context, pos domain.Position, category domain.StoreCategory) (*catalog.StoreWithDistance, error) {
			return &catalog.StoreWithDistance{Store: domain.Store{ID: uuid.New()}, DistanceM: 5}, nil
		},
	}

	svc := newTestService(reminders, events, resolver)
	result, err := svc.Evaluate(context.Background(), userID, domain.Position{Latitude: 35.6895, Longitude: 139.6917})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if len(result.Fired) != 1 || result.Fired[0].Reminder.ID != healthy.ID {
		t.Fatalf("healthy reminder must still fire, got %d fired", len(result.Fired))
	}
	if len(result.Failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(result.Failures))
	}
	if result.Failures[0].ReminderID != broken.ID {
		t.Errorf("failure reminder = %v, want %v", result.Failures[0].ReminderID, broken.ID)
	}
	if !errors.Is(result.Failures[0].Err, dbErr) {
		t.Errorf("failure error = %v, want wrapped %v", result.Failures[0].Err, dbErr)
	}
}

func TestService_Evaluate_ResolverErrorIsolated(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	first := armedReminder(userID, 100)
	second := armedReminder(userID, 100)
	second.Category = domain.StoreCategoryPharmacy
	resolveErr := errors.New("index unavailable")

	reminders := &reminderRegistryMock{
		ListActiveFunc: func(ctx context.Context, id uuid.UUID) ([]domain.Reminder, error) {
			return []domain.Reminder{first, second}, nil
		},
		MarkFiredFunc: func(ctx context.Context, id uuid.UUID, firedAt time.Time) (bool, error) {
			return true, nil
		},
	}
	events := &triggerLogMock{
		AppendFunc: func(ctx context.Context, event domain.TriggerEvent) (uuid.UUID, error) {
			return uuid.New(), nil
		},
	}
	resolver := &resolverMock{
		NearestFunc: func(ctx context.Context, pos domain.Position, category domain.StoreCategory) (*catalog.StoreWithDistance, error) {
			if category == domain.StoreCategoryConvenience {
				return nil, resolveErr
			}
			return &catalog.StoreWithDistance{Store: domain.Store{ID: uuid.New()}, DistanceM: 5}, nil
		},
	}

	svc := newTestService(reminders, events, resolver)
	result, err := svc.Evaluate(context.Background(), userID, domain.Position{Latitude: 35.6895, Longitude: 139.6917})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(result.Failures) != 1 || result.Failures[0].ReminderID != first.ID {
		t.Fatalf("want exactly the first reminder to fail, got %+v", result.Failures)
	}
	if len(result.Fired) != 1 || result.Fired[0].Reminder.ID != second.ID {
		t.Fatalf("second reminder must still fire, got %d fired", len(result.Fired))
	}
}

func TestService_Evaluate_FiredOrderFollowsEvaluationOrder(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	a := armedReminder(userID, 100)
	b := armedReminder(userID, 100)
	c := armedReminder(userID, 100)

	reminders := &reminderRegistryMock{
		ListActiveFunc: func(ctx context.Context, id uuid.UUID) ([]domain.Reminder, error) {
			return []domain.Reminder{a, b, c}, nil
		},
		MarkFiredFunc: func(ctx context.Context, id uuid.UUID, firedAt time.Time) (bool, error) {
			return true, nil
		},
	}
	events := &triggerLogMock{
		AppendFunc: func(ctx context.Context, event domain.TriggerEvent) (uuid.UUID, error) {
			return uuid.New(), nil
		},
	}
	resolver := &resolverMock{
		NearestFunc: func(ctx context.Context, pos domain.Position, category domain.StoreCategory) (*catalog.StoreWithDistance, error) {
			return &catalog.StoreWithDistance{Store: domain.Store{ID: uuid.New()}, DistanceM: 1}, nil
		},
	}

	svc := newTestService(reminders, events, resolver)
	result, err := svc.Evaluate(context.Background(), userID, domain.Position{Latitude: 35.6895, Longitude: 139.6917})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	want := []uuid.UUID{a.ID, b.ID, c.ID}
	if len(result.Fired) != len(want) {
		t.Fatalf("fired = %d, want %d", len(result.Fired), len(want))
	}
	for i, id := range want {
		if result.Fired[i].Reminder.ID != id {
			t.Errorf("fired[%d] = %v, want %v", i, result.Fired[i].Reminder.ID, id)
		}
	}
}

func TestService_History(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	events := &triggerLogMock{
		ListForUserFunc: func(ctx context.Context, id uuid.UUID) ([]triggerlog.EventWithReminder, error) {
			if id != userID {
				t.Errorf("ListForUser called with %v, want %v", id, userID)
			}
			return []triggerlog.EventWithReminder{{ReminderTitle: "buy milk"}}, nil
		},
	}

	svc := newTestService(&reminderRegistryMock{}, events, &resolverMock{})
	got, err := svc.History(context.Background(), userID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(got) != 1 || got[0].ReminderTitle != "buy milk" {
		t.Fatalf("History() = %+v", got)
	}
}
