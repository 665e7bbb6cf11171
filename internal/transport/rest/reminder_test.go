package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/miyakawa-dev/yorimichi-backend/internal/domain"
	"github.com/miyakawa-dev/yorimichi-backend/internal/service/reminder"
)

type reminderServiceMock struct {
	CreateFunc     func(ctx context.Context, userID uuid.UUID, input reminder.CreateInput) (domain.Reminder, error)
	GetFunc        func(ctx context.Context, userID, reminderID uuid.UUID) (domain.Reminder, error)
	ListFunc       func(ctx context.Context, userID uuid.UUID) ([]domain.Reminder, error)
	UpdateFunc     func(ctx context.Context, userID, reminderID uuid.UUID, input reminder.UpdateInput) (domain.Reminder, error)
	DeleteFunc     func(ctx context.Context, userID, reminderID uuid.UUID) error
	ReactivateFunc func(ctx context.Context, userID, reminderID uuid.UUID) (domain.Reminder, error)
	StatsFunc      func(ctx context.Context, userID uuid.UUID) (domain.ReminderStats, error)
}

func (m *reminderServiceMock) Create(ctx context.Context, userID uuid.UUID, input reminder.CreateInput) (domain.Reminder, error) {
	return m.CreateFunc(ctx, userID, input)
}
func (m *reminderServiceMock) Get(ctx context.Context, userID, reminderID uuid.UUID) (domain.Reminder, error) {
	return m.GetFunc(ctx, userID, reminderID)
}
func (m *reminderServiceMock) List(ctx context.Context, userID uuid.UUID) ([]domain.Reminder, error) {
	return m.ListFunc(ctx, userID)
}
func (m *reminderServiceMock) Update(ctx context.Context, userID, reminderID uuid.UUID, input reminder.UpdateInput) (domain.Reminder, error) {
	return m.UpdateFunc(ctx, userID, reminderID, input)
}
func (m *reminderServiceMock) Delete(ctx context.Context, userID, reminderID uuid.UUID) error {
	return m.DeleteFunc(ctx, userID, reminderID)
}
func (m *reminderServiceMock) Reactivate(ctx context.Context, userID, reminderID uuid.UUID) (domain.Reminder, error) {
	return m.ReactivateFunc(ctx, userID, reminderID)
}
func (m *reminderServiceMock) Stats(ctx context.Context, userID uuid.UUID) (domain.ReminderStats, error) {
	return m.StatsFunc(ctx, userID)
}

func TestReminderCreate_Success(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	svc := &reminderServiceMock{
		CreateFunc: func(ctx context.Context, id uuid.UUID, input reminder.CreateInput) (domain.Reminder, error) {
			if input.Category != domain.StoreCategoryPharmacy {
				t.Errorf("category = %q", input.Category)
			}
			return domain.Reminder{
				ID:             uuid.New(),
				UserID:         id,
				Category:       input.Category,
				Title:          input.Title,
				TriggerRadiusM: 50,
				IsActive:       true,
			}, nil
		},
	}

	h := NewReminderHandler(svc, slog.Default())
	req := authedRequest(http.MethodPost, "/api/reminders",
		`{"category":"pharmacy","title":"pick up prescription","trigger_radius_m":50}`, userID)
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp reminderResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.IsActive {
		t.Error("expected an armed reminder")
	}
	if resp.TriggerRadiusM != 50 {
		t.Errorf("trigger_radius_m = %d, want 50", resp.TriggerRadiusM)
	}
}

func TestReminderCreate_ValidationError400(t *testing.T) {
	t.Parallel()

	svc := &reminderServiceMock{
		CreateFunc: func(ctx context.Context, id uuid.UUID, input reminder.CreateInput) (domain.Reminder, error) {
			return domain.Reminder{}, domain.NewValidationError("category", "unknown store category")
		},
	}

	h := NewReminderHandler(svc, slog.Default())
	req := authedRequest(http.MethodPost, "/api/reminders", `{"category":"bakery","title":"bread"}`, uuid.New())
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestReminderGet_NotFound404(t *testing.T) {
	t.Parallel()

	svc := &reminderServiceMock{
		GetFunc: func(ctx context.Context, userID, reminderID uuid.UUID) (domain.Reminder, error) {
			return domain.Reminder{}, domain.ErrNotFound
		},
	}

	h := NewReminderHandler(svc, slog.Default())
	req := authedRequest(http.MethodGet, "/api/reminders/"+uuid.NewString(), "", uuid.New())
	req.SetPathValue("id", uuid.NewString())
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestReminderGet_Forbidden403(t *testing.T) {
	t.Parallel()

	svc := &reminderServiceMock{
		GetFunc: func(ctx context.Context, userID, reminderID uuid.UUID) (domain.Reminder, error) {
			return domain.Reminder{}, domain.ErrForbidden
		},
	}

	h := NewReminderHandler(svc, slog.Default())
	req := authedRequest(http.MethodGet, "/api/reminders/"+uuid.NewString(), "", uuid.New())
	req.SetPathValue("id", uuid.NewString())
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rec.Code)
	}
}

func TestReminderGet_BadID400(t *testing.T) {
	t.Parallel()

	svc := &reminderServiceMock{
		GetFunc: func(ctx context.Context, userID, reminderID uuid.UUID) (domain.Reminder, error) {
			t.Error("service must not be called for a malformed id")
			return domain.Reminder{}, nil
		},
	}

	h := NewReminderHandler(svc, slog.Default())
	req := authedRequest(http.MethodGet, "/api/reminders/not-a-uuid", "", uuid.New())
	req.SetPathValue("id", "not-a-uuid")
	rec := httptest.NewRecorder()

	h.Get(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestReminderDelete_NoContent(t *testing.T) {
	t.Parallel()

	reminderID := uuid.New()
	svc := &reminderServiceMock{
		DeleteFunc: func(ctx context.Context, userID, id uuid.UUID) error {
			if id != reminderID {
				t.Errorf("Delete called with %v, want %v", id, reminderID)
			}
			return nil
		},
	}

	h := NewReminderHandler(svc, slog.Default())
	req := authedRequest(http.MethodDelete, "/api/reminders/"+reminderID.String(), "", uuid.New())
	req.SetPathValue("id", reminderID.String())
	rec := httptest.NewRecorder()

	h.Delete(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
}

func TestReminderStats(t *testing.T) {
	t.Parallel()

	svc := &reminderServiceMock{
		StatsFunc: func(ctx context.Context, userID uuid.UUID) (domain.ReminderStats, error) {
			return domain.ReminderStats{Total: 5, Active: 2}, nil
		},
	}

	h := NewReminderHandler(svc, slog.Default())
	req := authedRequest(http.MethodGet, "/api/reminders/stats", "", uuid.New())
	rec := httptest.NewRecorder()

	h.Stats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp reminderStatsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 5 || resp.Active != 2 {
		t.Errorf("stats = %+v, want total 5 active 2", resp)
	}
}
