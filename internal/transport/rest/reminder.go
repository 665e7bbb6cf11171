package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/miyakawa-dev/yorimichi-backend/internal/domain"
	"github.com/miyakawa-dev/yorimichi-backend/internal/service/reminder"
	"github.com/miyakawa-dev/yorimichi-backend/pkg/ctxutil"
)

// reminderService defines the minimal interface needed by ReminderHandler.
type reminderService interface {
	Create(ctx context.Context, userID uuid.UUID, input reminder.CreateInput) (domain.Reminder, error)
	Get(ctx context.Context, userID, reminderID uuid.UUID) (domain.Reminder, error)
	List(ctx context.Context, userID uuid.UUID) ([]domain.Reminder, error)
	Update(ctx context.Context, userID, reminderID uuid.UUID, input reminder.UpdateInput) (domain.Reminder, error)
	Delete(ctx context.Context, userID, reminderID uuid.UUID) error
	Reactivate(ctx context.Context, userID, reminderID uuid.UUID) (domain.Reminder, error)
	Stats(ctx context.Context, userID uuid.UUID) (domain.ReminderStats, error)
}

// ReminderHandler serves reminder CRUD endpoints.
type ReminderHandler struct {
	svc reminderService
	log *slog.Logger
}

// NewReminderHandler creates a ReminderHandler.
func NewReminderHandler(svc reminderService, logger *slog.Logger) *ReminderHandler {
	return &ReminderHandler{svc: svc, log: logger.With("handler", "reminder")}
}

type createReminderRequest struct {
	Category       string `json:"category"`
	Title          string `json:"title"`
	Memo           string `json:"memo"`
	TriggerRadiusM int    `json:"trigger_radius_m"`
}

type updateReminderRequest struct {
	Category       *string `json:"category"`
	Title          *string `json:"title"`
	Memo           *string `json:"memo"`
	TriggerRadiusM *int    `json:"trigger_radius_m"`
}

type reminderResponse struct {
	ID             string     `json:"id"`
	Category       string     `json:"category"`
	Title          string     `json:"title"`
	Memo           string     `json:"memo,omitempty"`
	TriggerRadiusM int        `json:"trigger_radius_m"`
	IsActive       bool       `json:"is_active"`
	LastFired      *time.Time `json:"last_fired,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type reminderStatsResponse struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

// Create handles POST /api/reminders.
func (h *ReminderHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := ctxutil.UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rem, err := h.svc.Create(r.Context(), userID, reminder.CreateInput{
		Category:       domain.StoreCategory(req.Category),
		Title:          req.Title,
		Memo:           req.Memo,
		TriggerRadiusM: req.TriggerRadiusM,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toReminderResponse(rem))
}

// List handles GET /api/reminders.
func (h *ReminderHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := ctxutil.UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	reminders, err := h.svc.List(r.Context(), userID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	resp := make([]reminderResponse, 0, len(reminders))
	for _, rem := range reminders {
		resp = append(resp, toReminderResponse(rem))
	}

	writeJSON(w, http.StatusOK, map[string]any{"reminders": resp})
}

// Get handles GET /api/reminders/{id}.
func (h *ReminderHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := ctxutil.UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	reminderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reminder id")
		return
	}

	rem, err := h.svc.Get(r.Context(), userID, reminderID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toReminderResponse(rem))
}

// Update handles PUT /api/reminders/{id}.
func (h *ReminderHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := ctxutil.UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	reminderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reminder id")
		return
	}

	var req updateReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var input reminder.UpdateInput
	if req.Category != nil {
		category := domain.StoreCategory(*req.Category)
		input.Category = &category
	}
	input.Title = req.Title
	input.Memo = req.Memo
	input.TriggerRadiusM = req.TriggerRadiusM

	rem, err := h.svc.Update(r.Context(), userID, reminderID, input)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toReminderResponse(rem))
}

// Delete handles DELETE /api/reminders/{id}.
func (h *ReminderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := ctxutil.UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	reminderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reminder id")
		return
	}

	if err := h.svc.Delete(r.Context(), userID, reminderID); err != nil {
		h.handleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Reactivate handles POST /api/reminders/{id}/reactivate: re-arm a fired
// reminder.
func (h *ReminderHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	userID, ok := ctxutil.UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	reminderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid reminder id")
		return
	}

	rem, err := h.svc.Reactivate(r.Context(), userID, reminderID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toReminderResponse(rem))
}

// Stats handles GET /api/reminders/stats.
func (h *ReminderHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := ctxutil.UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	stats, err := h.svc.Stats(r.Context(), userID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, reminderStatsResponse{
		Total:  stats.Total,
		Active: stats.Active,
	})
}

func (h *ReminderHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "reminder not found")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	default:
		h.log.ErrorContext(r.Context(), "internal error", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func toReminderResponse(rem domain.Reminder) reminderResponse {
	return reminderResponse{
		ID:             rem.ID.String(),
		Category:       rem.Category.String(),
		Title:          rem.Title,
		Memo:           rem.Memo,
		TriggerRadiusM: rem.TriggerRadiusM,
		IsActive:       rem.IsActive,
		LastFired:      rem.LastFired,
		CreatedAt:      rem.CreatedAt,
		UpdatedAt:      rem.UpdatedAt,
	}
}
