package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/miyakawa-dev/yorimichi-backend/internal/adapter/postgres/triggerlog"
	"github.com/miyakawa-dev/yorimichi-backend/internal/domain"
	"github.com/miyakawa-dev/yorimichi-backend/internal/service/trigger"
	"github.com/miyakawa-dev/yorimichi-backend/pkg/ctxutil"
)

// triggerService defines the minimal interface needed by PositionHandler.
type triggerService interface {
	Evaluate(ctx context.Context, userID uuid.UUID, pos domain.Position) (trigger.Result, error)
	History(ctx context.Context, userID uuid.UUID) ([]triggerlog.EventWithReminder, error)
}

// PositionHandler serves position reports and the trigger audit log.
type PositionHandler struct {
	svc triggerService
	log *slog.Logger
}

// NewPositionHandler creates a PositionHandler.
func NewPositionHandler(svc triggerService, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{svc: svc, log: logger.With("handler", "position")}
}

// positionRequest uses pointer fields so that an absent coordinate can be
// told apart from a literal zero; (0,0) is a valid position.
type positionRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type firedResponse struct {
	Reminder  reminderResponse `json:"reminder"`
	Store     storeResponse    `json:"store"`
	DistanceM float64          `json:"distance_m"`
	EventID   string           `json:"event_id"`
}

type evaluateResponse struct {
	Fired    []firedResponse `json:"fired"`
	Failures int             `json:"failures"`
}

type triggerEventResponse struct {
	ID            string    `json:"id"`
	ReminderID    string    `json:"reminder_id"`
	ReminderTitle string    `json:"reminder_title"`
	Category      string    `json:"category"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	DistanceM     float64   `json:"distance_m"`
	FiredAt       time.Time `json:"fired_at"`
}

// Report handles POST /api/positions: evaluate the reported position against
// the caller's armed reminders.
func (h *PositionHandler) Report(w http.ResponseWriter, r *http.Request) {
	userID, ok := ctxutil.UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		writeError(w, http.StatusBadRequest, "latitude and longitude are required")
		return
	}

	result, err := h.svc.Evaluate(r.Context(), userID, domain.Position{
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	for _, f := range result.Failures {
		h.log.ErrorContext(r.Context(), "reminder evaluation failed",
			slog.String("reminder_id", f.ReminderID.String()),
			slog.String("error", f.Err.Error()),
		)
	}

	resp := evaluateResponse{
		Fired:    make([]firedResponse, 0, len(result.Fired)),
		Failures: len(result.Failures),
	}
	for _, f := range result.Fired {
		resp.Fired = append(resp.Fired, firedResponse{
			Reminder:  toReminderResponse(f.Reminder),
			Store:     toStoreResponse(f.Store),
			DistanceM: f.DistanceM,
			EventID:   f.Event.ID.String(),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// History handles GET /api/reminders/logs: the caller's trigger audit trail,
// most recent first.
func (h *PositionHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := ctxutil.UserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	events, err := h.svc.History(r.Context(), userID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	resp := make([]triggerEventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, triggerEventResponse{
			ID:            e.ID.String(),
			ReminderID:    e.ReminderID.String(),
			ReminderTitle: e.ReminderTitle,
			Category:      e.Category.String(),
			Latitude:      e.Latitude,
			Longitude:     e.Longitude,
			DistanceM:     e.DistanceM,
			FiredAt:       e.FiredAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": resp})
}

func (h *PositionHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidPosition), errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	default:
		h.log.ErrorContext(r.Context(), "internal error", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
