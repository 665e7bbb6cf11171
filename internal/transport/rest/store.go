package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/miyakawa-dev/yorimichi-backend/internal/domain"
	"github.com/miyakawa-dev/yorimichi-backend/internal/service/catalog"
)

// catalogService defines the minimal interface needed by StoreHandler.
type catalogService interface {
	Nearby(ctx context.Context, pos domain.Position, category *domain.StoreCategory, radiusKm float64) ([]catalog.StoreWithDistance, error)
	Search(ctx context.Context, query string, category *domain.StoreCategory) ([]domain.Store, error)
}

// StoreHandler serves store catalog endpoints.
type StoreHandler struct {
	svc catalogService
	log *slog.Logger
}

// NewStoreHandler creates a StoreHandler.
func NewStoreHandler(svc catalogService, logger *slog.Logger) *StoreHandler {
	return &StoreHandler{svc: svc, log: logger.With("handler", "store")}
}

type storeResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Address      string  `json:"address,omitempty"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	PhoneNumber  string  `json:"phone_number,omitempty"`
	OpeningHours string  `json:"opening_hours,omitempty"`
	ChainName    string  `json:"chain_name,omitempty"`
}

type storeWithDistanceResponse struct {
	storeResponse
	DistanceM float64 `json:"distance_m"`
}

// Nearby handles GET /api/stores/nearby?lat=&lng=&radius_km=&category=.
func (h *StoreHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lat is required and must be a number")
		return
	}
	lng, err := strconv.ParseFloat(q.Get("lng"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "lng is required and must be a number")
		return
	}

	var radiusKm float64
	if raw := q.Get("radius_km"); raw != "" {
		radiusKm, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "radius_km must be a number")
			return
		}
	}

	category, err := categoryParam(q.Get("category"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stores, err := h.svc.Nearby(r.Context(), domain.Position{Latitude: lat, Longitude: lng}, category, radiusKm)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	resp := make([]storeWithDistanceResponse, 0, len(stores))
	for _, s := range stores {
		resp = append(resp, storeWithDistanceResponse{
			storeResponse: toStoreResponse(s.Store),
			DistanceM:     s.DistanceM,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"stores": resp})
}

// Search handles GET /api/stores/search?q=&category=.
func (h *StoreHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	category, err := categoryParam(q.Get("category"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stores, err := h.svc.Search(r.Context(), q.Get("q"), category)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	resp := make([]storeResponse, 0, len(stores))
	for _, s := range stores {
		resp = append(resp, toStoreResponse(s))
	}

	writeJSON(w, http.StatusOK, map[string]any{"stores": resp})
}

func (h *StoreHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidPosition), errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.ErrorContext(r.Context(), "internal error", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func categoryParam(raw string) (*domain.StoreCategory, error) {
	if raw == "" {
		return nil, nil
	}
	category := domain.StoreCategory(raw)
	if !category.IsValid() {
		return nil, errors.New("unknown store category: " + raw)
	}
	return &category, nil
}

func toStoreResponse(s domain.Store) storeResponse {
	return storeResponse{
		ID:           s.ID.String(),
		Name:         s.Name,
		Category:     s.Category.String(),
		Address:      s.Address,
		Latitude:     s.Latitude,
		Longitude:    s.Longitude,
		PhoneNumber:  s.PhoneNumber,
		OpeningHours: s.OpeningHours,
		ChainName:    s.ChainName,
	}
}
