package rest

import (
	"net/http"

	"github.com/miyakawa-dev/yorimichi-backend/internal/transport/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Health   *HealthHandler
	Position *PositionHandler
	Reminder *ReminderHandler
	Store    *StoreHandler
}

// NewRouter builds the HTTP routing table. Health probes are open; the /api
// subtree sits behind the auth middleware.
func NewRouter(h Handlers, authMW middleware.Middleware) http.Handler {
	api := http.NewServeMux()

	api.HandleFunc("POST /api/positions", h.Position.Report)

	api.HandleFunc("POST /api/reminders", h.Reminder.Create)
	api.HandleFunc("GET /api/reminders", h.Reminder.List)
	api.HandleFunc("GET /api/reminders/stats", h.Reminder.Stats)
	api.HandleFunc("GET /api/reminders/logs", h.Position.History)
	api.HandleFunc("GET /api/reminders/{id}", h.Reminder.Get)
	api.HandleFunc("PUT /api/reminders/{id}", h.Reminder.Update)
	api.HandleFunc("DELETE /api/reminders/{id}", h.Reminder.Delete)
	api.HandleFunc("POST /api/reminders/{id}/reactivate", h.Reminder.Reactivate)

	api.HandleFunc("GET /api/stores/nearby", h.Store.Nearby)
	api.HandleFunc("GET /api/stores/search", h.Store.Search)

	root := http.NewServeMux()
	root.HandleFunc("GET /health", h.Health.Health)
	root.HandleFunc("GET /health/live", h.Health.Live)
	root.HandleFunc("GET /health/ready", h.Health.Ready)
	root.Handle("/api/", authMW(api))

	return root
}
