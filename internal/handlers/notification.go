package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"concretrack-backend/internal/clock"
	"concretrack-backend/internal/ctxkeys"
	"concretrack-backend/internal/database"
	"concretrack-backend/internal/notify"
)

// NotificationHandler serves the notification center. Events are computed
// fresh on every request; only dismissals are remembered, per user, in
// process memory — nothing notification-related touches the database.
type NotificationHandler struct {
	db  database.Service
	clk clock.Clock

	mu        sync.Mutex
	dismissed map[string]*notify.DismissSet // user ID → session dismissals
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(db database.Service, clk clock.Clock) *NotificationHandler {
	return &NotificationHandler{
		db:        db,
		clk:       clk,
		dismissed: make(map[string]*notify.DismissSet),
	}
}

func (h *NotificationHandler) dismissSet(userID string) *notify.DismissSet {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.dismissed[userID]
	if !ok {
		set = notify.NewDismissSet()
		h.dismissed[userID] = set
	}
	return set
}

// List handles GET /api/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	src := notify.NewPGSource(h.db.GetPool())
	events := notify.Aggregate(ctx, src, h.clk.Today())

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	events = h.dismissSet(userID).Filter(events)

	JSON(w, http.StatusOK, map[string]interface{}{
		"notifications": events,
		"count":         len(events),
	})
}

// Dismiss handles POST /api/notifications/{id}/dismiss
func (h *NotificationHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Notification ID is required")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	h.dismissSet(userID).Dismiss(id)

	JSON(w, http.StatusOK, map[string]string{
		"message": "Notification dismissed",
	})
}

// DismissAll handles POST /api/notifications/dismiss-all
// Recomputes the current event list and dismisses every event in it.
func (h *NotificationHandler) DismissAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	src := notify.NewPGSource(h.db.GetPool())
	events := notify.Aggregate(ctx, src, h.clk.Today())

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	h.dismissSet(userID).DismissAll(events)

	JSON(w, http.StatusOK, map[string]interface{}{
		"message":   "All notifications dismissed",
		"dismissed": len(events),
	})
}
