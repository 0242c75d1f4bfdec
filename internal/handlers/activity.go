package handlers

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"concretrack-backend/internal/database"
)

// logActivity records an audit trail entry. Failures are logged, never
// surfaced — audit writes must not break the main operation.
func logActivity(pool *pgxpool.Pool, userID, action, entityType, entityID string, details map[string]interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var detailsJSON []byte
	if details != nil {
		detailsJSON, _ = json.Marshal(details)
	}

	_, err := pool.Exec(ctx, `
		INSERT INTO activity_log (user_id, action, entity_type, entity_id, details)
		VALUES ($1, $2, $3, $4, $5)
	`, userID, action, entityType, entityID, detailsJSON)
	if err != nil {
		log.Printf("Error logging activity (%s %s %s): %v", action, entityType, entityID, err)
	}
}

// ActivityHandler serves the audit trail.
type ActivityHandler struct {
	db database.Service
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(db database.Service) *ActivityHandler {
	return &ActivityHandler{db: db}
}

type activityEntry struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId"`
	UserName   string          `json:"userName"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// List handles GET /api/activity
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 50
	}
	offset := (page - 1) * limit

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var total int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM activity_log").Scan(&total); err != nil {
		log.Printf("Error counting activity log: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch activity log")
		return
	}

	rows, err := pool.Query(ctx, `
		SELECT a.id, a.user_id, COALESCE(u.name, ''), a.action, a.entity_type, a.entity_id,
			COALESCE(a.details, 'null'::jsonb), a.created_at
		FROM activity_log a
		LEFT JOIN users u ON u.id = a.user_id
		ORDER BY a.created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		log.Printf("Error querying activity log: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch activity log")
		return
	}
	defer rows.Close()

	entries := []activityEntry{}
	for rows.Next() {
		var e activityEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.UserName, &e.Action, &e.EntityType, &e.EntityID, &e.Details, &e.CreatedAt); err != nil {
			log.Printf("Error scanning activity entry: %v", err)
			continue
		}
		entries = append(entries, e)
	}

	JSON(w, http.StatusOK, PaginatedResponse{
		Data: entries,
		Pagination: PaginationMeta{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
	})
}
