package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"concretrack-backend/internal/ctxkeys"
	"concretrack-backend/internal/database"
	"concretrack-backend/internal/models"
)

// ScheduleHandler handles concrete pour scheduling HTTP requests.
type ScheduleHandler struct {
	db database.Service
}

// NewScheduleHandler creates a new ScheduleHandler.
func NewScheduleHandler(db database.Service) *ScheduleHandler {
	return &ScheduleHandler{db: db}
}

const pourCols = `p.id, p.client_id, c.name, p.site, p.date::text,
	p.volume_m3, p.mix_design, p.status, p.notes,
	p.created_at::text, p.updated_at::text`

func scanPour(scanner interface {
	Scan(dest ...interface{}) error
}, p *models.Pour) error {
	return scanner.Scan(
		&p.ID, &p.ClientID, &p.ClientName, &p.Site, &p.Date,
		&p.VolumeM3, &p.MixDesign, &p.Status, &p.Notes,
		&p.CreatedAt, &p.UpdatedAt,
	)
}

// validPourStatuses gates status transitions from the update endpoint.
var validPourStatuses = map[string]bool{
	"scheduled": true,
	"completed": true,
	"canceled":  true,
}

// Create handles POST /api/pours
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePourRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		JSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   "Validation failed",
			"details": errs,
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var id string
	err := pool.QueryRow(ctx, `
		INSERT INTO pours (client_id, site, date, volume_m3, mix_design, status, notes)
		VALUES ($1, $2, $3, $4, $5, 'scheduled', $6)
		RETURNING id
	`, req.ClientID, req.Site, req.Date, req.VolumeM3, req.MixDesign, req.Notes,
	).Scan(&id)
	if err != nil {
		log.Printf("Error creating pour: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to schedule pour")
		return
	}

	var pour models.Pour
	err = scanPour(pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM pours p JOIN clients c ON c.id = p.client_id WHERE p.id = $1", pourCols),
		id,
	), &pour)
	if err != nil {
		log.Printf("Error fetching created pour: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to schedule pour")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "created", "pour", pour.ID, map[string]interface{}{
		"site": pour.Site,
		"date": pour.Date,
	})

	JSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Pour scheduled",
		"pour":    pour,
	})
}

// List handles GET /api/pours
// Supports date range, client and status filters.
func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if clientID := q.Get("client_id"); clientID != "" {
		where += fmt.Sprintf(" AND p.client_id = $%d", argIdx)
		args = append(args, clientID)
		argIdx++
	}
	if status := q.Get("status"); status != "" {
		where += fmt.Sprintf(" AND p.status = $%d", argIdx)
		args = append(args, status)
		argIdx++
	}
	if from := q.Get("from"); from != "" {
		where += fmt.Sprintf(" AND p.date >= $%d", argIdx)
		args = append(args, from)
		argIdx++
	}
	if to := q.Get("to"); to != "" {
		where += fmt.Sprintf(" AND p.date <= $%d", argIdx)
		args = append(args, to)
		argIdx++
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM pours p %s", where)
	if err := pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		log.Printf("Error counting pours: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch pours")
		return
	}

	query := fmt.Sprintf(`
		SELECT %s FROM pours p
		JOIN clients c ON c.id = p.client_id
		%s
		ORDER BY p.date ASC, c.name ASC
		LIMIT $%d OFFSET $%d
	`, pourCols, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		log.Printf("Error querying pours: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch pours")
		return
	}
	defer rows.Close()

	pours := []models.Pour{}
	for rows.Next() {
		var p models.Pour
		if err := scanPour(rows, &p); err != nil {
			log.Printf("Error scanning pour: %v", err)
			continue
		}
		pours = append(pours, p)
	}

	JSON(w, http.StatusOK, PaginatedResponse{
		Data: pours,
		Pagination: PaginationMeta{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
	})
}

// Today handles GET /api/pours/today
func (h *ScheduleHandler) Today(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	rows, err := pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM pours p
		JOIN clients c ON c.id = p.client_id
		WHERE p.status = 'scheduled' AND p.date = CURRENT_DATE
		ORDER BY c.name ASC
	`, pourCols))
	if err != nil {
		log.Printf("Error querying today's pours: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch pours")
		return
	}
	defer rows.Close()

	pours := []models.Pour{}
	for rows.Next() {
		var p models.Pour
		if err := scanPour(rows, &p); err != nil {
			log.Printf("Error scanning pour: %v", err)
			continue
		}
		pours = append(pours, p)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"pours": pours,
	})
}

// Update handles PATCH /api/pours/{id}
func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Pour ID is required")
		return
	}

	var req models.UpdatePourRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if req.Status != nil && !validPourStatuses[*req.Status] {
		JSONError(w, http.StatusUnprocessableEntity, "Status must be 'scheduled', 'completed', or 'canceled'")
		return
	}

	sets := []string{}
	args := []interface{}{}
	argIdx := 1

	addSet := func(col string, val interface{}) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argIdx))
		args = append(args, val)
		argIdx++
	}

	if req.Site != nil {
		addSet("site", *req.Site)
	}
	if req.Date != nil {
		addSet("date", *req.Date)
	}
	if req.VolumeM3 != nil {
		addSet("volume_m3", *req.VolumeM3)
	}
	if req.MixDesign != nil {
		addSet("mix_design", *req.MixDesign)
	}
	if req.Status != nil {
		addSet("status", *req.Status)
	}
	if req.Notes != nil {
		addSet("notes", *req.Notes)
	}

	if len(sets) == 0 {
		JSONError(w, http.StatusBadRequest, "No fields to update")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	query := fmt.Sprintf("UPDATE pours SET %s, updated_at = NOW() WHERE id = $%d", joinSets(sets), argIdx)
	args = append(args, id)

	tag, err := pool.Exec(ctx, query, args...)
	if err != nil {
		log.Printf("Error updating pour: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to update pour")
		return
	}
	if tag.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "Pour not found")
		return
	}

	var pour models.Pour
	err = scanPour(pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM pours p JOIN clients c ON c.id = p.client_id WHERE p.id = $1", pourCols),
		id,
	), &pour)
	if err != nil {
		JSONError(w, http.StatusNotFound, "Pour not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "updated", "pour", pour.ID, map[string]interface{}{
		"status": pour.Status,
	})

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Pour updated",
		"pour":    pour,
	})
}

// Delete handles DELETE /api/pours/{id}
func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Pour ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	tag, err := pool.Exec(ctx, "DELETE FROM pours WHERE id = $1", id)
	if err != nil {
		log.Printf("Error deleting pour: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete pour")
		return
	}
	if tag.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "Pour not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "deleted", "pour", id, nil)

	JSON(w, http.StatusOK, map[string]string{
		"message": "Pour deleted",
	})
}
