package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"concretrack-backend/internal/ctxkeys"
	"concretrack-backend/internal/database"
	"concretrack-backend/internal/models"
	"concretrack-backend/internal/notify"
)

// OvertimeHandler handles overtime log HTTP requests.
type OvertimeHandler struct {
	db database.Service
}

// NewOvertimeHandler creates a new OvertimeHandler.
func NewOvertimeHandler(db database.Service) *OvertimeHandler {
	return &OvertimeHandler{db: db}
}

// Create handles POST /api/overtime
func (h *OvertimeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOvertimeRequest
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

	if !checkEmployeeAccess(r.Context(), h.db.GetPool(), req.EmployeeID) {
		JSONError(w, http.StatusForbidden, "Access denied to this employee")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var entry models.OvertimeEntry
	err := pool.QueryRow(ctx, `
		INSERT INTO overtime_entries (employee_id, date, hours, reason)
		VALUES ($1, $2, $3, $4)
		RETURNING id, employee_id, date::text, hours, reason, created_at::text
	`, req.EmployeeID, req.Date, req.Hours, req.Reason,
	).Scan(&entry.ID, &entry.EmployeeID, &entry.Date, &entry.Hours, &entry.Reason, &entry.CreatedAt)
	if err != nil {
		log.Printf("Error creating overtime entry: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to log overtime")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "created", "overtime", entry.ID, map[string]interface{}{
		"employeeId": entry.EmployeeID,
		"hours":      entry.Hours,
	})

	JSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Overtime logged",
		"entry":   entry,
	})
}

// List handles GET /api/overtime
// Filters: employee_id, month (YYYY-MM).
func (h *OvertimeHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	where, args, argIdx = appendBranchScope(ctx, where, args, argIdx, "e.branch")

	if employeeID := q.Get("employee_id"); employeeID != "" {
		where += fmt.Sprintf(" AND o.employee_id = $%d", argIdx)
		args = append(args, employeeID)
		argIdx++
	}
	if month := q.Get("month"); month != "" {
		where += fmt.Sprintf(" AND to_char(o.date, 'YYYY-MM') = $%d", argIdx)
		args = append(args, month)
		argIdx++
	}

	rows, err := pool.Query(ctx, fmt.Sprintf(`
		SELECT o.id, o.employee_id, e.name, o.date::text, o.hours, o.reason, o.created_at::text
		FROM overtime_entries o
		JOIN employees e ON e.id = o.employee_id
		%s
		ORDER BY o.date DESC, e.name ASC
	`, where), args...)
	if err != nil {
		log.Printf("Error querying overtime entries: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch overtime")
		return
	}
	defer rows.Close()

	entries := []models.OvertimeEntry{}
	for rows.Next() {
		var e models.OvertimeEntry
		if err := rows.Scan(&e.ID, &e.EmployeeID, &e.EmployeeName, &e.Date, &e.Hours, &e.Reason, &e.CreatedAt); err != nil {
			log.Printf("Error scanning overtime entry: %v", err)
			continue
		}
		entries = append(entries, e)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
	})
}

// MonthSummary handles GET /api/overtime/summary?month=YYYY-MM
// Per-employee totals, flagging anyone at or over the monthly threshold.
func (h *OvertimeHandler) MonthSummary(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if len(month) != 7 {
		JSONError(w, http.StatusBadRequest, "A month in YYYY-MM format is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	where := "WHERE to_char(o.date, 'YYYY-MM') = $1"
	args := []interface{}{month}
	where, args, _ = appendBranchScope(ctx, where, args, 2, "e.branch")

	rows, err := pool.Query(ctx, fmt.Sprintf(`
		SELECT o.employee_id, e.name, SUM(o.hours)
		FROM overtime_entries o
		JOIN employees e ON e.id = o.employee_id
		%s
		GROUP BY o.employee_id, e.name
		ORDER BY SUM(o.hours) DESC
	`, where), args...)
	if err != nil {
		log.Printf("Error querying overtime summary: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to compute overtime summary")
		return
	}
	defer rows.Close()

	summaries := []models.OvertimeMonthSummary{}
	for rows.Next() {
		var s models.OvertimeMonthSummary
		if err := rows.Scan(&s.EmployeeID, &s.EmployeeName, &s.TotalHours); err != nil {
			log.Printf("Error scanning overtime summary: %v", err)
			continue
		}
		s.OverLimit = s.TotalHours >= notify.OvertimeMonthlyThreshold
		summaries = append(summaries, s)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"month":     month,
		"summaries": summaries,
	})
}

// Delete handles DELETE /api/overtime/{id}
func (h *OvertimeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Entry ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	tag, err := pool.Exec(ctx, "DELETE FROM overtime_entries WHERE id = $1", id)
	if err != nil {
		log.Printf("Error deleting overtime entry: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete entry")
		return
	}
	if tag.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "Entry not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "deleted", "overtime", id, nil)

	JSON(w, http.StatusOK, map[string]string{
		"message": "Entry deleted",
	})
}
