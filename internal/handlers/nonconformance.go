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
)

// NonConformanceHandler handles quality deviation HTTP requests.
type NonConformanceHandler struct {
	db database.Service
}

// NewNonConformanceHandler creates a new NonConformanceHandler.
func NewNonConformanceHandler(db database.Service) *NonConformanceHandler {
	return &NonConformanceHandler{db: db}
}

const ncCols = `n.id, n.type_id, t.name, n.employee_id, e.name, n.client_id, c.name,
	n.date::text, n.description, n.resolved,
	n.created_at::text, n.updated_at::text`

func scanNonConformance(scanner interface {
	Scan(dest ...interface{}) error
}, n *models.NonConformance) error {
	return scanner.Scan(
		&n.ID, &n.TypeID, &n.TypeName, &n.EmployeeID, &n.EmployeeName,
		&n.ClientID, &n.ClientName,
		&n.Date, &n.Description, &n.Resolved,
		&n.CreatedAt, &n.UpdatedAt,
	)
}

const ncFrom = `FROM nonconformances n
	JOIN nonconformance_types t ON t.id = n.type_id
	LEFT JOIN employees e ON e.id = n.employee_id
	LEFT JOIN clients c ON c.id = n.client_id`

// Create handles POST /api/nonconformances
func (h *NonConformanceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateNonConformanceRequest
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

	if req.EmployeeID != nil && !checkEmployeeAccess(r.Context(), h.db.GetPool(), *req.EmployeeID) {
		JSONError(w, http.StatusForbidden, "Access denied to this employee")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var id string
	err := pool.QueryRow(ctx, `
		INSERT INTO nonconformances (type_id, employee_id, client_id, date, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, req.TypeID, req.EmployeeID, req.ClientID, req.Date, req.Description,
	).Scan(&id)
	if err != nil {
		log.Printf("Error creating non-conformance: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to record non-conformance")
		return
	}

	var nc models.NonConformance
	err = scanNonConformance(pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s %s WHERE n.id = $1", ncCols, ncFrom), id,
	), &nc)
	if err != nil {
		log.Printf("Error fetching created non-conformance: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to record non-conformance")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "created", "nonconformance", nc.ID, map[string]interface{}{
		"typeId": nc.TypeID,
	})

	JSON(w, http.StatusCreated, map[string]interface{}{
		"message":        "Non-conformance recorded",
		"nonconformance": nc,
	})
}

// List handles GET /api/nonconformances
func (h *NonConformanceHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if typeID := q.Get("type_id"); typeID != "" {
		where += fmt.Sprintf(" AND n.type_id = $%d", argIdx)
		args = append(args, typeID)
		argIdx++
	}
	if employeeID := q.Get("employee_id"); employeeID != "" {
		where += fmt.Sprintf(" AND n.employee_id = $%d", argIdx)
		args = append(args, employeeID)
		argIdx++
	}
	if clientID := q.Get("client_id"); clientID != "" {
		where += fmt.Sprintf(" AND n.client_id = $%d", argIdx)
		args = append(args, clientID)
		argIdx++
	}
	if resolved := q.Get("resolved"); resolved == "true" || resolved == "false" {
		where += fmt.Sprintf(" AND n.resolved = $%d", argIdx)
		args = append(args, resolved == "true")
		argIdx++
	}

	rows, err := pool.Query(ctx, fmt.Sprintf(`
		SELECT %s %s %s ORDER BY n.date DESC
	`, ncCols, ncFrom, where), args...)
	if err != nil {
		log.Printf("Error querying non-conformances: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch non-conformances")
		return
	}
	defer rows.Close()

	items := []models.NonConformance{}
	for rows.Next() {
		var nc models.NonConformance
		if err := scanNonConformance(rows, &nc); err != nil {
			log.Printf("Error scanning non-conformance: %v", err)
			continue
		}
		items = append(items, nc)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"nonconformances": items,
	})
}

// Resolve handles POST /api/nonconformances/{id}/resolve
func (h *NonConformanceHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Non-conformance ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	tag, err := pool.Exec(ctx,
		"UPDATE nonconformances SET resolved = TRUE, updated_at = NOW() WHERE id = $1", id)
	if err != nil {
		log.Printf("Error resolving non-conformance: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to resolve non-conformance")
		return
	}
	if tag.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "Non-conformance not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "resolved", "nonconformance", id, nil)

	JSON(w, http.StatusOK, map[string]string{
		"message": "Non-conformance resolved",
	})
}

// ListTypes handles GET /api/nonconformances/types
func (h *NonConformanceHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	rows, err := pool.Query(ctx, `
		SELECT id, name, COALESCE(description, ''), created_at::text
		FROM nonconformance_types
		ORDER BY name
	`)
	if err != nil {
		log.Printf("Error querying non-conformance types: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch types")
		return
	}
	defer rows.Close()

	types := []models.NonConformanceType{}
	for rows.Next() {
		var t models.NonConformanceType
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.CreatedAt); err != nil {
			log.Printf("Error scanning non-conformance type: %v", err)
			continue
		}
		types = append(types, t)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"types": types,
	})
}
