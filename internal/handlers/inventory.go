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

// InventoryHandler handles lab stock HTTP requests.
type InventoryHandler struct {
	db database.Service
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(db database.Service) *InventoryHandler {
	return &InventoryHandler{db: db}
}

const stockCols = `s.id, s.name, s.category, s.unit, s.quantity, s.minimum_qty,
	s.branch, s.notes, s.created_at::text, s.updated_at::text`

const stockRetCols = `id, name, category, unit, quantity, minimum_qty,
	branch, notes, created_at::text, updated_at::text`

func scanStockItem(scanner interface {
	Scan(dest ...interface{}) error
}, s *models.StockItem) error {
	return scanner.Scan(
		&s.ID, &s.Name, &s.Category, &s.Unit, &s.Quantity, &s.MinimumQty,
		&s.Branch, &s.Notes, &s.CreatedAt, &s.UpdatedAt,
	)
}

// Create handles POST /api/inventory
func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateStockItemRequest
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

	if !checkBranchAccess(r.Context(), req.Branch) {
		JSONError(w, http.StatusForbidden, "Access denied to this branch")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var item models.StockItem
	err := scanStockItem(pool.QueryRow(ctx, `
		INSERT INTO stock_items (name, category, unit, quantity, minimum_qty, branch, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+stockRetCols,
		req.Name, req.Category, req.Unit, req.Quantity, req.MinimumQty, req.Branch, req.Notes,
	), &item)
	if err != nil {
		log.Printf("Error creating stock item: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create stock item")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "created", "stock_item", item.ID, map[string]interface{}{
		"name": item.Name,
	})

	JSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Stock item created",
		"item":    item,
	})
}

// List handles GET /api/inventory
// low=true returns only items at or below their minimum quantity.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	where, args, argIdx = appendBranchScope(ctx, where, args, argIdx, "s.branch")

	if branch := q.Get("branch"); branch != "" {
		where += fmt.Sprintf(" AND s.branch = $%d", argIdx)
		args = append(args, branch)
		argIdx++
	}
	if category := q.Get("category"); category != "" {
		where += fmt.Sprintf(" AND s.category = $%d", argIdx)
		args = append(args, category)
		argIdx++
	}
	if q.Get("low") == "true" {
		where += " AND s.quantity <= s.minimum_qty"
	}

	rows, err := pool.Query(ctx,
		fmt.Sprintf("SELECT %s FROM stock_items s %s ORDER BY s.branch, s.name", stockCols, where),
		args...)
	if err != nil {
		log.Printf("Error querying stock items: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch inventory")
		return
	}
	defer rows.Close()

	items := []models.StockItem{}
	for rows.Next() {
		var s models.StockItem
		if err := scanStockItem(rows, &s); err != nil {
			log.Printf("Error scanning stock item: %v", err)
			continue
		}
		items = append(items, s)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
	})
}

// Adjust handles POST /api/inventory/{id}/adjust
// Applies a signed quantity delta; rejects adjustments that go negative.
func (h *InventoryHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Item ID is required")
		return
	}

	var req models.AdjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Delta == 0 {
		JSONError(w, http.StatusUnprocessableEntity, "Delta must be non-zero")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var item models.StockItem
	err := scanStockItem(pool.QueryRow(ctx, `
		UPDATE stock_items
		SET quantity = quantity + $1, updated_at = NOW()
		WHERE id = $2 AND quantity + $1 >= 0
		RETURNING `+stockRetCols,
		req.Delta, id,
	), &item)
	if err != nil {
		JSONError(w, http.StatusConflict, "Item not found or adjustment would go negative")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "adjusted", "stock_item", item.ID, map[string]interface{}{
		"delta":  req.Delta,
		"reason": req.Reason,
	})

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Stock adjusted",
		"item":    item,
	})
}

// Delete handles DELETE /api/inventory/{id}
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Item ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	tag, err := pool.Exec(ctx, "DELETE FROM stock_items WHERE id = $1", id)
	if err != nil {
		log.Printf("Error deleting stock item: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete stock item")
		return
	}
	if tag.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "Item not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "deleted", "stock_item", id, nil)

	JSON(w, http.StatusOK, map[string]string{
		"message": "Stock item deleted",
	})
}
