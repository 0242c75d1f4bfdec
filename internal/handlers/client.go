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

// ClientHandler handles client (contracting company) HTTP requests.
type ClientHandler struct {
	db database.Service
}

// NewClientHandler creates a new ClientHandler.
func NewClientHandler(db database.Service) *ClientHandler {
	return &ClientHandler{db: db}
}

const clientCols = `c.id, c.name, c.tax_id, c.contact_name, c.email, c.phone,
	c.address, c.active, c.created_at::text, c.updated_at::text`

const clientRetCols = `id, name, tax_id, contact_name, email, phone,
	address, active, created_at::text, updated_at::text`

func scanClient(scanner interface {
	Scan(dest ...interface{}) error
}, c *models.Client) error {
	return scanner.Scan(
		&c.ID, &c.Name, &c.TaxID, &c.ContactName, &c.Email, &c.Phone,
		&c.Address, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
}

// Create handles POST /api/clients
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateClientRequest
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

	var client models.Client
	err := scanClient(pool.QueryRow(ctx, `
		INSERT INTO clients (name, tax_id, contact_name, email, phone, address, active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING `+clientRetCols,
		req.Name, req.TaxID, req.ContactName, req.Email, req.Phone, req.Address,
	), &client)
	if err != nil {
		if isDuplicateKeyError(err) {
			JSONError(w, http.StatusConflict, "A client with this tax ID already exists")
			return
		}
		log.Printf("Error creating client: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create client")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "created", "client", client.ID, map[string]interface{}{
		"name": client.Name,
	})

	JSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Client created",
		"client":  client,
	})
}

// List handles GET /api/clients
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search := q.Get("search")
	activeOnly := q.Get("active") == "true"

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if search != "" {
		where += fmt.Sprintf(" AND c.name ILIKE $%d", argIdx)
		args = append(args, "%"+search+"%")
		argIdx++
	}
	if activeOnly {
		where += " AND c.active = TRUE"
	}

	rows, err := pool.Query(ctx,
		fmt.Sprintf("SELECT %s FROM clients c %s ORDER BY c.name", clientCols, where),
		args...)
	if err != nil {
		log.Printf("Error querying clients: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch clients")
		return
	}
	defer rows.Close()

	clients := []models.Client{}
	for rows.Next() {
		var c models.Client
		if err := scanClient(rows, &c); err != nil {
			log.Printf("Error scanning client: %v", err)
			continue
		}
		clients = append(clients, c)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"clients": clients,
	})
}

// GetByID handles GET /api/clients/{id}
func (h *ClientHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Client ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var client models.Client
	err := scanClient(pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM clients c WHERE c.id = $1", clientCols), id,
	), &client)
	if err != nil {
		JSONError(w, http.StatusNotFound, "Client not found")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"client": client,
	})
}

// Update handles PATCH /api/clients/{id}
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Client ID is required")
		return
	}

	var req models.UpdateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
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

	if req.Name != nil {
		addSet("name", *req.Name)
	}
	if req.TaxID != nil {
		addSet("tax_id", *req.TaxID)
	}
	if req.ContactName != nil {
		addSet("contact_name", *req.ContactName)
	}
	if req.Email != nil {
		addSet("email", *req.Email)
	}
	if req.Phone != nil {
		addSet("phone", *req.Phone)
	}
	if req.Address != nil {
		addSet("address", *req.Address)
	}
	if req.Active != nil {
		addSet("active", *req.Active)
	}

	if len(sets) == 0 {
		JSONError(w, http.StatusBadRequest, "No fields to update")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	query := fmt.Sprintf(`
		UPDATE clients SET %s, updated_at = NOW()
		WHERE id = $%d
		RETURNING %s
	`, joinSets(sets), argIdx, clientRetCols)
	args = append(args, id)

	var client models.Client
	if err := scanClient(pool.QueryRow(ctx, query, args...), &client); err != nil {
		JSONError(w, http.StatusNotFound, "Client not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "updated", "client", client.ID, map[string]interface{}{
		"name": client.Name,
	})

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Client updated",
		"client":  client,
	})
}

// Delete handles DELETE /api/clients/{id}
// Clients with pours or measurements are deactivated instead of deleted.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Client ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var hasHistory bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM pours WHERE client_id = $1)
			OR EXISTS (SELECT 1 FROM measurements WHERE client_id = $1)
	`, id).Scan(&hasHistory)
	if err != nil {
		log.Printf("Error checking client history: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete client")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)

	if hasHistory {
		tag, err := pool.Exec(ctx, "UPDATE clients SET active = FALSE, updated_at = NOW() WHERE id = $1", id)
		if err != nil || tag.RowsAffected() == 0 {
			JSONError(w, http.StatusNotFound, "Client not found")
			return
		}
		logActivity(pool, userID, "deactivated", "client", id, nil)
		JSON(w, http.StatusOK, map[string]string{
			"message": "Client has history and was deactivated instead of deleted",
		})
		return
	}

	tag, err := pool.Exec(ctx, "DELETE FROM clients WHERE id = $1", id)
	if err != nil {
		log.Printf("Error deleting client: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete client")
		return
	}
	if tag.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "Client not found")
		return
	}

	logActivity(pool, userID, "deleted", "client", id, nil)

	JSON(w, http.StatusOK, map[string]string{
		"message": "Client deleted",
	})
}
