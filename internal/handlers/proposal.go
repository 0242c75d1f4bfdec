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

// ProposalHandler handles commercial proposal HTTP requests.
type ProposalHandler struct {
	db database.Service
}

// NewProposalHandler creates a new ProposalHandler.
func NewProposalHandler(db database.Service) *ProposalHandler {
	return &ProposalHandler{db: db}
}

const proposalCols = `p.id, p.client_id, c.name, p.title, p.amount, p.status,
	p.description, p.sent_at::text, p.decided_at::text,
	p.created_at::text, p.updated_at::text`

func scanProposal(scanner interface {
	Scan(dest ...interface{}) error
}, p *models.Proposal) error {
	return scanner.Scan(
		&p.ID, &p.ClientID, &p.ClientName, &p.Title, &p.Amount, &p.Status,
		&p.Description, &p.SentAt, &p.DecidedAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
}

// proposalTransitions defines the allowed status moves. Proposals only
// move forward: draft → sent → accepted/rejected.
var proposalTransitions = map[string]map[string]bool{
	"draft": {"sent": true},
	"sent":  {"accepted": true, "rejected": true},
}

// Create handles POST /api/proposals
func (h *ProposalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateProposalRequest
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
		INSERT INTO proposals (client_id, title, amount, status, description)
		VALUES ($1, $2, $3, 'draft', $4)
		RETURNING id
	`, req.ClientID, req.Title, req.Amount, req.Description,
	).Scan(&id)
	if err != nil {
		log.Printf("Error creating proposal: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create proposal")
		return
	}

	var p models.Proposal
	err = scanProposal(pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM proposals p JOIN clients c ON c.id = p.client_id WHERE p.id = $1", proposalCols),
		id,
	), &p)
	if err != nil {
		log.Printf("Error fetching created proposal: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create proposal")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "created", "proposal", p.ID, map[string]interface{}{
		"title": p.Title,
	})

	JSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Proposal created",
		"proposal": p,
	})
}

// List handles GET /api/proposals
func (h *ProposalHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

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

	rows, err := pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM proposals p
		JOIN clients c ON c.id = p.client_id
		%s
		ORDER BY p.created_at DESC
	`, proposalCols, where), args...)
	if err != nil {
		log.Printf("Error querying proposals: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch proposals")
		return
	}
	defer rows.Close()

	proposals := []models.Proposal{}
	for rows.Next() {
		var p models.Proposal
		if err := scanProposal(rows, &p); err != nil {
			log.Printf("Error scanning proposal: %v", err)
			continue
		}
		proposals = append(proposals, p)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"proposals": proposals,
	})
}

// UpdateStatus handles PATCH /api/proposals/{id}/status
func (h *ProposalHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Proposal ID is required")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var current string
	if err := pool.QueryRow(ctx, "SELECT status FROM proposals WHERE id = $1", id).Scan(&current); err != nil {
		JSONError(w, http.StatusNotFound, "Proposal not found")
		return
	}

	if !proposalTransitions[current][req.Status] {
		JSONError(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("Cannot move proposal from '%s' to '%s'", current, req.Status))
		return
	}

	set := "status = $1, updated_at = NOW()"
	switch req.Status {
	case "sent":
		set += ", sent_at = NOW()"
	case "accepted", "rejected":
		set += ", decided_at = NOW()"
	}

	if _, err := pool.Exec(ctx, fmt.Sprintf("UPDATE proposals SET %s WHERE id = $2", set), req.Status, id); err != nil {
		log.Printf("Error updating proposal status: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to update proposal")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "updated", "proposal", id, map[string]interface{}{
		"status": req.Status,
	})

	JSON(w, http.StatusOK, map[string]string{
		"message": "Proposal updated",
	})
}

// Delete handles DELETE /api/proposals/{id}
// Only drafts can be deleted.
func (h *ProposalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Proposal ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	tag, err := pool.Exec(ctx, "DELETE FROM proposals WHERE id = $1 AND status = 'draft'", id)
	if err != nil {
		log.Printf("Error deleting proposal: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete proposal")
		return
	}
	if tag.RowsAffected() == 0 {
		JSONError(w, http.StatusConflict, "Only draft proposals can be deleted")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "deleted", "proposal", id, nil)

	JSON(w, http.StatusOK, map[string]string{
		"message": "Proposal deleted",
	})
}
