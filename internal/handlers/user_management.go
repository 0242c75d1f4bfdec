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

// UserManagementHandler lets admins manage accounts, roles and branch
// assignments.
type UserManagementHandler struct {
	db database.Service
}

// NewUserManagementHandler creates a new UserManagementHandler.
func NewUserManagementHandler(db database.Service) *UserManagementHandler {
	return &UserManagementHandler{db: db}
}

// List handles GET /api/users
func (h *UserManagementHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	rows, err := pool.Query(ctx, `
		SELECT u.id, u.email, u.name, u.role, u.created_at::text, u.updated_at::text,
			COALESCE(array_agg(b.branch) FILTER (WHERE b.branch IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN user_branches b ON b.user_id = u.id
		GROUP BY u.id
		ORDER BY u.name
	`)
	if err != nil {
		log.Printf("Error querying users: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}
	defer rows.Close()

	type userWithBranches struct {
		models.User
		Branches []string `json:"branches"`
	}

	users := []userWithBranches{}
	for rows.Next() {
		var u userWithBranches
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt, &u.UpdatedAt, &u.Branches); err != nil {
			log.Printf("Error scanning user: %v", err)
			continue
		}
		users = append(users, u)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
	})
}

// Update handles PATCH /api/users/{id}
// Role changes are capped at the caller's own level; branch assignments
// replace the existing set.
func (h *UserManagementHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	var req models.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if req.Role != nil {
		if !ctxkeys.ValidRoles[*req.Role] {
			JSONError(w, http.StatusUnprocessableEntity, "Invalid role")
			return
		}
		callerRole, _ := r.Context().Value(ctxkeys.UserRole).(string)
		if ctxkeys.RoleLevel[*req.Role] > ctxkeys.RoleLevel[callerRole] {
			JSONError(w, http.StatusForbidden, "Cannot grant a role above your own")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Printf("Error starting transaction: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}
	defer tx.Rollback(ctx)

	sets := []string{}
	args := []interface{}{}
	argIdx := 1

	if req.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", argIdx))
		args = append(args, *req.Name)
		argIdx++
	}
	if req.Role != nil {
		sets = append(sets, fmt.Sprintf("role = $%d", argIdx))
		args = append(args, *req.Role)
		argIdx++
	}

	if len(sets) > 0 {
		query := fmt.Sprintf("UPDATE users SET %s, updated_at = NOW() WHERE id = $%d", joinSets(sets), argIdx)
		args = append(args, id)
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			log.Printf("Error updating user: %v", err)
			JSONError(w, http.StatusInternalServerError, "Failed to update user")
			return
		}
		if tag.RowsAffected() == 0 {
			JSONError(w, http.StatusNotFound, "User not found")
			return
		}
	}

	if req.Branches != nil {
		if _, err := tx.Exec(ctx, "DELETE FROM user_branches WHERE user_id = $1", id); err != nil {
			log.Printf("Error clearing user branches: %v", err)
			JSONError(w, http.StatusInternalServerError, "Failed to update user")
			return
		}
		for _, branch := range req.Branches {
			if _, err := tx.Exec(ctx,
				"INSERT INTO user_branches (user_id, branch) VALUES ($1, $2)", id, branch); err != nil {
				log.Printf("Error assigning branch %s: %v", branch, err)
				JSONError(w, http.StatusInternalServerError, "Failed to update user")
				return
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("Error committing user update: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	callerID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, callerID, "updated", "user", id, nil)

	JSON(w, http.StatusOK, map[string]string{
		"message": "User updated",
	})
}

// Delete handles DELETE /api/users/{id}
// Users cannot delete their own account.
func (h *UserManagementHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	callerID, _ := r.Context().Value(ctxkeys.UserID).(string)
	if id == callerID {
		JSONError(w, http.StatusConflict, "You cannot delete your own account")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	tag, err := pool.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		log.Printf("Error deleting user: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}
	if tag.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "User not found")
		return
	}

	logActivity(pool, callerID, "deleted", "user", id, nil)

	JSON(w, http.StatusOK, map[string]string{
		"message": "User deleted",
	})
}
