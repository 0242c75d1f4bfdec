package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"concretrack-backend/internal/clock"
	"concretrack-backend/internal/compliance"
	"concretrack-backend/internal/ctxkeys"
	"concretrack-backend/internal/database"
	"concretrack-backend/internal/models"
)

// DocumentHandler handles employee document HTTP requests.
type DocumentHandler struct {
	db  database.Service
	clk clock.Clock
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(db database.Service, clk clock.Clock) *DocumentHandler {
	return &DocumentHandler{db: db, clk: clk}
}

const documentCols = `d.id, d.employee_id, d.doc_type,
	d.issue_date::text, d.expiry_date::text,
	COALESCE(d.file_url, ''), COALESCE(d.file_name, ''),
	d.updated_at::text, d.created_at::text`

const documentRetCols = `id, employee_id, doc_type,
	issue_date::text, expiry_date::text,
	COALESCE(file_url, ''), COALESCE(file_name, ''),
	updated_at::text, created_at::text`

func scanDocument(scanner interface {
	Scan(dest ...interface{}) error
}, doc *models.DocumentRecord) error {
	return scanner.Scan(
		&doc.ID, &doc.EmployeeID, &doc.DocType,
		&doc.IssueDate, &doc.ExpiryDate,
		&doc.FileURL, &doc.FileName,
		&doc.UpdatedAt, &doc.CreatedAt,
	)
}

// documentWithStatus pairs a stored row with its engine-computed fields.
func documentWithStatus(doc models.DocumentRecord, today time.Time) models.DocumentWithStatus {
	spec, _ := compliance.TypeByDocType(doc.DocType)
	rec := toComplianceRecord(doc)
	status := compliance.ComputeStatus(rec, spec, today)

	out := models.DocumentWithStatus{
		DocumentRecord: doc,
		Status:         string(status),
		DisplayName:    spec.DisplayName,
		HasExpiry:      spec.HasExpiry,
	}
	if rec.ExpiryDate != nil {
		days := compliance.DaysRemaining(*rec.ExpiryDate, today)
		out.DaysRemaining = &days
	}
	return out
}

// ── List ───────────────────────────────────────────────────────

// ListByEmployee handles GET /api/employees/{id}/documents
func (h *DocumentHandler) ListByEmployee(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")
	if employeeID == "" {
		JSONError(w, http.StatusBadRequest, "Employee ID is required")
		return
	}

	if !checkEmployeeAccess(r.Context(), h.db.GetPool(), employeeID) {
		JSONError(w, http.StatusForbidden, "Access denied to this employee")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	rows, err := pool.Query(ctx, `
		SELECT `+documentCols+`
		FROM documents d
		WHERE d.employee_id = $1
		ORDER BY d.doc_type
	`, employeeID)
	if err != nil {
		log.Printf("Error querying documents: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch documents")
		return
	}
	defer rows.Close()

	today := h.clk.Today()

	documents := []models.DocumentWithStatus{}
	for rows.Next() {
		var doc models.DocumentRecord
		if err := scanDocument(rows, &doc); err != nil {
			log.Printf("Error scanning document: %v", err)
			continue
		}
		documents = append(documents, documentWithStatus(doc, today))
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"documents": documents,
	})
}

// ── Create ─────────────────────────────────────────────────────

// Create handles POST /api/employees/{id}/documents
// Attaches an ad-hoc document beyond the seeded required slots. Types in
// the catalog get their expiry derived; unknown types never expire.
func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "id")
	if employeeID == "" {
		JSONError(w, http.StatusBadRequest, "Employee ID is required")
		return
	}

	pool := h.db.GetPool()
	if !checkEmployeeAccess(r.Context(), pool, employeeID) {
		JSONError(w, http.StatusForbidden, "Access denied to this employee")
		return
	}

	var req struct {
		DocType   string  `json:"docType"`
		IssueDate *string `json:"issueDate,omitempty"`
		FileURL   *string `json:"fileUrl,omitempty"`
		FileName  *string `json:"fileName,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.DocType == "" {
		JSONError(w, http.StatusUnprocessableEntity, "Document type is required")
		return
	}

	var expiryDate interface{}
	if req.IssueDate != nil {
		issue, err := time.Parse("2006-01-02", *req.IssueDate)
		if err != nil {
			JSONError(w, http.StatusUnprocessableEntity, "Issue date must be in YYYY-MM-DD format")
			return
		}
		if spec, ok := compliance.TypeByDocType(req.DocType); ok && spec.HasExpiry {
			expiryDate = compliance.DeriveExpiry(issue, spec.ValidityYears).Format("2006-01-02")
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var doc models.DocumentRecord
	err := scanDocument(pool.QueryRow(ctx, `
		INSERT INTO documents (employee_id, doc_type, issue_date, expiry_date, file_url, file_name)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+documentRetCols,
		employeeID, req.DocType, req.IssueDate, expiryDate, req.FileURL, req.FileName,
	), &doc)
	if err != nil {
		if isDuplicateKeyError(err) {
			JSONError(w, http.StatusConflict, "A document of this type already exists for the employee")
			return
		}
		log.Printf("Error creating document: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create document")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "created", "document", doc.ID, map[string]interface{}{
		"docType":    doc.DocType,
		"employeeId": employeeID,
	})

	JSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Document created",
		"document": documentWithStatus(doc, h.clk.Today()),
	})
}

// ── Update ─────────────────────────────────────────────────────

// Update handles PATCH /api/documents/{id}
// Setting an issue date derives the expiry date from the catalog validity;
// expiry is never accepted from the client.
func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	pool := h.db.GetPool()
	if !checkDocumentAccess(r.Context(), pool, id) {
		JSONError(w, http.StatusForbidden, "Access denied to this document")
		return
	}

	var req models.UpdateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var docType string
	if err := pool.QueryRow(ctx, "SELECT doc_type FROM documents WHERE id = $1", id).Scan(&docType); err != nil {
		JSONError(w, http.StatusNotFound, "Document not found")
		return
	}
	spec, ok := compliance.TypeByDocType(docType)
	if !ok {
		JSONError(w, http.StatusInternalServerError, "Unknown document type")
		return
	}

	var issueDate, expiryDate interface{}
	if req.IssueDate != nil {
		issue, err := time.Parse("2006-01-02", *req.IssueDate)
		if err != nil {
			JSONError(w, http.StatusUnprocessableEntity, "Issue date must be in YYYY-MM-DD format")
			return
		}
		issueDate = *req.IssueDate
		if spec.HasExpiry {
			expiryDate = compliance.DeriveExpiry(issue, spec.ValidityYears).Format("2006-01-02")
		}
	}

	var doc models.DocumentRecord
	err := scanDocument(pool.QueryRow(ctx, `
		UPDATE documents
		SET issue_date = COALESCE($1, issue_date),
			expiry_date = COALESCE($2, expiry_date),
			file_url = COALESCE($3, file_url),
			file_name = COALESCE($4, file_name),
			updated_at = NOW()
		WHERE id = $5
		RETURNING `+documentRetCols,
		issueDate, expiryDate, req.FileURL, req.FileName, id,
	), &doc)
	if err != nil {
		log.Printf("Error updating document: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to update document")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "updated", "document", doc.ID, map[string]interface{}{
		"docType": doc.DocType,
	})

	JSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Document updated",
		"document": documentWithStatus(doc, h.clk.Today()),
	})
}

// ── Clear ──────────────────────────────────────────────────────

// Clear handles POST /api/documents/{id}/clear
// Documents are never hard-deleted: clearing nulls the dates and file so
// the slot reads as "missing" again.
func (h *DocumentHandler) Clear(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	pool := h.db.GetPool()
	if !checkDocumentAccess(r.Context(), pool, id) {
		JSONError(w, http.StatusForbidden, "Access denied to this document")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var doc models.DocumentRecord
	err := scanDocument(pool.QueryRow(ctx, `
		UPDATE documents
		SET issue_date = NULL, expiry_date = NULL,
			file_url = NULL, file_name = NULL,
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+documentRetCols, id,
	), &doc)
	if err != nil {
		JSONError(w, http.StatusNotFound, "Document not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "cleared", "document", doc.ID, map[string]interface{}{
		"docType": doc.DocType,
	})

	JSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Document cleared",
		"document": documentWithStatus(doc, h.clk.Today()),
	})
}
