package handlers

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"concretrack-backend/internal/clock"
	"concretrack-backend/internal/compliance"
	"concretrack-backend/internal/ctxkeys"
	"concretrack-backend/internal/database"
	"concretrack-backend/internal/models"
)

// EmployeeHandler handles employee-related HTTP requests.
type EmployeeHandler struct {
	db  database.Service
	clk clock.Clock
}

// NewEmployeeHandler creates a new EmployeeHandler.
func NewEmployeeHandler(db database.Service, clk clock.Clock) *EmployeeHandler {
	return &EmployeeHandler{db: db, clk: clk}
}

// ── Columns ────────────────────────────────────────────────────
// Central column lists keep Create/GetByID/List all in sync.
// Aliased version (for SELECT with FROM clause):
const employeeCols = `e.id, e.name, e.branch, e.role, e.mobile,
	e.admission_date::text, e.birth_date::text, e.photo_url, e.status,
	e.exit_date::text, e.exit_notes,
	e.created_at, e.updated_at`

// Unaliased version (for INSERT/UPDATE RETURNING):
const employeeRetCols = `id, name, branch, role, mobile,
	admission_date::text, birth_date::text, photo_url, status,
	exit_date::text, exit_notes,
	created_at, updated_at`

// ── Scan Helpers ───────────────────────────────────────────────

func scanEmployee(scanner interface {
	Scan(dest ...interface{}) error
}, emp *models.Employee) error {
	return scanner.Scan(
		&emp.ID, &emp.Name, &emp.Branch, &emp.Role, &emp.Mobile,
		&emp.AdmissionDate, &emp.BirthDate, &emp.PhotoURL, &emp.Status,
		&emp.ExitDate, &emp.ExitNotes,
		&emp.CreatedAt, &emp.UpdatedAt,
	)
}

// ── Create ─────────────────────────────────────────────────────

// Create handles POST /api/employees
// After inserting the employee, it auto-creates one empty document slot
// per required document type so compliance posture is immediately visible.
func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateEmployeeRequest
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

	// Default status to "active" if not provided
	if req.Status == "" {
		req.Status = "active"
	}

	if !checkBranchAccess(r.Context(), req.Branch) {
		JSONError(w, http.StatusForbidden, "Access denied to this branch")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	// Use a transaction: insert employee + required doc slots
	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Printf("Error starting transaction: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create employee")
		return
	}
	defer tx.Rollback(ctx)

	var employee models.Employee
	err = scanEmployee(tx.QueryRow(ctx, `
		INSERT INTO employees (name, branch, role, mobile, admission_date, birth_date, photo_url, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+employeeRetCols,
		req.Name, req.Branch, req.Role, req.Mobile, req.AdmissionDate,
		req.BirthDate, nilIfEmpty(req.PhotoURL), req.Status,
	), &employee)
	if err != nil {
		log.Printf("Error creating employee: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create employee")
		return
	}

	// Seed one empty slot per required document type. Slots start with
	// null dates, which the engine reports as "missing".
	for _, spec := range compliance.RequiredDocs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO documents (employee_id, doc_type)
			VALUES ($1, $2)
			ON CONFLICT (employee_id, doc_type) DO NOTHING
		`, employee.ID, spec.DocType); err != nil {
			log.Printf("Error seeding document slot %s: %v", spec.DocType, err)
			JSONError(w, http.StatusInternalServerError, "Failed to create employee")
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Printf("Error committing employee create: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create employee")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "created", "employee", employee.ID, map[string]interface{}{
		"name":   employee.Name,
		"branch": employee.Branch,
	})

	JSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Employee created",
		"employee": employee,
	})
}

// ── List ───────────────────────────────────────────────────────

// List handles GET /api/employees
// Employees and their document rows are fetched plain; per-document
// statuses and the compliance roll-up are computed here, then branch,
// name and roll-up filters are applied in memory before paginating.
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	branch := q.Get("branch")
	search := q.Get("search")
	rollup := q.Get("compliance") // regular | at_risk | irregular | all
	empStatus := q.Get("emp_status")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	// Branch scope and employee status narrow the SQL fetch; compliance
	// filters are applied after status computation.
	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	where, args, argIdx = appendBranchScope(ctx, where, args, argIdx, "e.branch")

	if empStatus != "" {
		where += fmt.Sprintf(" AND e.status = $%d", argIdx)
		args = append(args, empStatus)
		argIdx++
	}

	query := fmt.Sprintf(`SELECT %s FROM employees e %s ORDER BY e.name ASC`, employeeCols, where)

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		log.Printf("Error querying employees: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch employees")
		return
	}
	defer rows.Close()

	employees := []models.Employee{}
	for rows.Next() {
		var emp models.Employee
		if err := scanEmployee(rows, &emp); err != nil {
			log.Printf("Error scanning employee: %v", err)
			continue
		}
		employees = append(employees, emp)
	}
	rows.Close()

	docsByEmployee, err := h.fetchDocuments(ctx, employeeIDs(employees))
	if err != nil {
		log.Printf("Error querying documents: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch employees")
		return
	}

	today := h.clk.Today()

	computed := make([]compliance.EmployeeCompliance, 0, len(employees))
	byID := make(map[string]models.Employee, len(employees))
	for _, emp := range employees {
		byID[emp.ID] = emp
		computed = append(computed, computeEmployeeCompliance(emp, docsByEmployee[emp.ID], today))
	}

	filtered := compliance.Filter(computed, branch, search, rollup)

	total := len(filtered)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	result := []models.EmployeeWithCompliance{}
	for _, ec := range filtered[start:end] {
		statuses := make(map[string]string, len(ec.Statuses))
		for docType, st := range ec.Statuses {
			statuses[docType] = string(st)
		}
		result = append(result, models.EmployeeWithCompliance{
			Employee:         byID[ec.EmployeeID],
			ComplianceStatus: string(ec.Rollup),
			DocumentStatuses: statuses,
		})
	}

	JSON(w, http.StatusOK, PaginatedResponse{
		Data: result,
		Pagination: PaginationMeta{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
	})
}

// ── GetByID ────────────────────────────────────────────────────

// GetByID handles GET /api/employees/{id}
// Returns employee profile + all documents with computed compliance.
func (h *EmployeeHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Employee ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var employee models.Employee
	err := scanEmployee(pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM employees e WHERE e.id = $1", employeeCols), id,
	), &employee)
	if err != nil {
		JSONError(w, http.StatusNotFound, "Employee not found")
		return
	}

	if !checkBranchAccess(ctx, employee.Branch) {
		JSONError(w, http.StatusForbidden, "Access denied to this employee")
		return
	}

	docsByEmployee, err := h.fetchDocuments(ctx, []string{id})
	if err != nil {
		log.Printf("Error querying documents: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch employee")
		return
	}

	today := h.clk.Today()
	docs := docsByEmployee[id]

	withStatus := make([]models.DocumentWithStatus, 0, len(docs))
	statuses := make([]compliance.Status, 0, len(docs))
	for _, doc := range docs {
		ds := documentWithStatus(doc, today)
		withStatus = append(withStatus, ds)
		statuses = append(statuses, compliance.Status(ds.Status))
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"employee":         employee,
		"documents":        withStatus,
		"complianceStatus": string(compliance.RollUp(statuses)),
	})
}

// ── Update ─────────────────────────────────────────────────────

// Update handles PATCH /api/employees/{id}
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Employee ID is required")
		return
	}

	if !checkEmployeeAccess(r.Context(), h.db.GetPool(), id) {
		JSONError(w, http.StatusForbidden, "Access denied to this employee")
		return
	}

	var req models.UpdateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	// Build dynamic SET clause from provided fields
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
	if req.Branch != nil {
		if !checkBranchAccess(r.Context(), *req.Branch) {
			JSONError(w, http.StatusForbidden, "Access denied to the target branch")
			return
		}
		addSet("branch", *req.Branch)
	}
	if req.Role != nil {
		addSet("role", *req.Role)
	}
	if req.Mobile != nil {
		addSet("mobile", *req.Mobile)
	}
	if req.AdmissionDate != nil {
		addSet("admission_date", *req.AdmissionDate)
	}
	if req.BirthDate != nil {
		addSet("birth_date", *req.BirthDate)
	}
	if req.PhotoURL != nil {
		addSet("photo_url", *req.PhotoURL)
	}
	if req.Status != nil {
		addSet("status", *req.Status)
	}

	if len(sets) == 0 {
		JSONError(w, http.StatusBadRequest, "No fields to update")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	query := fmt.Sprintf(`
		UPDATE employees SET %s, updated_at = NOW()
		WHERE id = $%d
		RETURNING %s
	`, joinSets(sets), argIdx, employeeRetCols)
	args = append(args, id)

	var employee models.Employee
	if err := scanEmployee(pool.QueryRow(ctx, query, args...), &employee); err != nil {
		JSONError(w, http.StatusNotFound, "Employee not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "updated", "employee", employee.ID, map[string]interface{}{
		"name": employee.Name,
	})

	JSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Employee updated",
		"employee": employee,
	})
}

// ── Exit ───────────────────────────────────────────────────────

// Exit handles POST /api/employees/{id}/exit
// Marks the employee terminated with an exit date; documents are kept.
func (h *EmployeeHandler) Exit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Employee ID is required")
		return
	}

	if !checkEmployeeAccess(r.Context(), h.db.GetPool(), id) {
		JSONError(w, http.StatusForbidden, "Access denied to this employee")
		return
	}

	var req models.ExitEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.ExitDate == "" {
		JSONError(w, http.StatusUnprocessableEntity, "Exit date is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var employee models.Employee
	err := scanEmployee(pool.QueryRow(ctx, `
		UPDATE employees
		SET status = 'terminated', exit_date = $1, exit_notes = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING `+employeeRetCols,
		req.ExitDate, req.ExitNotes, id,
	), &employee)
	if err != nil {
		JSONError(w, http.StatusNotFound, "Employee not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "exited", "employee", employee.ID, map[string]interface{}{
		"exitDate": req.ExitDate,
	})

	JSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Employee exit recorded",
		"employee": employee,
	})
}

// ── Delete ─────────────────────────────────────────────────────

// Delete handles DELETE /api/employees/{id}
func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Employee ID is required")
		return
	}

	if !checkEmployeeAccess(r.Context(), h.db.GetPool(), id) {
		JSONError(w, http.StatusForbidden, "Access denied to this employee")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	tag, err := pool.Exec(ctx, "DELETE FROM employees WHERE id = $1", id)
	if err != nil {
		log.Printf("Error deleting employee: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete employee")
		return
	}
	if tag.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "Employee not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "deleted", "employee", id, nil)

	JSON(w, http.StatusOK, map[string]string{
		"message": "Employee deleted",
	})
}

// BatchDelete handles POST /api/employees/batch-delete
func (h *EmployeeHandler) BatchDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if len(req.IDs) == 0 {
		JSONError(w, http.StatusBadRequest, "No employee IDs provided")
		return
	}

	pool := h.db.GetPool()
	for _, id := range req.IDs {
		if !checkEmployeeAccess(r.Context(), pool, id) {
			JSONError(w, http.StatusForbidden, "Access denied to one or more employees")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	tag, err := pool.Exec(ctx, "DELETE FROM employees WHERE id = ANY($1)", req.IDs)
	if err != nil {
		log.Printf("Error batch deleting employees: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to delete employees")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	for _, id := range req.IDs {
		logActivity(pool, userID, "deleted", "employee", id, nil)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Employees deleted",
		"deleted": tag.RowsAffected(),
	})
}

// ── CSV Export ─────────────────────────────────────────────────

// ExportCSV handles GET /api/employees/export
// Streams the full (scope-filtered) employee list with computed roll-ups.
func (h *EmployeeHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1
	where, args, _ = appendBranchScope(ctx, where, args, argIdx, "e.branch")

	rows, err := pool.Query(ctx,
		fmt.Sprintf("SELECT %s FROM employees e %s ORDER BY e.branch, e.name", employeeCols, where),
		args...)
	if err != nil {
		log.Printf("Error querying employees for export: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to export employees")
		return
	}
	defer rows.Close()

	employees := []models.Employee{}
	for rows.Next() {
		var emp models.Employee
		if err := scanEmployee(rows, &emp); err != nil {
			continue
		}
		employees = append(employees, emp)
	}
	rows.Close()

	docsByEmployee, err := h.fetchDocuments(ctx, employeeIDs(employees))
	if err != nil {
		log.Printf("Error querying documents for export: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to export employees")
		return
	}

	today := h.clk.Today()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="employees_%s.csv"`, today.Format("2006-01-02")))

	cw := csv.NewWriter(w)
	defer cw.Flush()

	cw.Write([]string{"Name", "Branch", "Role", "Mobile", "Admission Date", "Status", "Compliance"})
	for _, emp := range employees {
		ec := computeEmployeeCompliance(emp, docsByEmployee[emp.ID], today)
		cw.Write([]string{
			emp.Name, emp.Branch, emp.Role, emp.Mobile,
			emp.AdmissionDate, emp.Status, string(ec.Rollup),
		})
	}
}

// ── Shared Helpers ─────────────────────────────────────────────

// fetchDocuments loads document rows for the given employees, keyed by
// employee ID. A nil or empty ID list returns an empty map.
func (h *EmployeeHandler) fetchDocuments(ctx context.Context, ids []string) (map[string][]models.DocumentRecord, error) {
	out := make(map[string][]models.DocumentRecord)
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := h.db.GetPool().Query(ctx, `
		SELECT `+documentCols+`
		FROM documents d
		WHERE d.employee_id = ANY($1)
		ORDER BY d.doc_type
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var doc models.DocumentRecord
		if err := scanDocument(rows, &doc); err != nil {
			log.Printf("Error scanning document: %v", err)
			continue
		}
		out[doc.EmployeeID] = append(out[doc.EmployeeID], doc)
	}
	return out, rows.Err()
}

func employeeIDs(employees []models.Employee) []string {
	ids := make([]string, 0, len(employees))
	for _, emp := range employees {
		ids = append(ids, emp.ID)
	}
	return ids
}

// computeEmployeeCompliance runs the engine over one employee's document
// rows. Required types with no row at all still count as missing.
func computeEmployeeCompliance(emp models.Employee, docs []models.DocumentRecord, today time.Time) compliance.EmployeeCompliance {
	byType := make(map[string]models.DocumentRecord, len(docs))
	for _, doc := range docs {
		byType[doc.DocType] = doc
	}

	statuses := make(map[string]compliance.Status, len(compliance.RequiredDocs))
	flat := make([]compliance.Status, 0, len(compliance.RequiredDocs))
	for _, spec := range compliance.RequiredDocs {
		var rec *compliance.Record
		if doc, ok := byType[spec.DocType]; ok {
			rec = toComplianceRecord(doc)
		}
		st := compliance.ComputeStatus(rec, spec, today)
		statuses[spec.DocType] = st
		flat = append(flat, st)
	}

	return compliance.EmployeeCompliance{
		EmployeeID: emp.ID,
		Name:       emp.Name,
		Branch:     emp.Branch,
		Rollup:     compliance.RollUp(flat),
		Statuses:   statuses,
	}
}

// toComplianceRecord converts a stored row into the engine's input shape.
func toComplianceRecord(doc models.DocumentRecord) *compliance.Record {
	return &compliance.Record{
		EmployeeID: doc.EmployeeID,
		DocType:    doc.DocType,
		IssueDate:  parseDate(doc.IssueDate),
		ExpiryDate: parseDate(doc.ExpiryDate),
	}
}

func parseDate(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil
	}
	return &t
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func joinSets(sets []string) string {
	out := ""
	for i, s := range sets {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
