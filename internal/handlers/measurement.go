package handlers

import (
	"context"
	"encoding/csv"
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

// MeasurementHandler handles monthly billing measurement HTTP requests.
type MeasurementHandler struct {
	db database.Service
}

// NewMeasurementHandler creates a new MeasurementHandler.
func NewMeasurementHandler(db database.Service) *MeasurementHandler {
	return &MeasurementHandler{db: db}
}

const measurementCols = `m.id, m.client_id, c.name, m.reference_month,
	m.amount, m.status, m.received_date::text, m.invoice_number, m.notes,
	m.created_at::text, m.updated_at::text`

func scanMeasurement(scanner interface {
	Scan(dest ...interface{}) error
}, m *models.Measurement) error {
	return scanner.Scan(
		&m.ID, &m.ClientID, &m.ClientName, &m.ReferenceMonth,
		&m.Amount, &m.Status, &m.ReceivedDate, &m.InvoiceNumber, &m.Notes,
		&m.CreatedAt, &m.UpdatedAt,
	)
}

// Create handles POST /api/measurements
// One measurement per client per reference month; duplicates conflict.
func (h *MeasurementHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateMeasurementRequest
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
		INSERT INTO measurements (client_id, reference_month, amount, status, invoice_number, notes)
		VALUES ($1, $2, $3, 'pending', $4, $5)
		RETURNING id
	`, req.ClientID, req.ReferenceMonth, req.Amount, req.InvoiceNumber, req.Notes,
	).Scan(&id)
	if err != nil {
		if isDuplicateKeyError(err) {
			JSONError(w, http.StatusConflict, "A measurement for this client and month already exists")
			return
		}
		log.Printf("Error creating measurement: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create measurement")
		return
	}

	var m models.Measurement
	err = scanMeasurement(pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM measurements m JOIN clients c ON c.id = m.client_id WHERE m.id = $1", measurementCols),
		id,
	), &m)
	if err != nil {
		log.Printf("Error fetching created measurement: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to create measurement")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "created", "measurement", m.ID, map[string]interface{}{
		"referenceMonth": m.ReferenceMonth,
		"amount":         m.Amount,
	})

	JSON(w, http.StatusCreated, map[string]interface{}{
		"message":     "Measurement created",
		"measurement": m,
	})
}

// List handles GET /api/measurements
func (h *MeasurementHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if clientID := q.Get("client_id"); clientID != "" {
		where += fmt.Sprintf(" AND m.client_id = $%d", argIdx)
		args = append(args, clientID)
		argIdx++
	}
	if month := q.Get("month"); month != "" {
		where += fmt.Sprintf(" AND m.reference_month = $%d", argIdx)
		args = append(args, month)
		argIdx++
	}
	if status := q.Get("status"); status != "" {
		where += fmt.Sprintf(" AND m.status = $%d", argIdx)
		args = append(args, status)
		argIdx++
	}

	rows, err := pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM measurements m
		JOIN clients c ON c.id = m.client_id
		%s
		ORDER BY m.reference_month DESC, c.name ASC
	`, measurementCols, where), args...)
	if err != nil {
		log.Printf("Error querying measurements: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch measurements")
		return
	}
	defer rows.Close()

	measurements := []models.Measurement{}
	for rows.Next() {
		var m models.Measurement
		if err := scanMeasurement(rows, &m); err != nil {
			log.Printf("Error scanning measurement: %v", err)
			continue
		}
		measurements = append(measurements, m)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"measurements": measurements,
	})
}

// UpdateStatus handles PATCH /api/measurements/{id}/status
// Marking received requires a received date; moving back to pending clears it.
func (h *MeasurementHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		JSONError(w, http.StatusBadRequest, "Measurement ID is required")
		return
	}

	var req models.UpdateMeasurementStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if req.Status != "pending" && req.Status != "received" {
		JSONError(w, http.StatusUnprocessableEntity, "Status must be 'pending' or 'received'")
		return
	}
	if req.Status == "received" && req.ReceivedDate == nil {
		JSONError(w, http.StatusUnprocessableEntity, "Received date is required when marking received")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var receivedDate interface{}
	if req.Status == "received" {
		receivedDate = *req.ReceivedDate
	}

	tag, err := pool.Exec(ctx, `
		UPDATE measurements
		SET status = $1, received_date = $2, updated_at = NOW()
		WHERE id = $3
	`, req.Status, receivedDate, id)
	if err != nil {
		log.Printf("Error updating measurement status: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to update measurement")
		return
	}
	if tag.RowsAffected() == 0 {
		JSONError(w, http.StatusNotFound, "Measurement not found")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "updated", "measurement", id, map[string]interface{}{
		"status": req.Status,
	})

	JSON(w, http.StatusOK, map[string]string{
		"message": "Measurement updated",
	})
}

// Generate handles POST /api/measurements/generate
// Creates one pending measurement per client with completed pours in the
// given month, amount = poured volume × unit price. Clients that already
// have a measurement for the month are skipped.
func (h *MeasurementHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Month     string  `json:"month"`
		UnitPrice float64 `json:"unitPrice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if len(req.Month) != 7 {
		JSONError(w, http.StatusUnprocessableEntity, "Month must be in YYYY-MM format")
		return
	}
	if req.UnitPrice <= 0 {
		JSONError(w, http.StatusUnprocessableEntity, "Unit price must be greater than zero")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	tag, err := pool.Exec(ctx, `
		INSERT INTO measurements (client_id, reference_month, amount, status)
		SELECT p.client_id, $1, SUM(p.volume_m3) * $2, 'pending'
		FROM pours p
		WHERE p.status = 'completed' AND to_char(p.date, 'YYYY-MM') = $1
		GROUP BY p.client_id
		ON CONFLICT (client_id, reference_month) DO NOTHING
	`, req.Month, req.UnitPrice)
	if err != nil {
		log.Printf("Error generating measurements: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to generate measurements")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "generated", "measurement", req.Month, map[string]interface{}{
		"created": tag.RowsAffected(),
	})

	JSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Measurements generated",
		"month":   req.Month,
		"created": tag.RowsAffected(),
	})
}

// BulkUpdateStatus handles PATCH /api/measurements/bulk-status
func (h *MeasurementHandler) BulkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs          []string `json:"ids"`
		Status       string   `json:"status"`
		ReceivedDate *string  `json:"receivedDate,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if len(req.IDs) == 0 {
		JSONError(w, http.StatusBadRequest, "No measurement IDs provided")
		return
	}
	if req.Status != "pending" && req.Status != "received" {
		JSONError(w, http.StatusUnprocessableEntity, "Status must be 'pending' or 'received'")
		return
	}
	if req.Status == "received" && req.ReceivedDate == nil {
		JSONError(w, http.StatusUnprocessableEntity, "Received date is required when marking received")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	var receivedDate interface{}
	if req.Status == "received" {
		receivedDate = *req.ReceivedDate
	}

	tag, err := pool.Exec(ctx, `
		UPDATE measurements
		SET status = $1, received_date = $2, updated_at = NOW()
		WHERE id = ANY($3)
	`, req.Status, receivedDate, req.IDs)
	if err != nil {
		log.Printf("Error bulk updating measurements: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to update measurements")
		return
	}

	userID, _ := r.Context().Value(ctxkeys.UserID).(string)
	logActivity(pool, userID, "bulk-updated", "measurement", req.Status, map[string]interface{}{
		"count": tag.RowsAffected(),
	})

	JSON(w, http.StatusOK, map[string]interface{}{
		"message": "Measurements updated",
		"updated": tag.RowsAffected(),
	})
}

// Summary handles GET /api/measurements/summary
// Aggregates by optional month and client filters.
func (h *MeasurementHandler) Summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	where := "WHERE 1=1"
	args := []interface{}{}
	argIdx := 1

	if month := q.Get("month"); month != "" {
		where += fmt.Sprintf(" AND reference_month = $%d", argIdx)
		args = append(args, month)
		argIdx++
	}
	if clientID := q.Get("client_id"); clientID != "" {
		where += fmt.Sprintf(" AND client_id = $%d", argIdx)
		args = append(args, clientID)
		argIdx++
	}

	var sum models.MeasurementSummary
	err := pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT
			COALESCE(SUM(amount), 0),
			COALESCE(SUM(amount) FILTER (WHERE status = 'pending'), 0),
			COALESCE(SUM(amount) FILTER (WHERE status = 'received'), 0),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'received')
		FROM measurements %s
	`, where), args...).Scan(
		&sum.TotalAmount, &sum.PendingAmount, &sum.ReceivedAmount,
		&sum.PendingCount, &sum.ReceivedCount,
	)
	if err != nil {
		log.Printf("Error computing measurement summary: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to compute summary")
		return
	}

	JSON(w, http.StatusOK, sum)
}

// ExportCSV handles GET /api/measurements/export
func (h *MeasurementHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	pool := h.db.GetPool()

	rows, err := pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM measurements m
		JOIN clients c ON c.id = m.client_id
		ORDER BY m.reference_month DESC, c.name ASC
	`, measurementCols))
	if err != nil {
		log.Printf("Error querying measurements for export: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to export measurements")
		return
	}
	defer rows.Close()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="measurements.csv"`)

	cw := csv.NewWriter(w)
	defer cw.Flush()

	cw.Write([]string{"Client", "Reference Month", "Amount", "Status", "Received Date", "Invoice"})
	for rows.Next() {
		var m models.Measurement
		if err := scanMeasurement(rows, &m); err != nil {
			continue
		}
		cw.Write([]string{
			m.ClientName, m.ReferenceMonth,
			fmt.Sprintf("%.2f", m.Amount), m.Status,
			derefOr(m.ReceivedDate, ""), derefOr(m.InvoiceNumber, ""),
		})
	}
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
