package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strconv"
	"time"

	"concretrack-backend/internal/clock"
	"concretrack-backend/internal/compliance"
	"concretrack-backend/internal/database"
	"concretrack-backend/internal/models"
)

// DashboardHandler serves aggregated metrics for the main dashboard.
type DashboardHandler struct {
	db  database.Service
	clk clock.Clock
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(db database.Service, clk clock.Clock) *DashboardHandler {
	return &DashboardHandler{db: db, clk: clk}
}

// Metrics handles GET /api/dashboard/metrics
// Row counts come from SQL; compliance counts come from running the
// engine over the full document set.
func (h *DashboardHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	pool := h.db.GetPool()
	today := h.clk.Today()

	var m models.DashboardMetrics

	err := pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM employees),
			(SELECT COUNT(*) FROM employees WHERE status = 'active'),
			(SELECT COUNT(*) FROM pours WHERE status = 'scheduled' AND date = $1),
			(SELECT COUNT(*) FROM pours WHERE status = 'scheduled' AND date >= $1 AND date < $2),
			(SELECT COALESCE(SUM(amount), 0) FROM measurements WHERE status = 'pending'),
			(SELECT COUNT(*) FROM nonconformances WHERE resolved = FALSE),
			(SELECT COUNT(*) FROM stock_items WHERE quantity <= minimum_qty)
	`, today.Format("2006-01-02"), today.AddDate(0, 0, 7).Format("2006-01-02"),
	).Scan(
		&m.TotalEmployees, &m.ActiveEmployees,
		&m.PoursToday, &m.PoursThisWeek,
		&m.PendingAmount, &m.OpenNCCount, &m.LowStockCount,
	)
	if err != nil {
		log.Printf("Error querying dashboard metrics: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch metrics")
		return
	}

	rollups, err := h.activeRollups(ctx)
	if err != nil {
		log.Printf("Error computing compliance roll-ups: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch metrics")
		return
	}

	sum := compliance.Summarize(rollupValues(rollups))
	m.RegularCount = sum.RegularCount
	m.AtRiskCount = sum.AtRiskCount
	m.IrregularCount = sum.IrregularCount

	JSON(w, http.StatusOK, m)
}

// ComplianceOverview handles GET /api/dashboard/compliance
// Fleet-wide summary plus a per-branch breakdown.
func (h *DashboardHandler) ComplianceOverview(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	rollups, err := h.activeRollups(ctx)
	if err != nil {
		log.Printf("Error computing compliance roll-ups: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch compliance overview")
		return
	}

	byBranch := map[string]*models.BranchCompliance{}
	branchOrder := []string{}
	for _, ec := range rollups {
		bc, ok := byBranch[ec.Branch]
		if !ok {
			bc = &models.BranchCompliance{Branch: ec.Branch}
			byBranch[ec.Branch] = bc
			branchOrder = append(branchOrder, ec.Branch)
		}
		bc.TotalCount++
		switch ec.Rollup {
		case compliance.RollupAtRisk:
			bc.AtRiskCount++
		case compliance.RollupIrregular:
			bc.IrregularCount++
		default:
			bc.RegularCount++
		}
	}
	sort.Strings(branchOrder)

	branches := make([]models.BranchCompliance, 0, len(branchOrder))
	for _, name := range branchOrder {
		branches = append(branches, *byBranch[name])
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"summary":  compliance.Summarize(rollupValues(rollups)),
		"branches": branches,
	})
}

// ExpiryAlerts handles GET /api/dashboard/expiry-alerts
// Lists documents expiring within the alert window or already expired,
// soonest first. The optional days parameter widens the lookahead.
func (h *DashboardHandler) ExpiryAlerts(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	if days < compliance.AlertWindowDays {
		days = compliance.AlertWindowDays
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	pool := h.db.GetPool()
	today := h.clk.Today()

	where := "WHERE e.status = 'active' AND d.expiry_date IS NOT NULL"
	args := []interface{}{}
	where, args, _ = appendBranchScope(ctx, where, args, 1, "e.branch")

	rows, err := pool.Query(ctx, fmt.Sprintf(`
		SELECT e.id, e.name, e.branch, d.doc_type, d.expiry_date::text
		FROM documents d
		JOIN employees e ON e.id = d.employee_id
		%s
		ORDER BY d.expiry_date ASC
	`, where), args...)
	if err != nil {
		log.Printf("Error querying expiry alerts: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch expiry alerts")
		return
	}
	defer rows.Close()

	alerts := []models.ExpiryAlert{}
	for rows.Next() {
		var a models.ExpiryAlert
		if err := rows.Scan(&a.EmployeeID, &a.EmployeeName, &a.Branch, &a.DocType, &a.ExpiryDate); err != nil {
			log.Printf("Error scanning expiry alert: %v", err)
			continue
		}

		expiry, err := time.Parse("2006-01-02", a.ExpiryDate)
		if err != nil {
			continue
		}
		a.DaysRemaining = compliance.DaysRemaining(expiry, today)
		if a.DaysRemaining > days {
			continue
		}
		if a.DaysRemaining < 0 {
			a.Status = string(compliance.StatusExpired)
		} else {
			a.Status = string(compliance.StatusExpiring)
		}
		a.DisplayName = compliance.DisplayName(a.DocType)
		alerts = append(alerts, a)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
	})
}

// UpcomingPours handles GET /api/dashboard/upcoming-pours
func (h *DashboardHandler) UpcomingPours(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	pool := h.db.GetPool()
	today := h.clk.Today()

	rows, err := pool.Query(ctx, `
		SELECT p.id, c.name, p.site, p.date::text, p.volume_m3, p.mix_design
		FROM pours p
		JOIN clients c ON c.id = p.client_id
		WHERE p.status = 'scheduled' AND p.date >= $1 AND p.date < $2
		ORDER BY p.date ASC, c.name ASC
	`, today.Format("2006-01-02"), today.AddDate(0, 0, 7).Format("2006-01-02"))
	if err != nil {
		log.Printf("Error querying upcoming pours: %v", err)
		JSONError(w, http.StatusInternalServerError, "Failed to fetch upcoming pours")
		return
	}
	defer rows.Close()

	pours := []models.UpcomingPour{}
	for rows.Next() {
		var p models.UpcomingPour
		if err := rows.Scan(&p.ID, &p.ClientName, &p.Site, &p.Date, &p.VolumeM3, &p.MixDesign); err != nil {
			log.Printf("Error scanning upcoming pour: %v", err)
			continue
		}
		pours = append(pours, p)
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"pours": pours,
	})
}

// ── Helpers ────────────────────────────────────────────────────

// activeRollups loads active employees and their documents (scope
// filtered), then runs the compliance engine over each.
func (h *DashboardHandler) activeRollups(ctx context.Context) ([]compliance.EmployeeCompliance, error) {
	pool := h.db.GetPool()

	where := "WHERE e.status = 'active'"
	args := []interface{}{}
	where, args, _ = appendBranchScope(ctx, where, args, 1, "e.branch")

	rows, err := pool.Query(ctx, fmt.Sprintf(
		"SELECT %s FROM employees e %s ORDER BY e.name", employeeCols, where), args...)
	if err != nil {
		return nil, err
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

	docRows, err := pool.Query(ctx, `
		SELECT `+documentCols+`
		FROM documents d
		WHERE d.employee_id = ANY($1)
	`, employeeIDs(employees))
	if err != nil {
		return nil, err
	}
	defer docRows.Close()

	docsByEmployee := map[string][]models.DocumentRecord{}
	for docRows.Next() {
		var doc models.DocumentRecord
		if err := scanDocument(docRows, &doc); err != nil {
			continue
		}
		docsByEmployee[doc.EmployeeID] = append(docsByEmployee[doc.EmployeeID], doc)
	}

	today := h.clk.Today()
	out := make([]compliance.EmployeeCompliance, 0, len(employees))
	for _, emp := range employees {
		out = append(out, computeEmployeeCompliance(emp, docsByEmployee[emp.ID], today))
	}
	return out, nil
}

func rollupValues(ecs []compliance.EmployeeCompliance) []compliance.Rollup {
	out := make([]compliance.Rollup, 0, len(ecs))
	for _, ec := range ecs {
		out = append(out, ec.Rollup)
	}
	return out
}
