// Package cron runs the daily digest: a background loop that summarizes
// fleet compliance and open notifications, and mails the result.
package cron

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"concretrack-backend/internal/clock"
	"concretrack-backend/internal/compliance"
	"concretrack-backend/internal/database"
	"concretrack-backend/internal/email"
	"concretrack-backend/internal/notify"
)

// StartDigest launches a background goroutine that runs once per day
// (and once immediately). Each cycle recomputes the compliance summary
// and the notification list from scratch — nothing is read from or
// written to a notifications table.
func StartDigest(db database.Service, clk clock.Clock, sender email.Sender, to string) {
	if to == "" {
		log.Println("[cron] digest recipient not configured, daily digest disabled")
		return
	}

	go func() {
		runDigest(db, clk, sender, to)

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			runDigest(db, clk, sender, to)
		}
	}()

	log.Println("[cron] daily digest started – runs every 24 h")
}

func runDigest(db database.Service, clk clock.Clock, sender email.Sender, to string) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool := db.GetPool()
	today := clk.Today()

	summary, err := fleetSummary(ctx, db, today)
	if err != nil {
		log.Printf("[cron] digest compliance summary failed: %v", err)
		return
	}

	events := notify.Aggregate(ctx, notify.NewPGSource(pool), today)

	body := buildDigestBody(today, summary, events)
	subject := fmt.Sprintf("Daily digest — %s", today.Format("2006-01-02"))

	if err := sender.Send(to, subject, body); err != nil {
		log.Printf("[cron] digest send failed: %v", err)
		return
	}
	log.Printf("[cron] digest sent: %d employees, %d notifications", summary.TotalCount, len(events))
}

// fleetSummary runs the compliance engine over every active employee.
func fleetSummary(ctx context.Context, db database.Service, today time.Time) (compliance.Summary, error) {
	pool := db.GetPool()

	rows, err := pool.Query(ctx, `
		SELECT e.id, d.doc_type, d.issue_date, d.expiry_date
		FROM employees e
		LEFT JOIN documents d ON d.employee_id = e.id
		WHERE e.status = 'active'
		ORDER BY e.id
	`)
	if err != nil {
		return compliance.Summary{}, err
	}
	defer rows.Close()

	type docRow struct {
		docType    *string
		issueDate  *time.Time
		expiryDate *time.Time
	}

	docsByEmployee := map[string][]docRow{}
	order := []string{}
	for rows.Next() {
		var empID string
		var d docRow
		if err := rows.Scan(&empID, &d.docType, &d.issueDate, &d.expiryDate); err != nil {
			return compliance.Summary{}, err
		}
		if _, seen := docsByEmployee[empID]; !seen {
			order = append(order, empID)
		}
		docsByEmployee[empID] = append(docsByEmployee[empID], d)
	}
	if err := rows.Err(); err != nil {
		return compliance.Summary{}, err
	}

	rollups := make([]compliance.Rollup, 0, len(order))
	for _, empID := range order {
		byType := map[string]docRow{}
		for _, d := range docsByEmployee[empID] {
			if d.docType != nil {
				byType[*d.docType] = d
			}
		}

		statuses := make([]compliance.Status, 0, len(compliance.RequiredDocs))
		for _, spec := range compliance.RequiredDocs {
			var rec *compliance.Record
			if d, ok := byType[spec.DocType]; ok {
				rec = &compliance.Record{
					EmployeeID: empID,
					DocType:    spec.DocType,
					IssueDate:  d.issueDate,
					ExpiryDate: d.expiryDate,
				}
			}
			statuses = append(statuses, compliance.ComputeStatus(rec, spec, today))
		}
		rollups = append(rollups, compliance.RollUp(statuses))
	}

	return compliance.Summarize(rollups), nil
}

func buildDigestBody(today time.Time, sum compliance.Summary, events []notify.Event) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Compliance summary for %s\n\n", today.Format("2006-01-02"))
	fmt.Fprintf(&b, "  Regular:   %d\n", sum.RegularCount)
	fmt.Fprintf(&b, "  At risk:   %d\n", sum.AtRiskCount)
	fmt.Fprintf(&b, "  Irregular: %d\n", sum.IrregularCount)
	fmt.Fprintf(&b, "  Total:     %d\n\n", sum.TotalCount)

	if len(events) == 0 {
		b.WriteString("No open notifications today.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Open notifications (%d):\n", len(events))
	for _, ev := range events {
		fmt.Fprintf(&b, "  [%s] %s — %s\n", ev.Category, ev.Title, ev.Description)
	}
	return b.String()
}
