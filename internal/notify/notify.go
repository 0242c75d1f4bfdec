// Package notify builds the unified alert list shown in the notification
// center. Six independent source datasets are scanned against "today" and
// reduced to typed events with deterministic ids, so re-running the
// aggregation over identical input always yields the same events in the
// same order.
package notify

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"concretrack-backend/internal/compliance"
)

// ── Categories ───────────────────────────────────────────────────
// Concatenation order across categories is fixed as declared here.
// No urgency sort is applied.

type Category string

const (
	CategoryBirthday     Category = "birthday"
	CategoryPour         Category = "scheduled_pour"
	CategoryOvertime     Category = "overtime_threshold"
	CategoryStalePayment Category = "stale_pending_payment"
	CategoryDocument     Category = "document_expiring_or_expired"
	CategoryRepeatedNC   Category = "repeated_nonconformance"
)

// OvertimeMonthlyThreshold is the inclusive monthly overtime-hours total
// that triggers an alert for an employee.
const OvertimeMonthlyThreshold = 44.0

// Event is a single actionable alert. Events are rebuilt on every
// aggregation pass and never persisted; the id is derived from the source
// record so dismissal survives re-runs.
type Event struct {
	ID          string   `json:"id"`
	Category    Category `json:"category"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	TargetLink  string   `json:"targetLink"`
}

// ── Source Snapshots ─────────────────────────────────────────────

// BirthdayEmployee is the slice of employee data the birthday rule needs.
type BirthdayEmployee struct {
	ID        string
	Name      string
	BirthDate *time.Time
}

// Pour is a scheduled concrete pour.
type Pour struct {
	ID         string
	ClientName string
	Site       string
	Date       time.Time
	Status     string
	VolumeM3   float64
}

// OvertimeEntry is one day's overtime hours for one employee.
type OvertimeEntry struct {
	ID           string
	EmployeeID   string
	EmployeeName string
	Date         time.Time
	Hours        float64
}

// Payment is a measurement billing record.
type Payment struct {
	ID           string
	ClientName   string
	Status       string
	ReceivedDate *time.Time
	Amount       float64
}

// DocumentSnapshot is a document record joined with its owner's name,
// ready for status classification by the compliance engine.
type DocumentSnapshot struct {
	RecordID     string
	EmployeeName string
	Record       compliance.Record
	Spec         compliance.TypeSpec
}

// NonConformance is a logged quality incident attributable to an employee
// or a client.
type NonConformance struct {
	ID         string
	TypeID     string
	TypeName   string
	EmployeeID *string
	ClientID   *string
}

// Source provides the six independent datasets. Each method is an
// ordinary read; implementations return rows in their natural order,
// which the aggregator preserves within each category.
type Source interface {
	Employees(ctx context.Context) ([]BirthdayEmployee, error)
	ScheduledPours(ctx context.Context) ([]Pour, error)
	OvertimeEntries(ctx context.Context) ([]OvertimeEntry, error)
	PendingPayments(ctx context.Context) ([]Payment, error)
	DocumentSnapshots(ctx context.Context) ([]DocumentSnapshot, error)
	NonConformances(ctx context.Context) ([]NonConformance, error)
}

// ── Aggregation ──────────────────────────────────────────────────

// Aggregate fetches all six datasets concurrently, waits for every fetch,
// then concatenates the per-category events in fixed order. A failed fetch
// is logged and its category omitted — partial results are always
// preferred over an all-or-nothing failure.
func Aggregate(ctx context.Context, src Source, today time.Time) []Event {
	var (
		wg        sync.WaitGroup
		employees []BirthdayEmployee
		pours     []Pour
		overtime  []OvertimeEntry
		payments  []Payment
		documents []DocumentSnapshot
		ncs       []NonConformance

		errEmployees, errPours, errOvertime, errPayments, errDocuments, errNCs error
	)

	wg.Add(6)
	go func() { defer wg.Done(); employees, errEmployees = src.Employees(ctx) }()
	go func() { defer wg.Done(); pours, errPours = src.ScheduledPours(ctx) }()
	go func() { defer wg.Done(); overtime, errOvertime = src.OvertimeEntries(ctx) }()
	go func() { defer wg.Done(); payments, errPayments = src.PendingPayments(ctx) }()
	go func() { defer wg.Done(); documents, errDocuments = src.DocumentSnapshots(ctx) }()
	go func() { defer wg.Done(); ncs, errNCs = src.NonConformances(ctx) }()
	wg.Wait()

	events := []Event{}
	appendCategory := func(cat Category, err error, build func() []Event) {
		if err != nil {
			log.Printf("[notify] %s fetch failed, category skipped: %v", cat, err)
			return
		}
		events = append(events, build()...)
	}

	appendCategory(CategoryBirthday, errEmployees, func() []Event { return BirthdayEvents(employees, today) })
	appendCategory(CategoryPour, errPours, func() []Event { return PourEvents(pours, today) })
	appendCategory(CategoryOvertime, errOvertime, func() []Event { return OvertimeEvents(overtime, today) })
	appendCategory(CategoryStalePayment, errPayments, func() []Event { return StalePaymentEvents(payments, today) })
	appendCategory(CategoryDocument, errDocuments, func() []Event { return DocumentEvents(documents, today) })
	appendCategory(CategoryRepeatedNC, errNCs, func() []Event { return RepeatedNCEvents(ncs) })

	return events
}

// ── Category Builders ────────────────────────────────────────────
// Each builder is pure and preserves the input order.

// BirthdayEvents emits one event per employee whose birth month and day
// match today's. The birth year is ignored.
func BirthdayEvents(employees []BirthdayEmployee, today time.Time) []Event {
	events := []Event{}
	for _, emp := range employees {
		if emp.BirthDate == nil {
			continue
		}
		if emp.BirthDate.Month() != today.Month() || emp.BirthDate.Day() != today.Day() {
			continue
		}
		events = append(events, Event{
			ID:          eventID(CategoryBirthday, emp.ID),
			Category:    CategoryBirthday,
			Title:       "Birthday today",
			Description: fmt.Sprintf("%s celebrates a birthday today.", emp.Name),
			TargetLink:  "/employees/" + emp.ID,
		})
	}
	return events
}

// PourEvents emits one event per pour scheduled for today. Only same-day
// pours with status "scheduled" qualify — future days and completed or
// canceled pours do not.
func PourEvents(pours []Pour, today time.Time) []Event {
	events := []Event{}
	for _, p := range pours {
		if p.Status != "scheduled" || !sameDay(p.Date, today) {
			continue
		}
		events = append(events, Event{
			ID:          eventID(CategoryPour, p.ID),
			Category:    CategoryPour,
			Title:       "Concrete pour today",
			Description: fmt.Sprintf("%.1f m³ for %s at %s.", p.VolumeM3, p.ClientName, p.Site),
			TargetLink:  "/schedule/" + p.ID,
		})
	}
	return events
}

// OvertimeEvents groups entries by employee, sums hours within today's
// calendar month, and emits one event per employee at or above the
// threshold. Group order follows each employee's first appearance in the
// input.
func OvertimeEvents(entries []OvertimeEntry, today time.Time) []Event {
	inMonth := []OvertimeEntry{}
	for _, e := range entries {
		if e.Date.Year() == today.Year() && e.Date.Month() == today.Month() {
			inMonth = append(inMonth, e)
		}
	}

	groups, order := groupBy(inMonth, func(e OvertimeEntry) string { return e.EmployeeID })

	events := []Event{}
	for _, empID := range order {
		var total float64
		for _, e := range groups[empID] {
			total += e.Hours
		}
		if total < OvertimeMonthlyThreshold {
			continue
		}
		events = append(events, Event{
			ID:          eventID(CategoryOvertime, empID),
			Category:    CategoryOvertime,
			Title:       "Overtime limit reached",
			Description: fmt.Sprintf("%s accumulated %.1f overtime hours this month.", groups[empID][0].EmployeeName, total),
			TargetLink:  "/employees/" + empID + "/overtime",
		})
	}
	return events
}

// StalePaymentEvents emits one event per payment still pending one
// calendar month or more after its received date. One-sided staleness
// check, not a window.
func StalePaymentEvents(payments []Payment, today time.Time) []Event {
	cutoff := truncateToDay(today).AddDate(0, -1, 0)

	events := []Event{}
	for _, p := range payments {
		if p.Status != "pending" || p.ReceivedDate == nil {
			continue
		}
		if truncateToDay(*p.ReceivedDate).After(cutoff) {
			continue
		}
		events = append(events, Event{
			ID:          eventID(CategoryStalePayment, p.ID),
			Category:    CategoryStalePayment,
			Title:       "Payment pending over a month",
			Description: fmt.Sprintf("Measurement for %s (%.2f) is still pending.", p.ClientName, p.Amount),
			TargetLink:  "/measurements/" + p.ID,
		})
	}
	return events
}

// DocumentEvents emits one event per document record classified as
// expired or expiring by the compliance engine, with distinct titles for
// the two cases.
func DocumentEvents(docs []DocumentSnapshot, today time.Time) []Event {
	events := []Event{}
	for _, d := range docs {
		rec := d.Record
		status := compliance.ComputeStatus(&rec, d.Spec, today)

		var title, description string
		switch status {
		case compliance.StatusExpired:
			days := -compliance.DaysRemaining(*rec.ExpiryDate, today)
			title = fmt.Sprintf("%s expired", d.Spec.DisplayName)
			description = fmt.Sprintf("%s: %s expired %d days ago.", d.EmployeeName, d.Spec.DisplayName, days)
		case compliance.StatusExpiring:
			days := compliance.DaysRemaining(*rec.ExpiryDate, today)
			title = fmt.Sprintf("%s expiring soon", d.Spec.DisplayName)
			description = fmt.Sprintf("%s: %s expires in %d days.", d.EmployeeName, d.Spec.DisplayName, days)
		default:
			continue
		}

		events = append(events, Event{
			ID:          eventID(CategoryDocument, d.RecordID),
			Category:    CategoryDocument,
			Title:       title,
			Description: description,
			TargetLink:  "/employees/" + rec.EmployeeID + "/documents",
		})
	}
	return events
}

// RepeatedNCEvents groups non-conformances by (type, subject) and emits
// exactly one event per group that repeats. The subject is the employee
// when present, otherwise the client; records with neither are skipped.
func RepeatedNCEvents(ncs []NonConformance) []Event {
	type ncKey struct {
		typeID, subjectID string
	}

	withSubject := []NonConformance{}
	for _, nc := range ncs {
		if ncSubject(nc) == "" {
			continue
		}
		withSubject = append(withSubject, nc)
	}

	groups, order := groupBy(withSubject, func(nc NonConformance) ncKey {
		return ncKey{typeID: nc.TypeID, subjectID: ncSubject(nc)}
	})

	events := []Event{}
	for _, key := range order {
		group := groups[key]
		if len(group) <= 1 {
			continue
		}
		events = append(events, Event{
			ID:          fmt.Sprintf("%s:%s:%s", CategoryRepeatedNC, key.typeID, key.subjectID),
			Category:    CategoryRepeatedNC,
			Title:       "Repeated non-conformance",
			Description: fmt.Sprintf("%s recorded %d times for the same subject.", group[0].TypeName, len(group)),
			TargetLink:  "/quality/nonconformances?type=" + key.typeID,
		})
	}
	return events
}

// ncSubject returns the grouping subject id: employee wins over client.
func ncSubject(nc NonConformance) string {
	if nc.EmployeeID != nil && *nc.EmployeeID != "" {
		return *nc.EmployeeID
	}
	if nc.ClientID != nil && *nc.ClientID != "" {
		return *nc.ClientID
	}
	return ""
}

// ── Helpers ──────────────────────────────────────────────────────

// groupBy partitions items by key, also returning keys in first-seen
// order so callers never depend on map iteration order.
func groupBy[T any, K comparable](items []T, key func(T) K) (map[K][]T, []K) {
	groups := make(map[K][]T)
	order := []K{}
	for _, item := range items {
		k := key(item)
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], item)
	}
	return groups, order
}

func eventID(cat Category, sourceID string) string {
	return fmt.Sprintf("%s:%s", cat, sourceID)
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
