// Package compliance provides pure functions for employee document
// compliance calculations. These functions have ZERO dependencies on HTTP,
// database, or any other infrastructure — making them trivially testable
// and reusable.
package compliance

import (
	"strings"
	"time"
)

// ── Document Status Constants ────────────────────────────────────
// Status is always computed from (issueDate, expiryDate, typeSpec, today).
// It is never stored in the database.

type Status string

const (
	StatusMissing  Status = "missing"  // No issue date recorded (or expiry data inconsistency)
	StatusCurrent  Status = "current"  // Expiry more than AlertWindowDays away (or type has no expiry)
	StatusExpiring Status = "expiring" // Expiry within AlertWindowDays, including today
	StatusExpired  Status = "expired"  // Expiry date in the past
)

// ── Employee Roll-up Constants ───────────────────────────────────

type Rollup string

const (
	RollupRegular   Rollup = "regular"   // All documents current
	RollupAtRisk    Rollup = "at_risk"   // At least one expiring, none expired/missing
	RollupIrregular Rollup = "irregular" // At least one expired or missing
)

// AlertWindowDays is the lookahead window before expiry during which a
// document is flagged as expiring rather than current. Inclusive on both
// ends: daysRemaining 0 through 17 are all "expiring".
const AlertWindowDays = 17

// FilterAll is the sentinel that disables a filter predicate.
const FilterAll = "all"

// ── Required Document Configuration ──────────────────────────────
// These defaults are seeded when a new employee is created.

// TypeSpec defines a document type in the catalog: whether it expires
// and, if so, how many whole years an issued document stays valid.
type TypeSpec struct {
	DocType       string
	DisplayName   string
	HasExpiry     bool
	ValidityYears int
}

// RequiredDocs lists the document types every field employee must hold,
// with their validity periods. The catalog is fixed at process start.
var RequiredDocs = []TypeSpec{
	{DocType: "aso", DisplayName: "ASO (Occupational Health Certificate)", HasExpiry: true, ValidityYears: 1},
	{DocType: "nr18_training", DisplayName: "NR-18 Site Safety Training", HasExpiry: true, ValidityYears: 1},
	{DocType: "nr35_training", DisplayName: "NR-35 Work at Height Training", HasExpiry: true, ValidityYears: 2},
	{DocType: "work_contract", DisplayName: "Employment Contract", HasExpiry: false},
	{DocType: "id_document", DisplayName: "ID Document", HasExpiry: false},
}

// TypeByDocType returns the catalog entry for a doc type slug.
func TypeByDocType(docType string) (TypeSpec, bool) {
	for _, ts := range RequiredDocs {
		if ts.DocType == docType {
			return ts, true
		}
	}
	return TypeSpec{}, false
}

// ── Status Computation ───────────────────────────────────────────

// Record is one employee's instance of one document type. Dates carry no
// meaningful time-of-day; both are truncated before any comparison.
type Record struct {
	EmployeeID string
	DocType    string
	IssueDate  *time.Time
	ExpiryDate *time.Time
}

// ComputeStatus derives the compliance status of a document.
// Parameters:
//   - rec:   the document record (nil → missing)
//   - spec:  the catalog entry for the record's document type
//   - today: current date (injected for testability)
//
// A record with no issue date is missing. Types without expiry are current
// as soon as an issue date exists, however old. For expiring types a
// missing expiry date is treated as missing rather than failing — the
// conservative reading of inconsistent data.
func ComputeStatus(rec *Record, spec TypeSpec, today time.Time) Status {
	if rec == nil || rec.IssueDate == nil {
		return StatusMissing
	}
	if !spec.HasExpiry {
		return StatusCurrent
	}
	if rec.ExpiryDate == nil {
		return StatusMissing
	}

	days := DaysRemaining(*rec.ExpiryDate, today)
	switch {
	case days < 0:
		return StatusExpired
	case days <= AlertWindowDays:
		return StatusExpiring
	default:
		return StatusCurrent
	}
}

// DeriveExpiry adds validityYears whole calendar years to the issue date,
// preserving month and day. Go's AddDate normalizes non-existent dates, so
// an issue date of Feb 29 plus one year lands on Mar 1 of the target year
// (roll-forward convention).
func DeriveExpiry(issue time.Time, validityYears int) time.Time {
	return truncateToDay(issue).AddDate(validityYears, 0, 0)
}

// DaysRemaining returns whole calendar days from today until expiry.
// Positive = days left, zero = expires today, negative = days overdue.
// Time-of-day is ignored on both sides.
func DaysRemaining(expiry, today time.Time) int {
	e := truncateToDay(expiry)
	t := truncateToDay(today)
	return int(e.Sub(t).Hours() / 24)
}

// ── Employee Roll-up ─────────────────────────────────────────────

// RollUp reduces a set of per-document statuses to a single employee
// verdict. Dominance order is strict: a single expired or missing document
// makes the employee irregular regardless of everything else; otherwise a
// single expiring document makes the employee at risk. Missing and expired
// are deliberately equivalent — an employee with no proof of compliance is
// treated the same as one whose compliance lapsed.
func RollUp(statuses []Status) Rollup {
	result := RollupRegular
	for _, s := range statuses {
		switch s {
		case StatusExpired, StatusMissing:
			return RollupIrregular
		case StatusExpiring:
			result = RollupAtRisk
		}
	}
	return result
}

// Summary holds fleet-wide roll-up counts.
type Summary struct {
	RegularCount   int `json:"regularCount"`
	AtRiskCount    int `json:"atRiskCount"`
	IrregularCount int `json:"irregularCount"`
	TotalCount     int `json:"totalCount"`
}

// Summarize partitions roll-up results into counts. TotalCount is the
// input size regardless of partition.
func Summarize(rollups []Rollup) Summary {
	sum := Summary{TotalCount: len(rollups)}
	for _, r := range rollups {
		switch r {
		case RollupAtRisk:
			sum.AtRiskCount++
		case RollupIrregular:
			sum.IrregularCount++
		default:
			sum.RegularCount++
		}
	}
	return sum
}

// ── Employee Filtering ───────────────────────────────────────────

// EmployeeCompliance pairs an employee with their computed roll-up,
// as consumed by the dashboard list.
type EmployeeCompliance struct {
	EmployeeID string            `json:"employeeId"`
	Name       string            `json:"name"`
	Branch     string            `json:"branch"`
	Rollup     Rollup            `json:"rollup"`
	Statuses   map[string]Status `json:"statuses"` // doc type → status
}

// Filter applies branch equality, case-insensitive name substring, and
// roll-up equality as a conjunction, preserving input order. An empty
// string or FilterAll disables the corresponding predicate.
func Filter(employees []EmployeeCompliance, branch, nameQuery, status string) []EmployeeCompliance {
	out := []EmployeeCompliance{}
	query := strings.ToLower(nameQuery)
	for _, ec := range employees {
		if branch != "" && branch != FilterAll && ec.Branch != branch {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(ec.Name), query) {
			continue
		}
		if status != "" && status != FilterAll && string(ec.Rollup) != status {
			continue
		}
		out = append(out, ec)
	}
	return out
}

// ── Helpers ──────────────────────────────────────────────────────

// DisplayName returns the human-readable name for a document type.
func DisplayName(docType string) string {
	if ts, ok := TypeByDocType(docType); ok {
		return ts.DisplayName
	}
	if docType == "" {
		return "Document"
	}
	words := strings.Split(strings.ReplaceAll(docType, "_", " "), " ")
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// truncateToDay strips the time component, keeping only the date.
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
