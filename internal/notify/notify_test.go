package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"concretrack-backend/internal/compliance"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func strPtr(s string) *string { return &s }

// fakeSource returns canned slices, with per-dataset error injection.
type fakeSource struct {
	employees []BirthdayEmployee
	pours     []Pour
	overtime  []OvertimeEntry
	payments  []Payment
	documents []DocumentSnapshot
	ncs       []NonConformance

	overtimeErr error
}

func (f *fakeSource) Employees(ctx context.Context) ([]BirthdayEmployee, error) {
	return f.employees, nil
}
func (f *fakeSource) ScheduledPours(ctx context.Context) ([]Pour, error) { return f.pours, nil }
func (f *fakeSource) OvertimeEntries(ctx context.Context) ([]OvertimeEntry, error) {
	return f.overtime, f.overtimeErr
}
func (f *fakeSource) PendingPayments(ctx context.Context) ([]Payment, error) { return f.payments, nil }
func (f *fakeSource) DocumentSnapshots(ctx context.Context) ([]DocumentSnapshot, error) {
	return f.documents, nil
}
func (f *fakeSource) NonConformances(ctx context.Context) ([]NonConformance, error) {
	return f.ncs, nil
}

func categories(events []Event) []Category {
	out := []Category{}
	for _, ev := range events {
		out = append(out, ev.Category)
	}
	return out
}

func TestBirthdayEventsIgnoreYear(t *testing.T) {
	today := date(2025, time.May, 20)

	events := BirthdayEvents([]BirthdayEmployee{
		{ID: "e1", Name: "Ana", BirthDate: datePtr(1990, time.May, 20)},
		{ID: "e2", Name: "Bruno", BirthDate: datePtr(1990, time.May, 21)},
		{ID: "e3", Name: "Carla", BirthDate: nil},
		{ID: "e4", Name: "Diego", BirthDate: datePtr(2001, time.May, 20)},
	}, today)

	require.Len(t, events, 2)
	assert.Equal(t, "birthday:e1", events[0].ID)
	assert.Equal(t, "birthday:e4", events[1].ID)
}

func TestPourEventsSameDayScheduledOnly(t *testing.T) {
	today := date(2025, time.May, 20)

	events := PourEvents([]Pour{
		{ID: "p1", ClientName: "Constructora Alfa", Site: "Tower A", Date: today, Status: "scheduled", VolumeM3: 12},
		{ID: "p2", ClientName: "Beta Obras", Site: "Bridge", Date: today.AddDate(0, 0, 1), Status: "scheduled"},
		{ID: "p3", ClientName: "Gama", Site: "Slab 3", Date: today, Status: "completed"},
	}, today)

	require.Len(t, events, 1)
	assert.Equal(t, "scheduled_pour:p1", events[0].ID)
}

func TestOvertimeEventsThresholdInclusive(t *testing.T) {
	today := date(2025, time.May, 20)

	entries := []OvertimeEntry{
		{ID: "o1", EmployeeID: "e1", EmployeeName: "Ana", Date: date(2025, time.May, 2), Hours: 40},
		{ID: "o2", EmployeeID: "e2", EmployeeName: "Bruno", Date: date(2025, time.May, 3), Hours: 43.5},
		{ID: "o3", EmployeeID: "e1", EmployeeName: "Ana", Date: date(2025, time.May, 10), Hours: 4},
		// Last month's hours must not count toward May.
		{ID: "o4", EmployeeID: "e2", EmployeeName: "Bruno", Date: date(2025, time.April, 28), Hours: 10},
	}

	events := OvertimeEvents(entries, today)

	// Ana: 40 + 4 = 44 → exactly at threshold, inclusive. Bruno: 43.5 → below.
	require.Len(t, events, 1)
	assert.Equal(t, "overtime_threshold:e1", events[0].ID)
	assert.Contains(t, events[0].Description, "44.0")
}

func TestStalePaymentEventsBoundary(t *testing.T) {
	today := date(2025, time.May, 20)

	events := StalePaymentEvents([]Payment{
		// Exactly one month old → stale (≤ today − 1 month).
		{ID: "m1", ClientName: "Alfa", Status: "pending", ReceivedDate: datePtr(2025, time.April, 20), Amount: 1500},
		// One day younger than the cutoff → not stale.
		{ID: "m2", ClientName: "Beta", Status: "pending", ReceivedDate: datePtr(2025, time.April, 21), Amount: 900},
		// Old but already settled.
		{ID: "m3", ClientName: "Gama", Status: "received", ReceivedDate: datePtr(2025, time.January, 5), Amount: 700},
		{ID: "m4", ClientName: "Delta", Status: "pending", ReceivedDate: nil},
	}, today)

	require.Len(t, events, 1)
	assert.Equal(t, "stale_pending_payment:m1", events[0].ID)
}

func TestDocumentEventsSplitTitles(t *testing.T) {
	today := date(2025, time.May, 20)
	aso := compliance.TypeSpec{DocType: "aso", DisplayName: "ASO", HasExpiry: true, ValidityYears: 1}

	docs := []DocumentSnapshot{
		{
			RecordID:     "d1",
			EmployeeName: "Ana",
			Spec:         aso,
			Record: compliance.Record{
				EmployeeID: "e1", DocType: "aso",
				IssueDate: datePtr(2024, time.May, 1), ExpiryDate: datePtr(2025, time.May, 1),
			},
		},
		{
			RecordID:     "d2",
			EmployeeName: "Bruno",
			Spec:         aso,
			Record: compliance.Record{
				EmployeeID: "e2", DocType: "aso",
				IssueDate: datePtr(2024, time.June, 1), ExpiryDate: datePtr(2025, time.June, 1),
			},
		},
		{
			RecordID:     "d3",
			EmployeeName: "Carla",
			Spec:         aso,
			Record: compliance.Record{
				EmployeeID: "e3", DocType: "aso",
				IssueDate: datePtr(2024, time.December, 1), ExpiryDate: datePtr(2025, time.December, 1),
			},
		},
	}

	events := DocumentEvents(docs, today)

	// d1 expired 19 days ago, d2 expires in 12 days, d3 is current.
	require.Len(t, events, 2)
	assert.Equal(t, "document_expiring_or_expired:d1", events[0].ID)
	assert.Contains(t, events[0].Title, "expired")
	assert.Contains(t, events[0].Description, "19 days ago")
	assert.Equal(t, "document_expiring_or_expired:d2", events[1].ID)
	assert.Contains(t, events[1].Title, "expiring soon")
	assert.Contains(t, events[1].Description, "in 12 days")
}

func TestRepeatedNCEventsGrouping(t *testing.T) {
	ncs := []NonConformance{
		{ID: "n1", TypeID: "T1", TypeName: "Late slump test", EmployeeID: strPtr("F1")},
		{ID: "n2", TypeID: "T1", TypeName: "Late slump test", EmployeeID: strPtr("F1")},
		{ID: "n3", TypeID: "T1", TypeName: "Late slump test", EmployeeID: strPtr("F2")},
		// Employee id wins over client id for the grouping subject.
		{ID: "n4", TypeID: "T2", TypeName: "Wrong mix", EmployeeID: strPtr("F1"), ClientID: strPtr("C9")},
		{ID: "n5", TypeID: "T2", TypeName: "Wrong mix", EmployeeID: strPtr("F1")},
		// No subject at all → skipped entirely.
		{ID: "n6", TypeID: "T3", TypeName: "Orphan"},
		{ID: "n7", TypeID: "T3", TypeName: "Orphan"},
	}

	events := RepeatedNCEvents(ncs)

	// One event per repeating group, never one per record.
	require.Len(t, events, 2)
	assert.Equal(t, "repeated_nonconformance:T1:F1", events[0].ID)
	assert.Contains(t, events[0].Description, "2 times")
	assert.Equal(t, "repeated_nonconformance:T2:F1", events[1].ID)
}

func TestAggregateFixedCategoryOrder(t *testing.T) {
	today := date(2025, time.May, 20)

	src := &fakeSource{
		employees: []BirthdayEmployee{{ID: "e1", Name: "Ana", BirthDate: datePtr(1990, time.May, 20)}},
		pours:     []Pour{{ID: "p1", ClientName: "Alfa", Site: "Tower", Date: today, Status: "scheduled", VolumeM3: 8}},
		overtime: []OvertimeEntry{
			{ID: "o1", EmployeeID: "e1", EmployeeName: "Ana", Date: date(2025, time.May, 5), Hours: 50},
		},
		payments: []Payment{{ID: "m1", ClientName: "Beta", Status: "pending", ReceivedDate: datePtr(2025, time.March, 1)}},
		documents: []DocumentSnapshot{{
			RecordID: "d1", EmployeeName: "Ana",
			Spec: compliance.TypeSpec{DocType: "aso", DisplayName: "ASO", HasExpiry: true, ValidityYears: 1},
			Record: compliance.Record{
				EmployeeID: "e1", DocType: "aso",
				IssueDate: datePtr(2024, time.June, 1), ExpiryDate: datePtr(2025, time.June, 1),
			},
		}},
		ncs: []NonConformance{
			{ID: "n1", TypeID: "T1", TypeName: "Late test", EmployeeID: strPtr("F1")},
			{ID: "n2", TypeID: "T1", TypeName: "Late test", EmployeeID: strPtr("F1")},
		},
	}

	events := Aggregate(context.Background(), src, today)

	assert.Equal(t, []Category{
		CategoryBirthday,
		CategoryPour,
		CategoryOvertime,
		CategoryStalePayment,
		CategoryDocument,
		CategoryRepeatedNC,
	}, categories(events))
}

func TestAggregateDeterministicIDs(t *testing.T) {
	today := date(2025, time.May, 20)

	src := &fakeSource{
		employees: []BirthdayEmployee{{ID: "e1", Name: "Ana", BirthDate: datePtr(1990, time.May, 20)}},
		payments:  []Payment{{ID: "m1", ClientName: "Beta", Status: "pending", ReceivedDate: datePtr(2025, time.March, 1)}},
	}

	first := Aggregate(context.Background(), src, today)
	second := Aggregate(context.Background(), src, today)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestAggregateSkipsFailedCategory(t *testing.T) {
	today := date(2025, time.May, 20)

	src := &fakeSource{
		employees: []BirthdayEmployee{{ID: "e1", Name: "Ana", BirthDate: datePtr(1990, time.May, 20)}},
		overtime: []OvertimeEntry{
			{ID: "o1", EmployeeID: "e1", EmployeeName: "Ana", Date: date(2025, time.May, 5), Hours: 60},
		},
		overtimeErr: errors.New("connection reset"),
		payments:    []Payment{{ID: "m1", ClientName: "Beta", Status: "pending", ReceivedDate: datePtr(2025, time.March, 1)}},
	}

	events := Aggregate(context.Background(), src, today)

	// The overtime failure must not surface, and the other categories
	// must still be present.
	assert.Equal(t, []Category{CategoryBirthday, CategoryStalePayment}, categories(events))
}

func TestDismissSet(t *testing.T) {
	events := []Event{
		{ID: "birthday:e1", Category: CategoryBirthday},
		{ID: "scheduled_pour:p1", Category: CategoryPour},
		{ID: "stale_pending_payment:m1", Category: CategoryStalePayment},
	}

	set := NewDismissSet()
	assert.Len(t, set.Filter(events), 3)

	set.Dismiss("scheduled_pour:p1")
	visible := set.Filter(events)
	require.Len(t, visible, 2)
	assert.Equal(t, "birthday:e1", visible[0].ID)
	assert.Equal(t, "stale_pending_payment:m1", visible[1].ID)

	set.DismissAll(visible)
	assert.Len(t, set.Filter(events), 0)
}
