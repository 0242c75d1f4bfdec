package compliance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

var asoSpec = TypeSpec{DocType: "aso", DisplayName: "ASO", HasExpiry: true, ValidityYears: 1}
var contractSpec = TypeSpec{DocType: "work_contract", DisplayName: "Employment Contract", HasExpiry: false}

func TestComputeStatusMissing(t *testing.T) {
	today := date(2025, time.May, 20)

	assert.Equal(t, StatusMissing, ComputeStatus(nil, asoSpec, today), "nil record")
	assert.Equal(t, StatusMissing, ComputeStatus(&Record{}, asoSpec, today), "no issue date")

	// hasExpiry type with an issue date but no expiry date is a data
	// inconsistency — classified conservatively as missing.
	rec := &Record{IssueDate: datePtr(2024, time.June, 1)}
	assert.Equal(t, StatusMissing, ComputeStatus(rec, asoSpec, today))
}

func TestComputeStatusNoExpiryTypeAlwaysCurrent(t *testing.T) {
	today := date(2025, time.May, 20)

	// Any issue date, however old, is current for no-expiry types.
	rec := &Record{IssueDate: datePtr(1998, time.January, 15)}
	assert.Equal(t, StatusCurrent, ComputeStatus(rec, contractSpec, today))
}

func TestComputeStatusBoundaries(t *testing.T) {
	today := date(2025, time.May, 20)

	cases := []struct {
		name   string
		expiry time.Time
		want   Status
	}{
		{"expired yesterday", today.AddDate(0, 0, -1), StatusExpired},
		{"expires today", today, StatusExpiring},
		{"expires at window edge (17)", today.AddDate(0, 0, 17), StatusExpiring},
		{"expires just past window (18)", today.AddDate(0, 0, 18), StatusCurrent},
		{"expires far out", today.AddDate(1, 0, 0), StatusCurrent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expiry := tc.expiry
			rec := &Record{IssueDate: datePtr(2024, time.June, 1), ExpiryDate: &expiry}
			assert.Equal(t, tc.want, ComputeStatus(rec, asoSpec, today))
		})
	}
}

func TestComputeStatusIgnoresTimeOfDay(t *testing.T) {
	// Late-evening "today" vs early-morning expiry on the same calendar
	// day must still classify as expiring, not expired.
	today := time.Date(2025, time.May, 20, 23, 45, 0, 0, time.UTC)
	expiry := time.Date(2025, time.May, 20, 0, 30, 0, 0, time.UTC)

	rec := &Record{IssueDate: datePtr(2024, time.June, 1), ExpiryDate: &expiry}
	assert.Equal(t, StatusExpiring, ComputeStatus(rec, asoSpec, today))
}

func TestComputeStatusASOScenario(t *testing.T) {
	// ASO issued 2024-06-01 with 1-year validity, today 2025-05-20:
	// 12 days remaining → expiring.
	issue := date(2024, time.June, 1)
	expiry := DeriveExpiry(issue, 1)
	today := date(2025, time.May, 20)

	require.Equal(t, 12, DaysRemaining(expiry, today))

	rec := &Record{IssueDate: &issue, ExpiryDate: &expiry}
	assert.Equal(t, StatusExpiring, ComputeStatus(rec, asoSpec, today))

	// All other documents current → employee is at risk.
	rollup := RollUp([]Status{StatusCurrent, StatusCurrent, StatusExpiring, StatusCurrent})
	assert.Equal(t, RollupAtRisk, rollup)
}

func TestDeriveExpiryCalendarYears(t *testing.T) {
	// Whole-year addition, not a 365-day offset: anniversaries hold
	// across leap years.
	assert.Equal(t, date(2025, time.June, 1), DeriveExpiry(date(2024, time.June, 1), 1))
	assert.Equal(t, date(2026, time.March, 15), DeriveExpiry(date(2024, time.March, 15), 2))
}

func TestDeriveExpiryLeapDayRollsForward(t *testing.T) {
	// Feb 29 + 1 year: 2025-02-29 does not exist, normalizes to Mar 1.
	assert.Equal(t, date(2025, time.March, 1), DeriveExpiry(date(2024, time.February, 29), 1))
	// Feb 29 + 4 years lands back on a leap day untouched.
	assert.Equal(t, date(2028, time.February, 29), DeriveExpiry(date(2024, time.February, 29), 4))
}

func TestRollUpDominance(t *testing.T) {
	cases := []struct {
		name     string
		statuses []Status
		want     Rollup
	}{
		{"empty set is regular", []Status{}, RollupRegular},
		{"all current", []Status{StatusCurrent, StatusCurrent}, RollupRegular},
		{"one expiring", []Status{StatusCurrent, StatusExpiring}, RollupAtRisk},
		{"one expired dominates", []Status{StatusExpired, StatusCurrent, StatusCurrent}, RollupIrregular},
		{"missing equivalent to expired", []Status{StatusMissing, StatusCurrent}, RollupIrregular},
		{"expired dominates expiring", []Status{StatusExpiring, StatusExpired, StatusExpiring}, RollupIrregular},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RollUp(tc.statuses))
		})
	}
}

func TestSummarize(t *testing.T) {
	sum := Summarize([]Rollup{
		RollupRegular, RollupIrregular, RollupAtRisk,
		RollupRegular, RollupIrregular, RollupIrregular,
	})

	assert.Equal(t, Summary{
		RegularCount:   2,
		AtRiskCount:    1,
		IrregularCount: 3,
		TotalCount:     6,
	}, sum)
}

func TestFilter(t *testing.T) {
	emps := []EmployeeCompliance{
		{EmployeeID: "e1", Name: "Ana Souza", Branch: "matriz", Rollup: RollupRegular},
		{EmployeeID: "e2", Name: "Bruno Lima", Branch: "norte", Rollup: RollupIrregular},
		{EmployeeID: "e3", Name: "Carla Anastácio", Branch: "matriz", Rollup: RollupAtRisk},
		{EmployeeID: "e4", Name: "Diego Santos", Branch: "norte", Rollup: RollupRegular},
	}

	ids := func(in []EmployeeCompliance) []string {
		out := []string{}
		for _, e := range in {
			out = append(out, e.EmployeeID)
		}
		return out
	}

	t.Run("all sentinels pass everything in order", func(t *testing.T) {
		assert.Equal(t, []string{"e1", "e2", "e3", "e4"}, ids(Filter(emps, FilterAll, "", FilterAll)))
	})

	t.Run("branch filter", func(t *testing.T) {
		assert.Equal(t, []string{"e1", "e3"}, ids(Filter(emps, "matriz", "", "")))
	})

	t.Run("name is case-insensitive substring", func(t *testing.T) {
		assert.Equal(t, []string{"e1", "e3"}, ids(Filter(emps, "", "ANA", "")))
	})

	t.Run("status filter", func(t *testing.T) {
		assert.Equal(t, []string{"e2"}, ids(Filter(emps, "", "", string(RollupIrregular))))
	})

	t.Run("predicates are ANDed", func(t *testing.T) {
		assert.Equal(t, []string{"e1"}, ids(Filter(emps, "matriz", "ana", string(RollupRegular))))
	})

	t.Run("no match yields empty, not nil", func(t *testing.T) {
		got := Filter(emps, "sul", "", "")
		require.NotNil(t, got)
		assert.Len(t, got, 0)
	})
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "ASO (Occupational Health Certificate)", DisplayName("aso"))
	assert.Equal(t, "Concrete Pump License", DisplayName("concrete_pump_license"))
	assert.Equal(t, "Document", DisplayName(""))
}
