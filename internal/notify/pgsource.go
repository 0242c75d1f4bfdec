package notify

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"concretrack-backend/internal/compliance"
)

// PGSource feeds the aggregation engine from PostgreSQL. Each method is a
// plain snapshot read; all rule evaluation happens in the engine.
type PGSource struct {
	pool *pgxpool.Pool
}

// NewPGSource creates a Source backed by the given connection pool.
func NewPGSource(pool *pgxpool.Pool) *PGSource {
	return &PGSource{pool: pool}
}

func (s *PGSource) Employees(ctx context.Context) ([]BirthdayEmployee, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, birth_date
		FROM employees
		WHERE status = 'active'
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []BirthdayEmployee{}
	for rows.Next() {
		var emp BirthdayEmployee
		if err := rows.Scan(&emp.ID, &emp.Name, &emp.BirthDate); err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *PGSource) ScheduledPours(ctx context.Context) ([]Pour, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.id, c.name, p.site, p.date, p.status, p.volume_m3
		FROM pours p
		JOIN clients c ON c.id = p.client_id
		WHERE p.status = 'scheduled'
		ORDER BY p.date, c.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Pour{}
	for rows.Next() {
		var p Pour
		if err := rows.Scan(&p.ID, &p.ClientName, &p.Site, &p.Date, &p.Status, &p.VolumeM3); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PGSource) OvertimeEntries(ctx context.Context) ([]OvertimeEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT o.id, o.employee_id, e.name, o.date, o.hours
		FROM overtime_entries o
		JOIN employees e ON e.id = o.employee_id
		ORDER BY o.date, e.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []OvertimeEntry{}
	for rows.Next() {
		var e OvertimeEntry
		if err := rows.Scan(&e.ID, &e.EmployeeID, &e.EmployeeName, &e.Date, &e.Hours); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PGSource) PendingPayments(ctx context.Context) ([]Payment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.id, c.name, m.status, m.received_date, m.amount
		FROM measurements m
		JOIN clients c ON c.id = m.client_id
		ORDER BY m.reference_month, c.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Payment{}
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.ClientName, &p.Status, &p.ReceivedDate, &p.Amount); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PGSource) DocumentSnapshots(ctx context.Context) ([]DocumentSnapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT d.id, d.employee_id, e.name, d.doc_type, d.issue_date, d.expiry_date
		FROM documents d
		JOIN employees e ON e.id = d.employee_id
		WHERE e.status = 'active'
		ORDER BY e.name, d.doc_type
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []DocumentSnapshot{}
	for rows.Next() {
		var snap DocumentSnapshot
		if err := rows.Scan(&snap.RecordID, &snap.Record.EmployeeID, &snap.EmployeeName,
			&snap.Record.DocType, &snap.Record.IssueDate, &snap.Record.ExpiryDate); err != nil {
			return nil, err
		}
		spec, ok := compliance.TypeByDocType(snap.Record.DocType)
		if !ok {
			continue
		}
		snap.Spec = spec
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *PGSource) NonConformances(ctx context.Context) ([]NonConformance, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT n.id, n.type_id, t.name, n.employee_id, n.client_id
		FROM nonconformances n
		JOIN nonconformance_types t ON t.id = n.type_id
		ORDER BY n.date, n.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []NonConformance{}
	for rows.Next() {
		var nc NonConformance
		if err := rows.Scan(&nc.ID, &nc.TypeID, &nc.TypeName, &nc.EmployeeID, &nc.ClientID); err != nil {
			return nil, err
		}
		out = append(out, nc)
	}
	return out, rows.Err()
}
