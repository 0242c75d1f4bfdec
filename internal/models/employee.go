package models

import "time"

// Employee represents an employee record in the database.
type Employee struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Branch        string    `json:"branch"` // filial slug, e.g. "matriz", "norte"
	Role          string    `json:"role"`   // job title: lab technician, pump operator, ...
	Mobile        string    `json:"mobile"`
	AdmissionDate string    `json:"admissionDate"`
	BirthDate     *string   `json:"birthDate,omitempty"`
	PhotoURL      *string   `json:"photoUrl,omitempty"`
	Status        string    `json:"status"` // active, inactive, on_leave, terminated
	ExitDate      *string   `json:"exitDate,omitempty"`
	ExitNotes     *string   `json:"exitNotes,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// EmployeeWithCompliance pairs the employee row with the roll-up computed
// by the compliance engine on every read — never stored.
type EmployeeWithCompliance struct {
	Employee
	ComplianceStatus string            `json:"complianceStatus"` // "regular" | "at_risk" | "irregular"
	DocumentStatuses map[string]string `json:"documentStatuses"` // doc type → per-document status
}

// CreateEmployeeRequest holds the fields needed to create an employee.
type CreateEmployeeRequest struct {
	Name          string  `json:"name"`
	Branch        string  `json:"branch"`
	Role          string  `json:"role"`
	Mobile        string  `json:"mobile"`
	AdmissionDate string  `json:"admissionDate"`
	BirthDate     *string `json:"birthDate,omitempty"`
	PhotoURL      string  `json:"photoUrl,omitempty"`
	Status        string  `json:"status,omitempty"`
}

// UpdateEmployeeRequest holds the fields that can be updated.
type UpdateEmployeeRequest struct {
	Name          *string `json:"name,omitempty"`
	Branch        *string `json:"branch,omitempty"`
	Role          *string `json:"role,omitempty"`
	Mobile        *string `json:"mobile,omitempty"`
	AdmissionDate *string `json:"admissionDate,omitempty"`
	BirthDate     *string `json:"birthDate,omitempty"`
	PhotoURL      *string `json:"photoUrl,omitempty"`
	Status        *string `json:"status,omitempty"`
}

// ExitEmployeeRequest is used when recording an employee exit.
type ExitEmployeeRequest struct {
	ExitDate  string  `json:"exitDate"`
	ExitNotes *string `json:"exitNotes,omitempty"`
}

// Validate checks if the create request contains valid data.
func (r *CreateEmployeeRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if len(r.Name) < 2 || len(r.Name) > 100 {
		errors["name"] = "Name must be between 2 and 100 characters"
	}
	if r.Branch == "" {
		errors["branch"] = "Branch is required"
	}
	if len(r.Role) < 2 {
		errors["role"] = "Role is required (min 2 characters)"
	}
	if r.AdmissionDate == "" {
		errors["admissionDate"] = "Admission date is required"
	}

	return errors
}

// OvertimeEntry is one day's overtime hours for one employee.
type OvertimeEntry struct {
	ID           string  `json:"id"`
	EmployeeID   string  `json:"employeeId"`
	EmployeeName string  `json:"employeeName,omitempty"`
	Date         string  `json:"date"`
	Hours        float64 `json:"hours"`
	Reason       *string `json:"reason,omitempty"`
	CreatedAt    string  `json:"createdAt"`
}

// CreateOvertimeRequest holds the fields for logging overtime.
type CreateOvertimeRequest struct {
	EmployeeID string  `json:"employeeId"`
	Date       string  `json:"date"`
	Hours      float64 `json:"hours"`
	Reason     *string `json:"reason,omitempty"`
}

// Validate checks if the overtime request contains valid data.
func (r *CreateOvertimeRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.EmployeeID == "" {
		errors["employeeId"] = "Employee is required"
	}
	if r.Date == "" {
		errors["date"] = "Date is required"
	}
	if r.Hours <= 0 || r.Hours > 24 {
		errors["hours"] = "Hours must be between 0 and 24"
	}

	return errors
}

// OvertimeMonthSummary is the per-employee monthly total.
type OvertimeMonthSummary struct {
	EmployeeID   string  `json:"employeeId"`
	EmployeeName string  `json:"employeeName"`
	TotalHours   float64 `json:"totalHours"`
	OverLimit    bool    `json:"overLimit"`
}
