package models

// NonConformanceType is a catalog entry for classifying quality deviations.
type NonConformanceType struct {
	ID          string `json:"id"`
	Name        string `json:"name"` // e.g. "low break strength", "slump out of range"
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

// NonConformance is one recorded quality deviation. It targets either an
// employee or a client — the employee takes precedence when both are set.
type NonConformance struct {
	ID           string  `json:"id"`
	TypeID       string  `json:"typeId"`
	TypeName     string  `json:"typeName,omitempty"`
	EmployeeID   *string `json:"employeeId,omitempty"`
	EmployeeName *string `json:"employeeName,omitempty"`
	ClientID     *string `json:"clientId,omitempty"`
	ClientName   *string `json:"clientName,omitempty"`
	Date         string  `json:"date"`
	Description  string  `json:"description"`
	Resolved     bool    `json:"resolved"`
	CreatedAt    string  `json:"createdAt"`
	UpdatedAt    string  `json:"updatedAt"`
}

// CreateNonConformanceRequest holds the fields for recording a deviation.
type CreateNonConformanceRequest struct {
	TypeID      string  `json:"typeId"`
	EmployeeID  *string `json:"employeeId,omitempty"`
	ClientID    *string `json:"clientId,omitempty"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
}

// Validate checks if the non-conformance request contains valid data.
func (r *CreateNonConformanceRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.TypeID == "" {
		errors["typeId"] = "Type is required"
	}
	if r.EmployeeID == nil && r.ClientID == nil {
		errors["subject"] = "An employee or a client is required"
	}
	if r.Date == "" {
		errors["date"] = "Date is required"
	}
	if len(r.Description) < 5 {
		errors["description"] = "Description is required (min 5 characters)"
	}

	return errors
}
