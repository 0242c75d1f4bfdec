package models

// ── Core Document Record ─────────────────────────────────────────

// DocumentRecord is one employee's instance of one catalog document type.
// Records are created as empty slots when the employee is registered and
// are never hard-deleted — clearing a document nulls its dates to mean
// "not yet provided".
type DocumentRecord struct {
	ID         string  `json:"id"`
	EmployeeID string  `json:"employeeId"`
	DocType    string  `json:"docType"`
	IssueDate  *string `json:"issueDate"`  // when the document was issued
	ExpiryDate *string `json:"expiryDate"` // derived from issue date + validity; nil for no-expiry types
	FileURL    string  `json:"fileUrl"`
	FileName   string  `json:"fileName"`
	UpdatedAt  string  `json:"updatedAt"`
	CreatedAt  string  `json:"createdAt"`
}

// ── Document with Computed Compliance Fields ─────────────────────

// DocumentWithStatus extends DocumentRecord with fields that are COMPUTED
// on every read — never stored in the database.
type DocumentWithStatus struct {
	DocumentRecord

	Status        string `json:"status"` // "missing" | "current" | "expiring" | "expired"
	DisplayName   string `json:"displayName"`
	HasExpiry     bool   `json:"hasExpiry"`
	DaysRemaining *int   `json:"daysRemaining,omitempty"` // days until expiry (negative = overdue)
}

// ── Requests ─────────────────────────────────────────────────────

// UpdateDocumentRequest sets or changes a document's issue date and file.
// The expiry date is always derived server-side from the catalog validity.
type UpdateDocumentRequest struct {
	IssueDate *string `json:"issueDate,omitempty"`
	FileURL   *string `json:"fileUrl,omitempty"`
	FileName  *string `json:"fileName,omitempty"`
}

// DocumentTypeInfo is the catalog entry served to clients.
type DocumentTypeInfo struct {
	DocType       string `json:"docType"`
	DisplayName   string `json:"displayName"`
	HasExpiry     bool   `json:"hasExpiry"`
	ValidityYears int    `json:"validityYears,omitempty"`
}
