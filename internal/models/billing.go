package models

// ── Proposals ────────────────────────────────────────────────────

// Proposal is a commercial proposal sent to a client.
type Proposal struct {
	ID          string  `json:"id"`
	ClientID    string  `json:"clientId"`
	ClientName  string  `json:"clientName,omitempty"`
	Title       string  `json:"title"`
	Amount      float64 `json:"amount"`
	Status      string  `json:"status"` // draft, sent, accepted, rejected
	Description *string `json:"description,omitempty"`
	SentAt      *string `json:"sentAt,omitempty"`
	DecidedAt   *string `json:"decidedAt,omitempty"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

// CreateProposalRequest holds the fields for drafting a proposal.
type CreateProposalRequest struct {
	ClientID    string  `json:"clientId"`
	Title       string  `json:"title"`
	Amount      float64 `json:"amount"`
	Description *string `json:"description,omitempty"`
}

// Validate checks if the proposal request contains valid data.
func (r *CreateProposalRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.ClientID == "" {
		errors["clientId"] = "Client is required"
	}
	if len(r.Title) < 2 {
		errors["title"] = "Title is required (min 2 characters)"
	}
	if r.Amount <= 0 {
		errors["amount"] = "Amount must be greater than zero"
	}

	return errors
}

// ── Measurements ─────────────────────────────────────────────────

// Measurement is a monthly billing measurement against a client: the
// value of services delivered that month, tracked until payment lands.
type Measurement struct {
	ID             string  `json:"id"`
	ClientID       string  `json:"clientId"`
	ClientName     string  `json:"clientName,omitempty"`
	ReferenceMonth string  `json:"referenceMonth"` // "2026-08"
	Amount         float64 `json:"amount"`
	Status         string  `json:"status"` // pending, received
	ReceivedDate   *string `json:"receivedDate,omitempty"`
	InvoiceNumber  *string `json:"invoiceNumber,omitempty"`
	Notes          *string `json:"notes,omitempty"`
	CreatedAt      string  `json:"createdAt"`
	UpdatedAt      string  `json:"updatedAt"`
}

// CreateMeasurementRequest holds the fields for registering a measurement.
type CreateMeasurementRequest struct {
	ClientID       string  `json:"clientId"`
	ReferenceMonth string  `json:"referenceMonth"`
	Amount         float64 `json:"amount"`
	InvoiceNumber  *string `json:"invoiceNumber,omitempty"`
	Notes          *string `json:"notes,omitempty"`
}

// Validate checks if the measurement request contains valid data.
func (r *CreateMeasurementRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.ClientID == "" {
		errors["clientId"] = "Client is required"
	}
	if len(r.ReferenceMonth) != 7 {
		errors["referenceMonth"] = "Reference month must be in YYYY-MM format"
	}
	if r.Amount <= 0 {
		errors["amount"] = "Amount must be greater than zero"
	}

	return errors
}

// UpdateMeasurementStatusRequest moves a measurement between pending and
// received. ReceivedDate is required when marking received.
type UpdateMeasurementStatusRequest struct {
	Status       string  `json:"status"`
	ReceivedDate *string `json:"receivedDate,omitempty"`
}

// MeasurementSummary aggregates measurements for a period.
type MeasurementSummary struct {
	TotalAmount    float64 `json:"totalAmount"`
	PendingAmount  float64 `json:"pendingAmount"`
	ReceivedAmount float64 `json:"receivedAmount"`
	PendingCount   int     `json:"pendingCount"`
	ReceivedCount  int     `json:"receivedCount"`
}
