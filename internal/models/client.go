package models

// Client is a contracting company the lab tests for or schedules pours with.
type Client struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	TaxID       string  `json:"taxId"` // CNPJ
	ContactName *string `json:"contactName,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Address     *string `json:"address,omitempty"`
	Active      bool    `json:"active"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

// CreateClientRequest holds the fields for registering a client.
type CreateClientRequest struct {
	Name        string  `json:"name"`
	TaxID       string  `json:"taxId"`
	ContactName *string `json:"contactName,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Address     *string `json:"address,omitempty"`
}

// Validate checks if the client request contains valid data.
func (r *CreateClientRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if len(r.Name) < 2 || len(r.Name) > 150 {
		errors["name"] = "Name must be between 2 and 150 characters"
	}
	if r.TaxID == "" {
		errors["taxId"] = "Tax ID is required"
	}

	return errors
}

// UpdateClientRequest holds the client fields that can be updated.
type UpdateClientRequest struct {
	Name        *string `json:"name,omitempty"`
	TaxID       *string `json:"taxId,omitempty"`
	ContactName *string `json:"contactName,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Address     *string `json:"address,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}
