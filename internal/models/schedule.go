package models

// Pour is a scheduled concrete pour at a client site.
type Pour struct {
	ID         string  `json:"id"`
	ClientID   string  `json:"clientId"`
	ClientName string  `json:"clientName,omitempty"`
	Site       string  `json:"site"`
	Date       string  `json:"date"`
	VolumeM3   float64 `json:"volumeM3"`
	MixDesign  string  `json:"mixDesign"` // e.g. "fck 30 MPa"
	Status     string  `json:"status"`    // scheduled, completed, canceled
	Notes      *string `json:"notes,omitempty"`
	CreatedAt  string  `json:"createdAt"`
	UpdatedAt  string  `json:"updatedAt"`
}

// CreatePourRequest holds the fields for scheduling a pour.
type CreatePourRequest struct {
	ClientID  string  `json:"clientId"`
	Site      string  `json:"site"`
	Date      string  `json:"date"`
	VolumeM3  float64 `json:"volumeM3"`
	MixDesign string  `json:"mixDesign"`
	Notes     *string `json:"notes,omitempty"`
}

// Validate checks if the pour request contains valid data.
func (r *CreatePourRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.ClientID == "" {
		errors["clientId"] = "Client is required"
	}
	if len(r.Site) < 2 {
		errors["site"] = "Site is required (min 2 characters)"
	}
	if r.Date == "" {
		errors["date"] = "Date is required"
	}
	if r.VolumeM3 <= 0 {
		errors["volumeM3"] = "Volume must be greater than zero"
	}
	if r.MixDesign == "" {
		errors["mixDesign"] = "Mix design is required"
	}

	return errors
}

// UpdatePourRequest holds the pour fields that can be updated.
type UpdatePourRequest struct {
	Site      *string  `json:"site,omitempty"`
	Date      *string  `json:"date,omitempty"`
	VolumeM3  *float64 `json:"volumeM3,omitempty"`
	MixDesign *string  `json:"mixDesign,omitempty"`
	Status    *string  `json:"status,omitempty"`
	Notes     *string  `json:"notes,omitempty"`
}
