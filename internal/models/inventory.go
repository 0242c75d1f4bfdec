package models

// StockItem is a lab consumable or piece of equipment tracked in inventory.
type StockItem struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Category   string  `json:"category"` // consumable, equipment, mold, ppe
	Unit       string  `json:"unit"`     // un, kg, L, box
	Quantity   float64 `json:"quantity"`
	MinimumQty float64 `json:"minimumQty"`
	Branch     string  `json:"branch"`
	Notes      *string `json:"notes,omitempty"`
	CreatedAt  string  `json:"createdAt"`
	UpdatedAt  string  `json:"updatedAt"`
}

// LowStock reports whether the item is at or below its minimum.
func (s *StockItem) LowStock() bool {
	return s.Quantity <= s.MinimumQty
}

// CreateStockItemRequest holds the fields for registering a stock item.
type CreateStockItemRequest struct {
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	Unit       string  `json:"unit"`
	Quantity   float64 `json:"quantity"`
	MinimumQty float64 `json:"minimumQty"`
	Branch     string  `json:"branch"`
	Notes      *string `json:"notes,omitempty"`
}

// Validate checks if the stock item request contains valid data.
func (r *CreateStockItemRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if len(r.Name) < 2 {
		errors["name"] = "Name is required (min 2 characters)"
	}
	if r.Unit == "" {
		errors["unit"] = "Unit is required"
	}
	if r.Quantity < 0 {
		errors["quantity"] = "Quantity cannot be negative"
	}
	if r.Branch == "" {
		errors["branch"] = "Branch is required"
	}

	return errors
}

// AdjustStockRequest changes an item quantity by a signed delta.
type AdjustStockRequest struct {
	Delta  float64 `json:"delta"`
	Reason string  `json:"reason"`
}
