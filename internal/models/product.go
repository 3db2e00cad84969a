package models

// Product mirrors the product service record.
type Product struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       *float64 `json:"price"`
	Quantity    *int     `json:"quantity,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	SupplierID  *int64   `json:"supplierId,omitempty"`
}
