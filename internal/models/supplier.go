package models

// Supplier mirrors the supplier service record.
type Supplier struct {
	SupplierID       int64    `json:"supplierId"`
	Name             string   `json:"name"`
	ContactInfo      string   `json:"contactInfo,omitempty"`
	ProductsSupplied []string `json:"productsSupplied,omitempty"`
}
