package models

// Stock mirrors the stock service record for a single product.
type Stock struct {
	ProductID    int64 `json:"productId"`
	Quantity     int   `json:"quantity"`
	ReorderLevel int   `json:"reorderLevel"`
	LowStock     bool  `json:"lowStock"`
}
