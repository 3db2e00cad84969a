package dto

import "github.com/noah-isme/inventory-report-api/internal/models"

// ReportRequest captures the POST /reports/generate payload. Parameter values
// stay loosely typed; each report coerces the keys it understands.
type ReportRequest struct {
	ReportType string                 `json:"reportType"`
	StartDate  *models.Date           `json:"startDate"`
	EndDate    *models.Date           `json:"endDate"`
	Parameters map[string]interface{} `json:"parameters"`
}

// InventoryReportRow describes the stock position of one product over the range.
type InventoryReportRow struct {
	ProductID    int64  `json:"productId"`
	ProductName  string `json:"productName"`
	InitialStock int    `json:"initialStock"`
	StockAdded   int    `json:"stockAdded"`
	StockRemoved int    `json:"stockRemoved"`
	FinalStock   int    `json:"finalStock"`
	ReorderLevel int    `json:"reorderLevel"`
	IsLowStock   bool   `json:"isLowStock"`
}

// OrderReportSummary aggregates the orders placed within the range.
type OrderReportSummary struct {
	TotalOrders        int64             `json:"totalOrders"`
	PendingOrders      int64             `json:"pendingOrders"`
	ShippedOrders      int64             `json:"shippedOrders"`
	DeliveredOrders    int64             `json:"deliveredOrders"`
	TotalRevenue       float64           `json:"totalRevenue"`
	TopSellingProducts []TopSellingEntry `json:"topSellingProducts"`
}

// TopSellingEntry is one ranked product line.
type TopSellingEntry struct {
	ProductID    int64   `json:"productId"`
	ProductName  string  `json:"productName"`
	UnitsSold    int64   `json:"unitsSold"`
	TotalRevenue float64 `json:"totalRevenue"`
}

// SupplierReportRow summarises one supplier's contribution over the range.
type SupplierReportRow struct {
	SupplierID            int64  `json:"supplierId"`
	SupplierName          string `json:"supplierName"`
	ProductsSuppliedCount int64  `json:"productsSuppliedCount"`
	TotalQuantitySupplied int64  `json:"totalQuantitySupplied"`
}

// ReportResult is the outcome of one generation run. Exactly one payload field is set.
type ReportResult struct {
	Type      models.ReportType      `json:"reportType"`
	Inventory []InventoryReportRow   `json:"inventory,omitempty"`
	Order     *OrderReportSummary    `json:"order,omitempty"`
	Supplier  []SupplierReportRow    `json:"supplier,omitempty"`
	Filters   map[string]interface{} `json:"filters,omitempty"`
}

// Payload returns the report body as served to API clients.
func (r *ReportResult) Payload() interface{} {
	switch r.Type {
	case models.ReportTypeInventory:
		if r.Inventory == nil {
			return []InventoryReportRow{}
		}
		return r.Inventory
	case models.ReportTypeOrder:
		return r.Order
	case models.ReportTypeSupplier:
		if r.Supplier == nil {
			return []SupplierReportRow{}
		}
		return r.Supplier
	default:
		return nil
	}
}
