package models

// Order mirrors the order service record. Each order covers one product line.
type Order struct {
	OrderID    int64  `json:"orderId"`
	CustomerID int64  `json:"customerId"`
	ProductID  int64  `json:"productId"`
	Quantity   int    `json:"quantity"`
	OrderDate  Date   `json:"orderDate"`
	Status     string `json:"status"`
}

// Order statuses counted individually in the order report.
const (
	OrderStatusPending   = "Pending"
	OrderStatusShipped   = "Shipped"
	OrderStatusDelivered = "Delivered"
)
