package repository

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/noah-isme/inventory-report-api/internal/models"
)

// OrderRepository reads orders and order aggregates from the order service.
type OrderRepository struct {
	client *ProviderClient
}

// NewOrderRepository constructs the repository.
func NewOrderRepository(client *ProviderClient) *OrderRepository {
	return &OrderRepository{client: client}
}

// ListByDateRange returns the orders dated within the inclusive range. Unset bounds are not sent.
func (r *OrderRepository) ListByDateRange(ctx context.Context, window models.DateRange) ([]models.Order, error) {
	var orders []models.Order
	query := dateRangeQuery(nil, dateParam(window.Start), dateParam(window.End))
	if err := r.client.getJSON(ctx, "list_orders_by_date_range", "/api/orders/by-date-range", query, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// SumQuantityByProduct returns the quantity ordered for a product within the range.
// A null answer counts as zero.
func (r *OrderRepository) SumQuantityByProduct(ctx context.Context, productID int64, window models.DateRange) (int64, error) {
	var total *int64
	query := dateRangeQuery(url.Values{"productId": {strconv.FormatInt(productID, 10)}}, dateParam(window.Start), dateParam(window.End))
	if err := r.client.getJSON(ctx, "sum_quantity_by_product", "/api/orders/sum-quantity-by-product", query, &total); err != nil {
		return 0, fmt.Errorf("sum quantity for product %d: %w", productID, err)
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func dateParam(d *models.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}
