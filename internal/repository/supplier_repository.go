package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/noah-isme/inventory-report-api/internal/models"
)

// SupplierRepository reads suppliers from the supplier service.
type SupplierRepository struct {
	client *ProviderClient
}

// NewSupplierRepository constructs the repository.
func NewSupplierRepository(client *ProviderClient) *SupplierRepository {
	return &SupplierRepository{client: client}
}

// List returns every supplier in provider order.
func (r *SupplierRepository) List(ctx context.Context) ([]models.Supplier, error) {
	var suppliers []models.Supplier
	if err := r.client.getJSON(ctx, "list_suppliers", "/api/suppliers", nil, &suppliers); err != nil {
		return nil, err
	}
	return suppliers, nil
}

// CountSuppliedProducts returns the provider's authoritative supplied-product count.
func (r *SupplierRepository) CountSuppliedProducts(ctx context.Context, supplierID int64) (int64, error) {
	var count *int64
	path := "/api/suppliers/products-supplied-count/" + strconv.FormatInt(supplierID, 10)
	if err := r.client.getJSON(ctx, "count_supplied_products", path, nil, &count); err != nil {
		return 0, fmt.Errorf("count supplied products for supplier %d: %w", supplierID, err)
	}
	if count == nil {
		return 0, nil
	}
	return *count, nil
}
