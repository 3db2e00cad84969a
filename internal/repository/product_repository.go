package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/noah-isme/inventory-report-api/internal/models"
)

// ProductRepository reads products from the product service.
type ProductRepository struct {
	client *ProviderClient
}

// NewProductRepository constructs the repository.
func NewProductRepository(client *ProviderClient) *ProductRepository {
	return &ProductRepository{client: client}
}

// List returns every product in provider order.
func (r *ProductRepository) List(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.client.getJSON(ctx, "list_products", "/api/products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetByID returns a single product, or nil when the provider has no such id.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := r.client.getJSON(ctx, "get_product", "/api/products/"+strconv.FormatInt(id, 10), nil, &product)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product %d: %w", id, err)
	}
	return &product, nil
}
