package repository

import (
	"context"

	"github.com/noah-isme/inventory-report-api/internal/models"
)

// StockRepository reads stock positions from the stock service.
type StockRepository struct {
	client *ProviderClient
}

// NewStockRepository constructs the repository.
func NewStockRepository(client *ProviderClient) *StockRepository {
	return &StockRepository{client: client}
}

// List returns every stock record.
func (r *StockRepository) List(ctx context.Context) ([]models.Stock, error) {
	var stocks []models.Stock
	if err := r.client.getJSON(ctx, "list_stocks", "/api/stocks", nil, &stocks); err != nil {
		return nil, err
	}
	return stocks, nil
}
