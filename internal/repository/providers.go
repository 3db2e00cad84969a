package repository

import (
	"go.uber.org/zap"

	"github.com/noah-isme/inventory-report-api/pkg/config"
)

// Providers bundles the repositories backed by the four collaborator services.
type Providers struct {
	Products  *ProductRepository
	Stocks    *StockRepository
	Orders    *OrderRepository
	Suppliers *SupplierRepository
}

// NewProviders builds one client per configured collaborator.
func NewProviders(cfg config.ProvidersConfig, observer ProviderObserver, logger *zap.Logger) Providers {
	return Providers{
		Products:  NewProductRepository(NewProviderClient("product", cfg.ProductURL, cfg.Timeout, observer, logger)),
		Stocks:    NewStockRepository(NewProviderClient("stock", cfg.StockURL, cfg.Timeout, observer, logger)),
		Orders:    NewOrderRepository(NewProviderClient("order", cfg.OrderURL, cfg.Timeout, observer, logger)),
		Suppliers: NewSupplierRepository(NewProviderClient("supplier", cfg.SupplierURL, cfg.Timeout, observer, logger)),
	}
}
