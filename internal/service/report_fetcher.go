package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/inventory-report-api/internal/models"
	appErrors "github.com/noah-isme/inventory-report-api/pkg/errors"
)

// ProductLister serves the full product catalogue.
type ProductLister interface {
	List(ctx context.Context) ([]models.Product, error)
}

// StockLister serves every stock position.
type StockLister interface {
	List(ctx context.Context) ([]models.Stock, error)
}

// OrderProvider serves order lists and per-product quantity sums.
type OrderProvider interface {
	quantitySummer
	ListByDateRange(ctx context.Context, window models.DateRange) ([]models.Order, error)
}

// SupplierProvider serves supplier lists and per-supplier product counts.
type SupplierProvider interface {
	suppliedCounter
	List(ctx context.Context) ([]models.Supplier, error)
}

// reportData holds the collections one report run joins over.
type reportData struct {
	products  []models.Product
	stocks    []models.Stock
	orders    []models.Order
	suppliers []models.Supplier

	productsByID map[int64]models.Product
	stocksByID   map[int64]models.Stock
}

type reportFetcher struct {
	products  ProductLister
	stocks    StockLister
	orders    OrderProvider
	suppliers SupplierProvider
}

// fetch loads the lists reportType needs concurrently and returns once all have answered.
func (f *reportFetcher) fetch(ctx context.Context, reportType models.ReportType, window models.DateRange) (*reportData, error) {
	data := &reportData{}
	g, gctx := errgroup.WithContext(ctx)

	needStocks := reportType == models.ReportTypeInventory
	needOrders := reportType == models.ReportTypeOrder || reportType == models.ReportTypeSupplier
	needSuppliers := reportType == models.ReportTypeSupplier

	g.Go(func() error {
		products, err := f.products.List(gctx)
		data.products = products
		return err
	})
	if needStocks {
		g.Go(func() error {
			stocks, err := f.stocks.List(gctx)
			data.stocks = stocks
			return err
		})
	}
	if needOrders {
		g.Go(func() error {
			orders, err := f.orders.ListByDateRange(gctx, window)
			data.orders = orders
			return err
		})
	}
	if needSuppliers {
		g.Go(func() error {
			suppliers, err := f.suppliers.List(gctx)
			data.suppliers = suppliers
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, providerUnavailable(err)
	}

	data.productsByID = indexProducts(data.products)
	data.stocksByID = indexStocks(data.stocks)
	return data, nil
}

func providerUnavailable(err error) error {
	return appErrors.Wrap(err, appErrors.ErrProviderUnavailable.Code, appErrors.ErrProviderUnavailable.Status, appErrors.ErrProviderUnavailable.Message)
}

// Later records win when a provider repeats an id.
func indexProducts(products []models.Product) map[int64]models.Product {
	index := make(map[int64]models.Product, len(products))
	for _, p := range products {
		index[p.ID] = p
	}
	return index
}

func indexStocks(stocks []models.Stock) map[int64]models.Stock {
	index := make(map[int64]models.Stock, len(stocks))
	for _, s := range stocks {
		index[s.ProductID] = s
	}
	return index
}

// productView is a resolved product reference. Unknown products read as
// "Unknown Product" with no price.
type productView struct {
	name     string
	price    float64
	hasPrice bool
	found    bool
}

const unknownProductName = "Unknown Product"

func (d *reportData) resolveProduct(id int64) productView {
	p, ok := d.productsByID[id]
	if !ok {
		return productView{name: unknownProductName}
	}
	view := productView{name: p.Name, found: true}
	if p.Price != nil {
		view.price = *p.Price
		view.hasPrice = true
	}
	return view
}
