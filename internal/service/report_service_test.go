package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/inventory-report-api/internal/dto"
	"github.com/noah-isme/inventory-report-api/internal/models"
	"github.com/noah-isme/inventory-report-api/internal/repository"
	appErrors "github.com/noah-isme/inventory-report-api/pkg/errors"
)

type productListerStub struct {
	products []models.Product
	err      error
	calls    int32
}

func (s *productListerStub) List(ctx context.Context) ([]models.Product, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.products, s.err
}

type stockListerStub struct {
	stocks []models.Stock
	err    error
	calls  int32
}

func (s *stockListerStub) List(ctx context.Context) ([]models.Stock, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.stocks, s.err
}

type orderProviderStub struct {
	mu         sync.Mutex
	orders     []models.Order
	listErr    error
	sums       map[int64]int64
	sumErrs    map[int64]error
	listCalls  int
	sumCalls   map[int64]int
	lastWindow models.DateRange
}

func (s *orderProviderStub) ListByDateRange(ctx context.Context, window models.DateRange) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	s.lastWindow = window
	return s.orders, s.listErr
}

func (s *orderProviderStub) SumQuantityByProduct(ctx context.Context, productID int64, window models.DateRange) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sumCalls == nil {
		s.sumCalls = map[int64]int{}
	}
	s.sumCalls[productID]++
	if err := s.sumErrs[productID]; err != nil {
		return 0, err
	}
	return s.sums[productID], nil
}

type supplierProviderStub struct {
	mu        sync.Mutex
	suppliers []models.Supplier
	listErr   error
	counts    map[int64]int64
	countErrs map[int64]error
	listCalls int
}

func (s *supplierProviderStub) List(ctx context.Context) ([]models.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	return s.suppliers, s.listErr
}

func (s *supplierProviderStub) CountSuppliedProducts(ctx context.Context, supplierID int64) (int64, error) {
	if err := s.countErrs[supplierID]; err != nil {
		return 0, err
	}
	return s.counts[supplierID], nil
}

type reportFixture struct {
	products  *productListerStub
	stocks    *stockListerStub
	orders    *orderProviderStub
	suppliers *supplierProviderStub
	diag      *RecordingDiagnostics
}

func newReportFixture() *reportFixture {
	return &reportFixture{
		products:  &productListerStub{},
		stocks:    &stockListerStub{},
		orders:    &orderProviderStub{},
		suppliers: &supplierProviderStub{},
		diag:      &RecordingDiagnostics{},
	}
}

func (f *reportFixture) service() *ReportService {
	return f.serviceWithCache(nil)
}

func (f *reportFixture) serviceWithCache(cache *ReportCache) *ReportService {
	return NewReportService(ReportProviders{
		Products:  f.products,
		Stocks:    f.stocks,
		Orders:    f.orders,
		Suppliers: f.suppliers,
	}, cache, NewMetricsService(), f.diag, zap.NewNop(), ReportServiceConfig{
		Loaders: LoaderConfig{MaxConcurrency: 4, BatchWait: time.Millisecond},
	})
}

func price(v float64) *float64 { return &v }
func supplierRef(v int64) *int64 { return &v }

func date(t *testing.T, raw string) *models.Date {
	t.Helper()
	d, err := models.ParseDate(raw)
	require.NoError(t, err)
	return &d
}

func TestGenerateRejectsInvertedRangeBeforeProviderCalls(t *testing.T) {
	f := newReportFixture()
	svc := f.service()

	for _, reportType := range []string{"inventory", "order", "supplier", "bogus"} {
		_, _, err := svc.Generate(context.Background(), dto.ReportRequest{
			ReportType: reportType,
			StartDate:  date(t, "2024-02-01"),
			EndDate:    date(t, "2024-01-01"),
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, appErrors.ErrInvalidDateRange), reportType)
		assert.Equal(t, "End date cannot be before the start date.", appErrors.FromError(err).Message)
	}

	assert.Zero(t, atomic.LoadInt32(&f.products.calls))
	assert.Zero(t, atomic.LoadInt32(&f.stocks.calls))
	assert.Zero(t, f.orders.listCalls)
	assert.Zero(t, f.suppliers.listCalls)
}

func TestGenerateAcceptsSameDayAndOpenRanges(t *testing.T) {
	f := newReportFixture()
	svc := f.service()

	_, _, err := svc.Generate(context.Background(), dto.ReportRequest{ReportType: "order", StartDate: date(t, "2024-01-01"), EndDate: date(t, "2024-01-01")})
	require.NoError(t, err)
	_, _, err = svc.Generate(context.Background(), dto.ReportRequest{ReportType: "order", EndDate: date(t, "2024-01-01")})
	require.NoError(t, err)
	assert.Nil(t, f.orders.lastWindow.Start)
	require.NotNil(t, f.orders.lastWindow.End)
	assert.Equal(t, "2024-01-01", f.orders.lastWindow.End.String())
}

func TestGenerateRejectsUnknownReportType(t *testing.T) {
	f := newReportFixture()
	_, _, err := f.service().Generate(context.Background(), dto.ReportRequest{ReportType: "sales"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidReportType))
	assert.Equal(t, "Invalid report type: sales", appErrors.FromError(err).Message)
	assert.Zero(t, atomic.LoadInt32(&f.products.calls))
}

func TestGenerateResolvesReportTypeCaseInsensitively(t *testing.T) {
	f := newReportFixture()
	result, _, err := f.service().Generate(context.Background(), dto.ReportRequest{ReportType: "  INVENTORY "})
	require.NoError(t, err)
	assert.Equal(t, models.ReportTypeInventory, result.Type)
	assert.Equal(t, []dto.InventoryReportRow{}, result.Payload())
}

func TestInventoryReportWorkedExample(t *testing.T) {
	f := newReportFixture()
	f.products.products = []models.Product{{ID: 1, Name: "Widget", Price: price(300)}}
	f.stocks.stocks = []models.Stock{{ProductID: 1, Quantity: 40, ReorderLevel: 10}}
	f.orders.sums = map[int64]int64{1: 5}

	result, cacheHit, err := f.service().Generate(context.Background(), dto.ReportRequest{
		ReportType: "inventory",
		StartDate:  date(t, "2024-01-01"),
		EndDate:    date(t, "2024-01-31"),
	})
	require.NoError(t, err)
	assert.False(t, cacheHit)
	require.Len(t, result.Inventory, 1)
	assert.Equal(t, dto.InventoryReportRow{
		ProductID:    1,
		ProductName:  "Widget",
		InitialStock: 40,
		StockAdded:   0,
		StockRemoved: 5,
		FinalStock:   35,
		ReorderLevel: 10,
		IsLowStock:   false,
	}, result.Inventory[0])
	assert.Empty(t, f.diag.Events())
}

func TestInventoryReportDerivesFinalStockAndDegrades(t *testing.T) {
	f := newReportFixture()
	f.products.products = []models.Product{
		{ID: 1, Name: "Oversold"},
		{ID: 2, Name: "No stock record"},
		{ID: 3, Name: "Lookup fails"},
		{ID: 4, Name: "Low"},
	}
	f.stocks.stocks = []models.Stock{
		{ProductID: 1, Quantity: 3, ReorderLevel: 1},
		{ProductID: 3, Quantity: 12, ReorderLevel: 2},
		{ProductID: 4, Quantity: 9, ReorderLevel: 8},
	}
	f.orders.sums = map[int64]int64{1: 10, 2: 4, 4: 2}
	f.orders.sumErrs = map[int64]error{3: errors.New("order service timeout")}

	result, _, err := f.service().Generate(context.Background(), dto.ReportRequest{ReportType: "inventory"})
	require.NoError(t, err)
	require.Len(t, result.Inventory, 4)

	for _, row := range result.Inventory {
		expected := row.InitialStock - row.StockRemoved + row.StockAdded
		if expected < 0 {
			expected = 0
		}
		assert.Equal(t, expected, row.FinalStock, "product %d", row.ProductID)
		assert.Equal(t, row.FinalStock < row.ReorderLevel, row.IsLowStock, "product %d", row.ProductID)
	}

	ids := []int64{}
	for _, row := range result.Inventory {
		ids = append(ids, row.ProductID)
	}
	assert.Equal(t, []int64{1, 2, 3, 4}, ids)

	assert.Equal(t, 0, result.Inventory[0].FinalStock)
	assert.Equal(t, 0, result.Inventory[1].InitialStock)
	assert.Equal(t, 0, result.Inventory[1].ReorderLevel)
	assert.Equal(t, 0, result.Inventory[2].StockRemoved)
	assert.Equal(t, 12, result.Inventory[2].FinalStock)
	assert.True(t, result.Inventory[3].IsLowStock)

	assert.Equal(t, 1, f.diag.Count(DiagnosticRecordJoinMiss))
	assert.Equal(t, 1, f.diag.Count(DiagnosticLookupFailure))
	for _, event := range f.diag.Events() {
		assert.Equal(t, models.ReportTypeInventory, event.ReportType)
	}
}

func TestInventoryMinStockPartitionsRows(t *testing.T) {
	f := newReportFixture()
	f.products.products = []models.Product{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}, {ID: 3, Name: "C"}}
	f.stocks.stocks = []models.Stock{
		{ProductID: 1, Quantity: 5},
		{ProductID: 2, Quantity: 10},
		{ProductID: 3, Quantity: 20},
	}
	svc := f.service()

	all, _, err := svc.Generate(context.Background(), dto.ReportRequest{ReportType: "inventory"})
	require.NoError(t, err)

	for _, raw := range []interface{}{10, "10", " 10 ", float64(10)} {
		kept, _, err := svc.Generate(context.Background(), dto.ReportRequest{
			ReportType: "inventory",
			Parameters: map[string]interface{}{"minStock": raw},
		})
		require.NoError(t, err)
		assert.Len(t, kept.Inventory, 2, "minStock %#v", raw)
		for _, row := range kept.Inventory {
			assert.GreaterOrEqual(t, row.FinalStock, 10)
		}
		dropped := 0
		for _, row := range all.Inventory {
			if row.FinalStock < 10 {
				dropped++
			}
		}
		assert.Equal(t, len(all.Inventory), len(kept.Inventory)+dropped)
		assert.Equal(t, map[string]interface{}{"minStock": 10}, kept.Filters)
	}
}

func TestInventoryUnparseableMinStockIsIgnored(t *testing.T) {
	f := newReportFixture()
	f.products.products = []models.Product{{ID: 1, Name: "A"}}

	result, _, err := f.service().Generate(context.Background(), dto.ReportRequest{
		ReportType: "inventory",
		Parameters: map[string]interface{}{"minStock": "abc"},
	})
	require.NoError(t, err)
	assert.Len(t, result.Inventory, 1)
	assert.Equal(t, 1, f.diag.Count(DiagnosticParameterCoercionFailure))
	assert.Empty(t, result.Filters)
}

func TestOrderReportWorkedExample(t *testing.T) {
	f := newReportFixture()
	f.products.products = []models.Product{{ID: 1, Name: "Widget", Price: price(300)}}
	f.orders.orders = []models.Order{
		{OrderID: 1, CustomerID: 101, ProductID: 1, Quantity: 2, Status: "Delivered"},
		{OrderID: 2, CustomerID: 101, ProductID: 1, Quantity: 3, Status: "Delivered"},
		{OrderID: 3, CustomerID: 102, ProductID: 1, Quantity: 1, Status: "Shipped"},
	}

	result, _, err := f.service().Generate(context.Background(), dto.ReportRequest{
		ReportType: "order",
		Parameters: map[string]interface{}{"status": "Delivered", "customerId": 101},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Order)

	summary := result.Order
	assert.Equal(t, int64(2), summary.TotalOrders)
	assert.Equal(t, int64(2), summary.DeliveredOrders)
	assert.Zero(t, summary.PendingOrders)
	assert.Zero(t, summary.ShippedOrders)
	assert.Equal(t, 1500.0, summary.TotalRevenue)
	assert.Equal(t, []dto.TopSellingEntry{{ProductID: 1, ProductName: "Widget", UnitsSold: 5, TotalRevenue: 1500.0}}, summary.TopSellingProducts)
}

func TestOrderReportStatusFilterStripsQuotesAndIgnoresCase(t *testing.T) {
	f := newReportFixture()
	f.orders.orders = []models.Order{
		{OrderID: 1, ProductID: 1, Quantity: 1, Status: "'delivered'"},
		{OrderID: 2, ProductID: 1, Quantity: 1, Status: "DELIVERED"},
		{OrderID: 3, ProductID: 1, Quantity: 1, Status: "Pending"},
	}

	result, _, err := f.service().Generate(context.Background(), dto.ReportRequest{
		ReportType: "order",
		Parameters: map[string]interface{}{"status": "'Delivered'", "customerId": "not-a-number"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Order.TotalOrders)
	assert.Equal(t, int64(2), result.Order.DeliveredOrders)
	assert.Equal(t, 1, f.diag.Count(DiagnosticParameterCoercionFailure))
}

func TestOrderReportQuotedEmptyStatusMatchesOnlyEmptyStatuses(t *testing.T) {
	f := newReportFixture()
	f.orders.orders = []models.Order{
		{OrderID: 1, ProductID: 1, Quantity: 1, Status: ""},
		{OrderID: 2, ProductID: 1, Quantity: 1, Status: "Delivered"},
		{OrderID: 3, ProductID: 1, Quantity: 1, Status: "Pending"},
		{OrderID: 4, ProductID: 1, Quantity: 1, Status: "Shipped"},
	}

	result, _, err := f.service().Generate(context.Background(), dto.ReportRequest{
		ReportType: "order",
		Parameters: map[string]interface{}{"status": "''"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Order.TotalOrders)

	result, _, err = f.service().Generate(context.Background(), dto.ReportRequest{
		ReportType: "order",
		Parameters: map[string]interface{}{"status": ""},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), result.Order.TotalOrders)
}

func TestOrderReportBucketsNeverExceedTotal(t *testing.T) {
	f := newReportFixture()
	f.orders.orders = []models.Order{
		{OrderID: 1, ProductID: 1, Quantity: 1, Status: "Pending"},
		{OrderID: 2, ProductID: 1, Quantity: 1, Status: "Shipped"},
		{OrderID: 3, ProductID: 1, Quantity: 1, Status: "Cancelled"},
		{OrderID: 4, ProductID: 1, Quantity: 1, Status: ""},
		{OrderID: 5, ProductID: 1, Quantity: 1, Status: "delivered"},
	}

	result, _, err := f.service().Generate(context.Background(), dto.ReportRequest{ReportType: "order"})
	require.NoError(t, err)
	s := result.Order
	assert.Equal(t, int64(5), s.TotalOrders)
	assert.LessOrEqual(t, s.PendingOrders+s.ShippedOrders+s.DeliveredOrders, s.TotalOrders)
	assert.Equal(t, int64(1), s.PendingOrders)
	assert.Equal(t, int64(1), s.ShippedOrders)
	assert.Equal(t, int64(1), s.DeliveredOrders)
}

func TestOrderReportRevenueWithUnknownProduct(t *testing.T) {
	f := newReportFixture()
	f.products.products = []models.Product{
		{ID: 1, Name: "Priced", Price: price(2.5)},
		{ID: 3, Name: "Unpriced"},
	}
	f.orders.orders = []models.Order{
		{OrderID: 1, ProductID: 1, Quantity: 4, Status: "Pending"},
		{OrderID: 2, ProductID: 2, Quantity: 7, Status: "Pending"},
		{OrderID: 3, ProductID: 3, Quantity: 1, Status: "Pending"},
	}

	result, _, err := f.service().Generate(context.Background(), dto.ReportRequest{ReportType: "order"})
	require.NoError(t, err)
	s := result.Order
	assert.Equal(t, 10.0, s.TotalRevenue)
	assert.Equal(t, int64(3), s.TotalOrders)
	assert.Equal(t, 2, f.diag.Count(DiagnosticRecordJoinMiss))

	require.Len(t, s.TopSellingProducts, 3)
	assert.Equal(t, dto.TopSellingEntry{ProductID: 2, ProductName: "Unknown Product", UnitsSold: 7, TotalRevenue: 0}, s.TopSellingProducts[0])
	assert.Equal(t, "Priced", s.TopSellingProducts[1].ProductName)
	assert.Equal(t, 10.0, s.TopSellingProducts[1].TotalRevenue)
	assert.Equal(t, 0.0, s.TopSellingProducts[2].TotalRevenue)
}

func TestOrderReportRevenueAvoidsFloatDrift(t *testing.T) {
	f := newReportFixture()
	f.products.products = []models.Product{{ID: 1, Name: "Dime", Price: price(0.1)}}
	orders := make([]models.Order, 0, 10)
	for i := 0; i < 10; i++ {
		orders = append(orders, models.Order{OrderID: int64(i), ProductID: 1, Quantity: 1})
	}
	f.orders.orders = orders

	result, _, err := f.service().Generate(context.Background(), dto.ReportRequest{ReportType: "order"})
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.Order.TotalRevenue)
}

func TestRankTopSellingSortsAndConservesUnits(t *testing.T) {
	data := &reportData{productsByID: indexProducts([]models.Product{
		{ID: 1, Name: "One", Price: price(1)},
		{ID: 2, Name: "Two", Price: price(2)},
		{ID: 3, Name: "Three", Price: price(3)},
		{ID: 9, Name: "Nine", Price: price(9)},
	})}
	orders := []models.Order{
		{ProductID: 9, Quantity: 4},
		{ProductID: 2, Quantity: 1},
		{ProductID: 3, Quantity: 6},
		{ProductID: 1, Quantity: 3},
		{ProductID: 2, Quantity: 3},
		{ProductID: 1, Quantity: 1},
	}

	ranked := rankTopSelling(orders, data)
	require.Len(t, ranked, 4)

	ids := make([]int64, len(ranked))
	var total int64
	for i, entry := range ranked {
		ids[i] = entry.ProductID
		total += entry.UnitsSold
		if i > 0 {
			assert.GreaterOrEqual(t, ranked[i-1].UnitsSold, entry.UnitsSold)
		}
	}
	// 1, 2 and 9 all sold 4 units and fall back to id order
	assert.Equal(t, []int64{3, 1, 2, 9}, ids)
	assert.Equal(t, int64(18), total)
	assert.Equal(t, 36.0, ranked[3].TotalRevenue)
}

func TestOrderReportEmptyTopSellingIsNotNil(t *testing.T) {
	f := newReportFixture()
	result, _, err := f.service().Generate(context.Background(), dto.ReportRequest{ReportType: "order"})
	require.NoError(t, err)
	require.NotNil(t, result.Order.TopSellingProducts)
	assert.Empty(t, result.Order.TopSellingProducts)
}

func TestSupplierReportCountsAndQuantities(t *testing.T) {
	f := newReportFixture()
	f.suppliers.suppliers = []models.Supplier{
		{SupplierID: 20, Name: "Beta", ProductsSupplied: []string{"1"}},
		{SupplierID: 10, Name: "Alpha", ProductsSupplied: []string{"2", "3"}},
		{SupplierID: 30, Name: "Gamma"},
	}
	f.suppliers.counts = map[int64]int64{10: 2, 20: 5}
	f.suppliers.countErrs = map[int64]error{30: errors.New("supplier service down")}
	f.products.products = []models.Product{
		{ID: 1, Name: "A", SupplierID: supplierRef(20)},
		{ID: 2, Name: "B", SupplierID: supplierRef(10)},
		{ID: 3, Name: "C", SupplierID: supplierRef(10)},
		{ID: 4, Name: "D"},
	}
	f.orders.orders = []models.Order{
		{OrderID: 1, ProductID: 1, Quantity: 3},
		{OrderID: 2, ProductID: 2, Quantity: 4},
		{OrderID: 3, ProductID: 3, Quantity: 5},
		{OrderID: 4, ProductID: 4, Quantity: 100},
		{OrderID: 5, ProductID: 99, Quantity: 100},
	}

	result, _, err := f.service().Generate(context.Background(), dto.ReportRequest{ReportType: "supplier"})
	require.NoError(t, err)
	assert.Equal(t, []dto.SupplierReportRow{
		{SupplierID: 20, SupplierName: "Beta", ProductsSuppliedCount: 5, TotalQuantitySupplied: 3},
		{SupplierID: 10, SupplierName: "Alpha", ProductsSuppliedCount: 2, TotalQuantitySupplied: 9},
		{SupplierID: 30, SupplierName: "Gamma", ProductsSuppliedCount: 0, TotalQuantitySupplied: 0},
	}, result.Supplier)
	assert.Equal(t, 1, f.diag.Count(DiagnosticLookupFailure))
	assert.Equal(t, 1, f.diag.Count(DiagnosticRecordJoinMiss))
	assert.Equal(t, 1, f.orders.listCalls)
}

func TestSupplierMinProductsSuppliedIsExact(t *testing.T) {
	f := newReportFixture()
	f.suppliers.suppliers = []models.Supplier{{SupplierID: 1, Name: "A"}, {SupplierID: 2, Name: "B"}, {SupplierID: 3, Name: "C"}}
	f.suppliers.counts = map[int64]int64{1: 2, 2: 3, 3: 4}

	result, _, err := f.service().Generate(context.Background(), dto.ReportRequest{
		ReportType: "supplier",
		Parameters: map[string]interface{}{"minProductsSupplied": "3"},
	})
	require.NoError(t, err)
	require.Len(t, result.Supplier, 2)
	assert.Equal(t, int64(2), result.Supplier[0].SupplierID)
	assert.Equal(t, int64(3), result.Supplier[1].SupplierID)
}

func TestGenerateWrapsListFailures(t *testing.T) {
	cases := map[string]func(f *reportFixture){
		"inventory": func(f *reportFixture) { f.stocks.err = errors.New("stock service 503") },
		"order":     func(f *reportFixture) { f.orders.listErr = errors.New("order service 503") },
		"supplier":  func(f *reportFixture) { f.suppliers.listErr = errors.New("supplier service 503") },
	}
	for reportType, breakProvider := range cases {
		t.Run(reportType, func(t *testing.T) {
			f := newReportFixture()
			breakProvider(f)
			_, _, err := f.service().Generate(context.Background(), dto.ReportRequest{ReportType: reportType})
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrProviderUnavailable))
			appErr := appErrors.FromError(err)
			assert.Equal(t, 500, appErr.Status)
			assert.Equal(t, "failed to generate report", appErr.Message)
		})
	}
}

func TestGenerateBatchesDuplicateLookups(t *testing.T) {
	f := newReportFixture()
	f.products.products = []models.Product{{ID: 7, Name: "First"}, {ID: 7, Name: "Again"}}
	f.orders.sums = map[int64]int64{7: 1}

	result, _, err := f.service().Generate(context.Background(), dto.ReportRequest{ReportType: "inventory"})
	require.NoError(t, err)
	assert.Len(t, result.Inventory, 2)
	assert.Equal(t, 1, f.orders.sumCalls[7])
}

type memoryCacheRepo struct {
	mu       sync.Mutex
	entries  map[string]interface{}
	locks    int
	purged   []string
	lockErr  error
	onLocked func()
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*dto.ReportResult)) = *(v.(*dto.ReportResult))
	return nil
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = map[string]interface{}{}
	}
	m.entries[key] = value
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purged = append(m.purged, pattern)
	return nil
}

func (m *memoryCacheRepo) Lock(ctx context.Context, key string, ttl, wait time.Duration) (func(), error) {
	m.mu.Lock()
	m.locks++
	err, hook := m.lockErr, m.onLocked
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if hook != nil {
		hook()
	}
	return func() {}, nil
}

func TestGenerateServesCoercedEquivalentRequestsFromCache(t *testing.T) {
	f := newReportFixture()
	f.products.products = []models.Product{{ID: 1, Name: "A"}}
	f.stocks.stocks = []models.Stock{{ProductID: 1, Quantity: 50}}
	repo := &memoryCacheRepo{}
	svc := f.serviceWithCache(NewReportCache(repo, nil, time.Minute, zap.NewNop(), true))

	first, hit, err := svc.Generate(context.Background(), dto.ReportRequest{
		ReportType: "inventory",
		StartDate:  date(t, "2024-01-01"),
		Parameters: map[string]interface{}{"minStock": 10},
	})
	require.NoError(t, err)
	assert.False(t, hit)

	second, hit, err := svc.Generate(context.Background(), dto.ReportRequest{
		ReportType: "Inventory",
		StartDate:  date(t, "2024-01-01"),
		Parameters: map[string]interface{}{"minStock": "10"},
	})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first.Inventory, second.Inventory)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.products.calls))
	assert.Equal(t, 1, repo.locks)

	_, hit, err = svc.Generate(context.Background(), dto.ReportRequest{ReportType: "inventory", StartDate: date(t, "2024-01-01")})
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestReportCacheKeyDistinguishesOpenBounds(t *testing.T) {
	d := date(t, "2024-01-01")
	startOnly := reportCacheKey(&reportRun{reportType: models.ReportTypeOrder, window: models.DateRange{Start: d}})
	endOnly := reportCacheKey(&reportRun{reportType: models.ReportTypeOrder, window: models.DateRange{End: d}})
	assert.NotEqual(t, startOnly, endOnly)
	assert.Equal(t, `reports:order:2024-01-01:-:{}`, startOnly)
}

func TestGenerateScopesCacheEntriesByForwardedAuthorization(t *testing.T) {
	f := newReportFixture()
	f.products.products = []models.Product{{ID: 1, Name: "A"}}
	f.stocks.stocks = []models.Stock{{ProductID: 1, Quantity: 50}}
	svc := f.serviceWithCache(NewReportCache(&memoryCacheRepo{}, nil, time.Minute, zap.NewNop(), true))
	req := dto.ReportRequest{ReportType: "inventory", StartDate: date(t, "2024-01-01")}

	alice := repository.WithAuthorization(context.Background(), "Bearer alice-token")
	bob := repository.WithAuthorization(context.Background(), "Bearer bob-token")

	_, hit, err := svc.Generate(alice, req)
	require.NoError(t, err)
	assert.False(t, hit)

	_, hit, err = svc.Generate(bob, req)
	require.NoError(t, err)
	assert.False(t, hit)

	_, hit, err = svc.Generate(alice, req)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.products.calls))
}

func TestReportCacheKeyAppendsCallerScopeOnlyWithAuthorization(t *testing.T) {
	d := date(t, "2024-01-01")
	anonymous := &reportRun{reportType: models.ReportTypeOrder, window: models.DateRange{Start: d}, scope: callerScope(context.Background())}
	assert.Equal(t, `reports:order:2024-01-01:-:{}`, reportCacheKey(anonymous))

	scoped := &reportRun{reportType: models.ReportTypeOrder, window: models.DateRange{Start: d},
		scope: callerScope(repository.WithAuthorization(context.Background(), "Bearer alice-token"))}
	key := reportCacheKey(scoped)
	assert.Regexp(t, `^reports:order:2024-01-01:-:\{\}:caller-[0-9a-f]{16}$`, key)
	assert.NotContains(t, key, "alice-token")
}
