package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/inventory-report-api/internal/dto"
	"github.com/noah-isme/inventory-report-api/internal/models"
	"github.com/noah-isme/inventory-report-api/internal/repository"
	"github.com/noah-isme/inventory-report-api/pkg/cache"
	appErrors "github.com/noah-isme/inventory-report-api/pkg/errors"
	"github.com/noah-isme/inventory-report-api/pkg/middleware/requestid"
)

// ReportProviders groups the collaborator services reports are built from.
type ReportProviders struct {
	Products  ProductLister
	Stocks    StockLister
	Orders    OrderProvider
	Suppliers SupplierProvider
}

// ReportServiceConfig tunes report generation.
type ReportServiceConfig struct {
	Loaders LoaderConfig
}

// ReportService generates inventory, order and supplier reports on demand.
type ReportService struct {
	providers   ReportProviders
	fetcher     *reportFetcher
	cache       *ReportCache
	metrics     *MetricsService
	diagnostics Diagnostics
	logger      *zap.Logger
	cfg         ReportServiceConfig
}

// NewReportService constructs the report service. cache, metrics and diagnostics may be nil.
func NewReportService(providers ReportProviders, reportCache *ReportCache, metrics *MetricsService, diagnostics Diagnostics, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if diagnostics == nil {
		diagnostics = NewLogDiagnostics(logger, metrics)
	}
	cfg.Loaders = cfg.Loaders.withDefaults()
	return &ReportService{
		providers: providers,
		fetcher: &reportFetcher{
			products:  providers.Products,
			stocks:    providers.Stocks,
			orders:    providers.Orders,
			suppliers: providers.Suppliers,
		},
		cache:       reportCache,
		metrics:     metrics,
		diagnostics: diagnostics,
		logger:      logger,
		cfg:         cfg,
	}
}

// reportRun carries the resolved inputs of one Generate call.
type reportRun struct {
	reportType models.ReportType
	window     models.DateRange
	inventory  models.InventoryFilters
	order      models.OrderFilters
	supplier   models.SupplierFilters
	scope      string
	diag       reportDiagnostics
}

// Generate validates req, builds the requested report and reports whether it was served from cache.
func (s *ReportService) Generate(ctx context.Context, req dto.ReportRequest) (result *dto.ReportResult, cacheHit bool, err error) {
	start := time.Now()
	stage := models.ReportStageValidating
	var reportType models.ReportType

	defer func() {
		fields := []zap.Field{
			zap.String("report_type", string(reportType)),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", requestid.FromContext(ctx)),
		}
		if err != nil {
			s.metrics.ObserveReport(string(reportType), stage, time.Since(start))
			fields = append(fields,
				zap.String("state", string(models.ReportStageFailed)),
				zap.String("failed_stage", string(stage)),
				zap.Error(err),
			)
			s.logger.Warn("report generation failed", fields...)
			return
		}
		s.metrics.ObserveReport(string(reportType), models.ReportStageDone, time.Since(start))
		s.logger.Info("report generated", append(fields, zap.Bool("cache_hit", cacheHit))...)
	}()

	run, err := s.prepare(ctx, req)
	if err != nil {
		return nil, false, err
	}
	reportType = run.reportType

	key := reportCacheKey(run)
	cached, hit, release := s.cache.Claim(ctx, key)
	if hit {
		return cached, true, nil
	}
	defer release()

	stage = models.ReportStageFetching
	data, err := s.fetcher.fetch(ctx, run.reportType, run.window)
	if err != nil {
		return nil, false, err
	}

	stage = models.ReportStageBuilding
	loaders := newReportLoaders(s.providers.Orders, s.providers.Suppliers, run.window, s.cfg.Loaders)
	result = &dto.ReportResult{
		Type:    run.reportType,
		Filters: filterSummary(run.reportType, run.inventory, run.order, run.supplier),
	}
	switch run.reportType {
	case models.ReportTypeInventory:
		result.Inventory = buildInventoryReport(ctx, data, loaders, run.diag)
	case models.ReportTypeOrder:
		result.Order = buildOrderReport(data, run.order, run.diag)
	case models.ReportTypeSupplier:
		result.Supplier = buildSupplierReport(ctx, data, loaders, run.diag)
	}
	if err := ctx.Err(); err != nil {
		return nil, false, providerUnavailable(err)
	}

	stage = models.ReportStageFiltering
	switch run.reportType {
	case models.ReportTypeInventory:
		result.Inventory = filterInventory(result.Inventory, run.inventory)
	case models.ReportTypeSupplier:
		result.Supplier = filterSuppliers(result.Supplier, run.supplier)
	}

	s.cache.Store(ctx, key, result)
	stage = models.ReportStageDone
	return result, false, nil
}

// prepare runs the validating stage: range check, type resolution and filter coercion.
// Nothing here touches a provider.
func (s *ReportService) prepare(ctx context.Context, req dto.ReportRequest) (*reportRun, error) {
	if err := ValidateDateRange(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	reportType, ok := models.ParseReportType(req.ReportType)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidReportType, fmt.Sprintf("Invalid report type: %s", req.ReportType))
	}

	run := &reportRun{
		reportType: reportType,
		window:     models.DateRange{Start: req.StartDate, End: req.EndDate},
		scope:      callerScope(ctx),
		diag:       reportDiagnostics{ctx: ctx, sink: s.diagnostics, reportType: reportType},
	}
	report := func(key string, err error) { run.diag.coercionFailed(key, err) }
	switch reportType {
	case models.ReportTypeInventory:
		run.inventory = CoerceInventoryFilters(req.Parameters, report)
	case models.ReportTypeOrder:
		run.order = CoerceOrderFilters(req.Parameters, report)
	case models.ReportTypeSupplier:
		run.supplier = CoerceSupplierFilters(req.Parameters, report)
	}
	return run, nil
}

// reportCacheKey identifies a report by type, range and coerced filters, so
// "10" and 10 share an entry. Calls that forward credentials get a trailing
// caller segment; anonymous calls keep the unscoped key.
func reportCacheKey(run *reportRun) string {
	var filters interface{}
	switch run.reportType {
	case models.ReportTypeInventory:
		filters = run.inventory
	case models.ReportTypeOrder:
		filters = run.order
	case models.ReportTypeSupplier:
		filters = run.supplier
	}
	encoded, _ := json.Marshal(filters)
	return cache.Key(reportCacheNamespace, string(run.reportType), boundKey(run.window.Start), boundKey(run.window.End), string(encoded), run.scope)
}

// callerScope digests the forwarded Authorization header so entries built with
// one caller's provider view are never served to another.
func callerScope(ctx context.Context) string {
	header := repository.AuthorizationFrom(ctx)
	if header == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(header))
	return "caller-" + hex.EncodeToString(sum[:8])
}

func boundKey(d *models.Date) string {
	if d == nil || d.IsZero() {
		return "-"
	}
	return d.String()
}
