package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/inventory-report-api/internal/dto"
	"github.com/noah-isme/inventory-report-api/internal/models"
	"github.com/noah-isme/inventory-report-api/pkg/export"
	"github.com/noah-isme/inventory-report-api/pkg/storage"
)

type reportGenerator interface {
	Generate(ctx context.Context, req dto.ReportRequest) (*dto.ReportResult, bool, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       export.Format
	ExpiresAt    time.Time
}

// ExportService renders generated reports to files and signs download links.
type ExportService struct {
	reports   reportGenerator
	storage   fileStorage
	renderers map[export.Format]export.Renderer
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService. A nil renderer map selects the built-in renderers.
func NewExportService(reports reportGenerator, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, renderers map[export.Format]export.Renderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if renderers == nil {
		renderers = export.Renderers()
	}
	return &ExportService{
		reports:   reports,
		storage:   store,
		renderers: renderers,
		signer:    signer,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate runs the job's report, renders it and stores the file.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	format, err := export.ParseFormat(job.Format)
	if err != nil {
		return nil, err
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, fmt.Errorf("no renderer for format %s", format)
	}

	result, _, err := s.reports.Generate(ctx, dto.ReportRequest{
		ReportType: string(job.ReportType),
		StartDate:  job.Window.Start,
		EndDate:    job.Window.End,
		Parameters: job.Parameters,
	})
	if err != nil {
		return nil, err
	}

	payload, err := renderer.Render(ReportDataset(result, job.Window))
	if err != nil {
		return nil, fmt.Errorf("render %s export: %w", format, err)
	}

	relPath, err := s.storage.Save(buildFilename(job, renderer.Extension()), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Sign(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api"
	}

	s.logger.Debug("export rendered",
		zap.String("job_id", job.ID),
		zap.String("format", string(format)),
		zap.Int("bytes", len(payload)),
	)
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/reports/export/%s", prefix, token),
		Format:       format,
		ExpiresAt:    expiresAt,
	}, nil
}

// VerifyToken validates download token metadata.
func (s *ExportService) VerifyToken(token string, allowExpired bool) (storage.Claims, error) {
	return s.signer.Verify(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// ContentType returns the MIME type for a stored export format.
func (s *ExportService) ContentType(format string) string {
	f, err := export.ParseFormat(format)
	if err != nil {
		return "application/octet-stream"
	}
	if r, ok := s.renderers[f]; ok {
		return r.ContentType()
	}
	return "application/octet-stream"
}

func buildFilename(job *models.ExportJob, extension string) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s_report_%s_%s.%s", job.ReportType, sanitizeFilename(job.ID), timestamp, extension)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

// ReportDataset flattens a report result into a tabular export dataset.
func ReportDataset(result *dto.ReportResult, window models.DateRange) export.Dataset {
	period := export.Field{Label: "Period", Value: formatWindow(window)}
	switch result.Type {
	case models.ReportTypeInventory:
		return inventoryDataset(result.Inventory, period)
	case models.ReportTypeOrder:
		return orderDataset(result.Order, period)
	case models.ReportTypeSupplier:
		return supplierDataset(result.Supplier, period)
	default:
		return export.Dataset{Title: "Report", Headers: []string{"Message"}, Rows: [][]string{{"unsupported report type"}}}
	}
}

func inventoryDataset(rows []dto.InventoryReportRow, period export.Field) export.Dataset {
	lowStock := 0
	data := make([][]string, 0, len(rows))
	for _, row := range rows {
		if row.IsLowStock {
			lowStock++
		}
		data = append(data, []string{
			strconv.FormatInt(row.ProductID, 10),
			row.ProductName,
			strconv.Itoa(row.InitialStock),
			strconv.Itoa(row.StockAdded),
			strconv.Itoa(row.StockRemoved),
			strconv.Itoa(row.FinalStock),
			strconv.Itoa(row.ReorderLevel),
			yesNo(row.IsLowStock),
		})
	}
	return export.Dataset{
		Title: "Inventory Report",
		Summary: []export.Field{
			period,
			{Label: "Products", Value: strconv.Itoa(len(rows))},
			{Label: "Low Stock", Value: strconv.Itoa(lowStock)},
		},
		Headers: []string{"Product ID", "Product Name", "Initial Stock", "Stock Added", "Stock Removed", "Final Stock", "Reorder Level", "Low Stock"},
		Rows:    data,
	}
}

func orderDataset(summary *dto.OrderReportSummary, period export.Field) export.Dataset {
	if summary == nil {
		summary = &dto.OrderReportSummary{}
	}
	data := make([][]string, 0, len(summary.TopSellingProducts))
	for i, entry := range summary.TopSellingProducts {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			strconv.FormatInt(entry.ProductID, 10),
			entry.ProductName,
			strconv.FormatInt(entry.UnitsSold, 10),
			formatMoney(entry.TotalRevenue),
		})
	}
	return export.Dataset{
		Title: "Order Report",
		Summary: []export.Field{
			period,
			{Label: "Total Orders", Value: strconv.FormatInt(summary.TotalOrders, 10)},
			{Label: "Pending Orders", Value: strconv.FormatInt(summary.PendingOrders, 10)},
			{Label: "Shipped Orders", Value: strconv.FormatInt(summary.ShippedOrders, 10)},
			{Label: "Delivered Orders", Value: strconv.FormatInt(summary.DeliveredOrders, 10)},
			{Label: "Total Revenue", Value: formatMoney(summary.TotalRevenue)},
		},
		Headers: []string{"Rank", "Product ID", "Product Name", "Units Sold", "Revenue"},
		Rows:    data,
	}
}

func supplierDataset(rows []dto.SupplierReportRow, period export.Field) export.Dataset {
	data := make([][]string, 0, len(rows))
	for _, row := range rows {
		data = append(data, []string{
			strconv.FormatInt(row.SupplierID, 10),
			row.SupplierName,
			strconv.FormatInt(row.ProductsSuppliedCount, 10),
			strconv.FormatInt(row.TotalQuantitySupplied, 10),
		})
	}
	return export.Dataset{
		Title:   "Supplier Report",
		Summary: []export.Field{period, {Label: "Suppliers", Value: strconv.Itoa(len(rows))}},
		Headers: []string{"Supplier ID", "Supplier Name", "Products Supplied", "Quantity Supplied"},
		Rows:    data,
	}
}

func formatWindow(window models.DateRange) string {
	start, end := "open", "open"
	if window.Start != nil && !window.Start.IsZero() {
		start = window.Start.String()
	}
	if window.End != nil && !window.End.IsZero() {
		end = window.End.String()
	}
	return start + " to " + end
}

func formatMoney(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
