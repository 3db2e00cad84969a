package service

import (
	"context"
	"strconv"

	"github.com/noah-isme/inventory-report-api/internal/dto"
	"github.com/noah-isme/inventory-report-api/internal/models"
)

// buildInventoryReport emits one row per product in provider order.
func buildInventoryReport(ctx context.Context, data *reportData, loaders *reportLoaders, diag reportDiagnostics) []dto.InventoryReportRow {
	ids := make([]int64, len(data.products))
	for i, p := range data.products {
		ids[i] = p.ID
	}
	removed, errs := loadAll(ctx, loaders.soldQuantity, ids)

	rows := make([]dto.InventoryReportRow, 0, len(data.products))
	for i, p := range data.products {
		key := strconv.FormatInt(p.ID, 10)
		row := dto.InventoryReportRow{ProductID: p.ID, ProductName: p.Name}

		if stock, ok := data.stocksByID[p.ID]; ok {
			row.InitialStock = stock.Quantity
			row.ReorderLevel = stock.ReorderLevel
		} else {
			diag.joinMiss("stock", key, "no stock record for product")
		}

		if errs[i] != nil {
			diag.lookupFailed("order_quantity", key, errs[i])
		} else {
			row.StockRemoved = int(removed[i])
		}

		row.FinalStock = row.InitialStock - row.StockRemoved + row.StockAdded
		if row.FinalStock < 0 {
			row.FinalStock = 0
		}
		row.IsLowStock = row.FinalStock < row.ReorderLevel
		rows = append(rows, row)
	}
	return rows
}

// filterInventory keeps rows whose final stock reaches the threshold, preserving order.
func filterInventory(rows []dto.InventoryReportRow, filters models.InventoryFilters) []dto.InventoryReportRow {
	if filters.MinStock == nil {
		return rows
	}
	kept := make([]dto.InventoryReportRow, 0, len(rows))
	for _, row := range rows {
		if row.FinalStock >= *filters.MinStock {
			kept = append(kept, row)
		}
	}
	return kept
}
