package service

import (
	"context"
	"strconv"

	"github.com/noah-isme/inventory-report-api/internal/dto"
	"github.com/noah-isme/inventory-report-api/internal/models"
)

// buildSupplierReport emits one row per supplier in provider order.
func buildSupplierReport(ctx context.Context, data *reportData, loaders *reportLoaders, diag reportDiagnostics) []dto.SupplierReportRow {
	ids := make([]int64, len(data.suppliers))
	for i, s := range data.suppliers {
		ids[i] = s.SupplierID
	}
	counts, errs := loadAll(ctx, loaders.suppliedCount, ids)
	quantities := quantityBySupplier(data, diag)

	rows := make([]dto.SupplierReportRow, 0, len(data.suppliers))
	for i, s := range data.suppliers {
		row := dto.SupplierReportRow{
			SupplierID:            s.SupplierID,
			SupplierName:          s.Name,
			TotalQuantitySupplied: quantities[s.SupplierID],
		}
		if errs[i] != nil {
			diag.lookupFailed("supplied_product_count", strconv.FormatInt(s.SupplierID, 10), errs[i])
		} else {
			row.ProductsSuppliedCount = counts[i]
		}
		rows = append(rows, row)
	}
	return rows
}

// quantityBySupplier sums ordered quantity per supplier of the ordered product.
// Orders for unknown products or products without a supplier count toward nobody.
func quantityBySupplier(data *reportData, diag reportDiagnostics) map[int64]int64 {
	totals := make(map[int64]int64)
	missing := make(map[int64]struct{})
	for _, o := range data.orders {
		product, ok := data.productsByID[o.ProductID]
		if !ok {
			if _, seen := missing[o.ProductID]; !seen {
				missing[o.ProductID] = struct{}{}
				diag.joinMiss("product", strconv.FormatInt(o.ProductID, 10), "ordered product not found")
			}
			continue
		}
		if product.SupplierID == nil {
			continue
		}
		totals[*product.SupplierID] += int64(o.Quantity)
	}
	return totals
}

// filterSuppliers keeps rows whose supplied-product count reaches the threshold.
func filterSuppliers(rows []dto.SupplierReportRow, filters models.SupplierFilters) []dto.SupplierReportRow {
	if filters.MinProductsSupplied == nil {
		return rows
	}
	kept := make([]dto.SupplierReportRow, 0, len(rows))
	for _, row := range rows {
		if row.ProductsSuppliedCount >= *filters.MinProductsSupplied {
			kept = append(kept, row)
		}
	}
	return kept
}
