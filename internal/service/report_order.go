package service

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/inventory-report-api/internal/dto"
	"github.com/noah-isme/inventory-report-api/internal/models"
)

// filterOrders applies the status then customer filters.
func filterOrders(orders []models.Order, filters models.OrderFilters) []models.Order {
	if filters.Status == nil && filters.CustomerID == nil {
		return orders
	}
	kept := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if filters.Status != nil && !statusMatches(o.Status, *filters.Status) {
			continue
		}
		if filters.CustomerID != nil && o.CustomerID != *filters.CustomerID {
			continue
		}
		kept = append(kept, o)
	}
	return kept
}

func buildOrderReport(data *reportData, filters models.OrderFilters, diag reportDiagnostics) *dto.OrderReportSummary {
	orders := filterOrders(data.orders, filters)

	summary := &dto.OrderReportSummary{TotalOrders: int64(len(orders))}
	revenue := decimal.Zero
	for _, o := range orders {
		switch {
		case statusMatches(o.Status, models.OrderStatusPending):
			summary.PendingOrders++
		case statusMatches(o.Status, models.OrderStatusShipped):
			summary.ShippedOrders++
		case statusMatches(o.Status, models.OrderStatusDelivered):
			summary.DeliveredOrders++
		}

		product := data.resolveProduct(o.ProductID)
		if !product.hasPrice {
			detail := "product not found"
			if product.found {
				detail = "product has no price"
			}
			diag.joinMiss("product", strconv.FormatInt(o.ProductID, 10), detail+" for order "+strconv.FormatInt(o.OrderID, 10))
			continue
		}
		revenue = revenue.Add(decimal.NewFromInt(int64(o.Quantity)).Mul(decimal.NewFromFloat(product.price)))
	}
	summary.TotalRevenue = revenue.InexactFloat64()
	summary.TopSellingProducts = rankTopSelling(orders, data)
	return summary
}

// rankTopSelling groups orders by product and sorts by units sold, highest first.
// Equal unit counts fall back to ascending product id.
func rankTopSelling(orders []models.Order, data *reportData) []dto.TopSellingEntry {
	units := make(map[int64]int64)
	for _, o := range orders {
		units[o.ProductID] += int64(o.Quantity)
	}

	entries := make([]dto.TopSellingEntry, 0, len(units))
	for productID, sold := range units {
		product := data.resolveProduct(productID)
		entry := dto.TopSellingEntry{
			ProductID:   productID,
			ProductName: product.name,
			UnitsSold:   sold,
		}
		if product.hasPrice {
			entry.TotalRevenue = decimal.NewFromInt(sold).Mul(decimal.NewFromFloat(product.price)).InexactFloat64()
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].UnitsSold != entries[j].UnitsSold {
			return entries[i].UnitsSold > entries[j].UnitsSold
		}
		return entries[i].ProductID < entries[j].ProductID
	})
	return entries
}
