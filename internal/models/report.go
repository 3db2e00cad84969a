package models

import "strings"

// ReportType enumerates the supported report categories.
type ReportType string

const (
	ReportTypeInventory ReportType = "inventory"
	ReportTypeOrder     ReportType = "order"
	ReportTypeSupplier  ReportType = "supplier"
)

// ParseReportType resolves a report type case-insensitively, ignoring surrounding whitespace.
func ParseReportType(raw string) (ReportType, bool) {
	switch t := ReportType(strings.ToLower(strings.TrimSpace(raw))); t {
	case ReportTypeInventory, ReportTypeOrder, ReportTypeSupplier:
		return t, true
	default:
		return "", false
	}
}

// ReportStage tracks a report generation run.
type ReportStage string

const (
	ReportStageValidating ReportStage = "validating"
	ReportStageFetching   ReportStage = "fetching"
	ReportStageBuilding   ReportStage = "building"
	ReportStageFiltering  ReportStage = "filtering"
	ReportStageDone       ReportStage = "done"
	ReportStageFailed     ReportStage = "failed"
)

// DateRange bounds provider queries. Either side may be unset.
type DateRange struct {
	Start *Date
	End   *Date
}

// InventoryFilters are the typed inventory report parameters.
type InventoryFilters struct {
	MinStock *int `json:"minStock,omitempty"`
}

// OrderFilters are the typed order report parameters. Status is stored quote-stripped.
type OrderFilters struct {
	Status     *string `json:"status,omitempty"`
	CustomerID *int64  `json:"customerId,omitempty"`
}

// SupplierFilters are the typed supplier report parameters.
type SupplierFilters struct {
	MinProductsSupplied *int64 `json:"minProductsSupplied,omitempty"`
}
