package service

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/noah-isme/inventory-report-api/internal/models"
)

// Parameter keys understood by the report builders.
const (
	ParamMinStock            = "minStock"
	ParamStatus              = "status"
	ParamCustomerID          = "customerId"
	ParamMinProductsSupplied = "minProductsSupplied"
)

// CoercionReporter is told about every parameter that was present but unusable.
type CoercionReporter func(key string, err error)

// CoerceInventoryFilters extracts the inventory report filters from a parameter bag.
func CoerceInventoryFilters(params map[string]interface{}, report CoercionReporter) models.InventoryFilters {
	var filters models.InventoryFilters
	if v, ok := lookupParam(params, ParamMinStock); ok {
		n, err := coerceInt(v)
		if err != nil {
			reportCoercion(report, ParamMinStock, err)
		} else {
			filters.MinStock = &n
		}
	}
	return filters
}

// CoerceOrderFilters extracts the order report filters from a parameter bag.
func CoerceOrderFilters(params map[string]interface{}, report CoercionReporter) models.OrderFilters {
	var filters models.OrderFilters
	if v, ok := lookupParam(params, ParamStatus); ok {
		status, present, err := coerceStatus(v)
		switch {
		case err != nil:
			reportCoercion(report, ParamStatus, err)
		case present:
			filters.Status = &status
		}
	}
	if v, ok := lookupParam(params, ParamCustomerID); ok {
		id, err := coerceInt64(v)
		if err != nil {
			reportCoercion(report, ParamCustomerID, err)
		} else {
			filters.CustomerID = &id
		}
	}
	return filters
}

// CoerceSupplierFilters extracts the supplier report filters from a parameter bag.
func CoerceSupplierFilters(params map[string]interface{}, report CoercionReporter) models.SupplierFilters {
	var filters models.SupplierFilters
	if v, ok := lookupParam(params, ParamMinProductsSupplied); ok {
		n, err := coerceInt64(v)
		if err != nil {
			reportCoercion(report, ParamMinProductsSupplied, err)
		} else {
			filters.MinProductsSupplied = &n
		}
	}
	return filters
}

// lookupParam treats an explicit null like an absent key.
func lookupParam(params map[string]interface{}, key string) (interface{}, bool) {
	v, ok := params[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func reportCoercion(report CoercionReporter, key string, err error) {
	if report != nil {
		report(key, err)
	}
}

// coerceInt converts v to a 32-bit integer.
func coerceInt(v interface{}) (int, error) {
	n, err := coerceInteger(v, 32)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// coerceInt64 converts v to a 64-bit integer.
func coerceInt64(v interface{}) (int64, error) {
	return coerceInteger(v, 64)
}

func coerceInteger(v interface{}, bits int) (int64, error) {
	min, max := int64(math.MinInt64), int64(math.MaxInt64)
	if bits == 32 {
		min, max = math.MinInt32, math.MaxInt32
	}
	inRange := func(n int64) (int64, error) {
		if n < min || n > max {
			return 0, fmt.Errorf("value %d overflows %d-bit integer", n, bits)
		}
		return n, nil
	}

	switch t := v.(type) {
	case int:
		return inRange(int64(t))
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return inRange(t)
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return inRange(int64(t))
	case uint:
		if uint64(t) > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows %d-bit integer", t, bits)
		}
		return inRange(int64(t))
	case uint64:
		if t > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows %d-bit integer", t, bits)
		}
		return inRange(int64(t))
	case float64:
		return floatToInt(t, bits, inRange)
	case float32:
		return floatToInt(float64(t), bits, inRange)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return inRange(n)
		}
		f, err := t.Float64()
		if err != nil {
			return 0, fmt.Errorf("value %q is not a number", t.String())
		}
		return floatToInt(f, bits, inRange)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, bits)
		if err != nil {
			return 0, fmt.Errorf("value %q is not a %d-bit integer", t, bits)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("value of type %T is not an integer", v)
	}
}

func floatToInt(f float64, bits int, inRange func(int64) (int64, error)) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("value %v is not an integer", f)
	}
	// 2^63 itself is not representable as int64
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("value %v overflows %d-bit integer", f, bits)
	}
	return inRange(int64(f))
}

// coerceStatus accepts only strings. An empty raw value means no filter; the
// emptiness check runs before quote stripping, so '' filters for empty statuses.
func coerceStatus(v interface{}) (string, bool, error) {
	s, ok := v.(string)
	if !ok {
		return "", false, fmt.Errorf("value of type %T is not a string", v)
	}
	if s == "" {
		return "", false, nil
	}
	return stripQuotes(s), true, nil
}

// stripQuotes removes one pair of surrounding single quotes: 'Delivered' becomes Delivered.
func stripQuotes(s string) string {
	if len(s) > 1 && strings.HasPrefix(s, "'") && strings.HasSuffix(s, "'") {
		return s[1 : len(s)-1]
	}
	return s
}

// statusMatches compares an order status against a filter value case-insensitively, both quote-stripped.
func statusMatches(status, want string) bool {
	return strings.EqualFold(stripQuotes(status), want)
}

// filterSummary describes the applied filters for response metadata and cache keys.
func filterSummary(reportType models.ReportType, inv models.InventoryFilters, ord models.OrderFilters, sup models.SupplierFilters) map[string]interface{} {
	out := map[string]interface{}{}
	switch reportType {
	case models.ReportTypeInventory:
		if inv.MinStock != nil {
			out[ParamMinStock] = *inv.MinStock
		}
	case models.ReportTypeOrder:
		if ord.Status != nil {
			out[ParamStatus] = *ord.Status
		}
		if ord.CustomerID != nil {
			out[ParamCustomerID] = *ord.CustomerID
		}
	case models.ReportTypeSupplier:
		if sup.MinProductsSupplied != nil {
			out[ParamMinProductsSupplied] = *sup.MinProductsSupplied
		}
	}
	return out
}
