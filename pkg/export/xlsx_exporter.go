package export

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Report"

// XLSXExporter renders datasets into a single-sheet workbook.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

func (e *XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (e *XLSXExporter) Extension() string { return "xlsx" }

// Render writes title, summary and table onto one sheet. Numeric cells keep their numeric type.
func (e *XLSXExporter) Render(data Dataset) ([]byte, error) {
	if err := data.validate(); err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := f.SetSheetName(f.GetSheetName(0), xlsxSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	row := 1
	if data.Title != "" {
		if err := f.SetCellValue(xlsxSheet, cellName(1, row), data.Title); err != nil {
			return nil, fmt.Errorf("write title: %w", err)
		}
		row += 2
	}
	for _, field := range data.Summary {
		if err := f.SetCellValue(xlsxSheet, cellName(1, row), field.Label); err != nil {
			return nil, fmt.Errorf("write summary: %w", err)
		}
		if err := f.SetCellValue(xlsxSheet, cellName(2, row), cellValue(field.Value)); err != nil {
			return nil, fmt.Errorf("write summary: %w", err)
		}
		row++
	}
	if len(data.Summary) > 0 {
		row++
	}

	for i, header := range data.Headers {
		if err := f.SetCellValue(xlsxSheet, cellName(i+1, row), header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	row++

	for _, record := range data.Rows {
		for i, value := range record {
			if err := f.SetCellValue(xlsxSheet, cellName(i+1, row), cellValue(value)); err != nil {
				return nil, fmt.Errorf("write row: %w", err)
			}
		}
		row++
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func cellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "A1"
	}
	return name
}

func cellValue(raw string) interface{} {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
