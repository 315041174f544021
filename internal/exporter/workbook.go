// Package exporter serializes a pipeline result: the enriched workbook with
// one sheet per market, and the durable anomaly log.
package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"idqcli/internal/config"
	"idqcli/internal/pipeline"
)

var workbookHeader = []interface{}{
	config.OutputColumnASIN,
	config.OutputColumnSellerSKU,
	config.OutputColumnDescription,
	config.OutputColumnSubstitute,
	config.OutputColumnBarcode,
	config.OutputColumnBrand,
}

// WriteWorkbook writes the enriched result to an XLSX file, one sheet per
// market in result order.
func WriteWorkbook(path string, result *pipeline.Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := buildWorkbook(result)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	slog.Info("workbook written",
		slog.String("path", path),
		slog.Int("markets", len(result.Markets)),
		slog.Int("rows", result.RowCount()))

	return nil
}

// WriteWorkbookTo streams the enriched result as XLSX, e.g. for an HTTP
// download response.
func WriteWorkbookTo(w io.Writer, result *pipeline.Result) error {
	f, err := buildWorkbook(result)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func buildWorkbook(result *pipeline.Result) (*excelize.File, error) {
	f := excelize.NewFile()

	for i, market := range result.Markets {
		sheet := market.Market
		if i == 0 {
			// Rename the default sheet instead of leaving it empty
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to name sheet %q: %w", sheet, err)
			}
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to create sheet %q: %w", sheet, err)
			}
		}

		if err := f.SetSheetRow(sheet, "A1", &workbookHeader); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write header for %q: %w", sheet, err)
		}

		for rowIdx, row := range market.Rows {
			cell, err := excelize.CoordinatesToCellName(1, rowIdx+2)
			if err != nil {
				f.Close()
				return nil, err
			}
			values := []interface{}{
				row.ProductID,
				row.SellerSKU,
				row.Description,
				row.Substitute,
				row.Barcode,
				row.Brand,
			}
			if err := f.SetSheetRow(sheet, cell, &values); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to write row %d of %q: %w", rowIdx+2, sheet, err)
			}
		}
	}

	return f, nil
}
