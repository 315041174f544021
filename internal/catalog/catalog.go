// Package catalog reads the uploaded product catalog workbook into typed
// records. The column contract is fixed: Marketplace, ASIN and the review
// rating; anything else in the sheet is ignored.
package catalog

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"idqcli/internal/config"
)

// Record is one row of the uploaded catalog. Immutable once read.
type Record struct {
	Market    string
	ProductID string
	Rating    float64
}

// ReadWorkbook opens an XLSX catalog file from disk.
func ReadWorkbook(path string) ([]Record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	return readRecords(f)
}

// ReadFrom reads an XLSX catalog from a stream, e.g. an HTTP upload.
func ReadFrom(r io.Reader) ([]Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog upload: %w", err)
	}
	defer f.Close()

	return readRecords(f)
}

func readRecords(f *excelize.File) ([]Record, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("catalog workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("catalog sheet %q is empty", sheets[0])
	}

	marketCol, productCol, ratingCol, headerRow := findColumns(rows)
	if marketCol == -1 || productCol == -1 || ratingCol == -1 {
		return nil, fmt.Errorf("catalog is missing one of the required columns %q, %q, %q",
			config.ColumnMarketplace, config.ColumnASIN, config.ColumnRating)
	}

	var records []Record
	skipped := 0
	for _, row := range rows[headerRow+1:] {
		if marketCol >= len(row) || productCol >= len(row) || ratingCol >= len(row) {
			continue
		}

		market := strings.TrimSpace(row[marketCol])
		productID := strings.TrimSpace(row[productCol])
		if market == "" || productID == "" {
			continue
		}

		rating, err := strconv.ParseFloat(strings.TrimSpace(row[ratingCol]), 64)
		if err != nil {
			skipped++
			continue
		}

		records = append(records, Record{
			Market:    market,
			ProductID: productID,
			Rating:    rating,
		})
	}

	if skipped > 0 {
		slog.Warn("catalog rows with unparsable rating skipped", slog.Int("count", skipped))
	}

	return records, nil
}

// findColumns locates the header row and the three required columns. Some
// exports carry a title banner above the header, so the first few rows are
// scanned.
func findColumns(rows [][]string) (marketCol, productCol, ratingCol, headerRow int) {
	marketCol, productCol, ratingCol = -1, -1, -1

	maxScan := len(rows)
	if maxScan > 10 {
		maxScan = 10
	}

	for i := 0; i < maxScan; i++ {
		m, p, r := -1, -1, -1
		for col, name := range rows[i] {
			switch strings.TrimSpace(name) {
			case config.ColumnMarketplace:
				m = col
			case config.ColumnASIN:
				p = col
			case config.ColumnRating:
				r = col
			}
		}
		if m != -1 && p != -1 && r != -1 {
			return m, p, r, i
		}
	}

	return -1, -1, -1, 0
}
