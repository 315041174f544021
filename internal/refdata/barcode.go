package refdata

import (
	"encoding/csv"
	"fmt"
	"io"

	"idqcli/internal/config"
)

// BarcodeEntry is one row of the barcode registry export. Number is kept
// verbatim, including any spreadsheet-escaping artifacts; the attach stage
// strips those.
type BarcodeEntry struct {
	Number string
	Brand  string
}

// BarcodeTable maps a substitute code to its barcode registration.
type BarcodeTable map[string]BarcodeEntry

// Lookup returns the registration for a code.
func (t BarcodeTable) Lookup(code string) (BarcodeEntry, bool) {
	entry, ok := t[code]
	return entry, ok
}

// ParseBarcodes reads the uploaded barcode CSV. The registry export puts
// the column names a few rows down; headerRow is that zero-based index.
func ParseBarcodes(r io.Reader, headerRow int) (BarcodeTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := skipToHeader(cr, headerRow)
	if err != nil {
		return nil, fmt.Errorf("barcode table: %w", err)
	}

	skuCol, numberCol, brandCol := -1, -1, -1
	for i, name := range header {
		switch name {
		case config.ColumnBarcodeSKU:
			skuCol = i
		case config.ColumnBarcodeNumber:
			numberCol = i
		case config.ColumnBarcodeBrand:
			brandCol = i
		}
	}
	if skuCol == -1 || numberCol == -1 || brandCol == -1 {
		return nil, fmt.Errorf("barcode table is missing one of the required columns %q, %q, %q",
			config.ColumnBarcodeSKU, config.ColumnBarcodeNumber, config.ColumnBarcodeBrand)
	}

	table := make(BarcodeTable)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("barcode table: failed to read row: %w", err)
		}
		if skuCol >= len(record) || numberCol >= len(record) || brandCol >= len(record) {
			continue
		}
		sku := record[skuCol]
		if sku == "" {
			continue
		}
		if _, exists := table[sku]; !exists {
			table[sku] = BarcodeEntry{
				Number: record[numberCol],
				Brand:  record[brandCol],
			}
		}
	}

	return table, nil
}
