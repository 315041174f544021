package refdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"idqcli/internal/config"
)

// DescriptionTable maps a normalized SKU code to its catalog description.
type DescriptionTable map[string]string

// Lookup returns the description for a code.
func (t DescriptionTable) Lookup(code string) (string, bool) {
	desc, ok := t[code]
	return desc, ok
}

// FetchDescriptions downloads and parses the description lookup sheet.
// headerRow is the zero-based row index carrying the column names; rows
// above it are discarded.
func (c *Client) FetchDescriptions(ctx context.Context, url string, headerRow int) (DescriptionTable, error) {
	body, err := c.fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	return ParseDescriptions(body, headerRow)
}

// ParseDescriptions reads the description CSV. Required columns are the SKU
// code and its description; everything else is ignored.
func ParseDescriptions(r io.Reader, headerRow int) (DescriptionTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := skipToHeader(cr, headerRow)
	if err != nil {
		return nil, fmt.Errorf("description table: %w", err)
	}

	codeCol, descCol := -1, -1
	for i, name := range header {
		switch name {
		case config.ColumnSkuCode:
			codeCol = i
		case config.ColumnSkuDescription:
			descCol = i
		}
	}
	if codeCol == -1 || descCol == -1 {
		return nil, fmt.Errorf("description table is missing %q or %q columns",
			config.ColumnSkuCode, config.ColumnSkuDescription)
	}

	table := make(DescriptionTable)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("description table: failed to read row: %w", err)
		}
		if codeCol >= len(record) || descCol >= len(record) {
			continue
		}
		code := record[codeCol]
		if code == "" {
			continue
		}
		if _, exists := table[code]; !exists {
			table[code] = record[descCol]
		}
	}

	return table, nil
}

// skipToHeader discards rows above the header and returns the header row.
func skipToHeader(cr *csv.Reader, headerRow int) ([]string, error) {
	for i := 0; i < headerRow; i++ {
		if _, err := cr.Read(); err != nil {
			return nil, fmt.Errorf("table shorter than header row %d: %w", headerRow, err)
		}
	}
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}
	return header, nil
}
