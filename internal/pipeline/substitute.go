package pipeline

import (
	"strings"

	"idqcli/internal/refdata"
)

// ResolveSubstitutes derives a canonical substitute code for each row by
// searching the wide reference sheet.
//
// For each row, the sheet is scanned top to bottom for the first row that
// contains the seller SKU as a substring of any cell within the designated
// column range [from, to). Within that matched row, the substitute is the
// last non-empty cell in the same range. A substitute identical to the
// input SKU is treated as "no real substitute" and left unset, as is a SKU
// with no matching row at all — the barcode stage records the anomaly.
//
// Matching is case-sensitive and substring-based. A short SKU can collide
// with an unrelated longer code in the sheet; that ambiguity is inherited
// from the sheet's conventions and deliberately not second-guessed here.
func ResolveSubstitutes(rows []EnrichedRow, table refdata.SubstituteTable, from, to int) []EnrichedRow {
	out := make([]EnrichedRow, len(rows))
	for i, row := range rows {
		if row.SellerSKU != "" {
			if sub, ok := findSubstitute(table, row.SellerSKU, from, to); ok && sub != row.SellerSKU {
				row.Substitute = sub
			}
		}
		out[i] = row
	}
	return out
}

// findSubstitute returns the last non-empty cell of the first sheet row
// whose designated range mentions the SKU.
func findSubstitute(table refdata.SubstituteTable, sku string, from, to int) (string, bool) {
	for _, sheetRow := range table.Rows {
		if !rangeContains(sheetRow, sku, from, to) {
			continue
		}
		return lastNonEmpty(sheetRow, from, to)
	}
	return "", false
}

func rangeContains(row []string, sku string, from, to int) bool {
	for col := from; col < to && col < len(row); col++ {
		if strings.Contains(row[col], sku) {
			return true
		}
	}
	return false
}

func lastNonEmpty(row []string, from, to int) (string, bool) {
	last, found := "", false
	for col := from; col < to && col < len(row); col++ {
		if row[col] != "" {
			last, found = row[col], true
		}
	}
	return last, found
}
