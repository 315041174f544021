package pipeline

import (
	"strings"

	"idqcli/internal/refdata"
)

// AttachBarcodes joins resolved substitute codes against the barcode table.
// Rows with no substitute code, or whose code has no barcode registration,
// get an Anomaly but are retained in the output so the caller sees the
// complete enrichment attempt.
func AttachBarcodes(rows []EnrichedRow, table refdata.BarcodeTable) ([]EnrichedRow, []Anomaly) {
	out := make([]EnrichedRow, len(rows))
	var anomalies []Anomaly

	for i, row := range rows {
		var entry refdata.BarcodeEntry
		var ok bool
		if row.Substitute != "" {
			entry, ok = table.Lookup(row.Substitute)
		}
		if ok {
			row.Barcode = cleanBarcodeNumber(entry.Number)
			row.Brand = entry.Brand
		} else {
			anomalies = append(anomalies, Anomaly{
				Market:    row.Market,
				ProductID: row.ProductID,
				Reason:    ReasonNoBarcode,
			})
		}
		out[i] = row
	}

	return out, anomalies
}

// cleanBarcodeNumber strips the spreadsheet-escaping artifacts the registry
// export wraps numbers in, e.g. ="5012345678900" becomes 5012345678900.
func cleanBarcodeNumber(number string) string {
	number = strings.ReplaceAll(number, "=", "")
	return strings.ReplaceAll(number, `"`, "")
}
