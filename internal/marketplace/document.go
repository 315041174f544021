package marketplace

import (
	"bytes"
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"

	"golang.org/x/text/encoding/charmap"
)

// decodeDocument turns a raw report payload into a ListingTable.
//
// The payload may arrive gzip-compressed or as plain text; decompression is
// attempted first and a gzip failure falls back to the raw bytes. The text
// itself is tab-delimited in windows-1252, a legacy of the report template.
func decodeDocument(payload []byte) (ListingTable, error) {
	text, err := decompress(payload)
	if err != nil {
		return ListingTable{}, fmt.Errorf("failed to read report payload: %w", err)
	}

	decoded, err := io.ReadAll(charmap.Windows1252.NewDecoder().Reader(bytes.NewReader(text)))
	if err != nil {
		return ListingTable{}, fmt.Errorf("failed to decode report text: %w", err)
	}

	return parseListings(decoded)
}

// decompress gunzips the payload, falling back to the raw bytes when the
// payload is not gzip at all.
func decompress(payload []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return payload, nil
	}
	defer zr.Close()

	text, err := io.ReadAll(zr)
	if err != nil {
		// Valid gzip header but corrupt stream; treating this as plain text
		// would hand garbage to the parser.
		return nil, err
	}
	return text, nil
}

// Accepted header names. The product identifier column appears under either
// of two names depending on the marketplace's report template; both are
// normalized to the same output field.
const (
	columnSellerSKU = "seller-sku"
	columnASIN      = "asin1"
	columnProductID = "product-id"
)

// parseListings extracts the merchant-SKU and product-id columns from
// tab-delimited report text.
func parseListings(text []byte) (ListingTable, error) {
	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return ListingTable{}, fmt.Errorf("failed to read report header: %w", err)
	}

	skuCol, productCol := -1, -1
	for i, name := range header {
		switch name {
		case columnSellerSKU:
			skuCol = i
		case columnASIN:
			productCol = i
		case columnProductID:
			// asin1 takes precedence when both are present
			if productCol == -1 {
				productCol = i
			}
		}
	}

	if skuCol == -1 || productCol == -1 {
		return ListingTable{}, fmt.Errorf("report is missing %q or a product identifier column", columnSellerSKU)
	}

	var rows []ListingRow
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ListingTable{}, fmt.Errorf("failed to read report row: %w", err)
		}
		if skuCol >= len(record) || productCol >= len(record) {
			continue
		}
		rows = append(rows, ListingRow{
			SellerSKU: record[skuCol],
			ProductID: record[productCol],
		})
	}

	return NewListingTable(rows), nil
}
