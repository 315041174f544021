package config

import "time"

// Application constants for the IDQ enrichment pipeline
const (
	// Application Info
	AppName    = "IDQ Enrich"
	AppVersion = "1.2.0"

	// Report API
	ReportType       = "GET_MERCHANT_LISTINGS_DATA"
	ReportAPIVersion = "2021-06-30"

	// Catalog input columns
	ColumnMarketplace = "Marketplace"
	ColumnASIN        = "ASIN"
	ColumnRating      = "Review Avg Rating"

	// Listing report columns. The product-id column arrives under either
	// name depending on the marketplace's report template.
	ColumnSellerSKU    = "seller-sku"
	ColumnASINPrimary  = "asin1"
	ColumnASINFallback = "product-id"

	// Reference table columns
	ColumnSkuCode        = "Sku code"
	ColumnSkuDescription = "Sku description"
	ColumnBarcodeSKU     = "SKU"
	ColumnBarcodeNumber  = "Number"
	ColumnBarcodeBrand   = "Main Brand"

	// Output workbook columns
	OutputColumnASIN        = "ASIN"
	OutputColumnSellerSKU   = "Seller SKU"
	OutputColumnDescription = "Sku description"
	OutputColumnSubstitute  = "F1 to Use"
	OutputColumnBarcode     = "EAN"
	OutputColumnBrand       = "GS1 Brand"

	// Network timeouts
	DefaultHTTPTimeout = 30 * time.Second

	// File names
	ResultWorkbookName = "enriched.xlsx"
	AnomalyLogName     = "anomalies.csv"
)

// DefaultMarkets returns the statically configured marketplace identifier
// mapping. Only markets in this set may be queried for listing reports.
func DefaultMarkets() map[string]string {
	return map[string]string{
		"UK": "A1F83G8C2ARO7P",
		"DE": "A1PA6795UKMFR9",
		"FR": "A13V1IB3VIYZZH",
		"NL": "A1805IZSGTT6HS",
		"BE": "AMEN7PMS3EDWL",
		"ES": "A1RKKUPIHCS9HS",
		"IT": "APJ6JRA9NG5V4",
		"PL": "A1C3SOZRARQ6R3",
		"SE": "A2NODRKZP88ZB9",
	}
}
