package marketplace

// ReportStatus is the processing state reported for an async report job.
type ReportStatus string

const (
	StatusInQueue    ReportStatus = "IN_QUEUE"
	StatusInProgress ReportStatus = "IN_PROGRESS"
	// StatusInProgressAlt is the legacy spelling some report templates return.
	StatusInProgressAlt ReportStatus = "INPROGRESS"
	StatusDone          ReportStatus = "DONE"
	StatusCancelled     ReportStatus = "CANCELLED"
	StatusFatal         ReportStatus = "FATAL"
)

// Pending reports whether the job is still being generated and polling
// should continue.
func (s ReportStatus) Pending() bool {
	switch s {
	case StatusInQueue, StatusInProgress, StatusInProgressAlt:
		return true
	}
	return false
}

// ReportJob is the transient state of one report request. It lives only for
// the duration of a single partition fetch.
type ReportJob struct {
	ReportID   string
	Status     ReportStatus
	DocumentID string
}

// ListingRow is one row of a merchant listings report.
type ListingRow struct {
	SellerSKU string
	ProductID string
}

// ListingTable is the decoded result of a listings report for one market,
// indexed by product identifier. Where the report lists the same product
// under multiple SKUs, the first occurrence wins.
type ListingTable struct {
	Rows []ListingRow

	byProduct map[string]string
}

// NewListingTable builds a table from decoded rows.
func NewListingTable(rows []ListingRow) ListingTable {
	byProduct := make(map[string]string, len(rows))
	for _, r := range rows {
		if _, ok := byProduct[r.ProductID]; !ok {
			byProduct[r.ProductID] = r.SellerSKU
		}
	}
	return ListingTable{Rows: rows, byProduct: byProduct}
}

// SellerSKU returns the merchant SKU listed for the given product id.
func (t ListingTable) SellerSKU(productID string) (string, bool) {
	sku, ok := t.byProduct[productID]
	return sku, ok
}

// Len returns the number of listing rows.
func (t ListingTable) Len() int {
	return len(t.Rows)
}
