package pipeline

import (
	"idqcli/internal/marketplace"
)

// JoinListing inner-joins a market partition against its listing report,
// attaching the merchant SKU to every matched row. Catalog rows with no
// listing row are a deliberate drop: each one becomes an Anomaly and is
// excluded from the joined output.
//
// matched + anomalies always accounts for every input row.
func JoinListing(p *Partition, listing marketplace.ListingTable) ([]EnrichedRow, []Anomaly) {
	rows := make([]EnrichedRow, 0, len(p.Records))
	var anomalies []Anomaly

	for _, record := range p.Records {
		sku, ok := listing.SellerSKU(record.ProductID)
		if !ok {
			anomalies = append(anomalies, Anomaly{
				Market:    p.Market,
				ProductID: record.ProductID,
				Reason:    ReasonNotListed,
			})
			continue
		}
		rows = append(rows, EnrichedRow{
			Market:    p.Market,
			ProductID: record.ProductID,
			SellerSKU: sku,
		})
	}

	return rows, anomalies
}

// FailPartition converts every row of a partition into an anomaly with the
// given reason. Used when the listing report for the market could not be
// fetched at all: the partition contributes nothing downstream but the run
// continues.
func FailPartition(p *Partition, reason string) []Anomaly {
	anomalies := make([]Anomaly, 0, len(p.Records))
	for _, record := range p.Records {
		anomalies = append(anomalies, Anomaly{
			Market:    p.Market,
			ProductID: record.ProductID,
			Reason:    reason,
		})
	}
	return anomalies
}
