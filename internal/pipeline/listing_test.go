package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idqcli/internal/catalog"
	"idqcli/internal/marketplace"
)

func ukPartition(products ...string) *Partition {
	p := &Partition{Market: "UK"}
	for _, id := range products {
		p.Records = append(p.Records, catalog.Record{Market: "UK", ProductID: id, Rating: 1.0})
	}
	return p
}

func TestJoinListing(t *testing.T) {
	listing := marketplace.NewListingTable([]marketplace.ListingRow{
		{SellerSKU: "SKU1F1", ProductID: "B01"},
		{SellerSKU: "SKU3F2", ProductID: "B03"},
	})

	rows, anomalies := JoinListing(ukPartition("B01", "B02", "B03"), listing)

	require.Len(t, rows, 2)
	assert.Equal(t, EnrichedRow{Market: "UK", ProductID: "B01", SellerSKU: "SKU1F1"}, rows[0])
	assert.Equal(t, EnrichedRow{Market: "UK", ProductID: "B03", SellerSKU: "SKU3F2"}, rows[1])

	require.Len(t, anomalies, 1)
	assert.Equal(t, Anomaly{Market: "UK", ProductID: "B02", Reason: ReasonNotListed}, anomalies[0])
}

func TestJoinListingRowConservation(t *testing.T) {
	listing := marketplace.NewListingTable([]marketplace.ListingRow{
		{SellerSKU: "SKU1", ProductID: "B01"},
	})

	partition := ukPartition("B01", "B02", "B03", "B04", "B05")
	rows, anomalies := JoinListing(partition, listing)

	// No row silently vanishes
	assert.Equal(t, len(partition.Records), len(rows)+len(anomalies))
}

func TestJoinListingEmptyReport(t *testing.T) {
	rows, anomalies := JoinListing(ukPartition("B01", "B02"), marketplace.NewListingTable(nil))

	assert.Empty(t, rows)
	assert.Len(t, anomalies, 2)
}

func TestFailPartition(t *testing.T) {
	anomalies := FailPartition(ukPartition("B01", "B02"), marketplace.ReasonTimedOut)

	require.Len(t, anomalies, 2)
	for _, a := range anomalies {
		assert.Equal(t, "UK", a.Market)
		assert.Equal(t, marketplace.ReasonTimedOut, a.Reason)
	}
}
