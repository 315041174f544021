package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idqcli/internal/refdata"
)

func TestAttachBarcodes(t *testing.T) {
	table := refdata.BarcodeTable{
		"10001": {Number: `="5012345678900"`, Brand: "Acme"},
	}
	rows := []EnrichedRow{
		{Market: "UK", ProductID: "B01", SellerSKU: "10001F1", Substitute: "10001"},
		{Market: "UK", ProductID: "B02", SellerSKU: "20002F1", Substitute: "20002"},
		{Market: "UK", ProductID: "B03", SellerSKU: "30003F1"}, // no substitute
	}

	out, anomalies := AttachBarcodes(rows, table)

	// Rows are retained even when the lookup misses
	require.Len(t, out, 3)
	assert.Equal(t, "5012345678900", out[0].Barcode)
	assert.Equal(t, "Acme", out[0].Brand)
	assert.Empty(t, out[1].Barcode)
	assert.Empty(t, out[2].Barcode)

	require.Len(t, anomalies, 2)
	assert.Equal(t, Anomaly{Market: "UK", ProductID: "B02", Reason: ReasonNoBarcode}, anomalies[0])
	assert.Equal(t, Anomaly{Market: "UK", ProductID: "B03", Reason: ReasonNoBarcode}, anomalies[1])
}

func TestCleanBarcodeNumber(t *testing.T) {
	tests := []struct{ in, want string }{
		{`="1234567"`, "1234567"},
		{`"1234567"`, "1234567"},
		{"=1234567", "1234567"},
		{"1234567", "1234567"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanBarcodeNumber(tt.in), "input %q", tt.in)
	}
}

func TestAttachBarcodesIdempotent(t *testing.T) {
	table := refdata.BarcodeTable{
		"10001": {Number: "5012345678900", Brand: "Acme"},
	}
	rows := []EnrichedRow{
		{Market: "UK", ProductID: "B01", SellerSKU: "10001F1", Substitute: "10001"},
	}

	once, _ := AttachBarcodes(rows, table)
	twice, _ := AttachBarcodes(once, table)
	assert.Equal(t, once, twice)
}
