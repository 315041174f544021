package refdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDescriptions(t *testing.T) {
	csv := "Published sheet\n" +
		"Maintained by ops\n" +
		"Sku code,Sku description,Owner\n" +
		"10001,Blue Widget 500ml,alice\n" +
		"10002,Red Widget 250ml,bob\n" +
		",orphan row,carol\n" +
		"10001,Duplicate ignored,dave\n"

	table, err := ParseDescriptions(strings.NewReader(csv), 2)
	require.NoError(t, err)

	require.Len(t, table, 2)
	desc, ok := table.Lookup("10001")
	require.True(t, ok)
	assert.Equal(t, "Blue Widget 500ml", desc)

	_, ok = table.Lookup("99999")
	assert.False(t, ok)
}

func TestParseDescriptionsMissingColumns(t *testing.T) {
	csv := "Code,Text\n10001,Widget\n"

	_, err := ParseDescriptions(strings.NewReader(csv), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Sku code")
}

func TestParseDescriptionsShortTable(t *testing.T) {
	_, err := ParseDescriptions(strings.NewReader("only one row\n"), 2)
	require.Error(t, err)
}

func TestParseSubstitutes(t *testing.T) {
	csv := "Group,V1,V2,V3\n" +
		"widgets,10001F1,10001F2,10001\n" +
		"gadgets,20002F1,,\n"

	table, err := ParseSubstitutes(strings.NewReader(csv))
	require.NoError(t, err)

	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"widgets", "10001F1", "10001F2", "10001"}, table.Rows[0])
}

func TestParseBarcodes(t *testing.T) {
	csv := "Barcode registry export\n" +
		"Account: ACME\n" +
		"Generated: 2026-08-30\n" +
		"SKU,Number,Main Brand,Status\n" +
		"10001,=\"5012345678900\",Acme,active\n" +
		"20002,5098765432109,Other,active\n"

	table, err := ParseBarcodes(strings.NewReader(csv), 3)
	require.NoError(t, err)

	require.Len(t, table, 2)
	entry, ok := table.Lookup("10001")
	require.True(t, ok)
	// Artifacts are preserved here; the attach stage strips them
	assert.Equal(t, `="5012345678900"`, entry.Number)
	assert.Equal(t, "Acme", entry.Brand)
}

func TestParseBarcodesMissingColumns(t *testing.T) {
	csv := "SKU,EAN\n10001,5012345678900\n"

	_, err := ParseBarcodes(strings.NewReader(csv), 0)
	require.Error(t, err)
}

func TestFetchDescriptions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Sku code,Sku description\n10001,Widget\n"))
	}))
	t.Cleanup(server.Close)

	client := NewClient(5 * time.Second)
	table, err := client.FetchDescriptions(context.Background(), server.URL, 0)
	require.NoError(t, err)
	assert.Len(t, table, 1)
}

func TestFetchSubstitutesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	client := NewClient(5 * time.Second)
	_, err := client.FetchSubstitutes(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
