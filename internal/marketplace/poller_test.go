package marketplace

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idqcli/internal/config"
)

// fakeReportClient scripts the report API for poller tests.
type fakeReportClient struct {
	statuses    []ReportStatus
	statusCalls int
	documentID  string
	payload     []byte

	createErr   error
	statusErr   error
	downloadErr error
}

func (f *fakeReportClient) CreateReport(ctx context.Context, marketplaceID string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	return "REPORT-1", nil
}

func (f *fakeReportClient) ReportStatus(ctx context.Context, reportID string) (ReportJob, error) {
	if f.statusErr != nil {
		return ReportJob{}, f.statusErr
	}
	idx := f.statusCalls
	f.statusCalls++
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	job := ReportJob{ReportID: reportID, Status: f.statuses[idx]}
	if job.Status == StatusDone {
		job.DocumentID = f.documentID
	}
	return job, nil
}

func (f *fakeReportClient) DocumentURL(ctx context.Context, documentID string) (string, error) {
	return "https://example.com/doc/" + documentID, nil
}

func (f *fakeReportClient) Download(ctx context.Context, url string) ([]byte, error) {
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return f.payload, nil
}

func pollerConfig() config.MarketplaceConfig {
	return config.MarketplaceConfig{
		Markets:         map[string]string{"UK": "A1F83G8C2ARO7P"},
		PollInterval:    time.Millisecond,
		MaxPollAttempts: 10,
	}
}

func TestFetchListingSuccess(t *testing.T) {
	client := &fakeReportClient{
		statuses:   []ReportStatus{StatusInQueue, StatusInProgress, StatusDone},
		documentID: "DOC-1",
		payload:    []byte("seller-sku\tasin1\nSKU1F1\tB000000001\n"),
	}
	poller := NewPoller(client, pollerConfig(), nil, nil)

	table, err := poller.FetchListing(context.Background(), "UK")
	require.NoError(t, err)

	assert.Equal(t, 3, client.statusCalls)
	sku, ok := table.SellerSKU("B000000001")
	require.True(t, ok)
	assert.Equal(t, "SKU1F1", sku)
}

func TestFetchListingExhaustsRetryBudget(t *testing.T) {
	client := &fakeReportClient{
		statuses: []ReportStatus{StatusInProgress},
	}
	poller := NewPoller(client, pollerConfig(), nil, nil)

	_, err := poller.FetchListing(context.Background(), "UK")
	require.Error(t, err)

	// Exactly the budget, never one extra
	assert.Equal(t, 10, client.statusCalls)

	var pe *PartitionError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "UK", pe.Market)
	assert.Equal(t, ReasonTimedOut, pe.Reason)
}

func TestFetchListingTerminalFailure(t *testing.T) {
	client := &fakeReportClient{
		statuses: []ReportStatus{StatusInProgress, StatusFatal},
	}
	poller := NewPoller(client, pollerConfig(), nil, nil)

	_, err := poller.FetchListing(context.Background(), "UK")
	require.Error(t, err)

	var pe *PartitionError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ReasonFailed, pe.Reason)
	assert.Equal(t, 2, client.statusCalls)
}

func TestFetchListingUnknownMarket(t *testing.T) {
	poller := NewPoller(&fakeReportClient{}, pollerConfig(), nil, nil)

	_, err := poller.FetchListing(context.Background(), "US")
	require.Error(t, err)

	var pe *PartitionError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "US", pe.Market)
}

func TestFetchListingMissingColumns(t *testing.T) {
	client := &fakeReportClient{
		statuses:   []ReportStatus{StatusDone},
		documentID: "DOC-1",
		payload:    []byte("foo\tbar\n1\t2\n"),
	}
	poller := NewPoller(client, pollerConfig(), nil, nil)

	_, err := poller.FetchListing(context.Background(), "UK")
	require.Error(t, err)

	var pe *PartitionError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ReasonMissingColumns, pe.Reason)
}

func TestFetchListingCreateError(t *testing.T) {
	client := &fakeReportClient{createErr: errors.New("boom")}
	poller := NewPoller(client, pollerConfig(), nil, nil)

	_, err := poller.FetchListing(context.Background(), "UK")
	require.Error(t, err)

	var pe *PartitionError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ReasonFailed, pe.Reason)
}

func TestFetchListingContextCancelled(t *testing.T) {
	client := &fakeReportClient{
		statuses: []ReportStatus{StatusInProgress},
	}
	cfg := pollerConfig()
	cfg.PollInterval = time.Minute
	poller := NewPoller(client, cfg, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := poller.FetchListing(ctx, "UK")
	require.Error(t, err)

	var pe *PartitionError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ReasonTimedOut, pe.Reason)
}

func TestReportStatusPending(t *testing.T) {
	assert.True(t, StatusInQueue.Pending())
	assert.True(t, StatusInProgress.Pending())
	assert.True(t, StatusInProgressAlt.Pending())
	assert.False(t, StatusDone.Pending())
	assert.False(t, StatusCancelled.Pending())
	assert.False(t, StatusFatal.Pending())
}
