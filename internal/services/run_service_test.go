package services

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idqcli/internal/catalog"
	"idqcli/internal/config"
	"idqcli/internal/pipeline"
	"idqcli/internal/refdata"
)

type stubRunner struct {
	mu     sync.Mutex
	block  chan struct{}
	err    error
	result *pipeline.Result
	calls  int
}

func (r *stubRunner) Run(ctx context.Context, runID string, records []catalog.Record, refs pipeline.References) (*pipeline.Result, error) {
	r.mu.Lock()
	r.calls++
	block := r.block
	r.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.result, nil
}

type stubLoader struct {
	err error
}

func (l *stubLoader) Load(ctx context.Context, barcodes refdata.BarcodeTable) (pipeline.References, error) {
	if l.err != nil {
		return pipeline.References{}, l.err
	}
	return pipeline.References{
		Descriptions: refdata.DescriptionTable{"10001": "Widget"},
		Substitutes:  refdata.SubstituteTable{},
		Barcodes:     barcodes,
	}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Paths.DataDir = dir
	cfg.Paths.ReportsDir = dir
	cfg.Server.RunTimeout = 5 * time.Second
	return cfg
}

func testResult() *pipeline.Result {
	return &pipeline.Result{
		Markets: []pipeline.MarketResult{
			{
				Market: "UK",
				Rows: []pipeline.EnrichedRow{
					{Market: "UK", ProductID: "B00X", SellerSKU: "10001", Barcode: "5012345678900"},
				},
			},
		},
	}
}

func uploadInputs(s *RunService) {
	s.SetCatalog("catalog.xlsx", []catalog.Record{{Market: "UK", ProductID: "B00X", Rating: 2.0}})
	s.SetBarcodes("barcodes.csv", refdata.BarcodeTable{"10001": {Number: "5012345678900"}})
}

func waitForFinish(t *testing.T, s *RunService, runID string) RunState {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		state, err := s.Status(runID)
		require.NoError(t, err)
		if state.Status != RunStatusRunning {
			return state
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("run did not finish in time")
	return RunState{}
}

func TestStartRunRequiresUploads(t *testing.T) {
	s := NewRunService(testConfig(t), &stubRunner{}, &stubLoader{}, nil, nil, nil)

	_, err := s.StartRun(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoCatalog)

	s.SetCatalog("catalog.xlsx", []catalog.Record{{Market: "UK", ProductID: "B00X", Rating: 2.0}})
	_, err = s.StartRun(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoBarcodes)
}

func TestStartRunCompletesAndWritesArtifacts(t *testing.T) {
	runner := &stubRunner{result: testResult()}
	s := NewRunService(testConfig(t), runner, &stubLoader{}, nil, nil, nil)
	uploadInputs(s)

	runID, err := s.StartRun(context.Background(), nil)
	require.NoError(t, err)

	state := waitForFinish(t, s, runID)
	assert.Equal(t, RunStatusCompleted, state.Status)
	assert.Equal(t, 1, state.RowCount)
	assert.Zero(t, state.AnomalyCount)

	workbook, err := s.WorkbookPath(runID)
	require.NoError(t, err)
	_, err = os.Stat(workbook)
	require.NoError(t, err)

	anomalies, err := s.AnomalyPath(runID)
	require.NoError(t, err)
	_, err = os.Stat(anomalies)
	require.NoError(t, err)
}

func TestStartRunRejectsConcurrentRun(t *testing.T) {
	block := make(chan struct{})
	runner := &stubRunner{result: testResult(), block: block}
	s := NewRunService(testConfig(t), runner, &stubLoader{}, nil, nil, nil)
	uploadInputs(s)

	runID, err := s.StartRun(context.Background(), nil)
	require.NoError(t, err)

	_, err = s.StartRun(context.Background(), nil)
	assert.ErrorIs(t, err, ErrRunActive)

	close(block)
	waitForFinish(t, s, runID)

	// A finished run frees the slot.
	runID, err = s.StartRun(context.Background(), nil)
	require.NoError(t, err)
	waitForFinish(t, s, runID)
}

func TestRunFailureIsRecorded(t *testing.T) {
	runner := &stubRunner{err: fmt.Errorf("report API unreachable")}
	s := NewRunService(testConfig(t), runner, &stubLoader{}, nil, nil, nil)
	uploadInputs(s)

	runID, err := s.StartRun(context.Background(), nil)
	require.NoError(t, err)

	state := waitForFinish(t, s, runID)
	assert.Equal(t, RunStatusFailed, state.Status)
	assert.Contains(t, state.Error, "report API unreachable")

	_, err = s.WorkbookPath(runID)
	assert.ErrorIs(t, err, ErrRunUnfinished)
}

func TestReferenceLoadFailureFailsRun(t *testing.T) {
	s := NewRunService(testConfig(t), &stubRunner{result: testResult()}, &stubLoader{err: fmt.Errorf("fetch descriptions: 503")}, nil, nil, nil)
	uploadInputs(s)

	runID, err := s.StartRun(context.Background(), nil)
	require.NoError(t, err)

	state := waitForFinish(t, s, runID)
	assert.Equal(t, RunStatusFailed, state.Status)
	assert.Contains(t, state.Error, "fetch descriptions")
}

func TestStartRunMarketFilter(t *testing.T) {
	runner := &stubRunner{result: testResult()}
	s := NewRunService(testConfig(t), runner, &stubLoader{}, nil, nil, nil)
	s.SetCatalog("catalog.xlsx", []catalog.Record{
		{Market: "UK", ProductID: "B00X", Rating: 2.0},
		{Market: "DE", ProductID: "B00Y", Rating: 2.5},
	})
	s.SetBarcodes("barcodes.csv", refdata.BarcodeTable{"10001": {Number: "5012345678900"}})

	_, err := s.StartRun(context.Background(), []string{"FR"})
	assert.ErrorIs(t, err, ErrNoRecords)

	runID, err := s.StartRun(context.Background(), []string{"DE"})
	require.NoError(t, err)
	waitForFinish(t, s, runID)
}

func TestStatusUnknownRun(t *testing.T) {
	s := NewRunService(testConfig(t), &stubRunner{}, &stubLoader{}, nil, nil, nil)
	_, err := s.Status("nope")
	assert.ErrorIs(t, err, ErrRunUnknown)
}

func TestListPreservesOrder(t *testing.T) {
	runner := &stubRunner{result: testResult()}
	s := NewRunService(testConfig(t), runner, &stubLoader{}, nil, nil, nil)
	uploadInputs(s)

	first, err := s.StartRun(context.Background(), nil)
	require.NoError(t, err)
	waitForFinish(t, s, first)

	second, err := s.StartRun(context.Background(), nil)
	require.NoError(t, err)
	waitForFinish(t, s, second)

	runs := s.List()
	require.Len(t, runs, 2)
	assert.Equal(t, first, runs[0].ID)
	assert.Equal(t, second, runs[1].ID)
}
