package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"idqcli/internal/catalog"
	"idqcli/internal/config"
	"idqcli/internal/exporter"
	"idqcli/internal/infrastructure"
	"idqcli/internal/pipeline"
	"idqcli/internal/refdata"
	"idqcli/internal/tasktracker"
)

// Run lifecycle states.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Runner executes the enrichment pipeline. *pipeline.Driver satisfies it.
type Runner interface {
	Run(ctx context.Context, runID string, records []catalog.Record, refs pipeline.References) (*pipeline.Result, error)
}

// ReferenceLoader assembles the reference tables for a run. The barcode
// table comes from an upload, the rest are fetched remotely.
type ReferenceLoader interface {
	Load(ctx context.Context, barcodes refdata.BarcodeTable) (pipeline.References, error)
}

// HTTPReferenceLoader fetches the description and substitute tables from
// their configured source URLs.
type HTTPReferenceLoader struct {
	client *refdata.Client
	cfg    config.ReferencesConfig
}

// NewHTTPReferenceLoader creates a loader over the configured reference URLs.
func NewHTTPReferenceLoader(client *refdata.Client, cfg config.ReferencesConfig) *HTTPReferenceLoader {
	return &HTTPReferenceLoader{client: client, cfg: cfg}
}

// Load fetches descriptions and substitutes and bundles them with the
// uploaded barcode table.
func (l *HTTPReferenceLoader) Load(ctx context.Context, barcodes refdata.BarcodeTable) (pipeline.References, error) {
	descriptions, err := l.client.FetchDescriptions(ctx, l.cfg.DescriptionURL, l.cfg.DescriptionHeaderRow)
	if err != nil {
		return pipeline.References{}, fmt.Errorf("load descriptions: %w", err)
	}
	substitutes, err := l.client.FetchSubstitutes(ctx, l.cfg.SubstituteURL)
	if err != nil {
		return pipeline.References{}, fmt.Errorf("load substitutes: %w", err)
	}
	return pipeline.References{
		Descriptions: descriptions,
		Substitutes:  substitutes,
		Barcodes:     barcodes,
	}, nil
}

// RunState is a snapshot of one enrichment run.
type RunState struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Error        string     `json:"error,omitempty"`
	RowCount     int        `json:"row_count"`
	AnomalyCount int        `json:"anomaly_count"`
	TasksFiled   int        `json:"tasks_filed"`
	WorkbookPath string     `json:"-"`
	AnomalyPath  string     `json:"-"`
}

// RunService owns the run lifecycle: it holds the uploaded inputs,
// starts runs, tracks their state and locates their artifacts. At most
// one run is in flight at a time.
type RunService struct {
	cfg     *config.Config
	runner  Runner
	refs    ReferenceLoader
	tracker tasktracker.TaskTracker
	logger  *slog.Logger
	metrics *infrastructure.Metrics

	mu          sync.Mutex
	catalogRows []catalog.Record
	catalogName string
	barcodes    refdata.BarcodeTable
	barcodeName string
	runs        map[string]*RunState
	order       []string
	active      string
}

// NewRunService creates a run service. tracker and metrics may be nil.
func NewRunService(cfg *config.Config, runner Runner, refs ReferenceLoader, tracker tasktracker.TaskTracker, logger *slog.Logger, metrics *infrastructure.Metrics) *RunService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunService{
		cfg:     cfg,
		runner:  runner,
		refs:    refs,
		tracker: tracker,
		logger:  logger.With(slog.String("service", "run")),
		metrics: metrics,
		runs:    make(map[string]*RunState),
	}
}

// SetCatalog stores the parsed catalog upload for the next run.
func (s *RunService) SetCatalog(name string, records []catalog.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalogName = name
	s.catalogRows = records
	s.logger.Info("catalog uploaded",
		slog.String("file", name),
		slog.Int("records", len(records)))
}

// SetBarcodes stores the parsed barcode upload for the next run.
func (s *RunService) SetBarcodes(name string, table refdata.BarcodeTable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.barcodeName = name
	s.barcodes = table
	s.logger.Info("barcode table uploaded",
		slog.String("file", name),
		slog.Int("entries", len(table)))
}

// InputStatus reports which uploads are present.
type InputStatus struct {
	CatalogFile    string `json:"catalog_file,omitempty"`
	CatalogRecords int    `json:"catalog_records"`
	BarcodeFile    string `json:"barcode_file,omitempty"`
	BarcodeEntries int    `json:"barcode_entries"`
}

// Inputs returns the current upload state.
func (s *RunService) Inputs() InputStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return InputStatus{
		CatalogFile:    s.catalogName,
		CatalogRecords: len(s.catalogRows),
		BarcodeFile:    s.barcodeName,
		BarcodeEntries: len(s.barcodes),
	}
}

// Errors returned by StartRun and the artifact accessors. The HTTP layer
// maps them to status codes.
var (
	ErrNoCatalog     = fmt.Errorf("no catalog has been uploaded")
	ErrNoRecords     = fmt.Errorf("no catalog records match the requested markets")
	ErrNoBarcodes    = fmt.Errorf("no barcode table has been uploaded")
	ErrRunActive     = fmt.Errorf("a run is already in progress")
	ErrRunUnknown    = fmt.Errorf("unknown run")
	ErrRunUnfinished = fmt.Errorf("run has not completed")
)

// StartRun launches a run over the uploaded inputs and returns its ID.
// A non-empty markets list restricts the run to catalog records from
// those markets. The run executes in the background with the
// configured timeout.
func (s *RunService) StartRun(ctx context.Context, markets []string) (string, error) {
	s.mu.Lock()
	if len(s.catalogRows) == 0 {
		s.mu.Unlock()
		return "", ErrNoCatalog
	}
	records := filterMarkets(s.catalogRows, markets)
	if len(records) == 0 {
		s.mu.Unlock()
		return "", ErrNoRecords
	}
	if len(s.barcodes) == 0 {
		s.mu.Unlock()
		return "", ErrNoBarcodes
	}
	if s.active != "" {
		s.mu.Unlock()
		return "", ErrRunActive
	}

	runID := uuid.New().String()
	state := &RunState{
		ID:        runID,
		Status:    RunStatusRunning,
		StartedAt: time.Now(),
	}
	s.runs[runID] = state
	s.order = append(s.order, runID)
	s.active = runID
	barcodes := s.barcodes
	s.mu.Unlock()

	logger := s.logger.With(slog.String("run_id", runID))
	logger.InfoContext(ctx, "run started",
		slog.Int("catalog_records", len(records)))

	go s.execute(runID, records, barcodes)
	return runID, nil
}

// filterMarkets returns the records belonging to the given markets, or
// all records when no filter is set.
func filterMarkets(records []catalog.Record, markets []string) []catalog.Record {
	if len(markets) == 0 {
		return records
	}
	wanted := make(map[string]bool, len(markets))
	for _, m := range markets {
		wanted[m] = true
	}
	var out []catalog.Record
	for _, r := range records {
		if wanted[r.Market] {
			out = append(out, r)
		}
	}
	return out
}

// execute drives one run to completion. It owns its own context so the
// run outlives the HTTP request that started it.
func (s *RunService) execute(runID string, records []catalog.Record, barcodes refdata.BarcodeTable) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.RunTimeout)
	defer cancel()
	ctx = infrastructure.WithTraceID(ctx, runID)
	logger := s.logger.With(slog.String("run_id", runID))

	refs, err := s.refs.Load(ctx, barcodes)
	if err != nil {
		s.finish(runID, nil, 0, err)
		logger.ErrorContext(ctx, "reference load failed", slog.String("error", err.Error()))
		return
	}

	result, err := s.runner.Run(ctx, runID, records, refs)
	if err != nil {
		s.finish(runID, nil, 0, err)
		logger.ErrorContext(ctx, "run failed", slog.String("error", err.Error()))
		return
	}

	runDir := filepath.Join(s.cfg.Paths.ReportsDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		s.finish(runID, nil, 0, fmt.Errorf("create run dir: %w", err))
		return
	}
	workbookPath := filepath.Join(runDir, config.ResultWorkbookName)
	if err := exporter.WriteWorkbook(workbookPath, result); err != nil {
		s.finish(runID, nil, 0, fmt.Errorf("write workbook: %w", err))
		return
	}
	anomalyPath := filepath.Join(runDir, config.AnomalyLogName)
	if err := exporter.WriteAnomalies(anomalyPath, result.Anomalies); err != nil {
		s.finish(runID, nil, 0, fmt.Errorf("write anomaly log: %w", err))
		return
	}

	tasks := 0
	if s.cfg.TaskTracker.Enabled {
		tasks = tasktracker.FileFollowUps(ctx, s.tracker, result, s.cfg.TaskTracker.Targets, logger, s.metrics)
	}

	s.mu.Lock()
	state := s.runs[runID]
	state.WorkbookPath = workbookPath
	state.AnomalyPath = anomalyPath
	s.mu.Unlock()
	s.finish(runID, result, tasks, nil)

	logger.InfoContext(ctx, "run completed",
		slog.Int("rows", result.RowCount()),
		slog.Int("anomalies", len(result.Anomalies)),
		slog.Int("tasks_filed", tasks))
}

func (s *RunService) finish(runID string, result *pipeline.Result, tasks int, err error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.runs[runID]
	state.FinishedAt = &now
	state.TasksFiled = tasks
	if err != nil {
		state.Status = RunStatusFailed
		state.Error = err.Error()
	} else {
		state.Status = RunStatusCompleted
		state.RowCount = result.RowCount()
		state.AnomalyCount = len(result.Anomalies)
	}
	if s.active == runID {
		s.active = ""
	}
}

// Status returns a snapshot of the named run.
func (s *RunService) Status(runID string) (RunState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.runs[runID]
	if !ok {
		return RunState{}, ErrRunUnknown
	}
	return *state, nil
}

// List returns snapshots of all runs, oldest first.
func (s *RunService) List() []RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RunState, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.runs[id])
	}
	return out
}

// WorkbookPath returns the result workbook path for a completed run.
func (s *RunService) WorkbookPath(runID string) (string, error) {
	return s.artifactPath(runID, func(st *RunState) string { return st.WorkbookPath })
}

// AnomalyPath returns the anomaly log path for a completed run.
func (s *RunService) AnomalyPath(runID string) (string, error) {
	return s.artifactPath(runID, func(st *RunState) string { return st.AnomalyPath })
}

func (s *RunService) artifactPath(runID string, pick func(*RunState) string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.runs[runID]
	if !ok {
		return "", ErrRunUnknown
	}
	if state.Status != RunStatusCompleted {
		return "", ErrRunUnfinished
	}
	return pick(state), nil
}
