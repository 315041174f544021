// Command enrich runs the catalog enrichment pipeline once from the
// command line: it reads a catalog workbook and a barcode CSV, fetches
// the listing reports and reference tables, and writes the enriched
// workbook and anomaly log.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"idqcli/internal/catalog"
	"idqcli/internal/config"
	"idqcli/internal/exporter"
	"idqcli/internal/infrastructure"
	"idqcli/internal/marketplace"
	"idqcli/internal/pipeline"
	"idqcli/internal/refdata"
	"idqcli/internal/tasktracker"
)

func main() {
	catalogPath := flag.String("catalog", "", "path to the catalog workbook (.xlsx)")
	barcodePath := flag.String("barcodes", "", "path to the barcode registry CSV")
	outDir := flag.String("out", "", "output directory (defaults to the configured reports dir)")
	markets := flag.String("markets", "", "comma-separated market subset, e.g. UK,DE (default: all)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := infrastructure.MustInitializeLogger(cfg.Logging)
	defer infrastructure.CloseLogFile()

	if err := run(cfg, logger, *catalogPath, *barcodePath, *outDir, *markets); err != nil {
		logger.Error("enrichment failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, catalogPath, barcodePath, outDir, markets string) error {
	if catalogPath == "" {
		return fmt.Errorf("-catalog is required")
	}
	if barcodePath == "" {
		return fmt.Errorf("-barcodes is required")
	}
	if outDir == "" {
		outDir = cfg.Paths.ReportsDir
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Server.RunTimeout)
	defer cancel()

	runID := uuid.New().String()
	ctx = infrastructure.WithTraceID(ctx, runID)
	logger = logger.With(slog.String("run_id", runID))

	records, err := catalog.ReadWorkbook(catalogPath)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	records = filterMarkets(records, markets)
	if len(records) == 0 {
		return fmt.Errorf("catalog contains no usable records")
	}
	logger.InfoContext(ctx, "catalog loaded",
		slog.String("file", catalogPath),
		slog.Int("records", len(records)))

	barcodeFile, err := os.Open(barcodePath)
	if err != nil {
		return fmt.Errorf("open barcode table: %w", err)
	}
	barcodes, err := refdata.ParseBarcodes(barcodeFile, cfg.References.BarcodeHeaderRow)
	barcodeFile.Close()
	if err != nil {
		return fmt.Errorf("read barcode table: %w", err)
	}

	refClient := refdata.NewClient(cfg.References.FetchTimeout)
	descriptions, err := refClient.FetchDescriptions(ctx, cfg.References.DescriptionURL, cfg.References.DescriptionHeaderRow)
	if err != nil {
		return fmt.Errorf("load descriptions: %w", err)
	}
	substitutes, err := refClient.FetchSubstitutes(ctx, cfg.References.SubstituteURL)
	if err != nil {
		return fmt.Errorf("load substitutes: %w", err)
	}

	metrics := infrastructure.NewMetrics()
	tokens := marketplace.NewOAuthTokenProvider(cfg.Marketplace)
	client := marketplace.NewHTTPReportClient(cfg.Marketplace, tokens, logger)
	poller := marketplace.NewPoller(client, cfg.Marketplace, logger, metrics)

	driver := pipeline.NewDriver(cfg.Pipeline, poller, logger, metrics, logProgress(logger))
	result, err := driver.Run(ctx, runID, records, pipeline.References{
		Descriptions: descriptions,
		Substitutes:  substitutes,
		Barcodes:     barcodes,
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	workbookPath := filepath.Join(outDir, config.ResultWorkbookName)
	if err := exporter.WriteWorkbook(workbookPath, result); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	anomalyPath := filepath.Join(outDir, config.AnomalyLogName)
	if err := exporter.WriteAnomalies(anomalyPath, result.Anomalies); err != nil {
		return fmt.Errorf("write anomaly log: %w", err)
	}

	tasks := 0
	if cfg.TaskTracker.Enabled {
		tracker := tasktracker.NewHTTPTracker(cfg.TaskTracker)
		tasks = tasktracker.FileFollowUps(ctx, tracker, result, cfg.TaskTracker.Targets, logger, metrics)
	}

	logger.InfoContext(ctx, "enrichment completed",
		slog.Int("rows", result.RowCount()),
		slog.Int("anomalies", len(result.Anomalies)),
		slog.Int("tasks_filed", tasks),
		slog.String("workbook", workbookPath))
	return nil
}

// logProgress reports stage progress to the log, the CLI's stand-in
// for the web UI's websocket feed.
func logProgress(logger *slog.Logger) pipeline.ProgressFunc {
	return func(e pipeline.Event) {
		logger.Info("progress",
			slog.String("stage", e.Stage),
			slog.String("market", e.Market),
			slog.String("message", e.Message),
			slog.Float64("percent", e.Percent))
	}
}

func filterMarkets(records []catalog.Record, markets string) []catalog.Record {
	if markets == "" {
		return records
	}
	wanted := make(map[string]bool)
	for _, m := range strings.Split(markets, ",") {
		wanted[strings.ToUpper(strings.TrimSpace(m))] = true
	}
	var out []catalog.Record
	for _, r := range records {
		if wanted[r.Market] {
			out = append(out, r)
		}
	}
	return out
}
