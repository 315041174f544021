package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"idqcli/internal/catalog"
	"idqcli/internal/config"
	"idqcli/internal/infrastructure"
	"idqcli/internal/marketplace"
	"idqcli/internal/refdata"
)

// ListingFetcher fetches the listing report for one market. It is the only
// network dependency the driver has; an error return degrades that market's
// partition to all-anomaly instead of aborting the run.
type ListingFetcher interface {
	FetchListing(ctx context.Context, market string) (marketplace.ListingTable, error)
}

// References bundles the read-only reference tables for one run.
type References struct {
	Descriptions refdata.DescriptionTable
	Substitutes  refdata.SubstituteTable
	Barcodes     refdata.BarcodeTable
}

// Driver sequences the enrichment stages over the partitioned catalog.
type Driver struct {
	cfg      config.PipelineConfig
	fetcher  ListingFetcher
	logger   *slog.Logger
	metrics  *infrastructure.Metrics
	progress ProgressFunc
}

// NewDriver creates a pipeline driver. metrics and progress may be nil.
func NewDriver(cfg config.PipelineConfig, fetcher ListingFetcher, logger *slog.Logger, metrics *infrastructure.Metrics, progress ProgressFunc) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		cfg:      cfg,
		fetcher:  fetcher,
		logger:   logger.With(slog.String("component", "pipeline")),
		metrics:  metrics,
		progress: progress,
	}
}

// partitionOutcome is the fetch+join result for one market.
type partitionOutcome struct {
	rows      []EnrichedRow
	anomalies []Anomaly
}

// Run executes the full pipeline over the catalog records.
//
// Markets appear in the result in first-seen catalog order; row order
// within a market follows the catalog. Per-market report failures degrade
// that partition to anomalies and the run continues — the returned error is
// non-nil only for conditions that invalidate the whole run.
func (d *Driver) Run(ctx context.Context, runID string, records []catalog.Record, refs References) (*Result, error) {
	if refs.Descriptions == nil || refs.Barcodes == nil {
		return nil, fmt.Errorf("reference tables are not loaded")
	}

	parts := FilterAndPartition(records, d.cfg.RatingFloor, d.cfg.RatingCeiling)

	kept := 0
	for _, market := range parts.Markets() {
		kept += len(parts.Get(market).Records)
	}
	if d.metrics != nil {
		d.metrics.RowsFiltered.Add(float64(kept))
	}
	d.logger.Info("catalog filtered",
		slog.String("run_id", runID),
		slog.Int("input_rows", len(records)),
		slog.Int("kept_rows", kept),
		slog.Int("markets", parts.Len()))
	d.emit(Event{RunID: runID, Stage: StageFilter, Percent: 10,
		Message: fmt.Sprintf("%d of %d rows in rating band across %d markets", kept, len(records), parts.Len())})

	outcomes, err := d.fetchAndJoin(ctx, runID, parts)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	normalize := NormalizerFor(d.cfg.SKUNormalization)

	for i, market := range parts.Markets() {
		outcome := outcomes[i]
		result.Anomalies = append(result.Anomalies, outcome.anomalies...)
		if len(outcome.rows) == 0 {
			continue
		}

		rows := MergeDescriptions(outcome.rows, refs.Descriptions, normalize)
		d.emit(Event{RunID: runID, Stage: StageDescription, Market: market, Percent: 70,
			Message: fmt.Sprintf("descriptions merged for %s", market)})

		rows = ResolveSubstitutes(rows, refs.Substitutes, d.cfg.SubstituteColFrom, d.cfg.SubstituteColTo)
		d.emit(Event{RunID: runID, Stage: StageSubstitute, Market: market, Percent: 85,
			Message: fmt.Sprintf("substitutes resolved for %s", market)})

		rows, barcodeAnomalies := AttachBarcodes(rows, refs.Barcodes)
		result.Anomalies = append(result.Anomalies, barcodeAnomalies...)
		d.emit(Event{RunID: runID, Stage: StageBarcode, Market: market, Percent: 95,
			Message: fmt.Sprintf("barcodes attached for %s", market)})

		result.Markets = append(result.Markets, MarketResult{Market: market, Rows: rows})
	}

	d.record(result)
	d.logger.Info("pipeline run complete",
		slog.String("run_id", runID),
		slog.Int("enriched_rows", result.RowCount()),
		slog.Int("anomalies", len(result.Anomalies)))

	return result, nil
}

// fetchAndJoin runs the report fetch and listing join for every partition,
// optionally in parallel. Outcomes are indexed by the partition's position
// in first-seen order so the merge stays deterministic regardless of which
// fetch finishes first.
func (d *Driver) fetchAndJoin(ctx context.Context, runID string, parts *PartitionSet) ([]partitionOutcome, error) {
	markets := parts.Markets()
	outcomes := make([]partitionOutcome, len(markets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.EnrichConcurrency)

	for i, market := range markets {
		i, market := i, market
		g.Go(func() error {
			outcomes[i] = d.joinPartition(gctx, runID, parts.Get(market))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return outcomes, nil
}

// joinPartition fetches the market's listing report and joins the partition
// against it. A fetch failure degrades every row to an anomaly.
func (d *Driver) joinPartition(ctx context.Context, runID string, p *Partition) partitionOutcome {
	logger := d.logger.With(slog.String("run_id", runID), slog.String("market", p.Market))

	d.emit(Event{RunID: runID, Stage: StageListing, Market: p.Market, Percent: 30,
		Message: fmt.Sprintf("fetching listing report for %s", p.Market)})

	listing, err := d.fetcher.FetchListing(ctx, p.Market)
	if err != nil {
		reason := marketplace.ReasonFailed
		var pe *marketplace.PartitionError
		if errors.As(err, &pe) {
			reason = pe.Reason
		}
		logger.Warn("listing fetch failed, degrading partition",
			slog.String("reason", reason),
			slog.Int("rows", len(p.Records)),
			slog.String("error", err.Error()))
		if d.metrics != nil {
			d.metrics.PartitionFailures.WithLabelValues(p.Market).Inc()
		}
		return partitionOutcome{anomalies: FailPartition(p, reason)}
	}

	rows, anomalies := JoinListing(p, listing)
	for _, a := range anomalies {
		logger.Warn("product no longer listed", slog.String("product_id", a.ProductID))
	}
	logger.Info("listing joined",
		slog.Int("matched", len(rows)),
		slog.Int("unmatched", len(anomalies)))

	return partitionOutcome{rows: rows, anomalies: anomalies}
}

// record updates run-level metrics from the final result.
func (d *Driver) record(result *Result) {
	if d.metrics == nil {
		return
	}
	d.metrics.RowsEnriched.Add(float64(result.RowCount()))
	for _, a := range result.Anomalies {
		d.metrics.AnomaliesTotal.WithLabelValues(a.Reason).Inc()
	}
}

func (d *Driver) emit(e Event) {
	if d.progress != nil {
		d.progress(e)
	}
}
