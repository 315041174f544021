package marketplace

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"idqcli/internal/config"
	"idqcli/internal/infrastructure"
)

// Poller drives one listing report from submission to decoded table.
// It is invoked once per market partition; no state survives the call.
type Poller struct {
	client   ReportClient
	markets  map[string]string
	interval time.Duration
	attempts int
	logger   *slog.Logger
	metrics  *infrastructure.Metrics
}

// NewPoller creates a poller. metrics may be nil.
func NewPoller(client ReportClient, cfg config.MarketplaceConfig, logger *slog.Logger, metrics *infrastructure.Metrics) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		client:   client,
		markets:  cfg.Markets,
		interval: cfg.PollInterval,
		attempts: cfg.MaxPollAttempts,
		logger:   logger.With(slog.String("component", "report_poller")),
		metrics:  metrics,
	}
}

// FetchListing submits a report request for the market and polls it to
// completion, returning the decoded listing table.
//
// Statuses that mean "still generating" consume one poll attempt each; the
// retry budget exhausting before DONE, or any terminal status other than
// DONE, yields a *PartitionError. The caller degrades the partition and
// moves on.
func (p *Poller) FetchListing(ctx context.Context, market string) (ListingTable, error) {
	marketplaceID, ok := p.markets[market]
	if !ok {
		return ListingTable{}, newPartitionError(market, ReasonFailed,
			fmt.Errorf("market %q is not in the configured marketplace set", market))
	}

	logger := p.logger.With(slog.String("market", market))
	start := time.Now()

	reportID, err := p.client.CreateReport(ctx, marketplaceID)
	if err != nil {
		return ListingTable{}, newPartitionError(market, ReasonFailed, err)
	}

	job, err := p.awaitReport(ctx, logger, market, reportID)
	if err != nil {
		return ListingTable{}, err
	}

	url, err := p.client.DocumentURL(ctx, job.DocumentID)
	if err != nil {
		return ListingTable{}, newPartitionError(market, ReasonFailed, err)
	}

	payload, err := p.client.Download(ctx, url)
	if err != nil {
		return ListingTable{}, newPartitionError(market, ReasonFailed, err)
	}

	table, err := decodeDocument(payload)
	if err != nil {
		return ListingTable{}, newPartitionError(market, ReasonMissingColumns, err)
	}

	if p.metrics != nil {
		p.metrics.ReportFetchSeconds.Observe(time.Since(start).Seconds())
	}
	logger.Info("listing report fetched",
		slog.String("report_id", reportID),
		slog.Int("rows", table.Len()),
		slog.Duration("elapsed", time.Since(start)))

	return table, nil
}

// awaitReport polls the job status until DONE, a terminal failure, or the
// attempt budget runs out.
func (p *Poller) awaitReport(ctx context.Context, logger *slog.Logger, market, reportID string) (ReportJob, error) {
	for attempt := 0; attempt < p.attempts; attempt++ {
		if p.metrics != nil {
			p.metrics.ReportPollsTotal.Inc()
		}

		job, err := p.client.ReportStatus(ctx, reportID)
		if err != nil {
			return ReportJob{}, newPartitionError(market, ReasonFailed, err)
		}

		switch {
		case job.Status == StatusDone:
			if job.DocumentID == "" {
				return ReportJob{}, newPartitionError(market, ReasonFailed,
					fmt.Errorf("report %s is done but has no document id", reportID))
			}
			return job, nil
		case job.Status.Pending():
			logger.Debug("report still generating",
				slog.String("report_id", reportID),
				slog.String("status", string(job.Status)),
				slog.Int("attempt", attempt+1))
		default:
			return ReportJob{}, newPartitionError(market, ReasonFailed,
				fmt.Errorf("report %s ended with status %s", reportID, job.Status))
		}

		if attempt+1 == p.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ReportJob{}, newPartitionError(market, ReasonTimedOut, ctx.Err())
		case <-time.After(p.interval):
		}
	}

	return ReportJob{}, newPartitionError(market, ReasonTimedOut,
		fmt.Errorf("report %s not ready after %d polls", reportID, p.attempts))
}
