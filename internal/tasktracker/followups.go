package tasktracker

import (
	"context"
	"fmt"
	"log/slog"

	"idqcli/internal/infrastructure"
	"idqcli/internal/pipeline"
)

// FileFollowUps creates one follow-up task for every enriched row that
// ended the run without a usable barcode. targets maps a market code to
// the tracker group tasks should land in; markets without a mapping are
// skipped.
//
// Individual tracker failures are logged and skipped — there is no
// exactly-once guarantee, and a tracker outage must not fail the run.
// Returns the number of tasks filed.
func FileFollowUps(ctx context.Context, tracker TaskTracker, result *pipeline.Result, targets map[string]string, logger *slog.Logger, metrics *infrastructure.Metrics) int {
	if tracker == nil {
		return 0
	}
	if logger == nil {
		logger = slog.Default()
	}

	filed := 0
	for _, market := range result.Markets {
		group, ok := targets[market.Market]
		if !ok {
			continue
		}
		for _, row := range market.Rows {
			if row.Barcode != "" {
				continue
			}

			task := Task{
				Title: fmt.Sprintf("Missing barcode for %s in %s", row.ProductID, market.Market),
				Body: fmt.Sprintf("Product %s (SKU %s) has no usable barcode after enrichment; substitute code: %q.",
					row.ProductID, row.SellerSKU, row.Substitute),
				TargetGroup: group,
			}

			if err := tracker.CreateTask(ctx, task); err != nil {
				logger.Warn("failed to file follow-up task",
					slog.String("market", market.Market),
					slog.String("product_id", row.ProductID),
					slog.String("error", err.Error()))
				continue
			}

			filed++
			if metrics != nil {
				metrics.TasksCreated.Inc()
			}
		}
	}

	return filed
}
