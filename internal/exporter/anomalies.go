package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"idqcli/internal/pipeline"
)

var anomalyHeader = []string{"market", "product_id", "reason"}

// WriteAnomalies appends the run's anomalies to a durable CSV log. The
// header is written only when the file is new, so successive runs share
// one log.
func WriteAnomalies(path string, anomalies []pipeline.Anomaly) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	info, statErr := os.Stat(path)
	newFile := statErr != nil || info.Size() == 0

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open anomaly log: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if newFile {
		if err := writer.Write(anomalyHeader); err != nil {
			return fmt.Errorf("failed to write anomaly header: %w", err)
		}
	}

	for _, a := range anomalies {
		if err := writer.Write([]string{a.Market, a.ProductID, a.Reason}); err != nil {
			return fmt.Errorf("failed to write anomaly row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush anomaly log: %w", err)
	}

	slog.Info("anomaly log written",
		slog.String("path", path),
		slog.Int("count", len(anomalies)))

	return nil
}
