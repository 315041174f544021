// Package exporter writes the run artifacts: the enriched result
// workbook, one sheet per market in first-seen catalog order, and the
// append-only anomaly CSV log.
package exporter
