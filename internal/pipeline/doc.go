// Package pipeline implements the multi-stage catalog enrichment pipeline.
//
// The five stages run strictly forward over a per-market partitioned
// dataset:
//
//	filter → listing join → description merge → substitute resolve → barcode attach
//
// Each stage is a pure function of its inputs and the read-only reference
// tables: it consumes the dataset produced by its predecessor and returns a
// new dataset plus any per-row anomalies. No stage mutates its input and no
// stage keeps state between runs, so every stage is independently testable
// and re-running a stage over the same inputs reproduces the same output.
//
// A row is never silently dropped. When a row leaves the pipeline early —
// its listing disappeared, or a market's report fetch failed — an Anomaly
// records the market, product id and reason, and the Driver carries the
// accumulated anomalies to the caller alongside the enriched rows.
package pipeline
