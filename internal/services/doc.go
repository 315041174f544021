// Package services holds the application services that sit between the
// HTTP transport and the enrichment pipeline. RunService owns the run
// lifecycle: uploads, starting a run, tracking its state and locating
// its artifacts. HealthService answers liveness and readiness probes.
package services
