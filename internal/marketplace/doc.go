// Package marketplace implements the asynchronous listing-report protocol
// against the marketplace's reports API: submit a report request, poll the
// job until it completes, then download and decode the tab-delimited payload.
//
// The package exposes two seams for testing and substitution:
//
//   - ReportClient covers the four REST calls (create, status, document, download)
//   - TokenProvider supplies the bearer credential for authenticated calls
//
// Every failure is returned as a *PartitionError carrying the market and a
// stable human-readable reason; callers degrade that market to anomalies
// rather than aborting the run.
package marketplace
