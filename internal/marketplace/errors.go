package marketplace

import "fmt"

// Stable failure reasons. These become the anomaly reason for every row in
// the degraded partition, so the wording is part of the contract.
const (
	ReasonTimedOut       = "report timed out"
	ReasonFailed         = "report failed"
	ReasonMissingColumns = "missing required columns"
)

// PartitionError reports that the listing fetch for one market failed.
// The pipeline treats it as "skip this partition": every catalog row in the
// partition is recorded as an anomaly and the run continues.
type PartitionError struct {
	Market string
	Reason string
	Err    error
}

func (e *PartitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("market %s: %s: %v", e.Market, e.Reason, e.Err)
	}
	return fmt.Sprintf("market %s: %s", e.Market, e.Reason)
}

func (e *PartitionError) Unwrap() error {
	return e.Err
}

// newPartitionError wraps err with the market and a stable reason.
func newPartitionError(market, reason string, err error) *PartitionError {
	return &PartitionError{Market: market, Reason: reason, Err: err}
}
