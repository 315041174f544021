package pipeline

import (
	"idqcli/internal/catalog"
)

// FilterAndPartition keeps the catalog rows whose rating falls strictly
// inside the (floor, ceiling) band and partitions them by market, preserving
// the original row order within each partition. Markets with no qualifying
// rows are simply absent from the result.
//
// Both bounds are exclusive: a rating exactly at the floor or the ceiling
// is rejected.
func FilterAndPartition(records []catalog.Record, floor, ceiling float64) *PartitionSet {
	set := NewPartitionSet()
	for _, r := range records {
		if r.Rating > floor && r.Rating < ceiling {
			set.Add(r)
		}
	}
	return set
}
