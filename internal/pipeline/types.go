package pipeline

import (
	"idqcli/internal/catalog"
)

// Anomaly reasons produced by the stages themselves. Partition-level
// failures reuse the reason carried by the marketplace error.
const (
	ReasonNotListed = "no longer listed"
	ReasonNoBarcode = "no barcode found"
)

// EnrichedRow is the accumulating enrichment record for one catalog row.
// Fields are added monotonically as the row moves through the stages; a
// field is empty until its producing stage has run.
type EnrichedRow struct {
	Market      string
	ProductID   string
	SellerSKU   string
	Description string
	Substitute  string
	Barcode     string
	Brand       string
}

// Anomaly records why a row could not be enriched further. Anomalies are
// accumulated across the whole run and surfaced to the caller; they are
// never discarded.
type Anomaly struct {
	Market    string
	ProductID string
	Reason    string
}

// Partition is the ordered subset of catalog rows scoped to one market.
type Partition struct {
	Market  string
	Records []catalog.Record
}

// PartitionSet holds the market partitions in first-seen order. Stable
// market ordering is part of the output contract.
type PartitionSet struct {
	order []string
	parts map[string]*Partition
}

// NewPartitionSet creates an empty partition set.
func NewPartitionSet() *PartitionSet {
	return &PartitionSet{parts: make(map[string]*Partition)}
}

// Add appends a record to its market's partition, creating the partition
// on first sight.
func (s *PartitionSet) Add(record catalog.Record) {
	p, ok := s.parts[record.Market]
	if !ok {
		p = &Partition{Market: record.Market}
		s.parts[record.Market] = p
		s.order = append(s.order, record.Market)
	}
	p.Records = append(p.Records, record)
}

// Markets returns the market codes in first-seen order.
func (s *PartitionSet) Markets() []string {
	return s.order
}

// Get returns the partition for a market, or nil.
func (s *PartitionSet) Get(market string) *Partition {
	return s.parts[market]
}

// Len returns the number of non-empty partitions.
func (s *PartitionSet) Len() int {
	return len(s.parts)
}

// MarketResult is the enriched output for one market, rows in catalog order.
type MarketResult struct {
	Market string
	Rows   []EnrichedRow
}

// Result is the outcome of a full pipeline run: one group per market in
// first-seen order, plus every anomaly recorded along the way.
type Result struct {
	Markets   []MarketResult
	Anomalies []Anomaly
}

// RowCount returns the total number of enriched rows across markets.
func (r *Result) RowCount() int {
	n := 0
	for _, m := range r.Markets {
		n += len(m.Rows)
	}
	return n
}
