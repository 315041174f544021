package pipeline

// Event is a coarse progress notification emitted while a run executes.
// The web front end relays these to connected clients; the CLI just logs.
type Event struct {
	RunID   string  `json:"run_id"`
	Stage   string  `json:"stage"`
	Market  string  `json:"market,omitempty"`
	Message string  `json:"message"`
	Percent float64 `json:"percent"`
}

// ProgressFunc receives run progress events. May be nil.
type ProgressFunc func(Event)

// Stage identifiers used in progress events and logs.
const (
	StageFilter      = "filter"
	StageListing     = "listing"
	StageDescription = "description"
	StageSubstitute  = "substitute"
	StageBarcode     = "barcode"
)
