package fetcher

// Result represents the outcome of processing one company.
// The coordinator collects one per configured ticker; a failed ticker never
// prevents the others from being processed
type Result struct {
	// Ticker is the stock symbol processed
	Ticker string

	// BreachYear is the reference year the valuation was centered on
	BreachYear int

	// Path is the report file written, empty if nothing was written
	Path string

	// Partial is set when only the raw metrics table could be written
	// because the valuation section failed
	Partial bool

	// Error contains the failure, if any. A Result can carry both a Path and
	// an Error when Partial is set
	Error error
}

// OK reports whether the company was fully processed
func (r Result) OK() bool {
	return r.Error == nil && !r.Partial
}
