package valuation

// Severity classifies the outcome of one per-year computation.
type Severity int

const (
	// SeverityOK means every figure for the year was computed.
	SeverityOK Severity = iota
	// SeverityDegraded means some figures fell back to a sentinel (zero or
	// not available) and the year is still reported.
	SeverityDegraded
	// SeverityFatal means the year's computation was aborted.
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityOK:
		return "ok"
	case SeverityDegraded:
		return "degraded"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Worst returns the more severe of a and b.
func Worst(a, b Severity) Severity {
	if b > a {
		return b
	}
	return a
}
