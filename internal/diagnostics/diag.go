// Package diagnostics defines the payload pushed to the control
// surface's /diag subscribers when the display pipeline detects a
// problem worth surfacing to an operator.
package diagnostics

// Severity classifies how urgently a Diagnostic needs attention.
type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Diagnostic is one reported condition: a pattern generator failing
// and reverting to external input, a layout rejection, and similar
// operator-facing events. Fields are kept to what this pipeline
// actually populates; a fuller incident-report shape (likely causes,
// suggested fixes, evidence) belongs to a system with enough signal
// sources to fill it in.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Summary  string   `json:"summary"`
	Detail   string   `json:"detail,omitempty"`
}
