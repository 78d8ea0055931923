package core

// Outcome tags the terminal state of a routed request. Both success and
// bounded failure carry an answer; the caller never receives a bare fault
// for ordinary network flakiness.
type Outcome int

const (
	// OutcomeDone means the Decision Engine produced a final answer.
	OutcomeDone Outcome = iota
	// OutcomeExhausted means the iteration bound was reached before a final
	// answer; the returned text is a best-effort partial synthesis.
	OutcomeExhausted
	// OutcomeCancelled means the caller's cancellation signal fired before
	// the exchange completed.
	OutcomeCancelled
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "done"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}
