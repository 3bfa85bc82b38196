// api/schemas/history.go
package schemas

// HistoryEntry is one append-only record of a completed step. The controller
// owns the full list; only a bounded tail is ever shown to the decision
// service.
type HistoryEntry struct {
	Kind ActionKind `json:"action"`
	// Result holds the outcome summary for successful steps.
	Result string `json:"result,omitempty"`
	// Error is set when the step's action failed.
	Error string `json:"error,omitempty"`

	// Kind-specific echoed fields.
	Element   int    `json:"element,omitempty"`
	Text      string `json:"text,omitempty"`
	URL       string `json:"url,omitempty"`
	Direction string `json:"direction,omitempty"`
	Key       string `json:"key,omitempty"`
	Question  string `json:"question,omitempty"`
	Answer    string `json:"answer,omitempty"`
}

// Errored reports whether the entry carries an error flag. The controller's
// circuit breaker counts these over a trailing window.
func (h HistoryEntry) Errored() bool {
	return h.Error != ""
}

// TailHistory returns at most n of the most recent entries without copying.
func TailHistory(history []HistoryEntry, n int) []HistoryEntry {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
