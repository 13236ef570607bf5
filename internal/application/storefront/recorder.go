// Package storefront implements the storefront views: catalog enrichment,
// reconciled cart and order views, optimistic cart mutations and debounced
// live search.
package storefront

// Recorder receives counters for degraded results and mutation outcomes.
// telemetry.Metrics implements it.
type Recorder interface {
	ObserveDegradation(operation string, reasonCodes []string)
	ObserveMutation(operation, outcome string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveDegradation(string, []string) {}
func (noopRecorder) ObserveMutation(string, string)      {}

// Mutation outcome labels.
const (
	outcomeOK      = "ok"
	outcomeFailed  = "failed"
	outcomeAborted = "aborted"
	outcomeInvalid = "rejected"
)
