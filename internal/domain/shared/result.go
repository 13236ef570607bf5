package shared

import "errors"

// Status classifies the outcome of an operation that may degrade instead of failing.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
)

// Result carries a value together with how it was obtained.
// A Degraded result holds a usable value and at least one reason;
// a Failed result holds the zero value and the failure reason.
type Result[T any] struct {
	Value   T
	Status  Status
	Reasons []error
}

// Ok wraps a value obtained without loss.
func Ok[T any](value T) Result[T] {
	return Result[T]{Value: value, Status: StatusOK}
}

// Degraded wraps a usable value produced with missing or discarded input.
func Degraded[T any](value T, reasons ...error) Result[T] {
	return Result[T]{Value: value, Status: StatusDegraded, Reasons: reasons}
}

// Failed wraps a failure with no usable value.
func Failed[T any](reason error) Result[T] {
	var zero T
	return Result[T]{Value: zero, Status: StatusFailed, Reasons: []error{reason}}
}

// IsOK reports whether the result carries no degradation.
func (r Result[T]) IsOK() bool {
	return r.Status == StatusOK
}

// IsDegraded reports whether the value is usable but incomplete.
func (r Result[T]) IsDegraded() bool {
	return r.Status == StatusDegraded
}

// IsFailed reports whether no usable value was produced.
func (r Result[T]) IsFailed() bool {
	return r.Status == StatusFailed
}

// Err returns the failure reason for a Failed result and nil otherwise.
// Degradation is not an error.
func (r Result[T]) Err() error {
	if r.Status != StatusFailed || len(r.Reasons) == 0 {
		return nil
	}
	return r.Reasons[0]
}

// HasReason reports whether any reason matches target via errors.Is.
func (r Result[T]) HasReason(target error) bool {
	for _, reason := range r.Reasons {
		if errors.Is(reason, target) {
			return true
		}
	}
	return false
}

// ReasonCodes returns the domain error codes of all reasons, in order.
// Reasons that are not domain errors are reported as UNKNOWN.
func (r Result[T]) ReasonCodes() []string {
	codes := make([]string, 0, len(r.Reasons))
	for _, reason := range r.Reasons {
		var domainErr *DomainError
		if errors.As(reason, &domainErr) {
			codes = append(codes, domainErr.Code)
			continue
		}
		codes = append(codes, "UNKNOWN")
	}
	return codes
}

// Merge folds the reasons of other into r, escalating r to Degraded when
// other carries any. A Failed r is left as is.
func Merge[T, U any](r Result[T], other Result[U]) Result[T] {
	if r.Status == StatusFailed || len(other.Reasons) == 0 {
		return r
	}
	r.Reasons = append(append([]error(nil), r.Reasons...), other.Reasons...)
	r.Status = StatusDegraded
	return r
}
