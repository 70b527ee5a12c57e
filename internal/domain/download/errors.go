package download

import "errors"

// ErrNotFound is returned when a job id is unknown or already evicted.
var ErrNotFound = errors.New("job not found")

// ErrInvalidTransition is returned when a mutation would violate the job
// state machine, such as moving a terminal job back to a live state.
var ErrInvalidTransition = errors.New("invalid job state transition")

// ValidationKind classifies why a request was rejected before a job existed.
type ValidationKind string

const (
	MissingField     ValidationKind = "MissingField"
	InvalidUrl       ValidationKind = "InvalidUrl"
	PlatformMismatch ValidationKind = "PlatformMismatch"
	InvalidOption    ValidationKind = "InvalidOption"
)

// ValidationError rejects a submission; no job is created when it is returned.
type ValidationError struct {
	Kind    ValidationKind
	Message string
}

func (e *ValidationError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// ErrorKind classifies a terminal per-job extraction failure.
type ErrorKind string

const (
	NetworkFailure     ErrorKind = "NetworkFailure"
	UnsupportedContent ErrorKind = "UnsupportedContent"
	PermissionDenied   ErrorKind = "PermissionDenied"
	InternalError      ErrorKind = "InternalError"
)

// ExtractionError is a structured failure reported by the extraction gateway.
// It is recorded in the job result and never propagated past the dispatcher.
type ExtractionError struct {
	Kind    ErrorKind
	Message string
}

func (e *ExtractionError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// FailureKind maps an arbitrary execution error to a structured kind.
// Errors the gateway did not classify count as network failures because the
// only unclassified failure mode is the transport to the gateway itself.
func FailureKind(err error) (ErrorKind, string) {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return ee.Kind, ee.Message
	}
	return NetworkFailure, err.Error()
}
