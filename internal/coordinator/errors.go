package coordinator

import "assistantd/pkg/types"

// bridgeUnavailableError signals that the host bridge cannot be reached at
// all, so the HTTP layer can return 503 instead of 500.
type bridgeUnavailableError struct{ msg string }

func (e bridgeUnavailableError) Error() string { return e.msg }

// ErrBridgeUnavailable constructs a bridgeUnavailableError.
func ErrBridgeUnavailable(msg string) error {
	if msg == "" {
		msg = "bridge unavailable"
	}
	return bridgeUnavailableError{msg: msg}
}

// IsBridgeUnavailable reports whether err means the bridge is unreachable.
func IsBridgeUnavailable(err error) bool {
	_, ok := err.(bridgeUnavailableError)
	return ok
}

// alreadyInProgressError signals a single-flight conflict for 409 mapping.
type alreadyInProgressError struct {
	class types.OpClass
	id    types.ModelID
}

func (e alreadyInProgressError) Error() string {
	if e.id.IsNone() {
		return string(e.class) + " already in progress"
	}
	return string(e.class) + " already in progress: " + string(e.id)
}

// ErrAlreadyInProgress constructs an alreadyInProgressError.
func ErrAlreadyInProgress(class types.OpClass, id types.ModelID) error {
	return alreadyInProgressError{class: class, id: id}
}

// IsAlreadyInProgress reports whether err indicates a single-flight conflict.
func IsAlreadyInProgress(err error) bool {
	_, ok := err.(alreadyInProgressError)
	return ok
}

// remoteFailureError carries the human-readable detail extracted from an
// external process or HTTP error payload.
type remoteFailureError struct{ detail string }

func (e remoteFailureError) Error() string { return e.detail }

// ErrRemoteFailure constructs a remoteFailureError. An empty detail falls
// back to a generic message.
func ErrRemoteFailure(detail string) error {
	if detail == "" {
		detail = "remote operation failed"
	}
	return remoteFailureError{detail: detail}
}

// IsRemoteFailure reports whether err came from the external process or a
// fallback HTTP call.
func IsRemoteFailure(err error) bool {
	_, ok := err.(remoteFailureError)
	return ok
}

// partialSuccessError means a download succeeded but the follow-up warmup
// did not; the model is usable, just not pre-warmed.
type partialSuccessError struct {
	id     types.ModelID
	detail string
}

func (e partialSuccessError) Error() string {
	return "model " + string(e.id) + " downloaded but warmup failed: " + e.detail
}

// ErrPartialSuccess constructs a partialSuccessError.
func ErrPartialSuccess(id types.ModelID, detail string) error {
	return partialSuccessError{id: id, detail: detail}
}

// IsPartialSuccess reports whether err is a download-ok/warmup-failed outcome.
func IsPartialSuccess(err error) bool {
	_, ok := err.(partialSuccessError)
	return ok
}
