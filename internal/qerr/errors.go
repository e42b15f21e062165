// Package qerr defines the sentinel error taxonomy shared by every
// controller component. Components wrap one of these sentinels with
// fmt.Errorf's %w verb so callers can classify a failure with errors.Is
// while still getting a human-readable, context-specific message.
package qerr

import "errors"

// Sentinel errors. Every error surfaced across a component boundary
// (Resource Registry, Request Registry, Scheduler, Translator, Topology)
// wraps one of these so the Request status-transition logic in the
// request registry can classify failures without string matching.
var (
	// ErrInvalidArgument marks a caller-supplied value that is malformed
	// or out of range (bad node ID, negative duration, unknown plugin name).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound marks a lookup that found nothing (unknown node, unknown
	// request id, unknown experiment definition).
	ErrNotFound = errors.New("not found")

	// ErrTimeout marks an RPC or readiness wait that exceeded its deadline.
	ErrTimeout = errors.New("timeout")

	// ErrResourceExhausted marks a scheduling failure: no contiguous run of
	// free timeslots satisfies every agent's sequence length.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrAgentNotReady marks an agent that failed to reach IN_SPEC state
	// before the translator's readiness deadline.
	ErrAgentNotReady = errors.New("agent not ready")

	// ErrDuplicate marks an attempt to register an already-registered
	// singleton (plugin, request-kind registry) a second time.
	ErrDuplicate = errors.New("duplicate")

	// ErrInternal marks a failure with no more specific classification
	// (unexpected panics recovered at a boundary, broker transport errors).
	ErrInternal = errors.New("internal error")
)

// Wrap annotates err with msg and classifies it under kind, so a later
// errors.Is(err, kind) still succeeds.
func Wrap(kind error, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &wrapped{kind: kind, msg: msg, err: err}
}

// New builds a fresh error classified under kind without wrapping a cause.
func New(kind error, msg string) error {
	return &wrapped{kind: kind, msg: msg}
}

type wrapped struct {
	kind error
	err  error
	msg  string
}

func (w *wrapped) Error() string {
	if w.err != nil {
		return w.msg + ": " + w.err.Error()
	}
	return w.msg
}

func (w *wrapped) Unwrap() error {
	if w.err != nil {
		return w.err
	}
	return w.kind
}

func (w *wrapped) Is(target error) bool {
	return target == w.kind
}
