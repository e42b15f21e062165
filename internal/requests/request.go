// Package requests implements the Request Registry (C5): the Request
// lifecycle state machine, the heterogeneous return-code normalization
// boundary, and a singleton-per-(schema,kind) in-memory registry with a
// FIFO execution queue, grounded on the original RequestManager
// (common/request.py), generalized from Python's class-level __new__
// singleton dict to an explicit package-scope map guarded by a mutex.
package requests

import (
	"fmt"
	"sync"
	"time"

	"github.com/quantnet/controller/internal/model"
	"github.com/quantnet/controller/internal/qerr"
)

// Request is one unit of work submitted to the controller: an
// experiment, calibration, simulation, or protocol call. Status and
// Result are mutated by the Manager's single execution goroutine and
// read concurrently by polling callers (Schedule's blocking wait, Get),
// so both are guarded by mu.
type Request struct {
	ID        string
	Type      model.RequestType
	Func      func() (any, error) // set for RequestProtocol; nil otherwise
	Payload   map[string]any
	Params    map[string]any
	CreatedAt time.Time

	mu     sync.RWMutex
	Result map[string]any
	Status model.Status
}

// New constructs a Created-status Request with a fresh ID.
func New(reqType model.RequestType, payload, params map[string]any, fn func() (any, error)) *Request {
	now := time.Now()
	return &Request{
		ID:        model.NewID(),
		Type:      reqType,
		Func:      fn,
		Payload:   payload,
		Params:    params,
		Result:    map[string]any{"errors": []any{}},
		CreatedAt: now,
		Status:    model.Status{Code: model.StatusCreated, UpdatedAt: now},
	}
}

// UpdateStatus transitions the Request to code, recording errMsg (if any)
// both on the Status and as a timestamped entry in Result["errors"].
// Once the Request has reached a terminal status, UpdateStatus leaves it
// unchanged and returns an ErrInvalidArgument error (Testable Property 1:
// status monotonicity) — a Request that has already Completed or Failed
// never changes status again.
func (r *Request) UpdateStatus(code model.ReqStatus, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Status.Code.Terminal() {
		return qerr.New(qerr.ErrInvalidArgument,
			fmt.Sprintf("request %s: status %s is terminal, cannot transition to %s", r.ID, r.Status.Code, code))
	}
	r.Status = model.Status{Code: code, UpdatedAt: time.Now(), Error: errMsg}
	if errMsg != "" {
		errs, _ := r.Result["errors"].([]any)
		r.Result["errors"] = append(errs, map[string]any{
			"message": errMsg, "at": time.Now().Format(time.RFC3339Nano),
		})
	}
	return nil
}

// StatusCode returns the Request's current status code.
func (r *Request) StatusCode() model.ReqStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Status.Code
}

// AddResult stores a named piece of result data, e.g. per-agent
// getResult responses keyed by agent id.
func (r *Request) AddResult(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Result[key] = value
}

// ToDoc renders the Request as a persistence document.
func (r *Request) ToDoc() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return map[string]any{
		"_id": r.ID, "type": string(r.Type), "payload": r.Payload,
		"params": r.Params, "result": r.Result,
		"status": map[string]any{
			"code": string(r.Status.Code), "error": r.Status.Error,
			"updatedAt": r.Status.UpdatedAt,
		},
		"createdAt": r.CreatedAt,
	}
}
