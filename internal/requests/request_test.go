package requests

import (
	"testing"

	"github.com/quantnet/controller/internal/model"
)

func TestUpdateStatusIsMonotonicOnceTerminal(t *testing.T) {
	r := New(model.RequestProtocol, nil, nil, nil)
	if err := r.UpdateStatus(model.StatusRunning, ""); err != nil {
		t.Fatalf("Created -> Running should succeed: %v", err)
	}
	if err := r.UpdateStatus(model.StatusCompleted, ""); err != nil {
		t.Fatalf("Running -> Completed should succeed: %v", err)
	}
	if r.StatusCode() != model.StatusCompleted {
		t.Fatalf("StatusCode() = %s, want Completed", r.StatusCode())
	}

	if err := r.UpdateStatus(model.StatusFailed, "too late"); err == nil {
		t.Fatal("expected UpdateStatus to refuse a transition out of a terminal status")
	}
	if r.StatusCode() != model.StatusCompleted {
		t.Fatalf("status must remain Completed after a refused transition, got %s", r.StatusCode())
	}
}

func TestUpdateStatusRecordsErrorMessage(t *testing.T) {
	r := New(model.RequestExperiment, nil, nil, nil)
	if err := r.UpdateStatus(model.StatusFailed, "agent unreachable"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	errs, ok := r.Result["errors"].([]any)
	if !ok || len(errs) != 1 {
		t.Fatalf("expected exactly one recorded error entry, got %#v", r.Result["errors"])
	}
}

func TestNewRequestStartsCreated(t *testing.T) {
	r := New(model.RequestSimulation, map[string]any{"k": "v"}, nil, nil)
	if r.StatusCode() != model.StatusCreated {
		t.Fatalf("new request status = %s, want Created", r.StatusCode())
	}
	if r.ID == "" {
		t.Fatal("expected a non-empty generated ID")
	}
}
