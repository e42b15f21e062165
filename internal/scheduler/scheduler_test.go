package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type fakeClient struct {
	mu    sync.Mutex
	calls []string
	fn    func(ctx context.Context, target, method string, params any) (any, error)
}

func (f *fakeClient) Call(ctx context.Context, target, method string, params any) (any, error) {
	f.mu.Lock()
	f.calls = append(f.calls, target+":"+method)
	f.mu.Unlock()
	return f.fn(ctx, target, method, params)
}

func TestGetTimeslotsAnyFailureIsFatal(t *testing.T) {
	client := &fakeClient{fn: func(ctx context.Context, target, method string, params any) (any, error) {
		if target == "agent-2" {
			return nil, errors.New("boom")
		}
		return map[string]any{"status": "OK", "mask": All().Hex()}, nil
	}}
	s := New(client)
	_, err := s.GetTimeslots(context.Background(), []string{"agent-1", "agent-2", "agent-3"})
	if err == nil {
		t.Fatal("expected GetTimeslots to fail when any agent call fails")
	}
}

func TestGetResultAcceptsQueued(t *testing.T) {
	client := &fakeClient{fn: func(ctx context.Context, target, method string, params any) (any, error) {
		return map[string]any{"status": "QUEUED"}, nil
	}}
	s := New(client)
	results, err := s.GetResult(context.Background(), "experiment", "exp-1", []string{"agent-1"})
	if err != nil {
		t.Fatalf("GetResult should accept QUEUED as progress: %v", err)
	}
	if _, ok := results["agent-1"]; !ok {
		t.Fatal("expected a result entry for agent-1")
	}
	if client.calls[0] != "agent-1:experiment.getResult" {
		t.Fatalf("expected the kind-prefixed wire method, got %q", client.calls[0])
	}
}

func TestGetResultFailsOnExplicitFailure(t *testing.T) {
	client := &fakeClient{fn: func(ctx context.Context, target, method string, params any) (any, error) {
		return map[string]any{"status": "FAILED"}, nil
	}}
	s := New(client)
	if _, err := s.GetResult(context.Background(), "experiment", "exp-1", []string{"agent-1"}); err == nil {
		t.Fatal("expected GetResult to fail on an explicit FAILED status")
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	client := &fakeClient{fn: func(ctx context.Context, target, method string, params any) (any, error) {
		return map[string]any{"status": "OK"}, nil
	}}
	s := New(client)
	s.Cancel(context.Background(), "exp-1", []string{"agent-1", "agent-2"})
	firstCount := len(client.calls)
	s.Cancel(context.Background(), "exp-1", []string{"agent-1", "agent-2"})
	if len(client.calls) != firstCount {
		t.Fatalf("second Cancel for the same request id should be a no-op, got %d new calls", len(client.calls)-firstCount)
	}
}

func TestCancelUsesFixedExperimentCancelMethod(t *testing.T) {
	client := &fakeClient{fn: func(ctx context.Context, target, method string, params any) (any, error) {
		return map[string]any{"status": "OK"}, nil
	}}
	s := New(client)
	s.Cancel(context.Background(), "exp-calibration-1", []string{"agent-1"})
	if client.calls[0] != "agent-1:experiment.cancel" {
		t.Fatalf("Cancel should always dispatch experiment.cancel regardless of request kind, got %q", client.calls[0])
	}
}

func TestSubmitUsesKindPrefixedMethod(t *testing.T) {
	client := &fakeClient{fn: func(ctx context.Context, target, method string, params any) (any, error) {
		return map[string]any{"status": "OK"}, nil
	}}
	s := New(client)
	_, err := s.Submit(context.Background(), []SubmitTask{
		{AgentID: "agent-1", Kind: "calibration", ExpID: "exp-1", StartSlot: 0, NumSlots: 1},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if client.calls[0] != "agent-1:calibration.submit" {
		t.Fatalf("expected the kind-prefixed submit method, got %q", client.calls[0])
	}
}
