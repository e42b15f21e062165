package translator

import (
	"context"
	"testing"
	"time"

	"github.com/quantnet/controller/internal/model"
	"github.com/quantnet/controller/internal/registry"
	"github.com/quantnet/controller/internal/requests"
	"github.com/quantnet/controller/internal/scheduler"
	"github.com/quantnet/controller/internal/store"
)

type fakeRPC struct {
	fn func(ctx context.Context, target, method string, params any) (any, error)
}

func (f *fakeRPC) Call(ctx context.Context, target, method string, params any) (any, error) {
	return f.fn(ctx, target, method, params)
}

func newTestTranslator(t *testing.T, rpc *fakeRPC) (*Translator, *registry.Registry) {
	t.Helper()
	s := store.NewMemoryStore()
	reg := registry.New(s)
	catalog, _, err := NewCatalog(BuiltinExpDefs(), "")
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	sched := scheduler.New(rpc)
	tr := New(catalog, reg, sched, nil, 0)
	return tr, reg
}

func registerReadyNode(t *testing.T, reg *registry.Registry, id, typ string) {
	t.Helper()
	ctx := context.Background()
	if err := reg.Register(ctx, model.Node{LogicalID: id, Type: typ}); err != nil {
		t.Fatalf("Register %s: %v", id, err)
	}
	if err := reg.RecordAgentState(ctx, model.AgentState{AgentID: id, Value: model.InSpec, Timestamp: time.Now()}); err != nil {
		t.Fatalf("RecordAgentState %s: %v", id, err)
	}
}

func TestStartExperimentHappyPath(t *testing.T) {
	allFree := scheduler.All()
	rpc := &fakeRPC{fn: func(ctx context.Context, target, method string, params any) (any, error) {
		switch method {
		case "scheduler.getSchedule":
			return map[string]any{"status": "OK", "mask": allFree.Hex()}, nil
		case "experiment.submit":
			return map[string]any{"status": "OK"}, nil
		case "experiment.getResult":
			return map[string]any{"status": "OK"}, nil
		}
		return nil, nil
	}}
	tr, reg := newTestTranslator(t, rpc)
	registerReadyNode(t, reg, "agent-1", "QNode")
	registerReadyNode(t, reg, "agent-2", "QNode")

	req := requests.New(model.RequestExperiment, nil, map[string]any{
		"expName": "Simple Experiment",
		"path":    []string{"agent-1", "agent-2"},
	}, nil)

	rc, err := tr.StartExperiment(context.Background(), req)
	if err != nil {
		t.Fatalf("StartExperiment: %v", err)
	}
	if model.NormalizeCode(rc) != model.OK {
		t.Fatalf("StartExperiment returned non-OK code: %v", rc)
	}
}

func TestStartExperimentUnknownDefinition(t *testing.T) {
	rpc := &fakeRPC{fn: func(ctx context.Context, target, method string, params any) (any, error) {
		return map[string]any{"status": "OK"}, nil
	}}
	tr, reg := newTestTranslator(t, rpc)
	registerReadyNode(t, reg, "agent-1", "QNode")

	req := requests.New(model.RequestExperiment, nil, map[string]any{
		"expName": "No Such Experiment",
		"path":    []string{"agent-1"},
	}, nil)

	if _, err := tr.StartExperiment(context.Background(), req); err == nil {
		t.Fatal("expected an error for an unregistered experiment name")
	}
}

func TestStartExperimentCancelsOnSubmitFailure(t *testing.T) {
	allFree := scheduler.All()
	var canceled []string
	rpc := &fakeRPC{fn: func(ctx context.Context, target, method string, params any) (any, error) {
		switch method {
		case "scheduler.getSchedule":
			return map[string]any{"status": "OK", "mask": allFree.Hex()}, nil
		case "experiment.submit":
			if target == "agent-2" {
				return map[string]any{"status": "FAILED"}, nil
			}
			return map[string]any{"status": "OK"}, nil
		case "experiment.cancel":
			canceled = append(canceled, target)
			return map[string]any{"status": "OK"}, nil
		}
		return nil, nil
	}}
	tr, reg := newTestTranslator(t, rpc)
	registerReadyNode(t, reg, "agent-1", "QNode")
	registerReadyNode(t, reg, "agent-2", "QNode")

	req := requests.New(model.RequestExperiment, nil, map[string]any{
		"expName": "Simple Experiment",
		"path":    []string{"agent-1", "agent-2"},
	}, nil)

	if _, err := tr.StartExperiment(context.Background(), req); err == nil {
		t.Fatal("expected StartExperiment to fail when one agent's submit fails")
	}
	if len(canceled) == 0 {
		t.Fatal("expected the successfully-submitted agent to be canceled after the partial failure")
	}
}

func TestFindCommonSlotStartsAtZeroOnFreeMask(t *testing.T) {
	tr, _ := newTestTranslator(t, &fakeRPC{})
	exp, ok := tr.catalog.Get("Simple Experiment")
	if !ok {
		t.Fatal("expected the built-in Simple Experiment to be loaded")
	}

	full := scheduler.All()
	availability := map[string]scheduler.Bitset500{"agent-1": full, "agent-2": full}
	starts, err := tr.findCommonSlot([]string{"agent-1", "agent-2"}, availability, exp)
	if err != nil {
		t.Fatalf("findCommonSlot: %v", err)
	}
	if starts["agent-1"] != 0 || starts["agent-2"] != 0 {
		t.Fatalf("expected both agents to start at slot 0 on a fully free mask, got %#v", starts)
	}
}
