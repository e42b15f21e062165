package registry

import (
	"context"
	"testing"
	"time"

	"github.com/quantnet/controller/internal/model"
	"github.com/quantnet/controller/internal/store"
)

func TestRegisterKeysByLogicalIDAndAssignsOpaqueID(t *testing.T) {
	s := store.NewMemoryStore()
	r := New(s)
	ctx := context.Background()

	if err := r.Register(ctx, model.Node{LogicalID: "LBNL-Q", Type: "QNode"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	nodes, err := r.GetNodes("LBNL-Q")
	if err != nil {
		t.Fatalf("GetNodes: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected one node, got %d", len(nodes))
	}
	if nodes[0].ID == "" {
		t.Fatal("expected Register to assign an opaque ID when the agent didn't supply one")
	}
	if nodes[0].LogicalID != "LBNL-Q" {
		t.Fatalf("LogicalID = %q, want LBNL-Q", nodes[0].LogicalID)
	}
}

func TestRegisterRejectsEmptyLogicalID(t *testing.T) {
	s := store.NewMemoryStore()
	r := New(s)
	if err := r.Register(context.Background(), model.Node{Type: "QNode"}); err == nil {
		t.Fatal("expected Register to reject a node with no LogicalID")
	}
}

func TestReRegisterPreservesOpaqueID(t *testing.T) {
	s := store.NewMemoryStore()
	r := New(s)
	ctx := context.Background()

	if err := r.Register(ctx, model.Node{LogicalID: "LBNL-Q", Type: "QNode"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	first, err := r.GetNodes("LBNL-Q")
	if err != nil {
		t.Fatalf("GetNodes: %v", err)
	}

	// HandleUpdate re-registers with the same LogicalID and no ID of its
	// own; the previously assigned opaque ID must carry forward rather
	// than being regenerated.
	if err := r.Register(ctx, model.Node{LogicalID: "LBNL-Q", Type: "QNode", Config: map[string]any{"v": 2}}); err != nil {
		t.Fatalf("Register (update): %v", err)
	}
	second, err := r.GetNodes("LBNL-Q")
	if err != nil {
		t.Fatalf("GetNodes: %v", err)
	}
	if first[0].ID != second[0].ID {
		t.Fatalf("opaque ID changed across re-registration: %q -> %q", first[0].ID, second[0].ID)
	}
}

func TestDeregisterExcludesNodeFromLookupsButKeepsHistory(t *testing.T) {
	s := store.NewMemoryStore()
	r := New(s)
	ctx := context.Background()

	if err := r.Register(ctx, model.Node{LogicalID: "LBNL-Q", Type: "QNode"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Deregister(ctx, "LBNL-Q"); err != nil {
		t.Fatalf("Deregister: %v", err)
	}
	if _, err := r.GetNodes("LBNL-Q"); err == nil {
		t.Fatal("expected GetNodes to fail for a deregistered node")
	}

	doc, err := s.Get(ctx, store.Nodes, "LBNL-Q")
	if err != nil {
		t.Fatalf("expected the deregistered node's document to remain in the store: %v", err)
	}
	if deleted, _ := doc["deleted"].(bool); !deleted {
		t.Fatal("expected the persisted document to be marked deleted, not purged")
	}
}

func TestRecordAgentStateAndIsAgentReady(t *testing.T) {
	s := store.NewMemoryStore()
	r := New(s)
	ctx := context.Background()

	if r.IsAgentReady("LBNL-Q") {
		t.Fatal("expected an agent with no recorded state to be not ready")
	}

	if err := r.RecordAgentState(ctx, model.AgentState{AgentID: "LBNL-Q", Value: model.InSpec, Timestamp: time.Now()}); err != nil {
		t.Fatalf("RecordAgentState: %v", err)
	}
	if !r.IsAgentReady("LBNL-Q") {
		t.Fatal("expected the agent to be ready after an IN_SPEC state report")
	}
}
