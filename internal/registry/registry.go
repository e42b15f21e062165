// Package registry implements the Resource Registry (C3): the
// authoritative in-memory record of every agent-reported Node, the
// derived physical topology, and the most recent monitoring state per
// agent. It is grounded on the teacher's ShardRegistry
// (internal/coordinator/shard_registry.go): an RWMutex-guarded map,
// validated mutations, and copy-on-read to keep callers from mutating
// shared state, generalized here from shard-to-node assignment to
// node registration and topology derivation.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quantnet/controller/internal/model"
	"github.com/quantnet/controller/internal/qerr"
	"github.com/quantnet/controller/internal/store"
)

// TopologyView is the summarized or full snapshot GetTopology returns.
type TopologyView struct {
	Nodes      []model.Node `json:"nodes"`
	NumNodes   int          `json:"numNodes"`
	NumQubits  int          `json:"numQubits"`
	NumChannels int         `json:"numChannels"`
	Full       bool         `json:"full"`
}

// Registry is the Resource Registry. All methods are safe for concurrent
// use: reads take an RLock, writes take a Lock, and every returned Node
// is a shallow copy: its scalar fields are the caller's own, while its
// Channels slice and Config map are shared with the registry.
type Registry struct {
	nodes        map[string]model.Node
	states       map[string]model.AgentState
	mu           sync.RWMutex
	store        store.Store
	topologyStale bool
}

// New constructs an empty Registry backed by s for state persistence.
func New(s store.Store) *Registry {
	return &Registry{
		nodes:        make(map[string]model.Node),
		states:       make(map[string]model.AgentState),
		store:        s,
		topologyStale: true,
	}
}

// Register handles an agent's registration announcement: an upsert keyed
// by the node's LogicalID (spec.md §4.1 register(node)), marking the
// derived topology stale. A node with an empty LogicalID is rejected —
// the agent must supply the human-readable name it addresses itself by.
// ID, the opaque internal identifier, is assigned on first registration
// if the agent didn't supply one and is preserved across re-registration
// (HandleUpdate) rather than regenerated.
func (r *Registry) Register(ctx context.Context, n model.Node) error {
	if n.LogicalID == "" {
		return qerr.New(qerr.ErrInvalidArgument, "registry: node logicalID must not be empty")
	}
	n.UpdatedAt = time.Now()

	r.mu.Lock()
	if existing, ok := r.nodes[n.LogicalID]; ok && n.ID == "" {
		n.ID = existing.ID
	}
	if n.ID == "" {
		n.ID = model.NewID()
	}
	r.nodes[n.LogicalID] = n
	r.topologyStale = true
	r.mu.Unlock()

	doc := store.Doc{
		"_id": n.LogicalID, "id": n.ID, "type": n.Type, "channels": n.Channels,
		"config": n.Config, "deleted": false, "updatedAt": n.UpdatedAt,
	}
	if err := r.store.Upsert(ctx, store.Nodes, n.LogicalID, doc); err != nil {
		return qerr.Wrap(qerr.ErrInternal, "registry: persist node", err)
	}
	return nil
}

// Deregister soft-deletes a node identified by logicalID: it stays in the
// persisted history (never purged) but is excluded from topology builds
// and lookups.
func (r *Registry) Deregister(ctx context.Context, logicalID string) error {
	r.mu.Lock()
	n, ok := r.nodes[logicalID]
	if !ok {
		r.mu.Unlock()
		return qerr.New(qerr.ErrNotFound, fmt.Sprintf("registry: node %q not found", logicalID))
	}
	n.Deleted = true
	n.UpdatedAt = time.Now()
	r.nodes[logicalID] = n
	r.topologyStale = true
	r.mu.Unlock()

	doc := store.Doc{
		"_id": n.LogicalID, "id": n.ID, "type": n.Type, "channels": n.Channels,
		"config": n.Config, "deleted": true, "updatedAt": n.UpdatedAt,
	}
	if err := r.store.Upsert(ctx, store.Nodes, n.LogicalID, doc); err != nil {
		return qerr.Wrap(qerr.ErrInternal, "registry: persist deregister", err)
	}
	return nil
}

// GetNodes resolves a list of node logicalIDs, returning qerr.ErrNotFound
// (naming the first missing id) if any are unknown or soft-deleted.
func (r *Registry) GetNodes(logicalIDs ...string) ([]model.Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Node, 0, len(logicalIDs))
	for _, id := range logicalIDs {
		n, ok := r.nodes[id]
		if !ok || n.Deleted {
			return nil, qerr.New(qerr.ErrNotFound, fmt.Sprintf("registry: node %q not found", id))
		}
		out = append(out, n)
	}
	return out, nil
}

// FindNodes returns every registered, non-deleted node whose Type matches
// typeFilter, or every such node if typeFilter is empty.
func (r *Registry) FindNodes(typeFilter string) []model.Node {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		if n.Deleted {
			continue
		}
		if typeFilter != "" && n.Type != typeFilter {
			continue
		}
		out = append(out, n)
	}
	return out
}

// GetTopology returns a snapshot of the current physical topology. When
// full is false the snapshot contains only aggregate counts; when true it
// includes every live node. The registry does not rebuild anything here —
// topology graph construction (BSM expansion, routing) is the Topology
// & Routing Engine's job; the Resource Registry only owns the raw Node set
// that engine consumes.
func (r *Registry) GetTopology(full bool) TopologyView {
	r.mu.RLock()
	defer r.mu.RUnlock()

	view := TopologyView{Full: full}
	for _, n := range r.nodes {
		if n.Deleted {
			continue
		}
		view.NumNodes++
		view.NumChannels += len(n.Channels)
		if n.EntanglementCapable() {
			view.NumQubits++
		}
		if full {
			view.Nodes = append(view.Nodes, n)
		}
	}
	return view
}

// RecordAgentState ingests a monitoring snapshot for an agent — the write
// side of GetNodeState, fed by the monitoring plugin's subscription to the
// "monitoring" pub/sub topic.
func (r *Registry) RecordAgentState(ctx context.Context, state model.AgentState) error {
	if state.AgentID == "" {
		return qerr.New(qerr.ErrInvalidArgument, "registry: agent state requires an agent id")
	}
	if state.Timestamp.IsZero() {
		state.Timestamp = time.Now()
	}

	r.mu.Lock()
	r.states[state.AgentID] = state
	r.mu.Unlock()

	doc := store.Doc{
		"_id": state.AgentID + ":" + state.Timestamp.Format(time.RFC3339Nano),
		"rid": state.AgentID, "eventType": "agentState",
		"value": state.Value, "ts": state.Timestamp,
	}
	if err := r.store.Upsert(ctx, store.Monitor, doc["_id"].(string), doc); err != nil {
		return qerr.Wrap(qerr.ErrInternal, "registry: persist agent state", err)
	}
	return nil
}

// GetNodeState returns the most recent monitoring state recorded for
// agentID, or qerr.ErrNotFound if none has ever been recorded.
func (r *Registry) GetNodeState(agentID string) (model.AgentState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.states[agentID]
	if !ok {
		return model.AgentState{}, qerr.New(qerr.ErrNotFound, fmt.Sprintf("registry: no state recorded for agent %q", agentID))
	}
	return s, nil
}

// IsAgentReady reports whether agentID's last recorded state is IN_SPEC —
// the readiness gate the Request Translator polls before routing work to
// an agent.
func (r *Registry) IsAgentReady(agentID string) bool {
	s, err := r.GetNodeState(agentID)
	return err == nil && s.Value == model.InSpec
}
