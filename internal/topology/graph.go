// Package topology implements the Topology & Routing Engine (C4): it
// builds the physical resource graph from registered Nodes, derives the
// entanglement-link graph from the physical graph's quantum subgraph via
// bounded BSM-node expansion, and answers routing queries over either
// graph. Shortest-path and all-shortest-paths queries are delegated to
// gonum.org/v1/gonum/graph/path, the idiomatic Go analogue of the
// original implementation's networkx-based routing (see
// plugins/routing/routing.py in the reference Python controller).
package topology

import (
	"fmt"

	"github.com/quantnet/controller/internal/model"
)

// Edge is a directed physical connection between two nodes, carrying the
// channel that originates it and the kind of link it forms (quantum or
// classical).
type Edge struct {
	From, To string
	ChannelID string
	Kind      string
}

// Graph is the physical resource graph G: a directed multigraph over
// registered Nodes. Parallel edges are possible (two nodes may be joined
// by more than one channel pair).
type Graph struct {
	Nodes map[string]model.Node
	Out   map[string][]Edge
	In    map[string][]Edge
}

// SkippedChannel records a channel the builder could not resolve to a
// validated edge, for logging rather than silent loss.
type SkippedChannel struct {
	NodeID, ChannelID, Reason string
}

// Build constructs the physical graph from nodes. An out-direction
// channel becomes an edge only when its Neighbor resolves to another
// registered node and that node's referenced channel is itself
// direction "in" — this mirrors the Resource Manager's validation rule
// that a dangling or misdirected neighbor reference is logged and
// skipped, never materialized as an edge (Testable Property 4: topology
// validity).
func Build(nodes []model.Node) (*Graph, []SkippedChannel) {
	g := &Graph{
		Nodes: make(map[string]model.Node, len(nodes)),
		Out:   make(map[string][]Edge),
		In:    make(map[string][]Edge),
	}
	for _, n := range nodes {
		g.Nodes[n.LogicalID] = n
	}

	var skipped []SkippedChannel
	for _, n := range nodes {
		for _, ch := range n.Channels {
			if ch.Direction != "out" || ch.Neighbor == nil {
				continue
			}
			remote, ok := g.Nodes[ch.Neighbor.SystemRef]
			if !ok {
				skipped = append(skipped, SkippedChannel{n.LogicalID, ch.ID, fmt.Sprintf("unknown neighbor system %q", ch.Neighbor.SystemRef)})
				continue
			}
			remoteCh, ok := findChannel(remote, ch.Neighbor.ChannelRef)
			if !ok {
				skipped = append(skipped, SkippedChannel{n.LogicalID, ch.ID, fmt.Sprintf("unknown neighbor channel %q on %q", ch.Neighbor.ChannelRef, remote.LogicalID)})
				continue
			}
			if remoteCh.Direction != "in" {
				skipped = append(skipped, SkippedChannel{n.LogicalID, ch.ID, fmt.Sprintf("neighbor channel %q on %q is not direction=in", remoteCh.ID, remote.LogicalID)})
				continue
			}
			e := Edge{From: n.LogicalID, To: remote.LogicalID, ChannelID: ch.ID, Kind: ch.Kind}
			g.Out[n.LogicalID] = append(g.Out[n.LogicalID], e)
			g.In[remote.LogicalID] = append(g.In[remote.LogicalID], e)
		}
	}
	return g, skipped
}

func findChannel(n model.Node, channelID string) (model.Channel, bool) {
	for _, ch := range n.Channels {
		if ch.ID == channelID {
			return ch, true
		}
	}
	return model.Channel{}, false
}

// QuantumSubgraph returns the subset of g's edges whose Kind is "quantum" —
// the view the entanglement-link derivation operates over.
func (g *Graph) QuantumSubgraph() *Graph {
	sub := &Graph{Nodes: g.Nodes, Out: make(map[string][]Edge), In: make(map[string][]Edge)}
	for id, edges := range g.Out {
		for _, e := range edges {
			if e.Kind == "quantum" {
				sub.Out[id] = append(sub.Out[id], e)
				sub.In[e.To] = append(sub.In[e.To], e)
			}
		}
	}
	return sub
}

// NumQubits returns the number of entanglement-capable nodes in the graph,
// the same count the Resource Registry's summary topology view reports.
func (g *Graph) NumQubits() int {
	n := 0
	for _, node := range g.Nodes {
		if node.EntanglementCapable() {
			n++
		}
	}
	return n
}
