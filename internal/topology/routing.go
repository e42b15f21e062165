package topology

import (
	"fmt"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// Mode selects which graph a routing query runs over.
type Mode int

const (
	// ModePhysical routes over the raw physical graph G.
	ModePhysical Mode = iota
	// ModeEntanglement routes over the derived entanglement-link graph E.
	ModeEntanglement
)

// Algorithm selects the path-finding strategy.
type Algorithm int

const (
	// Shortest returns a single minimum-hop route.
	Shortest Algorithm = iota
	// AllShortest returns every distinct minimum-hop route.
	AllShortest
	// AllSimplePaths returns every loop-free route, regardless of length.
	AllSimplePaths
)

// node wraps a string node id as a gonum graph.Node.
type node struct {
	id   int64
	name string
}

func (n node) ID() int64 { return n.id }

// idMap assigns stable int64 ids to string node names for building a
// gonum graph on demand.
type idMap struct {
	toID   map[string]int64
	toName map[int64]string
	next   int64
}

func newIDMap() *idMap {
	return &idMap{toID: make(map[string]int64), toName: make(map[int64]string)}
}

func (m *idMap) get(name string) int64 {
	if id, ok := m.toID[name]; ok {
		return id
	}
	id := m.next
	m.next++
	m.toID[name] = id
	m.toName[id] = name
	return id
}

// hopGraph is the link-level view routing operates over: an undirected
// multigraph whose edges are "hops" — either a single physical channel
// (physical mode) or a full BSM-mediated node sequence (entanglement
// mode).
type hopGraph struct {
	hops map[string][]hop // node -> hops originating there
}

type hop struct {
	to   string
	path []string // full physical node sequence for this hop, inclusive of both ends
}

func buildHopGraph(g *Graph, eg *EntGraph, mode Mode) *hopGraph {
	hg := &hopGraph{hops: make(map[string][]hop)}
	add := func(a, b string, seq []string) {
		hg.hops[a] = append(hg.hops[a], hop{to: b, path: seq})
		rev := make([]string, len(seq))
		for i, n := range seq {
			rev[len(seq)-1-i] = n
		}
		hg.hops[b] = append(hg.hops[b], hop{to: a, path: rev})
	}

	if mode == ModePhysical {
		for from, edges := range g.Out {
			for _, e := range edges {
				add(from, e.To, []string{from, e.To})
			}
		}
		return hg
	}
	for _, e := range eg.Edges {
		add(e.A, e.B, e.Nodes)
	}
	return hg
}

// FindRoutes resolves routes from src to dst under mode using algo. Each
// returned route is a full physical node sequence. src==dst always
// yields the trivial single-node route.
func FindRoutes(g *Graph, eg *EntGraph, src, dst string, mode Mode, algo Algorithm) ([][]string, error) {
	if src == dst {
		return [][]string{{src}}, nil
	}
	hg := buildHopGraph(g, eg, mode)

	switch algo {
	case Shortest:
		route, ok := shortestHopRoute(hg, src, dst)
		if !ok {
			return nil, fmt.Errorf("topology: no route from %q to %q", src, dst)
		}
		route = filterInterior(route, mode, g)
		if route == nil {
			return nil, fmt.Errorf("topology: no route from %q to %q satisfies interior-hop constraints", src, dst)
		}
		return [][]string{route}, nil
	case AllShortest:
		routes := allShortestHopRoutes(hg, src, dst)
		return dedupFilter(routes, mode, g), nil
	case AllSimplePaths:
		routes := allSimpleHopRoutes(hg, src, dst)
		return dedupFilter(routes, mode, g), nil
	default:
		return nil, fmt.Errorf("topology: unknown routing algorithm %v", algo)
	}
}

// filterInterior enforces the entanglement-mode rule that interior hops
// (not endpoints) may not be a non-router entanglement-capable device.
// A BSM mediator is neither router nor entanglement-capable, so it is a
// legal interior hop — only an entanglement-capable non-router device
// (e.g. a plain QNode sitting between two other nodes) is rejected.
// Endpoints are unrestricted. Physical mode has no such restriction.
func filterInterior(route []string, mode Mode, g *Graph) []string {
	if mode != ModeEntanglement || len(route) <= 2 {
		return route
	}
	for _, id := range route[1 : len(route)-1] {
		n, ok := g.Nodes[id]
		if !ok {
			return nil
		}
		if n.EntanglementCapable() && !n.IsRouter() {
			return nil
		}
	}
	return route
}

func dedupFilter(routes [][]string, mode Mode, g *Graph) [][]string {
	seen := make(map[string]bool)
	var out [][]string
	for _, r := range routes {
		filtered := filterInterior(r, mode, g)
		if filtered == nil {
			continue
		}
		key := fmt.Sprint(filtered)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, filtered)
	}
	return out
}

// buildGonumGraph converts a hopGraph's node-to-node connectivity into a
// gonum simple.UndirectedGraph for shortest-path computation. Parallel
// hops between the same pair collapse to one gonum edge; which physical
// hop.path is used to materialize the result is resolved afterward by
// walking the node-level route back through hg.
func buildGonumGraph(hg *hopGraph) (*simple.UndirectedGraph, *idMap) {
	ids := newIDMap()
	gg := simple.NewUndirectedGraph()
	for from, hops := range hg.hops {
		fID := ids.get(from)
		if gg.Node(fID) == nil {
			gg.AddNode(node{id: fID, name: from})
		}
		for _, h := range hops {
			tID := ids.get(h.to)
			if gg.Node(tID) == nil {
				gg.AddNode(node{id: tID, name: h.to})
			}
			if gg.Edge(fID, tID) == nil {
				gg.SetEdge(simple.Edge{F: node{id: fID, name: from}, T: node{id: tID, name: h.to}})
			}
		}
	}
	return gg, ids
}

// materialize walks a gonum node-level path back through hg, splicing in
// each hop's full physical sequence.
func materialize(hg *hopGraph, nodePath []graph.Node, ids *idMap) []string {
	if len(nodePath) == 0 {
		return nil
	}
	out := []string{ids.toName[nodePath[0].ID()]}
	for i := 1; i < len(nodePath); i++ {
		from := ids.toName[nodePath[i-1].ID()]
		to := ids.toName[nodePath[i].ID()]
		for _, h := range hg.hops[from] {
			if h.to == to {
				out = append(out, h.path[1:]...)
				break
			}
		}
	}
	return out
}

func shortestHopRoute(hg *hopGraph, src, dst string) ([]string, bool) {
	gg, ids := buildGonumGraph(hg)
	srcID, ok1 := ids.toID[src]
	dstID, ok2 := ids.toID[dst]
	if !ok1 || !ok2 {
		return nil, false
	}
	shortest := path.DijkstraFrom(node{id: srcID, name: src}, gg)
	nodePath, _ := shortest.To(dstID)
	if len(nodePath) == 0 {
		return nil, false
	}
	return materialize(hg, nodePath, ids), true
}

func allShortestHopRoutes(hg *hopGraph, src, dst string) [][]string {
	gg, ids := buildGonumGraph(hg)
	srcID, ok1 := ids.toID[src]
	dstID, ok2 := ids.toID[dst]
	if !ok1 || !ok2 {
		return nil
	}
	allShortest := path.DijkstraAllPaths(gg)
	paths, _ := allShortest.AllBetween(srcID, dstID)
	out := make([][]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, materialize(hg, p, ids))
	}
	return out
}

// allSimpleHopRoutes enumerates every loop-free hop-level path from src to
// dst via DFS. gonum has no all-simple-paths primitive (it covers
// shortest-path and traversal algorithms only), so this is a deliberate
// hand-rolled supplement — see DESIGN.md.
func allSimpleHopRoutes(hg *hopGraph, src, dst string) [][]string {
	var out [][]string
	visited := map[string]bool{src: true}

	var walk func(cur string, nodePath []string)
	walk = func(cur string, nodePath []string) {
		if cur == dst {
			full := make([]string, len(nodePath))
			copy(full, nodePath)
			out = append(out, expandNodePath(hg, full))
			return
		}
		for _, h := range hg.hops[cur] {
			if visited[h.to] {
				continue
			}
			visited[h.to] = true
			walk(h.to, append(nodePath, h.to))
			visited[h.to] = false
		}
	}
	walk(src, []string{src})
	return out
}

func expandNodePath(hg *hopGraph, nodePath []string) []string {
	out := []string{nodePath[0]}
	for i := 1; i < len(nodePath); i++ {
		from, to := nodePath[i-1], nodePath[i]
		for _, h := range hg.hops[from] {
			if h.to == to {
				out = append(out, h.path[1:]...)
				break
			}
		}
	}
	return out
}
