package topology

import (
	"testing"

	"github.com/quantnet/controller/internal/model"
)

func chainGraph() *Graph {
	nodes := []model.Node{
		{LogicalID: "A", Type: "QNode", Channels: []model.Channel{
			{ID: "a-out", Kind: "quantum", Direction: "out", Neighbor: &model.Neighbor{SystemRef: "R", ChannelRef: "r-in"}},
		}},
		{LogicalID: "R", Type: "QRouter", Channels: []model.Channel{
			{ID: "r-in", Kind: "quantum", Direction: "in"},
			{ID: "r-out", Kind: "quantum", Direction: "out", Neighbor: &model.Neighbor{SystemRef: "B", ChannelRef: "b-in"}},
		}},
		{LogicalID: "B", Type: "QNode", Channels: []model.Channel{
			{ID: "b-in", Kind: "quantum", Direction: "in"},
		}},
	}
	g, _ := Build(nodes)
	return g
}

func TestFindRoutesTrivialSameNode(t *testing.T) {
	g := chainGraph()
	routes, err := FindRoutes(g, &EntGraph{}, "A", "A", ModePhysical, Shortest)
	if err != nil {
		t.Fatalf("FindRoutes: %v", err)
	}
	if len(routes) != 1 || len(routes[0]) != 1 || routes[0][0] != "A" {
		t.Fatalf("src==dst should yield the trivial single-node route, got %#v", routes)
	}
}

func TestFindRoutesPhysicalShortest(t *testing.T) {
	g := chainGraph()
	routes, err := FindRoutes(g, &EntGraph{}, "A", "B", ModePhysical, Shortest)
	if err != nil {
		t.Fatalf("FindRoutes: %v", err)
	}
	want := []string{"A", "R", "B"}
	if len(routes) != 1 || len(routes[0]) != len(want) {
		t.Fatalf("route = %#v, want %#v", routes, want)
	}
	for i, n := range want {
		if routes[0][i] != n {
			t.Fatalf("route = %#v, want %#v", routes[0], want)
		}
	}
}

func TestEntanglementRoutingAllowsRouterInterior(t *testing.T) {
	g := chainGraph()
	eg := newEntGraph()
	eg.add(EntEdge{A: "A", B: "B", Nodes: []string{"A", "R", "B"}})

	routes, err := FindRoutes(g, eg, "A", "B", ModeEntanglement, Shortest)
	if err != nil {
		t.Fatalf("FindRoutes: %v", err)
	}
	if len(routes) != 1 {
		t.Fatalf("expected exactly one route through a router interior hop, got %#v", routes)
	}
}

func TestEntanglementRoutingRejectsNonRouterInterior(t *testing.T) {
	nodes := []model.Node{
		{LogicalID: "A", Type: "QNode"},
		{LogicalID: "S", Type: "QSwitch"},
		{LogicalID: "B", Type: "QNode"},
	}
	g, _ := Build(nodes)
	eg := newEntGraph()
	eg.add(EntEdge{A: "A", B: "B", Nodes: []string{"A", "S", "B"}})

	_, err := FindRoutes(g, eg, "A", "B", ModeEntanglement, Shortest)
	if err == nil {
		t.Fatal("expected a non-router interior hop to be rejected in entanglement mode")
	}
}

// TestFindRoutesEntanglementThroughBSM exercises Scenario S5: a canonical
// single-BSM link (e.g. LBNL-Q, LBNL-BSM, UCB-Q) must resolve via
// FindRoutes in ModeEntanglement even though the BSM node sits as an
// interior hop in the expanded physical sequence. It is non-router and
// non-entanglement-capable, so it must not be rejected by filterInterior.
func TestFindRoutesEntanglementThroughBSM(t *testing.T) {
	nodes := []model.Node{
		{LogicalID: "LBNL-Q", Type: "QNode", Channels: []model.Channel{
			{ID: "lbnl-out", Kind: "quantum", Direction: "out", Neighbor: &model.Neighbor{SystemRef: "LBNL-BSM", ChannelRef: "bsm-in-1"}},
		}},
		{LogicalID: "UCB-Q", Type: "QNode", Channels: []model.Channel{
			{ID: "ucb-out", Kind: "quantum", Direction: "out", Neighbor: &model.Neighbor{SystemRef: "LBNL-BSM", ChannelRef: "bsm-in-2"}},
		}},
		{LogicalID: "LBNL-BSM", Type: "BSMNode", Channels: []model.Channel{
			{ID: "bsm-in-1", Kind: "quantum", Direction: "in"},
			{ID: "bsm-in-2", Kind: "quantum", Direction: "in"},
		}},
	}
	g, skipped := Build(nodes)
	if len(skipped) != 0 {
		t.Fatalf("Build skipped channels: %v", skipped)
	}
	eg := BuildEntanglementGraph(g)

	routes, err := FindRoutes(g, eg, "LBNL-Q", "UCB-Q", ModeEntanglement, Shortest)
	if err != nil {
		t.Fatalf("FindRoutes: %v", err)
	}
	if len(routes) != 1 {
		t.Fatalf("expected exactly one entanglement route through the BSM, got %#v", routes)
	}
	want := []string{"LBNL-Q", "LBNL-BSM", "UCB-Q"}
	if len(routes[0]) != len(want) {
		t.Fatalf("route = %#v, want %#v", routes[0], want)
	}
	for i, n := range want {
		if routes[0][i] != n {
			t.Fatalf("route = %#v, want %#v", routes[0], want)
		}
	}

	allRoutes, err := FindRoutes(g, eg, "LBNL-Q", "UCB-Q", ModeEntanglement, AllShortest)
	if err != nil {
		t.Fatalf("FindRoutes AllShortest: %v", err)
	}
	if len(allRoutes) != 1 {
		t.Fatalf("expected exactly one distinct entanglement route, got %#v", allRoutes)
	}
}

func TestBuildEntanglementGraphPairsLeavesAroundBSM(t *testing.T) {
	nodes := []model.Node{
		{LogicalID: "A", Type: "QNode", Channels: []model.Channel{
			{ID: "a-out", Kind: "quantum", Direction: "out", Neighbor: &model.Neighbor{SystemRef: "M", ChannelRef: "m-in-1"}},
		}},
		{LogicalID: "B", Type: "QNode", Channels: []model.Channel{
			{ID: "b-out", Kind: "quantum", Direction: "out", Neighbor: &model.Neighbor{SystemRef: "M", ChannelRef: "m-in-2"}},
		}},
		{LogicalID: "M", Type: "BSMNode", Channels: []model.Channel{
			{ID: "m-in-1", Kind: "quantum", Direction: "in"},
			{ID: "m-in-2", Kind: "quantum", Direction: "in"},
		}},
	}
	g, _ := Build(nodes)
	eg := BuildEntanglementGraph(g)

	if len(eg.Edges) != 1 {
		t.Fatalf("expected exactly one entanglement link A<->B via BSM M, got %d edges: %#v", len(eg.Edges), eg.Edges)
	}
	edge := eg.Edges[0]
	if !(edge.A == "A" && edge.B == "B") && !(edge.A == "B" && edge.B == "A") {
		t.Fatalf("expected the entanglement link to join A and B, got %#v", edge)
	}
	if len(edge.Nodes) != 3 || edge.Nodes[1] != "M" {
		t.Fatalf("expected the link's node sequence to pass through the BSM node M, got %#v", edge.Nodes)
	}
}
