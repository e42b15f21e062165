package topology

import (
	"testing"

	"github.com/quantnet/controller/internal/model"
)

func TestBuildMaterializesOnlyValidatedEdges(t *testing.T) {
	nodes := []model.Node{
		{
			LogicalID: "A",
			Type:      "QNode",
			Channels: []model.Channel{
				{ID: "a-out", Kind: "quantum", Direction: "out", Neighbor: &model.Neighbor{SystemRef: "B", ChannelRef: "b-in"}},
				{ID: "a-dangling", Kind: "quantum", Direction: "out", Neighbor: &model.Neighbor{SystemRef: "ghost", ChannelRef: "x"}},
			},
		},
		{
			LogicalID: "B",
			Type:      "QNode",
			Channels: []model.Channel{
				{ID: "b-in", Kind: "quantum", Direction: "in"},
			},
		},
	}

	g, skipped := Build(nodes)

	if len(g.Out["A"]) != 1 || g.Out["A"][0].To != "B" {
		t.Fatalf("expected exactly one validated edge A->B, got %#v", g.Out["A"])
	}
	if len(g.In["B"]) != 1 {
		t.Fatalf("expected B to have one in-edge, got %#v", g.In["B"])
	}
	if len(skipped) != 1 || skipped[0].ChannelID != "a-dangling" {
		t.Fatalf("expected the dangling neighbor channel to be recorded as skipped, got %#v", skipped)
	}
}

func TestBuildSkipsMisdirectedNeighborChannel(t *testing.T) {
	nodes := []model.Node{
		{
			LogicalID: "A",
			Type:      "QNode",
			Channels: []model.Channel{
				{ID: "a-out", Kind: "quantum", Direction: "out", Neighbor: &model.Neighbor{SystemRef: "B", ChannelRef: "b-out"}},
			},
		},
		{
			LogicalID: "B",
			Type:      "QNode",
			Channels: []model.Channel{
				// b-out is itself direction "out", not "in" - A's reference is misdirected.
				{ID: "b-out", Kind: "quantum", Direction: "out"},
			},
		},
	}

	g, skipped := Build(nodes)

	if len(g.Out["A"]) != 0 {
		t.Fatalf("a misdirected neighbor channel must never be materialized as an edge, got %#v", g.Out["A"])
	}
	if len(skipped) != 1 {
		t.Fatalf("expected exactly one skipped channel, got %d", len(skipped))
	}
}

func TestNumQubitsCountsEntanglementCapableNodes(t *testing.T) {
	nodes := []model.Node{
		{LogicalID: "A", Type: "QNode"},
		{LogicalID: "B", Type: "QRouter"},
		{LogicalID: "C", Type: "BSMNode"},
	}
	g, _ := Build(nodes)
	if got := g.NumQubits(); got != 2 {
		t.Fatalf("NumQubits() = %d, want 2", got)
	}
}
