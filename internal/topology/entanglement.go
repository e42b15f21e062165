package topology

// EntEdge is one parallel edge of the entanglement-link (multi)graph: an
// undirected link between two entanglement-capable leaf nodes, annotated
// with the full physical node sequence (through a BSM station) it
// corresponds to.
type EntEdge struct {
	A, B  string
	Nodes []string
}

// EntGraph is the entanglement-link graph E: an undirected multigraph
// whose nodes are entanglement-capable physical nodes and whose edges
// are EntEdges derived from bounded expansion around each BSM node.
type EntGraph struct {
	Edges    []EntEdge
	Adjacent map[string][]int // node id -> indices into Edges
}

func newEntGraph() *EntGraph {
	return &EntGraph{Adjacent: make(map[string][]int)}
}

func (eg *EntGraph) add(e EntEdge) {
	idx := len(eg.Edges)
	eg.Edges = append(eg.Edges, e)
	eg.Adjacent[e.A] = append(eg.Adjacent[e.A], idx)
	eg.Adjacent[e.B] = append(eg.Adjacent[e.B], idx)
}

// treeEdge is one edge of a BSM-rooted ancestor tree: Child is a
// predecessor of Parent in the quantum subgraph (i.e. Child -> Parent is
// a physical in-edge), recorded in tree-traversal order (Child closer to
// a leaf, Parent closer to the BSM root).
type treeEdge struct {
	Child, Parent string
}

// BuildEntanglementGraph derives E from the quantum subgraph of g by
// expanding a bounded ancestor tree around every BSM node and enumerating
// all simple paths between every pair of entanglement-capable leaves of
// that tree, grounded on the reference controller's
// transform_to_ent_graph/generate_bsm_tree/list_ent_links algorithm
// (plugins/routing/routing.py).
func BuildEntanglementGraph(g *Graph) *EntGraph {
	eg := newEntGraph()
	q := g.QuantumSubgraph()

	for id, node := range q.Nodes {
		if !node.IsBSM() {
			continue
		}
		tree := buildBSMTree(q, id)
		leaves := treeLeaves(q, tree, id)
		for i := 0; i < len(leaves); i++ {
			for j := i + 1; j < len(leaves); j++ {
				l1, l2 := leaves[i], leaves[j]
				paths1 := allTreePaths(tree, l1, id)
				paths2 := allTreePaths(tree, l2, id)
				for _, p1 := range paths1 {
					for _, p2 := range paths2 {
						full := combinePaths(p1, p2)
						eg.add(EntEdge{A: l1, B: l2, Nodes: full})
					}
				}
			}
		}
	}
	return eg
}

// buildBSMTree performs a bounded DFS from bsmID following in-edges
// (physical predecessors): it stops recursing at any entanglement-capable
// node (a leaf of the tree) and never crosses another BSM node, matching
// the original's add_children_of bound.
func buildBSMTree(q *Graph, bsmID string) []treeEdge {
	var edges []treeEdge
	visited := map[string]bool{bsmID: true}

	var visit func(cur string)
	visit = func(cur string) {
		for _, e := range q.In[cur] {
			child := e.From
			if child == cur {
				continue
			}
			edges = append(edges, treeEdge{Child: child, Parent: cur})
			childNode := q.Nodes[child]
			if childNode.IsBSM() {
				continue // never cross another BSM node
			}
			if childNode.EntanglementCapable() {
				continue // leaf: stop recursion
			}
			if visited[child] {
				continue
			}
			visited[child] = true
			visit(child)
		}
	}
	visit(bsmID)
	return edges
}

// treeLeaves returns the entanglement-capable nodes in tree that have no
// children of their own (in-degree 0 within the tree) — the set list_ent_links
// pairs up to form entanglement links.
func treeLeaves(q *Graph, tree []treeEdge, root string) []string {
	hasChildren := make(map[string]bool)
	nodeSet := map[string]bool{root: true}
	for _, e := range tree {
		hasChildren[e.Parent] = true
		nodeSet[e.Child] = true
		nodeSet[e.Parent] = true
	}
	var leaves []string
	for id := range nodeSet {
		if id == root {
			continue
		}
		node := q.Nodes[id]
		if node.EntanglementCapable() && !hasChildren[id] {
			leaves = append(leaves, id)
		}
	}
	return leaves
}

// allTreePaths enumerates every simple path in tree from leaf up to root,
// following Child->Parent edges. Multiple parallel physical edges between
// the same pair of nodes yield multiple distinct paths.
func allTreePaths(tree []treeEdge, leaf, root string) [][]string {
	childToParents := make(map[string][]string)
	for _, e := range tree {
		childToParents[e.Child] = append(childToParents[e.Child], e.Parent)
	}

	var out [][]string
	var walk func(node string, acc []string)
	walk = func(node string, acc []string) {
		acc = append(acc, node)
		if node == root {
			path := make([]string, len(acc))
			copy(path, acc)
			out = append(out, path)
			return
		}
		for _, parent := range childToParents[node] {
			walk(parent, acc)
		}
	}
	walk(leaf, nil)
	return out
}

// combinePaths joins a leaf1->bsm path with a leaf2->bsm path (reversed)
// into one leaf1..bsm..leaf2 physical node sequence, without repeating
// the shared bsm node.
func combinePaths(toBSM, fromBSM []string) []string {
	reversed := make([]string, len(fromBSM))
	for i, n := range fromBSM {
		reversed[len(fromBSM)-1-i] = n
	}
	out := make([]string, 0, len(toBSM)+len(reversed)-1)
	out = append(out, toBSM...)
	out = append(out, reversed[1:]...)
	return out
}
