package plugin

import (
	"context"

	"github.com/quantnet/controller/internal/topology"
)

// pathFinder is the PathFinder Routing plugin: the singleton that
// answers find_path-style queries through the Context's topology
// snapshot, grounded on the original's PathFinder
// (plugins/routing/__init__.py), which wraps NetworkGenerator.find_route.
type pathFinder struct {
	ctx *Context
}

func init() {
	Register("PathFinder", TypeRouting, func(ctx *Context) Plugin { return &pathFinder{ctx: ctx} })
}

func (p *pathFinder) Name() string { return "PathFinder" }
func (p *pathFinder) Type() Type   { return TypeRouting }

func (p *pathFinder) Commands() CommandTable { return CommandTable{} }

func (p *pathFinder) Initialize(ctx context.Context) error { return nil }
func (p *pathFinder) Destroy(ctx context.Context) error    { return nil }

// FindShortestPath returns the single minimum-hop route.
func (p *pathFinder) FindShortestPath(src, dst string, mode topology.Mode) ([]string, error) {
	routes, err := p.ctx.FindPath(src, dst, mode, topology.Shortest)
	if err != nil || len(routes) == 0 {
		return nil, err
	}
	return routes[0], nil
}

// FindAllShortestPaths returns every distinct minimum-hop route.
func (p *pathFinder) FindAllShortestPaths(src, dst string, mode topology.Mode) ([][]string, error) {
	return p.ctx.FindPath(src, dst, mode, topology.AllShortest)
}

// FindAllPaths returns every loop-free route regardless of length.
func (p *pathFinder) FindAllPaths(src, dst string, mode topology.Mode) ([][]string, error) {
	return p.ctx.FindPath(src, dst, mode, topology.AllSimplePaths)
}
