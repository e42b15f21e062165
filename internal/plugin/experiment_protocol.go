package plugin

import (
	"context"
	"fmt"

	"github.com/quantnet/controller/internal/model"
	"github.com/quantnet/controller/internal/qerr"
	"github.com/quantnet/controller/internal/requests"
	"github.com/quantnet/controller/internal/topology"
)

// experimentProtocol is the agentExperiment Protocol plugin: it accepts
// "submit"/"get" payloads over the "agentExperiment" server command,
// resolves a physical route for the requested src/dst pair, and creates
// an Experiment-kind Request, grounded on the original's
// ExperimentProtocol.handle_experiment
// (plugins/protocols/agentExperiment/__init__.py).
type experimentProtocol struct {
	ctx *Context
}

func init() {
	Register("agentExperiment", TypeProtocol, func(ctx *Context) Plugin { return &experimentProtocol{ctx: ctx} })
}

func (p *experimentProtocol) Name() string { return "agentExperiment" }
func (p *experimentProtocol) Type() Type   { return TypeProtocol }

func (p *experimentProtocol) Commands() CommandTable {
	return CommandTable{
		ServerCommands: []string{"agentExperiment"},
		ClientCommands: []string{
			"experiment.submit", "experiment.getState", "experiment.getInfo",
			"experiment.setValue", "experiment.getResult", "experiment.cancel", "experiment.cleanUp",
		},
	}
}

func (p *experimentProtocol) Initialize(ctx context.Context) error { return nil }
func (p *experimentProtocol) Destroy(ctx context.Context) error    { return nil }

func (p *experimentProtocol) manager() *requests.Manager {
	return p.ctx.RequestManager("agentExperiment", string(model.RequestExperiment), p.ctx.Translator)
}

// HandleSubmit implements the "submit" branch of handle_experiment: it
// resolves src/dst (defaulting dst to src for a single-node experiment),
// finds a physical route, and schedules a non-blocking Experiment
// Request, returning a "queued" phase response immediately.
func (p *experimentProtocol) HandleSubmit(ctx context.Context, expName, src, dst string) (map[string]any, error) {
	if dst == "" {
		dst = src
	}
	routes, err := p.ctx.FindPath(src, dst, topology.ModeEntanglement, topology.Shortest)
	if err != nil {
		return nil, qerr.Wrap(qerr.ErrNotFound, "agentExperiment: route lookup", err)
	}
	if len(routes) == 0 {
		return nil, fmt.Errorf("agentExperiment: no route from %q to %q", src, dst)
	}

	mgr := p.manager()
	req := mgr.NewRequest(
		ctx,
		map[string]any{"expName": expName, "src": src, "dst": dst},
		map[string]any{"expName": expName, "path": routes[0]},
		nil,
	)
	if err := mgr.Schedule(ctx, req, false); err != nil {
		return nil, err
	}
	return map[string]any{"id": req.ID, "phase": "queued"}, nil
}

// HandleGet implements the "get" branch: by id if given, else every
// request of this kind, active or persisted.
func (p *experimentProtocol) HandleGet(ctx context.Context, id string) (any, error) {
	mgr := p.manager()
	if id != "" {
		req, err := mgr.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return req, nil
	}
	return mgr.Find(ctx, map[string]any{"type": string(model.RequestExperiment)}), nil
}
