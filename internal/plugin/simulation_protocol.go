package plugin

import (
	"context"

	"github.com/quantnet/controller/internal/model"
	"github.com/quantnet/controller/internal/requests"
)

// simulationProtocol is the agentSimulation Protocol plugin. The
// reference implementation's simulation handler is a thin no-op
// executor wrapper (plugins/protocols/simulation/__init__.py); this
// mirrors that by scheduling a Simulation-kind Request with no
// registered Executor, which the Request Registry's dispatch defaults to
// an immediate OK per spec.md §4.3 ("otherwise: no-op success").
type simulationProtocol struct {
	ctx *Context
}

func init() {
	Register("agentSimulation", TypeProtocol, func(ctx *Context) Plugin { return &simulationProtocol{ctx: ctx} })
}

func (p *simulationProtocol) Name() string { return "agentSimulation" }
func (p *simulationProtocol) Type() Type   { return TypeProtocol }

func (p *simulationProtocol) Commands() CommandTable {
	return CommandTable{ServerCommands: []string{"agentSimulation"}}
}

func (p *simulationProtocol) Initialize(ctx context.Context) error { return nil }
func (p *simulationProtocol) Destroy(ctx context.Context) error    { return nil }

func (p *simulationProtocol) manager() *requests.Manager {
	return p.ctx.RequestManager("agentSimulation", string(model.RequestSimulation), nil)
}

// HandleSimulate schedules a Simulation Request non-blocking and returns
// its id.
func (p *simulationProtocol) HandleSimulate(ctx context.Context, params map[string]any) (string, error) {
	mgr := p.manager()
	req := mgr.NewRequest(ctx, params, params, nil)
	if err := mgr.Schedule(ctx, req, false); err != nil {
		return "", err
	}
	return req.ID, nil
}
