package plugin

import (
	"context"
	"fmt"

	"github.com/quantnet/controller/internal/model"
)

// registerProtocol is the agentRegister Protocol plugin: it binds the
// "register"/"deregister"/"update"/"getinfo" server commands onto the
// Resource Registry (C3), grounded on the original's node-registration
// handling in core/managers.py's ResourceManager.handle_register.
type registerProtocol struct {
	ctx *Context
}

func init() {
	Register("agentRegister", TypeProtocol, func(ctx *Context) Plugin { return &registerProtocol{ctx: ctx} })
}

func (p *registerProtocol) Name() string { return "agentRegister" }
func (p *registerProtocol) Type() Type   { return TypeProtocol }

func (p *registerProtocol) Commands() CommandTable {
	return CommandTable{ServerCommands: []string{"register", "deregister", "update", "getinfo"}}
}

func (p *registerProtocol) Initialize(ctx context.Context) error { return nil }
func (p *registerProtocol) Destroy(ctx context.Context) error    { return nil }

// HandleRegister is the "register" server command: it upserts the
// reporting agent's Node document.
func (p *registerProtocol) HandleRegister(ctx context.Context, n model.Node) error {
	return p.ctx.Registry.Register(ctx, n)
}

// HandleDeregister is the "deregister" server command.
func (p *registerProtocol) HandleDeregister(ctx context.Context, nodeID string) error {
	return p.ctx.Registry.Deregister(ctx, nodeID)
}

// HandleUpdate re-registers a node with updated fields — functionally
// identical to HandleRegister since Register already upserts in full.
func (p *registerProtocol) HandleUpdate(ctx context.Context, n model.Node) error {
	return p.ctx.Registry.Register(ctx, n)
}

// HandleGetInfo is the "getinfo" server command: it returns the
// requested node's current record.
func (p *registerProtocol) HandleGetInfo(nodeID string) (model.Node, error) {
	nodes, err := p.ctx.Registry.GetNodes(nodeID)
	if err != nil {
		return model.Node{}, err
	}
	if len(nodes) == 0 {
		return model.Node{}, fmt.Errorf("agentRegister: node %q not found", nodeID)
	}
	return nodes[0], nil
}
