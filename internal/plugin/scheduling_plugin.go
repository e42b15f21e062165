package plugin

import (
	"context"
)

// batchScheduler is the BatchScheduler Scheduling plugin: the singleton
// front for the Context's Scheduler, grounded on the original's
// BatchScheduler (plugins/scheduling/__init__.py), which wires together
// ScheduleManager (RPC fan-out) and a secondary periodic job runner not
// reproduced here (the periodic-job Scheduler class in scheduler.py is
// orthogonal to request-driven slot allocation and is outside every
// [MODULE] spec.md names).
type batchScheduler struct {
	ctx *Context
}

func init() {
	Register("BatchScheduler", TypeScheduling, func(ctx *Context) Plugin { return &batchScheduler{ctx: ctx} })
}

func (p *batchScheduler) Name() string { return "BatchScheduler" }
func (p *batchScheduler) Type() Type   { return TypeScheduling }

func (p *batchScheduler) Commands() CommandTable { return CommandTable{} }

func (p *batchScheduler) Initialize(ctx context.Context) error { return nil }
func (p *batchScheduler) Destroy(ctx context.Context) error    { return nil }
