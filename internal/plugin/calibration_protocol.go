package plugin

import (
	"context"

	"github.com/quantnet/controller/internal/model"
	"github.com/quantnet/controller/internal/requests"
)

// calibrationProtocol is the calibration Protocol plugin, running the
// built-in five-phase link-stabilization sequence (srcInit -> dstInit ->
// generation -> calibration -> cleanUp) through the same Translator used
// for experiments, since spec.md §3 names Calibration as a Request kind
// sharing the translator's slot-allocation and RPC fan-out machinery.
type calibrationProtocol struct {
	ctx *Context
}

func init() {
	Register("calibration", TypeProtocol, func(ctx *Context) Plugin { return &calibrationProtocol{ctx: ctx} })
}

func (p *calibrationProtocol) Name() string { return "calibration" }
func (p *calibrationProtocol) Type() Type   { return TypeProtocol }

func (p *calibrationProtocol) Commands() CommandTable {
	return CommandTable{
		ClientCommands: []string{
			"calibration.srcInit", "calibration.dstInit", "calibration.generation",
			"calibration.calibration", "calibration.cleanUp",
		},
	}
}

func (p *calibrationProtocol) Initialize(ctx context.Context) error { return nil }
func (p *calibrationProtocol) Destroy(ctx context.Context) error    { return nil }

func (p *calibrationProtocol) manager() *requests.Manager {
	return p.ctx.RequestManager("calibration", string(model.RequestCalibration), p.ctx.Translator)
}

// StartCalibration schedules a "Calibration Link Stabilization" Request
// across the two endpoint agents, blocking is whatever the caller needs:
// a CLI-style calibration run blocks until completion.
func (p *calibrationProtocol) StartCalibration(ctx context.Context, srcAgent, dstAgent string, blocking bool) (*requests.Request, error) {
	mgr := p.manager()
	req := mgr.NewRequest(
		ctx,
		map[string]any{"src": srcAgent, "dst": dstAgent},
		map[string]any{"expName": "Calibration Link Stabilization", "path": []string{srcAgent, dstAgent}},
		nil,
	)
	if err := mgr.Schedule(ctx, req, blocking); err != nil {
		return req, err
	}
	return req, nil
}
