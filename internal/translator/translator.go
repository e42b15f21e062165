package translator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quantnet/controller/internal/metrics"
	"github.com/quantnet/controller/internal/model"
	"github.com/quantnet/controller/internal/qerr"
	"github.com/quantnet/controller/internal/registry"
	"github.com/quantnet/controller/internal/requests"
	"github.com/quantnet/controller/internal/scheduler"
)

// AgentReadyPoll is how often IsAgentReady is re-checked while waiting
// for an agent to reach IN_SPEC, matching the original's check_interval.
const AgentReadyPoll = 5 * time.Second

// AgentReadyTimeout is how long Translator waits for every participating
// agent to become ready before failing the request.
const AgentReadyTimeout = 60 * time.Second

// Translator implements requests.Executor for Experiment and Calibration
// requests: it resolves the experiment definition, matches agents to
// required roles, waits for readiness, allocates a shared timeslot
// window, and orchestrates the submit/getResult/cancel RPC sequence.
type Translator struct {
	catalog *Catalog
	reg     *registry.Registry
	sched   *scheduler.Scheduler
	metrics *metrics.Registry

	// mu spans only getSlotsToAllocate's getTimeslots() call and the
	// find-common-slot computation that follows it, matching spec.md
	// §5's rule that the per-kind translator lock brackets slot
	// selection but not RPC submission/collection.
	mu          sync.Mutex
	gracePeriod time.Duration
}

// New builds a Translator. gracePeriod is added to "now" when computing
// the earliest start time a getTimeslots call requests, matching the
// original's schmanager_grace_period configuration value.
func New(catalog *Catalog, reg *registry.Registry, sched *scheduler.Scheduler, m *metrics.Registry, gracePeriod time.Duration) *Translator {
	return &Translator{catalog: catalog, reg: reg, sched: sched, metrics: m, gracePeriod: gracePeriod}
}

// matchAgentToExp greedily assigns each required AgentSequences role, in
// order, to the first still-unassigned path node of matching Type,
// excluding OpticalSwitch hops entirely — grounded on the original's
// match_agent_to_exp.
func matchAgentToExp(exp Experiment, path []model.Node) ([]string, error) {
	var remaining []model.Node
	for _, n := range path {
		if n.Type != "OpticalSwitch" {
			remaining = append(remaining, n)
		}
	}

	out := make([]string, 0, len(exp.AgentSequences))
	for _, role := range exp.AgentSequences {
		idx := -1
		for i, n := range remaining {
			if n.Type == role.NodeType {
				idx = i
				break
			}
		}
		if idx == -1 {
			return nil, qerr.New(qerr.ErrInvalidArgument,
				fmt.Sprintf("translator: no available node of type %q for experiment %q", role.NodeType, exp.Name))
		}
		out = append(out, remaining[idx].LogicalID)
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	return out, nil
}

// waitForAgentReady polls IsAgentReady every AgentReadyPoll until the
// agent reports IN_SPEC or ctx/timeout expires.
func (t *Translator) waitForAgentReady(ctx context.Context, agentID string) error {
	if t.reg.IsAgentReady(agentID) {
		return nil
	}
	deadline := time.Now().Add(AgentReadyTimeout)
	ticker := time.NewTicker(AgentReadyPoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if t.reg.IsAgentReady(agentID) {
				return nil
			}
			if time.Now().After(deadline) {
				return qerr.New(qerr.ErrAgentNotReady, fmt.Sprintf("translator: agent %q not ready after %s", agentID, AgentReadyTimeout))
			}
		}
	}
}

// StartExperiment implements requests.Executor. req.Params must contain
// "expName" (string) and "path" ([]string physical node ids, already
// routed by the Topology & Routing Engine). On any failure that occurs
// after agents have been submitted to, already-submitted agents are
// best-effort canceled before the error is returned.
func (t *Translator) StartExperiment(ctx context.Context, req *requests.Request) (any, error) {
	expName, _ := req.Params["expName"].(string)
	pathIDs, _ := req.Params["path"].([]string)

	exp, ok := t.catalog.Get(expName)
	if !ok {
		return nil, qerr.New(qerr.ErrNotFound, fmt.Sprintf("translator: unknown experiment %q", expName))
	}

	pathNodes, err := t.reg.GetNodes(pathIDs...)
	if err != nil {
		return nil, err
	}
	agentIDs, err := matchAgentToExp(exp, pathNodes)
	if err != nil {
		return nil, err
	}

	for _, id := range agentIDs {
		if err := t.waitForAgentReady(ctx, id); err != nil {
			return nil, err
		}
	}

	submitted, err := t.translateRequest(ctx, string(req.Type), req.ID, exp, agentIDs, req)
	if err != nil {
		if len(submitted) > 0 {
			t.sched.Cancel(ctx, req.ID, submitted)
		}
		return nil, err
	}
	return model.OK, nil
}

// getSlotsToAllocate fetches each agent's availability and computes the
// common contiguous allocation every agent's sequence needs, holding the
// translator lock across both steps.
func (t *Translator) getSlotsToAllocate(ctx context.Context, exp Experiment, agentIDs []string) (map[string]int, error) {
	t.mu.Lock()
	availability, err := t.sched.GetTimeslots(ctx, agentIDs)
	if err != nil {
		t.mu.Unlock()
		return nil, fmt.Errorf("translator: getTimeslots: %w", err)
	}

	starts, err := t.findCommonSlot(agentIDs, availability, exp)
	t.mu.Unlock()
	if err != nil {
		if t.metrics != nil {
			t.metrics.SlotAllocFailures.Inc()
		}
		return nil, err
	}
	return starts, nil
}

// findCommonSlot ANDs every agent's availability mask, then finds the
// first contiguous run wide enough for the widest per-agent sequence
// requirement; every agent's allocation is carved starting at that same
// index, each agent taking as many contiguous slots as its own sequence
// list requires (Testable Property 3: slot-allocation correctness).
func (t *Translator) findCommonSlot(agentIDs []string, availability map[string]scheduler.Bitset500, exp Experiment) (map[string]int, error) {
	masks := make([]scheduler.Bitset500, 0, len(agentIDs))
	widths := make(map[string]int, len(agentIDs))
	maxWidth := 0
	for i, id := range agentIDs {
		masks = append(masks, availability[id])
		role, ok := exp.Sequence(i)
		if !ok {
			return nil, qerr.New(qerr.ErrInvalidArgument, fmt.Sprintf("translator: experiment %q has no role for agent index %d", exp.Name, i))
		}
		w := role.SlotMaskWidth()
		widths[id] = w
		if w > maxWidth {
			maxWidth = w
		}
	}

	common := scheduler.And(masks...)
	start, ok := common.FirstFit(maxWidth)
	if !ok {
		return nil, qerr.New(qerr.ErrResourceExhausted, "translator: no common contiguous timeslot run available")
	}

	out := make(map[string]int, len(agentIDs))
	for _, id := range agentIDs {
		out[id] = start
	}
	return out, nil
}

// translateRequest runs the submit -> getResult RPC sequence for every
// agent. Submit failures (any agent) abort the whole call; getResult
// tolerates OK and Queued, aborting only on an explicit Failed.
func (t *Translator) translateRequest(ctx context.Context, kind, expID string, exp Experiment, agentIDs []string, req *requests.Request) ([]string, error) {
	starts, err := t.getSlotsToAllocate(ctx, exp, agentIDs)
	if err != nil {
		return nil, err
	}

	tasks := make([]scheduler.SubmitTask, 0, len(agentIDs))
	for i, id := range agentIDs {
		role, _ := exp.Sequence(i)
		tasks = append(tasks, scheduler.SubmitTask{
			AgentID: id, Kind: kind, ExpID: expID, Param: role,
			StartSlot: starts[id], NumSlots: role.SlotMaskWidth(),
		})
	}

	submitted, err := t.sched.Submit(ctx, tasks)
	if err != nil {
		return submitted, fmt.Errorf("translator: submit: %w", err)
	}

	results, err := t.sched.GetResult(ctx, kind, expID, agentIDs)
	if err != nil {
		return submitted, fmt.Errorf("translator: getResult: %w", err)
	}
	for agentID, result := range results {
		req.AddResult(agentID, result)
	}
	return submitted, nil
}
