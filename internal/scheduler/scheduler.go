package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quantnet/controller/internal/broker"
	"github.com/quantnet/controller/internal/model"
)

// Timeout defaults per spec.md §4.4, one per scheduler RPC method.
const (
	GetScheduleTimeout = 5 * time.Second
	SubmitTimeout      = 5 * time.Second
	GetResultTimeout   = 600 * time.Second
	CancelTimeout      = 5 * time.Second
)

// Scheduler is the Scheduler component (C6): it fans out getSchedule,
// submit, getResult and cancel RPCs across a request's participating
// agents. Submit reports which agents it reached so the caller can drive
// a best-effort cancel-cascade after a mid-flight failure; the Scheduler
// itself only remembers which request ids have already been canceled.
type Scheduler struct {
	client broker.RPCClient

	mu       sync.Mutex
	canceled map[string]bool // request id -> already canceled
}

// New builds a Scheduler issuing RPCs through client.
func New(client broker.RPCClient) *Scheduler {
	return &Scheduler{client: client, canceled: make(map[string]bool)}
}

// GetTimeslots fans out getSchedule to every agent in agentIDs and
// returns each agent's decoded availability bitmap. Any single failure
// (transport error, non-OK status, or a malformed hex mask) aborts the
// entire call — spec.md §4.4: "ANY failure is fatal for getTimeslots."
func (s *Scheduler) GetTimeslots(ctx context.Context, agentIDs []string) (map[string]Bitset500, error) {
	results := make([]Bitset500, len(agentIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range agentIDs {
		i, id := i, id
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, GetScheduleTimeout)
			defer cancel()
			raw, err := s.client.Call(callCtx, id, "scheduler.getSchedule", nil)
			if err != nil {
				return fmt.Errorf("getSchedule to %s: %w", id, err)
			}
			resp, ok := raw.(map[string]any)
			if !ok {
				return fmt.Errorf("getSchedule to %s: malformed response", id)
			}
			if code := model.NormalizeCode(resp["status"]); code != model.OK {
				return fmt.Errorf("getSchedule to %s: status %s", id, code)
			}
			hexMask, _ := resp["mask"].(string)
			mask, err := MaskFromHex(hexMask)
			if err != nil {
				return fmt.Errorf("getSchedule to %s: %w", id, err)
			}
			results[i] = mask
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string]Bitset500, len(agentIDs))
	for i, id := range agentIDs {
		out[id] = results[i]
	}
	return out, nil
}

// SubmitTask is one agent's carved-out allocation: the sequence to run
// and the contiguous timeslot run it was assigned.
type SubmitTask struct {
	AgentID    string
	Kind       string // request kind, e.g. "experiment" or "calibration"; selects the "<kind>.submit" wire method
	ExpID      string
	Param      any
	StartSlot  int
	NumSlots   int
}

// Submit fans out "<kind>.submit" to every task (spec.md §4.4/§6: submit
// and getResult are dispatched under the request's own kind, not a
// generic "scheduler." prefix). If any call errors or returns a non-OK
// status, Submit returns the list of agents it DID successfully submit
// to (for the caller to cancel) alongside the error.
func (s *Scheduler) Submit(ctx context.Context, tasks []SubmitTask) (submitted []string, err error) {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range tasks {
		t := t
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, SubmitTimeout)
			defer cancel()
			raw, callErr := s.client.Call(callCtx, t.AgentID, t.Kind+".submit", map[string]any{
				"expId": t.ExpID, "param": t.Param, "startSlot": t.StartSlot, "numSlots": t.NumSlots,
			})
			if callErr != nil {
				return fmt.Errorf("submit to %s: %w", t.AgentID, callErr)
			}
			resp, _ := raw.(map[string]any)
			if code := model.NormalizeCode(resp["status"]); code != model.OK {
				return fmt.Errorf("submit to %s: status %s", t.AgentID, code)
			}
			mu.Lock()
			submitted = append(submitted, t.AgentID)
			mu.Unlock()
			return nil
		})
	}
	err = g.Wait()
	return submitted, err
}

// GetResult fans out "<kind>.getResult" to every agentID. OK and Queued
// are both accepted as progress (spec.md §4.4); only a transport error or
// an explicit Failed status aborts the group.
func (s *Scheduler) GetResult(ctx context.Context, kind, expID string, agentIDs []string) (map[string]any, error) {
	results := make([]any, len(agentIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range agentIDs {
		i, id := i, id
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, GetResultTimeout)
			defer cancel()
			raw, err := s.client.Call(callCtx, id, kind+".getResult", map[string]any{"expId": expID})
			if err != nil {
				return fmt.Errorf("getResult from %s: %w", id, err)
			}
			resp, _ := raw.(map[string]any)
			code := model.NormalizeCode(resp["status"])
			if code != model.OK && code != model.Queued {
				return fmt.Errorf("getResult from %s: status %s", id, code)
			}
			results[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(agentIDs))
	for i, id := range agentIDs {
		out[id] = results[i]
	}
	return out, nil
}

// Cancel best-effort cancels expID on every agent in agentIDs via the
// fixed "experiment.cancel" wire method — spec.md §4.4/§6 name this
// literally, unlike submit/getResult it is never kind-prefixed. It never
// returns an error: per-agent failures are logged and swallowed. Cancel is
// idempotent per (expID): a second call for the same expID is a no-op,
// satisfying Testable Property 6 (cancel safety).
func (s *Scheduler) Cancel(ctx context.Context, expID string, agentIDs []string) {
	s.mu.Lock()
	if s.canceled[expID] {
		s.mu.Unlock()
		return
	}
	s.canceled[expID] = true
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, id := range agentIDs {
		wg.Add(1)
		go func(agentID string) {
			defer wg.Done()
			callCtx, cancel := context.WithTimeout(ctx, CancelTimeout)
			defer cancel()
			if _, err := s.client.Call(callCtx, agentID, "experiment.cancel", map[string]any{"expId": expID}); err != nil {
				slog.Warn("experiment.cancel failed", "agent", agentID, "expId", expID, "err", err)
			}
		}(id)
	}
	wg.Wait()
}
