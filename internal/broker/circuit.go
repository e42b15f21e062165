package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// ResilientClient wraps an RPCClient with a per-agent circuit breaker, so
// an agent stuck timing out on every call stops absorbing scheduler
// fan-out time budget: once its breaker opens, calls fail fast until the
// breaker's reset timeout elapses and a trial call is allowed through.
type ResilientClient struct {
	inner    RPCClient
	breakers map[string]*gobreaker.CircuitBreaker
	newCB    func(target string) *gobreaker.CircuitBreaker
	mu       sync.Mutex
}

// NewResilientClient wraps inner, creating one gobreaker.CircuitBreaker
// per call target on first use, opening after 5 consecutive failures and
// attempting recovery after 30s — the same shape gobreaker's defaults
// suggest, tuned down from its larger default window since an agent RPC
// fan-out round is seconds, not minutes.
func NewResilientClient(inner RPCClient) *ResilientClient {
	c := &ResilientClient{inner: inner, breakers: make(map[string]*gobreaker.CircuitBreaker)}
	c.newCB = func(target string) *gobreaker.CircuitBreaker {
		return gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "rpc:" + target,
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		})
	}
	return c
}

func (c *ResilientClient) breakerFor(target string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cb, ok := c.breakers[target]; ok {
		return cb
	}
	cb := c.newCB(target)
	c.breakers[target] = cb
	return cb
}

// Call implements RPCClient, routing through the target's breaker.
func (c *ResilientClient) Call(ctx context.Context, target, method string, params any) (any, error) {
	cb := c.breakerFor(target)
	result, err := cb.Execute(func() (any, error) {
		return c.inner.Call(ctx, target, method, params)
	})
	if err != nil {
		return nil, fmt.Errorf("rpc call %s to %s: %w", method, target, err)
	}
	return result, nil
}
