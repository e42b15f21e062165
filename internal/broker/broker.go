// Package broker defines the message-broker adapters (C2): an RPC
// client/server pair for request/response calls into agents, and a
// pub/sub client/server pair for topology and monitoring events. The
// interfaces are transport-agnostic; InMemoryBroker implements them
// in-process for tests and single-binary deployments, grounded on the
// teacher's HTTP request-helper pattern (internal/cluster/types.go's
// PostJSON/GetJSON) adapted from point-to-point HTTP calls to a
// topic-addressed call/publish model.
package broker

import (
	"context"
	"fmt"
	"sync"
)

// Handler answers an RPC call addressed to method, given its raw params,
// and returns a raw result or an error. The result is later run through
// model.NormalizeCode by the caller.
type Handler func(ctx context.Context, params any) (any, error)

// Subscriber receives a message published to a topic.
type Subscriber func(topic string, payload any)

// RPCClient issues request/response calls to a named agent.
type RPCClient interface {
	// Call invokes method on target (an agent or topic-addressed peer),
	// blocking until ctx is done, a result arrives, or a transport-level
	// failure occurs.
	Call(ctx context.Context, target, method string, params any) (any, error)
}

// RPCServer registers inbound method handlers and dispatches calls to them.
type RPCServer interface {
	// Register binds method to handler. Registering the same method twice
	// replaces the previous handler.
	Register(method string, handler Handler)
	// Start begins serving registered methods; it returns once ctx is
	// canceled.
	Start(ctx context.Context) error
	// Stop halts serving.
	Stop() error
}

// MsgClient publishes asynchronous, non-reply messages (topology updates,
// monitoring events).
type MsgClient interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// MsgServer dispatches published messages to subscribers.
type MsgServer interface {
	Subscribe(topic string, sub Subscriber)
	Start(ctx context.Context) error
	Stop() error
}

// InMemoryBroker implements RPCClient+RPCServer+MsgClient+MsgServer for a
// single process: calls and publishes are delivered synchronously to
// locally-registered handlers/subscribers. It is the default transport
// for tests and for a controller running without an external MQTT broker;
// a network-facing implementation can satisfy the same four interfaces
// for a multi-process deployment without any caller change.
type InMemoryBroker struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	subs     map[string][]Subscriber
}

// NewInMemoryBroker returns a ready-to-use in-process broker.
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		handlers: make(map[string]Handler),
		subs:     make(map[string][]Subscriber),
	}
}

// Register implements RPCServer.
func (b *InMemoryBroker) Register(method string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[method] = handler
}

// Start implements RPCServer and MsgServer; the in-memory broker needs no
// background loop, so Start simply blocks until ctx is canceled.
func (b *InMemoryBroker) Start(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// Stop implements RPCServer and MsgServer.
func (b *InMemoryBroker) Stop() error { return nil }

// Call implements RPCClient. target is accepted for interface symmetry
// with a networked transport but ignored: the in-memory broker has a
// single, process-wide method table.
func (b *InMemoryBroker) Call(ctx context.Context, target, method string, params any) (any, error) {
	b.mu.RLock()
	h, ok := b.handlers[method]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("broker: no handler registered for method %q (target %q)", method, target)
	}

	type result struct {
		val any
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := h(ctx, params)
		done <- result{v, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.val, r.err
	}
}

// Publish implements MsgClient.
func (b *InMemoryBroker) Publish(ctx context.Context, topic string, payload any) error {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs[topic]...)
	b.mu.RUnlock()
	for _, s := range subs {
		s(topic, payload)
	}
	return ctx.Err()
}

// Subscribe implements MsgServer.
func (b *InMemoryBroker) Subscribe(topic string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = append(b.subs[topic], sub)
}

// RPCTopic returns the topic an agent's RPC server listens on, matching
// the original wire protocol's "rpc/<agentId>" convention.
func RPCTopic(agentID string) string {
	return "rpc/" + agentID
}
