package requests

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quantnet/controller/internal/model"
	"github.com/quantnet/controller/internal/qerr"
	"github.com/quantnet/controller/internal/store"
)

// Executor runs an Experiment or Calibration Request to completion. It is
// implemented by the Request Translator (C7); the Request Registry only
// depends on this interface, not the translator package, to keep the
// dependency direction the way the original's RequestManager->
// RequestTranslator ownership implies without an import cycle.
type Executor interface {
	StartExperiment(ctx context.Context, req *Request) (any, error)
}

// Manager is a singleton-per-(pluginSchema, RequestType) request
// registry: it owns the active Request set, a FIFO execution queue
// drained by a single dedicated goroutine (the "cooperative single-event-
// loop" model of the original), and persistence of every transition.
type Manager struct {
	kind     model.RequestType
	store    store.Store
	executor Executor // nil for Simulation/Protocol kinds

	mu     sync.RWMutex
	active map[string]*Request

	queue chan *Request
	done  chan struct{}
}

var (
	registryMu sync.Mutex
	registry   = map[string]*Manager{}
)

// GetManager returns the singleton Manager for (schema, kind), creating
// it on first call. Subsequent calls with the same (schema, kind) return
// the identical instance — the Go analogue of the original's
// `__new__`-based singleton keyed by f"{schema}_{kind}" (Testable
// Property 2: ID uniqueness & idempotence extends to registry identity).
func GetManager(schema string, kind model.RequestType, s store.Store, executor Executor) *Manager {
	key := fmt.Sprintf("%s_%s", schema, kind)

	registryMu.Lock()
	defer registryMu.Unlock()
	if m, ok := registry[key]; ok {
		return m
	}
	m := &Manager{
		kind:     kind,
		store:    s,
		executor: executor,
		active:   make(map[string]*Request),
		queue:    make(chan *Request, 256),
		done:     make(chan struct{}),
	}
	go m.processQueue()
	registry[key] = m
	return m
}

// resetRegistryForTest clears the package-level singleton map; it exists
// only so tests can exercise GetManager's creation path repeatedly
// without cross-test leakage.
func resetRegistryForTest() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = map[string]*Manager{}
}

// NewRequest builds and tracks a new Request as Created, persisting the
// initial Created document to the store, without scheduling it for
// execution. An optional id may be supplied (spec.md §4.3's
// newRequest(payload, parameters, id?, customFunc?)); if a Request with
// that id already exists in the active set or the store, the existing
// Request is returned rather than a duplicate being created (Testable
// Property 2: ID uniqueness & idempotence).
func (m *Manager) NewRequest(ctx context.Context, payload, params map[string]any, fn func() (any, error), id ...string) *Request {
	var reqID string
	if len(id) > 0 {
		reqID = id[0]
	}

	if reqID != "" {
		m.mu.RLock()
		existing, ok := m.active[reqID]
		m.mu.RUnlock()
		if ok {
			return existing
		}
		if doc, err := m.store.Get(ctx, store.Requests, reqID); err == nil {
			r := fromDoc(doc)
			m.mu.Lock()
			m.active[r.ID] = r
			m.mu.Unlock()
			return r
		}
	}

	r := New(m.kind, payload, params, fn)
	if reqID != "" {
		r.ID = reqID
	}
	m.mu.Lock()
	m.active[r.ID] = r
	m.mu.Unlock()
	m.persist(ctx, r)
	return r
}

// Schedule enqueues r for FIFO execution. When blocking is true, Schedule
// polls r's status until it reaches a terminal state (or ctx is done)
// before returning — the Go analogue of the original's asyncio.Future-
// backed execution_wrapper poll loop. Otherwise it returns immediately
// after marking r Queued.
func (m *Manager) Schedule(ctx context.Context, r *Request, blocking bool) error {
	if err := r.UpdateStatus(model.StatusQueued, ""); err != nil {
		return err
	}
	m.persist(ctx, r)

	select {
	case m.queue <- r:
	default:
		return qerr.New(qerr.ErrResourceExhausted, fmt.Sprintf("request %s: queue full", r.ID))
	}
	if !blocking {
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if r.StatusCode().Terminal() {
				return nil
			}
		}
	}
}

// ExecImmediate runs r through the same per-kind executor as Schedule but
// bypasses the FIFO queue entirely (spec.md §4.3 execImmediate), for
// callers that need a Request serviced ahead of whatever else is queued.
// Like Schedule, a blocking caller polls until r reaches a terminal
// status.
func (m *Manager) ExecImmediate(ctx context.Context, r *Request, blocking bool) error {
	if err := r.UpdateStatus(model.StatusQueued, ""); err != nil {
		return err
	}
	m.persist(ctx, r)

	go m.execute(ctx, r)

	if !blocking {
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if r.StatusCode().Terminal() {
				return nil
			}
		}
	}
}

// processQueue drains m.queue sequentially, executing one Request fully
// before starting the next — the per-kind FIFO ordering spec.md §5
// requires.
func (m *Manager) processQueue() {
	for r := range m.queue {
		m.execute(context.Background(), r)
	}
}

func (m *Manager) execute(ctx context.Context, r *Request) {
	if err := r.UpdateStatus(model.StatusRunning, ""); err != nil {
		return
	}
	m.persist(ctx, r)

	var rc any
	var err error
	switch r.Type {
	case model.RequestExperiment, model.RequestCalibration:
		if m.executor == nil {
			err = qerr.New(qerr.ErrInternal, fmt.Sprintf("request %s: no executor configured for kind %s", r.ID, r.Type))
		} else {
			rc, err = m.executor.StartExperiment(ctx, r)
		}
	case model.RequestProtocol:
		if r.Func != nil {
			rc, err = r.Func()
		}
	default:
		rc = model.OK
	}

	if err != nil {
		_ = r.UpdateStatus(model.StatusFailed, err.Error())
	} else if code := model.NormalizeCode(rc); code == model.OK {
		_ = r.UpdateStatus(model.StatusCompleted, "")
	} else {
		_ = r.UpdateStatus(model.StatusFailed, fmt.Sprintf("non-OK return code: %s", code))
	}
	m.persist(ctx, r)
}

func (m *Manager) persist(ctx context.Context, r *Request) {
	_ = m.store.Upsert(ctx, store.Requests, r.ID, r.ToDoc())
}

// Get returns a Request by id, checking the active set first and falling
// back to store reconstruction for completed/failed requests evicted
// from memory.
func (m *Manager) Get(ctx context.Context, id string) (*Request, error) {
	m.mu.RLock()
	r, ok := m.active[id]
	m.mu.RUnlock()
	if ok {
		return r, nil
	}

	doc, err := m.store.Get(ctx, store.Requests, id)
	if err != nil {
		return nil, qerr.Wrap(qerr.ErrNotFound, fmt.Sprintf("request %s", id), err)
	}
	return fromDoc(doc), nil
}

// Find delegates to the store and overlays the live in-memory object for
// any id also present in the active set, so a caller sees up-to-the-
// instant status for requests still running while still finding requests
// that were persisted and then evicted from memory (spec.md §4.3
// findRequests, Scenario S6).
func (m *Manager) Find(ctx context.Context, filter map[string]any) []*Request {
	docs, _ := m.store.Find(ctx, store.Requests, nil, "", false, 0)

	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	var out []*Request
	for _, d := range docs {
		id := fmt.Sprint(d["_id"])
		seen[id] = true
		r, ok := m.active[id]
		if !ok {
			r = fromDoc(d)
		}
		if matchesFilter(r, filter) {
			out = append(out, r)
		}
	}
	for id, r := range m.active {
		if seen[id] {
			continue
		}
		if matchesFilter(r, filter) {
			out = append(out, r)
		}
	}
	return out
}

func matchesFilter(r *Request, filter map[string]any) bool {
	for k, v := range filter {
		switch k {
		case "type":
			if string(r.Type) != v {
				return false
			}
		case "status":
			if string(r.StatusCode()) != v {
				return false
			}
		}
	}
	return true
}

// Delete removes id from both the active set and the store, returning
// true if the store actually held a record for id (spec.md §4.3 delete).
func (m *Manager) Delete(ctx context.Context, id string) bool {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()

	_, err := m.store.Get(ctx, store.Requests, id)
	inStore := err == nil

	_ = m.store.Delete(ctx, store.Requests, id)
	return inStore
}

func fromDoc(doc map[string]any) *Request {
	r := &Request{ID: fmt.Sprint(doc["_id"])}
	if t, ok := doc["type"].(string); ok {
		r.Type = model.RequestType(t)
	}
	if res, ok := doc["result"].(map[string]any); ok {
		r.Result = res
	}
	if st, ok := doc["status"].(map[string]any); ok {
		code, _ := st["code"].(string)
		errMsg, _ := st["error"].(string)
		r.Status = model.Status{Code: model.ReqStatus(code), Error: errMsg}
	}
	return r
}
