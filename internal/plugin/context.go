package plugin

import (
	"github.com/quantnet/controller/internal/broker"
	"github.com/quantnet/controller/internal/model"
	"github.com/quantnet/controller/internal/registry"
	"github.com/quantnet/controller/internal/requests"
	"github.com/quantnet/controller/internal/scheduler"
	"github.com/quantnet/controller/internal/store"
	"github.com/quantnet/controller/internal/topology"
	"github.com/quantnet/controller/internal/translator"
)

func reqType(kind string) model.RequestType { return model.RequestType(kind) }

// Context is the shared arena every plugin gets a non-owning handle to.
// It exists to break the cyclic reference a naive design would create
// (plugins needing the registry, the registry's topology view needing
// routing, routing being a plugin): Context is the single object the
// Controller lifecycle owns and constructs in dependency order: the doc
// store first, then the Resource Registry atop it, then the broker
// clients/servers, then the Scheduler/Translator, and only then the
// plugins — each plugin receives this already-built Context rather than
// constructing or owning any piece of it.
type Context struct {
	Store      store.Store
	Registry   *registry.Registry
	Scheduler  *scheduler.Scheduler
	Translator *translator.Translator
	Catalog    *translator.Catalog

	RPCClient broker.RPCClient
	RPCServer broker.RPCServer
	MsgClient broker.MsgClient
	MsgServer broker.MsgServer

	// managers holds the per-(schema,kind) Request Registry singletons
	// this controller instance has created, so protocol plugins can
	// share the one Manager for a given kind instead of each reaching
	// into requests.GetManager with a different schema string.
	managers map[requestKindKey]*requests.Manager
}

type requestKindKey struct {
	schema string
	kind   string
}

// NewContext builds an empty Context; callers populate fields as each
// dependency comes up during startup.
func NewContext() *Context {
	return &Context{managers: make(map[requestKindKey]*requests.Manager)}
}

// FindPath resolves src to dst via the Context's current topology
// snapshot. Building the Graph/EntGraph is cheap enough (bounded by
// registered node count) to do per call rather than cache, keeping the
// arena free of topology-staleness bookkeeping beyond what the Registry
// itself tracks.
func (c *Context) FindPath(src, dst string, mode topology.Mode, algo topology.Algorithm) ([][]string, error) {
	view := c.Registry.GetTopology(true)
	g, _ := topology.Build(view.Nodes)
	eg := topology.BuildEntanglementGraph(g)
	return topology.FindRoutes(g, eg, src, dst, mode, algo)
}

// RequestManager returns (creating if necessary) the singleton Manager
// for (schema, kind).
func (c *Context) RequestManager(schema, kind string, executor requests.Executor) *requests.Manager {
	key := requestKindKey{schema: schema, kind: kind}
	if m, ok := c.managers[key]; ok {
		return m
	}
	m := requests.GetManager(schema, reqType(kind), c.Store, executor)
	c.managers[key] = m
	return m
}
