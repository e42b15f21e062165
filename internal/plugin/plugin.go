// Package plugin defines the Plugin architecture (C8): a closed set of
// capability tags (Routing, Scheduling, Monitoring, Protocol), the
// command tables each plugin exposes, and an explicit registration table
// used to discover and construct plugins at startup. This replaces the
// original's directory-tree manifest scan (server.py's
// load_plugins/fast_scandir) with a compile-time registration list — the
// idiomatic Go substitute for dynamically loading arbitrary code, per
// the original's own plugin_mappings indirection (server.py), just
// resolved at compile time instead of at each startup's directory walk.
package plugin

import "context"

// Type is the closed set of plugin capabilities.
type Type string

const (
	TypeRouting    Type = "routing"
	TypeScheduling Type = "scheduling"
	TypeMonitoring Type = "monitoring"
	TypeProtocol   Type = "protocol"
)

// CommandTable lists the RPC/message command names a plugin exposes. The
// Controller does not register these names on the broker's RPC/message
// servers.
type CommandTable struct {
	ClientCommands []string
	ServerCommands []string
	MsgCommands    []string
}

// Plugin is the interface every concrete plugin implements.
type Plugin interface {
	Name() string
	Type() Type
	Commands() CommandTable
	Initialize(ctx context.Context) error
	Destroy(ctx context.Context) error
}

// Factory constructs a Plugin given a Context handle. Registered once
// per plugin at package init time.
type Factory func(ctx *Context) Plugin

// registration is one entry in the explicit plugin registration table.
type registration struct {
	name    string
	typ     Type
	factory Factory
}

var registrations []registration

// Register adds a plugin factory to the registration table. Called from
// each concrete plugin's package init().
func Register(name string, typ Type, factory Factory) {
	registrations = append(registrations, registration{name: name, typ: typ, factory: factory})
}

// Discover instantiates every registered plugin against ctx. For
// singleton types (Routing, Scheduling, Monitoring) only the plugin whose
// name matches the configured singleton name for that type is kept;
// every Protocol plugin is instantiated and kept, matching the original's
// "ALL Protocol plugins loaded; only one singleton instance per
// {Scheduler,Router,Monitor}" rule.
func Discover(ctx *Context, routerName, schedulerName, monitorName string) []Plugin {
	singletonName := map[Type]string{
		TypeRouting:    routerName,
		TypeScheduling: schedulerName,
		TypeMonitoring: monitorName,
	}

	var out []Plugin
	for _, reg := range registrations {
		if want, ok := singletonName[reg.typ]; ok && reg.name != want {
			continue
		}
		out = append(out, reg.factory(ctx))
	}
	return out
}
