// Package config loads controller configuration from the environment,
// following the same getenv-with-default pattern the teacher uses for
// COORDINATOR_ADDR, and provides an fsnotify-based Watcher the controller
// uses on the experiment-definition override file so definitions can be
// reloaded without a restart. Plugin selection is read once at startup
// and is not reloaded.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Config mirrors every key spec.md §6 names, one field per key, each with
// the same default value as the original implementation.
type Config struct {
	MQHost             string
	MQPort             int
	MongoHost          string
	MongoPort          int
	RPCServerTopic     string
	RPCClientTopic     string
	RPCClientName      string
	ExpDefPath         string
	SchemaPath         string
	PluginsPath        []string
	SchedulerName      string
	RouterName         string
	MonitorName        string
	DatabaseDefault    string
	SchedulerGracePeriod time.Duration
}

// Load reads configuration from the environment, applying the defaults
// documented in spec.md §6.
func Load() Config {
	return Config{
		MQHost:               getenv("QNET_MQ_HOST", "localhost"),
		MQPort:               getenvInt("QNET_MQ_PORT", 1883),
		MongoHost:            getenv("QNET_MONGO_HOST", "localhost"),
		MongoPort:            getenvInt("QNET_MONGO_PORT", 27017),
		RPCServerTopic:       getenv("QNET_RPC_SERVER_TOPIC", "rpc/qn-server"),
		RPCClientTopic:       getenv("QNET_RPC_CLIENT_TOPIC", "rpc"),
		RPCClientName:        getenv("QNET_RPC_CLIENT_NAME", "qn-server"),
		ExpDefPath:           getenv("QNET_EXP_DEF_PATH", ""),
		SchemaPath:           getenv("QNET_SCHEMA_PATH", "schemas"),
		PluginsPath:          []string{getenv("QNET_PLUGINS_PATH", "plugins")},
		SchedulerName:        getenv("QNET_SCHEDULER_NAME", "BatchScheduler"),
		RouterName:           getenv("QNET_ROUTER_NAME", "PathFinder"),
		MonitorName:          getenv("QNET_MONITOR_NAME", "Monitor"),
		DatabaseDefault:      getenv("QNET_DATABASE_DEFAULT", "mongodb://localhost:27017/qnet"),
		SchedulerGracePeriod: getenvDuration("QNET_SCHEDULE_MANAGER_GRACE_PERIOD", 50*time.Millisecond),
	}
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// Watcher wraps fsnotify so the controller can reload experiment
// definitions without a restart; it does not reload plugin selection.
type Watcher struct {
	fw *fsnotify.Watcher
}

// NewWatcher opens an fsnotify watch on the given paths. Paths that don't
// exist yet are skipped rather than treated as fatal — a fresh deployment
// may not have an experiment-definition override directory at all.
func NewWatcher(paths ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = fw.Add(p)
	}
	return &Watcher{fw: fw}, nil
}

// Events exposes the underlying fsnotify event channel.
func (w *Watcher) Events() chan fsnotify.Event {
	return w.fw.Events
}

// Close releases the underlying OS watch handles.
func (w *Watcher) Close() error {
	return w.fw.Close()
}
