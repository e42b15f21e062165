// Package controller implements the Controller Context / Lifecycle
// (C9): dependency-ordered startup (store -> registry -> broker ->
// scheduler/translator -> plugin discovery and initialization), an idle
// loop until a shutdown signal, and
// signal-driven graceful/forced shutdown, grounded on the teacher's
// cmd/coordinator/main.go signal-handling pattern (signal.Notify +
// blocking receive + bounded-timeout Shutdown) and the original
// server.py's should_exit/force_exit double-SIGINT behavior.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quantnet/controller/internal/broker"
	"github.com/quantnet/controller/internal/config"
	"github.com/quantnet/controller/internal/metrics"
	"github.com/quantnet/controller/internal/plugin"
	"github.com/quantnet/controller/internal/registry"
	"github.com/quantnet/controller/internal/scheduler"
	"github.com/quantnet/controller/internal/store"
	"github.com/quantnet/controller/internal/translator"

	"github.com/fsnotify/fsnotify"
)

// ExitCode mirrors the process exit codes spec.md §6 names.
type ExitCode int

const (
	ExitOK             ExitCode = 0
	ExitStartupFailure ExitCode = 3
	ExitForcedShutdown ExitCode = 2
)

// Controller owns every long-lived dependency and the plugins built atop
// them, and drives the startup/idle/shutdown lifecycle.
type Controller struct {
	cfg     config.Config
	log     *slog.Logger
	ctx     *plugin.Context
	catalog *translator.Catalog
	plugins []plugin.Plugin
	watcher *config.Watcher

	shouldExit bool
	forceExit  bool
}

// New constructs a Controller from cfg, wiring every dependency in the
// order spec.md §9 prescribes: doc store, Resource Registry, broker
// clients/servers, Scheduler/Translator, then plugin discovery.
func New(cfg config.Config, log *slog.Logger, s store.Store, b *broker.InMemoryBroker, metricsReg *metrics.Registry) (*Controller, error) {
	reg := registry.New(s)
	sched := scheduler.New(broker.NewResilientClient(b))

	catalog, collisions, err := translator.NewCatalog(translator.BuiltinExpDefs(), cfg.ExpDefPath)
	if err != nil {
		return nil, fmt.Errorf("controller: load experiment definitions: %w", err)
	}
	for _, name := range collisions {
		log.Warn("experiment definition override replaces a built-in", "name", name)
	}

	trans := translator.New(catalog, reg, sched, metricsReg, cfg.SchedulerGracePeriod)

	pctx := plugin.NewContext()
	pctx.Store = s
	pctx.Registry = reg
	pctx.Scheduler = sched
	pctx.Translator = trans
	pctx.Catalog = catalog
	pctx.RPCClient = b
	pctx.RPCServer = b
	pctx.MsgClient = b
	pctx.MsgServer = b

	c := &Controller{cfg: cfg, log: log, ctx: pctx, catalog: catalog}
	return c, nil
}

// Startup discovers and initializes every plugin and — if cfg.ExpDefPath
// is set — starts watching it so experiment-definition overrides can be
// reloaded without a restart. It does not register the plugins' command
// tables on the broker's RPC/message servers.
func (c *Controller) Startup(ctx context.Context) error {
	c.plugins = plugin.Discover(c.ctx, c.cfg.RouterName, c.cfg.SchedulerName, c.cfg.MonitorName)
	for _, p := range c.plugins {
		if err := p.Initialize(ctx); err != nil {
			return fmt.Errorf("controller: initialize plugin %q: %w", p.Name(), err)
		}
		c.log.Info("plugin started", "name", p.Name(), "type", p.Type())
	}

	if c.cfg.ExpDefPath != "" {
		w, err := config.NewWatcher(c.cfg.ExpDefPath)
		if err != nil {
			c.log.Warn("experiment definition watcher disabled", "path", c.cfg.ExpDefPath, "err", err)
		} else {
			c.watcher = w
			go c.watchExpDefs(c.cfg.ExpDefPath)
		}
	}
	return nil
}

// watchExpDefs reloads the experiment definition catalog whenever
// cfg.ExpDefPath changes, until the watcher is closed at shutdown.
func (c *Controller) watchExpDefs(path string) {
	for ev := range c.watcher.Events() {
		if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			continue
		}
		collisions, err := c.catalog.Reload(path)
		if err != nil {
			c.log.Error("experiment definition reload failed", "path", path, "err", err)
			continue
		}
		for _, name := range collisions {
			c.log.Warn("experiment definition override replaces a built-in", "name", name)
		}
		c.log.Info("experiment definitions reloaded", "path", path)
	}
}

// Shutdown destroys every plugin in reverse startup order and stops the
// experiment-definition watcher, if one was started.
func (c *Controller) Shutdown(ctx context.Context) error {
	if c.watcher != nil {
		_ = c.watcher.Close()
	}
	for i := len(c.plugins) - 1; i >= 0; i-- {
		p := c.plugins[i]
		if err := p.Destroy(ctx); err != nil {
			c.log.Error("plugin shutdown error", "name", p.Name(), "err", err)
		}
	}
	return nil
}

// Run blocks until a shutdown signal is received, then performs a
// graceful shutdown. A first SIGINT/SIGTERM sets shouldExit and begins
// graceful shutdown; a second SIGINT forces immediate exit, matching the
// original's handle_exit double-signal behavior.
func (c *Controller) Run(ctx context.Context) ExitCode {
	if err := c.Startup(ctx); err != nil {
		c.log.Error("startup failed", "err", err)
		return ExitStartupFailure
	}

	sig := make(chan os.Signal, 2)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	first := <-sig
	c.shouldExit = true
	c.log.Info("shutdown signal received, starting graceful shutdown", "signal", first.String())

	shutdownDone := make(chan struct{})
	go func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.Shutdown(shutdownCtx); err != nil {
			c.log.Error("shutdown error", "err", err)
		}
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		return ExitOK
	case s := <-sig:
		if s == os.Interrupt {
			c.forceExit = true
			c.log.Warn("second interrupt received, forcing shutdown")
			return ExitForcedShutdown
		}
		<-shutdownDone
		return ExitOK
	}
}
