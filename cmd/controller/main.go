// Command controller runs the quantum-network testbed control plane: it
// registers agents, maintains the physical and entanglement-link
// topology, and orchestrates experiment/calibration/simulation requests
// across a time-slotted scheduler and an RPC/pub-sub broker.
//
// Configuration is read entirely from the environment (see
// internal/config), matching the teacher's COORDINATOR_ADDR-style
// getenv-with-default convention.
//
// Example usage:
//
//	QNET_MONGO_HOST=localhost QNET_SCHEDULER_NAME=BatchScheduler ./controller
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quantnet/controller/internal/broker"
	"github.com/quantnet/controller/internal/config"
	"github.com/quantnet/controller/internal/controller"
	"github.com/quantnet/controller/internal/logging"
	"github.com/quantnet/controller/internal/metrics"
	"github.com/quantnet/controller/internal/store"
)

func main() {
	os.Exit(int(run()))
}

func run() controller.ExitCode {
	log := logging.New("controller")
	cfg := config.Load()

	s, err := openStore(cfg)
	if err != nil {
		log.Error("failed to open document store", "err", err)
		return controller.ExitStartupFailure
	}

	reg := prometheus.NewRegistry()
	metricsReg := metrics.NewRegistry(reg)
	go serveMetrics(reg, log)

	b := broker.NewInMemoryBroker()
	go func() { _ = b.Start(context.Background()) }()

	ctl, err := controller.New(cfg, log, s, b, metricsReg)
	if err != nil {
		log.Error("failed to construct controller", "err", err)
		return controller.ExitStartupFailure
	}

	return ctl.Run(context.Background())
}

// openStore connects to MongoDB when DatabaseDefault names a mongodb://
// URI, or falls back to an in-memory store for local/dev runs — the Go
// analogue of the original db/broker.py's dialect-sniffing Broker
// selection (check_database_type), simplified to the one backend this
// repo actually ships a driver for.
func openStore(cfg config.Config) (store.Store, error) {
	if len(cfg.DatabaseDefault) > len("mongodb://") && cfg.DatabaseDefault[:len("mongodb://")] == "mongodb://" {
		return store.NewMongoStore(context.Background(), cfg.DatabaseDefault, "qnet")
	}
	return store.NewMemoryStore(), nil
}

func serveMetrics(reg *prometheus.Registry, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(":9090", mux); err != nil {
		log.Warn("metrics server stopped", "err", err)
	}
}
