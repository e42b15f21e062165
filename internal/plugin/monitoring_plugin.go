package plugin

import (
	"context"
	"log/slog"
	"time"

	"github.com/quantnet/controller/internal/model"
)

// MonitoringTopic is the pub/sub topic agents publish agentState and
// experimentResult events to.
const MonitoringTopic = "monitoring"

// monitor is the Monitor Monitoring plugin: the singleton that
// subscribes to MonitoringTopic and ingests agentState snapshots into
// the Resource Registry, grounded on the teacher's HealthMonitor
// (internal/coordinator/health_monitor.go) — an independent
// subscribe-and-record loop, generalized here from periodic HTTP polling
// to event-driven ingestion off the broker, since the original Monitor
// plugin is push-based (agents publish, the controller subscribes)
// rather than poll-based.
type monitor struct {
	ctx    *Context
	log    *slog.Logger
	cancel context.CancelFunc
}

func init() {
	Register("Monitor", TypeMonitoring, func(ctx *Context) Plugin {
		return &monitor{ctx: ctx, log: slog.Default().With("plugin", "Monitor")}
	})
}

func (m *monitor) Name() string { return "Monitor" }
func (m *monitor) Type() Type   { return TypeMonitoring }

func (m *monitor) Commands() CommandTable {
	return CommandTable{MsgCommands: []string{MonitoringTopic}}
}

// Initialize subscribes to MonitoringTopic; ingestion runs inline on the
// broker's dispatch goroutine, so Initialize itself returns immediately.
func (m *monitor) Initialize(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.ctx.MsgServer.Subscribe(MonitoringTopic, func(topic string, payload any) {
		m.handleEvent(runCtx, payload)
	})
	return nil
}

func (m *monitor) Destroy(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	return nil
}

func (m *monitor) handleEvent(ctx context.Context, payload any) {
	event, ok := payload.(map[string]any)
	if !ok {
		m.log.Warn("discarding malformed monitoring event")
		return
	}

	switch event["eventType"] {
	case "agentState":
		agentID, _ := event["rid"].(string)
		value, _ := event["value"].(string)
		ts := time.Now()
		if err := m.ctx.Registry.RecordAgentState(ctx, model.AgentState{
			AgentID: agentID, Value: value, Timestamp: ts,
		}); err != nil {
			m.log.Error("failed to record agent state", "agent", agentID, "err", err)
		}
	case "experimentResult":
		m.log.Debug("received experiment result event", "payload", event)
	default:
		m.log.Warn("unknown monitoring event type", "eventType", event["eventType"])
	}
}
