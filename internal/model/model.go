// Package model defines the data types shared across every controller
// component: physical resources (Node, Channel, Neighbor), requests and
// their lifecycle status, and the normalized return-code vocabulary used
// to translate heterogeneous agent responses into a Request outcome.
package model

import (
	"time"

	"github.com/google/uuid"
)

// NewID generates a random UUIDv4 string in its canonical lowercase,
// dash-separated form, used for node and request identifiers.
func NewID() string {
	return uuid.New().String()
}

// Code is the normalized outcome of an agent RPC call or a Request's
// terminal execution, independent of whatever shape the call returned
// (bool, int, string, or a Code itself).
type Code int

const (
	// OK indicates success.
	OK Code = iota
	// Failed indicates an unsuccessful but well-formed outcome.
	Failed
	// Queued indicates work accepted but not yet complete — a valid
	// interim state for getResult polling, never a terminal Request status.
	Queued
)

// String renders a Code as the agent wire-protocol expects it.
func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case Failed:
		return "FAILED"
	case Queued:
		return "QUEUED"
	default:
		return "FAILED"
	}
}

// NormalizeCode converts a heterogeneous RPC return value into a Code,
// mirroring the original controller's return-code normalization rules:
//
//   - Code passes through unchanged.
//   - bool: true -> OK, false -> Failed.
//   - int: 0 -> OK, anything else -> Failed.
//   - string: case-insensitive match against a Code's name ("ok",
//     "failed", "queued"), else Failed.
//   - nil: OK (an agent that returns nothing succeeded).
//   - anything else: Failed.
func NormalizeCode(rc any) Code {
	switch v := rc.(type) {
	case nil:
		return OK
	case Code:
		return v
	case bool:
		if v {
			return OK
		}
		return Failed
	case int:
		if v == 0 {
			return OK
		}
		return Failed
	case int64:
		if v == 0 {
			return OK
		}
		return Failed
	case string:
		return codeFromString(v)
	default:
		return Failed
	}
}

func codeFromString(s string) Code {
	for _, c := range []Code{OK, Failed, Queued} {
		if equalFold(c.String(), s) {
			return c
		}
	}
	return Failed
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// Status is the current lifecycle state of a Request plus the terminal
// error, if any. Status is monotonic: once Code is Completed or Failed
// it never changes again.
type Status struct {
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
	Error     string    `bson:"error,omitempty" json:"error,omitempty"`
	Code      ReqStatus `bson:"code" json:"code"`
}

// ReqStatus enumerates the Request lifecycle states.
type ReqStatus string

const (
	StatusCreated   ReqStatus = "created"
	StatusQueued    ReqStatus = "queued"
	StatusRunning   ReqStatus = "running"
	StatusCompleted ReqStatus = "completed"
	StatusFailed    ReqStatus = "failed"
)

// Terminal reports whether s is Completed or Failed — no further
// transition is permitted once reached.
func (s ReqStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// RequestType is the closed set of request kinds the controller executes.
type RequestType string

const (
	RequestExperiment  RequestType = "experiment"
	RequestCalibration RequestType = "calibration"
	RequestSimulation  RequestType = "simulation"
	RequestProtocol    RequestType = "protocol"
)

// Node is a physical resource registered by a remote agent: a quantum
// node, repeater, switch, router, or BSM station. Per spec.md §3/§4.1 it
// carries two distinct identifiers: LogicalID is the human-readable name
// an agent registers and addresses itself by — the registration/lookup
// key, stored as the document's primary key — while ID is an opaque
// internal identifier, assigned once at first registration and never
// used for addressing or topology lookups.
type Node struct {
	Config    map[string]any `bson:"config" json:"config"`
	ID        string         `bson:"id" json:"id"`
	LogicalID string         `bson:"_id" json:"logicalID"`
	Type      string         `bson:"type" json:"type"`
	Channels  []Channel      `bson:"channels" json:"channels"`
	Deleted   bool           `bson:"deleted" json:"deleted"`
	UpdatedAt time.Time      `bson:"updatedAt" json:"updatedAt"`
}

// EntanglementCapable reports whether a node's Type participates
// directly in entanglement links (as opposed to a pure relay/BSM node).
func (n Node) EntanglementCapable() bool {
	switch n.Type {
	case "QNode", "QRepeater", "QSwitch", "QRouter":
		return true
	default:
		return false
	}
}

// IsBSM reports whether the node is a Bell-state-measurement station —
// the pivot point the entanglement-link graph expands around.
func (n Node) IsBSM() bool {
	return n.Type == "BSMNode"
}

// IsRouter reports whether the node type is allowed as an interior hop
// in entanglement-mode routing.
func (n Node) IsRouter() bool {
	return n.Type == "QRepeater" || n.Type == "QRouter"
}

// Channel is a physical or quantum port on a Node, connecting to a
// Neighbor's channel on another Node.
type Channel struct {
	Neighbor  *Neighbor `bson:"neighbor,omitempty" json:"neighbor,omitempty"`
	ID        string    `bson:"id" json:"id"`
	Kind      string    `bson:"kind" json:"kind"` // "quantum" | "classical"
	Direction string    `bson:"direction" json:"direction"` // "in" | "out"
}

// Neighbor identifies the remote system and channel a Channel connects
// to. SystemRef is the remote Node's LogicalID, not its opaque ID —
// channels wire together by the same human-readable name agents register
// under (spec.md §3: Neighbor is {remoteNodeLogicalID, remoteChannelID}).
type Neighbor struct {
	SystemRef  string `bson:"systemRef" json:"systemRef"`
	ChannelRef string `bson:"channelRef" json:"channelRef"`
}

// AgentState is the most recent monitoring snapshot reported for an agent.
type AgentState struct {
	Timestamp time.Time `bson:"ts" json:"ts"`
	AgentID   string    `bson:"rid" json:"rid"`
	Value     string    `bson:"value" json:"value"`
}

// InSpec is the AgentState value the translator waits for before routing
// work to an agent.
const InSpec = "IN_SPEC"
