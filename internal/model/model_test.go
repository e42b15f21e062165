package model

import "testing"

func TestNormalizeCode(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want Code
	}{
		{"nil is OK", nil, OK},
		{"Code passthrough", Failed, Failed},
		{"bool true", true, OK},
		{"bool false", false, Failed},
		{"int zero", 0, OK},
		{"int nonzero", 7, Failed},
		{"string OK case-insensitive", "ok", OK},
		{"string FAILED mixed case", "FaIlEd", Failed},
		{"string QUEUED", "queued", Queued},
		{"string unrecognized", "bogus", Failed},
		{"unsupported type", 3.14, Failed},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := NormalizeCode(c.in); got != c.want {
				t.Errorf("NormalizeCode(%#v) = %v, want %v", c.in, got, c.want)
			}
		})
	}
}

func TestReqStatusTerminal(t *testing.T) {
	terminal := []ReqStatus{StatusCompleted, StatusFailed}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	nonTerminal := []ReqStatus{StatusCreated, StatusQueued, StatusRunning}
	for _, s := range nonTerminal {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestNodeCapabilities(t *testing.T) {
	cases := []struct {
		typ            string
		entangleCap    bool
		bsm            bool
		router         bool
	}{
		{"QNode", true, false, false},
		{"QRepeater", true, false, true},
		{"QRouter", true, false, true},
		{"QSwitch", true, false, false},
		{"BSMNode", false, true, false},
		{"OpticalSwitch", false, false, false},
	}
	for _, c := range cases {
		n := Node{Type: c.typ}
		if n.EntanglementCapable() != c.entangleCap {
			t.Errorf("%s: EntanglementCapable() = %v, want %v", c.typ, n.EntanglementCapable(), c.entangleCap)
		}
		if n.IsBSM() != c.bsm {
			t.Errorf("%s: IsBSM() = %v, want %v", c.typ, n.IsBSM(), c.bsm)
		}
		if n.IsRouter() != c.router {
			t.Errorf("%s: IsRouter() = %v, want %v", c.typ, n.IsRouter(), c.router)
		}
	}
}
