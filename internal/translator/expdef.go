// Package translator implements the Request Translator (C7): experiment
// definition loading, agent-to-role matching, agent readiness polling,
// timeslot allocation, and the submit/getResult/cancel RPC orchestration
// around a single experiment execution. Grounded on the original
// RequestTranslator (common/request_translator.py) and the built-in
// experiment definitions (plugins/protocols/agentExperiment/exp_defs.py),
// with Python's importlib module-loading replaced by YAML definition
// files (gopkg.in/yaml.v3) — the idiomatic Go way to express declarative
// configuration data without dynamic code loading.
package translator

import (
	"fmt"
	"math"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/quantnet/controller/internal/scheduler"
)

// Sequence is one timed phase of an experiment run on a single agent.
type Sequence struct {
	Name       string `yaml:"name"`
	ClassName  string `yaml:"className"`
	DurationUs int    `yaml:"durationUs"`
	Dependency string `yaml:"dependency,omitempty"`
}

// NumTimeslots rounds a Sequence's duration up to the number of
// SlotSize-width timeslots it needs.
func (s Sequence) NumTimeslots() int {
	return int(math.Ceil(float64(s.DurationUs) / 1000.0 / float64(scheduler.SlotSize)))
}

// AgentSequences is the list of Sequences a single role (node type) in
// an experiment runs, in order.
type AgentSequences struct {
	NodeType  string     `yaml:"nodeType"`
	Sequences []Sequence `yaml:"sequences"`
}

// SlotMaskWidth sums NumTimeslots() over every Sequence, yielding the total contiguous run length this role's agent
// must have free to run every sequence back-to-back.
func (a AgentSequences) SlotMaskWidth() int {
	width := 0
	for _, s := range a.Sequences {
		width += s.NumTimeslots()
	}
	return width
}

// Experiment is a built-in or user-supplied experiment definition: an
// ordered list of per-role AgentSequences.
type Experiment struct {
	Name           string           `yaml:"name"`
	AgentSequences []AgentSequences `yaml:"agentSequences"`
}

// Sequence returns the AgentSequences for agent position idx (0-based),
// matching the order agent ids are supplied in when starting a run.
func (e Experiment) Sequence(idx int) (AgentSequences, bool) {
	if idx < 0 || idx >= len(e.AgentSequences) {
		return AgentSequences{}, false
	}
	return e.AgentSequences[idx], true
}

// expDefFile is the top-level shape of a YAML experiment-definition file:
// a list of named Experiments, so one file can define several.
type expDefFile struct {
	Experiments []Experiment `yaml:"experiments"`
}

// Catalog holds every loaded experiment definition, keyed by name. mu
// guards defs so a fsnotify-driven Reload (internal/config.Watcher) can
// swap definitions in place while the translator is concurrently resolving
// requests against the previous set.
type Catalog struct {
	mu      sync.RWMutex
	builtin []byte
	defs    map[string]Experiment
}

// NewCatalog loads the built-in experiment definitions plus any override
// file at overridePath. An override experiment with the same name as a
// built-in replaces it and is noted (grounded on the original's
// load_exp_def "override" warning on name collision for non-builtin
// loads) — the caller is expected to log the returned collisions.
func NewCatalog(builtin []byte, overridePath string) (*Catalog, []string, error) {
	c := &Catalog{builtin: builtin}
	collisions, err := c.load(overridePath)
	if err != nil {
		return nil, nil, err
	}
	return c, collisions, nil
}

// Reload re-parses the built-in definitions and overridePath, replacing
// the Catalog's definitions atomically. It is the handler a Controller
// wires to an internal/config.Watcher event on the experiment-definition
// override path, so an operator can add or change experiment definitions
// without restarting the controller.
func (c *Catalog) Reload(overridePath string) ([]string, error) {
	return c.load(overridePath)
}

func (c *Catalog) load(overridePath string) ([]string, error) {
	defs := make(map[string]Experiment)
	var f expDefFile
	if err := yaml.Unmarshal(c.builtin, &f); err != nil {
		return nil, fmt.Errorf("translator: parse builtin experiment defs: %w", err)
	}
	for _, e := range f.Experiments {
		defs[e.Name] = e
	}

	var collisions []string
	if overridePath != "" {
		raw, err := os.ReadFile(overridePath)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("translator: read experiment def override %s: %w", overridePath, err)
		}
		if err == nil {
			var of expDefFile
			if err := yaml.Unmarshal(raw, &of); err != nil {
				return nil, fmt.Errorf("translator: parse experiment def override %s: %w", overridePath, err)
			}
			for _, e := range of.Experiments {
				if _, exists := defs[e.Name]; exists {
					collisions = append(collisions, e.Name)
				}
				defs[e.Name] = e
			}
		}
	}

	c.mu.Lock()
	c.defs = defs
	c.mu.Unlock()
	return collisions, nil
}

// Get resolves an experiment definition by name.
func (c *Catalog) Get(name string) (Experiment, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.defs[name]
	return e, ok
}
