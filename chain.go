package mrchain

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// node is one link in a pipeline chain. Nodes form a singly linked list from
// the tip back to the root; a node is never mutated once a Chain referencing
// it has been handed to a caller. Chain operations either append a new node
// (stages, inputs) or clone the tip (modifiers, output overrides).
type node struct {
	prev  *node
	stage *StageSpec

	// Modifier queues are prepended on append, so the head of each slice is
	// the most recently added modifier. The executor applies them head-first.
	confMods []ConfigModifier
	jobMods  []JobModifier

	inputs    []IODescriptor
	output    IODescriptor
	outputSet bool

	// conf is only non-nil on the root node. Other nodes resolve their
	// configuration by walking up the chain.
	conf *Config
}

// clone makes a shallow copy of the node. Modifier slices are shared with the
// original; callers that extend them must replace the slice, not append to it.
func (n *node) clone() *node {
	c := *n
	return &c
}

func (n *node) resolveConfig() (*Config, error) {
	if n.conf != nil {
		return n.conf, nil
	}
	if n.prev == nil {
		return nil, ErrNoConfig
	}
	return n.prev.resolveConfig()
}

// stageCount reports the number of stage-carrying nodes from this node back
// to the root.
func (n *node) stageCount() int {
	count := 0
	for cur := n; cur != nil; cur = cur.prev {
		if cur.stage != nil {
			count++
		}
	}
	return count
}

// jobInputs returns the locations a successor stage should read from, along
// with their format. A node with no explicit inputs falls back to its own
// output location (by default a private scratch file). All locations share
// the format of the first declared input; mixed-format multi-input is not
// supported.
func (n *node) jobInputs() ([]string, Format) {
	if len(n.inputs) == 0 {
		return []string{n.output.Location}, n.output.Format
	}

	format := n.inputs[0].Format
	locations := make([]string, len(n.inputs))
	for i, in := range n.inputs {
		locations[i] = in.Location
		if in.Format != format {
			log.Warnf("Input %s declares format %q; using %q for all inputs", in.Location, in.Format, format)
		}
	}
	return locations, format
}

// Chain is the tip of a pipeline under construction. The type parameters K
// and V declare the key/value schema of the data stream at the tip; they have
// no runtime representation, but make schema-incompatible stage composition a
// compile error.
//
// Chain values are cheap handles and safe to share: every operation returns a
// new Chain, leaving the receiver's chain untouched.
type Chain[K, V any] struct {
	tip *node
}

// Pipeline is the untyped view of a Chain accepted by an Executor.
type Pipeline interface {
	chainTip() *node
}

func (c Chain[K, V]) chainTip() *node { return c.tip }

// New creates a pipeline root that owns the given configuration overlay. The
// type parameters declare the schema of the root's data stream. A nil conf is
// replaced by NewConfig().
func New[K, V any](conf *Config) Chain[K, V] {
	if conf == nil {
		conf = NewConfig()
	}
	return Chain[K, V]{tip: &node{
		conf:   conf,
		output: ScratchFile(),
	}}
}

// Source creates a pipeline root reading from the given locations. It is the
// usual way to start a chain:
//
//	pipe := mrchain.Source[string, string](conf, mrchain.TextFile("input.txt"))
func Source[K, V any](conf *Config, in ...IODescriptor) Chain[K, V] {
	return New[K, V](conf).ReadFrom(in...)
}

// Then appends a processing stage to the chain. The stage's declared input
// schema must match the chain's schema at the tip; the returned chain carries
// the stage's output schema. Then is a free function rather than a method
// because Go methods cannot introduce type parameters.
func Then[K1, V1, K2, V2 any](c Chain[K1, V1], s Stage[K1, V1, K2, V2]) Chain[K2, V2] {
	return Chain[K2, V2]{tip: &node{
		prev:   c.tip,
		stage:  s.spec,
		output: ScratchFile(),
	}}
}

// WithConf queues a deferred configuration modifier. The modifier decorates
// the tip and is applied to the resolved configuration of the next stage
// appended after it, most recently added first. The chain's stage count is
// unchanged.
func (c Chain[K, V]) WithConf(m ConfigModifier) Chain[K, V] {
	t := c.tip.clone()
	t.confMods = append([]ConfigModifier{m}, c.tip.confMods...)
	return Chain[K, V]{tip: t}
}

// WithJob queues a deferred job modifier, applied to the concrete job object
// of the next stage appended after it. Like WithConf, it decorates the tip
// without growing the chain.
func (c Chain[K, V]) WithJob(m JobModifier) Chain[K, V] {
	t := c.tip.clone()
	t.jobMods = append([]JobModifier{m}, c.tip.jobMods...)
	return Chain[K, V]{tip: t}
}

// ReadFrom appends an input node binding the given locations. The next stage
// appended after it reads from these locations instead of the predecessor's
// output.
func (c Chain[K, V]) ReadFrom(in ...IODescriptor) Chain[K, V] {
	return Chain[K, V]{tip: &node{
		prev:   c.tip,
		inputs: in,
		output: ScratchFile(),
	}}
}

// WriteTo overrides the tip's output location, replacing the private scratch
// default. The tip is cloned rather than mutated, so earlier handles to the
// chain are unaffected.
func (c Chain[K, V]) WriteTo(out IODescriptor) Chain[K, V] {
	t := c.tip.clone()
	if t.outputSet {
		log.Warnf("Output already bound to %s; replacing with %s", t.output.Location, out.Location)
	}
	t.output = out
	t.outputSet = true
	return Chain[K, V]{tip: t}
}

// String renders the chain from root to tip, one element per arrow.
func (c Chain[K, V]) String() string {
	var parts []string
	for n := c.tip; n != nil; n = n.prev {
		switch {
		case n.stage != nil:
			parts = append(parts, n.stage.String())
		case len(n.inputs) > 0:
			locs := make([]string, len(n.inputs))
			for i, in := range n.inputs {
				locs[i] = in.Location
			}
			parts = append(parts, fmt.Sprintf("read(%s)", strings.Join(locs, ",")))
		case n.conf != nil:
			parts = append(parts, "root")
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " --> ")
}
