package flow

import (
	"fmt"
	"slices"
)

// NodeDescriptor describes the port topology and default payload of a kind.
type NodeDescriptor struct {
	Kind    NodeKind
	Label   string
	Inputs  int
	Outputs []PortID
	Default Payload
}

// HasOutput reports whether p is an output port of the kind.
func (d NodeDescriptor) HasOutput(p PortID) bool {
	return slices.Contains(d.Outputs, p)
}

// HasInput reports whether p is an input port of the kind.
// Every kind with inputs has exactly the default one.
func (d NodeDescriptor) HasInput(p PortID) bool {
	return d.Inputs > 0 && p == DefaultPort
}

var kinds = []NodeKind{KindTrigger, KindSendMessage, KindAIStep, KindDelay, KindCondition}

var registry = map[NodeKind]NodeDescriptor{
	KindTrigger: {
		Kind:    KindTrigger,
		Label:   "Trigger",
		Inputs:  0,
		Outputs: []PortID{DefaultPort},
		Default: TriggerPayload{},
	},
	KindSendMessage: {
		Kind:    KindSendMessage,
		Label:   "Send Message",
		Inputs:  1,
		Outputs: []PortID{DefaultPort},
		Default: MessagePayload{},
	},
	KindAIStep: {
		Kind:    KindAIStep,
		Label:   "AI Step",
		Inputs:  1,
		Outputs: []PortID{DefaultPort},
		Default: AIStepPayload{},
	},
	KindDelay: {
		Kind:    KindDelay,
		Label:   "Smart Delay",
		Inputs:  1,
		Outputs: []PortID{DefaultPort},
		Default: DelayPayload{Amount: 1, Unit: UnitMinutes},
	},
	KindCondition: {
		Kind:    KindCondition,
		Label:   "Condition",
		Inputs:  1,
		Outputs: []PortID{PortTrue, PortFalse},
		Default: ConditionPayload{},
	},
}

// Describe returns the descriptor of kind. An unknown kind is a programming
// error and panics; use ParseKind for untrusted input.
func Describe(kind NodeKind) NodeDescriptor {
	d, ok := lookup(kind)
	if !ok {
		panic(fmt.Sprintf("flow: describe %q: %v", kind, ErrUnknownNodeKind))
	}
	return d
}

// ParseKind validates s as a node kind tag.
func ParseKind(s string) (NodeKind, error) {
	k := NodeKind(s)
	if _, ok := registry[k]; !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownNodeKind, s)
	}
	return k, nil
}

// Kinds returns every node kind in palette order.
func Kinds() []NodeKind {
	return slices.Clone(kinds)
}

func lookup(kind NodeKind) (NodeDescriptor, bool) {
	d, ok := registry[kind]
	if !ok {
		return NodeDescriptor{}, false
	}
	d.Outputs = slices.Clone(d.Outputs)
	d.Default = clonePayload(d.Default)
	return d, true
}
