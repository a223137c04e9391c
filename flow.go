// Package flow models the automation graph behind the visual builder: a
// single trigger node followed by message, AI step, delay and condition
// nodes joined by port-to-port edges.
package flow

// NodeKind identifies the type of a step in an automation flow.
// The string value is the "type" tag used in persisted flow data.
type NodeKind string

const (
	KindTrigger     NodeKind = "trigger"
	KindSendMessage NodeKind = "message"
	KindAIStep      NodeKind = "aiStep"
	KindDelay       NodeKind = "delay"
	KindCondition   NodeKind = "condition"
)

// NodeID identifies a node within one graph. Ids are never reused.
type NodeID string

// EdgeID identifies an edge within one graph.
type EdgeID string

// PortID names a connection point on a node.
type PortID string

const (
	// DefaultPort is the single unnamed input or output port of a node.
	DefaultPort PortID = ""
	PortTrue    PortID = "true"
	PortFalse   PortID = "false"
)

// Position is a point in canvas coordinates. It is cosmetic only.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one step of an automation flow.
type Node struct {
	ID       NodeID
	Kind     NodeKind
	Position Position
	Payload  Payload
}

// Edge is a directed connection from an output port of Source to an input
// port of Target.
type Edge struct {
	ID         EdgeID
	Source     NodeID
	SourcePort PortID
	Target     NodeID
	TargetPort PortID
}

// TriggerTypeKeyword is the only trigger type the builder produces.
const TriggerTypeKeyword = "keyword"

// Metadata is the graph-level summary stored next to the flow data.
// TriggerType and TriggerKeyword mirror the graph's trigger node.
type Metadata struct {
	Name           string
	IsActive       bool
	TriggerType    string
	TriggerKeyword string
}

// Graph is an immutable snapshot of one automation flow. Nodes and edges
// keep the order in which they were added.
type Graph struct {
	Name     string
	IsActive bool
	Nodes    []Node
	Edges    []Edge
}

// Node returns the node with the given id.
func (g Graph) Node(id NodeID) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Trigger returns the first trigger node of the graph.
func (g Graph) Trigger() (Node, bool) {
	for _, n := range g.Nodes {
		if n.Kind == KindTrigger {
			return n, true
		}
	}
	return Node{}, false
}

// Outgoing returns the edges leaving id, in insertion order.
func (g Graph) Outgoing(id NodeID) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

// Metadata derives the graph-level metadata. The trigger fields are read
// from the trigger node, so they can never drift from its payload.
func (g Graph) Metadata() Metadata {
	m := Metadata{
		Name:        g.Name,
		IsActive:    g.IsActive,
		TriggerType: TriggerTypeKeyword,
	}
	if t, ok := g.Trigger(); ok {
		if p, ok := t.Payload.(TriggerPayload); ok && p.Keyword != nil {
			m.TriggerKeyword = *p.Keyword
		}
	}
	return m
}

// clone returns a deep copy of g.
func (g Graph) clone() Graph {
	out := Graph{
		Name:     g.Name,
		IsActive: g.IsActive,
		Nodes:    make([]Node, len(g.Nodes)),
		Edges:    make([]Edge, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		n.Payload = clonePayload(n.Payload)
		out.Nodes[i] = n
	}
	copy(out.Edges, g.Edges)
	return out
}
