package flow

import "fmt"

// Validate checks the structural invariants a runtime relies on when it
// walks the graph from its trigger:
//   - node and edge ids are non-empty and unique
//   - every node has a known kind and a payload of that kind
//   - there is exactly one trigger node
//   - every edge joins existing nodes through ports their kinds declare
//   - each output port has at most one outgoing edge
//
// Loops are allowed.
//
// The first violation is returned as an *IntegrityError.
func (g Graph) Validate() error {
	nodes := make(map[NodeID]Node, len(g.Nodes))
	trigger := NodeID("")

	for _, n := range g.Nodes {
		if n.ID == "" {
			return &IntegrityError{Err: fmt.Errorf("empty node id")}
		}
		if _, dup := nodes[n.ID]; dup {
			return &IntegrityError{NodeID: n.ID, Err: fmt.Errorf("duplicate node id")}
		}
		if _, ok := lookup(n.Kind); !ok {
			return &IntegrityError{NodeID: n.ID, Err: fmt.Errorf("%w %q", ErrUnknownNodeKind, n.Kind)}
		}
		if n.Payload == nil {
			return &IntegrityError{NodeID: n.ID, Err: fmt.Errorf("%w: missing payload", ErrInvalidPayload)}
		}
		if n.Payload.Kind() != n.Kind {
			return &IntegrityError{NodeID: n.ID, Err: fmt.Errorf("%w: %s payload on %s node", ErrInvalidPayload, n.Payload.Kind(), n.Kind)}
		}
		if d, ok := n.Payload.(DelayPayload); ok {
			if _, err := ParseDelayUnit(string(d.Unit)); err != nil {
				return &IntegrityError{NodeID: n.ID, Err: err}
			}
		}
		if n.Kind == KindTrigger {
			if trigger != "" {
				return &IntegrityError{NodeID: n.ID, Err: ErrDuplicateTrigger}
			}
			trigger = n.ID
		}
		nodes[n.ID] = n
	}
	if trigger == "" {
		return &IntegrityError{Err: ErrTriggerRequired}
	}

	type portKey struct {
		node NodeID
		port PortID
	}
	edgeIDs := make(map[EdgeID]bool, len(g.Edges))
	usedPorts := make(map[portKey]EdgeID, len(g.Edges))

	for _, e := range g.Edges {
		if e.ID == "" {
			return &IntegrityError{Err: fmt.Errorf("empty edge id")}
		}
		if edgeIDs[e.ID] {
			return &IntegrityError{EdgeID: e.ID, Err: fmt.Errorf("duplicate edge id")}
		}
		edgeIDs[e.ID] = true

		src, ok := nodes[e.Source]
		if !ok {
			return &IntegrityError{EdgeID: e.ID, Err: fmt.Errorf("%w: source %q", ErrDanglingEdge, e.Source)}
		}
		tgt, ok := nodes[e.Target]
		if !ok {
			return &IntegrityError{EdgeID: e.ID, Err: fmt.Errorf("%w: target %q", ErrDanglingEdge, e.Target)}
		}
		if !Describe(src.Kind).HasOutput(e.SourcePort) {
			return &IntegrityError{EdgeID: e.ID, Err: fmt.Errorf("%w: %s has no output %q", ErrInvalidPort, src.Kind, e.SourcePort)}
		}
		if !Describe(tgt.Kind).HasInput(e.TargetPort) {
			return &IntegrityError{EdgeID: e.ID, Err: fmt.Errorf("%w: %s has no input %q", ErrInvalidPort, tgt.Kind, e.TargetPort)}
		}
		k := portKey{e.Source, e.SourcePort}
		if other, ok := usedPorts[k]; ok {
			return &IntegrityError{EdgeID: e.ID, Err: fmt.Errorf("%w: shared with edge %q", ErrPortInUse, other)}
		}
		usedPorts[k] = e.ID
	}

	return nil
}
