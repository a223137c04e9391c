package flow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// FlowData is the persisted representation of a graph, sent as the
// flow_data field of an automation record.
type FlowData struct {
	Nodes []NodeData `json:"nodes"`
	Edges []EdgeData `json:"edges"`
}

// NodeData is one entry of FlowData.Nodes. Data holds the payload fields.
type NodeData struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Position Position        `json:"position"`
	Data     json.RawMessage `json:"data"`
}

// EdgeData is one entry of FlowData.Edges. The handles are omitted for the
// default port.
type EdgeData struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// ParseFlowData decodes JSON flow data.
func ParseFlowData(b []byte) (FlowData, error) {
	var fd FlowData
	if err := json.Unmarshal(b, &fd); err != nil {
		return FlowData{}, &DeserializationError{Err: fmt.Errorf("decode flow data: %w", err)}
	}
	return fd, nil
}

// Serialize converts g to flow data. A graph that fails Validate is
// rejected rather than emitted in a shape a runtime could not walk.
func Serialize(g Graph) (FlowData, error) {
	if err := g.Validate(); err != nil {
		return FlowData{}, err
	}

	fd := FlowData{
		Nodes: make([]NodeData, 0, len(g.Nodes)),
		Edges: make([]EdgeData, 0, len(g.Edges)),
	}
	for _, n := range g.Nodes {
		data, err := json.Marshal(n.Payload)
		if err != nil {
			return FlowData{}, &IntegrityError{NodeID: n.ID, Err: fmt.Errorf("%w: %w", ErrInvalidPayload, err)}
		}
		fd.Nodes = append(fd.Nodes, NodeData{
			ID:       string(n.ID),
			Type:     string(n.Kind),
			Position: n.Position,
			Data:     data,
		})
	}
	for _, e := range g.Edges {
		fd.Edges = append(fd.Edges, EdgeData{
			ID:           string(e.ID),
			Source:       string(e.Source),
			Target:       string(e.Target),
			SourceHandle: string(e.SourcePort),
			TargetHandle: string(e.TargetPort),
		})
	}
	return fd, nil
}

// Deserialize is the strict inverse of Serialize. Unknown node types,
// payloads missing required fields, and edges that break the graph
// invariants all fail with a *DeserializationError naming the element.
func Deserialize(fd FlowData) (Graph, error) {
	g := Graph{
		Nodes: make([]Node, 0, len(fd.Nodes)),
		Edges: make([]Edge, 0, len(fd.Edges)),
	}
	for _, nd := range fd.Nodes {
		id := NodeID(nd.ID)
		kind, err := ParseKind(nd.Type)
		if err != nil {
			return Graph{}, &DeserializationError{NodeID: id, Err: err}
		}
		p, err := decodePayload(kind, nd.Data)
		if err != nil {
			return Graph{}, &DeserializationError{NodeID: id, Err: err}
		}
		g.Nodes = append(g.Nodes, Node{ID: id, Kind: kind, Position: nd.Position, Payload: p})
	}
	for _, ed := range fd.Edges {
		g.Edges = append(g.Edges, Edge{
			ID:         EdgeID(ed.ID),
			Source:     NodeID(ed.Source),
			SourcePort: PortID(ed.SourceHandle),
			Target:     NodeID(ed.Target),
			TargetPort: PortID(ed.TargetHandle),
		})
	}

	if err := g.Validate(); err != nil {
		var ie *IntegrityError
		if errors.As(err, &ie) {
			return Graph{}, &DeserializationError{NodeID: ie.NodeID, EdgeID: ie.EdgeID, Err: ie.Err}
		}
		return Graph{}, &DeserializationError{Err: err}
	}
	return g, nil
}

// requiredFields lists the data keys each kind must carry. Trigger keyword
// and AI prompt are nullable and may be omitted.
var requiredFields = map[NodeKind][]string{
	KindTrigger:     nil,
	KindSendMessage: {"text"},
	KindAIStep:      nil,
	KindDelay:       {"amount", "unit"},
	KindCondition:   {"expression"},
}

func decodePayload(kind NodeKind, data json.RawMessage) (Payload, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		data = []byte("{}")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	for _, key := range requiredFields[kind] {
		v, ok := fields[key]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			return nil, fmt.Errorf("%w: %s requires %q", ErrInvalidPayload, kind, key)
		}
	}

	switch kind {
	case KindTrigger:
		return decodeAs[TriggerPayload](data)
	case KindSendMessage:
		return decodeAs[MessagePayload](data)
	case KindAIStep:
		return decodeAs[AIStepPayload](data)
	case KindDelay:
		p, err := decodeAs[DelayPayload](data)
		if err != nil {
			return nil, err
		}
		if _, err := ParseDelayUnit(string(p.(DelayPayload).Unit)); err != nil {
			return nil, err
		}
		return p, nil
	case KindCondition:
		return decodeAs[ConditionPayload](data)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownNodeKind, kind)
}

func decodeAs[P Payload](data []byte) (Payload, error) {
	var p P
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	return p, nil
}
