package flow

import (
	"fmt"
	"strings"
)

// IntegrityError reports a graph that violates a structural invariant.
// NodeID or EdgeID names the offending element.
type IntegrityError struct {
	NodeID NodeID
	EdgeID EdgeID
	Err    error
}

func (e *IntegrityError) Error() string {
	return "flow: " + describeElement(e.NodeID, e.EdgeID) + ": " + trimPrefix(e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// DeserializationError reports persisted flow data that cannot be turned
// into a graph. No partial graph is ever returned alongside it.
type DeserializationError struct {
	NodeID NodeID
	EdgeID EdgeID
	Err    error
}

func (e *DeserializationError) Error() string {
	return "flow: deserialize " + describeElement(e.NodeID, e.EdgeID) + ": " + trimPrefix(e.Err)
}

func (e *DeserializationError) Unwrap() error { return e.Err }

func describeElement(n NodeID, e EdgeID) string {
	switch {
	case e != "":
		return fmt.Sprintf("edge %q", e)
	case n != "":
		return fmt.Sprintf("node %q", n)
	default:
		return "graph"
	}
}

func trimPrefix(err error) string {
	if err == nil {
		return "<nil>"
	}
	return strings.TrimPrefix(err.Error(), "flow: ")
}
