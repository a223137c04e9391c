package editor

import (
	"fmt"
	"math"

	"github.com/meikuraledutech/flow"
)

// FieldType is the input widget a payload field is edited with.
type FieldType int

const (
	FieldText         FieldType = iota // string
	FieldOptionalText                  // string or nil
	FieldInt                           // int
	FieldChoice                        // one of Choices
)

// Field describes one editable payload field.
type Field struct {
	Name    string
	Label   string
	Type    FieldType
	Choices []string
}

var fieldsByKind = map[flow.NodeKind][]Field{
	flow.KindTrigger: {
		{Name: "keyword", Label: "Keyword", Type: FieldOptionalText},
	},
	flow.KindSendMessage: {
		{Name: "text", Label: "Message", Type: FieldText},
	},
	flow.KindAIStep: {
		{Name: "prompt", Label: "Custom context", Type: FieldOptionalText},
	},
	flow.KindDelay: {
		{Name: "amount", Label: "Amount", Type: FieldInt},
		{Name: "unit", Label: "Unit", Type: FieldChoice, Choices: []string{
			string(flow.UnitMinutes), string(flow.UnitHours), string(flow.UnitDays),
		}},
	},
	flow.KindCondition: {
		{Name: "expression", Label: "Condition", Type: FieldText},
	},
}

// Inspector binds the selected node's payload to a property form. Every
// Set writes straight through to the graph, so the graph is always
// current and saving only serializes it.
type Inspector struct {
	graph  *flow.GraphStore
	id     flow.NodeID
	kind   flow.NodeKind
	closed bool
}

func (i *Inspector) NodeID() flow.NodeID { return i.id }
func (i *Inspector) Kind() flow.NodeKind { return i.kind }
func (i *Inspector) Closed() bool        { return i.closed }

func (i *Inspector) close() { i.closed = true }

// Fields lists the editable fields of the node's kind.
func (i *Inspector) Fields() []Field {
	out := make([]Field, len(fieldsByKind[i.kind]))
	copy(out, fieldsByKind[i.kind])
	return out
}

// Payload returns the node's current payload.
func (i *Inspector) Payload() (flow.Payload, error) {
	if i.closed {
		return nil, ErrInspectorClosed
	}
	n, ok := i.graph.Node(i.id)
	if !ok {
		return nil, flow.ErrNodeNotFound
	}
	return n.Payload, nil
}

// Value returns the current value of one field: string for text and
// choice fields, *string for optional text, int for numbers.
func (i *Inspector) Value(name string) (any, error) {
	p, err := i.Payload()
	if err != nil {
		return nil, err
	}
	switch p := p.(type) {
	case flow.TriggerPayload:
		if name == "keyword" {
			return p.Keyword, nil
		}
	case flow.MessagePayload:
		if name == "text" {
			return p.Text, nil
		}
	case flow.AIStepPayload:
		if name == "prompt" {
			return p.Prompt, nil
		}
	case flow.DelayPayload:
		switch name {
		case "amount":
			return p.Amount, nil
		case "unit":
			return string(p.Unit), nil
		}
	case flow.ConditionPayload:
		if name == "expression" {
			return p.Expression, nil
		}
	}
	return nil, fmt.Errorf("%w %q for %s", ErrUnknownField, name, i.kind)
}

// Set changes one field and writes the payload back to the graph.
func (i *Inspector) Set(name string, value any) error {
	p, err := i.Payload()
	if err != nil {
		return err
	}

	var next flow.Payload
	switch p := p.(type) {
	case flow.TriggerPayload:
		if name != "keyword" {
			break
		}
		if p.Keyword, err = optionalText(value); err == nil {
			next = p
		}
	case flow.MessagePayload:
		if name != "text" {
			break
		}
		if p.Text, err = text(value); err == nil {
			next = p
		}
	case flow.AIStepPayload:
		if name != "prompt" {
			break
		}
		if p.Prompt, err = optionalText(value); err == nil {
			next = p
		}
	case flow.DelayPayload:
		switch name {
		case "amount":
			if p.Amount, err = integer(value); err == nil {
				next = p
			}
		case "unit":
			var s string
			if s, err = text(value); err == nil {
				if p.Unit, err = flow.ParseDelayUnit(s); err == nil {
					next = p
				}
			}
		}
	case flow.ConditionPayload:
		if name != "expression" {
			break
		}
		if p.Expression, err = text(value); err == nil {
			next = p
		}
	}

	if err != nil {
		return fmt.Errorf("editor: field %q: %w", name, err)
	}
	if next == nil {
		return fmt.Errorf("%w %q for %s", ErrUnknownField, name, i.kind)
	}
	return i.graph.UpdateNodePayload(i.id, next)
}

// Replace writes a whole payload. It must match the node's kind.
func (i *Inspector) Replace(p flow.Payload) error {
	if i.closed {
		return ErrInspectorClosed
	}
	if p == nil || p.Kind() != i.kind {
		return fmt.Errorf("%w: %s node", ErrFieldType, i.kind)
	}
	return i.graph.UpdateNodePayload(i.id, p)
}

func text(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case flow.DelayUnit:
		return string(v), nil
	}
	return "", fmt.Errorf("%w: want string, got %T", ErrFieldType, v)
}

func optionalText(v any) (*string, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case string:
		return flow.String(v), nil
	case *string:
		if v == nil {
			return nil, nil
		}
		return flow.String(*v), nil
	}
	return nil, fmt.Errorf("%w: want string or nil, got %T", ErrFieldType, v)
}

func integer(v any) (int, error) {
	switch v := v.(type) {
	case int:
		return v, nil
	case int64:
		if v >= math.MinInt && v <= math.MaxInt {
			return int(v), nil
		}
	case float64:
		// -math.MinInt is the first float64 past MaxInt; MaxInt itself rounds up.
		if v == math.Trunc(v) && v >= math.MinInt && v < -math.MinInt {
			return int(v), nil
		}
	}
	return 0, fmt.Errorf("%w: want integer, got %T", ErrFieldType, v)
}
