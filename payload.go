package flow

import (
	"fmt"
	"time"
)

// Payload is the kind-specific data carried by a node.
// The set of implementations is closed: TriggerPayload, MessagePayload,
// AIStepPayload, DelayPayload and ConditionPayload.
type Payload interface {
	Kind() NodeKind
	payload()
}

// TriggerPayload starts a flow. A nil Keyword matches every inbound message.
type TriggerPayload struct {
	Keyword *string `json:"keyword"`
}

// MessagePayload sends Text to the contact.
type MessagePayload struct {
	Text string `json:"text"`
}

// AIStepPayload hands the conversation to the AI agent. A nil Prompt uses
// the default agent persona.
type AIStepPayload struct {
	Prompt *string `json:"prompt"`
}

// DelayPayload suspends the flow for Amount units.
type DelayPayload struct {
	Amount int       `json:"amount"`
	Unit   DelayUnit `json:"unit"`
}

// ConditionPayload branches on Expression through the "true" and "false"
// output ports.
type ConditionPayload struct {
	Expression string `json:"expression"`
}

func (TriggerPayload) Kind() NodeKind   { return KindTrigger }
func (MessagePayload) Kind() NodeKind   { return KindSendMessage }
func (AIStepPayload) Kind() NodeKind    { return KindAIStep }
func (DelayPayload) Kind() NodeKind     { return KindDelay }
func (ConditionPayload) Kind() NodeKind { return KindCondition }

func (TriggerPayload) payload()   {}
func (MessagePayload) payload()   {}
func (AIStepPayload) payload()    {}
func (DelayPayload) payload()     {}
func (ConditionPayload) payload() {}

// DelayUnit is the time unit of a delay node.
type DelayUnit string

const (
	UnitMinutes DelayUnit = "minutes"
	UnitHours   DelayUnit = "hours"
	UnitDays    DelayUnit = "days"
)

// ParseDelayUnit validates s as a delay unit.
func ParseDelayUnit(s string) (DelayUnit, error) {
	switch u := DelayUnit(s); u {
	case UnitMinutes, UnitHours, UnitDays:
		return u, nil
	}
	return "", fmt.Errorf("%w: unknown delay unit %q", ErrInvalidPayload, s)
}

// Duration converts the delay to a time.Duration.
func (p DelayPayload) Duration() time.Duration {
	n := time.Duration(p.Amount)
	switch p.Unit {
	case UnitHours:
		return n * time.Hour
	case UnitDays:
		return n * 24 * time.Hour
	default:
		return n * time.Minute
	}
}

// String returns a pointer to s, for the optional payload fields.
func String(s string) *string { return &s }

func clonePayload(p Payload) Payload {
	switch v := p.(type) {
	case TriggerPayload:
		if v.Keyword != nil {
			v.Keyword = String(*v.Keyword)
		}
		return v
	case AIStepPayload:
		if v.Prompt != nil {
			v.Prompt = String(*v.Prompt)
		}
		return v
	default:
		return p
	}
}
