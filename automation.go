package flow

import (
	"strings"
	"time"
)

// Automation is the persisted record of one automation flow. TriggerType
// and TriggerKeyword mirror the trigger node for backends that match
// inbound messages without walking the graph.
type Automation struct {
	ID             string    `json:"id,omitempty"`
	TenantID       string    `json:"tenant_id,omitempty"`
	Name           string    `json:"name"`
	IsActive       bool      `json:"is_active"`
	TriggerType    string    `json:"trigger_type"`
	TriggerKeyword string    `json:"trigger_keyword"`
	FlowData       FlowData  `json:"flow_data"`
	CreatedAt      time.Time `json:"created_at,omitzero"`
}

// NewAutomation builds the record for g. The graph must pass Validate.
func NewAutomation(id string, g Graph) (*Automation, error) {
	fd, err := Serialize(g)
	if err != nil {
		return nil, err
	}
	m := g.Metadata()
	return &Automation{
		ID:             id,
		Name:           m.Name,
		IsActive:       m.IsActive,
		TriggerType:    m.TriggerType,
		TriggerKeyword: m.TriggerKeyword,
		FlowData:       fd,
	}, nil
}

// Graph deserializes the record's flow data and restores its name and
// active flag.
func (a *Automation) Graph() (Graph, error) {
	g, err := Deserialize(a.FlowData)
	if err != nil {
		return Graph{}, err
	}
	g.Name = a.Name
	g.IsActive = a.IsActive
	return g, nil
}

// Normalize validates the flow data and re-derives the trigger mirrors
// from the trigger node. Stores call it before writing.
func (a *Automation) Normalize() error {
	g, err := a.Graph()
	if err != nil {
		return err
	}
	m := g.Metadata()
	a.TriggerType = m.TriggerType
	a.TriggerKeyword = m.TriggerKeyword
	return nil
}

// MatchesMessage reports whether an inbound message starts this
// automation: it must be active with a non-empty keyword trigger, and the
// keyword must occur in text ignoring case.
func (a *Automation) MatchesMessage(text string) bool {
	if !a.IsActive || a.TriggerType != TriggerTypeKeyword || a.TriggerKeyword == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(a.TriggerKeyword))
}
