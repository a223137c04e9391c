package flow

import (
	"context"
	"errors"
)

var (
	ErrNodeNotFound       = errors.New("flow: node not found")
	ErrAutomationNotFound = errors.New("flow: automation not found")
	ErrUnknownNodeKind    = errors.New("flow: unknown node kind")
	ErrInvalidConnection  = errors.New("flow: invalid connection")
	ErrTriggerRequired    = errors.New("flow: graph must have a trigger node")
	ErrDuplicateTrigger   = errors.New("flow: graph has more than one trigger node")
	ErrDanglingEdge       = errors.New("flow: edge references a missing node")
	ErrInvalidPort        = errors.New("flow: invalid port")
	ErrPortInUse          = errors.New("flow: output port already connected")
	ErrInvalidPayload     = errors.New("flow: invalid payload")
)

// Store defines the contract for persisting automations. A save replaces
// the stored graph wholesale; there is no incremental patching of nodes or
// edges.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// SaveAutomation creates the automation when a.ID is empty, otherwise
	// replaces it. The flow data is validated before anything is written.
	SaveAutomation(ctx context.Context, a *Automation) (*Automation, error)
	GetAutomation(ctx context.Context, tenantID, id string) (*Automation, error)
	ListAutomations(ctx context.Context, tenantID string) ([]Automation, error)
	DeleteAutomation(ctx context.Context, tenantID, id string) error
	SetActive(ctx context.Context, tenantID, id string, active bool) error

	// MatchAutomations returns the tenant's automations whose trigger
	// fires on text (see Automation.MatchesMessage), newest first.
	MatchAutomations(ctx context.Context, tenantID, text string) ([]Automation, error)
}
