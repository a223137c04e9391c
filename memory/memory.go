// Package memory is an in-process flow.Store for tests and the example
// program.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meikuraledutech/flow"
)

// Store keeps automations in a map keyed by id.
type Store struct {
	mu    sync.RWMutex
	items map[string]flow.Automation
	now   func() time.Time
}

var _ flow.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{items: make(map[string]flow.Automation), now: time.Now}
}

// CreateSchema is a no-op.
func (s *Store) CreateSchema(ctx context.Context) error { return nil }

// DropSchema removes every automation.
func (s *Store) DropSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.items)
	return nil
}

// SaveAutomation inserts a when its ID is empty and replaces the stored
// record otherwise. The flow data is validated first.
func (s *Store) SaveAutomation(ctx context.Context, a *flow.Automation) (*flow.Automation, error) {
	rec := copyAutomation(a)
	if err := rec.Normalize(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
		rec.CreatedAt = s.now().UTC()
	} else {
		old, ok := s.items[rec.ID]
		if !ok || old.TenantID != rec.TenantID {
			return nil, flow.ErrAutomationNotFound
		}
		rec.CreatedAt = old.CreatedAt
	}
	s.items[rec.ID] = rec

	out := copyAutomation(&rec)
	return &out, nil
}

func (s *Store) GetAutomation(ctx context.Context, tenantID, id string) (*flow.Automation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.items[id]
	if !ok || a.TenantID != tenantID {
		return nil, flow.ErrAutomationNotFound
	}
	out := copyAutomation(&a)
	return &out, nil
}

// ListAutomations returns the tenant's automations, newest first.
func (s *Store) ListAutomations(ctx context.Context, tenantID string) ([]flow.Automation, error) {
	return s.collect(tenantID, func(*flow.Automation) bool { return true }), nil
}

// MatchAutomations returns the tenant's automations triggered by text,
// newest first.
func (s *Store) MatchAutomations(ctx context.Context, tenantID, text string) ([]flow.Automation, error) {
	return s.collect(tenantID, func(a *flow.Automation) bool { return a.MatchesMessage(text) }), nil
}

func (s *Store) collect(tenantID string, keep func(*flow.Automation) bool) []flow.Automation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []flow.Automation{}
	for _, a := range s.items {
		if a.TenantID != tenantID || !keep(&a) {
			continue
		}
		out = append(out, copyAutomation(&a))
	}
	slices.SortFunc(out, func(a, b flow.Automation) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func (s *Store) DeleteAutomation(ctx context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.items[id]
	if !ok || a.TenantID != tenantID {
		return flow.ErrAutomationNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Store) SetActive(ctx context.Context, tenantID, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.items[id]
	if !ok || a.TenantID != tenantID {
		return flow.ErrAutomationNotFound
	}
	a.IsActive = active
	s.items[id] = a
	return nil
}

// copyAutomation detaches the flow data slices and raw payloads from a.
func copyAutomation(a *flow.Automation) flow.Automation {
	out := *a
	out.FlowData = flow.FlowData{
		Nodes: make([]flow.NodeData, len(a.FlowData.Nodes)),
		Edges: slices.Clone(a.FlowData.Edges),
	}
	if out.FlowData.Edges == nil {
		out.FlowData.Edges = []flow.EdgeData{}
	}
	for i, n := range a.FlowData.Nodes {
		n.Data = slices.Clone(n.Data)
		out.FlowData.Nodes[i] = n
	}
	return out
}
