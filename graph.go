package flow

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// SeedTriggerID is the id of the trigger node every new graph starts with.
const SeedTriggerID NodeID = "trigger-1"

// IDAllocator hands out node ids for one graph.
type IDAllocator interface {
	// NextNodeID returns an id that has not been handed out before.
	NextNodeID() NodeID
	// Reserve marks an existing id as taken.
	Reserve(id NodeID)
}

// CounterIDs allocates "<prefix><n>" ids from a monotonic counter starting
// at zero. Each graph owns its own counter.
type CounterIDs struct {
	Prefix string
	next   int
}

// NewCounterIDs returns a counter allocator producing dndnode_0, dndnode_1, ...
func NewCounterIDs() *CounterIDs {
	return &CounterIDs{Prefix: "dndnode_"}
}

func (c *CounterIDs) NextNodeID() NodeID {
	id := NodeID(c.Prefix + strconv.Itoa(c.next))
	c.next++
	return id
}

// Reserve advances the counter past id when id has the counter's shape.
func (c *CounterIDs) Reserve(id NodeID) {
	s, ok := strings.CutPrefix(string(id), c.Prefix)
	if !ok {
		return
	}
	if n, err := strconv.Atoi(s); err == nil && n >= c.next {
		c.next = n + 1
	}
}

// UUIDs allocates random UUID node ids.
type UUIDs struct{}

func (UUIDs) NextNodeID() NodeID { return NodeID(uuid.NewString()) }
func (UUIDs) Reserve(NodeID)     {}

// Option configures a GraphStore.
type Option func(*GraphStore)

// WithIDAllocator replaces the default counter allocator.
func WithIDAllocator(a IDAllocator) Option {
	return func(s *GraphStore) {
		s.ids = a
	}
}

// GraphStore is the mutable in-memory graph of one editing session.
// All mutations keep the graph free of dangling edges.
type GraphStore struct {
	mu     sync.RWMutex
	name   string
	active bool
	nodes  []Node
	edges  []Edge
	ids    IDAllocator
}

// NewGraphStore creates a graph seeded with a single trigger node.
func NewGraphStore(name string, opts ...Option) *GraphStore {
	s := newGraphStore(opts)
	s.name = name
	s.active = true
	s.nodes = append(s.nodes, Node{
		ID:       SeedTriggerID,
		Kind:     KindTrigger,
		Position: Position{X: 250, Y: 150},
		Payload:  TriggerPayload{Keyword: String("start")},
	})
	s.ids.Reserve(SeedTriggerID)
	return s
}

// LoadGraphStore creates a store holding a copy of g. Every existing node
// id is reserved so that new ids never collide with it.
func LoadGraphStore(g Graph, opts ...Option) (*GraphStore, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	g = g.clone()
	s := newGraphStore(opts)
	s.name = g.Name
	s.active = g.IsActive
	s.nodes = g.Nodes
	s.edges = g.Edges
	for _, n := range s.nodes {
		s.ids.Reserve(n.ID)
	}
	return s, nil
}

func newGraphStore(opts []Option) *GraphStore {
	s := &GraphStore{}
	for _, opt := range opts {
		opt(s)
	}
	if s.ids == nil {
		s.ids = NewCounterIDs()
	}
	return s
}

// ── Metadata ──────────────────────────────────────────────────────────

func (s *GraphStore) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *GraphStore) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *GraphStore) IsActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *GraphStore) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

// ── Nodes ─────────────────────────────────────────────────────────────

// AddNode inserts a node of kind at pos with the kind's default payload
// and returns its fresh id. An unknown kind panics.
func (s *GraphStore) AddNode(kind NodeKind, pos Position) NodeID {
	d := Describe(kind)

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.ids.NextNodeID()
	for s.indexOfNode(id) >= 0 {
		id = s.ids.NextNodeID()
	}
	s.nodes = append(s.nodes, Node{ID: id, Kind: kind, Position: pos, Payload: d.Default})
	return id
}

// Node returns a copy of the node with the given id.
func (s *GraphStore) Node(id NodeID) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOfNode(id)
	if i < 0 {
		return Node{}, false
	}
	n := s.nodes[i]
	n.Payload = clonePayload(n.Payload)
	return n, true
}

// MoveNode sets the canvas position of a node.
func (s *GraphStore) MoveNode(id NodeID, pos Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOfNode(id)
	if i < 0 {
		return ErrNodeNotFound
	}
	s.nodes[i].Position = pos
	return nil
}

// RemoveNode deletes a node and every edge touching it.
// Removing an absent id is a no-op. The trigger node cannot be removed.
func (s *GraphStore) RemoveNode(id NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOfNode(id)
	if i < 0 {
		return nil
	}
	if s.nodes[i].Kind == KindTrigger && s.countKind(KindTrigger) == 1 {
		return ErrTriggerRequired
	}
	s.nodes = slices.Delete(s.nodes, i, i+1)
	s.edges = slices.DeleteFunc(s.edges, func(e Edge) bool {
		return e.Source == id || e.Target == id
	})
	return nil
}

// UpdateNodePayload replaces the payload of a node. The payload is not
// checked against the node's kind here.
func (s *GraphStore) UpdateNodePayload(id NodeID, p Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOfNode(id)
	if i < 0 {
		return ErrNodeNotFound
	}
	s.nodes[i].Payload = clonePayload(p)
	return nil
}

// ── Edges ─────────────────────────────────────────────────────────────

// Connect records an edge from an output port of source to an input port
// of target. An output port carries at most one edge: connecting it again
// replaces the previous edge. Edges may loop back to earlier nodes; the
// runtime stops a walk at the first node it revisits. Rejections wrap
// ErrInvalidConnection and leave the graph unchanged.
func (s *GraphStore) Connect(source NodeID, sourcePort PortID, target NodeID, targetPort PortID) (EdgeID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	si := s.indexOfNode(source)
	if si < 0 {
		return "", fmt.Errorf("%w: %w: source %q", ErrInvalidConnection, ErrNodeNotFound, source)
	}
	ti := s.indexOfNode(target)
	if ti < 0 {
		return "", fmt.Errorf("%w: %w: target %q", ErrInvalidConnection, ErrNodeNotFound, target)
	}
	src, tgt := s.nodes[si], s.nodes[ti]
	if !Describe(src.Kind).HasOutput(sourcePort) {
		return "", fmt.Errorf("%w: %w: %s has no output %q", ErrInvalidConnection, ErrInvalidPort, src.Kind, sourcePort)
	}
	if !Describe(tgt.Kind).HasInput(targetPort) {
		return "", fmt.Errorf("%w: %w: %s has no input %q", ErrInvalidConnection, ErrInvalidPort, tgt.Kind, targetPort)
	}

	existing := slices.IndexFunc(s.edges, func(e Edge) bool {
		return e.Source == source && e.SourcePort == sourcePort
	})
	if existing >= 0 {
		e := s.edges[existing]
		if e.Target == target && e.TargetPort == targetPort {
			return e.ID, nil
		}
		s.edges = slices.Delete(s.edges, existing, existing+1)
	}

	e := Edge{
		ID:         s.edgeID(source, sourcePort, target, targetPort),
		Source:     source,
		SourcePort: sourcePort,
		Target:     target,
		TargetPort: targetPort,
	}
	s.edges = append(s.edges, e)
	return e.ID, nil
}

// Disconnect removes one edge. Removing an absent id is a no-op.
func (s *GraphStore) Disconnect(id EdgeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges = slices.DeleteFunc(s.edges, func(e Edge) bool { return e.ID == id })
}

// Edge returns the edge with the given id.
func (s *GraphStore) Edge(id EdgeID) (Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.edges {
		if e.ID == id {
			return e, true
		}
	}
	return Edge{}, false
}

// Snapshot returns a deep copy of the current graph.
func (s *GraphStore) Snapshot() Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Graph{
		Name:     s.name,
		IsActive: s.active,
		Nodes:    s.nodes,
		Edges:    s.edges,
	}.clone()
}

func (s *GraphStore) indexOfNode(id NodeID) int {
	return slices.IndexFunc(s.nodes, func(n Node) bool { return n.ID == id })
}

func (s *GraphStore) countKind(kind NodeKind) int {
	c := 0
	for _, n := range s.nodes {
		if n.Kind == kind {
			c++
		}
	}
	return c
}

// edgeID builds an id in the xy-edge__<source><port>-<target><port> shape,
// suffixed when an unrelated edge already holds it.
func (s *GraphStore) edgeID(source NodeID, sourcePort PortID, target NodeID, targetPort PortID) EdgeID {
	base := fmt.Sprintf("xy-edge__%s%s-%s%s", source, sourcePort, target, targetPort)
	id := EdgeID(base)
	for n := 1; s.hasEdge(id); n++ {
		id = EdgeID(base + "_" + strconv.Itoa(n))
	}
	return id
}

func (s *GraphStore) hasEdge(id EdgeID) bool {
	return slices.ContainsFunc(s.edges, func(e Edge) bool { return e.ID == id })
}
