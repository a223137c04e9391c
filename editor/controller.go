// Package editor turns builder gestures into graph mutations: palette drag
// and drop, port-to-port connections, node selection with a property
// inspector, and saving the whole graph through a Persister.
package editor

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/meikuraledutech/flow"
)

var (
	ErrSaveInFlight     = errors.New("editor: save already in progress")
	ErrInspectorClosed  = errors.New("editor: inspector is closed")
	ErrUnknownField     = errors.New("editor: unknown field")
	ErrFieldType        = errors.New("editor: wrong value type for field")
	ErrNoPersister      = errors.New("editor: no persister configured")
	ErrAutomationAbsent = errors.New("editor: automation not found")
)

// PersistenceError reports a failed save. The in-memory graph is left as it
// was, so the save can simply be retried.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return "editor: save automation: " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }

// Persister stores a whole automation. An empty ID creates a new record;
// the returned record carries the assigned ID.
type Persister interface {
	SaveAutomation(ctx context.Context, a *flow.Automation) (*flow.Automation, error)
}

// Loader fetches a persisted automation by id.
type Loader interface {
	LoadAutomation(ctx context.Context, id string) (*flow.Automation, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, id string) (*flow.Automation, error)

func (f LoaderFunc) LoadAutomation(ctx context.Context, id string) (*flow.Automation, error) {
	return f(ctx, id)
}

// GestureState is the state of a connect gesture.
type GestureState int

const (
	GestureIdle GestureState = iota
	GestureDragging
)

func (s GestureState) String() string {
	if s == GestureDragging {
		return "dragging"
	}
	return "idle"
}

// PortRef names one port of one node.
type PortRef struct {
	Node flow.NodeID
	Port flow.PortID
}

// PaletteItem is a node kind the user can drag onto the canvas.
type PaletteItem struct {
	Kind  flow.NodeKind
	Label string
}

type config struct {
	log       *slog.Logger
	persister Persister
	graphOpts []flow.Option
}

// Option configures a Controller.
type Option func(*config)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.log = l }
}

// WithPersister sets where Save writes the automation.
func WithPersister(p Persister) Option {
	return func(c *config) { c.persister = p }
}

// WithGraphOptions passes options to the underlying flow.GraphStore.
func WithGraphOptions(opts ...flow.Option) Option {
	return func(c *config) { c.graphOpts = append(c.graphOpts, opts...) }
}

// Controller mediates one editing session over one graph. Gestures are
// expected on a single goroutine; Save may run concurrently with them.
type Controller struct {
	graph     *flow.GraphStore
	persister Persister
	log       *slog.Logger

	drag     flow.NodeKind
	viewport Viewport
	origin   flow.Position

	gesture GestureState
	from    PortRef

	inspector *Inspector

	mu           sync.Mutex
	saving       bool
	automationID string
}

// New starts a session on a fresh graph seeded with a trigger node.
func New(name string, opts ...Option) *Controller {
	cfg := buildConfig(opts)
	return newController(flow.NewGraphStore(name, cfg.graphOpts...), cfg)
}

// Open starts a session on a persisted automation. Flow data that fails to
// deserialize is returned as an error and no session is created.
func Open(ctx context.Context, l Loader, id string, opts ...Option) (*Controller, error) {
	a, err := l.LoadAutomation(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrAutomationAbsent
	}
	g, err := a.Graph()
	if err != nil {
		return nil, err
	}
	cfg := buildConfig(opts)
	store, err := flow.LoadGraphStore(g, cfg.graphOpts...)
	if err != nil {
		return nil, err
	}
	c := newController(store, cfg)
	c.automationID = a.ID
	return c, nil
}

func buildConfig(opts []Option) config {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.log == nil {
		cfg.log = slog.Default()
	}
	return cfg
}

func newController(g *flow.GraphStore, cfg config) *Controller {
	return &Controller{
		graph:     g,
		persister: cfg.persister,
		log:       cfg.log,
		viewport:  DefaultViewport(),
	}
}

// Graph returns the graph being edited.
func (c *Controller) Graph() *flow.GraphStore { return c.graph }

// AutomationID returns the persisted id, empty until the first save.
func (c *Controller) AutomationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.automationID
}

func (c *Controller) SetName(name string)   { c.graph.SetName(name) }
func (c *Controller) SetActive(active bool) { c.graph.SetActive(active) }

// ── Palette drag and drop ─────────────────────────────────────────────

// Palette lists the kinds that can be dropped on the canvas. The trigger
// is never offered: each graph has exactly the one it was seeded with.
func (c *Controller) Palette() []PaletteItem {
	var items []PaletteItem
	for _, k := range flow.Kinds() {
		if k == flow.KindTrigger {
			continue
		}
		items = append(items, PaletteItem{Kind: k, Label: flow.Describe(k).Label})
	}
	return items
}

// DragStart records the kind token carried by a palette drag. Tokens that
// are not on the palette are ignored.
func (c *Controller) DragStart(token string) bool {
	k, err := flow.ParseKind(token)
	if err != nil || k == flow.KindTrigger {
		c.log.Debug("palette drag ignored", "token", token)
		c.drag = ""
		return false
	}
	c.drag = k
	return true
}

// DragCancel clears the drag context.
func (c *Controller) DragCancel() { c.drag = "" }

// Dragging returns the kind being dragged from the palette.
func (c *Controller) Dragging() (flow.NodeKind, bool) {
	return c.drag, c.drag != ""
}

// Drop places the dragged kind at the canvas point under screen and
// returns the new node id. Without a drag in progress nothing happens.
func (c *Controller) Drop(screen flow.Position) (flow.NodeID, bool) {
	k := c.drag
	c.drag = ""
	if k == "" {
		return "", false
	}
	id := c.graph.AddNode(k, c.ScreenToCanvas(screen))
	c.log.Debug("node added", "node", id, "kind", k)
	return id, true
}

// MoveNode repositions a node after it was dragged on the canvas.
func (c *Controller) MoveNode(id flow.NodeID, pos flow.Position) error {
	return c.graph.MoveNode(id, pos)
}

// DeleteNode removes a node and its edges, closing the inspector if it
// was showing that node.
func (c *Controller) DeleteNode(id flow.NodeID) error {
	if err := c.graph.RemoveNode(id); err != nil {
		return err
	}
	if c.inspector != nil && c.inspector.NodeID() == id {
		c.Deselect()
	}
	return nil
}

// Disconnect removes an edge.
func (c *Controller) Disconnect(id flow.EdgeID) { c.graph.Disconnect(id) }

// ── Connect gesture ───────────────────────────────────────────────────

// Gesture returns the state of the connect gesture.
func (c *Controller) Gesture() GestureState { return c.gesture }

// BeginConnect starts dragging from an output port. Ports that are not
// outputs of an existing node leave the gesture idle.
func (c *Controller) BeginConnect(node flow.NodeID, port flow.PortID) bool {
	n, ok := c.graph.Node(node)
	if !ok || !flow.Describe(n.Kind).HasOutput(port) {
		c.gesture = GestureIdle
		return false
	}
	c.gesture = GestureDragging
	c.from = PortRef{Node: node, Port: port}
	return true
}

// CompleteConnect ends the gesture on an input port. A rejected connection
// leaves no edge and is not reported to the user.
func (c *Controller) CompleteConnect(node flow.NodeID, port flow.PortID) (flow.EdgeID, bool) {
	if c.gesture != GestureDragging {
		return "", false
	}
	from := c.from
	c.CancelConnect()

	id, err := c.graph.Connect(from.Node, from.Port, node, port)
	if err != nil {
		c.log.Debug("connection rejected",
			"source", from.Node, "source_port", from.Port,
			"target", node, "target_port", port, "err", err)
		return "", false
	}
	return id, true
}

// CancelConnect ends the gesture without a target.
func (c *Controller) CancelConnect() {
	c.gesture = GestureIdle
	c.from = PortRef{}
}

// ── Selection ─────────────────────────────────────────────────────────

// Select opens the inspector on a node, closing any previous one.
func (c *Controller) Select(id flow.NodeID) (*Inspector, bool) {
	n, ok := c.graph.Node(id)
	if !ok {
		return nil, false
	}
	c.Deselect()
	c.inspector = &Inspector{graph: c.graph, id: id, kind: n.Kind}
	return c.inspector, true
}

// Deselect closes the inspector.
func (c *Controller) Deselect() {
	if c.inspector != nil {
		c.inspector.close()
		c.inspector = nil
	}
}

// Selected returns the selected node id.
func (c *Controller) Selected() (flow.NodeID, bool) {
	if c.inspector == nil {
		return "", false
	}
	return c.inspector.NodeID(), true
}

// Inspector returns the open inspector, or nil.
func (c *Controller) Inspector() *Inspector { return c.inspector }

// ── Save ──────────────────────────────────────────────────────────────

// CanSave reports whether the save action is enabled.
func (c *Controller) CanSave() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.saving && c.persister != nil
}

// Save serializes the graph and writes it through the persister. Only one
// save runs at a time; a second call while one is in flight fails with
// ErrSaveInFlight. Transport failures are wrapped in *PersistenceError.
func (c *Controller) Save(ctx context.Context) error {
	if c.persister == nil {
		return ErrNoPersister
	}
	c.mu.Lock()
	if c.saving {
		c.mu.Unlock()
		return ErrSaveInFlight
	}
	c.saving = true
	id := c.automationID
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.saving = false
		c.mu.Unlock()
	}()

	a, err := flow.NewAutomation(id, c.graph.Snapshot())
	if err != nil {
		return err
	}
	saved, err := c.persister.SaveAutomation(ctx, a)
	if err != nil {
		c.log.Warn("save automation failed", "automation", id, "err", err)
		return &PersistenceError{Err: err}
	}

	if saved != nil && saved.ID != "" {
		c.mu.Lock()
		c.automationID = saved.ID
		c.mu.Unlock()
	}
	c.log.Info("automation saved", "automation", c.AutomationID(), "nodes", len(a.FlowData.Nodes), "edges", len(a.FlowData.Edges))
	return nil
}
