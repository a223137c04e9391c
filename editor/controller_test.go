package editor

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/flow"
)

type fakePersister struct {
	mu      sync.Mutex
	err     error
	saved   []*flow.Automation
	block   chan struct{}
	entered chan struct{}
}

func (f *fakePersister) SaveAutomation(ctx context.Context, a *flow.Automation) (*flow.Automation, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := *a
	if out.ID == "" {
		out.ID = "auto-1"
	}
	f.saved = append(f.saved, &out)
	return &out, nil
}

func TestPalette_ExcludesTrigger(t *testing.T) {
	c := New("t")
	var kinds []flow.NodeKind
	for _, item := range c.Palette() {
		kinds = append(kinds, item.Kind)
		assert.NotEmpty(t, item.Label)
	}
	assert.Equal(t, []flow.NodeKind{flow.KindSendMessage, flow.KindAIStep, flow.KindDelay, flow.KindCondition}, kinds)
}

func TestDragAndDrop(t *testing.T) {
	c := New("t")
	c.SetCanvasOrigin(flow.Position{X: 280, Y: 64})
	c.SetViewport(Viewport{X: 20, Y: 10, Zoom: 2})

	require.True(t, c.DragStart("message"))
	kind, ok := c.Dragging()
	require.True(t, ok)
	assert.Equal(t, flow.KindSendMessage, kind)

	id, ok := c.Drop(flow.Position{X: 500, Y: 474})
	require.True(t, ok)
	assert.Equal(t, flow.NodeID("dndnode_0"), id)

	n, ok := c.Graph().Node(id)
	require.True(t, ok)
	assert.Equal(t, flow.Position{X: 100, Y: 200}, n.Position)

	_, dragging := c.Dragging()
	assert.False(t, dragging, "drop consumes the drag context")
}

func TestDrop_WithoutDragIsIgnored(t *testing.T) {
	c := New("t")
	_, ok := c.Drop(flow.Position{})
	assert.False(t, ok)

	assert.False(t, c.DragStart("trigger"))
	assert.False(t, c.DragStart("action"))
	_, ok = c.Drop(flow.Position{})
	assert.False(t, ok)

	require.True(t, c.DragStart("delay"))
	c.DragCancel()
	_, ok = c.Drop(flow.Position{})
	assert.False(t, ok)

	assert.Len(t, c.Graph().Snapshot().Nodes, 1)
}

func TestViewport_ZoomKeepsAnchor(t *testing.T) {
	c := New("t")
	c.SetCanvasOrigin(flow.Position{X: 100, Y: 50})
	anchor := flow.Position{X: 400, Y: 300}
	before := c.ScreenToCanvas(anchor)

	c.ZoomBy(1.5, anchor)
	assert.Equal(t, 1.5, c.Viewport().Zoom)
	after := c.ScreenToCanvas(anchor)
	assert.InDelta(t, before.X, after.X, 1e-9)
	assert.InDelta(t, before.Y, after.Y, 1e-9)

	c.ZoomBy(100, anchor)
	assert.Equal(t, MaxZoom, c.Viewport().Zoom)
	c.ZoomBy(0.0001, anchor)
	assert.Equal(t, MinZoom, c.Viewport().Zoom)

	c.Pan(10, -5)
	p := flow.Position{X: 12, Y: 34}
	back := c.ScreenToCanvas(c.CanvasToScreen(p))
	assert.InDelta(t, p.X, back.X, 1e-9)
	assert.InDelta(t, p.Y, back.Y, 1e-9)
}

func TestViewport_NonFiniteZoom(t *testing.T) {
	c := New("t")

	for _, z := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		c.SetViewport(Viewport{X: 5, Y: 5, Zoom: z})
		assert.Equal(t, 1.0, c.Viewport().Zoom, "zoom %v", z)
	}

	c.SetViewport(Viewport{Zoom: 1.5})
	anchor := flow.Position{X: 40, Y: 40}
	before := c.Viewport()
	for _, f := range []float64{math.NaN(), math.Inf(1), 0, -2} {
		c.ZoomBy(f, anchor)
		assert.Equal(t, before, c.Viewport(), "factor %v", f)
	}

	p := c.ScreenToCanvas(anchor)
	assert.False(t, math.IsNaN(p.X) || math.IsNaN(p.Y))
}

func TestConnectGesture(t *testing.T) {
	c := New("t")
	require.True(t, c.DragStart("message"))
	msg, _ := c.Drop(flow.Position{})

	assert.Equal(t, GestureIdle, c.Gesture())
	require.True(t, c.BeginConnect(flow.SeedTriggerID, flow.DefaultPort))
	assert.Equal(t, GestureDragging, c.Gesture())

	id, ok := c.CompleteConnect(msg, flow.DefaultPort)
	require.True(t, ok)
	assert.Equal(t, GestureIdle, c.Gesture())
	_, ok = c.Graph().Edge(id)
	assert.True(t, ok)
}

func TestConnectGesture_RejectedIsSilent(t *testing.T) {
	c := New("t")

	require.True(t, c.BeginConnect(flow.SeedTriggerID, flow.DefaultPort))
	_, ok := c.CompleteConnect("ghost-id", flow.DefaultPort)
	assert.False(t, ok)
	assert.Equal(t, GestureIdle, c.Gesture())
	assert.Empty(t, c.Graph().Snapshot().Edges)

	assert.False(t, c.BeginConnect(flow.SeedTriggerID, flow.PortTrue))
	assert.Equal(t, GestureIdle, c.Gesture())

	_, ok = c.CompleteConnect(flow.SeedTriggerID, flow.DefaultPort)
	assert.False(t, ok, "no gesture in progress")
}

func TestConnectGesture_Cancel(t *testing.T) {
	c := New("t")
	require.True(t, c.BeginConnect(flow.SeedTriggerID, flow.DefaultPort))
	c.CancelConnect()
	assert.Equal(t, GestureIdle, c.Gesture())
	assert.Empty(t, c.Graph().Snapshot().Edges)
}

func TestSelection(t *testing.T) {
	c := New("t")
	require.True(t, c.DragStart("delay"))
	delay, _ := c.Drop(flow.Position{})

	first, ok := c.Select(flow.SeedTriggerID)
	require.True(t, ok)
	sel, _ := c.Selected()
	assert.Equal(t, flow.SeedTriggerID, sel)

	second, ok := c.Select(delay)
	require.True(t, ok)
	assert.True(t, first.Closed(), "selecting another node closes the first inspector")
	assert.False(t, second.Closed())
	assert.Same(t, second, c.Inspector())

	_, ok = c.Select("ghost")
	assert.False(t, ok)
	assert.Same(t, second, c.Inspector())

	c.Deselect()
	_, ok = c.Selected()
	assert.False(t, ok)
	assert.True(t, second.Closed())
	assert.Nil(t, c.Inspector())
}

func TestDeleteNode_ClosesInspector(t *testing.T) {
	c := New("t")
	require.True(t, c.DragStart("message"))
	msg, _ := c.Drop(flow.Position{})
	insp, _ := c.Select(msg)

	require.NoError(t, c.DeleteNode(msg))
	assert.True(t, insp.Closed())
	assert.Nil(t, c.Inspector())

	assert.ErrorIs(t, c.DeleteNode(flow.SeedTriggerID), flow.ErrTriggerRequired)
}

func TestSave_AssignsIDAndUpdates(t *testing.T) {
	p := &fakePersister{}
	c := New("Narx", WithPersister(p))
	require.True(t, c.CanSave())
	assert.Empty(t, c.AutomationID())

	require.NoError(t, c.Save(context.Background()))
	assert.Equal(t, "auto-1", c.AutomationID())

	c.SetActive(false)
	require.NoError(t, c.Save(context.Background()))
	require.Len(t, p.saved, 2)

	assert.Equal(t, "auto-1", p.saved[1].ID, "second save updates the same record")
	assert.Equal(t, "Narx", p.saved[1].Name)
	assert.False(t, p.saved[1].IsActive)
	assert.Equal(t, flow.TriggerTypeKeyword, p.saved[1].TriggerType)
	assert.Equal(t, "start", p.saved[1].TriggerKeyword)
	assert.Len(t, p.saved[1].FlowData.Nodes, 1)
}

func TestSave_FailureLeavesGraphUntouched(t *testing.T) {
	boom := errors.New("connection refused")
	p := &fakePersister{err: boom}
	c := New("t", WithPersister(p))
	require.True(t, c.DragStart("message"))
	msg, _ := c.Drop(flow.Position{})
	_, err := c.Graph().Connect(flow.SeedTriggerID, flow.DefaultPort, msg, flow.DefaultPort)
	require.NoError(t, err)

	before := c.Graph().Snapshot()
	err = c.Save(context.Background())

	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before, c.Graph().Snapshot())
	assert.True(t, c.CanSave(), "save is enabled again after a failure")
	assert.Empty(t, c.AutomationID())
}

func TestSave_SingleInFlight(t *testing.T) {
	p := &fakePersister{block: make(chan struct{}), entered: make(chan struct{}, 1)}
	c := New("t", WithPersister(p))

	done := make(chan error, 1)
	go func() { done <- c.Save(context.Background()) }()
	<-p.entered

	assert.False(t, c.CanSave())
	assert.ErrorIs(t, c.Save(context.Background()), ErrSaveInFlight)

	close(p.block)
	require.NoError(t, <-done)
	assert.True(t, c.CanSave())
	assert.Len(t, p.saved, 1)
}

func TestSave_NoPersister(t *testing.T) {
	c := New("t")
	assert.False(t, c.CanSave())
	assert.ErrorIs(t, c.Save(context.Background()), ErrNoPersister)
}

func TestSave_InvalidGraphIsNotSent(t *testing.T) {
	p := &fakePersister{}
	c := New("t", WithPersister(p))
	require.True(t, c.DragStart("delay"))
	d, _ := c.Drop(flow.Position{})
	require.NoError(t, c.Graph().UpdateNodePayload(d, flow.MessagePayload{Text: "wrong kind"}))

	var ie *flow.IntegrityError
	require.ErrorAs(t, c.Save(context.Background()), &ie)
	assert.Equal(t, d, ie.NodeID)
	assert.Empty(t, p.saved)
}

func TestOpen(t *testing.T) {
	g := flow.NewGraphStore("Loaded")
	msg := g.AddNode(flow.KindSendMessage, flow.Position{X: 10})
	_, err := g.Connect(flow.SeedTriggerID, flow.DefaultPort, msg, flow.DefaultPort)
	require.NoError(t, err)
	a, err := flow.NewAutomation("auto-9", g.Snapshot())
	require.NoError(t, err)

	loader := LoaderFunc(func(_ context.Context, id string) (*flow.Automation, error) {
		if id != "auto-9" {
			return nil, nil
		}
		return a, nil
	})

	c, err := Open(context.Background(), loader, "auto-9")
	require.NoError(t, err)
	assert.Equal(t, "auto-9", c.AutomationID())
	assert.Equal(t, "Loaded", c.Graph().Name())
	assert.Len(t, c.Graph().Snapshot().Edges, 1)

	require.True(t, c.DragStart("delay"))
	next, _ := c.Drop(flow.Position{})
	assert.Equal(t, flow.NodeID("dndnode_1"), next, "loaded ids are reserved")

	_, err = Open(context.Background(), loader, "missing")
	assert.ErrorIs(t, err, ErrAutomationAbsent)
}

func TestOpen_CorruptFlowData(t *testing.T) {
	loader := LoaderFunc(func(context.Context, string) (*flow.Automation, error) {
		return &flow.Automation{
			ID:   "auto-1",
			Name: "broken",
			FlowData: flow.FlowData{Nodes: []flow.NodeData{
				{ID: "trigger-1", Type: "trigger", Data: []byte(`{"keyword":"hi"}`)},
				{ID: "a", Type: "bogus", Data: []byte(`{}`)},
			}},
		}, nil
	})

	c, err := Open(context.Background(), loader, "auto-1")
	assert.Nil(t, c)
	var de *flow.DeserializationError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, flow.NodeID("a"), de.NodeID)
	assert.ErrorIs(t, err, flow.ErrUnknownNodeKind)
}
