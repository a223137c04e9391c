package editor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/flow"
)

func dropAndSelect(t *testing.T, c *Controller, token string) *Inspector {
	t.Helper()
	require.True(t, c.DragStart(token))
	id, ok := c.Drop(flow.Position{})
	require.True(t, ok)
	insp, ok := c.Select(id)
	require.True(t, ok)
	return insp
}

func TestInspector_Fields(t *testing.T) {
	c := New("t")
	insp := dropAndSelect(t, c, "delay")

	fields := insp.Fields()
	require.Len(t, fields, 2)
	assert.Equal(t, "amount", fields[0].Name)
	assert.Equal(t, FieldInt, fields[0].Type)
	assert.Equal(t, "unit", fields[1].Name)
	assert.Equal(t, []string{"minutes", "hours", "days"}, fields[1].Choices)

	fields[0].Name = "mutated"
	assert.Equal(t, "amount", insp.Fields()[0].Name)
}

func TestInspector_SetWritesThrough(t *testing.T) {
	c := New("t")
	insp := dropAndSelect(t, c, "message")

	require.NoError(t, insp.Set("text", "Hello"))

	n, ok := c.Graph().Node(insp.NodeID())
	require.True(t, ok)
	assert.Equal(t, flow.MessagePayload{Text: "Hello"}, n.Payload)

	v, err := insp.Value("text")
	require.NoError(t, err)
	assert.Equal(t, "Hello", v)
}

func TestInspector_Delay(t *testing.T) {
	c := New("t")
	insp := dropAndSelect(t, c, "delay")

	v, err := insp.Value("amount")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	require.NoError(t, insp.Set("amount", float64(3)))
	require.NoError(t, insp.Set("unit", "hours"))

	p, err := insp.Payload()
	require.NoError(t, err)
	assert.Equal(t, flow.DelayPayload{Amount: 3, Unit: flow.UnitHours}, p)

	assert.ErrorIs(t, insp.Set("amount", 2.5), ErrFieldType)
	assert.ErrorIs(t, insp.Set("amount", 1e300), ErrFieldType)
	assert.ErrorIs(t, insp.Set("amount", -1e300), ErrFieldType)
	assert.ErrorIs(t, insp.Set("amount", math.Inf(1)), ErrFieldType)
	assert.ErrorIs(t, insp.Set("amount", math.NaN()), ErrFieldType)
	assert.ErrorIs(t, insp.Set("unit", "weeks"), flow.ErrInvalidPayload)
	assert.ErrorIs(t, insp.Set("text", "x"), ErrUnknownField)

	p, _ = insp.Payload()
	assert.Equal(t, flow.DelayPayload{Amount: 3, Unit: flow.UnitHours}, p, "rejected edits leave the payload alone")
}

func TestInspector_OptionalText(t *testing.T) {
	c := New("t")
	trig, ok := c.Select(flow.SeedTriggerID)
	require.True(t, ok)

	v, err := trig.Value("keyword")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "start", *v.(*string))

	require.NoError(t, trig.Set("keyword", nil))
	v, _ = trig.Value("keyword")
	assert.Nil(t, v.(*string))

	assert.Equal(t, "", c.Graph().Snapshot().Metadata().TriggerKeyword)

	ai := dropAndSelect(t, c, "aiStep")
	assert.True(t, trig.Closed())
	require.NoError(t, ai.Set("prompt", "be brief"))
	p, _ := ai.Payload()
	assert.Equal(t, "be brief", *p.(flow.AIStepPayload).Prompt)

	assert.ErrorIs(t, ai.Set("prompt", 42), ErrFieldType)
}

func TestInspector_Replace(t *testing.T) {
	c := New("t")
	insp := dropAndSelect(t, c, "condition")

	require.NoError(t, insp.Replace(flow.ConditionPayload{Expression: "{{tag}} == 'vip'"}))
	v, _ := insp.Value("expression")
	assert.Equal(t, "{{tag}} == 'vip'", v)

	assert.ErrorIs(t, insp.Replace(flow.MessagePayload{Text: "x"}), ErrFieldType)
	assert.ErrorIs(t, insp.Replace(nil), ErrFieldType)
}

func TestInspector_Closed(t *testing.T) {
	c := New("t")
	insp := dropAndSelect(t, c, "message")
	c.Deselect()

	_, err := insp.Payload()
	assert.ErrorIs(t, err, ErrInspectorClosed)
	assert.ErrorIs(t, insp.Set("text", "late"), ErrInspectorClosed)
	assert.ErrorIs(t, insp.Replace(flow.MessagePayload{}), ErrInspectorClosed)

	n, _ := c.Graph().Node(insp.NodeID())
	assert.Equal(t, flow.MessagePayload{}, n.Payload)
}
