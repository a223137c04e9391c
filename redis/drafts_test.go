package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/flow"
	"github.com/meikuraledutech/flow/redis"
)

func setup(t *testing.T, opts ...redis.Option) (*miniredis.Miniredis, *redis.DraftStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, redis.NewFromClient(client, opts...)
}

func draft(t *testing.T, name string) *flow.Automation {
	t.Helper()
	g := flow.NewGraphStore(name)
	g.AddNode(flow.KindDelay, flow.Position{X: 1, Y: 2})
	a, err := flow.NewAutomation("", g.Snapshot())
	require.NoError(t, err)
	return a
}

func TestDraftStore_SaveLoadDiscard(t *testing.T) {
	ctx := context.Background()
	mr, s := setup(t)

	require.NoError(t, s.SaveDraft(ctx, "t1", "a1", draft(t, "Draft")))
	assert.True(t, mr.Exists("flow:draft:t1:a1"))

	got, err := s.LoadDraft(ctx, "t1", "a1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Draft", got.Name)
	g, err := got.Graph()
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 2)

	other, err := s.LoadDraft(ctx, "t2", "a1")
	require.NoError(t, err)
	assert.Nil(t, other)

	require.NoError(t, s.DiscardDraft(ctx, "t1", "a1"))
	got, err = s.LoadDraft(ctx, "t1", "a1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.DiscardDraft(ctx, "t1", "a1"))
}

func TestDraftStore_TTL(t *testing.T) {
	ctx := context.Background()
	mr, s := setup(t, redis.WithTTL(time.Minute), redis.WithPrefix("test:"))

	require.NoError(t, s.SaveDraft(ctx, "t1", "a1", draft(t, "x")))
	assert.Equal(t, time.Minute, mr.TTL("test:t1:a1"))

	mr.FastForward(2 * time.Minute)
	got, err := s.LoadDraft(ctx, "t1", "a1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDraftStore_RejectsInvalidFlowData(t *testing.T) {
	ctx := context.Background()
	mr, s := setup(t)

	a := draft(t, "x")
	a.FlowData.Nodes[1].Type = "bogus"
	err := s.SaveDraft(ctx, "t1", "a1", a)
	var de *flow.DeserializationError
	require.ErrorAs(t, err, &de)
	assert.False(t, mr.Exists("flow:draft:t1:a1"))
}

func TestDraftStore_CorruptValue(t *testing.T) {
	mr, s := setup(t)
	require.NoError(t, mr.Set("flow:draft:t1:a1", "not json"))

	_, err := s.LoadDraft(context.Background(), "t1", "a1")
	assert.Error(t, err)
}

func TestNew_BadURL(t *testing.T) {
	_, err := redis.New("://nope")
	assert.Error(t, err)
}
