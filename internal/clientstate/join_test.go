package clientstate

import (
	"context"
	"testing"

	"eventhub/internal/domain"
	"eventhub/internal/eventbus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordBus(t *testing.T) (*eventbus.Bus, *[]eventbus.AppEvent) {
	t.Helper()
	bus := newTestBus()
	var got []eventbus.AppEvent
	unsubscribe := bus.Subscribe(func(ev eventbus.AppEvent) { got = append(got, ev) })
	t.Cleanup(unsubscribe)
	return bus, &got
}

func TestJoinFlow_Join(t *testing.T) {
	t.Run("requires consent", func(t *testing.T) {
		gw := &fakeGateway{}
		bus, published := recordBus(t)
		flow := NewJoinFlow(gw, bus, "u1", DefaultPolicies)

		out := flow.Join(context.Background(), "e1", false)

		require.ErrorIs(t, out.Err, domain.ErrInvalidInput)
		assert.True(t, out.ShouldSurface())
		assert.Zero(t, gw.joinCalls, "no request without consent")
		assert.False(t, flow.IsJoined("e1"))
		assert.Empty(t, *published)
	})

	t.Run("success publishes", func(t *testing.T) {
		gw := &fakeGateway{}
		bus, published := recordBus(t)
		flow := NewJoinFlow(gw, bus, "u1", DefaultPolicies)

		out := flow.Join(context.Background(), "e1", true)

		require.NoError(t, out.Err)
		assert.True(t, flow.IsJoined("e1"))
		assert.Equal(t, "u1", gw.lastUserID)
		assert.Equal(t, []eventbus.AppEvent{{Kind: eventbus.KindJoined, EventID: "e1", UserID: "u1"}}, *published)
	})

	t.Run("failure changes nothing", func(t *testing.T) {
		gw := &fakeGateway{joinErr: errRemote}
		bus, published := recordBus(t)
		flow := NewJoinFlow(gw, bus, "u1", DefaultPolicies)

		out := flow.Join(context.Background(), "e1", true)

		require.ErrorIs(t, out.Err, errRemote)
		assert.True(t, out.ShouldSurface())
		assert.False(t, flow.IsJoined("e1"))
		assert.Empty(t, *published)
	})

	t.Run("silent policy", func(t *testing.T) {
		gw := &fakeGateway{joinErr: errRemote}
		policies := DefaultPolicies
		policies.Join = Silent
		flow := NewJoinFlow(gw, newTestBus(), "u1", policies)

		out := flow.Join(context.Background(), "e1", true)

		assert.False(t, out.ShouldSurface())
	})
}

func TestJoinFlow_Leave(t *testing.T) {
	gw := &fakeGateway{}
	bus, published := recordBus(t)
	flow := NewJoinFlow(gw, bus, "u1", DefaultPolicies)
	flow.Hydrate([]string{"e1", "e2"})

	out := flow.Leave(context.Background(), "e1", false)
	require.ErrorIs(t, out.Err, domain.ErrInvalidInput)
	assert.Zero(t, gw.unjoinCalls)
	assert.True(t, flow.IsJoined("e1"))

	out = flow.Leave(context.Background(), "e1", true)
	require.NoError(t, out.Err)
	assert.False(t, flow.IsJoined("e1"))
	assert.True(t, flow.IsJoined("e2"))
	assert.Equal(t, []eventbus.AppEvent{{Kind: eventbus.KindLeft, EventID: "e1", UserID: "u1"}}, *published)

	gw.joinErr = errRemote
	out = flow.Leave(context.Background(), "e2", true)
	require.Error(t, out.Err)
	assert.True(t, flow.IsJoined("e2"), "failed leave keeps the event joined")
}
