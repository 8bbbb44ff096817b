package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchbook/domain/orderbook"
)

func newOrderPool() *Pool[orderbook.Order] {
	return NewPool(
		func() *orderbook.Order { return new(orderbook.Order) },
		func(o *orderbook.Order) { *o = orderbook.Order{} },
	)
}

func TestPoolBuildsOnDemand(t *testing.T) {
	p := newOrderPool()

	o := p.Get()
	require.NotNil(t, o)
	assert.Equal(t, uint64(1), p.Allocs())
}

func TestPoolResetsOnPut(t *testing.T) {
	p := newOrderPool()

	o := p.Get()
	require.NoError(t, o.Init(7, orderbook.Bid, orderbook.MustQuantity("3")))
	require.NoError(t, o.ApplyFill(orderbook.MustQuantity("3")))
	p.Put(o)

	// the scrubbed value is zero whether or not sync.Pool hands it back
	assert.Equal(t, orderbook.OrderID(0), o.ID())
	assert.True(t, o.Remaining().IsZero())

	again := p.Get()
	require.NoError(t, again.Init(8, orderbook.Ask, orderbook.MustQuantity("1")))
	assert.Equal(t, orderbook.OrderID(8), again.ID())
	assert.Equal(t, orderbook.Ask, again.Side())
	assert.False(t, again.IsFilled())
}

func TestPoolPutNil(t *testing.T) {
	p := NewPool(func() *int { return new(int) }, nil)
	assert.NotPanics(t, func() { p.Put(nil) })
}
