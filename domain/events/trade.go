// Package events holds the facts the engine publishes after matching.
package events

import (
	"time"

	"matchbook/domain/orderbook"
)

// TradeEvent describes one execution between a taker and a resting maker.
// Seq is the global trade sequence and doubles as the outbox key.
type TradeEvent struct {
	EventID      string
	Pair         string
	Seq          uint64
	TakerOrderID orderbook.OrderID
	MakerOrderID orderbook.OrderID
	TakerSide    orderbook.Side
	Price        orderbook.Price
	Quantity     orderbook.Quantity
	Time         time.Time
}

// Notional is price times quantity at full precision.
func (e TradeEvent) Notional() string {
	return e.Price.Decimal().Mul(e.Quantity.Decimal()).String()
}
