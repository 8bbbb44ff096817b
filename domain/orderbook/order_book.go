package orderbook

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// OrderBook is single-writer and deterministic.
type OrderBook struct {
	bids *ladder
	asks *ladder

	index   map[OrderID]*Order
	resting int

	lastTrade Price
	traded    bool
}

// LevelSummary is an aggregated, read-only view of one price level.
type LevelSummary struct {
	Price  Price
	Volume Quantity
	Orders int
}

// OrderView is a read-only view of a resting order.
type OrderView struct {
	ID        OrderID
	Side      Side
	Price     Price
	Original  Quantity
	Remaining Quantity
}

func NewOrderBook() *OrderBook {
	return &OrderBook{
		bids:  newLadder(),
		asks:  newLadder(),
		index: make(map[OrderID]*Order),
	}
}

func (b *OrderBook) ladderFor(s Side) *ladder {
	if s == Bid {
		return b.bids
	}
	return b.asks
}

// AddLimitOrder rests o at price on its own side. It never matches.
func (b *OrderBook) AddLimitOrder(price Price, o *Order) error {
	switch {
	case o == nil:
		return fmt.Errorf("%w: nil order", ErrInvalidOrder)
	case o.Resting():
		return fmt.Errorf("%w: order %d already resting", ErrInvalidOrder, o.id)
	case o.IsFilled():
		return fmt.Errorf("%w: order %d has nothing remaining", ErrInvalidOrder, o.id)
	case !o.side.Valid():
		return fmt.Errorf("%w: unknown side %s", ErrInvalidOrder, o.side)
	case price < 0:
		return fmt.Errorf("%w: %s", ErrInvalidPrice, price)
	}
	if o.id != 0 {
		if _, dup := b.index[o.id]; dup {
			return fmt.Errorf("%w: duplicate order id %d", ErrInvalidOrder, o.id)
		}
	}

	side := b.ladderFor(o.side)
	lvl := side.UpsertLevel(price)
	if err := lvl.AddOrder(o); err != nil {
		if lvl.Empty() {
			side.DeleteLevel(price)
		}
		return err
	}
	if o.id != 0 {
		b.index[o.id] = o
	}
	b.resting++
	return nil
}

// FillMarketOrder matches o against the opposite side, best price first.
// Whatever is left of o afterwards is dropped, never rested.
func (b *OrderBook) FillMarketOrder(o *Order) (TradeReport, error) {
	switch {
	case o == nil:
		return TradeReport{}, fmt.Errorf("%w: nil order", ErrInvalidOrder)
	case o.Resting():
		return TradeReport{}, fmt.Errorf("%w: order %d is resting", ErrInvalidOrder, o.id)
	case o.IsFilled():
		return TradeReport{}, fmt.Errorf("%w: order %d has nothing remaining", ErrInvalidOrder, o.id)
	case !o.side.Valid():
		return TradeReport{}, fmt.Errorf("%w: unknown side %s", ErrInvalidOrder, o.side)
	}

	report := TradeReport{
		OrderID:   o.id,
		Side:      o.side,
		Requested: o.remaining,
	}
	opposite := b.ladderFor(o.side.Opposite())

	for !o.IsFilled() {
		lvl := b.bestLevel(o.side.Opposite())
		if lvl == nil {
			break
		}

		before := lvl.Len()
		trades := lvl.Fill(o)
		b.resting -= before - lvl.Len()

		for _, t := range trades {
			if r, ok := b.index[t.RestingOrderID]; ok && r.IsFilled() {
				delete(b.index, t.RestingOrderID)
			}
			b.lastTrade = t.Price
			b.traded = true
		}
		report.Trades = append(report.Trades, trades...)

		// the level is dropped only once its own walk is over
		if lvl.Empty() {
			opposite.DeleteLevel(lvl.price)
		}
	}

	report.TotalMatched = report.Requested - o.remaining
	report.Remaining = o.remaining
	report.FullyFilled = o.IsFilled()
	return report, nil
}

func (b *OrderBook) bestLevel(s Side) *PriceLevel {
	if s == Bid {
		return b.bids.MaxLevel()
	}
	return b.asks.MinLevel()
}

// ---- queries ----

func (b *OrderBook) BestBid() (Price, bool) {
	if lvl := b.bids.MaxLevel(); lvl != nil {
		return lvl.price, true
	}
	return 0, false
}

func (b *OrderBook) BestAsk() (Price, bool) {
	if lvl := b.asks.MinLevel(); lvl != nil {
		return lvl.price, true
	}
	return 0, false
}

// AskLevelsAscending lists ask levels cheapest first.
func (b *OrderBook) AskLevelsAscending() []*PriceLevel {
	out := make([]*PriceLevel, 0, b.asks.Size())
	b.asks.ForEachAscending(func(lvl *PriceLevel) bool {
		out = append(out, lvl)
		return true
	})
	return out
}

// BidLevelsDescending lists bid levels highest first.
func (b *OrderBook) BidLevelsDescending() []*PriceLevel {
	out := make([]*PriceLevel, 0, b.bids.Size())
	b.bids.ForEachDescending(func(lvl *PriceLevel) bool {
		out = append(out, lvl)
		return true
	})
	return out
}

// WalkAsks visits ask levels in execution priority until fn returns false.
func (b *OrderBook) WalkAsks(fn func(*PriceLevel) bool) {
	b.asks.ForEachAscending(fn)
}

// WalkBids visits bid levels in execution priority until fn returns false.
func (b *OrderBook) WalkBids(fn func(*PriceLevel) bool) {
	b.bids.ForEachDescending(fn)
}

// VolumeAt reports zero for a price with no level.
func (b *OrderBook) VolumeAt(s Side, price Price) Quantity {
	if lvl := b.ladderFor(s).FindLevel(price); lvl != nil {
		return lvl.TotalVolume()
	}
	return 0
}

// Depth aggregates up to limit levels of one side in priority order.
// A non-positive limit returns every level.
func (b *OrderBook) Depth(s Side, limit int) []LevelSummary {
	var out []LevelSummary
	visit := func(lvl *PriceLevel) bool {
		out = append(out, LevelSummary{Price: lvl.price, Volume: lvl.volume, Orders: lvl.count})
		return limit <= 0 || len(out) < limit
	}
	if s == Bid {
		b.WalkBids(visit)
	} else {
		b.WalkAsks(visit)
	}
	return out
}

// Spread is best ask minus best bid. It can be negative: inserting a
// limit order never matches, so the book may be crossed.
func (b *OrderBook) Spread() (decimal.Decimal, bool) {
	bid, okBid := b.BestBid()
	ask, okAsk := b.BestAsk()
	if !okBid || !okAsk {
		return decimal.Zero, false
	}
	return ask.Decimal().Sub(bid.Decimal()), true
}

func (b *OrderBook) MidPrice() (decimal.Decimal, bool) {
	bid, okBid := b.BestBid()
	ask, okAsk := b.BestAsk()
	if !okBid || !okAsk {
		return decimal.Zero, false
	}
	return bid.Decimal().Add(ask.Decimal()).Div(decimal.NewFromInt(2)), true
}

func (b *OrderBook) LastTradePrice() (Price, bool) {
	return b.lastTrade, b.traded
}

// Order looks up a resting order by id. Orders without an id are not indexed.
func (b *OrderBook) Order(id OrderID) (OrderView, bool) {
	o, ok := b.index[id]
	if !ok || o.level == nil {
		return OrderView{}, false
	}
	return OrderView{
		ID:        o.id,
		Side:      o.side,
		Price:     o.level.price,
		Original:  o.original,
		Remaining: o.remaining,
	}, true
}

// Len is the number of resting orders on both sides.
func (b *OrderBook) Len() int { return b.resting }

func (b *OrderBook) LevelCount(s Side) int {
	return b.ladderFor(s).Size()
}
