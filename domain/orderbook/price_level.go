package orderbook

import "fmt"

// PriceLevel is a FIFO queue of resting orders at a single price.
type PriceLevel struct {
	price  Price
	head   *Order
	tail   *Order
	volume Quantity
	count  int
}

func NewPriceLevel(price Price) *PriceLevel {
	return &PriceLevel{price: price}
}

func (p *PriceLevel) Price() Price { return p.price }
func (p *PriceLevel) Len() int     { return p.count }
func (p *PriceLevel) Empty() bool  { return p.head == nil }
func (p *PriceLevel) Head() *Order { return p.head }

// TotalVolume is the sum of remaining sizes at this price. Zero when empty.
func (p *PriceLevel) TotalVolume() Quantity { return p.volume }

// AddOrder appends o to the tail of the queue. It refuses an order that
// would push the level's volume past MaxQuantity.
func (p *PriceLevel) AddOrder(o *Order) error {
	switch {
	case o == nil:
		return fmt.Errorf("%w: nil order", ErrInvalidOrder)
	case o.level != nil:
		return fmt.Errorf("%w: order %d already queued", ErrInvalidOrder, o.id)
	case o.IsFilled():
		return fmt.Errorf("%w: order %d has nothing remaining", ErrInvalidOrder, o.id)
	case o.remaining > MaxQuantity-p.volume:
		return fmt.Errorf("%w: level %s holds %s, adding %s exceeds %s",
			ErrInvalidSize, p.price, p.volume, o.remaining, MaxQuantity)
	}

	if p.head == nil {
		p.head = o
		p.tail = o
	} else {
		p.tail.next = o
		o.prev = p.tail
		p.tail = o
	}
	o.level = p
	p.volume += o.remaining
	p.count++
	return nil
}

// Remove unlinks o in O(1). It reports false when o is not queued here.
func (p *PriceLevel) Remove(o *Order) bool {
	if o == nil || o.level != p {
		return false
	}
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		p.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		p.tail = o.prev
	}
	p.volume -= o.remaining
	p.count--

	o.level = nil
	o.next = nil
	o.prev = nil
	return true
}

// Fill matches incoming against the queue in arrival order until either
// side runs out. Resting orders that become filled leave the queue.
func (p *PriceLevel) Fill(incoming *Order) []Trade {
	if incoming == nil {
		return nil
	}

	var trades []Trade
	for !incoming.IsFilled() && p.head != nil {
		resting := p.head
		if resting.IsFilled() {
			p.Remove(resting)
			continue
		}

		qty := incoming.remaining.Min(resting.remaining)
		mustFill(incoming, qty)
		mustFill(resting, qty)
		trades = append(trades, Trade{
			RestingOrderID: resting.id,
			Price:          p.price,
			Quantity:       qty,
		})

		if resting.IsFilled() {
			p.Remove(resting)
		}
	}
	return trades
}

// Orders returns the queue in priority order.
func (p *PriceLevel) Orders() []*Order {
	out := make([]*Order, 0, p.count)
	for o := p.head; o != nil; o = o.next {
		out = append(out, o)
	}
	return out
}

func mustFill(o *Order, q Quantity) {
	if err := o.ApplyFill(q); err != nil {
		panic(err)
	}
}
