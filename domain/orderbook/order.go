package orderbook

import "fmt"

type Side uint8
type Status uint8
type OrderID uint64

const (
	Bid Side = iota
	Ask
)

const (
	Active Status = iota
	Filled
)

func (s Side) Valid() bool { return s == Bid || s == Ask }

func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

func (s Side) String() string {
	switch s {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	default:
		return fmt.Sprintf("side(%d)", uint8(s))
	}
}

func (s Status) String() string {
	if s == Filled {
		return "filled"
	}
	return "active"
}

// Order is a unit of trading intent. Its remaining size only ever goes
// down, through ApplyFill.
type Order struct {
	id        OrderID
	side      Side
	original  Quantity
	remaining Quantity
	status    Status

	level *PriceLevel
	next  *Order
	prev  *Order
}

func NewOrder(side Side, size Quantity) (*Order, error) {
	return NewOrderWithID(0, side, size)
}

func NewOrderWithID(id OrderID, side Side, size Quantity) (*Order, error) {
	o := &Order{}
	if err := o.Init(id, side, size); err != nil {
		return nil, err
	}
	return o, nil
}

// Init resets o for reuse. A resting order cannot be reinitialized.
func (o *Order) Init(id OrderID, side Side, size Quantity) error {
	if o.level != nil {
		return fmt.Errorf("%w: order %d is resting", ErrInvalidOrder, o.id)
	}
	if !side.Valid() {
		return fmt.Errorf("%w: unknown side %s", ErrInvalidOrder, side)
	}
	if size <= 0 {
		return fmt.Errorf("%w: size must be positive, got %s", ErrInvalidSize, size)
	}
	*o = Order{
		id:        id,
		side:      side,
		original:  size,
		remaining: size,
		status:    Active,
	}
	return nil
}

func (o *Order) ID() OrderID         { return o.id }
func (o *Order) Side() Side          { return o.side }
func (o *Order) Original() Quantity  { return o.original }
func (o *Order) Remaining() Quantity { return o.remaining }
func (o *Order) Status() Status      { return o.status }
func (o *Order) IsFilled() bool      { return o.remaining == 0 }

// Resting reports whether o currently sits in a price level.
func (o *Order) Resting() bool { return o.level != nil }

// ApplyFill takes q off the remaining size. The level holding a resting
// order sees the change in its volume.
func (o *Order) ApplyFill(q Quantity) error {
	if q <= 0 {
		return fmt.Errorf("%w: fill quantity must be positive, got %s", ErrInvalidSize, q)
	}
	if q > o.remaining {
		return fmt.Errorf("%w: fill %s exceeds remaining %s of order %d", ErrOverFill, q, o.remaining, o.id)
	}
	o.remaining -= q
	if o.level != nil {
		o.level.volume -= q
	}
	if o.remaining == 0 {
		o.status = Filled
	}
	return nil
}

// Next is the order queued behind o at the same price.
func (o *Order) Next() *Order {
	return o.next
}
