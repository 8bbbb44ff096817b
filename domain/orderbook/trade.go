package orderbook

// Trade is one match between the incoming order and a resting order.
type Trade struct {
	RestingOrderID OrderID
	Price          Price
	Quantity       Quantity
}

// TradeReport is the outcome of a market order fill. Trades are in
// execution order.
type TradeReport struct {
	OrderID      OrderID
	Side         Side
	Requested    Quantity
	Trades       []Trade
	TotalMatched Quantity
	Remaining    Quantity
	FullyFilled  bool
}
