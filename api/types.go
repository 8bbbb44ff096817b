package api

// Prices and sizes are decimal strings; clients never see binary floats.

type MarketsResponse struct {
	Markets []string `json:"markets"`
}

type Level struct {
	Price  string `json:"price"`
	Size   string `json:"size"`
	Orders int    `json:"orders"`
}

// BookSnapshot is the top of one book. Best prices are omitted for an
// empty side.
type BookSnapshot struct {
	Pair      string  `json:"pair"`
	BestBid   string  `json:"bestBid,omitempty"`
	BestAsk   string  `json:"bestAsk,omitempty"`
	Bids      []Level `json:"bids"` // high to low
	Asks      []Level `json:"asks"` // low to high
	Timestamp int64   `json:"timestamp"`
}

type OrderStatus struct {
	ID        uint64 `json:"id"`
	Pair      string `json:"pair"`
	Side      string `json:"side"`
	Price     string `json:"price"`
	Original  string `json:"original"`
	Remaining string `json:"remaining"`
}

// TradeMessage is pushed to websocket subscribers of "trades:<pair>".
type TradeMessage struct {
	Type         string `json:"type"`
	Pair         string `json:"pair"`
	Seq          uint64 `json:"seq"`
	EventID      string `json:"eventId"`
	TakerOrderID uint64 `json:"takerOrderId"`
	MakerOrderID uint64 `json:"makerOrderId"`
	TakerSide    string `json:"takerSide"`
	Price        string `json:"price"`
	Size         string `json:"size"`
	Timestamp    int64  `json:"timestamp"`
}

type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
