package codec

import (
	"encoding/json"
	"fmt"
	"time"

	"matchbook/domain/events"
	"matchbook/domain/orderbook"
)

// JSONSerializer emits human-readable events. Prices and quantities are
// decimal strings so consumers never see binary floats.
type JSONSerializer struct{}

type jsonTrade struct {
	V            int       `json:"v"`
	Type         string    `json:"type"`
	EventID      string    `json:"event_id"`
	Pair         string    `json:"pair"`
	Seq          uint64    `json:"seq"`
	TakerOrderID uint64    `json:"taker_order_id"`
	MakerOrderID uint64    `json:"maker_order_id"`
	TakerSide    string    `json:"taker_side"`
	Price        string    `json:"price"`
	Quantity     string    `json:"quantity"`
	Time         time.Time `json:"time"`
}

func (JSONSerializer) Name() string { return "json" }

func (JSONSerializer) Encode(e events.TradeEvent) ([]byte, error) {
	return json.Marshal(jsonTrade{
		V:            1,
		Type:         "trade",
		EventID:      e.EventID,
		Pair:         e.Pair,
		Seq:          e.Seq,
		TakerOrderID: uint64(e.TakerOrderID),
		MakerOrderID: uint64(e.MakerOrderID),
		TakerSide:    e.TakerSide.String(),
		Price:        e.Price.String(),
		Quantity:     e.Quantity.String(),
		Time:         e.Time,
	})
}

func (JSONSerializer) Decode(b []byte) (events.TradeEvent, error) {
	var w jsonTrade
	if err := json.Unmarshal(b, &w); err != nil {
		return events.TradeEvent{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var side orderbook.Side
	switch w.TakerSide {
	case "bid":
		side = orderbook.Bid
	case "ask":
		side = orderbook.Ask
	default:
		return events.TradeEvent{}, fmt.Errorf("%w: taker_side %q", ErrMalformed, w.TakerSide)
	}
	price, err := orderbook.ParsePrice(w.Price)
	if err != nil {
		return events.TradeEvent{}, fmt.Errorf("%w: price: %v", ErrMalformed, err)
	}
	qty, err := orderbook.ParseQuantity(w.Quantity)
	if err != nil {
		return events.TradeEvent{}, fmt.Errorf("%w: quantity: %v", ErrMalformed, err)
	}

	return events.TradeEvent{
		EventID:      w.EventID,
		Pair:         w.Pair,
		Seq:          w.Seq,
		TakerOrderID: orderbook.OrderID(w.TakerOrderID),
		MakerOrderID: orderbook.OrderID(w.MakerOrderID),
		TakerSide:    side,
		Price:        price,
		Quantity:     qty,
		Time:         w.Time,
	}, nil
}
