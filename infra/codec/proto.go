package codec

import (
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"matchbook/domain/events"
	"matchbook/domain/orderbook"
)

// TradeEvent wire fields. Keep numbers stable; consumers decode by number.
const (
	fieldEventID      protowire.Number = 1
	fieldPair         protowire.Number = 2
	fieldSeq          protowire.Number = 3
	fieldTakerOrderID protowire.Number = 4
	fieldMakerOrderID protowire.Number = 5
	fieldTakerSide    protowire.Number = 6
	fieldPrice        protowire.Number = 7
	fieldQuantity     protowire.Number = 8
	fieldTimeUnixNano protowire.Number = 9
)

var ErrMalformed = errors.New("codec: malformed payload")

// ProtoSerializer writes the protobuf wire format by hand, so no generated
// code is needed to produce or read it.
type ProtoSerializer struct{}

func (ProtoSerializer) Name() string { return "proto" }

func (ProtoSerializer) Encode(e events.TradeEvent) ([]byte, error) {
	b := make([]byte, 0, 96)
	b = appendString(b, fieldEventID, e.EventID)
	b = appendString(b, fieldPair, e.Pair)
	b = appendVarint(b, fieldSeq, e.Seq)
	b = appendVarint(b, fieldTakerOrderID, uint64(e.TakerOrderID))
	b = appendVarint(b, fieldMakerOrderID, uint64(e.MakerOrderID))
	b = appendVarint(b, fieldTakerSide, uint64(e.TakerSide))
	b = appendVarint(b, fieldPrice, uint64(e.Price.Units()))
	b = appendVarint(b, fieldQuantity, uint64(e.Quantity.Units()))
	if !e.Time.IsZero() {
		b = appendVarint(b, fieldTimeUnixNano, uint64(e.Time.UnixNano()))
	}
	return b, nil
}

func (ProtoSerializer) Decode(b []byte) (events.TradeEvent, error) {
	var e events.TradeEvent
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return events.TradeEvent{}, fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case typ == protowire.BytesType && (num == fieldEventID || num == fieldPair):
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return events.TradeEvent{}, fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			if num == fieldEventID {
				e.EventID = v
			} else {
				e.Pair = v
			}
			b = b[n:]

		case typ == protowire.VarintType && num >= fieldSeq && num <= fieldTimeUnixNano:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return events.TradeEvent{}, fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			setVarint(&e, num, v)
			b = b[n:]

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return events.TradeEvent{}, fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return e, nil
}

func setVarint(e *events.TradeEvent, num protowire.Number, v uint64) {
	switch num {
	case fieldSeq:
		e.Seq = v
	case fieldTakerOrderID:
		e.TakerOrderID = orderbook.OrderID(v)
	case fieldMakerOrderID:
		e.MakerOrderID = orderbook.OrderID(v)
	case fieldTakerSide:
		e.TakerSide = orderbook.Side(v)
	case fieldPrice:
		e.Price = orderbook.Price(int64(v))
	case fieldQuantity:
		e.Quantity = orderbook.Quantity(int64(v))
	case fieldTimeUnixNano:
		e.Time = time.Unix(0, int64(v)).UTC()
	}
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}
