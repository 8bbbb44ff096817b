// Package codec turns trade events into bytes for the outbox and the bus.
package codec

import (
	"errors"
	"fmt"

	"matchbook/domain/events"
)

var ErrUnknownCodec = errors.New("codec: unknown serializer")

type Serializer interface {
	Encode(events.TradeEvent) ([]byte, error)
	Decode([]byte) (events.TradeEvent, error)
	Name() string
}

// ByName resolves the EVENT_CODEC setting.
func ByName(name string) (Serializer, error) {
	switch name {
	case "", "proto", "protobuf":
		return ProtoSerializer{}, nil
	case "json":
		return JSONSerializer{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}
