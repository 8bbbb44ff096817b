package outbox

import (
	"fmt"

	"matchbook/domain/events"
	"matchbook/infra/codec"
)

// Sink stores engine trades in the outbox. One Handle call is one batch.
// Records are keyed by pair so one market's trades share a partition.
type Sink struct {
	Outbox     *Outbox
	Serializer codec.Serializer
}

func NewSink(o *Outbox, s codec.Serializer) *Sink {
	return &Sink{Outbox: o, Serializer: s}
}

func (s *Sink) HandleTrades(evs []events.TradeEvent) error {
	recs := make([]Record, 0, len(evs))
	for _, e := range evs {
		payload, err := s.Serializer.Encode(e)
		if err != nil {
			return fmt.Errorf("outbox: encode trade %d: %w", e.Seq, err)
		}
		recs = append(recs, Record{Seq: e.Seq, Key: []byte(e.Pair), Payload: payload})
	}
	return s.Outbox.AppendBatch(recs)
}
