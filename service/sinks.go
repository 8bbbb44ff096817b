package service

import (
	"errors"

	"matchbook/domain/events"
)

// TradeSinks fans one batch out to several sinks. Every sink sees the
// batch even when an earlier one fails.
type TradeSinks []TradeSink

func (s TradeSinks) HandleTrades(evs []events.TradeEvent) error {
	var errs []error
	for _, sink := range s {
		if sink == nil {
			continue
		}
		if err := sink.HandleTrades(evs); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
