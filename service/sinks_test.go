package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"matchbook/domain/events"
)

func TestTradeSinksReachesEverySink(t *testing.T) {
	failing := &recordingSink{err: errors.New("boom")}
	ok := &recordingSink{}
	sinks := TradeSinks{failing, nil, ok}

	err := sinks.HandleTrades([]events.TradeEvent{{Seq: 1}, {Seq: 2}})

	assert.ErrorContains(t, err, "boom")
	assert.Len(t, failing.all(), 2)
	assert.Len(t, ok.all(), 2)
}

func TestTradeSinksEmpty(t *testing.T) {
	assert.NoError(t, TradeSinks{}.HandleTrades([]events.TradeEvent{{Seq: 1}}))
}
