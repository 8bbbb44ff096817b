package main

import (
	"go.uber.org/zap"

	"matchbook/domain/orderbook"
	"matchbook/service"
)

const demoPair = "DEMO-USD"

// seedDemo rests two asks and sweeps them with a market buy so a fresh
// deployment has a trade to show on /metrics and the event topic.
func seedDemo(engine *service.MatchingEngine, logger *zap.Logger) {
	if err := engine.AddNewMarket(demoPair); err != nil {
		logger.Warn("demo market", zap.Error(err))
		return
	}
	for _, o := range []struct{ price, size string }{{"100", "10"}, {"200", "10"}} {
		if _, err := engine.SubmitLimitOrder(demoPair, o.price, orderbook.Ask, o.size); err != nil {
			logger.Warn("demo order", zap.Error(err))
			return
		}
	}

	report, err := engine.SubmitMarketOrder(demoPair, orderbook.Bid, "15")
	if err != nil {
		logger.Warn("demo market order", zap.Error(err))
		return
	}
	best, _ := engine.QueryBestAsk(demoPair)
	logger.Info("demo seeded",
		zap.Stringer("matched", report.TotalMatched),
		zap.Bool("fully_filled", report.FullyFilled),
		zap.Int("trades", len(report.Trades)),
		zap.Stringer("best_ask", best),
	)
}
