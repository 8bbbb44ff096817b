package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "matchbook"

var (
	// Labels: pair, bid/ask, limit/market
	OrdersReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_received_total",
			Help:      "Orders submitted to the matching engine",
		},
		[]string{"pair", "side", "type"},
	)

	OrdersRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_rejected_total",
			Help:      "Orders refused before reaching a book",
		},
		[]string{"pair", "reason"},
	)

	TradesExecutedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_executed_total",
			Help:      "Individual executions against resting orders",
		},
		[]string{"pair"},
	)

	MatchedQuantityTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matched_quantity_total",
			Help:      "Quantity executed, in instrument units",
		},
		[]string{"pair"},
	)

	// Market order remainders that found no liquidity and were dropped.
	UnfilledQuantityTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unfilled_market_quantity_total",
			Help:      "Market order quantity discarded for lack of liquidity",
		},
		[]string{"pair"},
	)

	BookLevels = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "book_levels",
			Help:      "Price levels currently in the book",
		},
		[]string{"pair", "side"},
	)

	BestPrice = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_price",
			Help:      "Best bid or ask, zero when the side is empty",
		},
		[]string{"pair", "side"},
	)

	OrderLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_latency_seconds",
			Help:      "Time spent inside the engine per order",
			Buckets:   prometheus.ExponentialBuckets(0.000001, 2, 16), // 1us to ~33ms
		},
		[]string{"pair", "type"},
	)

	TradeSinkFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trade_sink_failures_total",
			Help:      "Trade batches the sink could not store",
		},
	)

	// result: acked/failed
	OutboxPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_published_total",
			Help:      "Outbox records handed to the event bus",
		},
		[]string{"result"},
	)
)

func RecordOrderReceived(pair, side, orderType string) {
	OrdersReceivedTotal.WithLabelValues(pair, side, orderType).Inc()
}

func RecordOrderRejected(pair, reason string) {
	OrdersRejectedTotal.WithLabelValues(pair, reason).Inc()
}

func RecordOrderLatency(pair, orderType string, seconds float64) {
	OrderLatencySeconds.WithLabelValues(pair, orderType).Observe(seconds)
}

func RecordTrades(pair string, trades int, quantity float64) {
	if trades == 0 {
		return
	}
	TradesExecutedTotal.WithLabelValues(pair).Add(float64(trades))
	MatchedQuantityTotal.WithLabelValues(pair).Add(quantity)
}

func RecordUnfilled(pair string, quantity float64) {
	if quantity > 0 {
		UnfilledQuantityTotal.WithLabelValues(pair).Add(quantity)
	}
}

func UpdateBook(pair string, bidLevels, askLevels int, bestBid, bestAsk float64) {
	BookLevels.WithLabelValues(pair, "bid").Set(float64(bidLevels))
	BookLevels.WithLabelValues(pair, "ask").Set(float64(askLevels))
	BestPrice.WithLabelValues(pair, "bid").Set(bestBid)
	BestPrice.WithLabelValues(pair, "ask").Set(bestAsk)
}

// ForgetPair drops every series of a removed market.
func ForgetPair(pair string) {
	labels := prometheus.Labels{"pair": pair}
	for _, v := range []*prometheus.CounterVec{
		OrdersReceivedTotal, OrdersRejectedTotal, TradesExecutedTotal,
		MatchedQuantityTotal, UnfilledQuantityTotal,
	} {
		v.DeletePartialMatch(labels)
	}
	BookLevels.DeletePartialMatch(labels)
	BestPrice.DeletePartialMatch(labels)
	OrderLatencySeconds.DeletePartialMatch(labels)
}

func RecordSinkFailure() {
	TradeSinkFailuresTotal.Inc()
}

func RecordPublished(result string) {
	OutboxPublishedTotal.WithLabelValues(result).Inc()
}
