// Package orderbook implements the single-instrument limit order book and
// its matching algorithm. It keeps one ordered ladder of price levels per
// side, each level a FIFO queue of resting orders, and fills incoming
// market orders under strict price-time priority.
//
// Prices and quantities are exact fixed-point integers. An OrderBook is
// single-writer: callers serialize every mutation of one book.
package orderbook
