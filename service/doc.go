// Package service is the only write entry point into the books.
//
// MatchingEngine maps trading pairs to their own OrderBook, serializes
// access per pair, stamps order ids and trade sequence numbers and hands
// executed trades to a TradeSink once the book lock is released.
package service
