package orderbook

import "testing"

func BenchmarkAddLimitOrder(b *testing.B) {
	book := NewOrderBook()
	size := MustQuantity("1")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		o, _ := NewOrderWithID(OrderID(i+1), Bid, size)
		_ = book.AddLimitOrder(Price(100_00000+i%512), o)
	}
}

func BenchmarkFillMarketOrder(b *testing.B) {
	book := NewOrderBook()
	size := MustQuantity("1")
	for i := 0; i < b.N; i++ {
		o, _ := NewOrderWithID(OrderID(i+1), Ask, size)
		_ = book.AddLimitOrder(Price(100_00000+i%512), o)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		o, _ := NewOrder(Bid, size)
		_, _ = book.FillMarketOrder(o)
	}
}
