package orderbook

import "errors"

var (
	ErrInvalidPrice  = errors.New("invalid price")
	ErrPrecisionLoss = errors.New("precision loss")
	ErrInvalidSize   = errors.New("invalid size")
	ErrInvalidOrder  = errors.New("invalid order")

	// ErrOverFill means a fill larger than the order's remaining size was
	// requested. Inside the matching walk it is a broken invariant and panics.
	ErrOverFill = errors.New("over fill")
)
