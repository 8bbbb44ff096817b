package service

import (
	"errors"

	"matchbook/domain/orderbook"
)

var (
	ErrMarketNotFound      = errors.New("market not found")
	ErrMarketAlreadyExists = errors.New("market already exists")
	ErrInvalidPair         = errors.New("invalid trading pair")
)

// rejectReason is the metrics label for a refused order.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrMarketNotFound):
		return "unknown_market"
	case errors.Is(err, orderbook.ErrPrecisionLoss):
		return "precision"
	case errors.Is(err, orderbook.ErrInvalidPrice):
		return "invalid_price"
	case errors.Is(err, orderbook.ErrInvalidSize):
		return "invalid_size"
	case errors.Is(err, orderbook.ErrInvalidOrder):
		return "invalid_order"
	default:
		return "other"
	}
}
