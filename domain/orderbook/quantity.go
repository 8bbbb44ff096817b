package orderbook

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// QuantityScale is the number of fractional digits a Quantity can carry.
const QuantityScale = 8

// Quantity is a fixed-point size counted in 10^-QuantityScale units.
// The largest size is MaxQuantity, 92233720368.54775807. A price level
// holds at most that much in total as well.
type Quantity int64

const MaxQuantity = Quantity(math.MaxInt64)

func ParseQuantity(s string) (Quantity, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidSize, quote(s))
	}
	units, err := toUnits(d, QuantityScale)
	if err != nil {
		return 0, unitsError(err, ErrInvalidSize, "size", quote(s), QuantityScale)
	}
	return Quantity(units), nil
}

func NewQuantity(d decimal.Decimal) (Quantity, error) {
	units, err := toUnits(d, QuantityScale)
	if err != nil {
		return 0, unitsError(err, ErrInvalidSize, "size", describe(d), QuantityScale)
	}
	return Quantity(units), nil
}

func QuantityFromUnits(n int64) (Quantity, error) {
	if n < 0 {
		return 0, fmt.Errorf("%w: negative units %d", ErrInvalidSize, n)
	}
	return Quantity(n), nil
}

func MustQuantity(s string) Quantity {
	q, err := ParseQuantity(s)
	if err != nil {
		panic(err)
	}
	return q
}

func (q Quantity) Units() int64 { return int64(q) }

func (q Quantity) IsZero() bool { return q == 0 }

func (q Quantity) Min(o Quantity) Quantity {
	if o < q {
		return o
	}
	return q
}

func (q Quantity) Decimal() decimal.Decimal {
	return decimal.New(int64(q), -QuantityScale)
}

// Float64 is lossy and meant for metrics only.
func (q Quantity) Float64() float64 {
	return q.Decimal().InexactFloat64()
}

func (q Quantity) String() string {
	return q.Decimal().String()
}
