package orderbook

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// PriceScale is the number of fractional digits a Price can carry.
const PriceScale = 5

// Price is a fixed-point price counted in 10^-PriceScale units.
// Equal decimal inputs always produce equal Price values, so a Price
// is safe to use as a map key.
type Price int64

// ParsePrice builds a Price from a decimal string such as "20.6".
// Strings longer than 64 bytes are rejected unparsed.
func ParsePrice(s string) (Price, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidPrice, quote(s))
	}
	units, err := toUnits(d, PriceScale)
	if err != nil {
		return 0, unitsError(err, ErrInvalidPrice, "price", quote(s), PriceScale)
	}
	return Price(units), nil
}

// NewPrice builds a Price from an exact decimal. Inputs finer than
// PriceScale digits are rejected, never truncated.
func NewPrice(d decimal.Decimal) (Price, error) {
	units, err := toUnits(d, PriceScale)
	if err != nil {
		return 0, unitsError(err, ErrInvalidPrice, "price", describe(d), PriceScale)
	}
	return Price(units), nil
}

// PriceFromFloat uses the shortest decimal representation of f.
func PriceFromFloat(f float64) (Price, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v is not finite", ErrInvalidPrice, f)
	}
	return NewPrice(decimal.NewFromFloat(f))
}

func PriceFromUnits(n int64) (Price, error) {
	if n < 0 {
		return 0, fmt.Errorf("%w: negative units %d", ErrInvalidPrice, n)
	}
	return Price(n), nil
}

// MustPrice is ParsePrice for constants and tests.
func MustPrice(s string) Price {
	p, err := ParsePrice(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Price) Units() int64 { return int64(p) }

func (p Price) Cmp(o Price) int {
	switch {
	case p < o:
		return -1
	case p > o:
		return 1
	}
	return 0
}

func (p Price) Decimal() decimal.Decimal {
	return decimal.New(int64(p), -PriceScale)
}

func (p Price) String() string {
	return p.Decimal().String()
}
