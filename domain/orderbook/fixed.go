package orderbook

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	errNegative   = errors.New("negative")
	errTooPrecise = errors.New("too precise")
	errOverflow   = errors.New("overflow")
	errTooLong    = errors.New("too many digits")
)

const (
	// maxInputLen bounds a decimal string before it is parsed.
	maxInputLen = 64
	// maxDigits bounds the coefficient of a decimal before it is scaled.
	maxDigits = 48
	// maxQuoted is how much of a rejected input ends up in an error.
	maxQuoted = 32
)

var maxUnits = decimal.NewFromInt(math.MaxInt64)

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if len(s) > maxInputLen {
		return decimal.Decimal{}, errTooLong
	}
	return decimal.NewFromString(s)
}

// toUnits converts d to an integer count of 10^-scale units without rounding.
// The exponent is range checked first so inputs like "1e-20000000" never
// reach the big.Int arithmetic.
func toUnits(d decimal.Decimal, scale int32) (int64, error) {
	switch {
	case d.IsNegative():
		return 0, errNegative
	case d.IsZero():
		return 0, nil
	case d.NumDigits() > maxDigits:
		return 0, errTooLong
	}

	// coefficient is in [1, 10^maxDigits), so below this bound the scaled
	// value is a nonzero fraction and above it exceeds int64.
	exp := int64(d.Exponent()) + int64(scale)
	if exp < -maxDigits {
		return 0, errTooPrecise
	}
	if exp > 19 {
		return 0, errOverflow
	}

	shifted := d.Shift(scale)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, errTooPrecise
	}
	if shifted.GreaterThan(maxUnits) {
		return 0, errOverflow
	}
	return shifted.IntPart(), nil
}

// unitsError maps a toUnits failure onto the exported sentinels.
func unitsError(err, invalid error, kind, what string, scale int32) error {
	if errors.Is(err, errTooPrecise) {
		return fmt.Errorf("%w: %s %s has more than %d fractional digits", ErrPrecisionLoss, kind, what, scale)
	}
	return fmt.Errorf("%w: %s %s (%v)", invalid, kind, what, err)
}

// quote clips s so a hostile input cannot blow up an error message.
func quote(s string) string {
	if len(s) > maxQuoted {
		return strconv.Quote(s[:maxQuoted]) + "..."
	}
	return strconv.Quote(s)
}

// describe renders d for an error without expanding a huge exponent.
func describe(d decimal.Decimal) string {
	if n := d.NumDigits(); n > maxDigits || d.Exponent() < -2*maxDigits || d.Exponent() > maxDigits {
		return fmt.Sprintf("(%d digits, exponent %d)", n, d.Exponent())
	}
	return d.String()
}
