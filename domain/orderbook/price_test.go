package orderbook

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriceEqualDecimalsAreEqualKeys(t *testing.T) {
	a, err := ParsePrice("20.60000")
	require.NoError(t, err)
	b, err := ParsePrice("20.6")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, int64(2060000), a.Units())

	m := map[Price]string{a: "first"}
	m[b] = "second"
	assert.Len(t, m, 1)
	assert.Equal(t, "second", m[a])
	assert.Equal(t, "20.6", a.String())
}

func TestParsePriceRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"negative", "-1", ErrInvalidPrice},
		{"garbage", "abc", ErrInvalidPrice},
		{"empty", "", ErrInvalidPrice},
		{"nan", "NaN", ErrInvalidPrice},
		{"inf", "Inf", ErrInvalidPrice},
		{"overflow", "1e30", ErrInvalidPrice},
		{"too precise", "1.000001", ErrPrecisionLoss},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePrice(tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParsePriceAcceptsScaleBoundary(t *testing.T) {
	p, err := ParsePrice("0.00001")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.Units())

	zero, err := ParsePrice("0")
	require.NoError(t, err)
	assert.Equal(t, Price(0), zero)

	// trailing zeros beyond the scale carry no information
	p, err = ParsePrice("1.0000000")
	require.NoError(t, err)
	assert.Equal(t, MustPrice("1"), p)
}

func TestPriceFromFloat(t *testing.T) {
	p, err := PriceFromFloat(20.6)
	require.NoError(t, err)
	assert.Equal(t, MustPrice("20.6"), p)

	_, err = PriceFromFloat(math.NaN())
	assert.ErrorIs(t, err, ErrInvalidPrice)
	_, err = PriceFromFloat(math.Inf(1))
	assert.ErrorIs(t, err, ErrInvalidPrice)
	_, err = PriceFromFloat(-0.5)
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestPriceOrdering(t *testing.T) {
	lo := MustPrice("99.99999")
	hi := MustPrice("100")
	assert.Equal(t, -1, lo.Cmp(hi))
	assert.Equal(t, 1, hi.Cmp(lo))
	assert.Equal(t, 0, hi.Cmp(MustPrice("100.00")))
	assert.True(t, hi.Decimal().Equal(decimal.NewFromInt(100)))

	_, err := PriceFromUnits(-1)
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestParseQuantity(t *testing.T) {
	q, err := ParseQuantity("10.5")
	require.NoError(t, err)
	assert.Equal(t, int64(1_050_000_000), q.Units())
	assert.Equal(t, "10.5", q.String())

	_, err = ParseQuantity("-3")
	assert.ErrorIs(t, err, ErrInvalidSize)
	_, err = ParseQuantity("0.000000001")
	assert.ErrorIs(t, err, ErrPrecisionLoss)
	_, err = ParseQuantity("ten")
	assert.ErrorIs(t, err, ErrInvalidSize)

	assert.Equal(t, MustQuantity("1"), MustQuantity("1").Min(MustQuantity("2")))
	assert.InDelta(t, 10.5, q.Float64(), 1e-9)
}

func TestParseRejectsExtremeExponentsQuickly(t *testing.T) {
	tests := []struct {
		name  string
		parse func(string) error
		input string
		want  error
	}{
		{"tiny price", func(s string) error { _, err := ParsePrice(s); return err }, "1e-20000000", ErrPrecisionLoss},
		{"huge price", func(s string) error { _, err := ParsePrice(s); return err }, "1e2000000", ErrInvalidPrice},
		{"max exponent price", func(s string) error { _, err := ParsePrice(s); return err }, "1e2147483647", ErrInvalidPrice},
		{"tiny size", func(s string) error { _, err := ParseQuantity(s); return err }, "1e-20000000", ErrPrecisionLoss},
		{"huge size", func(s string) error { _, err := ParseQuantity(s); return err }, "9e2000000", ErrInvalidSize},
		{"long size", func(s string) error { _, err := ParseQuantity(s); return err }, strings.Repeat("9", 10_000), ErrInvalidSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			err := tt.parse(tt.input)
			assert.ErrorIs(t, err, tt.want)
			assert.Less(t, len(err.Error()), 160)
			assert.Less(t, time.Since(start), time.Second)
		})
	}
}

func TestParseErrorQuotesClippedInput(t *testing.T) {
	_, err := ParsePrice("1.123456")
	require.ErrorIs(t, err, ErrPrecisionLoss)
	assert.Contains(t, err.Error(), `"1.123456"`)

	long := strings.Repeat("7", 40) + "x"
	_, err = ParseQuantity(long)
	require.ErrorIs(t, err, ErrInvalidSize)
	assert.Contains(t, err.Error(), `"`+strings.Repeat("7", maxQuoted)+`"...`)
}

func TestNewPriceDescribesHugeDecimalBriefly(t *testing.T) {
	_, err := NewPrice(decimal.New(3, -20_000_000))
	require.ErrorIs(t, err, ErrPrecisionLoss)
	assert.Contains(t, err.Error(), "exponent -20000000")

	// zero is zero whatever the exponent
	p, err := NewPrice(decimal.New(0, -20_000_000))
	require.NoError(t, err)
	assert.Equal(t, Price(0), p)
}

func TestParseQuantityCeiling(t *testing.T) {
	q, err := ParseQuantity("92233720368.54775807")
	require.NoError(t, err)
	assert.Equal(t, MaxQuantity, q)

	_, err = ParseQuantity("92233720368.54775808")
	assert.ErrorIs(t, err, ErrInvalidSize)
	_, err = ParseQuantity("100000000000")
	assert.ErrorIs(t, err, ErrInvalidSize)
}
