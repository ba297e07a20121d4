package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"options-analyzer/internal/models"
)

func TestFormatCurrency(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "$0.00"},
		{5.5, "$5.50"},
		{1234.56, "$1,234.56"},
		{1234567.89, "$1,234,567.89"},
		{-987.65, "-$987.65"},
		{-1234567.89, "-$1,234,567.89"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatCurrency(tc.in))
	}
}

func TestFormatPnLSign(t *testing.T) {
	assert.Equal(t, "+$42.00", FormatPnL(42))
	assert.Equal(t, "-$42.00", FormatPnL(-42))
	assert.Equal(t, "$0.00", FormatPnL(0))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "+12.50%", FormatPercent(12.5))
	assert.Equal(t, "-3.00%", FormatPercent(-3))
	assert.Equal(t, "0.00%", FormatPercent(0))
}

func TestFormatVolume(t *testing.T) {
	assert.Equal(t, "500", FormatVolume(500))
	assert.Equal(t, "1.50K", FormatVolume(1500))
	assert.Equal(t, "2.30M", FormatVolume(2_300_000))
	assert.Equal(t, "1.20B", FormatVolume(1_200_000_000))
}

func TestFormatExtremum(t *testing.T) {
	assert.Equal(t, "$7.00", FormatExtremum(models.Bounded(7)))
	assert.Equal(t, "unbounded", FormatExtremum(models.UnboundedExtremum()))
}

func TestFormatDate(t *testing.T) {
	d := time.Date(2026, 7, 17, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, "17-Jul-2026", FormatDate(d))
	assert.Equal(t, "17-Jul-2026 15:04:05", FormatDateTime(d))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "abcdefg...", TruncateString("abcdefghijkl", 10))
	assert.Equal(t, "ab", TruncateString("abcdef", 2))
}

func TestParseStrategy(t *testing.T) {
	cases := map[string]models.StrategyType{
		"bull_call":   models.BullCallSpread,
		"bull-call":   models.BullCallSpread,
		"BEAR_PUT":    models.BearPutSpread,
		"iron_condor": models.IronCondor,
		"straddle":    models.LongStraddle,
	}
	for in, want := range cases {
		got, ok := parseStrategy(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got)
	}

	_, ok := parseStrategy("calendar")
	assert.False(t, ok)
}
