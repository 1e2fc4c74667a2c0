package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input   string
		display string
	}{
		{"1", "1.0000"},
		{"1.5", "1.5000"},
		{" 2.75 ", "2.7500"},
		{"0", "0.0000"},
		{"0.0001", "0.0001"},
		{"1.50000", "1.5000"},
		{"-3.2", "-3.2000"},
		{"123456789.1234", "123456789.1234"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			a, err := ParseAmount(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.display, a.String())
		})
	}
}

func TestParseAmountErrors(t *testing.T) {
	for _, input := range []string{"", "   ", "abc", "1.2.3", "1,5"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseAmount(input)
			assert.Error(t, err)
		})
	}
}

func TestParseAmountExcessPrecision(t *testing.T) {
	for _, input := range []string{"1.00005", "0.00005", "-0.00001", "0.000000001"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseAmount(input)
			require.ErrorIs(t, err, ErrExcessPrecision)
		})
	}
}

func TestMustParseAmountPanics(t *testing.T) {
	assert.Panics(t, func() { _ = MustParseAmount("nope") })
}

func TestAmountArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Amount
		expected Amount
	}{
		{"Add", func() Amount { return MustParseAmount("1.5").Add(MustParseAmount("2.25")) }, MustParseAmount("3.75")},
		{"Sub", func() Amount { return MustParseAmount("5").Sub(MustParseAmount("3")) }, MustParseAmount("2")},
		{"Sub below zero", func() Amount { return MustParseAmount("1").Sub(MustParseAmount("3")) }, MustParseAmount("-2")},
		{"Min", func() Amount { return MustParseAmount("4").Min(MustParseAmount("3.9999")) }, MustParseAmount("3.9999")},
		{"NewAmount", func() Amount { return NewAmount(15000) }, MustParseAmount("1.5")},
		{"FromDecimal rounds", func() Amount { return FromDecimal(decimal.RequireFromString("0.00015")) }, MustParseAmount("0.0002")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.op()
			assert.True(t, result.Equal(tt.expected), "got %v, want %v", result, tt.expected)
		})
	}
}

// Decimal arithmetic must not drift the way 0.1+0.2 does in binary floats.
func TestAmountNoFloatDrift(t *testing.T) {
	sum := Sum(MustParseAmount("0.1"), MustParseAmount("0.2"))
	assert.Equal(t, "0.3000", sum.String())

	total := Zero()
	for i := 0; i < 1000; i++ {
		total = total.Add(MustParseAmount("0.0001"))
	}
	assert.True(t, total.Equal(MustParseAmount("0.1")))
}

func TestAmountComparison(t *testing.T) {
	tests := []struct {
		name  string
		a, b  Amount
		less  bool
		geq   bool
		equal bool
	}{
		{"Equal", MustParseAmount("1.5"), MustParseAmount("1.50"), false, true, true},
		{"Less", MustParseAmount("0.5"), MustParseAmount("1"), true, false, false},
		{"Greater", MustParseAmount("2"), MustParseAmount("1"), false, true, false},
		{"Zero", Zero(), Amount{}, false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.less, tt.a.LessThan(tt.b))
			assert.Equal(t, tt.geq, tt.a.GreaterOrEqual(tt.b))
			assert.Equal(t, tt.equal, tt.a.Equal(tt.b))
		})
	}
}

func TestAmountPredicates(t *testing.T) {
	assert.True(t, Zero().IsZero())
	assert.False(t, Zero().IsPositive())
	assert.False(t, Zero().IsNegative())

	assert.True(t, MustParseAmount("0.0001").IsPositive())
	assert.True(t, MustParseAmount("-0.0001").IsNegative())
}

func TestAmountJSON(t *testing.T) {
	data, err := json.Marshal(MustParseAmount("49"))
	require.NoError(t, err)
	assert.Equal(t, `"49.0000"`, string(data))

	var fromString Amount
	require.NoError(t, json.Unmarshal([]byte(`"1.25"`), &fromString))
	assert.Equal(t, "1.2500", fromString.String())

	var fromNumber Amount
	require.NoError(t, json.Unmarshal([]byte(`1.25`), &fromNumber))
	assert.True(t, fromNumber.Equal(fromString))
}

func TestSum(t *testing.T) {
	assert.True(t, Sum().IsZero())
	assert.Equal(t, "6.0000", Sum(MustParseAmount("1"), MustParseAmount("2"), MustParseAmount("3")).String())
}

func BenchmarkAmountAdd(b *testing.B) {
	a1 := MustParseAmount("1.2345")
	a2 := MustParseAmount("2.5")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = a1.Add(a2)
	}
}

func BenchmarkAmountString(b *testing.B) {
	a := MustParseAmount("4900.5")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = a.String()
	}
}
