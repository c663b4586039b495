package discount

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name string
		base decimal.Decimal
		spec Spec
		want decimal.Decimal
	}{
		{
			name: "percentage 20% of 200",
			base: d("200"),
			spec: Spec{Type: Percentage, Value: d("20")},
			want: d("40"),
		},
		{
			name: "percentage rounds half-up at odd cents",
			base: d("10.01"),
			spec: Spec{Type: Percentage, Value: d("33")},
			want: d("3.30"), // 3.3033 -> 3.30
		},
		{
			name: "percentage half cent rounds up",
			base: d("0.50"),
			spec: Spec{Type: Percentage, Value: d("33")},
			want: d("0.17"), // 0.165 -> 0.17
		},
		{
			name: "percentage capped by max amount",
			base: d("10000"),
			spec: Spec{Type: Percentage, Value: d("50"), MaxAmount: d("2000")},
			want: d("2000"),
		},
		{
			name: "percentage under cap is untouched",
			base: d("100"),
			spec: Spec{Type: Percentage, Value: d("10"), MaxAmount: d("2000")},
			want: d("10"),
		},
		{
			name: "percentage 100% equals base",
			base: d("42.50"),
			spec: Spec{Type: Percentage, Value: d("100")},
			want: d("42.50"),
		},
		{
			name: "fixed discount",
			base: d("100"),
			spec: Spec{Type: Fixed, Value: d("9")},
			want: d("9"),
		},
		{
			name: "fixed discount capped at base",
			base: d("500"),
			spec: Spec{Type: Fixed, Value: d("1000")},
			want: d("500"),
		},
		{
			name: "negative value clamps to zero",
			base: d("100"),
			spec: Spec{Type: Fixed, Value: d("-5")},
			want: decimal.Zero,
		},
		{
			name: "zero base yields zero",
			base: decimal.Zero,
			spec: Spec{Type: Percentage, Value: d("50")},
			want: decimal.Zero,
		},
		{
			name: "unknown type yields zero",
			base: d("100"),
			spec: Spec{Type: Type("buy_one"), Value: d("50")},
			want: decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.base, tt.spec)
			assert.True(t, tt.want.Equal(got), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestCalculateNeverExceedsBase(t *testing.T) {
	bases := []string{"0", "0.01", "9.99", "100", "12345.67"}
	specs := []Spec{
		{Type: Percentage, Value: d("100")},
		{Type: Percentage, Value: d("33"), MaxAmount: d("5")},
		{Type: Fixed, Value: d("99999")},
	}

	for _, b := range bases {
		base := d(b)
		for _, spec := range specs {
			got := Calculate(base, spec)
			assert.False(t, got.IsNegative(), "discount on %s went negative", b)
			assert.True(t, got.LessThanOrEqual(base), "discount %s exceeds base %s", got, base)
		}
	}
}
