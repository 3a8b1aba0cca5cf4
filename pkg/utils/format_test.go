package utils

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestFormatIndianCurrency(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{0, "₹0.00"},
		{999, "₹999.00"},
		{1000, "₹1,000.00"},
		{100000, "₹1,00,000.00"},
		{1234567.89, "₹12,34,567.89"},
		{10000000, "₹1,00,00,000.00"},
		{-2500.5, "-₹2,500.50"},
	}
	for _, tt := range tests {
		if got := FormatIndianCurrency(tt.amount); got != tt.want {
			t.Errorf("FormatIndianCurrency(%v) = %s, want %s", tt.amount, got, tt.want)
		}
	}
}

func TestFormatPnL(t *testing.T) {
	tests := []struct {
		pnl  float64
		want string
	}{
		{2250, "+₹2,250.00"},
		{0, "₹0.00"},
		{-1125, "-₹1,125.00"},
	}
	for _, tt := range tests {
		if got := FormatPnL(tt.pnl); got != tt.want {
			t.Errorf("FormatPnL(%v) = %s, want %s", tt.pnl, got, tt.want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{2.25, "+2.25%"},
		{0, "0.00%"},
		{-1.5, "-1.50%"},
	}
	for _, tt := range tests {
		if got := FormatPercent(tt.value); got != tt.want {
			t.Errorf("FormatPercent(%v) = %s, want %s", tt.value, got, tt.want)
		}
	}
}

// Property: grouping never changes the digits, only inserts separators.
func TestPropertyIndianGroupingPreservesDigits(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("digits survive grouping", prop.ForAll(
		func(amount int64) bool {
			formatted := FormatIndianCurrency(float64(amount))

			stripped := strings.NewReplacer("₹", "", ",", "", "-", "").Replace(formatted)
			parts := strings.Split(stripped, ".")
			if len(parts) != 2 || parts[1] != "00" {
				t.Logf("unexpected shape: %s", formatted)
				return false
			}

			n := amount
			if n < 0 {
				n = -n
			}
			var wantDigits string
			if n == 0 {
				wantDigits = "0"
			} else {
				for n > 0 {
					wantDigits = string(rune('0'+n%10)) + wantDigits
					n /= 10
				}
			}
			if parts[0] != wantDigits {
				t.Logf("digits %s, want %s (from %s)", parts[0], wantDigits, formatted)
				return false
			}
			return true
		},
		gen.Int64Range(-1e12, 1e12),
	))

	properties.TestingRun(t)
}

// Property: after the first group of three, separators repeat every
// two digits from the right.
func TestPropertyIndianGroupShapes(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("3-then-2 grouping", prop.ForAll(
		func(amount int64) bool {
			formatted := FormatIndianCurrency(float64(amount))
			intPart := strings.TrimPrefix(strings.Split(formatted, ".")[0], "₹")

			groups := strings.Split(intPart, ",")
			last := groups[len(groups)-1]
			if len(last) > 3 {
				t.Logf("rightmost group %q too wide in %s", last, formatted)
				return false
			}
			for i := 1; i < len(groups)-1; i++ {
				if len(groups[i]) != 2 {
					t.Logf("middle group %q not two digits in %s", groups[i], formatted)
					return false
				}
			}
			if len(groups) > 1 && (len(groups[0]) < 1 || len(groups[0]) > 2) {
				t.Logf("leading group %q in %s", groups[0], formatted)
				return false
			}
			return true
		},
		gen.Int64Range(0, 1e12),
	))

	properties.TestingRun(t)
}
