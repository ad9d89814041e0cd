package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPercent(t *testing.T) {
	cases := []struct {
		amount int64
		frac   string
		want   int64
	}{
		{2000, "0.08", 160},
		{1800, "0.08", 144},
		{2000, "0.10", 200},
		{1850, "0.01", 18}, // 18.5 rounds half-even down
		{1750, "0.01", 18}, // 17.5 rounds half-even up
		{0, "0.08", 0},
	}
	for _, c := range cases {
		frac, err := decimal.NewFromString(c.frac)
		if err != nil {
			t.Fatalf("bad fraction %q: %v", c.frac, err)
		}
		if got := Percent(c.amount, frac); got != c.want {
			t.Errorf("Percent(%d, %s) = %d, want %d", c.amount, c.frac, got, c.want)
		}
	}
}

func TestPercentIsDeterministic(t *testing.T) {
	frac := decimal.RequireFromString("0.0825")
	first := Percent(19999, frac)
	for i := 0; i < 100; i++ {
		if got := Percent(19999, frac); got != first {
			t.Fatalf("iteration %d: got %d, first %d", i, got, first)
		}
	}
}

func TestConvert(t *testing.T) {
	// 10.00 EUR at 1.1 -> 11.00 USD
	if got := Convert(1000, "EUR", "USD", decimal.RequireFromString("1.1")); got != 1100 {
		t.Errorf("EUR->USD: got %d, want 1100", got)
	}
	// 1.00 USD at 15000 -> 15000 IDR (zero-exponent target)
	if got := Convert(100, "USD", "IDR", decimal.NewFromInt(15000)); got != 15000 {
		t.Errorf("USD->IDR: got %d, want 15000", got)
	}
	// 0.01 USD at 150 -> 1.5 JPY, half-even to 2
	if got := Convert(1, "USD", "JPY", decimal.NewFromInt(150)); got != 2 {
		t.Errorf("USD->JPY: got %d, want 2", got)
	}
}

func TestExponent(t *testing.T) {
	if Exponent("USD") != 2 || Exponent("IDR") != 0 || Exponent("BHD") != 3 {
		t.Fatal("known currency exponents wrong")
	}
	if Exponent("XXX") != 2 {
		t.Fatal("unknown currency should default to 2")
	}
}

func TestClamp(t *testing.T) {
	if Clamp(-5, 100) != 0 {
		t.Error("negative should clamp to 0")
	}
	if Clamp(150, 100) != 100 {
		t.Error("over max should clamp to max")
	}
	if Clamp(42, 100) != 42 {
		t.Error("in range should pass through")
	}
}
