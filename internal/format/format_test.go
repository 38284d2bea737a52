package format

import "testing"

func TestMoney(t *testing.T) {
	tests := []struct {
		amount   float64
		currency string
		want     string
	}{
		{0, "USD", "$0.00"},
		{10, "usd", "$10.00"},
		{35.5, "USD", "$35.50"},
		{1234.5, "USD", "$1,234.50"},
		{0.005, "USD", "$0.01"},
		{-4.25, "USD", "-$4.25"},
		{-0.001, "USD", "$0.00"},
		{19.99, "EUR", "€19.99"},
		{12345, "JPY", "¥12,345"},
		{7, "CHF", "CHF 7.00"},
	}
	for _, tt := range tests {
		if got := Money(tt.amount, tt.currency); got != tt.want {
			t.Errorf("Money(%v, %q) = %q, want %q", tt.amount, tt.currency, got, tt.want)
		}
	}
}

func TestDecimal(t *testing.T) {
	if got := Decimal(1234.5); got != "1234.50" {
		t.Fatalf("Decimal = %q", got)
	}
	if got := Decimal(0.1 + 0.2); got != "0.30" {
		t.Fatalf("Decimal = %q", got)
	}
}

func TestQuantity(t *testing.T) {
	if got := Quantity("Canvas Tote", 2); got != "Canvas Tote (x2)" {
		t.Fatalf("Quantity = %q", got)
	}
}
