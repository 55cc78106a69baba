package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int64
		wantErr bool
	}{
		{"dot separator", "12.34", 1234, false},
		{"comma separator", "12,34", 1234, false},
		{"integer", "7", 700, false},
		{"third decimal rounds up", "12.346", 1235, false},
		{"third decimal rounds down", "12.344", 1234, false},
		{"zero rejected", "0", 0, true},
		{"negative rejected", "-3.50", 0, true},
		{"garbage rejected", "12.3.4", 0, true},
		{"empty rejected", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAmount(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got.Cents != tt.want {
				t.Errorf("ParseAmount(%q) = %d cents, want %d", tt.in, got.Cents, tt.want)
			}
		})
	}
}

func TestMoney_Arithmetic(t *testing.T) {
	a := Money{Cents: 1500}
	b := Money{Cents: 2000}

	if got := a.Add(b); got.Cents != 3500 {
		t.Errorf("Add = %d, want 3500", got.Cents)
	}
	if got := a.Sub(b); got.Cents != -500 || !got.IsNegative() {
		t.Errorf("Sub = %d, want -500 and negative", got.Cents)
	}
	if got := a.Sub(b).Abs(); got.Cents != 500 {
		t.Errorf("Abs = %d, want 500", got.Cents)
	}
	if got := a.MulInt(3); got.Cents != 4500 {
		t.Errorf("MulInt = %d, want 4500", got.Cents)
	}
}

func TestMoney_CompoundMonthly(t *testing.T) {
	m := Money{Cents: 10000} // 100.00 at 1%/month

	if got := m.CompoundMonthly(decimal.NewFromFloat(0.01), 0); got != m {
		t.Errorf("zero months should not change the amount, got %d", got.Cents)
	}
	if got := m.CompoundMonthly(decimal.NewFromFloat(0.01), 2); got.Cents != 10201 {
		t.Errorf("CompoundMonthly(1%%, 2) = %d cents, want 10201", got.Cents)
	}
}

func TestMoney_String(t *testing.T) {
	if got := (Money{Cents: 1234}).String(); got != "12.34" {
		t.Errorf("String() = %q, want %q", got, "12.34")
	}
	if got := (Money{Cents: -50}).String(); got != "-0.50" {
		t.Errorf("String() = %q, want %q", got, "-0.50")
	}
}
