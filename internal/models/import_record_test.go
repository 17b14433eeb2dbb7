package models

import "testing"

func f(v float64) *float64 { return &v }

func TestDeriveMarketValue(t *testing.T) {
	tests := []struct {
		name     string
		absolute *float64
		lacs     *float64
		want     *float64
	}{
		{"absolute wins", f(2500000), f(10), f(2500000)},
		{"lacs converted", nil, f(12.34), f(1234000)},
		{"zero lacs is a value", nil, f(0), f(0)},
		{"absent", nil, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveMarketValue(tt.absolute, tt.lacs)
			switch {
			case tt.want == nil && got != nil:
				t.Fatalf("expected nil, got %v", *got)
			case tt.want != nil && got == nil:
				t.Fatalf("expected %v, got nil", *tt.want)
			case tt.want != nil && *got != *tt.want:
				t.Fatalf("got %v, want %v", *got, *tt.want)
			}
		})
	}
}

func TestAfterFindSetsMarketValue(t *testing.T) {
	r := &ImportRecord{MarketValueLacs: f(1.5)}
	if err := r.AfterFind(nil); err != nil {
		t.Fatal(err)
	}
	if r.MarketValue == nil || *r.MarketValue != 150000 {
		t.Fatalf("market value = %v", r.MarketValue)
	}
}
