package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
	}{
		{"1", 100},
		{"1.23", 123},
		{"1,23", 123},
		{"0.01", 1},
		{" 2.50 ", 250},
		{"300000", 30000000},
		{"1.234.567", 123456700},   // dots only, repeated: thousands
		{"1.234.567,89", 123456789}, // comma last: decimal
		{"1,234,567.89", 123456789}, // dot last: decimal
		{"100000₫", 10000000},
		{"100 000 đ", 10000000},
		{"-42", -4200},
		{"", 0},
		{"abc", 0},
		{"1,2,3", 0}, // lone commas that do not parse normalize to zero
	}
	for _, tc := range cases {
		if got := ParseAmount(tc.in); got.Cents != tc.cents {
			t.Errorf("ParseAmount(%q) = %d cents, want %d", tc.in, got.Cents, tc.cents)
		}
	}
}

func TestParseWholeAmount(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
	}{
		{"4000000", 400000000},
		{"4.000.000", 400000000},
		{"150000,4", 15000000},
		{"150000,5", 15000100}, // rounds half away from zero
		{"", 0},
		{"x", 0},
	}
	for _, tc := range cases {
		if got := ParseWholeAmount(tc.in); got.Cents != tc.cents {
			t.Errorf("ParseWholeAmount(%q) = %d cents, want %d", tc.in, got.Cents, tc.cents)
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		m    Money
		want string
	}{
		{FromCents(123), "1.23"},
		{FromCents(-50), "-0.50"},
		{FromUnits(300000), "300000.00"},
		{Zero, "0.00"},
	}
	for _, tc := range cases {
		if got := tc.m.String(); got != tc.want {
			t.Errorf("%d cents: got %q, want %q", tc.m.Cents, got, tc.want)
		}
	}
}

func TestMoneyAbs(t *testing.T) {
	cases := []struct {
		m    Money
		want int64
	}{
		{FromCents(-250), 250},
		{FromCents(250), 250},
		{Zero, 0},
	}
	for _, tc := range cases {
		if got := tc.m.Abs(); got.Cents != tc.want {
			t.Errorf("Abs(%d) = %d cents, want %d", tc.m.Cents, got.Cents, tc.want)
		}
	}
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	m := FromCents(-123456)
	data, err := m.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "-123456" {
		t.Fatalf("marshal: got %s, want -123456", data)
	}
	var back Money
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != m {
		t.Fatalf("round trip: got %v, want %v", back, m)
	}
}
