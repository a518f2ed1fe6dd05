// Package core holds the money representation and the domain records the
// settlement engine operates on.
//
// Money is stored as integer cents everywhere. Parsing is the only place where
// rounding happens: every amount that enters the system goes through
// ParseAmount (or ParseWholeAmount for rent figures), so the computation layers
// never see fractional drift and equality checks on balances are exact.
package core

import (
	"math"
	"strconv"
	"strings"
)

// Money is an amount in integer cents. Negative values are meaningful for
// balances (net debtor); record amounts are validated to be positive.
type Money struct {
	Cents int64
}

// Zero is the zero amount.
var Zero = Money{}

// FromCents builds a Money from raw cents.
func FromCents(c int64) Money {
	return Money{Cents: c}
}

// FromUnits builds a Money from whole currency units.
func FromUnits(u int64) Money {
	return Money{Cents: u * 100}
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// MulInt scales the amount by an integer factor (unit price times headcount,
// price per kWh times usage).
func (m Money) MulInt(n int64) Money { return Money{Cents: m.Cents * n} }

func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

func (m Money) IsZero() bool     { return m.Cents == 0 }
func (m Money) IsPositive() bool { return m.Cents > 0 }
func (m Money) IsNegative() bool { return m.Cents < 0 }

// Less reports whether m is strictly smaller than o.
func (m Money) Less(o Money) bool { return m.Cents < o.Cents }

// Min returns the smaller of the two amounts.
func (m Money) Min(o Money) Money {
	if o.Cents < m.Cents {
		return o
	}
	return m
}

// Units returns the amount in whole currency units, truncating cents.
func (m Money) Units() int64 { return m.Cents / 100 }

// Float returns the amount in currency units for display purposes only.
// Calculations stay in cents.
func (m Money) Float() float64 { return float64(m.Cents) / 100.0 }

func (m Money) String() string {
	sign := ""
	c := m.Cents
	if c < 0 {
		sign = "-"
		c = -c
	}
	return sign + strconv.FormatInt(c/100, 10) + "." + pad2(c%100)
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

// MarshalJSON encodes the amount as a bare integer of cents, which keeps
// persisted report snapshots stable and order-independent.
func (m Money) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, m.Cents, 10), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	c, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return err
	}
	m.Cents = c
	return nil
}

// ParseAmount normalizes a raw user-entered amount to cents.
//
// Separator rules: when both "." and "," appear, the one that occurs last is
// the decimal separator and the other marks thousands; a lone "," is a decimal
// separator; two or more "." with no comma are thousands separators. Currency
// symbols and spaces are stripped. Anything that still fails to parse
// normalizes to zero; malformed upstream input is tolerated, not raised.
func ParseAmount(s string) Money {
	f, ok := parseNumeric(s)
	if !ok {
		return Zero
	}
	return Money{Cents: int64(math.Round(f * 100))}
}

// ParseWholeAmount is ParseAmount rounded to whole currency units. Rent
// figures are tracked without cents.
func ParseWholeAmount(s string) Money {
	f, ok := parseNumeric(s)
	if !ok {
		return Zero
	}
	return FromUnits(int64(math.Round(f)))
}

func parseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	// Strip currency markers and embedded spaces.
	s = strings.Map(func(r rune) rune {
		switch r {
		case '₫', 'đ', 'Đ', ' ', ' ':
			return -1
		}
		return r
	}, s)

	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')
	switch {
	case lastDot >= 0 && lastComma >= 0:
		// The later separator is the decimal one.
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		s = strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") >= 2:
		s = strings.ReplaceAll(s, ".", "")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// SumMoney adds up a map of amounts.
func SumMoney(values map[string]Money) Money {
	var total Money
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
