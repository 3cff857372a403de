package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money is an amount in cents.
type Money int64

// ParseMoney parses a decimal amount with at most two fractional digits, like "1234.5".
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimals", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	if whole == "" {
		whole = "0"
	}
	if !digits(whole) || !digits(frac) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units < 0 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil || cents < 0 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if units > (math.MaxInt64-cents)/100 {
		return 0, fmt.Errorf("amount %q out of range", s)
	}

	m := Money(units*100 + cents)
	if neg {
		m = -m
	}
	return m, nil
}

// digits reports whether s only holds ASCII digits.
func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// String formats the amount with two decimals and no grouping, like "-12.50".
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Format returns the amount for display, with a currency sign and thousands separators, like "$1,234.50".
func (m Money) Format() string {
	return message.NewPrinter(language.AmericanEnglish).Sprintf("$%.2f", m.Float64())
}

// Float64 returns the amount in currency units.
func (m Money) Float64() float64 {
	return float64(m) / 100
}

// Percent returns p percent of m, rounded half away from zero to the cent.
func (m Money) Percent(p float64) Money {
	return Money(math.Round(float64(m) * p / 100))
}

// Times returns m multiplied by a quantity.
func (m Money) Times(q int64) Money {
	return m * Money(q)
}

// MarshalJSON encodes the amount as a decimal string to avoid float rounding.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both a decimal string and a JSON number.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
