// Package core provides money parsing and handling utilities.
//
// Amounts are whole currency units (rupees). Fractional input is accepted
// only when the fraction is zero, which is how spreadsheet exports tend to
// write integers ("3000.0").
package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Money is an amount in whole currency units.
type Money int64

// MaxAmount caps any single amount so that a student's yearly total
// (twelve months plus two one-off charges) and sums over many records stay
// far from int64 overflow.
const MaxAmount Money = 1_000_000_000

// ParseAmount converts a user or CSV supplied string to Money.
//
// It accepts thousands separators and an optional "Rs." prefix. Negative
// values, values above MaxAmount, non-zero fractions and garbage are
// rejected with ErrInvalidInput.
//
// Examples:
//
//	ParseAmount("3000")      -> 3000, nil
//	ParseAmount("Rs. 3,500") -> 3500, nil
//	ParseAmount("10000.0")   -> 10000, nil
//	ParseAmount("12.5")      -> 0, ErrInvalidInput
func ParseAmount(s string) (Money, error) {
	raw := s
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "Rs.")
	s = strings.TrimPrefix(s, "Rs")
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("%w: empty amount", ErrInvalidInput)
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, fmt.Errorf("%w: signed amount %q", ErrInvalidInput, raw)
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: malformed amount %q", ErrInvalidInput, raw)
		}
	}
	for _, r := range fracPart {
		if r != '0' {
			return 0, fmt.Errorf("%w: fractional amount %q", ErrInvalidInput, raw)
		}
	}
	v, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil || Money(v) > MaxAmount {
		return 0, fmt.Errorf("%w: amount out of range %q", ErrInvalidInput, raw)
	}
	return Money(v), nil
}

func (m Money) Validate() error {
	if m < 0 {
		return fmt.Errorf("%w: negative amount %d", ErrInvalidInput, int64(m))
	}
	if m > MaxAmount {
		return fmt.Errorf("%w: amount %d above limit %d", ErrInvalidInput, int64(m), int64(MaxAmount))
	}
	return nil
}

// Int64 returns the raw amount.
func (m Money) Int64() int64 {
	return int64(m)
}

// String formats the amount for display, e.g. "Rs. 12,000".
func (m Money) String() string {
	v := int64(m)
	neg := v < 0
	if neg {
		v = -v
	}
	digits := strconv.FormatInt(v, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	if neg {
		return "-Rs. " + b.String()
	}
	return "Rs. " + b.String()
}
