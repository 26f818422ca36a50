package core

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want Money
		ok   bool
	}{
		{"3000", 3000, true},
		{" 10000 ", 10000, true},
		{"3,500", 3500, true},
		{"Rs. 12,000", 12000, true},
		{"3000.0", 3000, true},
		{"3000.00", 3000, true},
		{"0", 0, true},
		{"12.5", 0, false},
		{"-100", 0, false},
		{"+100", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"99999999999999999999", 0, false},
		{"Rs. 1,000,000,000", MaxAmount, true},
		{"1000000001", 0, false},
		{"٣٠٠", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("ParseAmount(%q) unexpected error: %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("ParseAmount(%q) = %d, want %d", tc.in, got, tc.want)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("ParseAmount(%q) expected ErrInvalidInput, got %v", tc.in, err)
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[Money]string{
		0:       "Rs. 0",
		999:     "Rs. 999",
		3000:    "Rs. 3,000",
		1234567: "Rs. 1,234,567",
		-4500:   "-Rs. 4,500",
	}
	for in, want := range cases {
		if got := in.String(); got != want {
			t.Errorf("Money(%d).String() = %q, want %q", int64(in), got, want)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := Money(0).Validate(); err != nil {
		t.Fatalf("zero should be valid: %v", err)
	}
	if err := Money(-1).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := MaxAmount.Validate(); err != nil {
		t.Fatalf("limit should be valid: %v", err)
	}
	if err := (MaxAmount + 1).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput above the limit, got %v", err)
	}
}

func TestRowError(t *testing.T) {
	var rep ImportReport
	rep.AddError(3, "Class", ErrInvalidInput)
	if rep.Failed() != 1 {
		t.Fatalf("Failed() = %d", rep.Failed())
	}
	err := error(rep.Errors[0])
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("row error should unwrap to ErrInvalidInput")
	}
	if got := err.Error(); got != "row 3: Class: invalid input" {
		t.Fatalf("unexpected message %q", got)
	}
}
