// Copyright (C) 2024-2026, The Walletchain Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package amount implements the fixed-point minor-unit arithmetic the
// ledger uses for every balance, lock, transfer amount, and fee. Values
// are stored as unsigned integers scaled by 10^8 ("minor units"), never
// as floating point, and the textual projection matches the spec's
// (18,8) decimal column.
package amount

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Scale is the number of fractional digits every Amount is scaled by.
const Scale = 8

// maxTotalDigits bounds the ledger's (18,8) decimal column: 18 total
// digits, 8 of them fractional, leaves 10 integer digits.
const maxTotalDigits = 18

// maxValue is the largest minor-unit amount representable in (18,8).
var maxValue = func() *uint256.Int {
	v := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(maxTotalDigits))
	return v.Sub(v, uint256.NewInt(1))
}()

// Amount is a non-negative fixed-point value at 10^8 minor units.
type Amount struct {
	v uint256.Int
}

// Zero is the additive identity.
var Zero = Amount{}

// FromMinorUnits builds an Amount directly from its scaled integer
// representation, e.g. FromMinorUnits(15075000000) == 150.75.
func FromMinorUnits(minor uint64) Amount {
	return Amount{v: *uint256.NewInt(minor)}
}

// Parse parses a decimal string with up to Scale fractional digits
// (e.g. "150.75") into an Amount. Negative, malformed, or
// over-precision inputs are rejected.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, fmt.Errorf("amount: empty string")
	}
	if strings.HasPrefix(s, "-") {
		return Amount{}, fmt.Errorf("amount: negative amount %q", s)
	}

	intPart, fracPart, hasFrac := strings.Cut(s, ".")
	if hasFrac {
		if len(fracPart) > Scale {
			return Amount{}, fmt.Errorf("amount: %q has more than %d fractional digits", s, Scale)
		}
		fracPart = fracPart + strings.Repeat("0", Scale-len(fracPart))
	} else {
		fracPart = strings.Repeat("0", Scale)
	}
	if intPart == "" {
		intPart = "0"
	}
	digits := intPart + fracPart
	if len(digits) > maxTotalDigits {
		return Amount{}, fmt.Errorf("amount: %q exceeds (%d,%d) precision", s, maxTotalDigits, Scale)
	}

	v, err := uint256.FromDecimal(digits)
	if err != nil {
		return Amount{}, fmt.Errorf("amount: invalid decimal %q: %w", s, err)
	}
	return Amount{v: *v}, nil
}

// MustParse is Parse but panics on error; reserved for literal amounts
// in tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String renders the amount as a decimal string with exactly Scale
// fractional digits, e.g. "150.75000000".
func (a Amount) String() string {
	digits := a.v.Dec()
	for len(digits) <= Scale {
		digits = "0" + digits
	}
	intPart := digits[:len(digits)-Scale]
	fracPart := digits[len(digits)-Scale:]
	return intPart + "." + fracPart
}

// MinorUnits returns the raw scaled integer, for storage in the (18,8)
// textual projection or in a store's minor-unit column.
func (a Amount) MinorUnits() uint64 {
	return a.v.Uint64()
}

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool { return a.v.IsZero() }

// Sign reports -1, 0, or 1 relative to zero. Amount is always
// non-negative, so Sign never returns -1; it is provided for symmetry
// with signed numeric types callers may expect.
func (a Amount) Sign() int {
	if a.v.IsZero() {
		return 0
	}
	return 1
}

// Cmp compares two amounts: -1 if a<b, 0 if equal, 1 if a>b.
func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(&b.v)
}

// LessThan reports whether a < b.
func (a Amount) LessThan(b Amount) bool { return a.Cmp(b) < 0 }

// GreaterThanOrEqual reports whether a >= b.
func (a Amount) GreaterThanOrEqual(b Amount) bool { return a.Cmp(b) >= 0 }

// Add returns a+b. Returns an error if the sum would exceed the (18,8)
// column's representable range — an invariant violation, never a
// silent wraparound.
func Add(a, b Amount) (Amount, error) {
	var sum uint256.Int
	overflowed := sum.AddOverflow(&a.v, &b.v)
	if overflowed || sum.Gt(maxValue) {
		return Amount{}, fmt.Errorf("amount: %s + %s exceeds (%d,%d) precision", a, b, maxTotalDigits, Scale)
	}
	return Amount{v: sum}, nil
}

// Sub returns a-b. Returns an error if b > a (amounts are
// non-negative; underflow is always an invariant violation in this
// ledger — callers are expected to have checked sufficiency first).
func Sub(a, b Amount) (Amount, error) {
	if a.LessThan(b) {
		return Amount{}, fmt.Errorf("amount: %s - %s would be negative", a, b)
	}
	var diff uint256.Int
	diff.Sub(&a.v, &b.v)
	return Amount{v: diff}, nil
}
