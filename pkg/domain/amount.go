package domain

import (
	"database/sql/driver"
	"fmt"

	"github.com/holiman/uint256"
)

// Amount is an unsigned 256-bit token quantity. Token supplies with 18-decimal
// bases overflow uint64, so all balances, limits and caps use this type.
// Amount is a value type; arithmetic returns new values and never mutates the
// receiver, which keeps engine state transitions easy to reason about.
type Amount struct {
	v uint256.Int
}

// ZeroAmount is the additive identity.
var ZeroAmount = Amount{}

// NewAmount builds an Amount from a uint64.
func NewAmount(v uint64) Amount {
	var a Amount
	a.v.SetUint64(v)
	return a
}

// ParseAmount parses a non-negative decimal string.
func ParseAmount(s string) (Amount, error) {
	var a Amount
	if err := a.v.SetFromDecimal(s); err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return a, nil
}

// MustAmount parses a decimal string and panics on failure. For constants in
// config defaults and tests only.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Plus returns a + b.
func (a Amount) Plus(b Amount) Amount {
	var r Amount
	r.v.Add(&a.v, &b.v)
	return r
}

// Minus returns a - b, saturating at zero. Engine invariants guarantee the
// subtrahend never exceeds the minuend on committed state; saturation keeps
// derived quantities (claimable, remaining) from ever going negative.
func (a Amount) Minus(b Amount) Amount {
	if a.Cmp(b) <= 0 {
		return Amount{}
	}
	var r Amount
	r.v.Sub(&a.v, &b.v)
	return r
}

// MulDiv returns a * num / den using full 256-bit intermediate precision.
func (a Amount) MulDiv(num, den uint64) Amount {
	var r Amount
	r.v.Mul(&a.v, uint256.NewInt(num))
	r.v.Div(&r.v, uint256.NewInt(den))
	return r
}

// Cmp returns -1, 0 or 1 as a is less than, equal to or greater than b.
func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }

// Equal reports a == b.
func (a Amount) Equal(b Amount) bool { return a.v.Eq(&b.v) }

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a.v.IsZero() }

// String returns the decimal representation.
func (a Amount) String() string { return a.v.Dec() }

// MarshalJSON encodes the amount as a decimal JSON string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.v.Dec() + `"`), nil
}

// UnmarshalJSON accepts a decimal string or a bare JSON number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer so stores can bind amounts to NUMERIC columns.
func (a Amount) Value() (driver.Value, error) {
	return a.v.Dec(), nil
}

// Scan implements sql.Scanner for NUMERIC columns read back as text.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Amount{}
		return nil
	case string:
		parsed, err := ParseAmount(v)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case []byte:
		parsed, err := ParseAmount(string(v))
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case int64:
		if v < 0 {
			return fmt.Errorf("scan amount: negative value %d", v)
		}
		*a = NewAmount(uint64(v))
		return nil
	default:
		return fmt.Errorf("scan amount: unsupported type %T", src)
	}
}
