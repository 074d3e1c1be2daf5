package asset

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount indicates user input cannot be represented at the
	// asset's precision.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrAssetMismatch is returned by arithmetic between different asset types.
	ErrAssetMismatch = errors.New("asset type mismatch")

	// ErrNegativeBalance is returned when a result would drop below zero.
	ErrNegativeBalance = errors.New("negative balance")
)

var plainDecimal = regexp.MustCompile(`^([0-9]+(\.[0-9]*)?|\.[0-9]+)$`)

// Balance pairs an asset type with a non-negative amount in atomic units.
type Balance struct {
	Type   Type
	atomic decimal.Decimal
}

// NewBalance builds a balance from an atomic amount.
func NewBalance(t Type, atomic decimal.Decimal) (Balance, error) {
	if atomic.IsNegative() {
		return Balance{}, ErrNegativeBalance
	}
	if !atomic.Equal(atomic.Truncate(0)) {
		return Balance{}, fmt.Errorf("%w: atomic amount %s is fractional", ErrInvalidAmount, atomic)
	}
	return Balance{Type: t, atomic: atomic.Truncate(0)}, nil
}

// FromAtomic builds a balance from an int64 atomic amount. Negative values
// are clamped to zero.
func FromAtomic(t Type, atomic int64) Balance {
	if atomic < 0 {
		atomic = 0
	}
	return Balance{Type: t, atomic: decimal.NewFromInt(atomic)}
}

// Zero returns an empty balance of t.
func Zero(t Type) Balance {
	return Balance{Type: t, atomic: decimal.Zero}
}

// FromDecimalString parses a human readable amount such as "12.5" into a
// balance of t.
func FromDecimalString(t Type, s string) (Balance, error) {
	s = strings.TrimSpace(s)
	if !plainDecimal.MatchString(s) {
		return Balance{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		if int32(len(s)-dot-1) > t.Decimals {
			return Balance{}, fmt.Errorf("%w: %q has more than %d decimal places", ErrInvalidAmount, s, t.Decimals)
		}
	}
	value, err := decimal.NewFromString(s)
	if err != nil {
		return Balance{}, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return Balance{Type: t, atomic: value.Shift(t.Decimals).Truncate(0)}, nil
}

// Atomic returns the amount in the smallest unit of the asset.
func (b Balance) Atomic() decimal.Decimal {
	return b.atomic
}

// Value returns the amount in whole units of the asset.
func (b Balance) Value() decimal.Decimal {
	return b.atomic.Shift(-b.Type.Decimals)
}

// IsZero reports whether the amount is zero.
func (b Balance) IsZero() bool {
	return b.atomic.IsZero()
}

// DecimalString renders the balance with at most precision fractional digits.
// Digits beyond precision are truncated, never rounded up. A negative
// precision renders the full asset precision.
func (b Balance) DecimalString(precision int32, withTicker bool) string {
	value := b.Value()
	if precision >= 0 && precision < b.Type.Decimals {
		value = value.Truncate(precision)
	}
	out := value.String()
	if withTicker {
		out += " " + b.Type.Ticker()
	}
	return out
}

func (b Balance) String() string {
	return b.DecimalString(-1, true)
}

// Add returns b + o.
func (b Balance) Add(o Balance) (Balance, error) {
	if !b.Type.Equal(o.Type) {
		return Balance{}, mismatch(b.Type, o.Type)
	}
	return Balance{Type: b.Type, atomic: b.atomic.Add(o.atomic)}, nil
}

// Sub returns b - o, failing if the result would be negative.
func (b Balance) Sub(o Balance) (Balance, error) {
	if !b.Type.Equal(o.Type) {
		return Balance{}, mismatch(b.Type, o.Type)
	}
	out := b.atomic.Sub(o.atomic)
	if out.IsNegative() {
		return Balance{}, ErrNegativeBalance
	}
	return Balance{Type: b.Type, atomic: out}, nil
}

// SubFloor returns max(b - o, 0).
func (b Balance) SubFloor(o Balance) (Balance, error) {
	if !b.Type.Equal(o.Type) {
		return Balance{}, mismatch(b.Type, o.Type)
	}
	out := b.atomic.Sub(o.atomic)
	if out.IsNegative() {
		out = decimal.Zero
	}
	return Balance{Type: b.Type, atomic: out}, nil
}

// Gte reports whether b >= o.
func (b Balance) Gte(o Balance) (bool, error) {
	if !b.Type.Equal(o.Type) {
		return false, mismatch(b.Type, o.Type)
	}
	return b.atomic.GreaterThanOrEqual(o.atomic), nil
}

// Max returns the larger of a and b.
func Max(a, b Balance) (Balance, error) {
	gte, err := a.Gte(b)
	if err != nil {
		return Balance{}, err
	}
	if gte {
		return a, nil
	}
	return b, nil
}

// OverExistentialDeposit returns the part of b that can be spent without
// dropping below the asset's existential deposit.
func (b Balance) OverExistentialDeposit() Balance {
	out := b.atomic.Sub(b.Type.ExistentialDeposit)
	if out.IsNegative() {
		out = decimal.Zero
	}
	return Balance{Type: b.Type, atomic: out}
}

// ExistentialDeposit returns the existential deposit of t as a balance.
func ExistentialDeposit(t Type) Balance {
	return Balance{Type: t, atomic: t.ExistentialDeposit}
}

// Rescale moves b to another asset type keeping its whole-unit value.
// Atomic digits that t cannot represent are truncated.
func (b Balance) Rescale(t Type) Balance {
	shifted := b.atomic.Shift(t.Decimals - b.Type.Decimals).Truncate(0)
	return Balance{Type: t, atomic: shifted}
}

func mismatch(a, b Type) error {
	return fmt.Errorf("%w: %s vs %s", ErrAssetMismatch, a, b)
}
