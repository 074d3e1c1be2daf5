package asset

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ID is the numeric identifier of a fungible asset on the network.
type ID uint32

// privatePrefix marks the shielded variant of a ticker, e.g. "zkDOL".
const privatePrefix = "zk"

// Type describes a fungible asset as configured for the network. A Type
// is either the public or the shielded variant of an underlying asset.
type Type struct {
	ID                 ID
	BaseTicker         string
	Decimals           int32
	ExistentialDeposit decimal.Decimal
	Private            bool
	Native             bool
}

// Ticker returns the display ticker, prefixed for shielded variants.
func (t Type) Ticker() string {
	if t.Private {
		return privatePrefix + t.BaseTicker
	}
	return t.BaseTicker
}

// TogglePrivate returns the counterpart variant of the same underlying asset.
func (t Type) TogglePrivate() Type {
	t.Private = !t.Private
	return t
}

// WithPrivate returns the variant of t with the requested privacy.
func (t Type) WithPrivate(private bool) Type {
	t.Private = private
	return t
}

// SameAsset reports whether both types refer to the same underlying asset,
// regardless of privacy.
func (t Type) SameAsset(o Type) bool {
	return t.ID == o.ID
}

// Equal reports whether both types are the identical variant.
func (t Type) Equal(o Type) bool {
	return t.ID == o.ID && t.Private == o.Private
}

// IsZero reports whether t is the zero Type (no asset selected).
func (t Type) IsZero() bool {
	return t.BaseTicker == "" && t.ID == 0 && t.Decimals == 0
}

func (t Type) String() string {
	return fmt.Sprintf("%s(%d)", t.Ticker(), t.ID)
}
