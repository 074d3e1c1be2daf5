package send

import (
	"context"

	"github.com/shieldpay/shieldpay/internal/asset"
	"github.com/shieldpay/shieldpay/internal/preference"
)

// ReceiverKind tags the receiver slot of a State.
type ReceiverKind int

const (
	ReceiverNone ReceiverKind = iota
	ReceiverAddress
	ReceiverInvalid
)

// Receiver is the intended recipient: absent, an address, or the marker for
// input that failed address validation.
type Receiver struct {
	Kind    ReceiverKind `json:"-"`
	Address string       `json:"address,omitempty"`
}

func NoReceiver() Receiver { return Receiver{} }

func AddressReceiver(addr string) Receiver {
	if addr == "" {
		return Receiver{}
	}
	return Receiver{Kind: ReceiverAddress, Address: addr}
}

func InvalidReceiver() Receiver { return Receiver{Kind: ReceiverInvalid} }

// IsSet reports whether a receiver was entered, valid or not.
func (r Receiver) IsSet() bool { return r.Kind != ReceiverNone }

// Valid reports whether the receiver holds a usable address.
func (r Receiver) Valid() bool { return r.Kind == ReceiverAddress }

// State is the transfer being composed. Transitions return a new State and
// never perform I/O.
type State struct {
	SenderAssetType   asset.Type
	ReceiverAssetType asset.Type

	SenderTarget       *asset.Balance
	SenderCurrent      *asset.Balance
	ReceiverCurrent    *asset.Balance
	SenderNativePublic *asset.Balance

	SenderPublicAddress  string
	SenderPrivateAddress string
	Receiver             Receiver
}

// Mode derives the current transfer mode.
func (s State) Mode() Mode {
	return ModeOf(s.SenderAssetType, s.ReceiverAssetType)
}

// InitialState restores the last used asset and privacy toggles. Without
// stored preferences the sender is public and the receiver private.
func InitialState(ctx context.Context, catalog *asset.Catalog, prefs *preference.Prefs) State {
	senderPrivate := prefs.Bool(ctx, preference.SenderPrivate, false)
	receiverPrivate := prefs.Bool(ctx, preference.ReceiverPrivate, true)
	return State{
		SenderAssetType:   initialToken(ctx, catalog, prefs, senderPrivate),
		ReceiverAssetType: initialToken(ctx, catalog, prefs, receiverPrivate),
	}
}

func initialToken(ctx context.Context, catalog *asset.Catalog, prefs *preference.Prefs, private bool) asset.Type {
	if ticker, ok := prefs.String(ctx, preference.CurrentToken); ok {
		if t, err := catalog.ByTicker(ticker, private); err == nil {
			return t
		}
	}
	return catalog.Default(private)
}
