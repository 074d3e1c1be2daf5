package send

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/shieldpay/shieldpay/internal/asset"
)

// Tri is the outcome of a validation check. Unknown means an input is still
// missing; callers must not read it as False.
type Tri int8

const (
	Unknown Tri = iota
	False
	True
)

func triOf(ok bool) Tri {
	if ok {
		return True
	}
	return False
}

func (t Tri) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// MarshalJSON renders Unknown as null.
func (t Tri) MarshalJSON() ([]byte, error) {
	if t == Unknown {
		return []byte("null"), nil
	}
	return []byte(t.String()), nil
}

// Policy holds the fee figures used to reserve native token. Both amounts
// are whole native units.
type Policy struct {
	FeeEstimate            decimal.Decimal
	SuggestedMinFeeBalance decimal.Decimal
}

// DefaultPolicy reserves a flat fee of 50 and suggests keeping 150.
var DefaultPolicy = Policy{
	FeeEstimate:            decimal.NewFromInt(50),
	SuggestedMinFeeBalance: decimal.NewFromInt(150),
}

func wholeUnits(t asset.Type, units decimal.Decimal) asset.Balance {
	b, err := asset.NewBalance(t, units.Shift(t.Decimals).Truncate(0))
	if err != nil {
		return asset.Zero(t)
	}
	return b
}

// ReservedNativeBalance is the native amount that must stay behind to pay
// the fee and keep the fee account alive.
func (p Policy) ReservedNativeBalance(native asset.Type) asset.Balance {
	fee := wholeUnits(native, p.FeeEstimate)
	reserved, err := fee.Add(asset.ExistentialDeposit(native))
	if err != nil {
		return fee
	}
	return reserved
}

func sendsNativePublicly(s State) bool {
	return s.SenderAssetType.Native && !s.SenderAssetType.Private
}

// MaxSendable returns the largest amount the sender may move, or nil while
// the sender or fee balance is unknown.
func MaxSendable(s State, p Policy) *asset.Balance {
	if s.SenderCurrent == nil || s.SenderNativePublic == nil {
		return nil
	}
	if sendsNativePublicly(s) {
		max, err := s.SenderCurrent.SubFloor(p.ReservedNativeBalance(s.SenderCurrent.Type))
		if err != nil {
			return nil
		}
		return &max
	}
	max := s.SenderCurrent.OverExistentialDeposit()
	return &max
}

// HasSufficientFunds compares the target with MaxSendable.
func HasSufficientFunds(s State, p Policy) Tri {
	if s.SenderTarget == nil || s.SenderCurrent == nil || s.SenderNativePublic == nil {
		return Unknown
	}
	if !s.SenderTarget.Type.SameAsset(s.SenderCurrent.Type) {
		return Unknown
	}
	max := MaxSendable(s, p)
	if max == nil {
		return Unknown
	}
	ok, err := max.Gte(*s.SenderTarget)
	if err != nil {
		return Unknown
	}
	return triOf(ok)
}

// CanPayFee checks the public native balance against the fee reserve, plus
// the target when the target is drawn from the same balance.
func CanPayFee(s State, p Policy) Tri {
	if s.SenderNativePublic == nil || s.SenderTarget == nil {
		return Unknown
	}
	required := p.ReservedNativeBalance(s.SenderNativePublic.Type)
	if sendsNativePublicly(s) {
		var err error
		if required, err = required.Add(*s.SenderTarget); err != nil {
			return Unknown
		}
	}
	ok, err := s.SenderNativePublic.Gte(required)
	if err != nil {
		return Unknown
	}
	return triOf(ok)
}

// ReceiverOverExistentialDeposit checks the target reaches the receiving
// asset's existential deposit.
func ReceiverOverExistentialDeposit(s State) Tri {
	if s.SenderTarget == nil {
		return Unknown
	}
	return triOf(s.SenderTarget.Atomic().GreaterThanOrEqual(s.ReceiverAssetType.ExistentialDeposit))
}

// WouldDepleteSuggestedMinFeeBalance warns when shielding native token
// would leave the public account at or below the suggested fee balance.
func WouldDepleteSuggestedMinFeeBalance(s State, p Policy) bool {
	if s.SenderCurrent == nil || s.SenderTarget == nil || s.Mode() != ToPrivate {
		return false
	}
	if !s.SenderCurrent.Type.Native || !s.SenderTarget.Type.Native {
		return false
	}
	suggested := wholeUnits(s.SenderCurrent.Type, p.SuggestedMinFeeBalance)
	after, err := s.SenderCurrent.Sub(*s.SenderTarget)
	if err != nil {
		return true
	}
	depleted, err := suggested.Gte(after)
	return err == nil && depleted
}

// Env carries the collaborator state the checks depend on.
type Env struct {
	WalletReady     bool
	WalletOutOfDate bool
	Connected       bool
	HasSigner       bool
}

// ValidToSend is the gate in front of Send.
func ValidToSend(s State, p Policy, env Env) bool {
	return (env.WalletReady || s.Mode() == PublicTransfer) &&
		env.Connected &&
		env.HasSigner &&
		s.Receiver.Valid() &&
		s.SenderTarget != nil &&
		s.SenderCurrent != nil &&
		HasSufficientFunds(s, p) == True &&
		CanPayFee(s, p) == True &&
		ReceiverOverExistentialDeposit(s) == True
}

// ValidationMessage returns the guidance shown instead of the send button,
// or "" when nothing blocks the transfer.
func ValidationMessage(s State, p Policy, env Env) string {
	mode := s.Mode()
	external := mode == PrivateTransfer || mode == PublicTransfer
	signerMissing := !env.WalletReady && !env.WalletOutOfDate && mode != PublicTransfer
	switch {
	case signerMissing && !env.HasSigner:
		return "Connect wallet and signer"
	case signerMissing:
		return "Connect signer"
	case env.WalletOutOfDate && mode != PublicTransfer:
		return "Wallet out of date"
	case !env.HasSigner:
		return "Connect wallet"
	case !env.Connected:
		return "Connecting to network"
	case s.SenderTarget == nil:
		return "Enter amount"
	case CanPayFee(s, p) == False:
		return fmt.Sprintf("Insufficient %s to pay transaction fee", s.SenderNativePublic.Type.BaseTicker)
	case HasSufficientFunds(s, p) == False:
		return "Insufficient balance"
	case external && !s.Receiver.IsSet():
		return "Enter recipient " + addressNoun(mode)
	case external && s.Receiver.Kind == ReceiverInvalid:
		return "Invalid " + addressNoun(mode)
	case ReceiverOverExistentialDeposit(s) == False:
		ed := asset.ExistentialDeposit(s.ReceiverAssetType)
		return "Min transaction is " + ed.DecimalString(3, false)
	}
	return ""
}

func addressNoun(m Mode) string {
	if m == PrivateTransfer {
		return "zkAddress"
	}
	return "substrate address"
}
