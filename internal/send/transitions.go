package send

import "github.com/shieldpay/shieldpay/internal/asset"

// DefaultReceiver returns the user's own counterpart address for internal
// transfers. Public to private defaults to the private address, private to
// public defaults to the public account. Transfers between equal privacy
// have no default.
func DefaultReceiver(privateAddress, publicAddress string, sender, receiver asset.Type) Receiver {
	switch ModeOf(sender, receiver) {
	case ToPrivate:
		return AddressReceiver(privateAddress)
	case ToPublic:
		return AddressReceiver(publicAddress)
	default:
		return NoReceiver()
	}
}

func (s State) defaultReceiver() Receiver {
	return DefaultReceiver(s.SenderPrivateAddress, s.SenderPublicAddress, s.SenderAssetType, s.ReceiverAssetType)
}

// ToggleSender flips the sender to the other variant of the same asset. The
// target follows the sender so it stays comparable with sender balances.
func (s State) ToggleSender() State {
	s.SenderAssetType = s.SenderAssetType.TogglePrivate()
	if s.SenderTarget != nil {
		target := s.SenderTarget.Rescale(s.SenderAssetType)
		s.SenderTarget = &target
	}
	s.Receiver = s.defaultReceiver()
	s.SenderCurrent = nil
	return s
}

// ToggleReceiver flips the receiver to the other variant of the same asset.
func (s State) ToggleReceiver() State {
	s.ReceiverAssetType = s.ReceiverAssetType.TogglePrivate()
	s.Receiver = s.defaultReceiver()
	s.ReceiverCurrent = nil
	return s
}

// Swap exchanges the privacy of both endpoints. Equal privacy is a no-op.
func (s State) Swap() State {
	if s.SenderAssetType.Private == s.ReceiverAssetType.Private {
		return s
	}
	return s.ToggleSender().ToggleReceiver()
}

// SetAssetType selects a new asset for the sender. The receiver follows it,
// keeping the previous privacy relation, and the target keeps its decimal
// value under the new precision.
func (s State) SetAssetType(t asset.Type) State {
	differed := s.SenderAssetType.Private != s.ReceiverAssetType.Private
	s.SenderAssetType = t
	if differed {
		s.ReceiverAssetType = t.TogglePrivate()
	} else {
		s.ReceiverAssetType = t
	}
	if s.SenderTarget != nil {
		target := s.SenderTarget.Rescale(t)
		s.SenderTarget = &target
	}
	s.SenderCurrent = nil
	s.ReceiverCurrent = nil
	return s
}

func (s State) SetTarget(b *asset.Balance) State {
	s.SenderTarget = b
	return s
}

func (s State) SetReceiver(r Receiver) State {
	s.Receiver = r
	return s
}

// SetSenderPrivateAddress records the user's shielded address and re-derives
// the default receiver from it.
func (s State) SetSenderPrivateAddress(addr string) State {
	s.SenderPrivateAddress = addr
	if s.SenderAssetType.IsZero() || s.ReceiverAssetType.IsZero() {
		return s
	}
	s.Receiver = s.defaultReceiver()
	return s
}

// SetSenderPublicAccount records the fee-paying public account. An explicit
// receiver survives unless a default now applies.
func (s State) SetSenderPublicAccount(addr string) State {
	s.SenderPublicAddress = addr
	s.SenderCurrent = nil
	if def := s.defaultReceiver(); def.IsSet() {
		s.Receiver = def
	}
	return s
}

// SetSenderCurrentBalance stores a fetched sender balance. Results fetched
// for an asset that is no longer selected are discarded.
func (s State) SetSenderCurrentBalance(b *asset.Balance) State {
	if stale(s.SenderAssetType, b) {
		return s
	}
	s.SenderCurrent = b
	return s
}

// SetReceiverCurrentBalance stores a fetched receiver balance, guarded the
// same way as the sender balance.
func (s State) SetReceiverCurrentBalance(b *asset.Balance) State {
	if stale(s.ReceiverAssetType, b) {
		return s
	}
	s.ReceiverCurrent = b
	return s
}

func (s State) SetSenderNativePublicBalance(b *asset.Balance) State {
	s.SenderNativePublic = b
	return s
}

// stale reports whether a fetch result belongs to another selection. Clearing
// a balance is never stale.
func stale(current asset.Type, b *asset.Balance) bool {
	if b == nil {
		return false
	}
	return !current.Equal(b.Type)
}
