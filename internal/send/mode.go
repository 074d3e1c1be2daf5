package send

import "github.com/shieldpay/shieldpay/internal/asset"

// Mode is the transfer mode derived from the privacy of both endpoints.
type Mode int

const (
	ToPrivate Mode = iota + 1
	ToPublic
	PrivateTransfer
	PublicTransfer
)

// ModeOf derives the transfer mode from the sender and receiver asset types.
func ModeOf(sender, receiver asset.Type) Mode {
	switch {
	case !sender.Private && receiver.Private:
		return ToPrivate
	case sender.Private && !receiver.Private:
		return ToPublic
	case sender.Private && receiver.Private:
		return PrivateTransfer
	default:
		return PublicTransfer
	}
}

// String returns the label shown on the send button.
func (m Mode) String() string {
	switch m {
	case ToPrivate:
		return "To Private"
	case ToPublic:
		return "To Public"
	case PrivateTransfer:
		return "Private Transfer"
	case PublicTransfer:
		return "Public Transfer"
	default:
		return "Unknown"
	}
}

// MarshalText renders the label in JSON payloads.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// SenderPrivate reports whether funds leave the shielded pool.
func (m Mode) SenderPrivate() bool {
	return m == ToPublic || m == PrivateTransfer
}

// ReceiverPrivate reports whether funds land in the shielded pool.
func (m Mode) ReceiverPrivate() bool {
	return m == ToPrivate || m == PrivateTransfer
}

// Internal reports whether both endpoints belong to the user.
func (m Mode) Internal() bool {
	return m == ToPrivate || m == ToPublic
}
