package address

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"golang.org/x/crypto/blake2b"
)

var (
	// ErrInvalidPrivate is returned for strings that are not shielded addresses.
	ErrInvalidPrivate = errors.New("invalid zkAddress")

	// ErrInvalidPublic is returned for strings that are not SS58 addresses.
	ErrInvalidPublic = errors.New("invalid substrate address")
)

const (
	keyLength      = 32
	checksumLength = 2
)

var ss58Prefix = []byte("SS58PRE")

// ValidatePrivate checks that s base58-decodes to a 32 byte shielded address.
func ValidatePrivate(s string) error {
	if s == "" {
		return ErrInvalidPrivate
	}
	if raw := base58.Decode(s); len(raw) != keyLength {
		return fmt.Errorf("%w: decoded length %d", ErrInvalidPrivate, len(raw))
	}
	return nil
}

// ValidatePublic checks that s is an SS58 encoded 32 byte account id with a
// valid checksum. Both one and two byte network prefixes are accepted.
func ValidatePublic(s string) error {
	raw := base58.Decode(s)
	if len(raw) == 0 {
		return ErrInvalidPublic
	}

	prefixLen := 1
	if raw[0]&0b0100_0000 != 0 {
		prefixLen = 2
	}
	if raw[0] >= 128 {
		return fmt.Errorf("%w: reserved prefix", ErrInvalidPublic)
	}
	if len(raw) != prefixLen+keyLength+checksumLength {
		return fmt.Errorf("%w: decoded length %d", ErrInvalidPublic, len(raw))
	}

	payload := raw[:len(raw)-checksumLength]
	if !bytes.Equal(checksum(payload), raw[len(raw)-checksumLength:]) {
		return fmt.Errorf("%w: checksum mismatch", ErrInvalidPublic)
	}
	return nil
}

// Validate checks s against the address kind the receiver expects.
func Validate(s string, private bool) error {
	if private {
		return ValidatePrivate(s)
	}
	return ValidatePublic(s)
}

// EncodePublic encodes a 32 byte account id with a single byte network
// prefix. It is the inverse of ValidatePublic for prefixes below 64.
func EncodePublic(prefix byte, key []byte) (string, error) {
	if prefix >= 64 {
		return "", fmt.Errorf("prefix %d needs two byte encoding", prefix)
	}
	if len(key) != keyLength {
		return "", fmt.Errorf("account id must be %d bytes", keyLength)
	}
	payload := append([]byte{prefix}, key...)
	return base58.Encode(append(payload, checksum(payload)...)), nil
}

// EncodePrivate encodes a 32 byte shielded address.
func EncodePrivate(key []byte) (string, error) {
	if len(key) != keyLength {
		return "", fmt.Errorf("zkAddress must be %d bytes", keyLength)
	}
	return base58.Encode(key), nil
}

func checksum(payload []byte) []byte {
	sum := blake2b.Sum512(append(append([]byte{}, ss58Prefix...), payload...))
	return sum[:checksumLength]
}
