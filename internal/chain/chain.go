package chain

import (
	"context"
	"encoding/hex"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/shieldpay/shieldpay/internal/asset"
)

var (
	// ErrDisconnected is returned by queries and submissions while the chain
	// API is unreachable.
	ErrDisconnected = errors.New("chain api disconnected")

	// ErrSignerDeclined indicates the user rejected the signing prompt.
	ErrSignerDeclined = errors.New("signer declined")

	// ErrInsufficientFunds is reported when a call cannot be dispatched
	// because the origin lacks balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDropped is reported when an extrinsic leaves the pool without being
	// finalized.
	ErrDropped = errors.New("extrinsic dropped")

	// ErrRejected is returned when the node refuses an extrinsic at submission.
	ErrRejected = errors.New("extrinsic rejected")
)

const (
	SectionBalances  = "balances"
	SectionAssets    = "assets"
	SectionMantaPay  = "mantaPay"
	SectionUtility   = "utility"
	SectionSystem    = "system"
	MethodTransfer   = "transfer"
	MethodToPrivate  = "toPrivate"
	MethodToPublic   = "toPublic"
	MethodPrivateTx  = "privateTransfer"
	EventInterrupted = "BatchInterrupted"
	EventSuccess     = "ExtrinsicSuccess"
)

// Signer authorises extrinsics on behalf of one account.
type Signer interface {
	Address() string
	// Approve prompts for a signature over tx. It returns ErrSignerDeclined
	// when the user rejects.
	Approve(ctx context.Context, tx Tx) error
}

// Tx is an opaque, signable transaction handle.
type Tx interface {
	Hash() string
}

// Call is the decoded intent of an extrinsic.
type Call struct {
	Section string
	Method  string
	From    string
	To      string
	Amount  asset.Balance
}

// Extrinsic is the concrete Tx produced by this package and by wallet
// builders.
type Extrinsic struct {
	call Call
	hash string
}

// NewExtrinsic wraps call into a uniquely hashed extrinsic.
func NewExtrinsic(call Call) *Extrinsic {
	nonce := uuid.New()
	h, _ := blake2b.New256(nil)
	for _, part := range []string{
		call.Section,
		call.Method,
		call.From,
		call.To,
		strconv.FormatUint(uint64(call.Amount.Type.ID), 10),
		strconv.FormatBool(call.Amount.Type.Private),
		call.Amount.Atomic().String(),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write(nonce[:])
	return &Extrinsic{call: call, hash: "0x" + hex.EncodeToString(h.Sum(nil))}
}

// Hash returns the 0x-prefixed blake2b-256 extrinsic hash.
func (e *Extrinsic) Hash() string { return e.hash }

// Call returns the decoded call.
func (e *Extrinsic) Call() Call { return e.call }

// InclusionStatus is the block-inclusion stage reported for a submission.
type InclusionStatus int

const (
	InBlock InclusionStatus = iota + 1
	Finalized
)

func (s InclusionStatus) String() string {
	switch s {
	case InBlock:
		return "in_block"
	case Finalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Event is a runtime event emitted while dispatching an extrinsic.
type Event struct {
	Section string
	Method  string
}

// Update is one element of a submission's status stream. A non-nil Err
// terminates the stream.
type Update struct {
	Status    InclusionStatus
	BlockHash string
	Events    []Event
	Err       error
}

// IsBatchInterrupted reports whether the block contains a batch
// interruption event.
func (u Update) IsBatchInterrupted() bool {
	for _, e := range u.Events {
		if e.Section == SectionUtility && e.Method == EventInterrupted {
			return true
		}
	}
	return false
}

// Client is the chain API consumed by the send engine.
type Client interface {
	IsConnected() bool
	NativeBalance(ctx context.Context, address string) (asset.Balance, error)
	AssetBalance(ctx context.Context, t asset.Type, address string) (asset.Balance, error)
	BuildPublicTransfer(ctx context.Context, amount asset.Balance, from, to string) (Tx, error)
	// Submit signs tx with signer and publishes it. The returned channel
	// yields inclusion updates and is closed after the terminal one.
	Submit(ctx context.Context, tx Tx, signer Signer) (<-chan Update, error)
}

// StaticSigner is a signer that approves or declines every request.
type StaticSigner struct {
	Addr    string
	Decline bool
}

// Address returns the signing account.
func (s StaticSigner) Address() string { return s.Addr }

// Approve declines when configured to.
func (s StaticSigner) Approve(_ context.Context, _ Tx) error {
	if s.Decline {
		return ErrSignerDeclined
	}
	return nil
}
