package chain

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/blake2b"

	"github.com/shieldpay/shieldpay/internal/asset"
)

// Outcome scripts how the in-memory chain treats the next submission.
type Outcome int

const (
	// Finalize includes and finalizes the extrinsic, applying its effects.
	Finalize Outcome = iota
	// Interrupt includes the extrinsic with a batch interruption event and
	// never finalizes it.
	Interrupt
	// Drop includes the extrinsic and then reports ErrDropped.
	Drop
	// Reject refuses the extrinsic at submission.
	Reject
)

type holdings map[string]map[asset.ID]decimal.Decimal

func (h holdings) get(owner string, id asset.ID) decimal.Decimal {
	if byAsset, ok := h[owner]; ok {
		return byAsset[id]
	}
	return decimal.Zero
}

func (h holdings) set(owner string, id asset.ID, v decimal.Decimal) {
	byAsset, ok := h[owner]
	if !ok {
		byAsset = make(map[asset.ID]decimal.Decimal)
		h[owner] = byAsset
	}
	byAsset[id] = v
}

// InMemory is a concurrency-safe simulated chain. Public balances live in
// one ledger, shielded balances keyed by private address in another.
type InMemory struct {
	mu        sync.RWMutex
	catalog   *asset.Catalog
	connected bool
	public    holdings
	shielded  holdings
	script    []Outcome
	submitted []string
	blocks    uint64
}

// NewInMemory creates a connected simulated chain for the given assets.
func NewInMemory(catalog *asset.Catalog) *InMemory {
	return &InMemory{
		catalog:   catalog,
		connected: true,
		public:    make(holdings),
		shielded:  make(holdings),
	}
}

// SetConnected toggles the simulated API connection.
func (c *InMemory) SetConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = connected
}

// Script queues outcomes consumed by subsequent submissions in order. Once
// the script is exhausted submissions finalize.
func (c *InMemory) Script(outcomes ...Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.script = append(c.script, outcomes...)
}

// Submitted returns the hashes of every extrinsic accepted so far.
func (c *InMemory) Submitted() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.submitted...)
}

func (c *InMemory) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *InMemory) NativeBalance(ctx context.Context, address string) (asset.Balance, error) {
	return c.AssetBalance(ctx, c.catalog.Native(false), address)
}

func (c *InMemory) AssetBalance(_ context.Context, t asset.Type, address string) (asset.Balance, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.connected {
		return asset.Balance{}, ErrDisconnected
	}
	t = t.WithPrivate(false)
	return asset.NewBalance(t, c.public.get(address, t.ID))
}

// ShieldedBalance returns the shielded holdings of a private address.
func (c *InMemory) ShieldedBalance(ctx context.Context, t asset.Type, privateAddress string) (asset.Balance, error) {
	t = t.WithPrivate(true)
	raw, err := c.ShieldedAtomic(ctx, t.ID, privateAddress)
	if err != nil {
		return asset.Balance{}, err
	}
	return asset.NewBalance(t, raw)
}

// ShieldedAtomic returns the raw shielded holdings of a private address.
func (c *InMemory) ShieldedAtomic(_ context.Context, id asset.ID, privateAddress string) (decimal.Decimal, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.connected {
		return decimal.Zero, ErrDisconnected
	}
	return c.shielded.get(privateAddress, id), nil
}

func (c *InMemory) BuildPublicTransfer(_ context.Context, amount asset.Balance, from, to string) (Tx, error) {
	if amount.Type.Private {
		return nil, fmt.Errorf("public transfer of shielded asset %s", amount.Type)
	}
	section := SectionAssets
	if amount.Type.Native {
		section = SectionBalances
	}
	return NewExtrinsic(Call{Section: section, Method: MethodTransfer, From: from, To: to, Amount: amount}), nil
}

func (c *InMemory) Submit(ctx context.Context, tx Tx, signer Signer) (<-chan Update, error) {
	ext, ok := tx.(*Extrinsic)
	if !ok {
		return nil, fmt.Errorf("unsupported transaction type %T", tx)
	}
	if !c.IsConnected() {
		return nil, ErrDisconnected
	}
	if err := signer.Approve(ctx, tx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	outcome := Finalize
	if len(c.script) > 0 {
		outcome = c.script[0]
		c.script = c.script[1:]
	}
	if outcome == Reject {
		return nil, ErrRejected
	}
	c.submitted = append(c.submitted, ext.Hash())

	updates := make(chan Update, 2)
	defer close(updates)

	block := c.nextBlockLocked()
	switch outcome {
	case Interrupt:
		updates <- Update{Status: InBlock, BlockHash: block, Events: []Event{{Section: SectionUtility, Method: EventInterrupted}}}
	case Drop:
		updates <- Update{Status: InBlock, BlockHash: block}
		updates <- Update{Err: ErrDropped}
	default:
		if err := c.applyLocked(ext.Call()); err != nil {
			updates <- Update{Err: err}
			return updates, nil
		}
		events := []Event{{Section: SectionSystem, Method: EventSuccess}}
		updates <- Update{Status: InBlock, BlockHash: block, Events: events}
		updates <- Update{Status: Finalized, BlockHash: block, Events: events}
	}
	return updates, nil
}

func (c *InMemory) nextBlockLocked() string {
	c.blocks++
	sum := blake2b.Sum256([]byte(fmt.Sprintf("block-%d", c.blocks)))
	return "0x" + hex.EncodeToString(sum[:])
}

func (c *InMemory) applyLocked(call Call) error {
	id := call.Amount.Type.ID
	amount := call.Amount.Atomic()

	var from, to holdings
	switch {
	case call.Section == SectionBalances || call.Section == SectionAssets:
		from, to = c.public, c.public
	case call.Section == SectionMantaPay && call.Method == MethodToPrivate:
		from, to = c.public, c.shielded
	case call.Section == SectionMantaPay && call.Method == MethodToPublic:
		from, to = c.shielded, c.public
	case call.Section == SectionMantaPay && call.Method == MethodPrivateTx:
		from, to = c.shielded, c.shielded
	default:
		return fmt.Errorf("unsupported call %s.%s", call.Section, call.Method)
	}

	balance := from.get(call.From, id)
	if balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	from.set(call.From, id, balance.Sub(amount))
	to.set(call.To, id, to.get(call.To, id).Add(amount))
	return nil
}
