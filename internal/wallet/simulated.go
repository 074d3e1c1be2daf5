package wallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/shieldpay/shieldpay/internal/asset"
	"github.com/shieldpay/shieldpay/internal/chain"
)

// Simulated is a deterministic shielded wallet over the in-memory chain. It
// satisfies both ExtensionProvider and SyncedSigner.
type Simulated struct {
	chain     *chain.InMemory
	catalog   *asset.Catalog
	zkAddress string
	version   string

	mu            sync.Mutex
	ready         bool
	decline       bool
	internalSteps int
	builds        []Method
}

// NewSimulated creates a ready wallet owning zkAddress.
func NewSimulated(c *chain.InMemory, catalog *asset.Catalog, zkAddress, version string) *Simulated {
	return &Simulated{chain: c, catalog: catalog, zkAddress: zkAddress, version: version, ready: true}
}

// SetReady toggles the initial-sync state.
func (s *Simulated) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// SetDecline makes subsequent builds return no transactions.
func (s *Simulated) SetDecline(decline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decline = decline
}

// SetInternalSteps sets how many settlement steps precede the final spend of
// ToPublic and PrivateTransfer builds.
func (s *Simulated) SetInternalSteps(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.internalSteps = n
}

// Builds returns the methods built so far.
func (s *Simulated) Builds() []Method {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Method(nil), s.builds...)
}

func (s *Simulated) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

func (s *Simulated) Version() string { return s.version }

func (s *Simulated) ZkAddress(context.Context) (string, error) { return s.zkAddress, nil }

func (s *Simulated) Address(ctx context.Context) (string, error) { return s.ZkAddress(ctx) }

func (s *Simulated) ZkBalance(ctx context.Context, _ string, id asset.ID) (decimal.Decimal, error) {
	return s.chain.ShieldedAtomic(ctx, id, s.zkAddress)
}

func (s *Simulated) Balance(ctx context.Context, id asset.ID) (decimal.Decimal, error) {
	return s.chain.ShieldedAtomic(ctx, id, s.zkAddress)
}

func (s *Simulated) Sync(context.Context) error {
	if !s.chain.IsConnected() {
		return chain.ErrDisconnected
	}
	s.SetReady(true)
	return nil
}

func (s *Simulated) ToPrivateBuild(ctx context.Context, p BuildParams) (*BuildResult, error) {
	return s.Sign(ctx, MethodToPrivate, p)
}

func (s *Simulated) ToPublicBuild(ctx context.Context, p BuildParams) (*BuildResult, error) {
	return s.Sign(ctx, MethodToPublic, p)
}

func (s *Simulated) PrivateTransferBuild(ctx context.Context, p BuildParams) (*BuildResult, error) {
	return s.Sign(ctx, MethodPrivateTransfer, p)
}

// Sign builds the ordered transactions for method.
func (s *Simulated) Sign(_ context.Context, method Method, p BuildParams) (*BuildResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.builds = append(s.builds, method)
	if s.decline {
		return nil, nil
	}

	t, err := s.catalog.ByID(p.AssetID, method != MethodToPrivate)
	if err != nil {
		return nil, err
	}
	amount, err := asset.NewBalance(t, p.Amount)
	if err != nil {
		return nil, err
	}

	var final chain.Call
	switch method {
	case MethodToPrivate:
		final = chain.Call{Section: chain.SectionMantaPay, Method: chain.MethodToPrivate, From: p.PublicAddress, To: s.zkAddress, Amount: amount}
	case MethodToPublic:
		to := p.ToPublicAddress
		if to == "" {
			to = p.PublicAddress
		}
		final = chain.Call{Section: chain.SectionMantaPay, Method: chain.MethodToPublic, From: s.zkAddress, To: to, Amount: amount}
	case MethodPrivateTransfer:
		if p.ToPrivateAddress == "" {
			return nil, fmt.Errorf("private transfer without receiver")
		}
		final = chain.Call{Section: chain.SectionMantaPay, Method: chain.MethodPrivateTx, From: s.zkAddress, To: p.ToPrivateAddress, Amount: amount}
	default:
		return nil, fmt.Errorf("unsupported method %s", method)
	}

	var txs []chain.Tx
	if method != MethodToPrivate {
		for i := 0; i < s.internalSteps; i++ {
			txs = append(txs, chain.NewExtrinsic(chain.Call{
				Section: chain.SectionMantaPay,
				Method:  chain.MethodPrivateTx,
				From:    s.zkAddress,
				To:      s.zkAddress,
				Amount:  amount,
			}))
		}
	}
	txs = append(txs, chain.NewExtrinsic(final))
	return &BuildResult{Txs: txs}, nil
}
