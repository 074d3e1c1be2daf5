package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/shieldpay/shieldpay/internal/asset"
)

// Backend is the closed set of shielded wallet implementations behind the
// Wallet interface. Exactly one of ext and signer is set, selected by kind.
type Backend struct {
	kind       Kind
	ext        ExtensionProvider
	signer     SyncedSigner
	network    string
	minVersion string
	logger     *slog.Logger

	mu      sync.Mutex
	stale   bool
	synced  bool
	address string
}

// NewExtension wraps a browser-extension wallet.
func NewExtension(p ExtensionProvider, network, minVersion string, logger *slog.Logger) *Backend {
	return &Backend{kind: KindExtension, ext: p, network: network, minVersion: minVersion, logger: logger}
}

// NewManaged wraps a background-synced signer. It is not ready until the
// first Sync succeeds.
func NewManaged(s SyncedSigner, network, minVersion string, logger *slog.Logger) *Backend {
	return &Backend{kind: KindManaged, signer: s, network: network, minVersion: minVersion, logger: logger}
}

func (b *Backend) Kind() Kind { return b.kind }

func (b *Backend) Version() string {
	if b.kind == KindManaged {
		return b.signer.Version()
	}
	return b.ext.Version()
}

// OutOfDate reports whether the wallet is older than the configured minimum.
func (b *Backend) OutOfDate() bool {
	return OutOfDate(b.Version(), b.minVersion)
}

func (b *Backend) IsReady() bool {
	if b.OutOfDate() {
		return false
	}
	if b.kind == KindManaged {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.synced
	}
	return b.ext.Ready()
}

func (b *Backend) PrivateAddress(ctx context.Context) (string, bool) {
	b.mu.Lock()
	cached := b.address
	b.mu.Unlock()
	if cached != "" {
		return cached, true
	}

	var (
		addr string
		err  error
	)
	if b.kind == KindManaged {
		addr, err = b.signer.Address(ctx)
	} else {
		addr, err = b.ext.ZkAddress(ctx)
	}
	if err != nil || addr == "" {
		if err != nil {
			b.logger.Warn("private address lookup failed", "wallet", b.kind.String(), "error", err)
		}
		return "", false
	}

	b.mu.Lock()
	b.address = addr
	b.mu.Unlock()
	return addr, true
}

func (b *Backend) SpendableBalance(ctx context.Context, t asset.Type) (*asset.Balance, error) {
	if !t.Private {
		return nil, fmt.Errorf("spendable balance of public asset %s", t)
	}
	if !b.IsReady() {
		return nil, nil
	}

	var (
		raw decimal.Decimal
		err error
	)
	if b.kind == KindManaged {
		if b.BalancesStale() {
			return nil, nil
		}
		raw, err = b.signer.Balance(ctx, t.ID)
	} else {
		raw, err = b.ext.ZkBalance(ctx, b.network, t.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch shielded balance of %s: %w", t.Ticker(), err)
	}

	bal, err := asset.NewBalance(t, raw)
	if err != nil {
		return nil, err
	}
	if b.kind == KindExtension {
		b.mu.Lock()
		b.stale = false
		b.mu.Unlock()
	}
	return &bal, nil
}

func (b *Backend) BuildToPrivate(ctx context.Context, p BuildParams) (*BuildResult, error) {
	return b.build(ctx, MethodToPrivate, p)
}

func (b *Backend) BuildToPublic(ctx context.Context, p BuildParams) (*BuildResult, error) {
	return b.build(ctx, MethodToPublic, p)
}

func (b *Backend) BuildPrivateTransfer(ctx context.Context, p BuildParams) (*BuildResult, error) {
	return b.build(ctx, MethodPrivateTransfer, p)
}

func (b *Backend) build(ctx context.Context, method Method, p BuildParams) (*BuildResult, error) {
	if !b.IsReady() {
		return nil, ErrNotReady
	}
	if p.Network == "" {
		p.Network = b.network
	}

	var (
		res *BuildResult
		err error
	)
	switch {
	case b.kind == KindManaged:
		res, err = b.signer.Sign(ctx, method, p)
	case method == MethodToPrivate:
		res, err = b.ext.ToPrivateBuild(ctx, p)
	case method == MethodToPublic:
		res, err = b.ext.ToPublicBuild(ctx, p)
	default:
		res, err = b.ext.PrivateTransferBuild(ctx, p)
	}
	if err != nil {
		return nil, err
	}
	if res == nil || len(res.Txs) == 0 {
		b.logger.Info("wallet declined build", "wallet", b.kind.String(), "method", string(method))
		return nil, nil
	}
	return res, nil
}

// MarkBalancesStale flags shielded balances as predating the latest
// finalized transaction.
func (b *Backend) MarkBalancesStale() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stale = true
}

func (b *Backend) BalancesStale() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stale
}

// Sync refreshes a managed wallet's ledger view and clears the stale flag.
// It is a no-op for extension wallets, which sync on their own.
func (b *Backend) Sync(ctx context.Context) error {
	if b.kind != KindManaged {
		return nil
	}
	if err := b.signer.Sync(ctx); err != nil {
		return fmt.Errorf("sync %s wallet: %w", b.kind, err)
	}
	b.mu.Lock()
	b.stale = false
	b.synced = true
	b.mu.Unlock()
	return nil
}
