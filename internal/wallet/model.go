package wallet

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/shieldpay/shieldpay/internal/asset"
	"github.com/shieldpay/shieldpay/internal/chain"
)

// ErrNotReady is returned by build calls while the wallet is syncing, out of
// date or disconnected.
var ErrNotReady = errors.New("private wallet not ready")

// Kind tags the backend behind the facade.
type Kind int

const (
	KindExtension Kind = iota + 1
	KindManaged
)

func (k Kind) String() string {
	switch k {
	case KindExtension:
		return "extension"
	case KindManaged:
		return "managed"
	default:
		return "unknown"
	}
}

// ParseKind maps a configuration value to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "extension", "":
		return KindExtension, nil
	case "managed", "signer":
		return KindManaged, nil
	default:
		return 0, errors.New("unknown wallet backend " + s)
	}
}

// BuildParams is the request sent to the shielded wallet for one transfer.
type BuildParams struct {
	AssetID          asset.ID
	Amount           decimal.Decimal
	PublicAddress    string
	Network          string
	ToPrivateAddress string
	ToPublicAddress  string
}

// BuildResult holds the ordered transactions produced by a build. All but
// the last are internal settlement steps.
type BuildResult struct {
	Txs []chain.Tx
}

// Wallet is the capability surface the send engine uses. Build calls
// return a nil result when the user declines or the wallet refuses.
type Wallet interface {
	Kind() Kind
	IsReady() bool
	Version() string
	PrivateAddress(ctx context.Context) (string, bool)
	// SpendableBalance returns nil when the balance is not known yet.
	SpendableBalance(ctx context.Context, t asset.Type) (*asset.Balance, error)
	BuildToPrivate(ctx context.Context, p BuildParams) (*BuildResult, error)
	BuildToPublic(ctx context.Context, p BuildParams) (*BuildResult, error)
	BuildPrivateTransfer(ctx context.Context, p BuildParams) (*BuildResult, error)
	MarkBalancesStale()
	BalancesStale() bool
	Sync(ctx context.Context) error
}

// ExtensionProvider is the browser-extension resident shielded wallet.
type ExtensionProvider interface {
	Ready() bool
	Version() string
	ZkAddress(ctx context.Context) (string, error)
	ZkBalance(ctx context.Context, network string, id asset.ID) (decimal.Decimal, error)
	ToPrivateBuild(ctx context.Context, p BuildParams) (*BuildResult, error)
	ToPublicBuild(ctx context.Context, p BuildParams) (*BuildResult, error)
	PrivateTransferBuild(ctx context.Context, p BuildParams) (*BuildResult, error)
}

// Method selects the kind of shielded call a SyncedSigner builds.
type Method string

const (
	MethodToPrivate       Method = chain.MethodToPrivate
	MethodToPublic        Method = chain.MethodToPublic
	MethodPrivateTransfer Method = chain.MethodPrivateTx
)

// SyncedSigner is the background-synced shielded wallet. Its balances are
// only trustworthy after a successful Sync.
type SyncedSigner interface {
	Version() string
	Address(ctx context.Context) (string, error)
	Balance(ctx context.Context, id asset.ID) (decimal.Decimal, error)
	Sync(ctx context.Context) error
	Sign(ctx context.Context, method Method, p BuildParams) (*BuildResult, error)
}
