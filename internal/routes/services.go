package routes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/redis/go-redis/v9"

	"github.com/shieldpay/shieldpay/internal/account"
	"github.com/shieldpay/shieldpay/internal/asset"
	"github.com/shieldpay/shieldpay/internal/config"
	"github.com/shieldpay/shieldpay/internal/history"
	"github.com/shieldpay/shieldpay/internal/infra"
	"github.com/shieldpay/shieldpay/internal/logging"
	"github.com/shieldpay/shieldpay/internal/metrics"
	"github.com/shieldpay/shieldpay/internal/notification"
	"github.com/shieldpay/shieldpay/internal/preference"
	"github.com/shieldpay/shieldpay/internal/publisher"
	"github.com/shieldpay/shieldpay/internal/send"
	"github.com/shieldpay/shieldpay/internal/txstatus"
	"github.com/shieldpay/shieldpay/internal/wallet"
)

// devnetWalletVersion is what the simulated wallet reports.
const devnetWalletVersion = "1.2.0"

var devnetAccounts = []string{"alice", "bob"}

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Services is the wired send session and everything it depends on.
type Services struct {
	Catalog   *asset.Catalog
	Devnet    *infra.Devnet
	Accounts  *account.Registry
	Wallet    *wallet.Backend
	History   history.Store
	Metrics   *metrics.Metrics
	Engine    *send.Engine
	Refresher *send.Refresher
}

// Build constructs the send engine and its collaborators. Without a
// database history stays in memory, and without a cache preferences do.
func Build(ctx context.Context, d Deps) (*Services, error) {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	logger := d.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	catalog, err := asset.LoadCatalog(d.Cfg.AssetsFile)
	if err != nil {
		return nil, err
	}
	devnet, err := infra.NewDevnet(catalog, devnetAccounts, devnetWalletVersion)
	if err != nil {
		return nil, err
	}

	var store preference.Store
	if d.Cache != nil {
		store = preference.NewRedisStore(d.Cache, d.Cfg.Network, d.Cfg.PreferenceTTL)
	} else {
		store = preference.NewMemoryStore()
	}
	prefs := preference.New(store, logging.Component(logger, "preference"))

	accounts := account.NewRegistry(devnet.Source(), prefs, logging.Component(logger, "account"))
	accounts.SetCandidates(ctx, devnet.Accounts)

	kind, err := wallet.ParseKind(d.Cfg.WalletBackend)
	if err != nil {
		return nil, err
	}
	walletLogger := logging.Component(logger, "wallet")
	var backend *wallet.Backend
	if kind == wallet.KindManaged {
		backend = wallet.NewManaged(devnet.Wallet, d.Cfg.Network, d.Cfg.MinWalletVersion, walletLogger)
		if err := backend.Sync(ctx); err != nil {
			walletLogger.Warn("initial wallet sync failed", "error", err)
		}
	} else {
		backend = wallet.NewExtension(devnet.Wallet, d.Cfg.Network, d.Cfg.MinWalletVersion, walletLogger)
	}

	clk := clock.NewDefaultClock()
	var hist history.Store
	if d.DB != nil {
		pg := history.NewPostgresStore(d.DB, clk)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		hist = pg
	} else {
		hist = history.NewMemoryStore(clk)
	}

	m := metrics.New()
	slot := txstatus.NewSlot()
	pub := publisher.New(devnet.Chain, slot, hist, m, logging.Component(logger, "publisher"))

	engine := send.NewEngine(ctx, send.Deps{
		Catalog:   catalog,
		Chain:     devnet.Chain,
		Wallet:    backend,
		Accounts:  accounts,
		Prefs:     prefs,
		Slot:      slot,
		Publisher: pub,
		Metrics:   m,
		Notifier:  notification.NewLoggerNotifier(logging.Component(logger, "notification")),
		Clock:     clk,
		Logger:    logging.Component(logger, "send"),
	}, send.Config{
		Network: d.Cfg.Network,
		Policy: send.Policy{
			FeeEstimate:            d.Cfg.FeeEstimate,
			SuggestedMinFeeBalance: d.Cfg.SuggestedMinFee,
		},
	})
	refresher := send.NewRefresher(engine, ticker.New(d.Cfg.RefreshInterval), m, logging.Component(logger, "refresh"))

	return &Services{
		Catalog:   catalog,
		Devnet:    devnet,
		Accounts:  accounts,
		Wallet:    backend,
		History:   hist,
		Metrics:   m,
		Engine:    engine,
		Refresher: refresher,
	}, nil
}
