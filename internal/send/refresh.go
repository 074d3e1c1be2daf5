package send

import (
	"context"
	"log/slog"

	"github.com/lightningnetwork/lnd/ticker"
	"golang.org/x/sync/errgroup"

	"github.com/shieldpay/shieldpay/internal/asset"
	"github.com/shieldpay/shieldpay/internal/metrics"
	"github.com/shieldpay/shieldpay/internal/txstatus"
	"github.com/shieldpay/shieldpay/internal/wallet"
)

// Refresher periodically fetches the sender, receiver and fee balances of
// an Engine. Ticks are skipped while a transaction is processing.
type Refresher struct {
	engine  *Engine
	ticker  ticker.Ticker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewRefresher drives engine with t. Use ticker.New in production and
// ticker.NewForce in tests.
func NewRefresher(engine *Engine, t ticker.Ticker, m *metrics.Metrics, logger *slog.Logger) *Refresher {
	return &Refresher{engine: engine, ticker: t, metrics: m, logger: logger}
}

// Run refreshes on every tick until ctx is done.
func (r *Refresher) Run(ctx context.Context) error {
	r.ticker.Resume()
	defer r.ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.ticker.Ticks():
			if err := r.Tick(ctx); err != nil {
				r.logger.Warn("balance refresh failed", "error", err)
			}
		}
	}
}

// Tick performs one refresh pass.
func (r *Refresher) Tick(ctx context.Context) error {
	e := r.engine
	slot := e.deps.Slot
	status := slot.Get()
	if status.IsProcessing() {
		r.metrics.Refresh("skipped")
		return nil
	}

	if !e.deps.Chain.IsConnected() {
		if status.Kind != txstatus.Disconnected && slot.Transition(status.Kind, txstatus.NewDisconnected()) {
			r.logger.Warn("chain disconnected, pausing refresh")
		}
		r.metrics.Refresh("disconnected")
		return nil
	}
	if slot.Transition(txstatus.Disconnected, txstatus.NewIdle()) {
		r.logger.Info("chain reconnected, resuming refresh")
	}

	if e.deps.Wallet.Kind() == wallet.KindManaged {
		if err := e.deps.Wallet.Sync(ctx); err != nil {
			r.logger.Warn("wallet sync failed", "error", err)
		}
	}
	e.SyncPrivateAddress(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.refreshSender(gctx) })
	g.Go(func() error { return r.refreshReceiver(gctx) })
	g.Go(func() error { return r.refreshFee(gctx) })
	if err := g.Wait(); err != nil {
		r.metrics.Refresh("error")
		return err
	}
	r.metrics.Refresh("ok")
	return nil
}

func (r *Refresher) processing() bool {
	return r.engine.deps.Slot.Get().IsProcessing()
}

func (r *Refresher) refreshSender(ctx context.Context) error {
	e := r.engine
	st := e.State()
	t := st.SenderAssetType
	if !t.Private {
		b, err := r.publicBalance(ctx, t, st.SenderPublicAddress)
		if err != nil {
			return err
		}
		e.SetSenderCurrentBalance(b)
		return nil
	}
	// The shielded wallet serves one request at a time.
	if r.processing() {
		return nil
	}
	b, err := e.deps.Wallet.SpendableBalance(ctx, t)
	if err != nil {
		return err
	}
	if b != nil {
		e.SetSenderCurrentBalance(b)
	}
	return nil
}

func (r *Refresher) refreshReceiver(ctx context.Context) error {
	e := r.engine
	st := e.State()
	t := st.ReceiverAssetType
	switch st.Mode() {
	case PrivateTransfer:
		// Third party shielded balances are not observable.
		e.SetReceiverCurrentBalance(nil)
		return nil
	case ToPrivate:
		if r.processing() {
			return nil
		}
		b, err := e.deps.Wallet.SpendableBalance(ctx, t)
		if err != nil {
			return err
		}
		if b != nil {
			e.SetReceiverCurrentBalance(b)
		}
		return nil
	default:
		addr := ""
		if st.Receiver.Valid() {
			addr = st.Receiver.Address
		}
		b, err := r.publicBalance(ctx, t, addr)
		if err != nil {
			return err
		}
		e.SetReceiverCurrentBalance(b)
		return nil
	}
}

func (r *Refresher) refreshFee(ctx context.Context) error {
	e := r.engine
	addr, _, ok := e.deps.Accounts.External()
	if !ok {
		return nil
	}
	b, err := e.deps.Chain.NativeBalance(ctx, addr)
	if err != nil {
		return err
	}
	e.SetSenderNativePublicBalance(&b)
	return nil
}

// publicBalance returns nil for an unknown owner. A balance for an asset
// that was deselected meanwhile is dropped by the state's staleness guard.
func (r *Refresher) publicBalance(ctx context.Context, t asset.Type, owner string) (*asset.Balance, error) {
	if owner == "" {
		return nil, nil
	}
	b, err := r.engine.deps.Chain.AssetBalance(ctx, t, owner)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
