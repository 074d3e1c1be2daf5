package send

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/lightningnetwork/lnd/clock"

	"github.com/shieldpay/shieldpay/internal/account"
	"github.com/shieldpay/shieldpay/internal/address"
	"github.com/shieldpay/shieldpay/internal/asset"
	"github.com/shieldpay/shieldpay/internal/chain"
	"github.com/shieldpay/shieldpay/internal/history"
	"github.com/shieldpay/shieldpay/internal/metrics"
	"github.com/shieldpay/shieldpay/internal/notification"
	"github.com/shieldpay/shieldpay/internal/preference"
	"github.com/shieldpay/shieldpay/internal/publisher"
	"github.com/shieldpay/shieldpay/internal/txstatus"
	"github.com/shieldpay/shieldpay/internal/wallet"
)

// ErrNotValidToSend is returned by Send when the transfer fails validation.
var ErrNotValidToSend = errors.New("transfer is not valid to send")

// Deps are the collaborators of an Engine. Metrics and Notifier may be nil.
type Deps struct {
	Catalog   *asset.Catalog
	Chain     chain.Client
	Wallet    wallet.Wallet
	Accounts  *account.Registry
	Prefs     *preference.Prefs
	Slot      *txstatus.Slot
	Publisher *publisher.Publisher
	Metrics   *metrics.Metrics
	Notifier  notification.Notifier
	Clock     clock.Clock
	Logger    *slog.Logger
}

// Config tunes an Engine.
type Config struct {
	Network string
	Policy  Policy
}

// Engine is the session handle of the send flow. It owns the transfer
// state; every mutation goes through one of its methods.
type Engine struct {
	deps Deps
	cfg  Config

	mu    sync.Mutex
	state State
}

// NewEngine restores the initial state from preferences and follows the
// account registry.
func NewEngine(ctx context.Context, deps Deps, cfg Config) *Engine {
	if deps.Clock == nil {
		deps.Clock = clock.NewDefaultClock()
	}
	if deps.Slot == nil {
		deps.Slot = txstatus.NewSlot()
	}
	e := &Engine{
		deps:  deps,
		cfg:   cfg,
		state: InitialState(ctx, deps.Catalog, deps.Prefs),
	}
	if addr, _, ok := deps.Accounts.External(); ok {
		e.state = e.state.SetSenderPublicAccount(addr)
	}
	deps.Accounts.Watch(func(acc account.Account, ok bool) {
		addr := ""
		if ok {
			addr = acc.Address
		}
		e.update(func(s State) State { return s.SetSenderPublicAccount(addr) })
	})
	e.SyncPrivateAddress(ctx)
	return e
}

// Slot returns the transaction status slot the engine publishes to.
func (e *Engine) Slot() *txstatus.Slot {
	return e.deps.Slot
}

// State returns a copy of the current transfer state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) update(fn func(State) State) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = fn(e.state)
	return e.state
}

func (e *Engine) ToggleSender(ctx context.Context) State {
	s := e.update(State.ToggleSender)
	e.persistPrivacy(ctx, s)
	return s
}

func (e *Engine) ToggleReceiver(ctx context.Context) State {
	s := e.update(State.ToggleReceiver)
	e.persistPrivacy(ctx, s)
	return s
}

func (e *Engine) Swap(ctx context.Context) State {
	before := e.State()
	s := e.update(State.Swap)
	if s.SenderAssetType.Private != before.SenderAssetType.Private {
		e.persistPrivacy(ctx, s)
	}
	return s
}

// persistPrivacy stores both privacy flags. The remembered token always
// comes from the sender, which both endpoints share.
func (e *Engine) persistPrivacy(ctx context.Context, s State) {
	e.deps.Prefs.PutBool(ctx, preference.SenderPrivate, s.SenderAssetType.Private)
	e.deps.Prefs.PutBool(ctx, preference.ReceiverPrivate, s.ReceiverAssetType.Private)
	e.deps.Prefs.Put(ctx, preference.CurrentToken, s.SenderAssetType.BaseTicker)
}

// SetAssetType selects the asset by ticker in the sender's current privacy.
func (e *Engine) SetAssetType(ctx context.Context, ticker string) (State, error) {
	t, err := e.deps.Catalog.ByTicker(ticker, e.State().SenderAssetType.Private)
	if err != nil {
		return e.State(), err
	}
	s := e.update(func(s State) State { return s.SetAssetType(t.WithPrivate(s.SenderAssetType.Private)) })
	e.deps.Prefs.Put(ctx, preference.CurrentToken, t.BaseTicker)
	return s, nil
}

// SetTargetInput parses a user entered amount in the sender asset. An empty
// input clears the target; an invalid one is rejected and the previous
// target kept.
func (e *Engine) SetTargetInput(input string) (State, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return e.update(func(s State) State { return s.SetTarget(nil) }), nil
	}
	var parseErr error
	s := e.update(func(s State) State {
		b, err := asset.FromDecimalString(s.SenderAssetType, input)
		if err != nil {
			parseErr = err
			return s
		}
		return s.SetTarget(&b)
	})
	return s, parseErr
}

// SetReceiverInput validates a user entered address against the receiver's
// privacy. Input that fails validation is kept as the invalid marker.
func (e *Engine) SetReceiverInput(input string) State {
	input = strings.TrimSpace(input)
	return e.update(func(s State) State {
		if input == "" {
			return s.SetReceiver(NoReceiver())
		}
		if err := address.Validate(input, s.ReceiverAssetType.Private); err != nil {
			return s.SetReceiver(InvalidReceiver())
		}
		return s.SetReceiver(AddressReceiver(input))
	})
}

// SyncPrivateAddress copies the wallet's shielded address into the state.
// A wallet without an address clears a defaulted ToPrivate receiver.
func (e *Engine) SyncPrivateAddress(ctx context.Context) State {
	addr, ok := e.deps.Wallet.PrivateAddress(ctx)
	if !ok {
		addr = ""
	}
	if e.State().SenderPrivateAddress == addr {
		return e.State()
	}
	if addr != "" {
		e.deps.Prefs.Put(ctx, preference.LastSeenPrivateAddress, addr)
	}
	return e.update(func(s State) State { return s.SetSenderPrivateAddress(addr) })
}

func (e *Engine) SetSenderCurrentBalance(b *asset.Balance) State {
	return e.update(func(s State) State { return s.SetSenderCurrentBalance(b) })
}

func (e *Engine) SetReceiverCurrentBalance(b *asset.Balance) State {
	return e.update(func(s State) State { return s.SetReceiverCurrentBalance(b) })
}

func (e *Engine) SetSenderNativePublicBalance(b *asset.Balance) State {
	return e.update(func(s State) State { return s.SetSenderNativePublicBalance(b) })
}

type outOfDater interface {
	OutOfDate() bool
}

// Env reports the collaborator state used by validation.
func (e *Engine) Env() Env {
	env := Env{
		WalletReady: e.deps.Wallet.IsReady(),
		Connected:   e.deps.Chain.IsConnected(),
	}
	if w, ok := e.deps.Wallet.(outOfDater); ok {
		env.WalletOutOfDate = w.OutOfDate()
	}
	if _, signer, ok := e.deps.Accounts.External(); ok && signer != nil {
		env.HasSigner = true
	}
	return env
}

// ValidToSend reports whether Send would start a cycle right now.
func (e *Engine) ValidToSend() bool {
	return ValidToSend(e.State(), e.cfg.Policy, e.Env())
}

// Send validates the transfer and starts a cycle. It is rejected without
// touching any state while a transaction is processing or the transfer is
// not valid. The cycle outlives ctx cancellation.
func (e *Engine) Send(ctx context.Context) (*Cycle, error) {
	if e.deps.Slot.Get().IsProcessing() {
		return nil, txstatus.ErrInFlight
	}
	st := e.State()
	if !ValidToSend(st, e.cfg.Policy, e.Env()) {
		return nil, ErrNotValidToSend
	}
	from, signer, ok := e.deps.Accounts.External()
	if !ok || signer == nil {
		return nil, ErrNotValidToSend
	}
	if err := e.deps.Slot.Begin(); err != nil {
		return nil, err
	}

	c := newCycle(st.Mode())
	e.deps.Logger.Info("send started", "cycle", c.ID, "mode", c.Mode.String(), "asset", st.SenderTarget.Type.Ticker())
	go e.run(context.WithoutCancel(ctx), c, st, from, signer)
	return c, nil
}

func (e *Engine) run(ctx context.Context, c *Cycle, st State, from string, signer chain.Signer) {
	txs, err := e.build(ctx, st, from)
	if err != nil || len(txs) == 0 {
		status := txstatus.NewFailed(publisher.MessageDeclined)
		if err != nil {
			status = txstatus.NewFailed(publisher.MessageFailed)
			err = fmt.Errorf("build %s: %w", c.Mode, err)
			e.deps.Logger.Error("send build failed", "cycle", c.ID, "error", err)
		} else {
			e.deps.Logger.Info("send declined", "cycle", c.ID)
		}
		e.deps.Slot.Set(status)
		e.complete(ctx, c, status, err)
		return
	}
	c.advance(PhaseAwaitingSignature)

	batch := publisher.Batch{
		Txs:    txs,
		Signer: signer,
		Final: func(ctx context.Context, hash string, u chain.Update) bool {
			if u.Status == chain.InBlock && !u.IsBatchInterrupted() {
				c.advance(PhaseInBlock)
			}
			return e.deps.Publisher.SettleWith(ctx, hash, u, func() {
				e.markStale(st.Mode())
			})
		},
	}
	if st.Mode() != PublicTransfer {
		pending := history.NewPending(e.deps.Clock, "", st.Mode().String(), st.SenderTarget.Type.Ticker(),
			st.SenderTarget.DecimalString(-1, false), e.cfg.Network)
		batch.Pending = &pending
	}

	res := e.deps.Publisher.Publish(ctx, batch)
	e.complete(ctx, c, res.Status, res.Err)
}

func (e *Engine) build(ctx context.Context, st State, from string) ([]chain.Tx, error) {
	target := *st.SenderTarget
	to := st.Receiver.Address
	if st.Mode() == PublicTransfer {
		tx, err := e.deps.Chain.BuildPublicTransfer(ctx, target, from, to)
		if err != nil {
			return nil, err
		}
		return []chain.Tx{tx}, nil
	}

	params := wallet.BuildParams{
		AssetID:       target.Type.ID,
		Amount:        target.Atomic(),
		PublicAddress: from,
		Network:       e.cfg.Network,
	}
	var (
		res *wallet.BuildResult
		err error
	)
	switch st.Mode() {
	case ToPrivate:
		params.ToPrivateAddress = to
		res, err = e.deps.Wallet.BuildToPrivate(ctx, params)
	case ToPublic:
		params.ToPublicAddress = to
		res, err = e.deps.Wallet.BuildToPublic(ctx, params)
	default:
		params.ToPrivateAddress = to
		res, err = e.deps.Wallet.BuildPrivateTransfer(ctx, params)
	}
	if err != nil || res == nil {
		return nil, err
	}
	return res.Txs, nil
}

// markStale hides private balances that predate the finalized transfer
// until the next refresh.
func (e *Engine) markStale(mode Mode) {
	if !mode.SenderPrivate() && !mode.ReceiverPrivate() {
		return
	}
	e.deps.Wallet.MarkBalancesStale()
	e.update(func(s State) State {
		if s.SenderAssetType.Private {
			s.SenderCurrent = nil
		}
		if s.ReceiverAssetType.Private {
			s.ReceiverCurrent = nil
		}
		return s
	})
}

func (e *Engine) complete(ctx context.Context, c *Cycle, status txstatus.Status, err error) {
	outcome := status.Kind.String()
	e.deps.Metrics.Send(c.Mode.String(), outcome)

	if e.deps.Notifier != nil {
		msg := notification.Message{
			Kind:          notification.KindTxFailed,
			Destination:   e.State().SenderPublicAddress,
			ExtrinsicHash: status.ExtrinsicHash,
			Body:          fmt.Sprintf("%s %s", c.Mode, outcome),
		}
		if status.Kind == txstatus.Finalized {
			msg.Kind = notification.KindTxFinalized
		} else if status.Message != "" {
			msg.Body += ": " + status.Message
		}
		if nerr := e.deps.Notifier.Send(ctx, msg); nerr != nil {
			e.deps.Logger.Warn("notify send outcome", "cycle", c.ID, "error", nerr)
		}
	}
	e.deps.Logger.Info("send finished", "cycle", c.ID, "mode", c.Mode.String(), "status", outcome, "hash", status.ExtrinsicHash)
	c.finish(status, err)
}
