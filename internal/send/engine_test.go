package send

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/shopspring/decimal"

	"github.com/shieldpay/shieldpay/internal/account"
	"github.com/shieldpay/shieldpay/internal/address"
	"github.com/shieldpay/shieldpay/internal/asset"
	"github.com/shieldpay/shieldpay/internal/chain"
	"github.com/shieldpay/shieldpay/internal/history"
	"github.com/shieldpay/shieldpay/internal/logging"
	"github.com/shieldpay/shieldpay/internal/metrics"
	"github.com/shieldpay/shieldpay/internal/notification"
	"github.com/shieldpay/shieldpay/internal/preference"
	"github.com/shieldpay/shieldpay/internal/publisher"
	"github.com/shieldpay/shieldpay/internal/txstatus"
	"github.com/shieldpay/shieldpay/internal/wallet"
)

var testSpecs = []asset.Spec{
	{ID: 1, Ticker: "DOL", Decimals: 2, ExistentialDeposit: "10", Native: true},
	{ID: 8, Ticker: "KAR", Decimals: 3, ExistentialDeposit: "1"},
}

type harness struct {
	chain    *chain.InMemory
	catalog  *asset.Catalog
	sim      *wallet.Simulated
	accounts *account.Registry
	prefs    *preference.Prefs
	history  history.Store
	notes    *notification.Recorder
	engine   *Engine
}

func newHarness(t *testing.T, prefs *preference.Prefs) *harness {
	t.Helper()
	ctx := context.Background()
	catalog, err := asset.NewCatalog(testSpecs)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if prefs == nil {
		prefs = preference.New(nil, logging.Discard())
	}

	c := chain.NewInMemory(catalog)
	chain.SeedBalance(c, "alice", 1, 1_000_000)
	chain.SeedBalance(c, "alice", 8, 1_000_000)
	chain.SeedShielded(c, "zk-alice", 1, 500_000)
	chain.SeedShielded(c, "zk-alice", 8, 500_000)

	sim := wallet.NewSimulated(c, catalog, "zk-alice", "1.0.0")
	accounts := account.NewRegistry("polkadot-js", prefs, logging.Discard())
	accounts.SetCandidates(ctx, []account.Account{
		{Address: "alice", Name: "Alice", Signer: chain.StaticSigner{Addr: "alice"}},
		{Address: "bob", Name: "Bob", Signer: chain.StaticSigner{Addr: "bob"}},
	})

	clk := clock.NewTestClock(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	store := history.NewMemoryStore(clk)
	slot := txstatus.NewSlot()
	m := metrics.New()
	notes := &notification.Recorder{}

	engine := NewEngine(ctx, Deps{
		Catalog:   catalog,
		Chain:     c,
		Wallet:    wallet.NewExtension(sim, "Dolphin", "", logging.Discard()),
		Accounts:  accounts,
		Prefs:     prefs,
		Slot:      slot,
		Publisher: publisher.New(c, slot, store, m, logging.Discard()),
		Metrics:   m,
		Notifier:  notes,
		Clock:     clk,
		Logger:    logging.Discard(),
	}, Config{
		Network: "Dolphin",
		Policy:  Policy{FeeEstimate: decimal.NewFromInt(50), SuggestedMinFeeBalance: decimal.NewFromInt(150)},
	})

	return &harness{chain: c, catalog: catalog, sim: sim, accounts: accounts, prefs: prefs, history: store, notes: notes, engine: engine}
}

func (h *harness) refresh(t *testing.T) {
	t.Helper()
	r := NewRefresher(h.engine, ticker.New(time.Hour), nil, logging.Discard())
	if err := r.Tick(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
}

func (h *harness) target(t *testing.T, amount string) {
	t.Helper()
	if _, err := h.engine.SetTargetInput(amount); err != nil {
		t.Fatalf("target %q: %v", amount, err)
	}
}

func (h *harness) send(t *testing.T) (*Cycle, txstatus.Status) {
	t.Helper()
	cycle, err := h.engine.Send(context.Background())
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	status, err := cycle.Wait(ctx)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	return cycle, status
}

func publicAddress(t *testing.T, seed byte) string {
	t.Helper()
	addr, err := address.EncodePublic(42, bytes.Repeat([]byte{seed}, 32))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return addr
}

func privateAddress(t *testing.T, seed byte) string {
	t.Helper()
	addr, err := address.EncodePrivate(bytes.Repeat([]byte{seed}, 32))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return addr
}

func TestInitialStateDefaults(t *testing.T) {
	h := newHarness(t, nil)
	st := h.engine.State()
	if st.Mode() != ToPrivate || st.SenderAssetType.BaseTicker != "DOL" {
		t.Fatalf("unexpected initial state %+v", st)
	}
	if st.SenderPublicAddress != "alice" || st.Receiver != AddressReceiver("zk-alice") {
		t.Fatalf("expected own addresses, got %+v", st)
	}
}

func TestInitialStateRestoresPreferences(t *testing.T) {
	ctx := context.Background()
	prefs := preference.New(nil, logging.Discard())
	prefs.PutBool(ctx, preference.SenderPrivate, true)
	prefs.PutBool(ctx, preference.ReceiverPrivate, false)
	prefs.Put(ctx, preference.CurrentToken, "KAR")

	st := newHarness(t, prefs).engine.State()
	if st.SenderAssetType.Ticker() != "zkKAR" || st.ReceiverAssetType.Ticker() != "KAR" {
		t.Fatalf("preferences not restored: %s -> %s", st.SenderAssetType.Ticker(), st.ReceiverAssetType.Ticker())
	}
	if st.Mode() != ToPublic || st.Receiver != AddressReceiver("alice") {
		t.Fatalf("expected ToPublic to own account, got %s %+v", st.Mode(), st.Receiver)
	}
}

func TestTogglesPersistPreferences(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	h.engine.ToggleReceiver(ctx)
	if h.prefs.Bool(ctx, preference.ReceiverPrivate, true) {
		t.Fatal("receiver privacy not persisted")
	}
	h.engine.ToggleSender(ctx)
	if !h.prefs.Bool(ctx, preference.SenderPrivate, false) {
		t.Fatal("sender privacy not persisted")
	}
	if _, err := h.engine.SetAssetType(ctx, "KAR"); err != nil {
		t.Fatalf("set asset: %v", err)
	}
	if tok, _ := h.prefs.String(ctx, preference.CurrentToken); tok != "KAR" {
		t.Fatalf("current token not persisted, got %q", tok)
	}
	if _, err := h.engine.SetAssetType(ctx, "BTC"); !errors.Is(err, asset.ErrUnknownAsset) {
		t.Fatalf("expected unknown asset, got %v", err)
	}

	h.engine.ToggleReceiver(ctx)
	if tok, _ := h.prefs.String(ctx, preference.CurrentToken); tok != "KAR" {
		t.Fatalf("receiver toggle changed the current token to %q", tok)
	}
	h.engine.ToggleReceiver(ctx)
	h.prefs.Put(ctx, preference.CurrentToken, "stale")
	st := h.engine.Swap(ctx)
	if st.SenderAssetType.Private == st.ReceiverAssetType.Private {
		t.Fatalf("expected differing privacy after swap, got %+v", st)
	}
	if tok, _ := h.prefs.String(ctx, preference.CurrentToken); tok != "KAR" {
		t.Fatalf("swap must persist the sender token, got %q", tok)
	}
	if h.prefs.Bool(ctx, preference.SenderPrivate, true) != st.SenderAssetType.Private ||
		h.prefs.Bool(ctx, preference.ReceiverPrivate, false) != st.ReceiverAssetType.Private {
		t.Fatal("swap privacy not persisted")
	}
}

func TestInvalidTargetKeepsPrevious(t *testing.T) {
	h := newHarness(t, nil)
	h.target(t, "1.5")
	if _, err := h.engine.SetTargetInput("1.234"); !errors.Is(err, asset.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if got := h.engine.State().SenderTarget.DecimalString(-1, false); got != "1.5" {
		t.Fatalf("previous target lost, got %s", got)
	}
	if st, _ := h.engine.SetTargetInput(" "); st.SenderTarget != nil {
		t.Fatal("empty input must clear the target")
	}
}

func TestReceiverInputValidation(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.ToggleReceiver(context.Background())

	st := h.engine.SetReceiverInput("not-an-address")
	if st.Receiver.Kind != ReceiverInvalid {
		t.Fatalf("expected invalid marker, got %+v", st.Receiver)
	}
	valid := publicAddress(t, 7)
	if st = h.engine.SetReceiverInput(valid); st.Receiver != AddressReceiver(valid) {
		t.Fatalf("expected valid receiver, got %+v", st.Receiver)
	}
	if st = h.engine.SetReceiverInput(""); st.Receiver.IsSet() {
		t.Fatal("empty input must clear the receiver")
	}
}

func TestAccountChangeUpdatesState(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.Swap(context.Background())
	if err := h.accounts.Select(context.Background(), "bob"); err != nil {
		t.Fatalf("select: %v", err)
	}
	st := h.engine.State()
	if st.SenderPublicAddress != "bob" || st.Receiver != AddressReceiver("bob") {
		t.Fatalf("expected bob as sender and default receiver, got %+v", st)
	}
}

func TestSendToPrivateFinalizes(t *testing.T) {
	h := newHarness(t, nil)
	h.target(t, "100")
	h.refresh(t)
	if h.engine.State().ReceiverCurrent == nil {
		t.Fatal("expected receiver balance after refresh")
	}

	cycle, status := h.send(t)
	if status.Kind != txstatus.Finalized || status.ExtrinsicHash == "" {
		t.Fatalf("expected finalized, got %+v err=%v", status, cycle.Err())
	}
	if cycle.Phase() != PhaseFinalized || cycle.Mode != ToPrivate {
		t.Fatalf("unexpected cycle %s %s", cycle.Phase(), cycle.Mode)
	}
	if got, _ := h.chain.ShieldedAtomic(context.Background(), 1, "zk-alice"); got.IntPart() != 510_000 {
		t.Fatalf("expected shielded 510000, got %s", got)
	}

	st := h.engine.State()
	if st.ReceiverCurrent != nil {
		t.Fatal("private receiver balance must be cleared after finalization")
	}
	if st.SenderCurrent == nil {
		t.Fatal("public sender balance is not affected by staleness")
	}
	if !h.engine.deps.Wallet.BalancesStale() {
		t.Fatal("wallet balances must be marked stale")
	}

	events, _ := h.history.List(context.Background())
	if len(events) != 1 || events[0].Status != history.StatusSuccess || events[0].Mode != "To Private" || events[0].Amount != "100" {
		t.Fatalf("unexpected history %+v", events)
	}
	if msgs := h.notes.Messages(); len(msgs) != 1 || msgs[0].Kind != notification.KindTxFinalized {
		t.Fatalf("unexpected notifications %+v", msgs)
	}
}

func TestSendToPublicAfterSwapWithTarget(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.target(t, "100")
	h.refresh(t)
	h.engine.Swap(ctx)
	h.refresh(t)

	st := h.engine.State()
	if !st.SenderTarget.Type.Equal(st.SenderAssetType) {
		t.Fatalf("target kept the old privacy: %s vs %s", st.SenderTarget.Type.Ticker(), st.SenderAssetType.Ticker())
	}
	if HasSufficientFunds(st, h.engine.cfg.Policy) != True {
		t.Fatalf("expected sufficient funds after swap, got %v", HasSufficientFunds(st, h.engine.cfg.Policy))
	}

	cycle, status := h.send(t)
	if status.Kind != txstatus.Finalized || cycle.Mode != ToPublic {
		t.Fatalf("expected finalized ToPublic, got %+v %s err=%v", status, cycle.Mode, cycle.Err())
	}
	if got, _ := h.chain.ShieldedAtomic(ctx, 1, "zk-alice"); got.IntPart() != 490_000 {
		t.Fatalf("expected shielded 490000, got %s", got)
	}
	events, _ := h.history.List(ctx)
	if len(events) != 1 || events[0].AssetTicker != "zkDOL" || events[0].Amount != "100" {
		t.Fatalf("unexpected history %+v", events)
	}
}

func TestFinalizedObserversSeeStaleBalances(t *testing.T) {
	h := newHarness(t, nil)
	h.target(t, "100")
	h.refresh(t)

	updates, stop := h.engine.Slot().Subscribe(8)
	seen := make(chan bool, 1)
	go func() {
		for status := range updates {
			if status.Kind == txstatus.Finalized {
				seen <- h.engine.State().ReceiverCurrent == nil && h.engine.deps.Wallet.BalancesStale()
				return
			}
		}
	}()

	_, status := h.send(t)
	stop()
	if status.Kind != txstatus.Finalized {
		t.Fatalf("expected finalized, got %+v", status)
	}
	select {
	case ok := <-seen:
		if !ok {
			t.Fatal("private balances must be stale before Finalized is published")
		}
	case <-time.After(time.Second):
		t.Fatal("finalized status was not observed")
	}
}

func TestSendPublicTransferBypassesWallet(t *testing.T) {
	h := newHarness(t, nil)
	h.sim.SetReady(false)
	h.engine.ToggleReceiver(context.Background())
	bob := publicAddress(t, 9)
	h.engine.SetReceiverInput(bob)
	h.target(t, "25")
	h.refresh(t)

	_, status := h.send(t)
	if status.Kind != txstatus.Finalized {
		t.Fatalf("expected finalized, got %+v", status)
	}
	if len(h.sim.Builds()) != 0 {
		t.Fatalf("public transfer must not use the private wallet, got %v", h.sim.Builds())
	}
	got, _ := h.chain.NativeBalance(context.Background(), bob)
	if got.Atomic().IntPart() != 2_500 {
		t.Fatalf("expected 2500 at receiver, got %s", got.Atomic())
	}
	if events, _ := h.history.List(context.Background()); len(events) != 0 {
		t.Fatalf("public transfers are not recorded, got %+v", events)
	}
}

func TestSendPrivateTransferMarksBothSidesStale(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.engine.ToggleSender(ctx)
	h.engine.SetReceiverInput(privateAddress(t, 3))
	h.target(t, "10")
	h.refresh(t)
	if h.engine.State().SenderCurrent == nil {
		t.Fatal("expected shielded sender balance after refresh")
	}

	_, status := h.send(t)
	if status.Kind != txstatus.Finalized {
		t.Fatalf("expected finalized, got %+v", status)
	}
	if h.engine.State().SenderCurrent != nil {
		t.Fatal("private sender balance must be cleared")
	}
	if builds := h.sim.Builds(); len(builds) != 1 || builds[0] != wallet.MethodPrivateTransfer {
		t.Fatalf("unexpected builds %v", builds)
	}
}

func TestSendToPublicHaltsOnInterruptedStep(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.Swap(context.Background())
	h.sim.SetInternalSteps(2)
	h.chain.Script(chain.Finalize, chain.Interrupt)
	h.target(t, "100")
	h.refresh(t)

	cycle, status := h.send(t)
	if status.Kind != txstatus.Failed || status.Message != publisher.MessageFailed {
		t.Fatalf("expected failure, got %+v", status)
	}
	if !errors.Is(cycle.Err(), publisher.ErrBatchInterrupted) || cycle.Phase() != PhaseFailed {
		t.Fatalf("expected interrupted cycle, got %v %s", cycle.Err(), cycle.Phase())
	}
	if n := len(h.chain.Submitted()); n != 2 {
		t.Fatalf("expected 2 submissions, got %d", n)
	}
	if events, _ := h.history.List(context.Background()); len(events) != 0 {
		t.Fatalf("no history expected, got %+v", events)
	}
	if h.engine.Slot().Get().IsProcessing() {
		t.Fatal("slot must not stay processing")
	}
}

func TestSendDeclinedBuild(t *testing.T) {
	h := newHarness(t, nil)
	h.sim.SetDecline(true)
	h.target(t, "100")
	h.refresh(t)

	cycle, status := h.send(t)
	if status.Kind != txstatus.Failed || status.Message != publisher.MessageDeclined {
		t.Fatalf("expected declined, got %+v", status)
	}
	if cycle.Phase() != PhaseFailed || len(h.chain.Submitted()) != 0 {
		t.Fatal("declined build must not submit")
	}
	if msgs := h.notes.Messages(); len(msgs) != 1 || msgs[0].Kind != notification.KindTxFailed {
		t.Fatalf("unexpected notifications %+v", msgs)
	}
}

func TestSendSignerDeclined(t *testing.T) {
	h := newHarness(t, nil)
	h.accounts.SetCandidates(context.Background(), []account.Account{
		{Address: "alice", Signer: chain.StaticSigner{Addr: "alice", Decline: true}},
	})
	h.target(t, "100")
	h.refresh(t)

	_, status := h.send(t)
	if status.Kind != txstatus.Failed || status.Message != publisher.MessageDeclined {
		t.Fatalf("expected declined, got %+v", status)
	}
	if events, _ := h.history.List(context.Background()); len(events) != 0 {
		t.Fatalf("pending history must be rolled back, got %+v", events)
	}
}

func TestSendRejectedWhileProcessing(t *testing.T) {
	h := newHarness(t, nil)
	h.target(t, "100")
	h.refresh(t)
	h.engine.Slot().Set(txstatus.NewProcessing("0xabc"))
	before := h.engine.State()

	if _, err := h.engine.Send(context.Background()); !errors.Is(err, txstatus.ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}
	after := h.engine.State()
	if after.SenderTarget != before.SenderTarget || after.SenderCurrent != before.SenderCurrent || after.Receiver != before.Receiver {
		t.Fatal("state must not change")
	}
	if len(h.chain.Submitted()) != 0 || len(h.sim.Builds()) != 0 {
		t.Fatal("nothing may be built or submitted")
	}
	if got := h.engine.Slot().Get(); got.ExtrinsicHash != "0xabc" {
		t.Fatalf("slot overwritten: %+v", got)
	}
}

func TestSendRejectedWhenInvalid(t *testing.T) {
	h := newHarness(t, nil)
	h.refresh(t)
	if _, err := h.engine.Send(context.Background()); !errors.Is(err, ErrNotValidToSend) {
		t.Fatalf("expected ErrNotValidToSend, got %v", err)
	}
	if h.engine.Slot().Get().Kind != txstatus.Idle {
		t.Fatal("slot must stay idle")
	}
	if msg := h.engine.Snapshot().Message; msg != "Enter amount" {
		t.Fatalf("unexpected guidance %q", msg)
	}
}
