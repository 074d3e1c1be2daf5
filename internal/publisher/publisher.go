package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shieldpay/shieldpay/internal/chain"
	"github.com/shieldpay/shieldpay/internal/history"
	"github.com/shieldpay/shieldpay/internal/metrics"
	"github.com/shieldpay/shieldpay/internal/txstatus"
)

const (
	MessageDeclined = "Transaction declined"
	MessageFailed   = "Transaction failed"
)

var (
	// ErrBatchInterrupted is reported when the chain aborts a multi-step
	// transaction part way.
	ErrBatchInterrupted = errors.New("batch interrupted")

	// ErrIncomplete is reported when a status stream ends before a
	// terminal update.
	ErrIncomplete = errors.New("status stream ended before finalization")
)

// FinalHandler receives every update of the last transaction. It returns
// true once the update is terminal for the cycle.
type FinalHandler func(ctx context.Context, hash string, u chain.Update) (done bool)

// Batch is one publish request: the ordered transactions of a build plus
// the handler for the user-visible last one.
type Batch struct {
	Txs    []chain.Tx
	Signer chain.Signer
	// Pending is recorded in history, keyed by the final extrinsic hash,
	// just before the last transaction is submitted.
	Pending *history.Event
	Final   FinalHandler
}

// Result describes how a cycle ended.
type Result struct {
	Status     txstatus.Status
	Submitted  []string
	Superseded bool
	Err        error
}

// Publisher submits batches strictly in order. Only one cycle runs at a
// time; a new Publish supersedes the running one.
type Publisher struct {
	client  chain.Client
	slot    *txstatus.Slot
	history history.Store
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// New builds a publisher. store and m may be nil.
func New(client chain.Client, slot *txstatus.Slot, store history.Store, m *metrics.Metrics, logger *slog.Logger) *Publisher {
	return &Publisher{client: client, slot: slot, history: store, metrics: m, logger: logger}
}

type cycle struct {
	gen       uint64
	batch     Batch
	recorded  string
	submitted []string
}

// Publish runs one cycle to completion and returns its outcome. It blocks
// until the last transaction reaches a terminal update, an error occurs or
// the cycle is superseded.
func (p *Publisher) Publish(ctx context.Context, b Batch) Result {
	ctx, c := p.begin(ctx, b)
	defer p.end(c)

	queue := append([]chain.Tx(nil), b.Txs...)
	for len(queue) > 0 {
		tx := queue[0]
		queue = queue[1:]

		if len(queue) == 0 {
			return p.publishExternal(ctx, c, tx)
		}
		if err := p.publishInternal(ctx, c, tx); err != nil {
			return p.fail(ctx, c, err)
		}
	}
	return Result{Status: p.slot.Get()}
}

func (p *Publisher) begin(ctx context.Context, b Batch) (context.Context, *cycle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.logger.Info("superseding in-progress batch", "generation", p.gen)
	}
	p.gen++
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	return ctx, &cycle{gen: p.gen, batch: b}
}

func (p *Publisher) end(c *cycle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen == c.gen && p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *Publisher) superseded(c *cycle) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen != c.gen
}

func (p *Publisher) publishInternal(ctx context.Context, c *cycle, tx chain.Tx) error {
	updates, err := p.client.Submit(ctx, tx, c.batch.Signer)
	if err != nil {
		p.metrics.Step("internal", "rejected")
		return err
	}
	c.submitted = append(c.submitted, tx.Hash())
	p.metrics.Step("internal", "submitted")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return ErrIncomplete
			}
			switch {
			case u.Err != nil:
				return u.Err
			case u.Status == chain.InBlock && u.IsBatchInterrupted():
				p.metrics.Step("internal", "interrupted")
				p.logger.Warn("internal transaction interrupted", "hash", tx.Hash(), "block", u.BlockHash)
				return ErrBatchInterrupted
			case u.Status == chain.Finalized:
				p.metrics.Step("internal", "finalized")
				p.logger.Debug("internal transaction finalized", "hash", tx.Hash())
				return nil
			}
		}
	}
}

func (p *Publisher) publishExternal(ctx context.Context, c *cycle, tx chain.Tx) Result {
	hash := tx.Hash()
	if c.batch.Pending != nil && p.history != nil {
		event := *c.batch.Pending
		event.ExtrinsicHash = hash
		if err := p.history.Append(ctx, event); err != nil {
			p.logger.Warn("record pending history", "hash", hash, "error", err)
		} else {
			c.recorded = hash
		}
	}

	updates, err := p.client.Submit(ctx, tx, c.batch.Signer)
	if err != nil {
		p.metrics.Step("external", "rejected")
		return p.fail(ctx, c, err)
	}
	c.submitted = append(c.submitted, hash)
	p.metrics.Step("external", "submitted")
	p.slot.Set(txstatus.NewProcessing(hash))

	final := c.batch.Final
	if final == nil {
		final = p.Settle
	}
	for {
		select {
		case <-ctx.Done():
			return p.fail(ctx, c, ctx.Err())
		case u, ok := <-updates:
			if !ok {
				return p.fail(ctx, c, ErrIncomplete)
			}
			if u.Err != nil {
				return p.fail(ctx, c, u.Err)
			}
			if final(ctx, hash, u) {
				status := p.slot.Get()
				p.metrics.Step("external", status.Kind.String())
				return Result{Status: status, Submitted: c.submitted}
			}
		}
	}
}

// Settle is the default final handler. A batch interruption fails the cycle
// and rolls back its pending history entry; finalization settles it.
func (p *Publisher) Settle(ctx context.Context, hash string, u chain.Update) bool {
	return p.SettleWith(ctx, hash, u, nil)
}

// SettleWith settles like Settle and runs beforeFinal ahead of publishing the
// Finalized status, so observers of the slot never see a finalized transfer
// alongside balances that predate it.
func (p *Publisher) SettleWith(ctx context.Context, hash string, u chain.Update, beforeFinal func()) bool {
	switch {
	case u.Status == chain.InBlock && u.IsBatchInterrupted():
		p.slot.Set(txstatus.NewFailed(MessageFailed))
		p.RollbackPending(ctx, hash)
		return true
	case u.Status == chain.Finalized:
		if beforeFinal != nil {
			beforeFinal()
		}
		p.slot.Set(txstatus.NewFinalized(hash))
		if p.history != nil {
			if err := p.history.UpdateStatus(ctx, hash, history.StatusSuccess); err != nil && !errors.Is(err, history.ErrNotFound) {
				p.logger.Warn("settle history", "hash", hash, "error", err)
			}
		}
		return true
	}
	return false
}

// RollbackPending removes the pending history entry recorded for hash.
func (p *Publisher) RollbackPending(ctx context.Context, hash string) {
	if p.history == nil || hash == "" {
		return
	}
	if err := p.history.RemovePending(context.WithoutCancel(ctx), hash); err != nil && !errors.Is(err, history.ErrNotFound) {
		p.logger.Warn("rollback pending history", "hash", hash, "error", err)
	}
}

func (p *Publisher) fail(ctx context.Context, c *cycle, err error) Result {
	if p.superseded(c) {
		p.RollbackPending(ctx, c.recorded)
		return Result{Status: p.slot.Get(), Submitted: c.submitted, Superseded: true, Err: err}
	}

	message := MessageFailed
	if errors.Is(err, chain.ErrSignerDeclined) {
		message = MessageDeclined
	}
	p.logger.Error("batch publish failed", "submitted", len(c.submitted), "message", message, "error", err)
	p.metrics.Step("cycle", "failed")

	status := txstatus.NewFailed(message)
	p.slot.Set(status)
	p.RollbackPending(ctx, c.recorded)
	return Result{Status: status, Submitted: c.submitted, Err: fmt.Errorf("publish batch: %w", err)}
}
