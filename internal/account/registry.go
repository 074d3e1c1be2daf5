package account

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/shieldpay/shieldpay/internal/chain"
	"github.com/shieldpay/shieldpay/internal/preference"
)

// ErrUnknownAccount is returned when selecting an address that is not a candidate.
var ErrUnknownAccount = errors.New("unknown account")

// Account is a public account injected by a wallet source.
type Account struct {
	Address string       `json:"address"`
	Name    string       `json:"name"`
	Source  string       `json:"source"`
	Signer  chain.Signer `json:"-"`
}

// Registry tracks the selected public account and its candidates for one
// wallet source.
type Registry struct {
	mu         sync.RWMutex
	source     string
	prefs      *preference.Prefs
	logger     *slog.Logger
	candidates []Account
	selected   *Account
	watchers   []func(Account, bool)
}

// NewRegistry builds an empty registry for accounts injected by source.
func NewRegistry(source string, prefs *preference.Prefs, logger *slog.Logger) *Registry {
	return &Registry{source: source, prefs: prefs, logger: logger}
}

// Source returns the wallet source this registry tracks.
func (r *Registry) Source() string {
	return r.source
}

// SetCandidates replaces the candidate set. The current selection is kept
// when still present, otherwise the last accessed account for the source is
// restored, otherwise the first candidate is selected.
func (r *Registry) SetCandidates(ctx context.Context, accounts []Account) {
	r.mu.Lock()
	r.candidates = append([]Account(nil), accounts...)

	var next *Account
	if r.selected != nil {
		next = r.findLocked(r.selected.Address)
	}
	if next == nil {
		if last, ok := r.prefs.String(ctx, preference.LastAccessedAccount(r.source)); ok {
			next = r.findLocked(last)
		}
	}
	if next == nil && len(r.candidates) > 0 {
		next = &r.candidates[0]
	}
	changed := !sameAccount(r.selected, next)
	r.selected = next
	r.mu.Unlock()

	if changed {
		r.notify()
	}
}

// Select makes address the current account and remembers it for the source.
func (r *Registry) Select(ctx context.Context, address string) error {
	r.mu.Lock()
	next := r.findLocked(address)
	if next == nil {
		r.mu.Unlock()
		return ErrUnknownAccount
	}
	changed := !sameAccount(r.selected, next)
	r.selected = next
	r.mu.Unlock()

	r.prefs.Put(ctx, preference.LastAccessedAccount(r.source), address)
	if changed {
		r.logger.Info("public account selected", "address", address, "source", r.source)
		r.notify()
	}
	return nil
}

// Selected returns the current account.
func (r *Registry) Selected() (Account, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.selected == nil {
		return Account{}, false
	}
	return *r.selected, true
}

// External returns the address and signer of the current account.
func (r *Registry) External() (string, chain.Signer, bool) {
	acc, ok := r.Selected()
	if !ok {
		return "", nil, false
	}
	return acc.Address, acc.Signer, true
}

// Options returns the candidates with the selected account first.
func (r *Registry) Options() []Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Account, 0, len(r.candidates))
	if r.selected != nil {
		out = append(out, *r.selected)
	}
	for _, a := range r.candidates {
		if r.selected != nil && a.Address == r.selected.Address {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Watch registers fn to be called after the selection changes. ok is false
// when no account is selected.
func (r *Registry) Watch(fn func(acc Account, ok bool)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watchers = append(r.watchers, fn)
}

func (r *Registry) notify() {
	r.mu.RLock()
	watchers := append([]func(Account, bool){}, r.watchers...)
	var acc Account
	ok := r.selected != nil
	if ok {
		acc = *r.selected
	}
	r.mu.RUnlock()

	for _, fn := range watchers {
		fn(acc, ok)
	}
}

func (r *Registry) findLocked(address string) *Account {
	for i := range r.candidates {
		if r.candidates[i].Address == address {
			return &r.candidates[i]
		}
	}
	return nil
}

func sameAccount(a, b *Account) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Address == b.Address
}
