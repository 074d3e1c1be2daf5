package preference

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
)

// Key identifies a persisted preference.
type Key string

const (
	CurrentToken           Key = "currentToken"
	SenderPrivate          Key = "isPrivateSender"
	ReceiverPrivate        Key = "isPrivateReceiver"
	LastAccessedWallet     Key = "lastAccessedWallet"
	LastSeenPrivateAddress Key = "lastSeenPrivateAddress"

	lastAccessedAccount = "lastAccessedExternalAccountAddress"
)

// LastAccessedAccount is the key holding the last selected public account
// for one wallet source.
func LastAccessedAccount(source string) Key {
	return Key(lastAccessedAccount + ":" + source)
}

// Store persists UI preferences. A missing key reports ok=false.
type Store interface {
	Get(ctx context.Context, key Key) (value string, ok bool, err error)
	Set(ctx context.Context, key Key, value string) error
}

// Prefs wraps a Store with typed accessors. Preferences are not part of
// transfer correctness, so failures are logged and treated as absent.
type Prefs struct {
	store  Store
	logger *slog.Logger
}

// New wraps store. A nil store keeps preferences in memory.
func New(store Store, logger *slog.Logger) *Prefs {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Prefs{store: store, logger: logger}
}

// String returns the stored value for key.
func (p *Prefs) String(ctx context.Context, key Key) (string, bool) {
	value, ok, err := p.store.Get(ctx, key)
	if err != nil {
		p.logger.Warn("preference lookup failed", "key", string(key), "error", err)
		return "", false
	}
	return value, ok
}

// Bool returns the stored flag for key, or fallback when absent or malformed.
func (p *Prefs) Bool(ctx context.Context, key Key, fallback bool) bool {
	raw, ok := p.String(ctx, key)
	if !ok {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

// Put stores value under key.
func (p *Prefs) Put(ctx context.Context, key Key, value string) {
	if err := p.store.Set(ctx, key, value); err != nil {
		p.logger.Warn("preference write failed", "key", string(key), "error", err)
	}
}

// PutBool stores a flag under key.
func (p *Prefs) PutBool(ctx context.Context, key Key, value bool) {
	p.Put(ctx, key, strconv.FormatBool(value))
}

type memoryStore struct {
	mu     sync.RWMutex
	values map[Key]string
}

// NewMemoryStore constructs a process-local store for tests and dev.
func NewMemoryStore() Store {
	return &memoryStore{values: make(map[Key]string)}
}

func (s *memoryStore) Get(_ context.Context, key Key) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *memoryStore) Set(_ context.Context, key Key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}
