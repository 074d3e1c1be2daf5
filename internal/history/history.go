package history

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/clock"
)

// Status is the settlement state of a recorded transaction.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// retention bounds how far back List reaches.
const retentionMonths = 6

// ErrNotFound is returned when no pending event matches.
var ErrNotFound = errors.New("history event not found")

// Event records one user-visible private transaction.
type Event struct {
	ID            string    `json:"id"`
	ExtrinsicHash string    `json:"extrinsic_hash"`
	Mode          string    `json:"mode"`
	AssetTicker   string    `json:"asset_ticker"`
	Amount        string    `json:"amount"`
	Status        Status    `json:"status"`
	Network       string    `json:"network"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewPending builds a pending event stamped with clk.
func NewPending(clk clock.Clock, hash, mode, ticker, amount, network string) Event {
	return Event{
		ID:            uuid.NewString(),
		ExtrinsicHash: hash,
		Mode:          mode,
		AssetTicker:   ticker,
		Amount:        amount,
		Status:        StatusPending,
		Network:       network,
		CreatedAt:     clk.Now().UTC(),
	}
}

// Store persists private transaction history.
type Store interface {
	Append(ctx context.Context, event Event) error
	// UpdateStatus settles the pending event carrying hash.
	UpdateStatus(ctx context.Context, hash string, status Status) error
	// RemovePending deletes the pending event carrying hash. Settled events
	// are left untouched.
	RemovePending(ctx context.Context, hash string) error
	// List returns events newer than the retention window, oldest first.
	List(ctx context.Context) ([]Event, error)
}

func retentionCutoff(clk clock.Clock) time.Time {
	return clk.Now().UTC().AddDate(0, -retentionMonths, 0)
}

type memoryStore struct {
	mu     sync.RWMutex
	clock  clock.Clock
	events []Event
}

// NewMemoryStore constructs an in-memory history store for tests and dev.
func NewMemoryStore(clk clock.Clock) Store {
	if clk == nil {
		clk = clock.NewDefaultClock()
	}
	return &memoryStore{clock: clk}
}

func (s *memoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *memoryStore) UpdateStatus(_ context.Context, hash string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ExtrinsicHash == hash && s.events[i].Status == StatusPending {
			s.events[i].Status = status
			return nil
		}
	}
	return ErrNotFound
}

func (s *memoryStore) RemovePending(_ context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.events {
		if e.ExtrinsicHash == hash && e.Status == StatusPending {
			s.events = append(s.events[:i], s.events[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *memoryStore) List(_ context.Context) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := retentionCutoff(s.clock)
	out := make([]Event, 0, len(s.events))
	for _, e := range s.events {
		if e.CreatedAt.After(cutoff) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
