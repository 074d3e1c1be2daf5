package txstatus

import (
	"errors"
	"sync"
)

// ErrInFlight is returned when a transaction is started while another one is
// still processing.
var ErrInFlight = errors.New("transaction already in flight")

// Kind enumerates the lifecycle states of the session's transaction.
type Kind int

const (
	Idle Kind = iota
	Processing
	Finalized
	Failed
	Disconnected
)

func (k Kind) String() string {
	switch k {
	case Idle:
		return "idle"
	case Processing:
		return "processing"
	case Finalized:
		return "finalized"
	case Failed:
		return "failed"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name in JSON payloads.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Status is the tagged state held by a Slot. ExtrinsicHash is set for
// Processing (once submitted) and Finalized, Message for Failed.
type Status struct {
	Kind          Kind   `json:"kind"`
	ExtrinsicHash string `json:"extrinsic_hash,omitempty"`
	Message       string `json:"message,omitempty"`
}

// NewIdle returns the resting status.
func NewIdle() Status { return Status{Kind: Idle} }

// NewProcessing returns an in-flight status. hash is empty until the final
// extrinsic has been submitted.
func NewProcessing(hash string) Status { return Status{Kind: Processing, ExtrinsicHash: hash} }

func NewFinalized(hash string) Status { return Status{Kind: Finalized, ExtrinsicHash: hash} }

func NewFailed(message string) Status { return Status{Kind: Failed, Message: message} }

func NewDisconnected() Status { return Status{Kind: Disconnected} }

// IsProcessing reports whether a transaction is in flight.
func (s Status) IsProcessing() bool { return s.Kind == Processing }

// Slot is the process-wide container for the current transaction status. At
// most one transaction is represented at a time.
type Slot struct {
	mu     sync.Mutex
	status Status
	subs   map[int]chan Status
	nextID int
}

// NewSlot returns an Idle slot.
func NewSlot() *Slot {
	return &Slot{subs: make(map[int]chan Status)}
}

// Get returns the current status.
func (s *Slot) Get() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Begin moves the slot to Processing without a hash yet. It fails with
// ErrInFlight if a transaction is already processing.
func (s *Slot) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.IsProcessing() {
		return ErrInFlight
	}
	s.setLocked(NewProcessing(""))
	return nil
}

// Set replaces the current status.
func (s *Slot) Set(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(status)
}

// Transition sets next only when the current kind equals from. It reports
// whether the status changed.
func (s *Slot) Transition(from Kind, next Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Kind != from {
		return false
	}
	s.setLocked(next)
	return true
}

// Subscribe registers a listener for status changes. Slow listeners miss
// intermediate updates. The returned func unregisters and closes the channel.
func (s *Slot) Subscribe(buffer int) (<-chan Status, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Status, buffer)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Slot) setLocked(status Status) {
	s.status = status
	for _, ch := range s.subs {
		select {
		case ch <- status:
		default:
		}
	}
}
