package send

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/shieldpay/shieldpay/internal/txstatus"
)

// Phase is the progress of one send cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseBuilding
	PhaseAwaitingSignature
	PhaseInBlock
	PhaseFinalized
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseBuilding:
		return "building"
	case PhaseAwaitingSignature:
		return "awaiting_signature"
	case PhaseInBlock:
		return "in_block"
	case PhaseFinalized:
		return "finalized"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Cycle tracks one send from build to its terminal status. It is returned
// by Engine.Send and completes asynchronously.
type Cycle struct {
	ID   string
	Mode Mode

	mu     sync.Mutex
	phase  Phase
	status txstatus.Status
	err    error
	done   chan struct{}
}

func newCycle(mode Mode) *Cycle {
	return &Cycle{
		ID:     uuid.NewString(),
		Mode:   mode,
		phase:  PhaseBuilding,
		status: txstatus.NewProcessing(""),
		done:   make(chan struct{}),
	}
}

func (c *Cycle) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Status returns the terminal status once Done is closed, Processing before.
func (c *Cycle) Status() txstatus.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Err returns the cause of a failed cycle.
func (c *Cycle) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Done is closed when the cycle reaches Finalized or Failed.
func (c *Cycle) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the cycle completes or ctx ends.
func (c *Cycle) Wait(ctx context.Context) (txstatus.Status, error) {
	select {
	case <-c.done:
		return c.Status(), nil
	case <-ctx.Done():
		return txstatus.Status{}, ctx.Err()
	}
}

// advance moves the phase forward. Terminal phases are final.
func (c *Cycle) advance(p Phase) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseFinalized || c.phase == PhaseFailed || p < c.phase {
		return
	}
	c.phase = p
}

func (c *Cycle) finish(status txstatus.Status, err error) {
	c.mu.Lock()
	if status.Kind == txstatus.Finalized {
		c.phase = PhaseFinalized
	} else {
		c.phase = PhaseFailed
	}
	c.status = status
	c.err = err
	c.mu.Unlock()
	close(c.done)
}
