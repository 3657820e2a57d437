// Package halt owns the system-wide halt state: a single flag that,
// once set, stops the router admitting new signals until enough
// steward-authorized resume approvals arrive. The controller is an
// injected dependency, never a package global, and its state survives
// restarts through a durable record read back at boot.
package halt

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Halt reasons. The reason travels with every rejection so operators
// always know why the kernel stopped.
const (
	ReasonEscalationExhausted = "escalation_exhausted"
	ReasonLedgerWriteFailure  = "ledger_write_failure"
	ReasonLedgerTampered      = "ledger_tampered"
	ReasonInvariantViolation  = "invariant_violation"
)

// State is the durable halt record.
type State struct {
	IsHalted           bool      `json:"is_halted"`
	Reason             string    `json:"reason,omitempty"`
	TriggeringSignalID string    `json:"triggering_signal_id,omitempty"`
	EnteredAt          time.Time `json:"entered_at,omitempty"`
	// Approvals lists distinct approvers of the current resume attempt.
	// Cleared when the quorum is met or a new halt fires.
	Approvals []string `json:"approvals,omitempty"`
}

// Store persists the halt record.
type Store interface {
	Save(State) error
	// Load returns the prior record; ok is false for a fresh store.
	Load() (s State, ok bool, err error)
}

// Controller is the process-wide halt authority. The flag is atomic so
// the router's admission check never takes the lock; detail fields sit
// behind the mutex.
type Controller struct {
	halted atomic.Bool

	mu     sync.Mutex
	state  State
	store  Store
	quorum int
	now    func() time.Time
}

// NewController builds a controller with the given durable store and
// resume quorum, restoring prior halt state rather than assuming false.
func NewController(store Store, quorum int) (*Controller, error) {
	if quorum < 1 {
		quorum = 1
	}
	c := &Controller{store: store, quorum: quorum, now: func() time.Time { return time.Now().UTC() }}

	if store != nil {
		prior, ok, err := store.Load()
		if err != nil {
			return nil, fmt.Errorf("halt: restore state: %w", err)
		}
		if ok {
			c.state = prior
			c.halted.Store(prior.IsHalted)
		}
	}
	return c, nil
}

// Halted reports whether the kernel is halted. Lock-free; safe on
// every admission path.
func (c *Controller) Halted() bool {
	return c.halted.Load()
}

// State returns a copy of the current halt record.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.state
	out.Approvals = append([]string(nil), c.state.Approvals...)
	return out
}

// Trigger enters the halt state. Monotonic: if already halted, the
// original reason and triggering signal stand and Trigger reports
// false. The atomic flag is set only after the detail is recorded, so
// a reader that observes Halted()==true always sees a complete record.
func (c *Controller) Trigger(reason, signalID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.IsHalted {
		return false, nil
	}
	c.state = State{
		IsHalted:           true,
		Reason:             reason,
		TriggeringSignalID: signalID,
		EnteredAt:          c.now(),
	}
	if err := c.persist(); err != nil {
		// The flag still goes up: an unpersisted halt is safer than a
		// running kernel with a failed halt write.
		c.halted.Store(true)
		return true, err
	}
	c.halted.Store(true)
	return true, nil
}

// Approve records one distinct steward approval toward resume. When
// the quorum is met the halt clears; cleared reports whether this
// approval completed the quorum.
func (c *Controller) Approve(approver string) (cleared bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.IsHalted {
		return false, fmt.Errorf("halt: not halted, nothing to resume")
	}
	if approver == "" {
		return false, fmt.Errorf("halt: resume approval needs an approver")
	}
	for _, a := range c.state.Approvals {
		if a == approver {
			return false, fmt.Errorf("halt: approver %q already counted", approver)
		}
	}

	c.state.Approvals = append(c.state.Approvals, approver)
	if len(c.state.Approvals) < c.quorum {
		return false, c.persist()
	}

	c.state = State{}
	err = c.persist()
	c.halted.Store(false)
	return true, err
}

// Quorum returns the configured number of approvals required to resume.
func (c *Controller) Quorum() int { return c.quorum }

func (c *Controller) persist() error {
	if c.store == nil {
		return nil
	}
	return c.store.Save(c.state)
}
