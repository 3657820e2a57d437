package router

import (
	"time"

	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/constitution"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/watchdog"
)

// RouteDecision is the audited record of one handler attempt.
type RouteDecision struct {
	SignalID       string                 `json:"signal_id"`
	SignalType     string                 `json:"signal_type"`
	AuthorityTried constitution.Authority `json:"authority_tried"`
	HandlerID      string                 `json:"handler_id,omitempty"`
	Outcome        watchdog.Status        `json:"outcome"`
	Reason         string                 `json:"reason,omitempty"`
	Retry          bool                   `json:"retry,omitempty"`
	// Candidates > 1 records that the slot held several handlers and
	// the deterministic tie-break picked HandlerID.
	Candidates int       `json:"candidates,omitempty"`
	ElapsedMS  int64     `json:"elapsed_ms"`
	DecidedAt  time.Time `json:"decided_at"`
}

// EscalationEvent is the audited record of one ladder hop.
type EscalationEvent struct {
	SignalID    string                 `json:"signal_id"`
	HopSignalID string                 `json:"hop_signal_id"`
	FromTier    constitution.Authority `json:"from_tier"`
	ToTier      constitution.Authority `json:"to_tier"`
	Reason      string                 `json:"reason"`
	DecidedAt   time.Time              `json:"decided_at"`
}

// HaltEvent is the audited record of the kernel entering halt.
type HaltEvent struct {
	SignalID  string    `json:"signal_id"`
	Reason    string    `json:"reason"`
	DecidedAt time.Time `json:"decided_at"`
}

// Ticket accumulates a signal's attempts across tiers. Created on the
// first refusal, appended to on every hop, consumed at the terminal
// state; it persists only as the ledger entries it produced.
type Ticket struct {
	SignalID    string                 `json:"signal_id"`
	Attempts    []RouteDecision        `json:"attempts"`
	CurrentTier constitution.Authority `json:"current_tier"`
}
