package router

import (
	"context"
	"time"

	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/constitution"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/halt"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/ledger"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/signal"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/watchdog"
)

// Status is a route's terminal state.
type Status string

const (
	StatusCommitted Status = "committed"
	StatusHalted    Status = "halted"
)

// Outcome is the terminal result of routing one signal. Every outcome
// has already been written to the ledger when Route returns.
type Outcome struct {
	Status     Status
	Result     any
	HaltReason string
	Ticket     Ticket
}

// Router walks a legal signal down the handler table and up the
// authority ladder. All dependencies are injected; the router holds no
// ambient state.
type Router struct {
	schema   *constitution.Schema
	registry *Registry
	ledger   ledger.Ledger
	halt     *halt.Controller
	factory  *signal.Factory
	now      func() time.Time
}

// New builds a router (nil clock for UTC now).
func New(schema *constitution.Schema, reg *Registry, led ledger.Ledger, hc *halt.Controller, f *signal.Factory, now func() time.Time) *Router {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Router{schema: schema, registry: reg, ledger: led, halt: hc, factory: f, now: now}
}

// Route processes a signal that has already passed the legality gate
// and carries its constitution-derived authority. It runs to a
// terminal outcome: a signal past admission is never cancelled
// mid-flight, only timed out, and every attempt is audited.
//
// The ladder: try the entry tier; on refusal, failure, or timeout
// escalate Operator → Innovator → Steward; a transient failure gets a
// single same-tier retry first. Exhausting Steward halts the kernel.
func (r *Router) Route(ctx context.Context, sig *signal.Signal) Outcome {
	ticket := Ticket{SignalID: sig.ID, CurrentTier: sig.Authority}
	current := sig
	tier := sig.Authority
	retried := false

	for {
		verdict, handlerID, candidates := r.attempt(ctx, current, tier)

		decision := RouteDecision{
			SignalID:       current.ID,
			SignalType:     current.Type,
			AuthorityTried: tier,
			HandlerID:      handlerID,
			Outcome:        verdict.Status,
			Reason:         verdict.Reason,
			Retry:          retried,
			Candidates:     candidates,
			ElapsedMS:      verdict.Elapsed.Milliseconds(),
			DecidedAt:      r.now(),
		}
		ticket.Attempts = append(ticket.Attempts, decision)

		if _, err := r.ledger.Append(ledger.Event{Type: ledger.EventRouteDecision, Payload: decision}); err != nil {
			// The single failure class with no retry. An unrecorded
			// decision is worse than a halted system.
			return r.haltNow(sig, ticket, halt.ReasonLedgerWriteFailure)
		}

		switch watchdog.Classify(verdict, retried) {
		case watchdog.ActionCommit:
			return Outcome{Status: StatusCommitted, Result: verdict.Result, Ticket: ticket}

		case watchdog.ActionRetry:
			retried = true
			continue

		case watchdog.ActionHalt:
			return r.haltNow(sig, ticket, halt.ReasonInvariantViolation)

		case watchdog.ActionEscalate:
			next, ok := tier.Next()
			if !ok {
				// Steward failed: the ladder is exhausted.
				return r.haltNow(sig, ticket, halt.ReasonEscalationExhausted)
			}

			hop := r.factory.Escalated(current, next)
			esc := EscalationEvent{
				SignalID:    sig.ID,
				HopSignalID: hop.ID,
				FromTier:    tier,
				ToTier:      next,
				Reason:      verdict.Reason,
				DecidedAt:   r.now(),
			}
			if _, err := r.ledger.Append(ledger.Event{Type: ledger.EventEscalation, Payload: esc}); err != nil {
				return r.haltNow(sig, ticket, halt.ReasonLedgerWriteFailure)
			}

			current = hop
			tier = next
			ticket.CurrentTier = next
			retried = false
		}
	}
}

// attempt resolves and invokes the handler for one (type, tier) slot
// under its latency contract. A slot with no valid handler is a
// refusal: the tier cannot act, so the ladder moves on.
func (r *Router) attempt(ctx context.Context, sig *signal.Signal, tier constitution.Authority) (watchdog.Verdict, string, int) {
	reg, candidates, ok := r.registry.Resolve(sig.Type, tier)
	if !ok {
		return watchdog.Verdict{
			Status: watchdog.StatusRefused,
			Reason: "no handler registered at this tier",
		}, "", candidates
	}

	limit := r.schema.Latency(sig.Type, tier)
	verdict := watchdog.Invoke(ctx, limit, func(ctx context.Context) (any, error) {
		return reg.handler.Handle(ctx, sig)
	})
	return verdict, reg.handlerID, candidates
}

// haltNow triggers the halt controller and writes the halt event. The
// controller is monotonic — a concurrent exhaustion cannot overwrite
// the first trigger — but every exhausted signal still audits its own
// terminal outcome.
func (r *Router) haltNow(sig *signal.Signal, ticket Ticket, reason string) Outcome {
	r.halt.Trigger(reason, sig.ID)

	ev := HaltEvent{SignalID: sig.ID, Reason: reason, DecidedAt: r.now()}
	// Best effort: on a ledger write failure there is nowhere left to
	// record, and the kernel is halting either way.
	_, _ = r.ledger.Append(ledger.Event{Type: ledger.EventHalt, Payload: ev})

	return Outcome{Status: StatusHalted, HaltReason: reason, Ticket: ticket}
}
