// Package gate implements the legality gate: the pre-routing filter
// that terminates signals violating the constitution before they can
// act. Containment is terminal for a signal; a contained signal never
// reaches the router. Ambiguity resolves to containment — an unknown
// signal type is always contained, never default-allowed.
package gate

import (
	"fmt"
	"time"

	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/constitution"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/signal"
)

// Rule identifiers recorded in containment events.
const (
	RuleIntegrity    = "signal_integrity"
	RuleUnknownType  = "unknown_type"
	RuleJurisdiction = "illegal_jurisdiction"
	RuleTrustClass   = "invalid_trust_class"
	RuleTransition   = "illegal_transition"
)

// ContainmentEvent is emitted instead of forwarding an illegal signal.
// It is the terminal record for that signal.
type ContainmentEvent struct {
	SignalID     string    `json:"signal_id"`
	SignalType   string    `json:"signal_type"`
	RuleViolated string    `json:"rule_violated"`
	Reason       string    `json:"reason"`
	DecidedAt    time.Time `json:"decided_at"`
}

// Result is the gate's verdict. Exactly one of Legal or Containment
// applies; a legal result carries the constitution-derived authority.
type Result struct {
	Legal       bool
	Authority   constitution.Authority
	Containment *ContainmentEvent
}

// Gate checks signals against a loaded constitution.
type Gate struct {
	schema *constitution.Schema
	now    func() time.Time
}

// New returns a gate bound to the given schema (nil clock for UTC now).
func New(schema *constitution.Schema, now func() time.Time) *Gate {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Gate{schema: schema, now: now}
}

// Check runs the legality checks in order: signal integrity, type
// exists, jurisdiction legal, trust class live, declared transition
// allowed. The first failing check short-circuits to containment —
// there is no partial legality.
func (g *Gate) Check(sig *signal.Signal) Result {
	if !sig.VerifyIntegrity() {
		return g.contain(sig, RuleIntegrity, "signal content does not match its hash")
	}

	rule, ok := g.schema.Rule(sig.Type)
	if !ok {
		return g.contain(sig, RuleUnknownType, fmt.Sprintf("type %q is not in the constitution", sig.Type))
	}

	if !contains(rule.Jurisdictions, sig.Jurisdiction) {
		return g.contain(sig, RuleJurisdiction,
			fmt.Sprintf("jurisdiction %q is not legal for type %q", sig.Jurisdiction, sig.Type))
	}

	if !g.schema.TrustClassValid(sig.TrustClass, g.now()) {
		return g.contain(sig, RuleTrustClass,
			fmt.Sprintf("trust class %q is unknown, expired, or revoked", sig.TrustClass))
	}

	if sig.Predecessor != "" {
		pred, ok := g.schema.Rule(sig.Predecessor)
		if !ok {
			return g.contain(sig, RuleTransition,
				fmt.Sprintf("declared predecessor type %q is not in the constitution", sig.Predecessor))
		}
		if !contains(pred.AllowedNext, sig.Type) {
			return g.contain(sig, RuleTransition,
				fmt.Sprintf("transition %s -> %s is not allowed", sig.Predecessor, sig.Type))
		}
	}

	return Result{Legal: true, Authority: rule.RequiredAuthority}
}

func (g *Gate) contain(sig *signal.Signal, rule, reason string) Result {
	return Result{Containment: &ContainmentEvent{
		SignalID:     sig.ID,
		SignalType:   sig.Type,
		RuleViolated: rule,
		Reason:       reason,
		DecidedAt:    g.now(),
	}}
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
