package extension

import (
	"fmt"

	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/constitution"
)

// Capabilities that can never be declared. These strings are rejected
// categorically — no signature, profile, or policy can admit them.
var forbiddenCapabilities = map[string]bool{
	"modify_halt_doctrine":    true,
	"modify_authority_ladder": true,
	"modify_ledger":           true,
}

// RejectedError carries the admission refusal reason. Rejection is
// expected and non-fatal; the extension simply never reaches the
// router's handler table.
type RejectedError struct {
	ExtensionID string
	Reason      string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("extension %q rejected: %s", e.ExtensionID, e.Reason)
}

// Gate admits extension manifests against a loaded constitution and a
// configured trust anchor.
type Gate struct {
	schema *constitution.Schema
	anchor []byte
}

// NewGate returns a compliance gate. The anchor is the shared secret
// extension manifests must be signed with.
func NewGate(schema *constitution.Schema, anchor []byte) *Gate {
	return &Gate{schema: schema, anchor: anchor}
}

// Admit checks a manifest. Order: forbidden capabilities first (these
// are refused regardless of signature validity), then signature, then
// authority bounds for every claimed signal type.
func (g *Gate) Admit(m Manifest) error {
	if m.ExtensionID == "" {
		return &RejectedError{Reason: "manifest has no extension_id"}
	}

	for _, cap := range m.Capabilities {
		if forbiddenCapabilities[cap] {
			return &RejectedError{ExtensionID: m.ExtensionID,
				Reason: fmt.Sprintf("capability %q is categorically forbidden", cap)}
		}
	}

	if len(g.anchor) == 0 {
		return &RejectedError{ExtensionID: m.ExtensionID, Reason: "no trust anchor configured"}
	}
	if !verifySignature(m, g.anchor) {
		return &RejectedError{ExtensionID: m.ExtensionID, Reason: "manifest signature does not verify against the trust anchor"}
	}

	if !m.DeclaredAuthority.Valid() {
		return &RejectedError{ExtensionID: m.ExtensionID,
			Reason: fmt.Sprintf("declared authority %q is not on the ladder", m.DeclaredAuthority)}
	}
	if len(m.SignalTypes) == 0 {
		return &RejectedError{ExtensionID: m.ExtensionID, Reason: "manifest claims no signal types"}
	}
	for _, st := range m.SignalTypes {
		rule, ok := g.schema.Rule(st)
		if !ok {
			return &RejectedError{ExtensionID: m.ExtensionID,
				Reason: fmt.Sprintf("claimed type %q is not in the constitution", st)}
		}
		// A handler registered at the declared tier only ever sees a
		// type whose entry tier is at or below it; anything else could
		// never be reached by the ladder and signals a bad manifest.
		if rule.RequiredAuthority.Rank() > m.DeclaredAuthority.Rank() {
			return &RejectedError{ExtensionID: m.ExtensionID,
				Reason: fmt.Sprintf("type %q requires %s, above declared authority %s",
					st, rule.RequiredAuthority, m.DeclaredAuthority)}
		}
	}

	return nil
}

// Valid rechecks an already-admitted manifest. The router's tie-break
// prefers the most recent registration whose manifest is still valid.
func (g *Gate) Valid(m Manifest) bool {
	return g.Admit(m) == nil
}
