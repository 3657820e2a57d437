// Package signal defines the typed signal: the atomic unit of work.
// Signals are created only through the Factory, are immutable once
// constructed, and carry a content hash so any downstream mutation is
// detectable. Escalation never mutates a signal in place — each hop
// produces a new signal with a causal link back to the original.
package signal

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/constitution"
)

// Draft is what an external caller supplies. The kernel assigns the ID
// and derives authority from the constitution; neither is settable here.
type Draft struct {
	Type         string
	Jurisdiction string
	Payload      Payload
	Source       string
	TrustClass   string
	// Predecessor, when set, declares this signal as a transition from
	// an earlier signal type; the legality gate checks it against the
	// constitution's allowed_next set.
	Predecessor string
	// DedupeKey, when set, lets the kernel cancel duplicate submissions
	// before admission. Opaque to the kernel otherwise.
	DedupeKey string
}

// Signal is the canonical, validated signal. Fields are exported for
// serialization but the struct is treated as immutable after New.
type Signal struct {
	ID           string                 `json:"id"`
	Type         string                 `json:"type"`
	Authority    constitution.Authority `json:"authority"`
	Jurisdiction string                 `json:"jurisdiction"`
	Payload      Payload                `json:"-"`
	PayloadKind  string                 `json:"payload_kind"`
	Source       string                 `json:"source"`
	TrustClass   string                 `json:"trust_class"`
	Predecessor  string                 `json:"predecessor,omitempty"`
	CausalParent string                 `json:"causal_parent,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	Hash         string                 `json:"hash"`
}

// Factory constructs signals with kernel-assigned identity. It is the
// only way a signal enters the pipeline.
type Factory struct {
	now func() time.Time
}

// NewFactory returns a Factory using the given clock (nil for UTC now).
func NewFactory(now func() time.Time) *Factory {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Factory{now: now}
}

// New builds a Signal from a draft. Shape validation only: the draft
// must name a type, jurisdiction, and trust class. Whether those are
// constitutionally legal is the legality gate's decision — an unknown
// type must reach the gate and be contained, not die here.
func (f *Factory) New(d Draft) (*Signal, error) {
	if d.Type == "" {
		return nil, fmt.Errorf("signal draft has no type")
	}
	if d.Jurisdiction == "" {
		return nil, fmt.Errorf("signal draft has no jurisdiction")
	}
	if d.TrustClass == "" {
		return nil, fmt.Errorf("signal draft has no trust class")
	}

	payload := d.Payload
	if payload == nil {
		payload = RawPayload(nil)
	}

	s := &Signal{
		ID:           uuid.NewString(),
		Type:         d.Type,
		Jurisdiction: d.Jurisdiction,
		Payload:      payload,
		PayloadKind:  payload.Kind(),
		Source:       d.Source,
		TrustClass:   d.TrustClass,
		Predecessor:  d.Predecessor,
		CreatedAt:    f.now(),
	}
	s.Hash = s.computeHash()
	return s, nil
}

// Escalated produces the next-hop signal for an escalation: a new ID,
// the target authority, and a causal link back to the parent. The
// parent is untouched — it remains evidence.
func (f *Factory) Escalated(parent *Signal, to constitution.Authority) *Signal {
	s := &Signal{
		ID:           uuid.NewString(),
		Type:         parent.Type,
		Authority:    to,
		Jurisdiction: parent.Jurisdiction,
		Payload:      parent.Payload,
		PayloadKind:  parent.PayloadKind,
		Source:       parent.Source,
		TrustClass:   parent.TrustClass,
		Predecessor:  parent.Predecessor,
		CausalParent: parent.ID,
		CreatedAt:    f.now(),
	}
	s.Hash = s.computeHash()
	return s
}

// WithAuthority returns a copy with the constitution-derived authority
// set. Called once at admission; the original draft cannot set it.
func (s *Signal) WithAuthority(a constitution.Authority) *Signal {
	out := *s
	out.Authority = a
	out.Hash = out.computeHash()
	return &out
}

// VerifyIntegrity recomputes the content hash and reports whether the
// signal has been mutated since construction.
func (s *Signal) VerifyIntegrity() bool {
	return s.Hash == s.computeHash()
}

// computeHash covers the identity fields with deterministic JSON.
// All fields are structs/strings (no maps) so field order is stable.
func (s *Signal) computeHash() string {
	content, _ := json.Marshal(struct {
		ID           string `json:"id"`
		Type         string `json:"type"`
		Authority    string `json:"authority"`
		Jurisdiction string `json:"jurisdiction"`
		PayloadKind  string `json:"payload_kind"`
		Payload      string `json:"payload"`
		Source       string `json:"source"`
		TrustClass   string `json:"trust_class"`
		Predecessor  string `json:"predecessor"`
		CausalParent string `json:"causal_parent"`
		CreatedAt    string `json:"created_at"`
	}{
		ID:           s.ID,
		Type:         s.Type,
		Authority:    string(s.Authority),
		Jurisdiction: s.Jurisdiction,
		PayloadKind:  s.PayloadKind,
		Payload:      payloadDigest(s.Payload),
		Source:       s.Source,
		TrustClass:   s.TrustClass,
		Predecessor:  s.Predecessor,
		CausalParent: s.CausalParent,
		CreatedAt:    s.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	h := sha256.Sum256(content)
	return "sha256:" + hex.EncodeToString(h[:])
}

// Record returns the minimal evidence record written into audit payloads.
func (s *Signal) Record() map[string]string {
	return map[string]string{
		"id":            s.ID,
		"type":          s.Type,
		"authority":     string(s.Authority),
		"jurisdiction":  s.Jurisdiction,
		"trust_class":   s.TrustClass,
		"causal_parent": s.CausalParent,
		"hash":          s.Hash,
	}
}
