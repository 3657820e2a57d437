package signal

import (
	"testing"
	"time"

	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/constitution"
)

func testDraft() Draft {
	return Draft{
		Type:         "state_check",
		Jurisdiction: "audit",
		Payload:      StateCheckPayload{Subsystem: "ledger"},
		Source:       "test-agent",
		TrustClass:   "T1",
	}
}

func TestFactoryAssignsIdentity(t *testing.T) {
	f := NewFactory(nil)

	a, err := f.New(testDraft())
	if err != nil {
		t.Fatalf("new signal: %v", err)
	}
	b, err := f.New(testDraft())
	if err != nil {
		t.Fatalf("new signal: %v", err)
	}

	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("signal IDs must be unique, got %q and %q", a.ID, b.ID)
	}
	if a.Authority != "" {
		t.Fatalf("authority must not be set at construction, got %q", a.Authority)
	}
	if !a.VerifyIntegrity() {
		t.Fatal("fresh signal must pass integrity verification")
	}
}

func TestDraftShapeValidation(t *testing.T) {
	f := NewFactory(nil)

	cases := []struct {
		name   string
		mutate func(*Draft)
	}{
		{"no type", func(d *Draft) { d.Type = "" }},
		{"no jurisdiction", func(d *Draft) { d.Jurisdiction = "" }},
		{"no trust class", func(d *Draft) { d.TrustClass = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := testDraft()
			tc.mutate(&d)
			if _, err := f.New(d); err == nil {
				t.Fatal("expected shape validation error")
			}
		})
	}
}

func TestUnknownTypePassesConstruction(t *testing.T) {
	// Legality is the gate's decision, not the factory's. An unknown
	// type must construct so it can be contained on the record.
	f := NewFactory(nil)
	d := testDraft()
	d.Type = "phase_override"
	if _, err := f.New(d); err != nil {
		t.Fatalf("unknown type must still construct: %v", err)
	}
}

func TestIntegrityDetectsMutation(t *testing.T) {
	f := NewFactory(nil)
	s, _ := f.New(testDraft())

	s.Jurisdiction = "property"
	if s.VerifyIntegrity() {
		t.Fatal("mutated signal must fail integrity verification")
	}
}

func TestWithAuthorityRehashes(t *testing.T) {
	f := NewFactory(nil)
	s, _ := f.New(testDraft())

	admitted := s.WithAuthority(constitution.Operator)
	if admitted.Authority != constitution.Operator {
		t.Fatalf("expected operator authority, got %q", admitted.Authority)
	}
	if !admitted.VerifyIntegrity() {
		t.Fatal("re-derived signal must carry a fresh valid hash")
	}
	if s.Authority != "" {
		t.Fatal("original signal must be untouched")
	}
}

func TestEscalatedPreservesOriginal(t *testing.T) {
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	f := NewFactory(func() time.Time { return fixed })

	s, _ := f.New(testDraft())
	s = s.WithAuthority(constitution.Operator)

	hop := f.Escalated(s, constitution.Innovator)
	if hop.CausalParent != s.ID {
		t.Fatalf("escalated signal must link to parent, got %q", hop.CausalParent)
	}
	if hop.ID == s.ID {
		t.Fatal("escalated signal must have a new ID")
	}
	if hop.Authority != constitution.Innovator {
		t.Fatalf("expected innovator, got %q", hop.Authority)
	}
	if !s.VerifyIntegrity() {
		t.Fatal("parent must remain intact evidence")
	}
	if !hop.VerifyIntegrity() {
		t.Fatal("escalated hop must pass integrity verification")
	}
}

func TestPayloadKinds(t *testing.T) {
	if (ResumePayload{}).Kind() != "kernel.resume" {
		t.Fatal("resume payload kind mismatch")
	}
	if (RawPayload{0x01}).Kind() != "raw" {
		t.Fatal("raw payload kind mismatch")
	}

	f := NewFactory(nil)
	d := testDraft()
	d.Payload = nil
	s, err := f.New(d)
	if err != nil {
		t.Fatalf("nil payload must default to raw: %v", err)
	}
	if s.PayloadKind != "raw" {
		t.Fatalf("expected raw payload kind, got %q", s.PayloadKind)
	}
}
