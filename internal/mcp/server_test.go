package mcp

import (
	"context"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	sovereign "github.com/Andy160675/SanctuarySovereignSystems-sub001"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/signal"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/watchdog"
)

const testConstitution = `
version: 1
authority_ladder: [operator, innovator, steward]
trust_classes:
  T1: {}
signal_schema:
  state_check:
    required_authority: operator
    jurisdictions: [audit]
  fail_check:
    required_authority: operator
    jurisdictions: [audit]
  kernel.resume:
    required_authority: steward
    jurisdictions: [kernel]
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	k, err := sovereign.New(
		sovereign.WithConstitutionBytes([]byte(testConstitution)),
		sovereign.WithDataDir(t.TempDir()),
	)
	if err != nil {
		t.Fatalf("failed to create kernel: %v", err)
	}
	t.Cleanup(func() { k.Close() })
	k.RegisterHandler("state_check", sovereign.Operator, "probe",
		sovereign.HandlerFunc(func(ctx context.Context, s *signal.Signal) (any, error) {
			return "healthy", nil
		}))
	return New(k)
}

func TestSubmitCommitted(t *testing.T) {
	s := newTestServer(t)

	_, out, err := s.handleSubmit(context.Background(), &mcpsdk.CallToolRequest{}, SubmitInput{
		Type:         "state_check",
		Jurisdiction: "audit",
		TrustClass:   "T1",
		Source:       "test",
		Wait:         true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != string(sovereign.StatusCommitted) {
		t.Fatalf("status = %s, want committed", out.Status)
	}
	if out.SignalID == "" {
		t.Fatal("receipt has no signal ID")
	}

	_, st, err := s.handleStatus(context.Background(), &mcpsdk.CallToolRequest{}, StatusInput{SignalID: out.SignalID})
	if err != nil {
		t.Fatalf("status lookup: %v", err)
	}
	if st.Status != string(sovereign.StatusCommitted) {
		t.Fatalf("looked-up status = %s", st.Status)
	}
}

func TestSubmitUnknownTypeContained(t *testing.T) {
	s := newTestServer(t)

	_, out, err := s.handleSubmit(context.Background(), &mcpsdk.CallToolRequest{}, SubmitInput{
		Type:         "not_in_constitution",
		Jurisdiction: "audit",
		TrustClass:   "T1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != string(sovereign.StatusContained) {
		t.Fatalf("status = %s, want contained", out.Status)
	}
	if out.Reason == "" {
		t.Fatal("containment receipt has no reason")
	}
}

func TestVerifyAndExport(t *testing.T) {
	s := newTestServer(t)
	s.handleSubmit(context.Background(), &mcpsdk.CallToolRequest{}, SubmitInput{
		Type: "state_check", Jurisdiction: "audit", TrustClass: "T1", Wait: true,
	})

	_, vr, err := s.handleVerify(context.Background(), &mcpsdk.CallToolRequest{}, VerifyInput{})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !vr.Valid || vr.Entries != 1 {
		t.Fatalf("verify = %+v", vr)
	}

	_, ex, err := s.handleExport(context.Background(), &mcpsdk.CallToolRequest{}, ExportInput{})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(ex.Entries) != 1 {
		t.Fatalf("exported %d entries, want 1", len(ex.Entries))
	}

	// Entry 0 alone is addressable.
	zero := uint64(0)
	_, ex, err = s.handleExport(context.Background(), &mcpsdk.CallToolRequest{}, ExportInput{From: 0, To: &zero})
	if err != nil {
		t.Fatalf("export single: %v", err)
	}
	if len(ex.Entries) != 1 || ex.Entries[0].Index != 0 {
		t.Fatalf("single-entry export = %d entries", len(ex.Entries))
	}
}

func TestResumeFlow(t *testing.T) {
	s := newTestServer(t)
	s.kernel.RegisterHandler("fail_check", sovereign.Operator, "probe",
		sovereign.HandlerFunc(func(ctx context.Context, sig *signal.Signal) (any, error) {
			return nil, &watchdog.Refusal{Reason: "no"}
		}))

	_, halted, err := s.handleHaltState(context.Background(), &mcpsdk.CallToolRequest{}, HaltStateInput{})
	if err != nil || halted.Halted {
		t.Fatalf("fresh kernel halt state = %+v, %v", halted, err)
	}

	// The operator refuses and no higher tier has a handler; the ladder
	// exhausts and the kernel halts.
	_, _, err = s.handleSubmit(context.Background(), &mcpsdk.CallToolRequest{}, SubmitInput{
		Type: "fail_check", Jurisdiction: "audit", TrustClass: "T1", Wait: true,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !s.kernel.Halted() {
		t.Fatal("ladder exhaustion did not halt the kernel")
	}

	_, out, err := s.handleResume(context.Background(), &mcpsdk.CallToolRequest{}, ResumeInput{
		Approver:     "steward-1",
		Reason:       "reviewed",
		Jurisdiction: "kernel",
		TrustClass:   "T1",
	})
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !out.Cleared || out.Quorum != 1 {
		t.Fatalf("resume output = %+v", out)
	}
	if s.kernel.Halted() {
		t.Fatal("halt not cleared")
	}
}
