package router

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/constitution"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/extension"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/halt"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/ledger"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/signal"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/watchdog"
)

const routerSchema = `
version: 1
authority_ladder: [operator, innovator, steward]
timing_contracts:
  operator: 100ms
  innovator: 1s
  steward: 1s
trust_classes:
  T1: {}
signal_schema:
  state_check:
    required_authority: operator
    jurisdictions: [audit]
  kernel.resume:
    required_authority: steward
    jurisdictions: [kernel]
`

type fixture struct {
	router  *Router
	reg     *Registry
	ledger  *ledger.FileLedger
	halt    *halt.Controller
	factory *signal.Factory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	schema, err := constitution.LoadBytes([]byte(routerSchema))
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}
	led, err := ledger.OpenFile(filepath.Join(t.TempDir(), "audit.jsonl"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { led.Close() })
	hc, err := halt.NewController(nil, 1)
	if err != nil {
		t.Fatalf("halt controller: %v", err)
	}
	reg := NewRegistry(nil)
	f := signal.NewFactory(nil)
	return &fixture{
		router:  New(schema, reg, led, hc, f, nil),
		reg:     reg,
		ledger:  led,
		halt:    hc,
		factory: f,
	}
}

func (fx *fixture) signal(t *testing.T) *signal.Signal {
	t.Helper()
	s, err := fx.factory.New(signal.Draft{
		Type:         "state_check",
		Jurisdiction: "audit",
		TrustClass:   "T1",
		Source:       "test",
	})
	if err != nil {
		t.Fatalf("new signal: %v", err)
	}
	return s.WithAuthority(constitution.Operator)
}

func (fx *fixture) entries(t *testing.T) []ledger.Entry {
	t.Helper()
	out, err := fx.ledger.ExportRange(0, fx.ledger.Len())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	return out
}

func countByType(entries []ledger.Entry) map[ledger.EventType]int {
	counts := make(map[ledger.EventType]int)
	for _, e := range entries {
		counts[e.Type]++
	}
	return counts
}

func commit(result any) Handler {
	return HandlerFunc(func(ctx context.Context, s *signal.Signal) (any, error) {
		return result, nil
	})
}

func refuse(reason string) Handler {
	return HandlerFunc(func(ctx context.Context, s *signal.Signal) (any, error) {
		return nil, &watchdog.Refusal{Reason: reason}
	})
}

func TestCommitAtEntryTier(t *testing.T) {
	fx := newFixture(t)
	fx.reg.RegisterInternal("state_check", constitution.Operator, "op", commit("ok"))

	out := fx.router.Route(context.Background(), fx.signal(t))
	if out.Status != StatusCommitted {
		t.Fatalf("status = %s, want committed", out.Status)
	}
	if out.Result != "ok" {
		t.Fatalf("result = %v, want ok", out.Result)
	}

	counts := countByType(fx.entries(t))
	if counts[ledger.EventRouteDecision] != 1 || len(fx.entries(t)) != 1 {
		t.Fatalf("ledger counts = %v, want exactly 1 route_decision", counts)
	}
}

func TestRefusalClimbsLadder(t *testing.T) {
	fx := newFixture(t)
	fx.reg.RegisterInternal("state_check", constitution.Operator, "op", refuse("out of scope"))
	fx.reg.RegisterInternal("state_check", constitution.Innovator, "inn", commit("handled"))

	sig := fx.signal(t)
	out := fx.router.Route(context.Background(), sig)
	if out.Status != StatusCommitted {
		t.Fatalf("status = %s, want committed", out.Status)
	}
	if got := len(out.Ticket.Attempts); got != 2 {
		t.Fatalf("attempts = %d, want 2", got)
	}
	if out.Ticket.Attempts[1].AuthorityTried != constitution.Innovator {
		t.Fatalf("second attempt at %s, want innovator", out.Ticket.Attempts[1].AuthorityTried)
	}

	counts := countByType(fx.entries(t))
	if counts[ledger.EventRouteDecision] != 2 || counts[ledger.EventEscalation] != 1 {
		t.Fatalf("ledger counts = %v", counts)
	}
	// The hop is a new signal causally linked to the original.
	if out.Ticket.Attempts[1].SignalID == sig.ID {
		t.Fatal("escalation hop reused the original signal ID")
	}
}

func TestExhaustionHalts(t *testing.T) {
	fx := newFixture(t)
	for _, tier := range constitution.Ladder {
		fx.reg.RegisterInternal("state_check", tier, string(tier), refuse("no"))
	}

	sig := fx.signal(t)
	out := fx.router.Route(context.Background(), sig)
	if out.Status != StatusHalted {
		t.Fatalf("status = %s, want halted", out.Status)
	}
	if out.HaltReason != halt.ReasonEscalationExhausted {
		t.Fatalf("halt reason = %s", out.HaltReason)
	}
	if !fx.halt.Halted() {
		t.Fatal("controller not halted")
	}
	if st := fx.halt.State(); st.TriggeringSignalID != sig.ID {
		t.Fatalf("triggering signal = %s, want %s", st.TriggeringSignalID, sig.ID)
	}

	counts := countByType(fx.entries(t))
	if counts[ledger.EventRouteDecision] != 3 {
		t.Fatalf("route_decision entries = %d, want 3", counts[ledger.EventRouteDecision])
	}
	if counts[ledger.EventEscalation] != 2 {
		t.Fatalf("escalation entries = %d, want 2", counts[ledger.EventEscalation])
	}
	if counts[ledger.EventHalt] != 1 {
		t.Fatalf("halt entries = %d, want 1", counts[ledger.EventHalt])
	}
}

func TestTransientRetriesOnceSameTier(t *testing.T) {
	fx := newFixture(t)
	calls := 0
	fx.reg.RegisterInternal("state_check", constitution.Operator, "op", HandlerFunc(func(ctx context.Context, s *signal.Signal) (any, error) {
		calls++
		if calls == 1 {
			return nil, &watchdog.Transient{Err: errors.New("backend busy")}
		}
		return "ok", nil
	}))

	out := fx.router.Route(context.Background(), fx.signal(t))
	if out.Status != StatusCommitted {
		t.Fatalf("status = %s, want committed", out.Status)
	}
	if calls != 2 {
		t.Fatalf("handler called %d times, want 2", calls)
	}
	attempts := out.Ticket.Attempts
	if len(attempts) != 2 || attempts[1].AuthorityTried != constitution.Operator {
		t.Fatalf("attempts = %+v, want two at operator", attempts)
	}
	if !attempts[1].Retry {
		t.Fatal("second attempt not flagged as retry")
	}
}

func TestSecondTransientEscalates(t *testing.T) {
	fx := newFixture(t)
	fx.reg.RegisterInternal("state_check", constitution.Operator, "op", HandlerFunc(func(ctx context.Context, s *signal.Signal) (any, error) {
		return nil, &watchdog.Transient{Err: errors.New("still busy")}
	}))
	fx.reg.RegisterInternal("state_check", constitution.Innovator, "inn", commit("handled"))

	out := fx.router.Route(context.Background(), fx.signal(t))
	if out.Status != StatusCommitted {
		t.Fatalf("status = %s, want committed", out.Status)
	}
	attempts := out.Ticket.Attempts
	if len(attempts) != 3 {
		t.Fatalf("attempts = %d, want 3 (try, retry, escalated)", len(attempts))
	}
	if attempts[2].AuthorityTried != constitution.Innovator {
		t.Fatalf("final attempt at %s, want innovator", attempts[2].AuthorityTried)
	}
	// Retry budget resets on escalation.
	if attempts[2].Retry {
		t.Fatal("escalated attempt still flagged as retry")
	}
}

func TestFatalErrorHaltsImmediately(t *testing.T) {
	fx := newFixture(t)
	fx.reg.RegisterInternal("state_check", constitution.Operator, "op", HandlerFunc(func(ctx context.Context, s *signal.Signal) (any, error) {
		return nil, &watchdog.Fatal{Err: errors.New("state corrupted")}
	}))

	out := fx.router.Route(context.Background(), fx.signal(t))
	if out.Status != StatusHalted {
		t.Fatalf("status = %s, want halted", out.Status)
	}
	if out.HaltReason != halt.ReasonInvariantViolation {
		t.Fatalf("halt reason = %s", out.HaltReason)
	}
	if len(out.Ticket.Attempts) != 1 {
		t.Fatalf("attempts = %d, want 1 (no escalation past fatal)", len(out.Ticket.Attempts))
	}
}

func TestTimeoutEscalates(t *testing.T) {
	fx := newFixture(t)
	fx.reg.RegisterInternal("state_check", constitution.Operator, "op", HandlerFunc(func(ctx context.Context, s *signal.Signal) (any, error) {
		select {
		case <-time.After(2 * time.Second):
			return "too late", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}))
	fx.reg.RegisterInternal("state_check", constitution.Innovator, "inn", commit("handled"))

	out := fx.router.Route(context.Background(), fx.signal(t))
	if out.Status != StatusCommitted {
		t.Fatalf("status = %s, want committed", out.Status)
	}
	if out.Result != "handled" {
		t.Fatalf("result = %v; a late completion must never commit", out.Result)
	}
	if out.Ticket.Attempts[0].Outcome != watchdog.StatusTimeout {
		t.Fatalf("first outcome = %s, want timeout", out.Ticket.Attempts[0].Outcome)
	}
}

func TestMissingHandlerIsRefusal(t *testing.T) {
	fx := newFixture(t)
	fx.reg.RegisterInternal("state_check", constitution.Steward, "stw", commit("handled"))

	out := fx.router.Route(context.Background(), fx.signal(t))
	if out.Status != StatusCommitted {
		t.Fatalf("status = %s, want committed", out.Status)
	}
	attempts := out.Ticket.Attempts
	if len(attempts) != 3 {
		t.Fatalf("attempts = %d, want 3", len(attempts))
	}
	for _, a := range attempts[:2] {
		if a.Outcome != watchdog.StatusRefused {
			t.Fatalf("empty-slot attempt outcome = %s, want refused", a.Outcome)
		}
	}
}

func TestLedgerWriteFailureHalts(t *testing.T) {
	fx := newFixture(t)
	fx.reg.RegisterInternal("state_check", constitution.Operator, "op", commit("ok"))
	sig := fx.signal(t)
	fx.ledger.Close()

	out := fx.router.Route(context.Background(), sig)
	if out.Status != StatusHalted {
		t.Fatalf("status = %s, want halted", out.Status)
	}
	if out.HaltReason != halt.ReasonLedgerWriteFailure {
		t.Fatalf("halt reason = %s", out.HaltReason)
	}
	if !fx.halt.Halted() {
		t.Fatal("controller not halted")
	}
}

func TestTieBreakPrefersNewestRegistration(t *testing.T) {
	fx := newFixture(t)
	fx.reg.RegisterInternal("state_check", constitution.Operator, "old", commit("old"))
	fx.reg.RegisterInternal("state_check", constitution.Operator, "new", commit("new"))

	out := fx.router.Route(context.Background(), fx.signal(t))
	if out.Result != "new" {
		t.Fatalf("result = %v, want newest registration to win", out.Result)
	}
	a := out.Ticket.Attempts[0]
	if a.HandlerID != "new" || a.Candidates != 2 {
		t.Fatalf("attempt = %+v, want handler new with 2 candidates", a)
	}
}

func TestResolveSkipsInvalidManifests(t *testing.T) {
	revoked := map[string]bool{"ext-b": true}
	reg := NewRegistry(func(m extension.Manifest) bool { return !revoked[m.ExtensionID] })

	reg.RegisterExtension(extension.Manifest{
		ExtensionID:       "ext-a",
		DeclaredAuthority: constitution.Operator,
		SignalTypes:       []string{"state_check"},
	}, commit("a"))
	reg.RegisterExtension(extension.Manifest{
		ExtensionID:       "ext-b",
		DeclaredAuthority: constitution.Operator,
		SignalTypes:       []string{"state_check"},
	}, commit("b"))

	got, candidates, ok := reg.Resolve("state_check", constitution.Operator)
	if !ok {
		t.Fatal("resolve failed")
	}
	if got.handlerID != "ext-a" {
		t.Fatalf("resolved %s, want ext-a (ext-b revoked)", got.handlerID)
	}
	if candidates != 2 {
		t.Fatalf("candidates = %d, want 2", candidates)
	}

	revoked["ext-a"] = true
	if _, _, ok := reg.Resolve("state_check", constitution.Operator); ok {
		t.Fatal("resolve succeeded with every manifest revoked")
	}
}
