package sovereign

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/constitution"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/extension"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/gate"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/halt"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/ledger"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/monitor"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/router"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/signal"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/watchdog"
)

// maxConcurrentDefault bounds simultaneous routes when the caller
// gives no limit. Ledger appends serialize regardless; this only caps
// handler parallelism.
const maxConcurrentDefault = 8

// Kernel is the governance kernel. Thread-safe; one Kernel per
// constitution and data directory.
type Kernel struct {
	schema   *constitution.Schema
	ledger   ledger.Ledger
	halt     *halt.Controller
	gate     *gate.Gate
	extGate  *extension.Gate
	registry *router.Registry
	router   *router.Router
	factory  *signal.Factory
	now      func() time.Time

	// ledgerPath is set only for the file-backed ledger; it feeds the
	// tamper monitor.
	ledgerPath string

	sem chan struct{}
	wg  sync.WaitGroup

	mu       sync.Mutex
	statuses map[string]Receipt
	done     map[string]chan struct{}
	dedupe   map[string]string
	closed   bool
}

// New boots a kernel: load and validate the constitution, open the
// ledger, verify its chain, and restore any durable halt. A schema
// that fails validation refuses boot; a broken ledger chain boots
// halted rather than not at all, so the evidence stays reachable.
func New(opts ...Option) (*Kernel, error) {
	cfg := kernelConfig{
		dataDir:       "sovereign-data",
		maxConcurrent: maxConcurrentDefault,
	}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.now == nil {
		cfg.now = func() time.Time { return time.Now().UTC() }
	}

	var schema *constitution.Schema
	var err error
	switch {
	case cfg.constitutionRaw != nil:
		schema, err = constitution.LoadBytes(cfg.constitutionRaw)
	case cfg.constitutionPath != "":
		schema, err = constitution.Load(cfg.constitutionPath)
	default:
		return nil, fmt.Errorf("sovereign: no constitution given")
	}
	if err != nil {
		return nil, fmt.Errorf("sovereign: %w", err)
	}

	var led ledger.Ledger
	ledgerPath := ""
	if cfg.sqlite {
		led, err = ledger.OpenSQLite(filepath.Join(cfg.dataDir, "audit.db"))
	} else {
		ledgerPath = filepath.Join(cfg.dataDir, "audit.jsonl")
		led, err = ledger.OpenFile(ledgerPath)
	}
	if err != nil {
		return nil, fmt.Errorf("sovereign: %w", err)
	}

	store, err := halt.NewFileStore(filepath.Join(cfg.dataDir, "halt.json"))
	if err != nil {
		led.Close()
		return nil, fmt.Errorf("sovereign: %w", err)
	}
	hc, err := halt.NewController(store, schema.Resume.RequiredApprovals)
	if err != nil {
		led.Close()
		return nil, fmt.Errorf("sovereign: %w", err)
	}

	extGate := extension.NewGate(schema, cfg.anchor)
	registry := router.NewRegistry(extGate.Valid)
	factory := signal.NewFactory(cfg.now)

	k := &Kernel{
		schema:     schema,
		ledger:     led,
		halt:       hc,
		gate:       gate.New(schema, cfg.now),
		extGate:    extGate,
		registry:   registry,
		router:     router.New(schema, registry, led, hc, factory, cfg.now),
		factory:    factory,
		now:        cfg.now,
		ledgerPath: ledgerPath,
		sem:        make(chan struct{}, cfg.maxConcurrent),
		statuses:   make(map[string]Receipt),
		done:       make(map[string]chan struct{}),
		dedupe:     make(map[string]string),
	}

	// The resume path is kernel-internal. Extensions cannot claim it
	// above their tier and nothing can unregister it.
	registry.RegisterInternal(constitution.ResumeType, constitution.Steward, "kernel", router.HandlerFunc(k.handleResume))

	// A chain that no longer verifies is evidence of tampering, not a
	// reason to refuse boot.
	if res := led.Verify(); !res.Valid {
		hc.Trigger(halt.ReasonLedgerTampered, "")
	}

	return k, nil
}

// Submit admits a draft into the pipeline and returns as soon as the
// signal has an identifier and an admission decision. Admission order:
// construct, halt check, dedupe, legality gate. Containment is decided
// at the door and returned terminal; a legal signal returns a Pending
// receipt and routes on a worker goroutine. Await or Status observes
// the terminal state.
func (k *Kernel) Submit(ctx context.Context, d Draft) (Receipt, error) {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return Receipt{}, fmt.Errorf("sovereign: kernel closed")
	}
	k.mu.Unlock()

	sig, err := k.factory.New(d)
	if err != nil {
		return Receipt{}, err
	}

	// A halted kernel admits nothing but resume signals. The check
	// repeats inside the route for signals already in flight; this one
	// stops new work at the door.
	if k.halt.Halted() && sig.Type != constitution.ResumeType {
		st := k.halt.State()
		r := Receipt{SignalID: sig.ID, Status: StatusHalted, Reason: st.Reason}
		k.setStatus(r)
		return r, &HaltedError{Reason: st.Reason, TriggeringSignalID: st.TriggeringSignalID}
	}

	if d.DedupeKey != "" {
		k.mu.Lock()
		if prior, ok := k.dedupe[d.DedupeKey]; ok {
			r := k.statuses[prior]
			k.mu.Unlock()
			return r, &DuplicateError{SignalID: prior}
		}
		k.dedupe[d.DedupeKey] = sig.ID
		k.mu.Unlock()
	}

	res := k.gate.Check(sig)
	if !res.Legal {
		if _, err := k.ledger.Append(ledger.Event{Type: ledger.EventContainment, Payload: res.Containment}); err != nil {
			return k.haltReceipt(sig.ID, halt.ReasonLedgerWriteFailure)
		}
		r := Receipt{SignalID: sig.ID, Status: StatusContained, Reason: res.Containment.Reason}
		k.setStatus(r)
		return r, nil
	}

	sig = sig.WithAuthority(res.Authority)
	r := Receipt{SignalID: sig.ID, Status: StatusPending}
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return Receipt{}, fmt.Errorf("sovereign: kernel closed")
	}
	k.statuses[sig.ID] = r
	k.done[sig.ID] = make(chan struct{})
	k.wg.Add(1)
	k.mu.Unlock()

	go k.route(sig)
	return r, nil
}

// route runs one admitted signal to its terminal state on a worker
// slot. Handler time is bounded by the watchdog's latency contracts,
// not by the submitter's context.
func (k *Kernel) route(sig *signal.Signal) {
	defer k.wg.Done()
	k.sem <- struct{}{}
	defer func() { <-k.sem }()

	out := k.router.Route(context.Background(), sig)
	switch out.Status {
	case router.StatusCommitted:
		r := Receipt{SignalID: sig.ID, Status: StatusCommitted, Result: out.Result}
		if sig.Type == constitution.ResumeType {
			if err := k.recordResume(sig, out.Result); err != nil {
				k.halt.Trigger(halt.ReasonLedgerWriteFailure, sig.ID)
				r = Receipt{SignalID: sig.ID, Status: StatusHalted, Reason: halt.ReasonLedgerWriteFailure}
			}
		}
		k.finish(r)
	default:
		k.finish(Receipt{SignalID: sig.ID, Status: StatusHalted, Reason: out.HaltReason})
	}
}

// Await blocks until the signal reaches a terminal state or ctx is
// done. Signals contained at admission are already terminal and return
// immediately.
func (k *Kernel) Await(ctx context.Context, signalID string) (Receipt, error) {
	k.mu.Lock()
	r, ok := k.statuses[signalID]
	ch := k.done[signalID]
	k.mu.Unlock()
	if !ok {
		return Receipt{}, fmt.Errorf("sovereign: unknown signal %q", signalID)
	}
	if ch == nil {
		return r, nil
	}
	select {
	case <-ch:
		k.mu.Lock()
		r = k.statuses[signalID]
		k.mu.Unlock()
		return r, nil
	case <-ctx.Done():
		return r, ctx.Err()
	}
}

// DryRun checks a draft against the legality gate without admitting
// it. Nothing routes and nothing reaches the ledger; use Submit for a
// decision that counts.
func (k *Kernel) DryRun(d Draft) (legal bool, authority Authority, reason string, err error) {
	sig, err := k.factory.New(d)
	if err != nil {
		return false, "", "", err
	}
	res := k.gate.Check(sig)
	if !res.Legal {
		return false, "", res.Containment.Reason, nil
	}
	return true, res.Authority, "", nil
}

// Status reports the last known state of a submitted signal.
func (k *Kernel) Status(signalID string) (Receipt, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	r, ok := k.statuses[signalID]
	return r, ok
}

// RegisterHandler binds a kernel-internal handler for a signal type at
// an authority tier. The reserved resume slot cannot be rebound.
func (k *Kernel) RegisterHandler(sigType string, tier Authority, handlerID string, h Handler) error {
	if sigType == constitution.ResumeType {
		return fmt.Errorf("sovereign: %s is reserved", constitution.ResumeType)
	}
	if !tier.Valid() {
		return fmt.Errorf("sovereign: unknown authority %q", tier)
	}
	return k.registry.RegisterInternal(sigType, tier, handlerID, h)
}

// extensionDecision is the audited record of an extension admission.
type extensionDecision struct {
	ExtensionID string    `json:"extension_id"`
	Decision    string    `json:"decision"`
	Reason      string    `json:"reason,omitempty"`
	DecidedAt   time.Time `json:"decided_at"`
}

// RegisterExtension runs a manifest through the compliance gate and,
// if admitted, binds its handler for every claimed signal type. Both
// outcomes are audited.
func (k *Kernel) RegisterExtension(m Manifest, h Handler) error {
	dec := extensionDecision{ExtensionID: m.ExtensionID, Decision: "admitted", DecidedAt: k.now()}

	admitErr := k.extGate.Admit(m)
	if admitErr != nil {
		dec.Decision = "rejected"
		dec.Reason = admitErr.Error()
	}
	if _, err := k.ledger.Append(ledger.Event{Type: ledger.EventExtension, Payload: dec}); err != nil {
		k.halt.Trigger(halt.ReasonLedgerWriteFailure, "")
		return fmt.Errorf("sovereign: %w", ledger.ErrWriteFailure)
	}
	if admitErr != nil {
		return admitErr
	}
	return k.registry.RegisterExtension(m, h)
}

// Halted reports whether the kernel is in the halt state.
func (k *Kernel) Halted() bool { return k.halt.Halted() }

// Halt returns the durable halt detail.
func (k *Kernel) Halt() HaltState { return k.halt.State() }

// ResumeQuorum returns how many distinct steward approvals clear a halt.
func (k *Kernel) ResumeQuorum() int { return k.halt.Quorum() }

// Verify re-checks the full ledger chain.
func (k *Kernel) Verify() VerifyResult { return k.ledger.Verify() }

// Len returns the number of ledger entries.
func (k *Kernel) Len() uint64 { return k.ledger.Len() }

// ExportRange returns ledger entries with from <= index <= to, clamped
// to the chain.
func (k *Kernel) ExportRange(from, to uint64) ([]Entry, error) {
	return k.ledger.ExportRange(from, to)
}

// ConstitutionHash returns the pinned hash of the loaded constitution.
func (k *Kernel) ConstitutionHash() string { return k.schema.Hash() }

// RunMonitor blocks watching the ledger file for out-of-band mutation
// until ctx is cancelled. Only available with the file-backed ledger.
func (k *Kernel) RunMonitor(ctx context.Context) error {
	if k.ledgerPath == "" {
		return fmt.Errorf("sovereign: tamper monitor needs the file-backed ledger")
	}
	return monitor.New(k.ledgerPath, k.ledger, k.halt).Run(ctx)
}

// Close refuses new submissions, waits for in-flight routes to reach
// their terminal state, then releases the ledger.
func (k *Kernel) Close() error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return nil
	}
	k.closed = true
	k.mu.Unlock()
	k.wg.Wait()
	return k.ledger.Close()
}

// handleResume is the reserved steward handler for kernel.resume. Each
// committed resume records one distinct approval; meeting the quorum
// clears the halt.
func (k *Kernel) handleResume(ctx context.Context, sig *signal.Signal) (any, error) {
	p, ok := sig.Payload.(ResumePayload)
	if !ok {
		return nil, &watchdog.Refusal{Reason: "kernel.resume payload is malformed"}
	}
	if !k.halt.Halted() {
		return nil, &watchdog.Refusal{Reason: "kernel is not halted"}
	}
	cleared, err := k.halt.Approve(p.Approver)
	if err != nil {
		return nil, &watchdog.Refusal{Reason: err.Error()}
	}
	approvals := len(k.halt.State().Approvals)
	if cleared {
		approvals = k.halt.Quorum()
	}
	return ResumeResult{
		Approver:  p.Approver,
		Approvals: approvals,
		Quorum:    k.halt.Quorum(),
		Cleared:   cleared,
	}, nil
}

// recordResume audits a committed resume approval, and the resume
// itself once the quorum clears.
func (k *Kernel) recordResume(sig *signal.Signal, result any) error {
	rr, ok := result.(ResumeResult)
	if !ok || !rr.Cleared {
		return nil
	}
	payload := map[string]any{
		"signal_id":  sig.ID,
		"approver":   rr.Approver,
		"quorum":     rr.Quorum,
		"resumed_at": k.now(),
	}
	_, err := k.ledger.Append(ledger.Event{Type: ledger.EventResume, Payload: payload})
	return err
}

func (k *Kernel) setStatus(r Receipt) {
	k.mu.Lock()
	k.statuses[r.SignalID] = r
	k.mu.Unlock()
}

// finish records a terminal receipt and releases anyone blocked in
// Await on that signal.
func (k *Kernel) finish(r Receipt) {
	k.mu.Lock()
	k.statuses[r.SignalID] = r
	if ch, ok := k.done[r.SignalID]; ok {
		close(ch)
		delete(k.done, r.SignalID)
	}
	k.mu.Unlock()
}

func (k *Kernel) haltReceipt(signalID, reason string) (Receipt, error) {
	k.halt.Trigger(reason, signalID)
	r := Receipt{SignalID: signalID, Status: StatusHalted, Reason: reason}
	k.setStatus(r)
	return r, nil
}
