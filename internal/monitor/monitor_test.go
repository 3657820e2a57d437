package monitor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/halt"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/ledger"
)

func openLedger(t *testing.T) *ledger.FileLedger {
	t.Helper()
	led, err := ledger.OpenFile(filepath.Join(t.TempDir(), "audit.jsonl"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { led.Close() })
	for i := 0; i < 3; i++ {
		if _, err := led.Append(ledger.Event{Type: ledger.EventRouteDecision, Payload: map[string]int{"n": i}}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	return led
}

func newHalt(t *testing.T) *halt.Controller {
	t.Helper()
	hc, err := halt.NewController(nil, 1)
	if err != nil {
		t.Fatalf("halt controller: %v", err)
	}
	return hc
}

func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestTamperedFileHalts(t *testing.T) {
	led := openLedger(t)
	hc := newHalt(t)

	m := New(led.Path(), led, hc)
	m.debounce = 30 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Run(ctx)
	}()
	time.Sleep(100 * time.Millisecond) // let the watch attach

	// Flip one byte in the middle of the file.
	data, err := os.ReadFile(led.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	data[len(data)/2] ^= 0xff
	if err := os.WriteFile(led.Path(), data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if !waitFor(t, hc.Halted) {
		t.Fatal("tampered ledger did not halt the kernel")
	}
	if st := hc.State(); st.Reason != halt.ReasonLedgerTampered {
		t.Fatalf("halt reason = %s", st.Reason)
	}

	cancel()
	<-done
}

func TestLegitimateAppendDoesNotHalt(t *testing.T) {
	led := openLedger(t)
	hc := newHalt(t)

	m := New(led.Path(), led, hc)
	m.debounce = 30 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Run(ctx)
	}()
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 5; i++ {
		if _, err := led.Append(ledger.Event{Type: ledger.EventRouteDecision, Payload: map[string]int{"n": i}}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	time.Sleep(300 * time.Millisecond) // past debounce and verify

	if hc.Halted() {
		t.Fatalf("own append tripped the tamper monitor: %+v", hc.State())
	}

	cancel()
	<-done
}

func TestCheckIgnoresValidChain(t *testing.T) {
	led := openLedger(t)
	hc := newHalt(t)
	m := New(led.Path(), led, hc)

	m.check()
	if hc.Halted() {
		t.Fatal("valid chain halted the kernel")
	}
}
