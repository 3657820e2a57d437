// Package monitor watches the audit ledger file for out-of-band
// mutation. The ledger is append-only by contract; any edit that
// breaks the hash chain is treated as tampering and halts the kernel.
package monitor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/halt"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/ledger"
)

// debounceDefault coalesces the event bursts a single append produces
// (write + chmod on some platforms) into one verification pass.
const debounceDefault = 250 * time.Millisecond

// sweepDefault is the periodic re-verify interval. fsnotify can miss
// events on some filesystems, so the monitor also sweeps on a timer.
const sweepDefault = 30 * time.Second

// Verifier is the slice of the ledger the monitor needs.
type Verifier interface {
	Verify() ledger.VerifyResult
}

// Monitor re-verifies the ledger chain whenever the backing file
// changes and halts the kernel on the first broken link.
type Monitor struct {
	path     string
	verifier Verifier
	halt     *halt.Controller
	debounce time.Duration
	sweep    time.Duration
}

// New builds a monitor over the ledger file at path.
func New(path string, v Verifier, hc *halt.Controller) *Monitor {
	return &Monitor{
		path:     path,
		verifier: v,
		halt:     hc,
		debounce: debounceDefault,
		sweep:    sweepDefault,
	}
}

// Run blocks until ctx is cancelled, verifying on file events and on a
// periodic sweep. The kernel's own appends verify clean; only a write
// that breaks the chain trips the halt.
func (m *Monitor) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("monitor: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory, not the file: editors and rename-based
	// tampering replace the inode, which silently drops a file watch.
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		return fmt.Errorf("monitor: watch %s: %w", filepath.Dir(m.path), err)
	}

	debounceTimer := time.NewTimer(m.debounce)
	debounceTimer.Stop()

	sweep := time.NewTicker(m.sweep)
	defer sweep.Stop()
	defer debounceTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-debounceTimer.C:
			m.check()

		case <-sweep.C:
			m.check()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(m.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Create) {
				continue
			}
			if !debounceTimer.Stop() {
				select {
				case <-debounceTimer.C:
				default:
				}
			}
			debounceTimer.Reset(m.debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "monitor: watcher error: %v\n", err)
		}
	}
}

// check runs one verification pass.
func (m *Monitor) check() {
	res := m.verifier.Verify()
	if res.Valid {
		return
	}
	fired, err := m.halt.Trigger(halt.ReasonLedgerTampered, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "monitor: record halt: %v\n", err)
	}
	if fired {
		fmt.Fprintf(os.Stderr, "monitor: ledger chain broken at index %d, kernel halted\n", res.CorruptAt)
	}
}
