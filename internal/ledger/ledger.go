package ledger

import (
	"errors"
	"fmt"
)

// ErrWriteFailure wraps any failure to durably persist an entry. Per
// Axiom I an unrecorded decision is worse than a halted system, so
// callers treat this as the single most severe failure class and force
// a kernel halt. It is the only failure class with no retry.
var ErrWriteFailure = errors.New("ledger write failure")

// ErrNotFound is returned for an index outside the committed chain.
var ErrNotFound = errors.New("ledger entry not found")

// Ledger is the append-only audit store. Implementations must give
// Append a single-writer discipline: index assignment and prev_hash
// chaining are strictly ordered, and the durable write order is the
// order that defines the chain.
type Ledger interface {
	// Append commits one event and returns the sealed entry. It never
	// fails silently: any error wraps ErrWriteFailure.
	Append(ev Event) (Entry, error)
	// Len returns the number of committed entries.
	Len() uint64
	// ExportRange returns entries with from <= index <= to, clamped to
	// the committed chain. Read-only.
	ExportRange(from, to uint64) ([]Entry, error)
	// Verify recomputes every hash from index 0 and reports the first
	// corrupt index. Idempotent: the same ledger state yields the same
	// result.
	Verify() VerifyResult
	Close() error
}

// VerifyResult is the outcome of a full-chain verification.
type VerifyResult struct {
	Valid   bool   `json:"valid"`
	Entries uint64 `json:"entries"`
	// CorruptAt is the index of the FIRST corrupt entry when Valid is
	// false. The authoritative chain truncates there: entries at or
	// after CorruptAt are not trusted even if present on disk.
	CorruptAt uint64 `json:"corrupt_at,omitempty"`
	Error     string `json:"error,omitempty"`
}

// TrustedLen returns the length of the authoritative chain: everything
// before the first corruption.
func (r VerifyResult) TrustedLen() uint64 {
	if r.Valid {
		return r.Entries
	}
	return r.CorruptAt
}

// verifyChain walks entries in order, recomputing hashes and checking
// index continuity and prev_hash linkage. Shared by all backends.
func verifyChain(entries []Entry) VerifyResult {
	prevHash := GenesisHash
	for i, e := range entries {
		if e.Index != uint64(i) {
			return corrupt(uint64(i), fmt.Sprintf("index gap: entry %d carries index %d", i, e.Index))
		}
		if e.PrevHash != prevHash {
			return corrupt(uint64(i), fmt.Sprintf("broken link: prev_hash %s, expected %s", e.PrevHash, prevHash))
		}
		if !e.wellFormed() {
			return corrupt(uint64(i), "entry hash does not match content")
		}
		prevHash = e.Hash
	}
	return VerifyResult{Valid: true, Entries: uint64(len(entries))}
}

func corrupt(index uint64, msg string) VerifyResult {
	return VerifyResult{CorruptAt: index, Error: msg}
}

// clampRange normalizes an export range against the committed length.
func clampRange(from, to, n uint64) (uint64, uint64, bool) {
	if n == 0 || from >= n || to < from {
		return 0, 0, false
	}
	if to >= n {
		to = n - 1
	}
	return from, to, true
}
