// Package ledger implements the tamper-evident audit ledger: an
// append-only, SHA-256 hash-chained record of every legality decision,
// route decision, escalation, and halt. Appends are the single
// serialization point in the kernel; no API exists to mutate or delete
// an entry.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// GenesisHash is the prev_hash of entry 0 in a new ledger.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// EventType tags what kind of decision an entry records.
type EventType string

const (
	EventContainment   EventType = "containment_event"
	EventRouteDecision EventType = "route_decision"
	EventEscalation    EventType = "escalation"
	EventHalt          EventType = "halt"
	EventResume        EventType = "resume"
	EventExtension     EventType = "extension_decision"
)

// Event is what callers append: a typed payload. Index, hashes, and
// timestamp are assigned by the ledger under its writer lock.
type Event struct {
	Type    EventType
	Payload any
}

// Entry is one committed ledger row.
// All fields are scalars or raw JSON (no maps at the top level) so
// json.Marshal field order is deterministic for reproducible hashing.
type Entry struct {
	Index       uint64          `json:"index"`
	PrevHash    string          `json:"prev_hash"`
	PayloadHash string          `json:"payload_hash"`
	Type        EventType       `json:"event_type"`
	Payload     json.RawMessage `json:"payload"`
	Timestamp   string          `json:"ts"`
	Hash        string          `json:"hash"`
}

// TimestampFormat is the wire format for entry timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000000Z"

// hashBytes returns "sha256:<hex>" of the given bytes.
func hashBytes(b []byte) string {
	h := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(h[:])
}

// entryHash computes the chain hash:
// H(index ‖ prev_hash ‖ payload_hash ‖ event_type ‖ ts).
// Every persisted field except the hash itself is in the preimage, so
// flipping one byte anywhere in an entry breaks verification.
func entryHash(index uint64, prevHash, payloadHash string, typ EventType, ts string) string {
	return hashBytes(fmt.Appendf(nil, "%d\x00%s\x00%s\x00%s\x00%s", index, prevHash, payloadHash, typ, ts))
}

// seal fills in the payload hash and chain hash for an entry whose
// index, prev_hash, type, payload, and timestamp are already set.
func (e *Entry) seal() {
	e.PayloadHash = hashBytes(e.Payload)
	e.Hash = entryHash(e.Index, e.PrevHash, e.PayloadHash, e.Type, e.Timestamp)
}

// wellFormed recomputes both hashes and checks them against the stored
// values. It does not check chain linkage; that is Verify's job.
func (e *Entry) wellFormed() bool {
	return e.PayloadHash == hashBytes(e.Payload) &&
		e.Hash == entryHash(e.Index, e.PrevHash, e.PayloadHash, e.Type, e.Timestamp)
}
