package signal

import (
	"crypto/sha256"
	"encoding/hex"
)

// Payload is the tagged union carried by a signal. Kernel-reserved
// signal types have concrete payload shapes; everything else travels
// as RawPayload. A handler registered for a type receives that type's
// payload shape and should refuse anything else.
type Payload interface {
	Kind() string
	// Digest returns the deterministic bytes hashed into the signal's
	// content hash.
	Digest() []byte
}

// RawPayload is an opaque byte payload for extension-defined types.
type RawPayload []byte

func (p RawPayload) Kind() string   { return "raw" }
func (p RawPayload) Digest() []byte { return []byte(p) }

// ResumePayload is the payload of the reserved kernel.resume type.
// Approver identifies the steward granting one resume approval; quorum
// counting is per distinct approver.
type ResumePayload struct {
	Approver string
	Reason   string
}

func (p ResumePayload) Kind() string   { return "kernel.resume" }
func (p ResumePayload) Digest() []byte { return []byte(p.Approver + "\x00" + p.Reason) }

// StateCheckPayload is the payload of the built-in state_check type:
// a routine probe of a named subsystem.
type StateCheckPayload struct {
	Subsystem string
}

func (p StateCheckPayload) Kind() string   { return "state_check" }
func (p StateCheckPayload) Digest() []byte { return []byte(p.Subsystem) }

// payloadDigest hashes a payload's digest bytes, tolerating nil.
func payloadDigest(p Payload) string {
	if p == nil {
		return ""
	}
	h := sha256.Sum256(p.Digest())
	return hex.EncodeToString(h[:])
}
