// Package extension admits external handler registrations ("bolt-ons")
// only when their declared capabilities cannot touch the halt doctrine,
// the authority ladder, or the ledger. Rejection is structural, not
// policy: the forbidden capabilities are refused unconditionally,
// before the signature is even examined.
package extension

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/constitution"
)

// Manifest declares what an extension is and what it may do.
type Manifest struct {
	ExtensionID       string                 `json:"extension_id" yaml:"extension_id"`
	DeclaredAuthority constitution.Authority `json:"declared_authority" yaml:"declared_authority"`
	Capabilities      []string               `json:"capabilities" yaml:"capabilities"`
	// SignalTypes are the types the extension's handlers claim.
	SignalTypes []string `json:"signal_types" yaml:"signal_types"`
	// Signature is hex HMAC-SHA256 over the canonical manifest fields,
	// keyed by the kernel's trust anchor.
	Signature string `json:"signature" yaml:"signature"`
}

// canonical returns the deterministic byte form that is signed.
// Capability and type order must not affect the signature.
func (m Manifest) canonical() []byte {
	caps := append([]string(nil), m.Capabilities...)
	sort.Strings(caps)
	types := append([]string(nil), m.SignalTypes...)
	sort.Strings(types)

	var b strings.Builder
	b.WriteString(m.ExtensionID)
	b.WriteByte(0)
	b.WriteString(string(m.DeclaredAuthority))
	b.WriteByte(0)
	b.WriteString(strings.Join(caps, ","))
	b.WriteByte(0)
	b.WriteString(strings.Join(types, ","))
	return []byte(b.String())
}

// Sign computes the manifest signature with the given trust anchor.
// Used by registration tooling and tests.
func Sign(m Manifest, anchor []byte) string {
	mac := hmac.New(sha256.New, anchor)
	mac.Write(m.canonical())
	return hex.EncodeToString(mac.Sum(nil))
}

// verifySignature checks the manifest signature in constant time.
func verifySignature(m Manifest, anchor []byte) bool {
	want, err := hex.DecodeString(m.Signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, anchor)
	mac.Write(m.canonical())
	return hmac.Equal(mac.Sum(nil), want)
}
