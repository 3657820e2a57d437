// Package constitution loads and validates the machine-readable
// constitution: the versioned table mapping every signal type to its
// required authority, legal jurisdictions, and allowed transitions.
// Nothing executes until the constitution is online; the schema is
// read-only after load.
package constitution

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Authority is one rung of the fixed authority ladder.
type Authority string

const (
	Operator  Authority = "operator"
	Innovator Authority = "innovator"
	Steward   Authority = "steward"
)

// Ladder is the only legal authority order. No skipping, no lateral moves.
var Ladder = []Authority{Operator, Innovator, Steward}

// authorityRank maps authority to a comparable integer for ladder ordering.
var authorityRank = map[Authority]int{
	Operator:  0,
	Innovator: 1,
	Steward:   2,
}

// Rank returns the ladder position of the authority, or -1 if unknown.
func (a Authority) Rank() int {
	r, ok := authorityRank[a]
	if !ok {
		return -1
	}
	return r
}

// Valid reports whether the authority is one of the three ladder rungs.
func (a Authority) Valid() bool {
	return a.Rank() >= 0
}

// Next returns the next rung up the ladder, or false at Steward.
func (a Authority) Next() (Authority, bool) {
	r := a.Rank()
	if r < 0 || r+1 >= len(Ladder) {
		return "", false
	}
	return Ladder[r+1], true
}

// ResumeType is the Steward-authority signal type reserved by the schema
// itself. It is the only way the halt flag transitions back to false.
const ResumeType = "kernel.resume"

// Duration wraps time.Duration for YAML decoding of values like "2s".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// SignalRule is the constitutional entry for one signal type.
type SignalRule struct {
	RequiredAuthority Authority `yaml:"required_authority"`
	Jurisdictions     []string  `yaml:"jurisdictions"`
	AllowedNext       []string  `yaml:"allowed_next,omitempty"`
	MaxLatency        Duration  `yaml:"max_latency,omitempty"`
}

// TrustClass is a caller-asserted credential level. Expired or revoked
// classes fail the legality gate.
type TrustClass struct {
	ExpiresAt time.Time `yaml:"expires_at,omitempty"`
	Revoked   bool      `yaml:"revoked,omitempty"`
}

// ResumePolicy controls how many distinct committed kernel.resume signals
// are required to clear a halt. Quorum is schema-level policy, not code.
type ResumePolicy struct {
	RequiredApprovals int `yaml:"required_approvals"`
}

// Schema is the validated, immutable constitution. All accessors return
// copies; there is no mutation API after Load.
type Schema struct {
	Version         int                    `yaml:"version"`
	AuthorityLadder []Authority            `yaml:"authority_ladder"`
	TimingContracts map[Authority]Duration `yaml:"timing_contracts"`
	SignalSchema    map[string]SignalRule  `yaml:"signal_schema"`
	TrustClasses    map[string]TrustClass  `yaml:"trust_classes"`
	Resume          ResumePolicy           `yaml:"resume_policy"`

	hash string
}

// Hash returns "sha256:<hex>" over the raw schema bytes on disk.
func (s *Schema) Hash() string { return s.hash }

// Rule returns the constitutional entry for a signal type. The second
// return is false for unknown types — callers must treat that as a
// legality violation, never a lookup miss.
func (s *Schema) Rule(signalType string) (SignalRule, bool) {
	r, ok := s.SignalSchema[signalType]
	if !ok {
		return SignalRule{}, false
	}
	// Copy slices so callers cannot reach the loaded schema.
	out := r
	out.Jurisdictions = append([]string(nil), r.Jurisdictions...)
	out.AllowedNext = append([]string(nil), r.AllowedNext...)
	return out, true
}

// Latency returns the maximum handler latency for a (type, tier) pair.
// A per-type max_latency overrides the tier's timing contract.
func (s *Schema) Latency(signalType string, tier Authority) time.Duration {
	if r, ok := s.SignalSchema[signalType]; ok && r.MaxLatency > 0 {
		return time.Duration(r.MaxLatency)
	}
	if d, ok := s.TimingContracts[tier]; ok && d > 0 {
		return time.Duration(d)
	}
	return defaultLatency
}

// TrustClassValid reports whether a trust class is known, unexpired,
// and not revoked at the given instant.
func (s *Schema) TrustClassValid(name string, now time.Time) bool {
	tc, ok := s.TrustClasses[name]
	if !ok {
		return false
	}
	if tc.Revoked {
		return false
	}
	if !tc.ExpiresAt.IsZero() && now.After(tc.ExpiresAt) {
		return false
	}
	return true
}

// Types returns all signal types in the schema.
func (s *Schema) Types() []string {
	out := make([]string, 0, len(s.SignalSchema))
	for t := range s.SignalSchema {
		out = append(out, t)
	}
	return out
}

// defaultLatency applies when neither the rule nor the tier contract
// specifies one.
const defaultLatency = 5 * time.Second
