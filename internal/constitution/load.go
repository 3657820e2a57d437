package constitution

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrSchemaInvalid is the boot-fatal error class: the kernel must not
// start with an unvalidated constitution.
var ErrSchemaInvalid = errors.New("constitution invalid")

// Load reads, parses, and validates a constitution file. The returned
// hash is "sha256:<hex>" over the raw bytes on disk, recorded so audit
// consumers can pin decisions to the exact schema version.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read constitution: %w", err)
	}
	return LoadBytes(data)
}

// LoadBytes parses and validates a constitution from raw YAML.
func LoadBytes(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: malformed YAML: %v", ErrSchemaInvalid, err)
	}

	h := sha256.Sum256(data)
	s.hash = "sha256:" + hex.EncodeToString(h[:])

	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// validate checks internal consistency. Every cross-reference must
// resolve; any violation refuses boot.
func (s *Schema) validate() error {
	var violations []string

	if s.Version < 1 {
		violations = append(violations, "version must be >= 1")
	}

	// The ladder is structural: exactly operator → innovator → steward.
	if len(s.AuthorityLadder) != len(Ladder) {
		violations = append(violations, fmt.Sprintf("authority_ladder must have %d levels", len(Ladder)))
	} else {
		for i, a := range s.AuthorityLadder {
			if a != Ladder[i] {
				violations = append(violations, fmt.Sprintf("authority_ladder[%d] is %q, want %q", i, a, Ladder[i]))
			}
		}
	}

	for tier := range s.TimingContracts {
		if !tier.Valid() {
			violations = append(violations, fmt.Sprintf("timing_contracts references unknown authority %q", tier))
		}
	}

	if len(s.SignalSchema) == 0 {
		violations = append(violations, "signal_schema is empty")
	}
	for name, rule := range s.SignalSchema {
		if name == "" {
			violations = append(violations, "signal_schema contains an empty type name")
			continue
		}
		if !rule.RequiredAuthority.Valid() {
			violations = append(violations, fmt.Sprintf("signal %q maps to unknown authority %q", name, rule.RequiredAuthority))
		}
		if len(rule.Jurisdictions) == 0 {
			violations = append(violations, fmt.Sprintf("signal %q has no legal jurisdictions", name))
		}
		for _, next := range rule.AllowedNext {
			if _, ok := s.SignalSchema[next]; !ok {
				violations = append(violations, fmt.Sprintf("signal %q allows transition to unknown type %q", name, next))
			}
		}
	}

	if cycle := s.findTransitionCycle(); cycle != "" {
		violations = append(violations, fmt.Sprintf("allowed_next contains a cycle through %q", cycle))
	}

	// The resume signal is reserved by the schema itself.
	if rule, ok := s.SignalSchema[ResumeType]; !ok {
		violations = append(violations, fmt.Sprintf("reserved type %q is missing", ResumeType))
	} else if rule.RequiredAuthority != Steward {
		violations = append(violations, fmt.Sprintf("reserved type %q must require steward authority", ResumeType))
	}

	if s.Resume.RequiredApprovals == 0 {
		s.Resume.RequiredApprovals = 1
	}
	if s.Resume.RequiredApprovals < 1 {
		violations = append(violations, "resume_policy.required_approvals must be >= 1")
	}

	if len(violations) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrSchemaInvalid, strings.Join(violations, "\n  - "))
	}
	return nil
}

// findTransitionCycle walks the allowed_next graph and returns a type
// on a cycle, or "" if the graph is acyclic.
func (s *Schema) findTransitionCycle() string {
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int, len(s.SignalSchema))

	var visit func(string) string
	visit = func(name string) string {
		switch state[name] {
		case inStack:
			return name
		case done:
			return ""
		}
		state[name] = inStack
		for _, next := range s.SignalSchema[name].AllowedNext {
			if _, ok := s.SignalSchema[next]; !ok {
				continue // reported separately
			}
			if hit := visit(next); hit != "" {
				return hit
			}
		}
		state[name] = done
		return ""
	}

	for name := range s.SignalSchema {
		if hit := visit(name); hit != "" {
			return hit
		}
	}
	return ""
}

// DefaultYAML returns a commented starter constitution for `sovereignd init`.
func DefaultYAML() string {
	return `# sovereign kernel constitution
# Generated by: sovereignd init
#
# The kernel refuses to boot if this file fails validation.
# Every signal type ever submitted must appear under signal_schema;
# unknown types are contained, never routed.

version: 1

# Fixed ladder. Escalation is operator -> innovator -> steward; exhaustion
# at steward halts the kernel.
authority_ladder: [operator, innovator, steward]

# Maximum handler latency per tier. Exceeding the contract is treated as
# a refusal and feeds the escalation path.
timing_contracts:
  operator: 2s
  innovator: 5s
  steward: 10s

# Caller-asserted credential levels consumed by the legality gate.
trust_classes:
  T1: {}
  T2: {}

# Signal types. Fields:
#   required_authority: operator | innovator | steward
#   jurisdictions: legal jurisdictions for this type
#   allowed_next: types a signal of this type may transition to (acyclic)
#   max_latency: per-type override of the tier timing contract
signal_schema:
  state_check:
    required_authority: operator
    jurisdictions: [audit]
  kernel.resume:
    required_authority: steward
    jurisdictions: [kernel]

# How many distinct committed kernel.resume signals clear a halt.
resume_policy:
  required_approvals: 1
`
}
