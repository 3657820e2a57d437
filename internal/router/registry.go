package router

import (
	"fmt"
	"sync"

	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/constitution"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/extension"
)

// slotKey addresses one handler slot.
type slotKey struct {
	Type string
	Tier constitution.Authority
}

// registration is one admitted handler binding. Kernel-internal
// handlers carry a nil manifest; everything else enters only through
// the extension compliance gate.
type registration struct {
	handlerID string
	handler   Handler
	manifest  *extension.Manifest
	seq       uint64
}

// Registry is the capability-checked handler table. There is no
// public insertion path that bypasses admission: the kernel registers
// built-ins, the compliance gate registers extensions, and nothing
// else writes here.
type Registry struct {
	mu    sync.RWMutex
	slots map[slotKey][]registration
	seq   uint64
	// validate rechecks an extension manifest at resolve time; the
	// tie-break only considers registrations that still pass.
	validate func(extension.Manifest) bool
}

// NewRegistry builds a registry. validate may be nil when extensions
// are disabled entirely.
func NewRegistry(validate func(extension.Manifest) bool) *Registry {
	return &Registry{
		slots:    make(map[slotKey][]registration),
		validate: validate,
	}
}

// RegisterInternal binds a kernel-internal handler. Not reachable from
// the public API surface.
func (r *Registry) RegisterInternal(sigType string, tier constitution.Authority, handlerID string, h Handler) error {
	if h == nil {
		return fmt.Errorf("router: nil handler for %s@%s", sigType, tier)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	key := slotKey{Type: sigType, Tier: tier}
	r.slots[key] = append(r.slots[key], registration{
		handlerID: handlerID,
		handler:   h,
		seq:       r.seq,
	})
	return nil
}

// RegisterExtension binds an admitted extension handler for every
// signal type its manifest claims, at the declared authority tier.
// Admission itself is the compliance gate's job; the registry trusts
// its caller to have run it.
func (r *Registry) RegisterExtension(m extension.Manifest, h Handler) error {
	if h == nil {
		return fmt.Errorf("router: nil handler for extension %q", m.ExtensionID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, st := range m.SignalTypes {
		r.seq++
		key := slotKey{Type: st, Tier: m.DeclaredAuthority}
		manifest := m
		r.slots[key] = append(r.slots[key], registration{
			handlerID: m.ExtensionID,
			handler:   h,
			manifest:  &manifest,
			seq:       r.seq,
		})
	}
	return nil
}

// Resolve picks the handler for a (type, tier) slot. When several are
// registered the most recently registered one with a still-valid
// manifest wins — deterministic, never randomized. candidates reports
// how many registrations the slot holds, so route decisions can log
// that a tie-break happened.
func (r *Registry) Resolve(sigType string, tier constitution.Authority) (reg registration, candidates int, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	regs := r.slots[slotKey{Type: sigType, Tier: tier}]
	for i := len(regs) - 1; i >= 0; i-- {
		c := regs[i]
		if c.manifest != nil && r.validate != nil && !r.validate(*c.manifest) {
			continue
		}
		return c, len(regs), true
	}
	return registration{}, len(regs), false
}
