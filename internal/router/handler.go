// Package router matches legal signals to the lowest competent
// authority tier and walks the deterministic escalation ladder when
// that tier cannot act. Every attempt, hop, and halt is written to the
// audit ledger before the route returns.
package router

import (
	"context"

	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/signal"
)

// Handler processes a signal at one (type, tier) slot. It returns a
// result to accept, a *watchdog.Refusal error to refuse, or any other
// error to fail; the failure matrix decides what happens next.
type Handler interface {
	Handle(ctx context.Context, sig *signal.Signal) (any, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, sig *signal.Signal) (any, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, sig *signal.Signal) (any, error) {
	return f(ctx, sig)
}
