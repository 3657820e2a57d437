// Package sovereign is the constitutional governance kernel: a typed
// signal pipeline in which every action is validated against an
// immutable constitution, routed up a fixed authority ladder, and
// recorded in a hash-chained audit ledger before its outcome is
// reported.
//
// Usage:
//
//	k, err := sovereign.New(
//	    sovereign.WithConstitution("constitution.yaml"),
//	    sovereign.WithDataDir("/var/lib/sovereignd"),
//	)
//	k.RegisterHandler("state_check", sovereign.Operator, "probe", handler)
//	receipt, err := k.Submit(ctx, sovereign.Draft{
//	    Type:         "state_check",
//	    Jurisdiction: "audit",
//	    TrustClass:   "T1",
//	    Payload:      sovereign.StateCheckPayload{Subsystem: "ledger"},
//	})
//	terminal, err := k.Await(ctx, receipt.SignalID)
//
// Submit returns once the signal is admitted; legal signals route on a
// worker and report their terminal state through Await or Status.
//
// The kernel fails closed. Unknown signal types are contained, never
// default-allowed; exhausting the authority ladder halts the kernel;
// a halt survives restart and clears only through the reserved
// kernel.resume signal at steward authority.
package sovereign
