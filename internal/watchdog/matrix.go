package watchdog

import "errors"

// Action is the failure matrix's instruction to the router.
type Action string

const (
	// ActionCommit ends routing with the handler's result.
	ActionCommit Action = "commit"
	// ActionRetry retries once at the same tier, then escalates.
	ActionRetry Action = "retry"
	// ActionEscalate hands the signal up the authority ladder.
	ActionEscalate Action = "escalate"
	// ActionHalt stops the kernel. Reserved for invariant violations
	// and ledger write failures.
	ActionHalt Action = "halt"
)

// Classify maps a verdict to the router's next action. retried reports
// whether the signal already consumed its single same-tier retry.
//
// The matrix:
//
//	committed         -> commit
//	refused           -> escalate (refusal is expected, not fatal)
//	timeout           -> escalate (timeout is a refusal, not silence)
//	failed, transient -> retry once, then escalate
//	failed, fatal     -> halt
//	failed, other     -> escalate
func Classify(v Verdict, retried bool) Action {
	switch v.Status {
	case StatusCommitted:
		return ActionCommit
	case StatusRefused, StatusTimeout:
		return ActionEscalate
	case StatusFailed:
		var fatal *Fatal
		if errors.As(v.Err, &fatal) {
			return ActionHalt
		}
		var transient *Transient
		if errors.As(v.Err, &transient) && !retried {
			return ActionRetry
		}
		return ActionEscalate
	default:
		// Unknown status is itself an invariant violation.
		return ActionHalt
	}
}
