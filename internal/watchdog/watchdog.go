// Package watchdog supervises handler invocations against per-tier
// latency contracts and classifies every non-success outcome. A
// timeout is a failure, not silence: it yields the same escalation
// path as an explicit refusal. No outcome is ever dropped.
package watchdog

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Status is the terminal state of one supervised invocation.
type Status string

const (
	StatusCommitted Status = "committed"
	StatusRefused   Status = "refused"
	StatusFailed    Status = "failed"
	StatusTimeout   Status = "timeout"
)

// Refusal is returned by a handler that declines a signal. Refusal is
// expected behavior and drives escalation, never a halt.
type Refusal struct {
	Reason string
}

func (r *Refusal) Error() string { return "refused: " + r.Reason }

// Transient marks a failure as retryable: the handler's external
// dependency was momentarily unavailable. The router retries once at
// the same tier before escalating.
type Transient struct {
	Err error
}

func (t *Transient) Error() string { return "transient: " + t.Err.Error() }
func (t *Transient) Unwrap() error { return t.Err }

// Fatal marks an invariant violation. Fatal failures halt the kernel
// immediately; there is no retry and no escalation.
type Fatal struct {
	Err error
}

func (f *Fatal) Error() string { return "fatal: " + f.Err.Error() }
func (f *Fatal) Unwrap() error { return f.Err }

// Verdict is the audited outcome of one invocation.
type Verdict struct {
	Status  Status
	Result  any
	Reason  string
	Err     error
	Elapsed time.Duration
}

// Invoke runs fn under the latency contract. The handler receives a
// context with the deadline; once invoked it runs to a terminal
// outcome — on timeout the verdict is recorded and the handler's late
// result is discarded, never silently merged. Panics are recovered and
// become failed verdicts.
func Invoke(ctx context.Context, limit time.Duration, fn func(context.Context) (any, error)) Verdict {
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	type outcome struct {
		result any
		err    error
	}
	done := make(chan outcome, 1)
	start := time.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("handler panic: %v", r)}
			}
		}()
		result, err := fn(ctx)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		elapsed := time.Since(start)
		if elapsed > limit {
			// Completed after the deadline: the contract is already
			// broken, the late result is not trusted.
			return Verdict{Status: StatusTimeout, Reason: fmt.Sprintf("exceeded latency contract %v", limit), Elapsed: elapsed}
		}
		return verdictFor(out.result, out.err, elapsed)
	case <-ctx.Done():
		return Verdict{Status: StatusTimeout, Reason: fmt.Sprintf("exceeded latency contract %v", limit), Elapsed: time.Since(start)}
	}
}

func verdictFor(result any, err error, elapsed time.Duration) Verdict {
	if err == nil {
		return Verdict{Status: StatusCommitted, Result: result, Elapsed: elapsed}
	}
	var ref *Refusal
	if errors.As(err, &ref) {
		return Verdict{Status: StatusRefused, Reason: ref.Reason, Err: err, Elapsed: elapsed}
	}
	return Verdict{Status: StatusFailed, Reason: err.Error(), Err: err, Elapsed: elapsed}
}
