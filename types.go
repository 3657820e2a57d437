package sovereign

import (
	"fmt"

	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/constitution"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/extension"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/halt"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/ledger"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/router"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/signal"
)

// Authority tiers, lowest to highest.
const (
	Operator  = constitution.Operator
	Innovator = constitution.Innovator
	Steward   = constitution.Steward
)

// ResumeType is the reserved steward signal type that clears a halt.
const ResumeType = constitution.ResumeType

// Re-exported pipeline types. The kernel's moving parts live under
// internal/; these aliases are the public names for the ones callers
// construct or receive.
type (
	Authority = constitution.Authority

	Draft             = signal.Draft
	Payload           = signal.Payload
	RawPayload        = signal.RawPayload
	ResumePayload     = signal.ResumePayload
	StateCheckPayload = signal.StateCheckPayload

	Handler     = router.Handler
	HandlerFunc = router.HandlerFunc

	Manifest = extension.Manifest

	Entry        = ledger.Entry
	VerifyResult = ledger.VerifyResult
	HaltState    = halt.State
)

// SignalStatus is the submission-visible lifecycle state of a signal.
type SignalStatus string

const (
	StatusPending   SignalStatus = "pending"
	StatusCommitted SignalStatus = "committed"
	StatusContained SignalStatus = "contained"
	StatusHalted    SignalStatus = "halted"
)

// Receipt is what a caller gets back for a submitted signal.
type Receipt struct {
	SignalID string       `json:"signal_id"`
	Status   SignalStatus `json:"status"`
	// Result is the committed handler output; nil otherwise.
	Result any `json:"result,omitempty"`
	// Reason explains a contained or halted outcome.
	Reason string `json:"reason,omitempty"`
}

// HaltedError reports a submission rejected because the kernel is
// halted. Only kernel.resume signals are admitted in that state.
type HaltedError struct {
	Reason             string
	TriggeringSignalID string
}

func (e *HaltedError) Error() string {
	return fmt.Sprintf("kernel halted (%s): only %s signals are admitted", e.Reason, ResumeType)
}

// DuplicateError reports a submission cancelled before admission
// because its dedupe key matched an earlier signal.
type DuplicateError struct {
	SignalID string // the earlier signal
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate submission of signal %s", e.SignalID)
}

// SignManifest signs an extension manifest with the trust anchor the
// kernel was booted with. The signature covers the manifest's identity,
// authority, capabilities, and claimed types in canonical order.
func SignManifest(m Manifest, anchor []byte) string {
	return extension.Sign(m, anchor)
}

// ResumeResult is the committed output of the kernel.resume handler.
type ResumeResult struct {
	Approver  string `json:"approver"`
	Approvals int    `json:"approvals"`
	Quorum    int    `json:"quorum"`
	Cleared   bool   `json:"cleared"`
}
