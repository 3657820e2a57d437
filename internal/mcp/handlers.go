package mcp

import (
	"context"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	sovereign "github.com/Andy160675/SanctuarySovereignSystems-sub001"
)

// --- Input/Output types ---

// SubmitInput defines parameters for the sovereign_submit tool.
type SubmitInput struct {
	Type         string `json:"type" jsonschema:"signal type, must exist in the constitution"`
	Jurisdiction string `json:"jurisdiction" jsonschema:"jurisdiction the signal claims"`
	TrustClass   string `json:"trust_class" jsonschema:"caller trust class"`
	Source       string `json:"source,omitempty" jsonschema:"free-form origin tag"`
	Payload      string `json:"payload,omitempty" jsonschema:"opaque payload bytes"`
	Predecessor  string `json:"predecessor,omitempty" jsonschema:"predecessor signal type for transition checks"`
	DedupeKey    string `json:"dedupe_key,omitempty" jsonschema:"duplicate submissions with the same key are cancelled"`
	Wait         bool   `json:"wait,omitempty" jsonschema:"block until the signal reaches a terminal state instead of returning pending"`
}

// SubmitOutput is the kernel receipt.
type SubmitOutput struct {
	SignalID string `json:"signal_id"`
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
}

// StatusInput defines parameters for the sovereign_status tool.
type StatusInput struct {
	SignalID string `json:"signal_id" jsonschema:"ID from a submit receipt"`
}

// StatusOutput mirrors SubmitOutput for a looked-up signal.
type StatusOutput struct {
	SignalID string `json:"signal_id"`
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
}

// VerifyInput is empty.
type VerifyInput struct{}

// VerifyOutput reports the chain check.
type VerifyOutput struct {
	Valid     bool   `json:"valid"`
	Entries   uint64 `json:"entries"`
	CorruptAt uint64 `json:"corrupt_at,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ExportInput defines parameters for the sovereign_export tool.
type ExportInput struct {
	From uint64  `json:"from" jsonschema:"first entry index, inclusive"`
	To   *uint64 `json:"to,omitempty" jsonschema:"last entry index, inclusive; omit for the chain tail"`
}

// ExportOutput carries the exported entries.
type ExportOutput struct {
	Entries []sovereign.Entry `json:"entries"`
}

// ResumeInput defines parameters for the sovereign_resume tool.
type ResumeInput struct {
	Approver     string `json:"approver" jsonschema:"distinct steward identity granting this approval"`
	Reason       string `json:"reason,omitempty" jsonschema:"why resuming is safe"`
	Jurisdiction string `json:"jurisdiction" jsonschema:"a jurisdiction the constitution allows for kernel.resume"`
	TrustClass   string `json:"trust_class" jsonschema:"caller trust class"`
}

// ResumeOutput reports quorum progress.
type ResumeOutput struct {
	SignalID  string `json:"signal_id"`
	Status    string `json:"status"`
	Approvals int    `json:"approvals"`
	Quorum    int    `json:"quorum"`
	Cleared   bool   `json:"cleared"`
}

// HaltStateInput is empty.
type HaltStateInput struct{}

// HaltStateOutput is the durable halt detail.
type HaltStateOutput struct {
	Halted             bool     `json:"halted"`
	Reason             string   `json:"reason,omitempty"`
	TriggeringSignalID string   `json:"triggering_signal_id,omitempty"`
	Approvals          []string `json:"approvals,omitempty"`
}

// --- Handlers ---

func (s *Server) handleSubmit(ctx context.Context, req *mcpsdk.CallToolRequest, input SubmitInput) (*mcpsdk.CallToolResult, SubmitOutput, error) {
	d := sovereign.Draft{
		Type:         input.Type,
		Jurisdiction: input.Jurisdiction,
		TrustClass:   input.TrustClass,
		Source:       input.Source,
		Predecessor:  input.Predecessor,
		DedupeKey:    input.DedupeKey,
	}
	if input.Payload != "" {
		d.Payload = sovereign.RawPayload(input.Payload)
	}

	r, err := s.kernel.Submit(ctx, d)
	if err != nil {
		var he *sovereign.HaltedError
		var de *sovereign.DuplicateError
		switch {
		case errors.As(err, &he):
			return nil, SubmitOutput{SignalID: r.SignalID, Status: string(r.Status), Reason: he.Error()}, nil
		case errors.As(err, &de):
			return nil, SubmitOutput{SignalID: de.SignalID, Status: string(r.Status), Reason: de.Error()}, nil
		default:
			return nil, SubmitOutput{}, err
		}
	}
	if input.Wait && r.Status == sovereign.StatusPending {
		if r, err = s.kernel.Await(ctx, r.SignalID); err != nil {
			return nil, SubmitOutput{}, err
		}
	}
	return nil, SubmitOutput{SignalID: r.SignalID, Status: string(r.Status), Reason: r.Reason}, nil
}

func (s *Server) handleStatus(ctx context.Context, req *mcpsdk.CallToolRequest, input StatusInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	r, ok := s.kernel.Status(input.SignalID)
	if !ok {
		return nil, StatusOutput{}, fmt.Errorf("unknown signal %q", input.SignalID)
	}
	return nil, StatusOutput{SignalID: r.SignalID, Status: string(r.Status), Reason: r.Reason}, nil
}

func (s *Server) handleVerify(ctx context.Context, req *mcpsdk.CallToolRequest, input VerifyInput) (*mcpsdk.CallToolResult, VerifyOutput, error) {
	res := s.kernel.Verify()
	out := VerifyOutput{Valid: res.Valid, Entries: res.Entries}
	if !res.Valid {
		out.CorruptAt = res.CorruptAt
		out.Error = res.Error
	}
	return nil, out, nil
}

func (s *Server) handleExport(ctx context.Context, req *mcpsdk.CallToolRequest, input ExportInput) (*mcpsdk.CallToolResult, ExportOutput, error) {
	to := s.kernel.Len()
	if input.To != nil {
		to = *input.To
	}
	entries, err := s.kernel.ExportRange(input.From, to)
	if err != nil {
		return nil, ExportOutput{}, err
	}
	return nil, ExportOutput{Entries: entries}, nil
}

func (s *Server) handleResume(ctx context.Context, req *mcpsdk.CallToolRequest, input ResumeInput) (*mcpsdk.CallToolResult, ResumeOutput, error) {
	if input.Approver == "" {
		return nil, ResumeOutput{}, fmt.Errorf("approver is required")
	}
	r, err := s.kernel.Submit(ctx, sovereign.Draft{
		Type:         sovereign.ResumeType,
		Jurisdiction: input.Jurisdiction,
		TrustClass:   input.TrustClass,
		Source:       "mcp",
		Payload:      sovereign.ResumePayload{Approver: input.Approver, Reason: input.Reason},
	})
	if err != nil {
		return nil, ResumeOutput{}, err
	}
	if r.Status == sovereign.StatusPending {
		if r, err = s.kernel.Await(ctx, r.SignalID); err != nil {
			return nil, ResumeOutput{}, err
		}
	}
	out := ResumeOutput{SignalID: r.SignalID, Status: string(r.Status), Quorum: s.kernel.ResumeQuorum()}
	if rr, ok := r.Result.(sovereign.ResumeResult); ok {
		out.Approvals = rr.Approvals
		out.Quorum = rr.Quorum
		out.Cleared = rr.Cleared
	}
	return nil, out, nil
}

func (s *Server) handleHaltState(ctx context.Context, req *mcpsdk.CallToolRequest, input HaltStateInput) (*mcpsdk.CallToolResult, HaltStateOutput, error) {
	st := s.kernel.Halt()
	return nil, HaltStateOutput{
		Halted:             st.IsHalted,
		Reason:             st.Reason,
		TriggeringSignalID: st.TriggeringSignalID,
		Approvals:          st.Approvals,
	}, nil
}
