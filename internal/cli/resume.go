package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	sovereign "github.com/Andy160675/SanctuarySovereignSystems-sub001"
)

var (
	resumeApprover     string
	resumeReason       string
	resumeJurisdiction string
	resumeTrustClass   string
)

func init() {
	resumeCmd.Flags().StringVar(&resumeApprover, "approver", "", "Distinct steward identity granting this approval")
	resumeCmd.Flags().StringVar(&resumeReason, "reason", "", "Why resuming is safe")
	resumeCmd.Flags().StringVar(&resumeJurisdiction, "jurisdiction", "kernel", "Jurisdiction for the resume signal")
	resumeCmd.Flags().StringVar(&resumeTrustClass, "trust-class", "", "Caller trust class")
	resumeCmd.MarkFlagRequired("approver")
	resumeCmd.MarkFlagRequired("trust-class")
	rootCmd.AddCommand(resumeCmd)
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Submit one steward resume approval for a halted kernel",
	Long: `Submits the reserved kernel.resume signal. Each distinct approver
counts once toward the constitution's resume quorum; the halt clears
when the quorum is met. The approval itself is audited.`,
	RunE: runResume,
}

func runResume(cmd *cobra.Command, args []string) error {
	k, err := openKernel()
	if err != nil {
		return err
	}
	defer k.Close()

	if !k.Halted() {
		return fmt.Errorf("kernel is not halted")
	}

	r, err := k.Submit(context.Background(), sovereign.Draft{
		Type:         sovereign.ResumeType,
		Jurisdiction: resumeJurisdiction,
		TrustClass:   resumeTrustClass,
		Source:       "cli",
		Payload:      sovereign.ResumePayload{Approver: resumeApprover, Reason: resumeReason},
	})
	if err != nil {
		return err
	}
	if r.Status == sovereign.StatusPending {
		if r, err = k.Await(context.Background(), r.SignalID); err != nil {
			return err
		}
	}

	out, _ := json.MarshalIndent(r, "", "  ")
	fmt.Println(string(out))

	if rr, ok := r.Result.(sovereign.ResumeResult); ok && rr.Cleared {
		fmt.Println("halt cleared")
	} else if ok {
		fmt.Printf("approvals %d of %d\n", rr.Approvals, rr.Quorum)
	}
	return nil
}
