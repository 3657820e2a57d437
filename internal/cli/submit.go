package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	sovereign "github.com/Andy160675/SanctuarySovereignSystems-sub001"
)

var (
	submitType         string
	submitJurisdiction string
	submitTrustClass   string
	submitSource       string
	submitPayload      string
	submitPredecessor  string
	submitDedupeKey    string
)

func init() {
	submitCmd.Flags().StringVar(&submitType, "type", "", "Signal type (must exist in the constitution)")
	submitCmd.Flags().StringVar(&submitJurisdiction, "jurisdiction", "", "Jurisdiction the signal claims")
	submitCmd.Flags().StringVar(&submitTrustClass, "trust-class", "", "Caller trust class")
	submitCmd.Flags().StringVar(&submitSource, "source", "cli", "Origin tag")
	submitCmd.Flags().StringVar(&submitPayload, "payload", "", "Opaque payload")
	submitCmd.Flags().StringVar(&submitPredecessor, "predecessor", "", "Predecessor signal type for transition checks")
	submitCmd.Flags().StringVar(&submitDedupeKey, "dedupe-key", "", "Duplicate submissions with the same key are cancelled")
	submitCmd.MarkFlagRequired("type")
	submitCmd.MarkFlagRequired("jurisdiction")
	submitCmd.MarkFlagRequired("trust-class")
	rootCmd.AddCommand(submitCmd)
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit one signal and print its receipt",
	Long: `Boots the kernel, submits a single signal, and prints the terminal
receipt. Only built-in handlers are available in one-shot mode; a
running serve instance is the place for extension-handled types.`,
	RunE: runSubmit,
}

func runSubmit(cmd *cobra.Command, args []string) error {
	k, err := openKernel()
	if err != nil {
		return err
	}
	defer k.Close()

	d := sovereign.Draft{
		Type:         submitType,
		Jurisdiction: submitJurisdiction,
		TrustClass:   submitTrustClass,
		Source:       submitSource,
		Predecessor:  submitPredecessor,
		DedupeKey:    submitDedupeKey,
	}
	if submitPayload != "" {
		d.Payload = sovereign.RawPayload(submitPayload)
	}

	r, err := k.Submit(context.Background(), d)
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

	if r.Status == sovereign.StatusHalted {
		return fmt.Errorf("kernel halted: %s", r.Reason)
	}
	return nil
}
