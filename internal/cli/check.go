package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	sovereign "github.com/Andy160675/SanctuarySovereignSystems-sub001"
)

var (
	checkType         string
	checkJurisdiction string
	checkTrustClass   string
	checkPredecessor  string
)

func init() {
	checkCmd.Flags().StringVar(&checkType, "type", "", "Signal type")
	checkCmd.Flags().StringVar(&checkJurisdiction, "jurisdiction", "", "Jurisdiction the signal would claim")
	checkCmd.Flags().StringVar(&checkTrustClass, "trust-class", "", "Caller trust class")
	checkCmd.Flags().StringVar(&checkPredecessor, "predecessor", "", "Predecessor signal type")
	checkCmd.MarkFlagRequired("type")
	checkCmd.MarkFlagRequired("jurisdiction")
	checkCmd.MarkFlagRequired("trust-class")
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Dry-run a signal against the legality gate",
	Long:  "Reports whether a signal would be admitted and at what authority, without routing it or writing to the ledger.",
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	k, err := openKernel()
	if err != nil {
		return err
	}
	defer k.Close()

	legal, authority, reason, err := k.DryRun(sovereign.Draft{
		Type:         checkType,
		Jurisdiction: checkJurisdiction,
		TrustClass:   checkTrustClass,
		Predecessor:  checkPredecessor,
		Source:       "cli",
	})
	if err != nil {
		return err
	}

	out := map[string]any{"legal": legal}
	if legal {
		out["authority"] = authority
	} else {
		out["reason"] = reason
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(data))
	return nil
}
