package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Re-verify the audit ledger hash chain",
	Long: `Walks the full ledger chain and reports the first corrupt index, if
any. Entries at or after the corruption are untrusted; the valid prefix
remains authoritative. Exits non-zero on a broken chain.`,
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	k, err := openKernel()
	if err != nil {
		return err
	}
	defer k.Close()

	res := k.Verify()
	out := map[string]any{
		"valid":   res.Valid,
		"entries": res.Entries,
	}
	if !res.Valid {
		out["corrupt_at"] = res.CorruptAt
		out["trusted_len"] = res.TrustedLen()
		if res.Error != "" {
			out["error"] = res.Error
		}
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(data))

	if !res.Valid {
		return fmt.Errorf("ledger chain broken at index %d", res.CorruptAt)
	}
	return nil
}
