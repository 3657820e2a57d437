package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	exportFrom uint64
	exportTo   int64
)

func init() {
	exportCmd.Flags().Uint64Var(&exportFrom, "from", 0, "First entry index, inclusive")
	exportCmd.Flags().Int64Var(&exportTo, "to", -1, "Last entry index, inclusive (negative for the chain tail)")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export audit ledger entries as JSONL",
	Long:  "Writes one entry per line to stdout for external review. The range clamps to the chain; an empty range is an empty export.",
	RunE:  runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	k, err := openKernel()
	if err != nil {
		return err
	}
	defer k.Close()

	to := k.Len()
	if exportTo >= 0 {
		to = uint64(exportTo)
	}
	entries, err := k.ExportRange(exportFrom, to)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("encode entry %d: %w", e.Index, err)
		}
	}
	return nil
}
