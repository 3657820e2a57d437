package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(haltCmd)
}

var haltCmd = &cobra.Command{
	Use:   "halt-state",
	Short: "Show the durable halt state",
	RunE: func(cmd *cobra.Command, args []string) error {
		k, err := openKernel()
		if err != nil {
			return err
		}
		defer k.Close()

		st := k.Halt()
		out := map[string]any{
			"halted": st.IsHalted,
			"quorum": k.ResumeQuorum(),
		}
		if st.IsHalted {
			out["reason"] = st.Reason
			out["triggering_signal_id"] = st.TriggeringSignalID
			out["entered_at"] = st.EnteredAt
			out["approvals"] = st.Approvals
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return nil
	},
}
