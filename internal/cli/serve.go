package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	kernelmcp "github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/mcp"
)

var serveNoMonitor bool

func init() {
	serveCmd.Flags().BoolVar(&serveNoMonitor, "no-monitor", false, "Disable the ledger tamper monitor")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the kernel as an MCP server over stdio",
	Long: `Boots the kernel and exposes it as an MCP (Model Context Protocol)
server over stdio: submit, status, verify, export, resume, halt_state.
With the file-backed ledger a tamper monitor watches the audit file and
halts the kernel on any out-of-band mutation.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	k, err := openKernel()
	if err != nil {
		return err
	}
	defer k.Close()

	if k.Halted() {
		st := k.Halt()
		fmt.Fprintf(os.Stderr, "sovereignd: booting HALTED (%s); only %s signals are admitted\n",
			st.Reason, "kernel.resume")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		cancel()
	}()

	if !serveNoMonitor && !flagSQLite {
		go func() {
			if err := k.RunMonitor(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "sovereignd: tamper monitor: %v\n", err)
			}
		}()
	}

	return kernelmcp.New(k).Run(ctx)
}
