// Package cli implements the sovereignd command tree.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	sovereign "github.com/Andy160675/SanctuarySovereignSystems-sub001"
	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/signal"
)

var (
	flagConstitution string
	flagDataDir      string
	flagSQLite       bool
)

var rootCmd = &cobra.Command{
	Use:   "sovereignd",
	Short: "Constitutional governance kernel",
	Long:  "Validates typed signals against an immutable constitution, routes them up a fixed authority ladder, and records every decision in a hash-chained audit ledger. Fails closed: unknown signals are contained, exhausted escalation halts the kernel.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConstitution, "constitution", "constitution.yaml", "Path to the constitution YAML")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "sovereign-data", "Directory holding the audit ledger and halt state")
	rootCmd.PersistentFlags().BoolVar(&flagSQLite, "sqlite", false, "Store the audit ledger in SQLite instead of JSONL")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openKernel boots a kernel from the persistent flags and registers
// the built-in probe handler.
func openKernel() (*sovereign.Kernel, error) {
	opts := []sovereign.Option{
		sovereign.WithConstitution(flagConstitution),
		sovereign.WithDataDir(flagDataDir),
	}
	if flagSQLite {
		opts = append(opts, sovereign.WithSQLiteLedger())
	}
	if anchor := os.Getenv("SOVEREIGN_TRUST_ANCHOR"); anchor != "" {
		opts = append(opts, sovereign.WithTrustAnchor([]byte(anchor)))
	}
	k, err := sovereign.New(opts...)
	if err != nil {
		return nil, err
	}

	// Built-in operator probe. Only reachable if the constitution
	// defines the state_check type.
	k.RegisterHandler("state_check", sovereign.Operator, "kernel.probe",
		sovereign.HandlerFunc(func(ctx context.Context, sig *signal.Signal) (any, error) {
			return map[string]any{
				"entries":      k.Len(),
				"chain_valid":  k.Verify().Valid,
				"constitution": k.ConstitutionHash(),
			}, nil
		}))
	return k, nil
}
