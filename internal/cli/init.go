package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Andy160675/SanctuarySovereignSystems-sub001/internal/constitution"
)

var initForce bool

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing constitution")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented starter constitution",
	Long: `Writes a starter constitution to the --constitution path and creates
the data directory. The kernel refuses to boot until the constitution
validates, so edit the generated file before serving.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(flagConstitution); err == nil && !initForce {
		return fmt.Errorf("%s exists, pass --force to overwrite", flagConstitution)
	}
	if err := os.WriteFile(flagConstitution, []byte(constitution.DefaultYAML()), 0o644); err != nil {
		return fmt.Errorf("write constitution: %w", err)
	}
	if err := os.MkdirAll(flagDataDir, 0o700); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// Refuse to hand the user a starter file that does not validate.
	if _, err := constitution.Load(flagConstitution); err != nil {
		return err
	}

	fmt.Printf("wrote %s\n", flagConstitution)
	fmt.Printf("data directory %s\n", flagDataDir)
	return nil
}
