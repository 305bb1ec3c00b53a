package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for licensescan.
// The root command itself performs the scan; history, init and version
// are subcommands.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "licensescan <path...>",
		Short: "Report third-party license usage of npm projects",
		Long: `licensescan scans the installed dependencies of npm projects and reports
how many packages use each license.

Packages whose license cannot be identified are listed as custom licenses
(when they point to a license file or repository) or unknown packages.
Packages marked UNLICENSED are listed separately.

Examples:
  # Scan the current project
  licensescan .

  # Include transitive dependencies
  licensescan --indirect .

  # Scan two projects and drop packages from an internal repository
  licensescan --excludeRepo https://github.com/my-org/shared ./web ./api

  # Write a JSON report and keep it in the scan history
  licensescan --json -o report.json --save .`,
		Version:       getVersion(),
		Args:          cobra.ArbitraryArgs,
		RunE:          runScanCmd,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	addScanFlags(cmd)

	// Add subcommands
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
