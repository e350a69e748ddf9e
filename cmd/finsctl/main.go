// Command finsctl reads and writes OMRON PLC memory over FINS/UDP, and polls
// tags into MQTT, Redis or Kafka.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "finsctl",
		Short: "OMRON FINS/UDP client",
		Long: `finsctl talks to OMRON PLCs with the FINS protocol over UDP.

Values are read and written per memory area (DM, CIO, WR, HR, AR, EM banks, ...)
and decoded with an element type (USHORT, INT, FLOAT, STR, ...). Settings come
from a YAML file (finsctl.yaml by default) and can be overridden with flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags.register(rootCmd)

	rootCmd.AddCommand(newReadCmd(flags))
	rootCmd.AddCommand(newWriteCmd(flags))
	rootCmd.AddCommand(newShellCmd(flags))
	rootCmd.AddCommand(newPollCmd(flags))
	rootCmd.AddCommand(newServiceCmd(flags))
	rootCmd.AddCommand(newAreasCmd(flags))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "finsctl version %s\n", version)
			fmt.Fprintf(out, "commit: %s\n", commit)
			fmt.Fprintf(out, "date: %s\n", date)
		},
	}
}
