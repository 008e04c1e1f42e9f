// Command oscrt is a small cobra-based CLI exercising the transport,
// sender, receiver and dialect packages end to end, replacing the teacher's
// bare basic_server/dispatching_server example binaries with a proper
// subcommand surface (spec SPEC_FULL.md §3 "CLI / test harness surface").
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vexis-audio/oscrt/dialect"
)

var (
	dialectName string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "oscrt",
	Short: "Send and receive OSC packets",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dialectName, "dialect", "full10", "argument dialect: minimal, full10, sclang, scsynth")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(sendCmd, dumpCmd)
}

func resolveDialect() (*dialect.Converter, error) {
	switch dialectName {
	case "minimal":
		return dialect.Minimal(), nil
	case "full10", "":
		return dialect.Full10(), nil
	case "sclang":
		return dialect.Sclang(), nil
	case "scsynth":
		return dialect.Scsynth(), nil
	default:
		return nil, fmt.Errorf("oscrt: unknown dialect %q", dialectName)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
