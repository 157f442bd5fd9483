// Package main provides the cgrasim command-line interface. cgrasim runs
// CGRA-32 programs on an atomic-mode core model with optional stall
// simulation and SimPoint profiling.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cgrasim",
	Short: "cgrasim simulates CGRA-32 programs on an atomic core model.",
	Long: `cgrasim simulates CGRA-32 programs on an atomic core model. Memory ` +
		`accesses complete synchronously; optional stall simulation charges ` +
		`cache or bus latencies, and the SimPoint profiler emits basic-block ` +
		`vectors for sampled simulation.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
