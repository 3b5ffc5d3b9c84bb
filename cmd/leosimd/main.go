// leosimd is the control-plane daemon for the LEO mesh simulator: it
// builds the torus topology from a config file, serves the HTTP/JSON
// control API, drives the geo-simulation tick loop, and runs the
// liveness sampler fleet.
//
// Usage:
//
//	leosimd serve -c leosim.yaml        # run the full control plane
//	leosimd build-topo -c leosim.yaml   # render and print the topology, no server
//	leosimd version                     # print version information
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leosat-network/leosim/internal/simlog"
)

var (
	configPath string
	verbose    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "leosimd",
	Short:             "Control plane for the LEO satellite mesh simulator",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `leosimd builds a torus-shaped LEO satellite mesh and runs its control plane:
an HTTP/JSON API, a fixed-cadence orbital propagation loop, and a
per-node liveness sampler fleet.

  leosimd serve -c leosim.yaml
  leosimd build-topo -c leosim.yaml
  leosimd version`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "info"
		if verbose {
			level = "debug"
		}
		return simlog.SetLevel(level)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "leosim.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose (debug) logging")

	rootCmd.AddCommand(
		newServeCmd(),
		newBuildTopoCmd(),
		newVersionCmd(),
	)
}
