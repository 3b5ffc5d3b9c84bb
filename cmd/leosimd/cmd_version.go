package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leosat-network/leosim/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			if version.Version == "dev" {
				fmt.Println("leosimd dev build (use -ldflags for version info)")
			} else {
				fmt.Printf("leosimd %s (%s)\n", version.Version, version.GitCommit)
			}
		},
	}
}
