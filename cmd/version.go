package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the build version, overridden at release time with
// -ldflags "-X github.com/Fepozopo/geotag/cmd.Version=...".
var Version = "1.0.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the geotag version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("geotag %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
