package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of councild",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("councild version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
