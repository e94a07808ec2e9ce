package cmd

import (
	"fmt"
	"log"
	"os"

	"echofm/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "echofm",
	Short: "echofm is a personal music library and player service.",
	Run: func(cmd *cobra.Command, args []string) {
		log.Println("Starting echofm server...")
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
