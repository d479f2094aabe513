package cmd

import (
	"fmt"
	"log"
	"os"

	"BeatStudio/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "beatstudio",
	Short: "BeatStudio is a recording studio and beat marketplace backend.",
	Run: func(cmd *cobra.Command, args []string) {
		log.Println("Starting BeatStudio server...")
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
