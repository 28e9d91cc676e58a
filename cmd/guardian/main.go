package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "guardian",
	Short: "Score marketplace listings for counterfeit risk",
	Long: `guardian compares a marketplace listing against a reference catalog of
genuine products using a language model and reports a similarity score,
risk tier and recommended action.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(serveCmd, analyzeCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// closeResources releases adapters that hold connections or goroutines
func closeResources(resources ...interface{}) []error {
	var errs []error
	for _, r := range resources {
		switch c := r.(type) {
		case interface{ Close() error }:
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		case interface{ Stop() }:
			c.Stop()
		}
	}
	return errs
}
