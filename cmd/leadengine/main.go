package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	jsonOut    bool
	storeDSN   string
	agentsFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "leadengine",
	Short:         "Scout local businesses, enrich them and prepare outreach",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output JSON")
	rootCmd.PersistentFlags().StringVar(&storeDSN, "store", "", "lead store DSN (overrides LEAD_STORE_DSN)")
	rootCmd.PersistentFlags().StringVar(&agentsFile, "agents", "", "agent profiles YAML (overrides AGENTS_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log model calls and stage progress")

	rootCmd.AddCommand(scoutCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(leadsCmd())
	rootCmd.AddCommand(agentsCmd())
	rootCmd.AddCommand(outreachCmd())
	rootCmd.AddCommand(serveCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
