package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=..."
var Version = "dev"

type rootOptions struct {
	configPath string
	verbose    bool
	debug      bool
	logFormat  string
}

func main() {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "league-digest",
		Short:         "Daily activity digest for an ESPN fantasy football league",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to optional YAML config (environment overrides it)")
	rootCmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "write the digest and raw activity locally instead of mailing")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")

	rootCmd.AddCommand(runCmd(opts))
	rootCmd.AddCommand(serveCmd(opts))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
