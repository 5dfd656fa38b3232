package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "keyword-planner",
		Short: "Generate App Store keyword plans for app listings",
		Long: `Scrapes an App Store listing and its similar apps, asks a language model
for keyword suggestions and stores both documents in the catalog.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(
		planCommand(),
		lookupCommand(),
		searchCommand(),
		schemaCommand(),
		statsCommand(),
		reindexCommand(),
		serveCommand(),
	)
	return root
}
