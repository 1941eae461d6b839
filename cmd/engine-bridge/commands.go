package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/park285/cheese-engine-bridge/internal/adapter/chesspresenter"
	"github.com/park285/cheese-engine-bridge/internal/obslog"
)

var (
	jsonOutput bool
	remoteURL  string

	rootCmd = &cobra.Command{
		Use:           "engine-bridge",
		Short:         "Supervised UCI engine bridge with strength control, opening book and game review",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return obslog.InitFromEnv()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			obslog.Sync()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
	rootCmd.PersistentFlags().StringVar(&remoteURL, "remote", strings.TrimSpace(os.Getenv("BRIDGE_URL")),
		"base URL of a running bridge; empty runs the engine in-process")

	rootCmd.AddCommand(serveCmd, analyzeCmd, reviewCmd, openingCmd, capabilitiesCmd, strengthCmd)
}

func presenter(cmd *cobra.Command) *chesspresenter.Presenter {
	return chesspresenter.NewPresenter(cmd.OutOrStdout(), jsonOutput)
}
