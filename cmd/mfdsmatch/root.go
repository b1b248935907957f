package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/giygas/mfds-matcher/config"
	"github.com/giygas/mfds-matcher/logging"
)

func newRootCmd() *cobra.Command {
	var logLevel string
	var verbose bool

	root := &cobra.Command{
		Use:           "mfdsmatch",
		Short:         "MFDS drug record linkage",
		Long:          "Links a source drug list to the MFDS reference catalog and counts the generics of every matched product.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logLevel
			if verbose {
				level = "info"
			}
			return logging.InitLogger(logging.Settings{
				Env:     config.EnvDevelopment,
				Level:   level,
				Verbose: verbose,
				Console: cmd.ErrOrStderr(),
			})
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "warn"), "Log level: debug, info, warn or error (or set LOG_LEVEL)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Report progress and info logs on stderr")

	root.AddCommand(newRunCmd(&verbose))
	root.AddCommand(newDiagnoseCmd())
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
