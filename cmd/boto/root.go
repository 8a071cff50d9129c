package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/boto/internal/config"
	"github.com/aretw0/boto/internal/logging"
	"github.com/spf13/cobra"
)

// env carries what the persistent pre-run resolved for every subcommand.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:           "boto",
		Short:         "boto is a WhatsApp assistant for environmental news",
		Long:          `boto answers WhatsApp messages through a conversational state machine: subscriptions, term explanations, article summaries and feedback.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
			}
			level, err := logging.ParseLevel(cfg.Log.Level)
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.logger = logging.NewWithWriter(cmd.ErrOrStderr(), level)
			return nil
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "Path to a YAML configuration file")
	root.PersistentFlags().String("log-level", "", "Override log.level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(e),
		newChatCmd(e),
		newSessionCmd(e),
		newGraphCmd(e),
		newValidateCmd(e),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
