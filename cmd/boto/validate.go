package main

import (
	"fmt"

	"github.com/aretw0/boto/internal/messages"
	"github.com/aretw0/boto/internal/runtime"
	"github.com/spf13/cobra"
)

func newValidateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration, message catalog and transition table",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if e.cfg.Messages.Path != "" {
				if _, err := messages.Load(e.cfg.Messages.Path); err != nil {
					return fmt.Errorf("invalid message catalog: %w", err)
				}
			}
			if err := runtime.Validate(runtime.Table); err != nil {
				return fmt.Errorf("invalid transition table: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ configuration is valid")
			return nil
		},
	}
}
