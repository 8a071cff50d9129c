package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/boto/internal/cli"
	"github.com/aretw0/boto/internal/config"
	redisstore "github.com/aretw0/boto/pkg/adapters/redis"
	"github.com/spf13/cobra"
)

func openStore(cfg *config.Config) (*redisstore.Store, error) {
	if cfg.Redis.Addr == "" {
		return nil, errors.New("session commands need redis.addr")
	}
	return redisstore.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redisstore.WithPrefix(cfg.Redis.Prefix)), nil
}

func newSessionCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage live dialogue sessions",
		Long:  `List, inspect and remove the per-phone sessions kept in Redis.`,
	}

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List phones with a live session",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(e.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			phones, err := cli.ListSessions(cmd.Context(), store)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(phones) == 0 {
				fmt.Fprintln(out, "No active sessions found.")
				return nil
			}
			fmt.Fprintln(out, "Active Sessions:")
			for _, p := range phones {
				fmt.Fprintln(out, "- "+p)
			}
			return nil
		},
	}

	inspect := &cobra.Command{
		Use:   "inspect <phone>",
		Short: "Print the session kept for a phone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(e.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			info, err := cli.InspectSession(cmd.Context(), store, args[0])
			if err != nil {
				return fmt.Errorf("failed to load session %q: %w", args[0], err)
			}
			data, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm <phone>",
		Short: "Delete the session kept for a phone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(e.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := cli.RemoveSession(cmd.Context(), store, args[0]); err != nil {
				return fmt.Errorf("failed to remove session %q: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session %s removed.\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(ls, inspect, rm)
	return cmd
}
