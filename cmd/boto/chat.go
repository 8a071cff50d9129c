package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/boto/internal/cli"
	"github.com/aretw0/boto/internal/presentation/tui"
	"github.com/spf13/cobra"
)

func newChatCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant from the terminal",
		Long: `Runs the dialogue locally: each line you type is handled as a WhatsApp
message from --phone and the reply is printed. With --memory no external
service is contacted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			phone, _ := cmd.Flags().GetString("phone")
			inMemory, _ := cmd.Flags().GetBool("memory")
			showState, _ := cmd.Flags().GetBool("state")
			noBanner, _ := cmd.Flags().GetBool("no-banner")

			if inMemory {
				e.cfg.Redis.Addr = ""
				e.cfg.Database.URL = ""
				e.cfg.OpenAI.APIKey = ""
				e.cfg.Search.BaseURL = ""
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fallback := cli.RequireServices
			if inMemory {
				fallback = cli.AllowMemory
			}
			rt, err := cli.Build(ctx, e.cfg, e.logger, fallback)
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			render := tui.Plain
			if f, ok := out.(*os.File); ok {
				render = tui.NewRenderer(f)
			}
			if !noBanner {
				tui.PrintBanner(out)
			}

			return cli.Chat(ctx, rt.App, cli.ChatOptions{
				Phone:     phone,
				In:        cmd.InOrStdin(),
				Out:       out,
				Render:    render,
				ShowState: showState,
			})
		},
	}
	cmd.Flags().StringP("phone", "p", "5500000000000", "Phone number to talk as")
	cmd.Flags().Bool("memory", false, "Use in-memory adapters for every backing service")
	cmd.Flags().Bool("state", false, "Print the dialogue state after every reply")
	cmd.Flags().Bool("no-banner", false, "Do not print the banner")
	return cmd
}
