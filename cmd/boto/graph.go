package main

import (
	"fmt"

	"github.com/aretw0/boto/internal/cli"
	"github.com/aretw0/boto/internal/presentation/graph"
	"github.com/aretw0/boto/internal/runtime"
	"github.com/spf13/cobra"
)

func newGraphCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Export the dialogue graph",
		Long:  `Outputs a Mermaid diagram (graph TD) of the transition table. With --phone the live state of that session is highlighted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var overlay *graph.Overlay
			if phone, _ := cmd.Flags().GetString("phone"); phone != "" {
				store, err := openStore(e.cfg)
				if err != nil {
					return err
				}
				defer store.Close()

				info, err := cli.InspectSession(cmd.Context(), store, phone)
				if err != nil {
					return fmt.Errorf("failed to load session %q: %w", phone, err)
				}
				overlay = &graph.Overlay{Current: info.State}
			}
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(runtime.Table, overlay))
			return nil
		},
	}
	cmd.Flags().StringP("phone", "p", "", "Highlight the current state of this phone's session")
	return cmd
}
