package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/palaver/internal/cli"
	"github.com/aretw0/palaver/internal/presentation/graph"
	"github.com/aretw0/palaver/pkg/domain"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <document>",
	Short: "Export a document as a Mermaid flowchart",
	Long: `Compiles the document and prints a Mermaid diagram (graph TD) of its pages and
choices. With --player the page that player's stored conversation is on is highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		eng, stores, err := cli.NewEngine(cfg, logger)
		if err != nil {
			return err
		}
		defer stores.Close()

		g, err := eng.Graph(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		var overlay *graph.Overlay
		if player, _ := cmd.Flags().GetString("player"); player != "" {
			snap, err := eng.Snapshot(cmd.Context(), player)
			switch {
			case errors.Is(err, domain.ErrConversationNotFound):
				logger.Warn("no stored conversation", "player", player)
			case err != nil:
				return err
			case snap.Document == g.Name:
				overlay = &graph.Overlay{CurrentPage: snap.PageID}
			}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("player", "", "Highlight the page of this player's stored conversation")
}
