package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aretw0/palaver"
	"github.com/aretw0/palaver/internal/cli"
	"github.com/aretw0/palaver/internal/presentation/tui"
	"github.com/aretw0/palaver/pkg/adapters/memory"
	"github.com/aretw0/palaver/pkg/domain"
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play <document>",
	Short: "Play a conversation in the terminal",
	Long: `Opens the document for a player and reads choices from stdin. Type a choice
number or value, "esc" to escape, or "quit" to leave.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("player")
		headless, _ := cmd.Flags().GetBool("headless")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		out := cmd.OutOrStdout()
		opts := []palaver.Option{palaver.WithPresenter(tui.NewPresenter(out))}
		var recorder *memory.Host
		if dryRun {
			recorder = memory.NewHost(name)
			opts = append(opts, palaver.WithHost(recorder))
		}

		eng, stores, err := cli.NewEngine(cfg, logger, opts...)
		if err != nil {
			return err
		}
		defer stores.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if !headless {
			tui.PrintBanner(out, strings.TrimSpace(palaver.Version))
		}
		runner := palaver.NewRunner(cmd.InOrStdin(), out)
		runner.Headless = headless
		player := domain.Identity{ID: name, Username: name}
		if err := runner.Run(ctx, eng, args[0], player); err != nil && ctx.Err() == nil {
			return err
		}

		if recorder != nil {
			printCalls(cmd, recorder.Calls())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().StringP("player", "p", "player", "Player name used for placeholders and commands")
	playCmd.Flags().Bool("headless", false, "Skip the banner and prompts")
	playCmd.Flags().Bool("dry-run", false, "Record commands instead of running host handlers")
}

func printCalls(cmd *cobra.Command, calls []memory.Call) {
	if len(calls) == 0 {
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), "\nCommands:")
	for _, c := range calls {
		target := c.Player
		if target == "" {
			target = "-"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %-9s %-10s %s\n", c.Kind, target, c.Line)
	}
}

