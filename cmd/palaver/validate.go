package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/palaver"
	"github.com/aretw0/palaver/internal/cli"
	"github.com/aretw0/palaver/internal/compiler"
	"github.com/aretw0/palaver/pkg/adapters/memory"
	"github.com/spf13/cobra"
)

var errInvalid = errors.New("validation failed")

var validateCmd = &cobra.Command{
	Use:   "validate [document...]",
	Short: "Check documents for consistency",
	Long: `Compiles every document (or the ones named) and reports documents that fail
to load, jumps to pages that do not exist and pages no path reaches.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		loader, err := cli.OpenLoader(cfg, logger)
		if err != nil {
			return err
		}
		eng, err := palaver.New(cfg.Documents,
			palaver.WithLoader(loader),
			palaver.WithHost(memory.NewHost()),
			palaver.WithLogger(logger),
		)
		if err != nil {
			return err
		}
		strict, _ := cmd.Flags().GetBool("strict")
		return runValidate(cmd, eng, args, strict)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("strict", false, "Treat unreachable pages as errors")
}

func runValidate(cmd *cobra.Command, eng *palaver.Engine, names []string, strict bool) error {
	ctx := cmd.Context()
	if len(names) == 0 {
		var err error
		if names, err = eng.Documents(ctx); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	failed := false
	for _, name := range names {
		g, err := eng.Graph(ctx, name)
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", name, err)
			failed = true
			continue
		}
		report := compiler.Analyze(g)
		printReport(out, name, report)
		if len(report.Dangling) > 0 || (strict && len(report.Unreachable) > 0) {
			failed = true
		}
	}

	if failed {
		return errInvalid
	}
	fmt.Fprintf(out, "%d document(s) valid\n", len(names))
	return nil
}

func printReport(w io.Writer, name string, report compiler.Report) {
	if report.OK() {
		fmt.Fprintf(w, "%s: ok\n", name)
		return
	}
	for _, l := range report.Dangling {
		if l.Choice == "" {
			fmt.Fprintf(w, "%s: page %q exits to missing page %q\n", name, l.PageID, l.Target)
			continue
		}
		fmt.Fprintf(w, "%s: page %q choice %q jumps to missing page %q\n", name, l.PageID, l.Choice, l.Target)
	}
	for _, id := range report.Unreachable {
		fmt.Fprintf(w, "%s: page %q is unreachable\n", name, id)
	}
}
