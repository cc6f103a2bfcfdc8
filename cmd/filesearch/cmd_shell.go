package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/searcher/shell"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/logger"
)

var cmdShell = &cobra.Command{
	Use:   "shell [flags] index [index...]",
	Short: "Query index files interactively",
	Long: `
The "shell" command opens every index file given and reads queries from
standard input, one per line. Each query lists words that must all appear in
a document. Matches print as "name (rank)", highest rank first. End input
(Ctrl-D) to quit.
`,
	Args:              cobra.MinimumNArgs(1),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShell(cmd.Context(), cmd, shellOptions, args)
	},
}

// ShellOptions bundles all options for the shell command.
type ShellOptions struct {
	NoVerify bool
}

var shellOptions ShellOptions

func init() {
	cmdRoot.AddCommand(cmdShell)

	f := cmdShell.Flags()
	f.BoolVar(&shellOptions.NoVerify, "no-verify", false, "skip checksum verification when opening index files")
}

func runShell(ctx context.Context, cmd *cobra.Command, opts ShellOptions, paths []string) error {
	// Keep log lines out of the transcript unless asked for.
	if globalOptions.LogFormat == "" {
		slog.SetDefault(logger.New(cmd.ErrOrStderr(), "error", "text"))
	}

	var procOpts []executor.Option
	if opts.NoVerify {
		procOpts = append(procOpts, executor.WithoutChecksum())
	}
	qp, err := executor.New(paths, procOpts...)
	if err != nil {
		return err
	}
	defer qp.Close()

	return shell.New(qp, cmd.InOrStdin(), cmd.OutOrStdout()).Run(ctx)
}
