// Command filesearch is the operator CLI: build index files from directory
// trees, query them interactively, and inspect or verify them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/logger"
)

// GlobalOptions hold flags shared by every command.
type GlobalOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
}

var (
	globalOptions GlobalOptions
	cfg           *config.Config
)

// cmdRoot is the base command when no other command has been specified.
var cmdRoot = &cobra.Command{
	Use:   "filesearch",
	Short: "Build and query file search indexes",
	Long: `
filesearch crawls directory trees into single-file inverted indexes and
answers AND queries over one or more of them.
`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	DisableAutoGenTag: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(globalOptions.ConfigPath)
		if err != nil {
			return err
		}
		level, format := cfg.Logging.Level, "text"
		if globalOptions.LogLevel != "" {
			level = globalOptions.LogLevel
		}
		if globalOptions.LogFormat != "" {
			format = globalOptions.LogFormat
		}
		logger.Setup(level, format)
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
		os.Exit(0)
	},
}

func init() {
	f := cmdRoot.PersistentFlags()
	f.StringVar(&globalOptions.ConfigPath, "config", "", "path to config file (default: built-in defaults)")
	f.StringVar(&globalOptions.LogLevel, "log-level", "", "log level: debug, info, warn or error")
	f.StringVar(&globalOptions.LogFormat, "log-format", "", "log format: text, json or discard")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmdRoot.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
