package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/indexer/crawler"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/filesearch/pkg/postgres"
)

var cmdBuild = &cobra.Command{
	Use:   "build [flags] root output",
	Short: "Index a directory tree into a single index file",
	Long: `
The "build" command crawls root and writes its index to output. Include and
exclude patterns use doublestar syntax ("**/*.go") and match paths relative
to root. Defaults come from the indexer section of the config file.

EXIT STATUS
===========

Exit status is 0 if the index was written and verified, and non-zero
otherwise. No file is left at output when writing fails.
`,
	Args:              cobra.ExactArgs(2),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBuild(cmd.Context(), cmd, buildOptions, args[0], args[1])
	},
}

// BuildOptions bundles all options for the build command.
type BuildOptions struct {
	Include     []string
	Exclude     []string
	Workers     int
	MaxFileSize int64
	StopWords   bool
	Register    bool
	Publish     bool
}

var buildOptions BuildOptions

func init() {
	cmdRoot.AddCommand(cmdBuild)

	f := cmdBuild.Flags()
	f.StringSliceVar(&buildOptions.Include, "include", nil, "only index files matching `pattern` (repeatable)")
	f.StringSliceVar(&buildOptions.Exclude, "exclude", nil, "skip files and directories matching `pattern` (repeatable)")
	f.IntVar(&buildOptions.Workers, "workers", 0, "files read and tokenized in parallel")
	f.Int64Var(&buildOptions.MaxFileSize, "max-file-size", 0, "skip files larger than `bytes`")
	f.BoolVar(&buildOptions.StopWords, "stop-words", false, "drop common English stop words")
	f.BoolVar(&buildOptions.Register, "register", false, "record the file in the Postgres shard catalog")
	f.BoolVar(&buildOptions.Publish, "publish", false, "announce the file on the index.complete Kafka topic")
}

func runBuild(ctx context.Context, cmd *cobra.Command, opts BuildOptions, root, output string) error {
	crawlCfg := crawler.Config{
		Include:     cfg.Indexer.Include,
		Exclude:     cfg.Indexer.Exclude,
		MaxFileSize: cfg.Indexer.MaxFileSize,
		Workers:     cfg.Indexer.Workers,
		StopWords:   cfg.Indexer.StopWords,
	}
	flags := cmd.Flags()
	if flags.Changed("include") {
		crawlCfg.Include = opts.Include
	}
	if flags.Changed("exclude") {
		crawlCfg.Exclude = opts.Exclude
	}
	if flags.Changed("workers") {
		crawlCfg.Workers = opts.Workers
	}
	if flags.Changed("max-file-size") {
		crawlCfg.MaxFileSize = opts.MaxFileSize
	}
	if flags.Changed("stop-words") {
		crawlCfg.StopWords = opts.StopWords
	}

	var builderOpts []indexer.Option
	if opts.Register {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()
		store := catalog.NewStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		builderOpts = append(builderOpts, indexer.WithCatalog(store))
	}
	if opts.Publish {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		defer producer.Close()
		builderOpts = append(builderOpts, indexer.WithPublisher(producer))
	}

	b, err := indexer.NewBuilder(crawlCfg, builderOpts...)
	if err != nil {
		return err
	}
	res, err := b.Build(ctx, root, output)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "wrote %s\n", res.Path)
	fmt.Fprintf(out, "  files:     %d indexed, %d skipped\n", res.Files, res.Skipped)
	fmt.Fprintf(out, "  words:     %d\n", res.Words)
	fmt.Fprintf(out, "  size:      %d bytes\n", res.Size)
	fmt.Fprintf(out, "  checksum:  %08x\n", res.Checksum)
	fmt.Fprintf(out, "  took:      %s\n", res.Duration.Round(time.Millisecond))
	return nil
}
