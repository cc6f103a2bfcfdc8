package main

import (
	"cmp"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/indexer/fileindex"
)

var cmdDump = &cobra.Command{
	Use:   "dump [flags] index",
	Short: "Print the contents of an index file",
	Long: `
The "dump" command prints the header, the document table and, for each word,
the documents it occurs in. With --positions, word positions are printed too.
With --word, only the named words are printed.
`,
	Args:              cobra.ExactArgs(1),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDump(cmd.OutOrStdout(), dumpOptions, args[0])
	},
}

// DumpOptions bundles all options for the dump command.
type DumpOptions struct {
	Positions bool
	Words     []string
	NoVerify  bool
}

var dumpOptions DumpOptions

func init() {
	cmdRoot.AddCommand(cmdDump)

	f := cmdDump.Flags()
	f.BoolVar(&dumpOptions.Positions, "positions", false, "print word positions")
	f.StringSliceVar(&dumpOptions.Words, "word", nil, "only print these words (repeatable)")
	f.BoolVar(&dumpOptions.NoVerify, "no-verify", false, "skip checksum verification")
}

func runDump(out io.Writer, opts DumpOptions, path string) error {
	var openOpts []fileindex.Option
	if opts.NoVerify {
		openOpts = append(openOpts, fileindex.WithoutChecksum())
	}
	r, err := fileindex.Open(path, openOpts...)
	if err != nil {
		return err
	}
	defer r.Close()

	h := r.Header()
	fmt.Fprintf(out, "magic %08x version %d checksum %08x\n", h.Magic, h.Version, h.Checksum)
	fmt.Fprintf(out, "doctable  offset %d size %d\n", h.DocTableOffset(), h.DocTableSize)
	fmt.Fprintf(out, "index     offset %d size %d\n", h.IndexOffset(), h.IndexSize)

	docs, err := r.DocTable()
	if err != nil {
		return err
	}
	defer docs.Close()
	all, err := docs.All()
	if err != nil {
		return err
	}
	slices.SortFunc(all, func(a, b fileindex.Document) int { return cmp.Compare(a.ID, b.ID) })
	fmt.Fprintf(out, "\ndocuments (%d, %d buckets)\n", len(all), docs.NumBuckets())
	for _, d := range all {
		fmt.Fprintf(out, "  %6d  %s\n", d.ID, d.Name)
	}

	words, err := r.IndexTable()
	if err != nil {
		return err
	}
	defer words.Close()
	list := opts.Words
	if len(list) == 0 {
		if list, err = words.Words(); err != nil {
			return err
		}
	}
	slices.Sort(list)
	fmt.Fprintf(out, "\nwords (%d, %d buckets)\n", len(list), words.NumBuckets())
	for _, w := range list {
		if err := dumpWord(out, words, w, opts.Positions); err != nil {
			return err
		}
	}
	return nil
}

func dumpWord(out io.Writer, words *fileindex.IndexTableReader, word string, positions bool) error {
	p, err := words.LookupWord(word)
	if err != nil {
		return fmt.Errorf("word %q: %w", word, err)
	}
	if p == nil {
		fmt.Fprintf(out, "  %s: not indexed\n", word)
		return nil
	}
	defer p.Close()
	entries, err := p.ListAll()
	if err != nil {
		return fmt.Errorf("word %q: %w", word, err)
	}
	fmt.Fprintf(out, "  %s (%d documents)\n", word, len(entries))
	for _, e := range entries {
		if !positions {
			fmt.Fprintf(out, "    doc %d x%d\n", e.DocID, e.Count)
			continue
		}
		pos, _, err := p.LookupDocID(e.DocID)
		if err != nil {
			return fmt.Errorf("word %q doc %d: %w", word, e.DocID, err)
		}
		fmt.Fprintf(out, "    doc %d x%d %v\n", e.DocID, e.Count, pos)
	}
	return nil
}
