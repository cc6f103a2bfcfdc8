// Package shell implements the interactive query loop: read a line of
// words, run it against the index files and print the matches.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/searcher/executor"
)

const (
	Prompt    = "Enter query:"
	NoResults = "[no results]"
)

// Querier is satisfied by *executor.QueryProcessor.
type Querier interface {
	ProcessQuery(ctx context.Context, words []string) ([]executor.Result, error)
}

type Shell struct {
	q   Querier
	in  *bufio.Reader
	out io.Writer
}

func New(q Querier, in io.Reader, out io.Writer) *Shell {
	return &Shell{q: q, in: bufio.NewReader(in), out: out}
}

// Run prompts for queries until the input is exhausted or ctx is
// cancelled. Lines may be arbitrarily long. A failed query is reported and
// the loop continues; only I/O errors end it early.
func (s *Shell) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if _, err := fmt.Fprintln(s.out, Prompt); err != nil {
			return err
		}
		line, readErr := s.in.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("reading query: %w", readErr)
		}
		if line != "" {
			if err := s.answer(ctx, line); err != nil {
				return err
			}
		}
		if readErr != nil {
			return nil
		}
	}
}

func (s *Shell) answer(ctx context.Context, line string) error {
	words := strings.Fields(strings.ToLower(line))
	results, err := s.q.ProcessQuery(ctx, words)
	if err != nil {
		_, werr := fmt.Fprintf(s.out, "error: %v\n", err)
		return werr
	}
	return Print(s.out, results)
}

// Print writes one "name (rank)" line per result, highest rank first, or
// NoResults when there are none.
func Print(w io.Writer, results []executor.Result) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, NoResults)
		return err
	}
	sorted := make([]executor.Result, len(results))
	copy(sorted, results)
	executor.SortByRank(sorted)
	bw := bufio.NewWriter(w)
	for _, r := range sorted {
		fmt.Fprintf(bw, "  %s (%d)\n", r.DocumentName, r.Rank)
	}
	return bw.Flush()
}
