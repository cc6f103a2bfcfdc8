package shell

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/searcher/executor"
)

type fakeQuerier struct {
	queries [][]string
}

func (f *fakeQuerier) ProcessQuery(_ context.Context, words []string) ([]executor.Result, error) {
	f.queries = append(f.queries, words)
	switch strings.Join(words, " ") {
	case "fish":
		return []executor.Result{{DocumentName: "a.txt", Rank: 1}, {DocumentName: "b.txt", Rank: 3}, {DocumentName: "c.txt", Rank: 3}}, nil
	case "broken":
		return nil, errors.New("index file corrupt")
	}
	return nil, nil
}

func TestRunTranscript(t *testing.T) {
	q := &fakeQuerier{}
	in := strings.NewReader("FISH\n\nsubmarine\nbroken\nfish")
	var out strings.Builder
	if err := New(q, in, &out).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := strings.Join([]string{
		"Enter query:",
		"  b.txt (3)",
		"  c.txt (3)",
		"  a.txt (1)",
		"Enter query:",
		"[no results]",
		"Enter query:",
		"[no results]",
		"Enter query:",
		"error: index file corrupt",
		"Enter query:",
		"  b.txt (3)",
		"  c.txt (3)",
		"  a.txt (1)",
	}, "\n") + "\n"
	if out.String() != want {
		t.Errorf("transcript:\n%s\nwant:\n%s", out.String(), want)
	}
	if !reflect.DeepEqual(q.queries[0], []string{"fish"}) {
		t.Errorf("first query = %v", q.queries[0])
	}
}

func TestRunLongLine(t *testing.T) {
	q := &fakeQuerier{}
	words := strings.Repeat("word ", 20000)
	var out strings.Builder
	if err := New(q, strings.NewReader(words+"\n"), &out).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(q.queries) != 1 || len(q.queries[0]) != 20000 {
		t.Errorf("long line split into %d queries", len(q.queries))
	}
	if !strings.HasSuffix(out.String(), Prompt+"\n") {
		t.Errorf("shell did not prompt again before EOF: %q", out.String()[len(out.String())-40:])
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out strings.Builder
	if err := New(&fakeQuerier{}, strings.NewReader("fish\n"), &out).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if out.Len() != 0 {
		t.Errorf("output after cancel: %q", out.String())
	}
}
