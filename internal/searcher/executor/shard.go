package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/indexer/fileindex"
)

type shard struct {
	path  string
	file  *fileindex.Reader
	docs  *fileindex.DocTableReader
	words *fileindex.IndexTableReader
	info  ShardInfo
	// names is the document-name set, read from the doc table on first use.
	names func() (map[string]struct{}, error)
}

func openShard(path string, opts ...fileindex.Option) (*shard, error) {
	s := &shard{path: path}
	if err := s.open(opts...); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *shard) open(opts ...fileindex.Option) error {
	var err error
	if s.file, err = fileindex.Open(s.path, opts...); err != nil {
		return err
	}
	if s.docs, err = s.file.DocTable(); err != nil {
		return err
	}
	if s.words, err = s.file.IndexTable(); err != nil {
		return err
	}

	s.names = sync.OnceValues(s.loadNames)
	s.info = ShardInfo{Path: s.path, Bytes: s.file.Header().FileSize()}
	if s.info.Documents, err = s.docs.Len(); err != nil {
		return err
	}
	if s.info.Words, err = s.words.Len(); err != nil {
		return err
	}
	return nil
}

func (s *shard) loadNames() (map[string]struct{}, error) {
	all, err := s.docs.All()
	if err != nil {
		return nil, fmt.Errorf("reading document table: %w", err)
	}
	names := make(map[string]struct{}, len(all))
	for _, d := range all {
		names[d.Name] = struct{}{}
	}
	return names, nil
}

type candidate struct {
	name string
	rank int
}

// query seeds candidates from the first word's postings and prunes them
// with every following word. A word missing from the shard empties it.
func (s *shard) query(ctx context.Context, words []string) ([]Result, error) {
	candidates, err := s.seed(words[0])
	if err != nil {
		return nil, err
	}
	for _, word := range words[1:] {
		if len(candidates) == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.prune(word, candidates); err != nil {
			return nil, err
		}
	}

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, Result{DocumentName: c.name, Rank: c.rank})
	}
	return results, nil
}

func (s *shard) seed(word string) (map[uint64]*candidate, error) {
	postings, err := s.words.LookupWord(word)
	if err != nil {
		return nil, fmt.Errorf("looking up %q: %w", word, err)
	}
	if postings == nil {
		return nil, nil
	}
	defer postings.Close()

	all, err := postings.ListAll()
	if err != nil {
		return nil, fmt.Errorf("listing documents for %q: %w", word, err)
	}
	candidates := make(map[uint64]*candidate, len(all))
	for _, dc := range all {
		name, ok, err := s.docs.LookupDocID(dc.DocID)
		if err != nil {
			return nil, fmt.Errorf("resolving document %d: %w", dc.DocID, err)
		}
		if !ok {
			continue
		}
		candidates[dc.DocID] = &candidate{name: name, rank: int(dc.Count)}
	}
	return candidates, nil
}

func (s *shard) prune(word string, candidates map[uint64]*candidate) error {
	postings, err := s.words.LookupWord(word)
	if err != nil {
		return fmt.Errorf("looking up %q: %w", word, err)
	}
	if postings == nil {
		clear(candidates)
		return nil
	}
	defer postings.Close()

	for id, c := range candidates {
		positions, ok, err := postings.LookupDocID(id)
		if err != nil {
			return fmt.Errorf("looking up document %d for %q: %w", id, word, err)
		}
		if !ok {
			delete(candidates, id)
			continue
		}
		c.rank += len(positions)
	}
	return nil
}

func (s *shard) Close() error {
	var errs []error
	if s.words != nil {
		errs = append(errs, s.words.Close())
	}
	if s.docs != nil {
		errs = append(errs, s.docs.Close())
	}
	if s.file != nil {
		errs = append(errs, s.file.Close())
	}
	return errors.Join(errs...)
}
