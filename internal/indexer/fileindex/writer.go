package fileindex

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/indexer/hashtable"
	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/filesearch/pkg/errors"
)

// TempSuffix is appended to the output path while a file is being written.
const TempSuffix = ".tmp"

// Write serializes docs and idx into a new index file at path, replacing any
// file already there, and returns the size of the finished file.
//
// The file is built at path+TempSuffix and renamed over path once complete,
// so readers holding the previous file keep reading it. Inside the temporary
// file the header goes in last, after both tables are on disk, so a file cut
// short at any point before that is rejected by Open. On any error the
// temporary file is removed and path is left untouched.
func Write(docs *index.DocTable, idx *index.MemIndex, path string) (size int64, err error) {
	if err := validateNames(docs, idx); err != nil {
		return 0, err
	}

	tmpPath := path + TempSuffix
	f, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("creating index file: %w", err)
	}
	closed := false
	defer func() {
		if err != nil {
			if !closed {
				f.Close()
			}
			os.Remove(tmpPath)
		}
	}()

	if _, err = f.Write(make([]byte, HeaderSize)); err != nil {
		return 0, fmt.Errorf("writing header placeholder: %w", err)
	}

	w := newSectionWriter(f, HeaderSize)
	docTableSize, err := writeTable(w, docTableCodec(docs.Table()))
	if err != nil {
		return 0, fmt.Errorf("writing document table: %w", err)
	}
	indexSize, err := writeTable(w, wordTableCodec(idx.Table()))
	if err != nil {
		return 0, fmt.Errorf("writing word index: %w", err)
	}
	if err = w.flush(); err != nil {
		return 0, fmt.Errorf("flushing index file: %w", err)
	}
	if err = f.Sync(); err != nil {
		return 0, fmt.Errorf("syncing index file: %w", err)
	}

	header := Header{
		Magic:        MagicNumber,
		Version:      FormatVersion,
		DocTableSize: docTableSize,
		IndexSize:    indexSize,
		Checksum:     w.sum(),
	}
	if _, err = f.WriteAt(header.encode(), 0); err != nil {
		return 0, fmt.Errorf("writing header: %w", err)
	}
	if err = f.Sync(); err != nil {
		return 0, fmt.Errorf("syncing index header: %w", err)
	}
	closed = true
	if err = f.Close(); err != nil {
		return 0, fmt.Errorf("closing index file: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return 0, fmt.Errorf("committing index file: %w", err)
	}
	syncDir(filepath.Dir(path))
	return int64(header.FileSize()), nil
}

// syncDir makes a rename durable. Not every platform can fsync a directory,
// so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	d.Sync()
	d.Close()
}

func validateNames(docs *index.DocTable, idx *index.MemIndex) error {
	for id, name := range docs.Table().All() {
		if len(name) > MaxNameLength {
			return fmt.Errorf("%w: document %d name is %d bytes, limit %d", apperrors.ErrInvalidInput, id, len(name), MaxNameLength)
		}
	}
	for _, chain := range idx.Table().All() {
		for _, wp := range chain {
			if len(wp.Word) > MaxNameLength {
				return fmt.Errorf("%w: word of %d bytes exceeds limit %d", apperrors.ErrInvalidInput, len(wp.Word), MaxNameLength)
			}
		}
	}
	return nil
}

func docTableCodec(t *hashtable.Table[string]) tableCodec[hashtable.KeyValue[string]] {
	return tableCodec[hashtable.KeyValue[string]]{
		numBuckets: t.NumBuckets(),
		bucket:     t.Bucket,
		size: func(kv hashtable.KeyValue[string]) uint64 {
			return docElementHeaderSize + uint64(len(kv.Value))
		},
		encode: func(w *sectionWriter, kv hashtable.KeyValue[string]) error {
			if err := w.putUint64(kv.Key); err != nil {
				return err
			}
			if err := w.putUint16(uint16(len(kv.Value))); err != nil {
				return err
			}
			return w.putString(kv.Value)
		},
	}
}

func postingsCodec(t *hashtable.Table[[]int]) tableCodec[hashtable.KeyValue[[]int]] {
	return tableCodec[hashtable.KeyValue[[]int]]{
		numBuckets: t.NumBuckets(),
		bucket:     t.Bucket,
		size: func(kv hashtable.KeyValue[[]int]) uint64 {
			return postingsElementHeaderSize + positionSize*uint64(len(kv.Value))
		},
		encode: func(w *sectionWriter, kv hashtable.KeyValue[[]int]) error {
			if err := w.putUint64(kv.Key); err != nil {
				return err
			}
			if err := w.putUint64(uint64(len(kv.Value))); err != nil {
				return err
			}
			for _, pos := range kv.Value {
				if err := w.putUint32(uint32(pos)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// wordTableCodec writes one element per word. Words whose hashes collide
// share an in-memory entry but become separate elements in the same bucket.
func wordTableCodec(t *hashtable.Table[[]*index.WordPostings]) tableCodec[*index.WordPostings] {
	return tableCodec[*index.WordPostings]{
		numBuckets: t.NumBuckets(),
		bucket: func(i int) []*index.WordPostings {
			var words []*index.WordPostings
			for _, kv := range t.Bucket(i) {
				words = append(words, kv.Value...)
			}
			return words
		},
		size: func(wp *index.WordPostings) uint64 {
			return wordElementHeaderSize + uint64(len(wp.Word)) + tableSize(postingsCodec(wp.Docs))
		},
		encode: func(w *sectionWriter, wp *index.WordPostings) error {
			nested := postingsCodec(wp.Docs)
			if err := w.putUint16(uint16(len(wp.Word))); err != nil {
				return err
			}
			if err := w.putUint64(tableSize(nested)); err != nil {
				return err
			}
			if err := w.putString(wp.Word); err != nil {
				return err
			}
			if _, err := writeTable(w, nested); err != nil {
				return fmt.Errorf("writing postings for %q: %w", wp.Word, err)
			}
			return nil
		},
	}
}
