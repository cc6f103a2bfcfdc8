package fileindex

import (
	"encoding/binary"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/indexer/hashtable"
)

// IndexTableReader finds words in the word index.
type IndexTableReader struct {
	table *tableReader
}

type wordElement struct {
	word       string
	nestedOff  uint64
	nestedSize uint64
}

// LookupWord returns a reader over the postings of word, or nil when the
// word is not indexed. The returned reader holds its own file reference and
// must be closed by the caller.
func (r *IndexTableReader) LookupWord(word string) (*DocIDTableReader, error) {
	positions, err := r.table.lookupElementPositions(hashtable.HashString(word))
	if err != nil {
		return nil, err
	}
	for _, pos := range positions {
		elem, err := r.readWord(pos, len(word))
		if err != nil {
			return nil, err
		}
		if elem == nil || elem.word != word {
			continue
		}
		return r.openPostings(elem)
	}
	return nil, nil
}

// readWord decodes the word element at pos. With wantLen >= 0 it returns nil
// without reading the word bytes when the stored length differs.
func (r *IndexTableReader) readWord(pos uint64, wantLen int) (*wordElement, error) {
	var hdr [wordElementHeaderSize]byte
	if err := r.table.readElement(hdr[:], pos); err != nil {
		return nil, fmt.Errorf("reading word element: %w", err)
	}
	wordLen := binary.BigEndian.Uint16(hdr[0:2])
	nestedSize := binary.BigEndian.Uint64(hdr[2:10])
	if wantLen >= 0 && int(wordLen) != wantLen {
		return nil, nil
	}
	word := make([]byte, wordLen)
	if err := r.table.readElement(word, pos+wordElementHeaderSize); err != nil {
		return nil, fmt.Errorf("reading word bytes: %w", err)
	}
	nestedOff := pos + wordElementHeaderSize + uint64(wordLen)
	if nestedSize > r.table.end()-nestedOff {
		return nil, corruptf("postings of %q: %d bytes at offset %d overrun the word index", word, nestedSize, nestedOff)
	}
	return &wordElement{word: string(word), nestedOff: nestedOff, nestedSize: nestedSize}, nil
}

func (r *IndexTableReader) openPostings(elem *wordElement) (*DocIDTableReader, error) {
	h := r.table.h.dup()
	t, err := newTableReader(h, elem.nestedOff, elem.nestedSize)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("opening postings of %q: %w", elem.word, err)
	}
	return &DocIDTableReader{table: t}, nil
}

// Words returns every indexed word in bucket order.
func (r *IndexTableReader) Words() ([]string, error) {
	positions, err := r.table.allElementPositions()
	if err != nil {
		return nil, err
	}
	words := make([]string, 0, len(positions))
	for _, pos := range positions {
		elem, err := r.readWord(pos, -1)
		if err != nil {
			return nil, err
		}
		words = append(words, elem.word)
	}
	return words, nil
}

func (r *IndexTableReader) Len() (int, error) {
	n, err := r.table.count()
	return int(n), err
}

func (r *IndexTableReader) NumBuckets() uint64 {
	return r.table.numBuckets
}

func (r *IndexTableReader) Close() error {
	return r.table.Close()
}
