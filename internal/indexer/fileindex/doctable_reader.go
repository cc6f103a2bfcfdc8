package fileindex

import (
	"encoding/binary"
	"fmt"
)

type Document struct {
	ID   uint64
	Name string
}

// DocTableReader resolves document IDs to filenames.
type DocTableReader struct {
	table *tableReader
}

func (r *DocTableReader) LookupDocID(id uint64) (string, bool, error) {
	if id == 0 {
		return "", false, nil
	}
	positions, err := r.table.lookupElementPositions(id)
	if err != nil {
		return "", false, err
	}
	for _, pos := range positions {
		doc, err := r.readDocument(pos, id)
		if err != nil {
			return "", false, err
		}
		if doc != nil {
			return doc.Name, true, nil
		}
	}
	return "", false, nil
}

// readDocument decodes the element at pos. With want != 0 it returns nil
// without reading the name when the element holds another ID.
func (r *DocTableReader) readDocument(pos, want uint64) (*Document, error) {
	var hdr [docElementHeaderSize]byte
	if err := r.table.readElement(hdr[:], pos); err != nil {
		return nil, fmt.Errorf("reading document element: %w", err)
	}
	id := binary.BigEndian.Uint64(hdr[0:8])
	if want != 0 && id != want {
		return nil, nil
	}
	name := make([]byte, binary.BigEndian.Uint16(hdr[8:10]))
	if err := r.table.readElement(name, pos+docElementHeaderSize); err != nil {
		return nil, fmt.Errorf("reading name of document %d: %w", id, err)
	}
	return &Document{ID: id, Name: string(name)}, nil
}

// All returns every document in bucket order.
func (r *DocTableReader) All() ([]Document, error) {
	positions, err := r.table.allElementPositions()
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(positions))
	for _, pos := range positions {
		doc, err := r.readDocument(pos, 0)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

func (r *DocTableReader) Len() (int, error) {
	n, err := r.table.count()
	return int(n), err
}

func (r *DocTableReader) NumBuckets() uint64 {
	return r.table.numBuckets
}

func (r *DocTableReader) Close() error {
	return r.table.Close()
}
