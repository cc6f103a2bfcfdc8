package fileindex

import (
	"encoding/binary"
	"fmt"
)

// DocIDCount is one document a word occurs in and how often.
type DocIDCount struct {
	DocID uint64
	Count uint64
}

// DocIDTableReader reads the postings of a single word.
type DocIDTableReader struct {
	table *tableReader
}

func (r *DocIDTableReader) readPostingsHeader(pos uint64) (DocIDCount, error) {
	var hdr [postingsElementHeaderSize]byte
	if err := r.table.readElement(hdr[:], pos); err != nil {
		return DocIDCount{}, fmt.Errorf("reading postings element: %w", err)
	}
	dc := DocIDCount{
		DocID: binary.BigEndian.Uint64(hdr[0:8]),
		Count: binary.BigEndian.Uint64(hdr[8:16]),
	}
	if dc.Count > (r.table.end()-pos-postingsElementHeaderSize)/positionSize {
		return DocIDCount{}, corruptf("document %d: %d positions overrun the postings table", dc.DocID, dc.Count)
	}
	return dc, nil
}

// LookupDocID returns the positions at which the word occurs in document id.
func (r *DocIDTableReader) LookupDocID(id uint64) ([]uint32, bool, error) {
	positions, err := r.table.lookupElementPositions(id)
	if err != nil {
		return nil, false, err
	}
	for _, pos := range positions {
		dc, err := r.readPostingsHeader(pos)
		if err != nil {
			return nil, false, err
		}
		if dc.DocID != id {
			continue
		}
		raw := make([]byte, dc.Count*positionSize)
		if err := r.table.readElement(raw, pos+postingsElementHeaderSize); err != nil {
			return nil, false, fmt.Errorf("reading positions of document %d: %w", id, err)
		}
		out := make([]uint32, dc.Count)
		for i := range out {
			out[i] = binary.BigEndian.Uint32(raw[i*positionSize:])
		}
		return out, true, nil
	}
	return nil, false, nil
}

// ListAll returns every document in the table with its match count, in
// bucket order.
func (r *DocIDTableReader) ListAll() ([]DocIDCount, error) {
	positions, err := r.table.allElementPositions()
	if err != nil {
		return nil, err
	}
	out := make([]DocIDCount, 0, len(positions))
	for _, pos := range positions {
		dc, err := r.readPostingsHeader(pos)
		if err != nil {
			return nil, err
		}
		out = append(out, dc)
	}
	return out, nil
}

func (r *DocIDTableReader) Close() error {
	return r.table.Close()
}
