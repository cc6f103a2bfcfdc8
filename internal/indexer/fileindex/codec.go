package fileindex

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash"
	"hash/crc32"
	"io"

	apperrors "github.com/Adithya-Monish-Kumar-K/filesearch/pkg/errors"
)

// sectionWriter streams the table regions that follow the header and folds
// every byte into the file checksum.
type sectionWriter struct {
	bw  *bufio.Writer
	crc hash.Hash32
	off uint64
	buf [8]byte
}

func newSectionWriter(w io.Writer, start uint64) *sectionWriter {
	return &sectionWriter{
		bw:  bufio.NewWriterSize(w, 64*1024),
		crc: crc32.NewIEEE(),
		off: start,
	}
}

func (w *sectionWriter) Write(p []byte) (int, error) {
	n, err := w.bw.Write(p)
	w.crc.Write(p[:n])
	w.off += uint64(n)
	return n, err
}

func (w *sectionWriter) putUint16(v uint16) error {
	binary.BigEndian.PutUint16(w.buf[:2], v)
	_, err := w.Write(w.buf[:2])
	return err
}

func (w *sectionWriter) putUint32(v uint32) error {
	binary.BigEndian.PutUint32(w.buf[:4], v)
	_, err := w.Write(w.buf[:4])
	return err
}

func (w *sectionWriter) putUint64(v uint64) error {
	binary.BigEndian.PutUint64(w.buf[:], v)
	_, err := w.Write(w.buf[:])
	return err
}

func (w *sectionWriter) putString(s string) error {
	_, err := io.WriteString(w, s)
	return err
}

func (w *sectionWriter) flush() error {
	return w.bw.Flush()
}

func (w *sectionWriter) sum() uint32 {
	return w.crc.Sum32()
}

// tableCodec describes how one table's elements are laid out. size must
// report exactly the number of bytes encode writes for an element.
type tableCodec[E any] struct {
	numBuckets int
	bucket     func(i int) []E
	size       func(e E) uint64
	encode     func(w *sectionWriter, e E) error
}

func tableSize[E any](c tableCodec[E]) uint64 {
	total := uint64(tableHeaderSize + bucketRecordSize*c.numBuckets)
	for i := 0; i < c.numBuckets; i++ {
		for _, e := range c.bucket(i) {
			total += elementPosSize + c.size(e)
		}
	}
	return total
}

// writeTable writes the table header, the bucket record array and every
// non-empty bucket region, and returns the number of bytes written.
func writeTable[E any](w *sectionWriter, c tableCodec[E]) (uint64, error) {
	start := w.off
	if err := w.putUint64(uint64(c.numBuckets)); err != nil {
		return 0, fmt.Errorf("writing table header: %w", err)
	}

	next := start + tableHeaderSize + bucketRecordSize*uint64(c.numBuckets)
	for i := 0; i < c.numBuckets; i++ {
		chain := c.bucket(i)
		offset := uint64(0)
		if len(chain) > 0 {
			offset = next
			for _, e := range chain {
				next += elementPosSize + c.size(e)
			}
		}
		if err := w.putUint64(uint64(len(chain))); err != nil {
			return 0, fmt.Errorf("writing bucket record %d: %w", i, err)
		}
		if err := w.putUint64(offset); err != nil {
			return 0, fmt.Errorf("writing bucket record %d: %w", i, err)
		}
	}

	for i := 0; i < c.numBuckets; i++ {
		if err := writeBucket(w, c, c.bucket(i)); err != nil {
			return 0, fmt.Errorf("writing bucket %d: %w", i, err)
		}
	}
	if w.off != next {
		return 0, fmt.Errorf("%w: table ended at offset %d, expected %d", apperrors.ErrInternal, w.off, next)
	}
	return w.off - start, nil
}

func writeBucket[E any](w *sectionWriter, c tableCodec[E], chain []E) error {
	if len(chain) == 0 {
		return nil
	}
	sizes := make([]uint64, len(chain))
	pos := w.off + elementPosSize*uint64(len(chain))
	for i, e := range chain {
		sizes[i] = c.size(e)
		if err := w.putUint64(pos); err != nil {
			return fmt.Errorf("writing element position: %w", err)
		}
		pos += sizes[i]
	}
	for i, e := range chain {
		before := w.off
		if err := c.encode(w, e); err != nil {
			return err
		}
		if w.off-before != sizes[i] {
			return fmt.Errorf("%w: element encoded to %d bytes, sized as %d", apperrors.ErrInternal, w.off-before, sizes[i])
		}
	}
	return nil
}

// tableReader locates elements in one serialized table occupying
// [offset, offset+size) of the file.
type tableReader struct {
	h          *handle
	offset     uint64
	size       uint64
	numBuckets uint64
}

func newTableReader(h *handle, offset, size uint64) (*tableReader, error) {
	if size < tableHeaderSize {
		return nil, corruptf("table at offset %d: size %d is smaller than its header", offset, size)
	}
	if offset > h.size || size > h.size-offset {
		return nil, corruptf("table at offset %d with size %d extends past end of file", offset, size)
	}
	numBuckets, err := h.uint64At(offset)
	if err != nil {
		return nil, fmt.Errorf("reading table header: %w", err)
	}
	if numBuckets > (size-tableHeaderSize)/bucketRecordSize {
		return nil, corruptf("table at offset %d: %d buckets do not fit in %d bytes", offset, numBuckets, size)
	}
	return &tableReader{h: h, offset: offset, size: size, numBuckets: numBuckets}, nil
}

func (t *tableReader) end() uint64 {
	return t.offset + t.size
}

func (t *tableReader) regionStart() uint64 {
	return t.offset + tableHeaderSize + t.numBuckets*bucketRecordSize
}

func (t *tableReader) bucketRecord(b uint64) (chainLen, bucketOffset uint64, err error) {
	var rec [bucketRecordSize]byte
	if err := t.h.readAt(rec[:], t.offset+tableHeaderSize+b*bucketRecordSize); err != nil {
		return 0, 0, fmt.Errorf("reading bucket record %d: %w", b, err)
	}
	return binary.BigEndian.Uint64(rec[0:8]), binary.BigEndian.Uint64(rec[8:16]), nil
}

// lookupElementPositions returns the offsets of every element chained in the
// bucket key maps to, in chain order. Callers compare keys themselves.
func (t *tableReader) lookupElementPositions(key uint64) ([]uint64, error) {
	if t.numBuckets == 0 {
		return nil, nil
	}
	return t.bucketElementPositions(key % t.numBuckets)
}

func (t *tableReader) bucketElementPositions(b uint64) ([]uint64, error) {
	chainLen, bucketOffset, err := t.bucketRecord(b)
	if err != nil {
		return nil, err
	}
	if chainLen == 0 {
		return nil, nil
	}
	end := t.end()
	if bucketOffset < t.regionStart() || bucketOffset >= end || chainLen > (end-bucketOffset)/elementPosSize {
		return nil, corruptf("bucket %d: %d elements at offset %d fall outside table [%d, %d)", b, chainLen, bucketOffset, t.offset, end)
	}

	raw := make([]byte, chainLen*elementPosSize)
	if err := t.h.readAt(raw, bucketOffset); err != nil {
		return nil, fmt.Errorf("reading element positions of bucket %d: %w", b, err)
	}
	elementsStart := bucketOffset + chainLen*elementPosSize
	positions := make([]uint64, chainLen)
	for i := range positions {
		p := binary.BigEndian.Uint64(raw[i*elementPosSize:])
		if p < elementsStart || p >= end || (i > 0 && p <= positions[i-1]) {
			return nil, corruptf("bucket %d: element %d at offset %d is out of place", b, i, p)
		}
		positions[i] = p
	}
	return positions, nil
}

func (t *tableReader) allElementPositions() ([]uint64, error) {
	var all []uint64
	for b := uint64(0); b < t.numBuckets; b++ {
		positions, err := t.bucketElementPositions(b)
		if err != nil {
			return nil, err
		}
		all = append(all, positions...)
	}
	return all, nil
}

// count sums the chain lengths of every bucket record, reading the record
// array in batches.
func (t *tableReader) count() (uint64, error) {
	const batch = 4096
	var n uint64
	buf := make([]byte, batch*bucketRecordSize)
	for b := uint64(0); b < t.numBuckets; b += batch {
		records := min(batch, t.numBuckets-b)
		raw := buf[:records*bucketRecordSize]
		if err := t.h.readAt(raw, t.offset+tableHeaderSize+b*bucketRecordSize); err != nil {
			return 0, fmt.Errorf("reading bucket records: %w", err)
		}
		for i := uint64(0); i < records; i++ {
			n += binary.BigEndian.Uint64(raw[i*bucketRecordSize:])
		}
	}
	return n, nil
}

// readElement reads len(p) bytes of an element at off, which must lie inside
// the table.
func (t *tableReader) readElement(p []byte, off uint64) error {
	if off < t.offset || off > t.end() || uint64(len(p)) > t.end()-off {
		return corruptf("element bytes [%d, %d) outside table [%d, %d)", off, off+uint64(len(p)), t.offset, t.end())
	}
	return t.h.readAt(p, off)
}

func (t *tableReader) Close() error {
	return t.h.Close()
}
