package fileindex

import (
	"fmt"
	"hash/crc32"
	"io"

	apperrors "github.com/Adithya-Monish-Kumar-K/filesearch/pkg/errors"
)

type options struct {
	verifyChecksum bool
}

type Option func(*options)

// WithoutChecksum skips the checksum pass in Open. Header and extent checks
// still apply.
func WithoutChecksum() Option {
	return func(o *options) { o.verifyChecksum = false }
}

// Reader is an opened, validated index file. It hands out table readers
// that each hold their own reference to the file.
type Reader struct {
	h      *handle
	header Header
}

func Open(path string, opts ...Option) (*Reader, error) {
	o := options{verifyChecksum: true}
	for _, opt := range opts {
		opt(&o)
	}

	h, err := openHandle(path)
	if err != nil {
		return nil, err
	}
	header, err := readHeader(h)
	if err != nil {
		h.Close()
		return nil, err
	}
	if o.verifyChecksum {
		if err := verifyChecksum(h, header); err != nil {
			h.Close()
			return nil, err
		}
	}
	return &Reader{h: h, header: header}, nil
}

func readHeader(h *handle) (Header, error) {
	if h.size < HeaderSize {
		return Header{}, fmt.Errorf("%w: %s is %d bytes, shorter than the header", apperrors.ErrIndexIncomplete, h.path, h.size)
	}
	buf := make([]byte, HeaderSize)
	if err := h.readAt(buf, 0); err != nil {
		return Header{}, fmt.Errorf("reading header: %w", err)
	}
	header := decodeHeader(buf)
	if header.Magic != MagicNumber {
		return Header{}, fmt.Errorf("%w: %s has magic number %#x", apperrors.ErrIndexIncomplete, h.path, header.Magic)
	}
	if header.Version != FormatVersion {
		return Header{}, corruptf("%s: unsupported format version %d", h.path, header.Version)
	}
	body := h.size - HeaderSize
	if header.DocTableSize > body || header.IndexSize != body-header.DocTableSize {
		return Header{}, corruptf("%s: header declares %d+%d bytes of tables, file holds %d", h.path, header.DocTableSize, header.IndexSize, body)
	}
	return header, nil
}

func verifyChecksum(h *handle, header Header) error {
	crc := crc32.NewIEEE()
	section := io.NewSectionReader(h.file, HeaderSize, int64(header.DocTableSize+header.IndexSize))
	if _, err := io.Copy(crc, section); err != nil {
		return fmt.Errorf("%w: checksumming %s: %w", apperrors.ErrIndexUnreadable, h.path, err)
	}
	if sum := crc.Sum32(); sum != header.Checksum {
		return corruptf("%s: checksum %#08x does not match header %#08x", h.path, sum, header.Checksum)
	}
	return nil
}

func (r *Reader) Header() Header {
	return r.header
}

// References reports how many readers still hold the underlying file: the
// Reader itself until closed, plus every open table and postings reader.
// The file is closed when it reaches zero.
func (r *Reader) References() int64 {
	return r.h.refs.Load()
}

func (r *Reader) Path() string {
	return r.h.path
}

// DocTable returns a reader over the document table. The caller must close it.
func (r *Reader) DocTable() (*DocTableReader, error) {
	h := r.h.dup()
	t, err := newTableReader(h, r.header.DocTableOffset(), r.header.DocTableSize)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("opening document table: %w", err)
	}
	return &DocTableReader{table: t}, nil
}

// IndexTable returns a reader over the word index. The caller must close it.
func (r *Reader) IndexTable() (*IndexTableReader, error) {
	h := r.h.dup()
	t, err := newTableReader(h, r.header.IndexOffset(), r.header.IndexSize)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("opening word index: %w", err)
	}
	return &IndexTableReader{table: t}, nil
}

// Close releases the Reader's own reference. Table readers handed out
// earlier stay usable until they are closed.
func (r *Reader) Close() error {
	return r.h.Close()
}
