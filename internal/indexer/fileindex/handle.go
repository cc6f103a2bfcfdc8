package fileindex

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync/atomic"

	apperrors "github.com/Adithya-Monish-Kumar-K/filesearch/pkg/errors"
)

// handle is one reference to an open index file. Readers never share a
// cursor: every read names its offset. dup hands out another reference and
// the file is closed when the last reference is released.
type handle struct {
	file   *os.File
	path   string
	size   uint64
	refs   *atomic.Int64
	closed atomic.Bool
}

func openHandle(path string) (*handle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat index file: %w", err)
	}
	refs := new(atomic.Int64)
	refs.Store(1)
	return &handle{file: f, path: path, size: uint64(st.Size()), refs: refs}, nil
}

func (h *handle) dup() *handle {
	h.refs.Add(1)
	return &handle{file: h.file, path: h.path, size: h.size, refs: h.refs}
}

// Close releases this reference. It is safe to call more than once.
func (h *handle) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	if h.refs.Add(-1) == 0 {
		return h.file.Close()
	}
	return nil
}

func (h *handle) readAt(p []byte, off uint64) error {
	if off > h.size || uint64(len(p)) > h.size-off {
		return corruptf("%s: read of %d bytes at offset %d past end of file (%d bytes)", h.path, len(p), off, h.size)
	}
	if _, err := h.file.ReadAt(p, int64(off)); err != nil {
		return fmt.Errorf("%w: %s at offset %d: %w", apperrors.ErrIndexUnreadable, h.path, off, err)
	}
	return nil
}

func (h *handle) uint64At(off uint64) (uint64, error) {
	var buf [8]byte
	if err := h.readAt(buf[:], off); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperrors.ErrIndexCorrupt, fmt.Sprintf(format, args...))
}
