// Package fileindex reads and writes index files.
//
// An index file is a 32-byte header followed by two serialized hash tables:
// the document table (document ID to filename) and the word index (word to a
// nested table of document ID to positions). All integers are big-endian and
// all offsets are absolute file offsets.
//
// Every table shares one layout:
//
//	bucketCount  u64
//	bucketCount × {chainLen u64, bucketOffset u64}   bucketOffset is 0 when chainLen is 0
//	for each non-empty bucket, at bucketOffset:
//	    chainLen × elementOffset u64
//	    chainLen elements
//
// The header is written last. Its magic number is the commit record: a file
// without it was never finished.
package fileindex

import (
	"encoding/binary"
	"math"
)

const (
	MagicNumber   uint32 = 0xCAFEF00D
	FormatVersion uint32 = 1
	HeaderSize           = 32

	// MaxNameLength bounds document names and words, whose lengths are
	// stored in two bytes.
	MaxNameLength = math.MaxUint16
)

const (
	tableHeaderSize  = 8
	bucketRecordSize = 16
	elementPosSize   = 8

	docElementHeaderSize      = 10 // docID u64, nameLen u16
	wordElementHeaderSize     = 10 // wordLen u16, nestedSize u64
	postingsElementHeaderSize = 16 // docID u64, count u64
	positionSize              = 4
)

type Header struct {
	Magic        uint32
	Version      uint32
	DocTableSize uint64
	IndexSize    uint64
	Checksum     uint32
}

func (h Header) DocTableOffset() uint64 {
	return HeaderSize
}

func (h Header) IndexOffset() uint64 {
	return HeaderSize + h.DocTableSize
}

func (h Header) FileSize() uint64 {
	return HeaderSize + h.DocTableSize + h.IndexSize
}

func (h Header) encode() []byte {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	binary.BigEndian.PutUint32(buf[4:8], h.Version)
	binary.BigEndian.PutUint64(buf[8:16], h.DocTableSize)
	binary.BigEndian.PutUint64(buf[16:24], h.IndexSize)
	binary.BigEndian.PutUint32(buf[24:28], h.Checksum)
	// buf[28:32] reserved, zero.
	return buf
}

func decodeHeader(buf []byte) Header {
	return Header{
		Magic:        binary.BigEndian.Uint32(buf[0:4]),
		Version:      binary.BigEndian.Uint32(buf[4:8]),
		DocTableSize: binary.BigEndian.Uint64(buf[8:16]),
		IndexSize:    binary.BigEndian.Uint64(buf[16:24]),
		Checksum:     binary.BigEndian.Uint32(buf[24:28]),
	}
}
