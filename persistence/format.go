package persistence

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// MagicNumber identifies index files. On disk it reads "HNSW".
	MagicNumber = 0x57534E48
	// Version is the current file format version.
	Version = 1

	// HeaderSize is the encoded size of FileHeader.
	HeaderSize = 64
)

var (
	// ErrCorrupt is wrapped by every decoding failure.
	ErrCorrupt = errors.New("persistence: corrupt index data")

	ErrInvalidMagic   = fmt.Errorf("%w: invalid magic number", ErrCorrupt)
	ErrInvalidVersion = fmt.Errorf("%w: unsupported version", ErrCorrupt)
	ErrInvalidFlags   = fmt.Errorf("%w: unknown flags", ErrCorrupt)
	ErrTruncated      = fmt.Errorf("%w: truncated data", ErrCorrupt)
	ErrTrailingData   = fmt.Errorf("%w: trailing data", ErrCorrupt)
)

// FileHeader is the 64-byte header at the start of every index file.
type FileHeader struct {
	Magic          uint32 // MagicNumber
	Version        uint32
	Flags          uint16 // low byte: Compression
	Metric         uint8
	Reserved       uint8
	Dimension      uint32
	M              uint32
	EFConstruction uint32
	Capacity       uint64 // MaxElements at save time, informational
	Count          uint64 // number of stored vectors
	EntryPoint     uint32
	MaxLevel       int32 // -1 for an empty graph
	LabelBase      uint64
	NextAutoLabel  uint64
}

const compressionMask = 0x00FF

// Compression returns the body compression selected by the flags.
func (h *FileHeader) Compression() Compression {
	return Compression(h.Flags & compressionMask)
}

// MarshalBinary returns the on-disk encoding of the header.
func (h *FileHeader) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(HeaderSize)
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteHeader stamps magic and version into header and writes it.
func WriteHeader(w io.Writer, header *FileHeader) error {
	header.Magic = MagicNumber
	header.Version = Version
	b, err := header.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// ReadHeader reads and validates a header.
func ReadHeader(r io.Reader) (*FileHeader, error) {
	var header FileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, wrapRead(err)
	}
	if header.Magic != MagicNumber {
		return nil, fmt.Errorf("%w: 0x%08x", ErrInvalidMagic, header.Magic)
	}
	if header.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, header.Version)
	}
	if header.Flags&^compressionMask != 0 || !header.Compression().Valid() {
		return nil, fmt.Errorf("%w: 0x%04x", ErrInvalidFlags, header.Flags)
	}
	return &header, nil
}

// wrapRead maps short reads to ErrTruncated and any other read failure,
// such as a broken compressed stream, to ErrCorrupt. The cause stays
// reachable through errors.Is.
func wrapRead(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	return fmt.Errorf("%w: %w", ErrCorrupt, err)
}
