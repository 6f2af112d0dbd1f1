package persistence

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// BinaryWriter writes little-endian primitives to a file body while
// checksumming them together with the file header. Errors are sticky and
// reported by Finish.
type BinaryWriter struct {
	buf     *bufio.Writer
	cw      *ChecksumWriter
	scratch [8]byte
	err     error
}

// NewBinaryWriter creates a body writer on top of w. The trailer also
// covers header, which must already carry its final values. A nil header
// checksums the body alone.
func NewBinaryWriter(w io.Writer, header *FileHeader) *BinaryWriter {
	buf := bufio.NewWriterSize(w, 64*1024)
	bw := &BinaryWriter{
		buf: buf,
		cw:  NewChecksumWriter(buf),
	}
	if header != nil {
		b, err := header.MarshalBinary()
		bw.err = err
		bw.cw.Absorb(b)
	}
	return bw
}

func (bw *BinaryWriter) write(p []byte) {
	if bw.err != nil {
		return
	}
	_, bw.err = bw.cw.Write(p)
}

// WriteUint32 writes v.
func (bw *BinaryWriter) WriteUint32(v uint32) {
	binary.LittleEndian.PutUint32(bw.scratch[:4], v)
	bw.write(bw.scratch[:4])
}

// WriteUint64 writes v.
func (bw *BinaryWriter) WriteUint64(v uint64) {
	binary.LittleEndian.PutUint64(bw.scratch[:8], v)
	bw.write(bw.scratch[:8])
}

// WriteFloat32s writes every element of vec.
func (bw *BinaryWriter) WriteFloat32s(vec []float32) {
	for _, f := range vec {
		bw.WriteUint32(math.Float32bits(f))
	}
}

// WriteUint32s writes every element of s.
func (bw *BinaryWriter) WriteUint32s(s []uint32) {
	for _, v := range s {
		bw.WriteUint32(v)
	}
}

// Finish appends the checksum trailer and flushes.
func (bw *BinaryWriter) Finish() error {
	if bw.err != nil {
		return bw.err
	}
	binary.LittleEndian.PutUint32(bw.scratch[:4], bw.cw.Sum())
	if _, err := bw.buf.Write(bw.scratch[:4]); err != nil {
		return err
	}
	return bw.buf.Flush()
}

// BinaryReader is the counterpart of BinaryWriter. Errors are sticky; short
// reads surface as ErrTruncated.
type BinaryReader struct {
	buf     *bufio.Reader
	cr      *ChecksumReader
	scratch [8]byte
	err     error
}

// NewBinaryReader creates a body reader on top of r whose trailer covers
// header as written by NewBinaryWriter.
func NewBinaryReader(r io.Reader, header *FileHeader) *BinaryReader {
	buf := bufio.NewReaderSize(r, 64*1024)
	br := &BinaryReader{
		buf: buf,
		cr:  NewChecksumReader(buf),
	}
	if header != nil {
		b, err := header.MarshalBinary()
		br.err = err
		br.cr.Absorb(b)
	}
	return br
}

func (br *BinaryReader) read(p []byte) bool {
	if br.err != nil {
		return false
	}
	if _, err := io.ReadFull(br.cr, p); err != nil {
		br.err = wrapRead(err)
		return false
	}
	return true
}

// ReadUint32 reads a uint32. It returns 0 once an error occurred.
func (br *BinaryReader) ReadUint32() uint32 {
	if !br.read(br.scratch[:4]) {
		return 0
	}
	return binary.LittleEndian.Uint32(br.scratch[:4])
}

// ReadUint64 reads a uint64. It returns 0 once an error occurred.
func (br *BinaryReader) ReadUint64() uint64 {
	if !br.read(br.scratch[:8]) {
		return 0
	}
	return binary.LittleEndian.Uint64(br.scratch[:8])
}

// ReadFloat32s fills dst.
func (br *BinaryReader) ReadFloat32s(dst []float32) {
	for i := range dst {
		dst[i] = math.Float32frombits(br.ReadUint32())
	}
}

// ReadUint32s fills dst.
func (br *BinaryReader) ReadUint32s(dst []uint32) {
	for i := range dst {
		dst[i] = br.ReadUint32()
	}
}

// Err returns the first error encountered.
func (br *BinaryReader) Err() error { return br.err }

// Finish verifies the checksum trailer and that no data follows it.
func (br *BinaryReader) Finish() error {
	if br.err != nil {
		return br.err
	}
	if _, err := io.ReadFull(br.buf, br.scratch[:4]); err != nil {
		return wrapRead(err)
	}
	if err := br.cr.Verify(binary.LittleEndian.Uint32(br.scratch[:4])); err != nil {
		return err
	}
	if _, err := br.buf.ReadByte(); !errors.Is(err, io.EOF) {
		if err != nil {
			return wrapRead(err)
		}
		return ErrTrailingData
	}
	return nil
}

// Corruptf formats a decoding failure that wraps ErrCorrupt.
func Corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}
