package persistence

import (
	"errors"
	"fmt"
	"io"

	ihash "github.com/hupe1980/hnswlib/internal/hash"
)

// The trailer detects torn or bit-flipped files, header included. It is not
// a tamper check.

// ChecksumWriter feeds every byte it passes on to w into a CRC32C digest.
type ChecksumWriter struct {
	w io.Writer
	d ihash.Digest
}

// NewChecksumWriter wraps w.
func NewChecksumWriter(w io.Writer) *ChecksumWriter {
	return &ChecksumWriter{w: w}
}

func (cw *ChecksumWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	_, _ = cw.d.Write(p[:n])
	return n, err
}

// Absorb adds p to the checksum without writing it.
func (cw *ChecksumWriter) Absorb(p []byte) { _, _ = cw.d.Write(p) }

// Sum returns the checksum of the bytes written so far.
func (cw *ChecksumWriter) Sum() uint32 { return cw.d.Sum32() }

// ChecksumReader is the reading side of ChecksumWriter.
type ChecksumReader struct {
	r io.Reader
	d ihash.Digest
}

// NewChecksumReader wraps r.
func NewChecksumReader(r io.Reader) *ChecksumReader {
	return &ChecksumReader{r: r}
}

func (cr *ChecksumReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	_, _ = cr.d.Write(p[:n])
	return n, err
}

// Absorb adds p, read elsewhere, to the checksum.
func (cr *ChecksumReader) Absorb(p []byte) { _, _ = cr.d.Write(p) }

// Sum returns the checksum of the bytes read so far.
func (cr *ChecksumReader) Sum() uint32 { return cr.d.Sum32() }

// Verify compares the running checksum with the stored trailer.
func (cr *ChecksumReader) Verify(stored uint32) error {
	if got := cr.d.Sum32(); got != stored {
		return &ChecksumMismatchError{Stored: stored, Computed: got, Bytes: cr.d.Len()}
	}
	return nil
}

// ChecksumMismatchError reports a file whose checksum differs from its
// trailer. Bytes counts the covered header and body bytes. It matches
// ErrCorrupt.
type ChecksumMismatchError struct {
	Stored   uint32
	Computed uint32
	Bytes    int64
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch over %d bytes: stored 0x%08x, computed 0x%08x",
		e.Bytes, e.Stored, e.Computed)
}

func (e *ChecksumMismatchError) Unwrap() error { return ErrCorrupt }

// IsChecksumMismatch reports whether err carries a *ChecksumMismatchError.
func IsChecksumMismatch(err error) bool {
	var target *ChecksumMismatchError
	return errors.As(err, &target)
}
