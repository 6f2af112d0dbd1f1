package hash

import "hash/crc32"

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// CRC32C returns the CRC32-Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, castagnoli)
}

// Digest is a running CRC32-Castagnoli that also counts the bytes fed to
// it. The zero value is an empty digest.
type Digest struct {
	crc uint32
	n   int64
}

// Write never fails.
func (d *Digest) Write(p []byte) (int, error) {
	d.crc = crc32.Update(d.crc, castagnoli, p)
	d.n += int64(len(p))
	return len(p), nil
}

// Sum32 returns the checksum of everything written so far.
func (d *Digest) Sum32() uint32 { return d.crc }

// Len returns the number of bytes written so far.
func (d *Digest) Len() int64 { return d.n }

// Reset empties the digest.
func (d *Digest) Reset() { *d = Digest{} }
