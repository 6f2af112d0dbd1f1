// Package hash computes the CRC32-Castagnoli trailer of index files.
//
// Go's hash/crc32 uses the SSE4.2 and ARMv8 CRC instructions for this
// polynomial where the CPU has them.
//
//	var d hash.Digest
//	d.Write(header)
//	d.Write(body)
//	trailer := d.Sum32()
package hash
