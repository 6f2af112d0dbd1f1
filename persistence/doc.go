// Package persistence provides the binary file format of HNSW indexes.
//
// A file is a fixed 64-byte little-endian FileHeader followed by a body. The
// body may be compressed as a single LZ4 or Zstandard stream, selected by the
// header flags. Inside the (decompressed) body the payload is followed by a
// CRC32-Castagnoli of the header bytes and the payload bytes, so a damaged
// header field is caught as well.
//
// Every decoding failure wraps ErrCorrupt.
package persistence
