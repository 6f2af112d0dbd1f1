// Package mmap maps saved index files read-only so LocalStore can hand the
// decoder a reader over the page cache instead of a buffered file copy.
//
//	f, err := mmap.Open("vectors.hnsw")
//	if err != nil { ... }
//	defer f.Close()
//	r := io.NewSectionReader(f, 0, f.Size())
//
// Unix maps with mmap(2) and advises MADV_SEQUENTIAL. Windows maps with
// MapViewOfFile and gives no advice.
package mmap
