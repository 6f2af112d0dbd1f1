// Package fs abstracts the file operations behind atomic local writes so
// that tests can inject I/O failures.
//
// Production code uses fs.Default. Tests wrap it in a FaultyFS:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.Inject("vectors.hnsw", fs.Fault{Op: fs.OpWrite, After: 1024})
package fs
