package fs

import (
	"errors"
	"os"
	"strings"
	"sync"
)

// ErrInjected is returned by faults that carry no error of their own.
var ErrInjected = errors.New("fs: injected fault")

// Op is a file operation a Fault can break.
type Op int

const (
	OpWrite Op = iota
	OpSync
	OpClose
	OpRename
)

// Fault breaks one operation on files whose name contains a pattern.
type Fault struct {
	Op Op
	// After lets OpWrite pass this many bytes before failing.
	After int64
	// Err defaults to ErrInjected.
	Err error
}

func (f Fault) error() error {
	if f.Err != nil {
		return f.Err
	}
	return ErrInjected
}

// FaultyFS wraps a FileSystem and fails the operations named by its
// faults. It lets tests prove that a failed save never publishes a file.
type FaultyFS struct {
	fs FileSystem

	mu     sync.Mutex
	faults map[string][]Fault
}

// NewFaultyFS wraps fsys, or Default when fsys is nil.
func NewFaultyFS(fsys FileSystem) *FaultyFS {
	if fsys == nil {
		fsys = Default
	}
	return &FaultyFS{fs: fsys, faults: make(map[string][]Fault)}
}

// Inject adds a fault for every file whose name contains pattern.
func (f *FaultyFS) Inject(pattern string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[pattern] = append(f.faults[pattern], fault)
}

// lookup returns the fault for op on name, if any.
func (f *FaultyFS) lookup(name string, op Op) (Fault, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for pattern, faults := range f.faults {
		if !strings.Contains(name, pattern) {
			continue
		}
		for _, fault := range faults {
			if fault.Op == op {
				return fault, true
			}
		}
	}
	return Fault{}, false
}

func (f *FaultyFS) CreateTemp(dir, pattern string) (File, error) {
	file, err := f.fs.CreateTemp(dir, pattern)
	if err != nil {
		return nil, err
	}
	return &faultyFile{File: file, fsys: f, pattern: pattern}, nil
}

func (f *FaultyFS) Rename(oldpath, newpath string) error {
	if fault, ok := f.lookup(newpath, OpRename); ok {
		return fault.error()
	}
	return f.fs.Rename(oldpath, newpath)
}

func (f *FaultyFS) Remove(name string) error { return f.fs.Remove(name) }

func (f *FaultyFS) MkdirAll(path string, perm os.FileMode) error {
	return f.fs.MkdirAll(path, perm)
}

// faultyFile matches faults against the CreateTemp pattern, which holds
// the destination name, rather than the randomized temp name.
type faultyFile struct {
	File
	fsys    *FaultyFS
	pattern string
	written int64
}

func (ff *faultyFile) Write(p []byte) (int, error) {
	if fault, ok := ff.fsys.lookup(ff.pattern, OpWrite); ok && ff.written+int64(len(p)) > fault.After {
		return 0, fault.error()
	}
	n, err := ff.File.Write(p)
	ff.written += int64(n)
	return n, err
}

func (ff *faultyFile) Sync() error {
	if fault, ok := ff.fsys.lookup(ff.pattern, OpSync); ok {
		return fault.error()
	}
	return ff.File.Sync()
}

// Close always closes the underlying file so the test can clean up.
func (ff *faultyFile) Close() error {
	err := ff.File.Close()
	if fault, ok := ff.fsys.lookup(ff.pattern, OpClose); ok {
		return fault.error()
	}
	return err
}
