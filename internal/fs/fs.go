package fs

import (
	"io"
	"os"
)

// File is a temporary file that is written, synced and closed before it
// is renamed over its destination.
type File interface {
	io.WriteCloser
	Name() string
	Sync() error
}

// FileSystem is the subset of package os that LocalStore needs to publish
// a saved index atomically.
type FileSystem interface {
	CreateTemp(dir, pattern string) (File, error)
	Rename(oldpath, newpath string) error
	Remove(name string) error
	MkdirAll(path string, perm os.FileMode) error
}

// OS is the FileSystem backed by package os.
type OS struct{}

func (OS) CreateTemp(dir, pattern string) (File, error) { return os.CreateTemp(dir, pattern) }

func (OS) Rename(oldpath, newpath string) error { return os.Rename(oldpath, newpath) }

func (OS) Remove(name string) error { return os.Remove(name) }

func (OS) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }

// Default is used by NewLocalStore.
var Default FileSystem = OS{}
