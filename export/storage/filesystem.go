// Package storage places finalized artifacts into managed storage and
// resolves them back for download.
package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/casdoor/oss"
	"github.com/pkg/errors"
)

// FileSystem is the managed storage interface. The local implementation is
// the only one wired in; the object shape follows casdoor/oss so a bucket
// backend can slot in behind the same contract.
type FileSystem interface {
	GetFullPath(p string) string
	Get(p string) (*os.File, error)
	GetStream(p string) (io.ReadCloser, error)
	Put(p string, r io.Reader) (*oss.Object, error)
	Delete(p string) error
	List(p string) ([]*oss.Object, error)
}

// LocalFileSystem implements FileSystem on the local disk.
type LocalFileSystem struct {
	Folder string
}

// NewFileSystem creates a local file system storage rooted at folder,
// creating it when absent.
func NewFileSystem(folder string) (*LocalFileSystem, error) {
	abs, err := filepath.Abs(folder)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve storage folder")
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create storage folder")
	}
	return &LocalFileSystem{Folder: abs}, nil
}

// GetFullPath returns the full path from an absolute / relative path.
func (fs *LocalFileSystem) GetFullPath(p string) string {
	fp := p
	if !strings.HasPrefix(p, fs.Folder) {
		fp, _ = filepath.Abs(filepath.Join(fs.Folder, p))
	}
	return fp
}

// Get receives a file with the given path.
func (fs *LocalFileSystem) Get(p string) (*os.File, error) {
	return os.Open(fs.GetFullPath(p))
}

// GetStream gets a file as a stream.
func (fs *LocalFileSystem) GetStream(p string) (io.ReadCloser, error) {
	return os.Open(fs.GetFullPath(p))
}

// Put stores the reader into the given path.
func (fs *LocalFileSystem) Put(p string, r io.Reader) (*oss.Object, error) {
	fp := fs.GetFullPath(p)
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create directories for file path")
	}

	dst, err := os.Create(fp)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file")
	}
	defer dst.Close()

	if _, err = io.Copy(dst, r); err != nil {
		return nil, errors.Wrap(err, "failed to copy data to file")
	}

	return &oss.Object{Path: p, Name: filepath.Base(p), StorageInterface: fs}, nil
}

// Delete removes the file with the given path.
func (fs *LocalFileSystem) Delete(p string) error {
	return os.Remove(fs.GetFullPath(p))
}

// List lists all objects under the given path prefix.
func (fs *LocalFileSystem) List(p string) ([]*oss.Object, error) {
	matches, err := filepath.Glob(fs.GetFullPath(p) + "*")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list storage folder")
	}

	var objects []*oss.Object
	for _, match := range matches {
		rel, err := filepath.Rel(fs.Folder, match)
		if err != nil {
			continue
		}
		objects = append(objects, &oss.Object{Path: rel, Name: filepath.Base(match), StorageInterface: fs})
	}
	return objects, nil
}

// GetEndpoint returns the storage root.
func (fs *LocalFileSystem) GetEndpoint() string {
	return fs.Folder
}

// GetURL returns the full path as the URL for local storage.
func (fs *LocalFileSystem) GetURL(p string) (string, error) {
	return fs.GetFullPath(p), nil
}
