// Package storage keeps attachment blobs on a filesystem rooted at the upload directory.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/spf13/afero"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrInvalidPath  = errors.New("invalid blob path")
)

// Blob is an open stored object
type Blob interface {
	io.ReadSeekCloser
	Size() int64
}

type BlobStoreInterface interface {
	Put(blobPath string, r io.Reader) (int64, error)
	Open(blobPath string) (Blob, error)
	Delete(blobPath string) error
	Exists(blobPath string) (bool, error)
}

type BlobStore struct {
	fs afero.Fs
}

// NewFileBlobStore creates a store rooted at dir on the local disk
func NewFileBlobStore(dir string) (*BlobStore, error) {
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &BlobStore{fs: afero.NewBasePathFs(osFs, dir)}, nil
}

// NewBlobStore wraps an arbitrary afero filesystem
func NewBlobStore(fs afero.Fs) *BlobStore {
	return &BlobStore{fs: fs}
}

func cleanPath(blobPath string) (string, error) {
	if blobPath == "" || strings.Contains(blobPath, "..") || strings.HasPrefix(blobPath, "/") {
		return "", ErrInvalidPath
	}
	return path.Clean(blobPath), nil
}

func (s *BlobStore) Put(blobPath string, r io.Reader) (int64, error) {
	p, err := cleanPath(blobPath)
	if err != nil {
		return 0, err
	}

	if dir := path.Dir(p); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return 0, err
		}
	}

	f, err := s.fs.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, err
	}

	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		_ = s.fs.Remove(p)
		return 0, errors.Join(copyErr, closeErr)
	}
	return n, nil
}

type fileBlob struct {
	afero.File
	size int64
}

func (b *fileBlob) Size() int64 { return b.size }

func (s *BlobStore) Open(blobPath string) (Blob, error) {
	p, err := cleanPath(blobPath)
	if err != nil {
		return nil, err
	}

	f, err := s.fs.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &fileBlob{File: f, size: info.Size()}, nil
}

// Delete removes a blob. A blob that is already gone reports ErrBlobNotFound.
func (s *BlobStore) Delete(blobPath string) error {
	p, err := cleanPath(blobPath)
	if err != nil {
		return err
	}

	exists, err := afero.Exists(s.fs, p)
	if err != nil {
		return err
	}
	if !exists {
		return ErrBlobNotFound
	}
	if err := s.fs.Remove(p); err != nil {
		return err
	}

	// Drop the per-task directory once it is empty.
	if dir := path.Dir(p); dir != "." {
		if empty, err := afero.IsEmpty(s.fs, dir); err == nil && empty {
			_ = s.fs.Remove(dir)
		}
	}
	return nil
}

func (s *BlobStore) Exists(blobPath string) (bool, error) {
	p, err := cleanPath(blobPath)
	if err != nil {
		return false, err
	}
	return afero.Exists(s.fs, p)
}
