// Package store keeps attachment files next to the results they belong to.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

var ErrInvalidName = errors.New("invalid attachment name")

// Store persists attachment bodies under flat, unique names.
type Store interface {
	Put(ctx context.Context, name string, r io.Reader) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Remove(ctx context.Context, name string) error
	Dir() string
}

var _ Store = (*FS)(nil)

// FS is a Store backed by a local directory.
type FS struct {
	fsys fs.FS
	dir  string
}

// NewFS returns a store rooted at dir, creating it when missing.
func NewFS(dir string) (*FS, error) {
	if err := mkdir(dir); err != nil {
		return nil, err
	}

	return &FS{fsys: os.DirFS(dir), dir: dir}, nil
}

func (s *FS) Dir() string {
	return s.dir
}

func (s *FS) Put(ctx context.Context, name string, r io.Reader) (err error) {
	// Check if the context is done to return early.
	if err = ctx.Err(); err != nil {
		return err
	}

	// Names are flat, they never leave the results directory.
	if err = validName(name); err != nil {
		return err
	}

	// Open the file for writing.
	file, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("os.OpenFile: %w", err)
	}

	// Close the file after the body is written.
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("file Close: %w", closeErr)
		}
	}()

	// Write the attachment body to the file.
	if _, err = io.Copy(file, r); err != nil {
		return fmt.Errorf("io.Copy: %w", err)
	}

	// Sync the file to disk to ensure the data is actually written.
	if err = file.Sync(); err != nil {
		return fmt.Errorf("file Sync: %w", err)
	}

	return nil
}

// Open returns the stored body. A missing file wraps fs.ErrNotExist.
func (s *FS) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	// Return an error if the context is canceled.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := validName(name); err != nil {
		return nil, err
	}

	// Read through the rooted file system, not the raw path.
	file, err := s.fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("store Open: %w", err)
	}

	return file, nil
}

func (s *FS) Remove(ctx context.Context, name string) error {
	// Return an error if the context is canceled.
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := validName(name); err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("os.Remove: %w", err)
	}

	return nil
}

func validName(name string) error {
	if name == "" || name == "." || filepath.Base(name) != name || !fs.ValidPath(name) {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}

	return nil
}

// mkdir checks if the provided path exists and creates it if it does not.
func mkdir(pth string) error {
	if _, err := os.Stat(pth); os.IsNotExist(err) {
		if err = os.MkdirAll(pth, os.ModePerm); err != nil {
			return fmt.Errorf("os.MkdirAll: %w", err)
		}
	}

	return nil
}
