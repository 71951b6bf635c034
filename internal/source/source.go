// Package source enumerates candidate files below a chosen root.
package source

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// FileRef is a handle on one file: a display name and a whole-file read.
type FileRef interface {
	Name() string
	Read(ctx context.Context) ([]byte, error)
}

// FileSource is a one-shot sequence of FileRefs. Next returns io.EOF once
// the sequence is exhausted.
type FileSource interface {
	Next(ctx context.Context) (FileRef, error)
}

// Directory is a root the operator picked. Each Walk starts a new sequence.
type Directory interface {
	Name() string
	Walk(ctx context.Context) FileSource
}

// FSDirectory walks an fs.FS depth-first in lexical order, yielding every
// regular file.
type FSDirectory struct {
	name string
	fsys fs.FS
}

// Dir returns the Directory rooted at a local path.
func Dir(path string) *FSDirectory {
	return &FSDirectory{name: path, fsys: os.DirFS(path)}
}

// FromFS wraps an arbitrary file system.
func FromFS(name string, fsys fs.FS) *FSDirectory {
	return &FSDirectory{name: name, fsys: fsys}
}

func (d *FSDirectory) Name() string { return d.name }

type walkItem struct {
	ref FileRef
	err error
}

// Walk starts enumeration in the background. The walker stops when ctx is
// cancelled.
func (d *FSDirectory) Walk(ctx context.Context) FileSource {
	items := make(chan walkItem)
	go func() {
		defer close(items)
		err := fs.WalkDir(d.fsys, ".", func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !entry.Type().IsRegular() {
				return nil
			}
			select {
			case items <- walkItem{ref: &fileRef{fsys: d.fsys, path: path}}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil && ctx.Err() == nil {
			select {
			case items <- walkItem{err: fmt.Errorf("enumerate %s: %w", d.name, err)}:
			case <-ctx.Done():
			}
		}
	}()
	return &walker{items: items}
}

type walker struct {
	items <-chan walkItem
	err   error
}

func (w *walker) Next(ctx context.Context) (FileRef, error) {
	if w.err != nil {
		return nil, w.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case item, ok := <-w.items:
		if !ok {
			w.err = io.EOF
			return nil, io.EOF
		}
		if item.err != nil {
			w.err = item.err
			return nil, item.err
		}
		return item.ref, nil
	}
}

type fileRef struct {
	fsys fs.FS
	path string
}

func (f *fileRef) Name() string { return f.path }

func (f *fileRef) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(f.fsys, f.path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

// Bytes is an in-memory FileRef.
type Bytes struct {
	Path string
	Data []byte
	Err  error
}

func (b Bytes) Name() string { return b.Path }

func (b Bytes) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.Err != nil {
		return nil, b.Err
	}
	return b.Data, nil
}

// Slice is a FileSource over a fixed list, optionally ending with Err
// instead of io.EOF.
type Slice struct {
	Refs []FileRef
	Err  error
	pos  int
}

func (s *Slice) Next(ctx context.Context) (FileRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos < len(s.Refs) {
		s.pos++
		return s.Refs[s.pos-1], nil
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return nil, io.EOF
}
