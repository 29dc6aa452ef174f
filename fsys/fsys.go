// Copyright 2025 Jan Gosmann
// SPDX-License-Identifier: Apache-2.0

// Package fsys is a thin capability surface over filesystem access.
//
// Every layer above it (cas, core, fridge) talks to the filesystem only
// through this interface, so a real adapter (OS) and an in-memory adapter
// (Mem) can be swapped transparently. This mirrors the way the original
// implementation separated fridge.fs (real) from fridge.memoryfs (test
// double): the interface here is just that split made explicit at the
// type level.
package fsys

import (
	"io"
	"os"
	"time"
)

// File is the handle returned by Open. It is released deterministically
// by the caller via a deferred Close, never by a finalizer.
type File interface {
	io.Reader
	io.Writer
	io.Closer
}

// Info describes a filesystem entry's status, independent of the
// backing adapter.
type Info struct {
	Mode  os.FileMode
	Size  int64
	Atime time.Time
	Mtime time.Time
}

// IsDir reports whether the entry is a directory.
func (i Info) IsDir() bool {
	return i.Mode.IsDir()
}

// WalkFunc is called once per directory visited by Walk. dir is the path
// of the directory being visited, subdirs the names of its immediate
// child directories (sorted), and files the names of its immediate
// child regular files and symlinks (sorted). The callback may truncate
// or filter *subdirs in place to prune the walk: entries removed from
// *subdirs before WalkFunc returns are never visited.
type WalkFunc func(dir string, subdirs *[]string, files []string) error

// FS is the capability surface consumed by every higher layer.
type FS interface {
	// Mkdir creates a single directory. It fails if path already exists
	// or its parent does not.
	Mkdir(path string) error

	// MakeDirs creates path and any missing parents. It fails only if
	// path exists and is not a directory.
	MakeDirs(path string) error

	// Open opens path with the given os.O_* flags and permission bits
	// (used only when creating). The returned File must be closed by
	// the caller.
	Open(path string, flag int, perm os.FileMode) (File, error)

	// Rename atomically moves src to dst. It fails if dst exists.
	Rename(src, dst string) error

	// Remove deletes a file. It fails if path is missing.
	Remove(path string) error

	// Chmod replaces the permission bits of path, leaving type bits
	// untouched.
	Chmod(path string, mode os.FileMode) error

	// Utime sets the access and modification times of path.
	Utime(path string, atime, mtime time.Time) error

	// Stat returns path's mode, size, and times.
	Stat(path string) (Info, error)

	// StatVFS returns the preferred I/O block size for path's
	// filesystem. Adapters that cannot determine this return ok=false;
	// callers fall back to a 4096-byte buffer.
	StatVFS(path string) (blockSize int64, ok bool)

	// Exists reports whether path is present.
	Exists(path string) bool

	// SameFile reports whether a and b name the same underlying file.
	SameFile(a, b string) (bool, error)

	// Copy copies the content of src to dst. It does not preserve mode.
	Copy(src, dst string) error

	// Symlink creates link pointing at target.
	Symlink(target, link string) error

	// Walk lazily visits path and its descendants, topdown first so
	// that WalkFunc can prune before descent.
	Walk(path string, fn WalkFunc) error
}
