// Copyright 2025 Jan Gosmann
// SPDX-License-Identifier: Apache-2.0

package fsys

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// OS is the real-filesystem implementation of FS.
type OS struct{}

var _ FS = OS{}

func (OS) Mkdir(path string) error {
	if err := os.Mkdir(path, 0o777); err != nil {
		return wrapPathErr("mkdir", err)
	}
	return nil
}

func (OS) MakeDirs(path string) error {
	if err := os.MkdirAll(path, 0o777); err != nil {
		return wrapPathErr("makedirs", err)
	}
	return nil
}

func (OS) Open(path string, flag int, perm os.FileMode) (File, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return nil, wrapPathErr("open", err)
	}
	return f, nil
}

func (OS) Rename(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		return &fs.PathError{Op: "rename", Path: dst, Err: fs.ErrExist}
	}
	if err := os.Rename(src, dst); err != nil {
		return wrapPathErr("rename", err)
	}
	return nil
}

func (OS) Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return wrapPathErr("unlink", err)
	}
	return nil
}

func (OS) Chmod(path string, mode os.FileMode) error {
	if err := os.Chmod(path, mode); err != nil {
		return wrapPathErr("chmod", err)
	}
	return nil
}

func (OS) Utime(path string, atime, mtime time.Time) error {
	if err := os.Chtimes(path, atime, mtime); err != nil {
		return wrapPathErr("utime", err)
	}
	return nil
}

func (OS) Stat(path string) (Info, error) {
	st, err := os.Lstat(path)
	if err != nil {
		return Info{}, wrapPathErr("stat", err)
	}
	atime, mtime := statTimes(st)
	return Info{Mode: st.Mode(), Size: st.Size(), Atime: atime, Mtime: mtime}, nil
}

func (OS) StatVFS(path string) (int64, bool) {
	return statVFSBlockSize(path)
}

func (OS) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func (OS) SameFile(a, b string) (bool, error) {
	infoA, err := os.Lstat(a)
	if err != nil {
		return false, wrapPathErr("stat", err)
	}
	infoB, err := os.Lstat(b)
	if err != nil {
		return false, wrapPathErr("stat", err)
	}
	return os.SameFile(infoA, infoB), nil
}

func (OS) Copy(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return wrapPathErr("copy", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return wrapPathErr("copy", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return &fs.PathError{Op: "copy", Path: dst, Err: err}
	}
	return nil
}

func (OS) Symlink(target, link string) error {
	if err := os.Symlink(target, link); err != nil {
		return wrapPathErr("symlink", err)
	}
	return nil
}

func (OS) Walk(root string, fn WalkFunc) error {
	return walkOS(root, fn)
}

func walkOS(dir string, fn WalkFunc) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return wrapPathErr("walk", err)
	}

	var subdirs, files []string
	for _, e := range entries {
		if e.IsDir() {
			subdirs = append(subdirs, e.Name())
		} else {
			files = append(files, e.Name())
		}
	}
	sort.Strings(subdirs)
	sort.Strings(files)

	if err := fn(dir, &subdirs, files); err != nil {
		return err
	}

	for _, name := range subdirs {
		if err := walkOS(filepath.Join(dir, name), fn); err != nil {
			return err
		}
	}
	return nil
}

func wrapPathErr(op string, err error) error {
	var pe *fs.PathError
	if eerr, ok := err.(*fs.PathError); ok {
		pe = eerr
		pe.Op = op
		return pe
	}
	return &fs.PathError{Op: op, Path: "", Err: err}
}
