// Copyright 2025 Jan Gosmann
// SPDX-License-Identifier: Apache-2.0

package fsys_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jgosmann/fridge/fsys"
)

// adapter bundles an FS under test with a fresh root directory to run
// against, so the same contract tests can run against OS (backed by a
// t.TempDir) and Mem (backed by an in-memory root).
type adapter struct {
	name string
	fs   fsys.FS
	root string
}

func adapters(t *testing.T) []adapter {
	mem := fsys.NewMem()
	if err := mem.MakeDirs("/root"); err != nil {
		t.Fatalf("MakeDirs: %v", err)
	}
	return []adapter{
		{name: "OS", fs: fsys.OS{}, root: t.TempDir()},
		{name: "Mem", fs: mem, root: "/root"},
	}
}

func join(root string, parts ...string) string {
	return filepath.Join(append([]string{root}, parts...)...)
}

func TestMakeDirsThenOpenCreate(t *testing.T) {
	for _, a := range adapters(t) {
		t.Run(a.name, func(t *testing.T) {
			dir := join(a.root, "a", "b")
			if err := a.fs.MakeDirs(dir); err != nil {
				t.Fatalf("MakeDirs: %v", err)
			}
			if !a.fs.Exists(dir) {
				t.Fatal("expected dir to exist")
			}

			p := join(dir, "f")
			f, err := a.fs.Open(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if _, err := f.Write([]byte("hello")); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if err := f.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			rf, err := a.fs.Open(p, os.O_RDONLY, 0)
			if err != nil {
				t.Fatalf("reopen: %v", err)
			}
			defer rf.Close()
			buf := make([]byte, 16)
			n, _ := rf.Read(buf)
			if string(buf[:n]) != "hello" {
				t.Fatalf("got %q, want hello", buf[:n])
			}
		})
	}
}

func TestRenameFailsIfDestExists(t *testing.T) {
	for _, a := range adapters(t) {
		t.Run(a.name, func(t *testing.T) {
			src, dst := join(a.root, "src"), join(a.root, "dst")
			mustWrite(t, a.fs, src, "src")
			mustWrite(t, a.fs, dst, "dst")

			err := a.fs.Rename(src, dst)
			if !errors.Is(err, fs.ErrExist) {
				t.Fatalf("got %v, want ErrExist", err)
			}
		})
	}
}

func TestRenameMovesContent(t *testing.T) {
	for _, a := range adapters(t) {
		t.Run(a.name, func(t *testing.T) {
			src, dst := join(a.root, "src"), join(a.root, "dst")
			mustWrite(t, a.fs, src, "content")

			if err := a.fs.Rename(src, dst); err != nil {
				t.Fatalf("Rename: %v", err)
			}
			if a.fs.Exists(src) {
				t.Fatal("expected src to be gone")
			}
			if got := mustRead(t, a.fs, dst); got != "content" {
				t.Fatalf("got %q, want content", got)
			}
		})
	}
}

func TestRemoveFailsIfMissing(t *testing.T) {
	for _, a := range adapters(t) {
		t.Run(a.name, func(t *testing.T) {
			err := a.fs.Remove(join(a.root, "missing"))
			if !errors.Is(err, fs.ErrNotExist) {
				t.Fatalf("got %v, want ErrNotExist", err)
			}
		})
	}
}

func TestChmodChangesPermissionsOnly(t *testing.T) {
	for _, a := range adapters(t) {
		t.Run(a.name, func(t *testing.T) {
			p := join(a.root, "f")
			mustWrite(t, a.fs, p, "x")

			if err := a.fs.Chmod(p, 0o444); err != nil {
				t.Fatalf("Chmod: %v", err)
			}
			info, err := a.fs.Stat(p)
			if err != nil {
				t.Fatalf("Stat: %v", err)
			}
			if info.Mode.Perm() != 0o444 {
				t.Fatalf("got mode %o, want 0444", info.Mode.Perm())
			}
		})
	}
}

func TestUtimeRoundTrip(t *testing.T) {
	for _, a := range adapters(t) {
		t.Run(a.name, func(t *testing.T) {
			p := join(a.root, "f")
			mustWrite(t, a.fs, p, "x")

			atime := time.Unix(1000, 0).UTC()
			mtime := time.Unix(2000, 0).UTC()
			if err := a.fs.Utime(p, atime, mtime); err != nil {
				t.Fatalf("Utime: %v", err)
			}
			info, err := a.fs.Stat(p)
			if err != nil {
				t.Fatalf("Stat: %v", err)
			}
			if !info.Mtime.Equal(mtime) {
				t.Fatalf("got mtime %v, want %v", info.Mtime, mtime)
			}
		})
	}
}

func TestSameFile(t *testing.T) {
	for _, a := range adapters(t) {
		t.Run(a.name, func(t *testing.T) {
			p := join(a.root, "f")
			mustWrite(t, a.fs, p, "x")

			same, err := a.fs.SameFile(p, p)
			if err != nil {
				t.Fatalf("SameFile: %v", err)
			}
			if !same {
				t.Fatal("expected a file to be SameFile as itself")
			}

			other := join(a.root, "g")
			mustWrite(t, a.fs, other, "x")
			same, err = a.fs.SameFile(p, other)
			if err != nil {
				t.Fatalf("SameFile: %v", err)
			}
			if same {
				t.Fatal("expected distinct files to not be SameFile")
			}
		})
	}
}

func TestCopyDuplicatesContentIndependently(t *testing.T) {
	for _, a := range adapters(t) {
		t.Run(a.name, func(t *testing.T) {
			src, dst := join(a.root, "src"), join(a.root, "dst")
			mustWrite(t, a.fs, src, "content")

			if err := a.fs.Copy(src, dst); err != nil {
				t.Fatalf("Copy: %v", err)
			}
			if got := mustRead(t, a.fs, dst); got != "content" {
				t.Fatalf("got %q, want content", got)
			}
			if !a.fs.Exists(src) {
				t.Fatal("expected src to remain after Copy")
			}
		})
	}
}

func TestSymlinkCreatesLink(t *testing.T) {
	for _, a := range adapters(t) {
		t.Run(a.name, func(t *testing.T) {
			target, link := join(a.root, "target"), join(a.root, "link")
			mustWrite(t, a.fs, target, "content")

			if err := a.fs.Symlink(target, link); err != nil {
				t.Fatalf("Symlink: %v", err)
			}
			if !a.fs.Exists(link) {
				t.Fatal("expected link to exist")
			}

			info, err := a.fs.Stat(link)
			if err != nil {
				t.Fatalf("Stat: %v", err)
			}
			if info.Mode&os.ModeSymlink == 0 {
				t.Fatalf("got mode %v, want ModeSymlink set", info.Mode)
			}

			same, err := a.fs.SameFile(link, target)
			if err != nil {
				t.Fatalf("SameFile: %v", err)
			}
			if same {
				t.Fatal("expected a symlink and its target to not be SameFile (Lstat semantics)")
			}

			var sawLink bool
			err = a.fs.Walk(a.root, func(dir string, subdirs *[]string, files []string) error {
				for _, f := range files {
					if f == "link" {
						sawLink = true
					}
				}
				return nil
			})
			if err != nil {
				t.Fatalf("Walk: %v", err)
			}
			if !sawLink {
				t.Fatal("expected Walk to list the symlink among files")
			}
		})
	}
}

func TestSymlinkFailsIfLinkExists(t *testing.T) {
	for _, a := range adapters(t) {
		t.Run(a.name, func(t *testing.T) {
			target, link := join(a.root, "target2"), join(a.root, "link2")
			mustWrite(t, a.fs, target, "content")
			mustWrite(t, a.fs, link, "already here")

			err := a.fs.Symlink(target, link)
			if !errors.Is(err, fs.ErrExist) {
				t.Fatalf("got %v, want ErrExist", err)
			}
		})
	}
}

func TestWalkVisitsFilesAndAllowsPruning(t *testing.T) {
	for _, a := range adapters(t) {
		t.Run(a.name, func(t *testing.T) {
			if err := a.fs.MakeDirs(join(a.root, "keep")); err != nil {
				t.Fatalf("MakeDirs: %v", err)
			}
			if err := a.fs.MakeDirs(join(a.root, "skip")); err != nil {
				t.Fatalf("MakeDirs: %v", err)
			}
			mustWrite(t, a.fs, join(a.root, "top"), "x")
			mustWrite(t, a.fs, join(a.root, "keep", "nested"), "y")
			mustWrite(t, a.fs, join(a.root, "skip", "nested"), "z")

			var visited []string
			err := a.fs.Walk(a.root, func(dir string, subdirs *[]string, files []string) error {
				if dir == a.root {
					pruned := (*subdirs)[:0]
					for _, name := range *subdirs {
						if name != "skip" {
							pruned = append(pruned, name)
						}
					}
					*subdirs = pruned
				}
				for _, f := range files {
					rel, err := filepath.Rel(a.root, filepath.Join(dir, f))
					if err != nil {
						return err
					}
					visited = append(visited, filepath.ToSlash(rel))
				}
				return nil
			})
			if err != nil {
				t.Fatalf("Walk: %v", err)
			}

			want := map[string]bool{"top": true, "keep/nested": true}
			if len(visited) != len(want) {
				t.Fatalf("visited %v, want exactly %v", visited, want)
			}
			for _, v := range visited {
				if !want[v] {
					t.Fatalf("unexpected visit %q", v)
				}
			}
		})
	}
}

func mustWrite(t *testing.T, f fsys.FS, path, content string) {
	t.Helper()
	h, err := f.Open(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	if _, err := h.Write([]byte(content)); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("close %s: %v", path, err)
	}
}

func mustRead(t *testing.T, f fsys.FS, path string) string {
	t.Helper()
	h, err := f.Open(path, os.O_RDONLY, 0)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer h.Close()
	buf := make([]byte, 64)
	n, _ := h.Read(buf)
	return string(buf[:n])
}
