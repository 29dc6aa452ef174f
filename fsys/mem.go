// Copyright 2025 Jan Gosmann
// SPDX-License-Identifier: Apache-2.0

package fsys

import (
	"bytes"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// memNode is one entry in the in-memory filesystem tree. Grounded in
// original_source/fridge/memoryfs.py's MemoryFS/MemoryFile split: a tree
// of nodes carries directory structure, each leaf carries its own bytes
// and status independent of any real inode.
type memNode struct {
	mode     os.FileMode // includes type bits (dir/symlink) plus permissions
	content  []byte      // regular files
	target   string      // symlinks
	children map[string]*memNode
	size     int64
	atime    time.Time
	mtime    time.Time
}

func newDirNode() *memNode {
	return &memNode{mode: os.ModeDir | 0o777, children: make(map[string]*memNode)}
}

// Mem is an in-memory FS adapter used by the test suites of cas, core,
// and fridge so they never touch the real disk.
type Mem struct {
	mu   sync.Mutex
	root *memNode
}

var _ FS = (*Mem)(nil)

// NewMem returns an empty in-memory filesystem rooted at "/".
func NewMem() *Mem {
	return &Mem{root: newDirNode()}
}

func splitPath(p string) []string {
	p = path.Clean("/" + filepathToSlash(p))
	if p == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(p, "/"), "/")
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

func (m *Mem) lookup(parts []string) (*memNode, error) {
	node := m.root
	for i, part := range parts {
		if node.mode&os.ModeDir == 0 {
			return nil, &fs.PathError{Op: "open", Path: strings.Join(parts[:i], "/"), Err: notADirErr}
		}
		child, ok := node.children[part]
		if !ok {
			return nil, fs.ErrNotExist
		}
		node = child
	}
	return node, nil
}

func (m *Mem) lookupParent(parts []string) (*memNode, string, error) {
	if len(parts) == 0 {
		return nil, "", fs.ErrInvalid
	}
	parent, err := m.lookup(parts[:len(parts)-1])
	if err != nil {
		return nil, "", err
	}
	return parent, parts[len(parts)-1], nil
}

var notADirErr = fs.ErrInvalid

func (m *Mem) Mkdir(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	parts := splitPath(p)
	parent, name, err := m.lookupParent(parts)
	if err != nil {
		return &fs.PathError{Op: "mkdir", Path: p, Err: err}
	}
	if _, exists := parent.children[name]; exists {
		return &fs.PathError{Op: "mkdir", Path: p, Err: fs.ErrExist}
	}
	parent.children[name] = newDirNode()
	return nil
}

func (m *Mem) MakeDirs(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node := m.root
	for _, part := range splitPath(p) {
		child, ok := node.children[part]
		if !ok {
			child = newDirNode()
			node.children[part] = child
		} else if child.mode&os.ModeDir == 0 {
			return &fs.PathError{Op: "makedirs", Path: p, Err: notADirErr}
		}
		node = child
	}
	return nil
}

type memFile struct {
	node     *memNode
	buf      *bytes.Buffer
	readable bool
	writable bool
}

func (f *memFile) Read(p []byte) (int, error) {
	if !f.readable {
		return 0, fs.ErrInvalid
	}
	return f.buf.Read(p)
}

func (f *memFile) Write(p []byte) (int, error) {
	if !f.writable {
		return 0, fs.ErrInvalid
	}
	return f.buf.Write(p)
}

func (f *memFile) Close() error {
	if f.writable {
		f.node.content = append([]byte(nil), f.buf.Bytes()...)
		f.node.size = int64(len(f.node.content))
		f.node.mtime = time.Now()
		f.node.atime = f.node.mtime
	}
	return nil
}

func (m *Mem) Open(p string, flag int, perm os.FileMode) (File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	parts := splitPath(p)
	parent, name, err := m.lookupParent(parts)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: p, Err: err}
	}

	node, exists := parent.children[name]
	wantsWrite := flag&(os.O_WRONLY|os.O_RDWR) != 0

	if !exists {
		if flag&os.O_CREATE == 0 {
			return nil, &fs.PathError{Op: "open", Path: p, Err: fs.ErrNotExist}
		}
		node = &memNode{mode: perm}
		parent.children[name] = node
	} else if wantsWrite && node.mode&0o200 == 0 {
		return nil, &fs.PathError{Op: "open", Path: p, Err: fs.ErrPermission}
	}

	buf := &bytes.Buffer{}
	if flag&os.O_TRUNC == 0 {
		buf.Write(node.content)
	}

	return &memFile{
		node:     node,
		buf:      buf,
		readable: flag&os.O_WRONLY == 0,
		writable: wantsWrite,
	}, nil
}

func (m *Mem) Rename(src, dst string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	srcParts := splitPath(src)
	srcParent, srcName, err := m.lookupParent(srcParts)
	if err != nil {
		return &fs.PathError{Op: "rename", Path: src, Err: err}
	}
	node, exists := srcParent.children[srcName]
	if !exists {
		return &fs.PathError{Op: "rename", Path: src, Err: fs.ErrNotExist}
	}

	dstParts := splitPath(dst)
	dstParent, dstName, err := m.lookupParent(dstParts)
	if err != nil {
		return &fs.PathError{Op: "rename", Path: dst, Err: err}
	}
	if _, exists := dstParent.children[dstName]; exists {
		return &fs.PathError{Op: "rename", Path: dst, Err: fs.ErrExist}
	}

	delete(srcParent.children, srcName)
	dstParent.children[dstName] = node
	return nil
}

func (m *Mem) Remove(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	parts := splitPath(p)
	parent, name, err := m.lookupParent(parts)
	if err != nil {
		return &fs.PathError{Op: "unlink", Path: p, Err: err}
	}
	if _, exists := parent.children[name]; !exists {
		return &fs.PathError{Op: "unlink", Path: p, Err: fs.ErrNotExist}
	}
	delete(parent.children, name)
	return nil
}

func (m *Mem) Chmod(p string, mode os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, err := m.lookup(splitPath(p))
	if err != nil {
		return &fs.PathError{Op: "chmod", Path: p, Err: err}
	}
	node.mode = (node.mode &^ os.ModePerm) | (mode & os.ModePerm)
	return nil
}

func (m *Mem) Utime(p string, atime, mtime time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, err := m.lookup(splitPath(p))
	if err != nil {
		return &fs.PathError{Op: "utime", Path: p, Err: err}
	}
	node.atime = atime
	node.mtime = mtime
	return nil
}

func (m *Mem) Stat(p string) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, err := m.lookup(splitPath(p))
	if err != nil {
		return Info{}, &fs.PathError{Op: "stat", Path: p, Err: err}
	}
	size := node.size
	if node.mode&os.ModeDir != 0 {
		size = 0
	} else if node.mode&os.ModeSymlink != 0 {
		size = int64(len(node.target))
	}
	return Info{Mode: node.mode, Size: size, Atime: node.atime, Mtime: node.mtime}, nil
}

func (m *Mem) StatVFS(string) (int64, bool) {
	return 0, false
}

func (m *Mem) Exists(p string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.lookup(splitPath(p))
	return err == nil
}

func (m *Mem) SameFile(a, b string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	nodeA, err := m.lookup(splitPath(a))
	if err != nil {
		return false, &fs.PathError{Op: "stat", Path: a, Err: err}
	}
	nodeB, err := m.lookup(splitPath(b))
	if err != nil {
		return false, &fs.PathError{Op: "stat", Path: b, Err: err}
	}
	return nodeA == nodeB, nil
}

func (m *Mem) Copy(src, dst string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	srcNode, err := m.lookup(splitPath(src))
	if err != nil {
		return &fs.PathError{Op: "copy", Path: src, Err: err}
	}

	dstParts := splitPath(dst)
	dstParent, dstName, err := m.lookupParent(dstParts)
	if err != nil {
		return &fs.PathError{Op: "copy", Path: dst, Err: err}
	}

	content := append([]byte(nil), srcNode.content...)
	dstParent.children[dstName] = &memNode{
		mode:    0o666,
		content: content,
		size:    int64(len(content)),
		mtime:   time.Now(),
		atime:   time.Now(),
	}
	return nil
}

func (m *Mem) Symlink(target, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	parts := splitPath(link)
	parent, name, err := m.lookupParent(parts)
	if err != nil {
		return &fs.PathError{Op: "symlink", Path: link, Err: err}
	}
	if _, exists := parent.children[name]; exists {
		return &fs.PathError{Op: "symlink", Path: link, Err: fs.ErrExist}
	}
	now := time.Now()
	parent.children[name] = &memNode{
		mode:   os.ModeSymlink | 0o777,
		target: target,
		atime:  now,
		mtime:  now,
	}
	return nil
}

func (m *Mem) Walk(p string, fn WalkFunc) error {
	m.mu.Lock()
	node, err := m.lookup(splitPath(p))
	m.mu.Unlock()
	if err != nil {
		return &fs.PathError{Op: "walk", Path: p, Err: err}
	}
	return m.walk(p, node, fn)
}

func (m *Mem) walk(dir string, node *memNode, fn WalkFunc) error {
	m.mu.Lock()
	var subdirs, files []string
	for name, child := range node.children {
		if child.mode&os.ModeDir != 0 {
			subdirs = append(subdirs, name)
		} else {
			files = append(files, name)
		}
	}
	m.mu.Unlock()
	sort.Strings(subdirs)
	sort.Strings(files)

	if err := fn(dir, &subdirs, files); err != nil {
		return err
	}

	for _, name := range subdirs {
		m.mu.Lock()
		child := node.children[name]
		m.mu.Unlock()
		if child == nil {
			continue
		}
		if err := m.walk(path.Join(dir, name), child, fn); err != nil {
			return err
		}
	}
	return nil
}
