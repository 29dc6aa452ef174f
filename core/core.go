// Copyright 2025 Jan Gosmann
// SPDX-License-Identifier: Apache-2.0

// Package core implements FridgeCore: the three CAS namespaces (blobs,
// snapshots, commits), the HEAD pointer, and the branch directory that
// back a Fridge repository.
//
// Grounded in original_source/fridge/core.py's FridgeCore draft
// (add_blob/add_snapshot/set_head/get_head), generalized from that early
// two-CAS, no-commits sketch to the full commits+branches+reference
// model spec.md §4.4 requires.
package core

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jgosmann/fridge/cas"
	"github.com/jgosmann/fridge/fsys"
	"github.com/jgosmann/fridge/objects"
)

const fridgeDir = ".fridge"

// FridgeCore owns the three content-addressable namespaces and the
// HEAD/branch pointers of one repository rooted at path.
type FridgeCore struct {
	fs   fsys.FS
	path string

	blobs     *cas.CAS
	snapshots *cas.CAS
	commits   *cas.CAS
}

func (c *FridgeCore) fridgeRoot() string    { return filepath.Join(c.path, fridgeDir) }
func (c *FridgeCore) branchPath(n string) string {
	return filepath.Join(c.fridgeRoot(), "branches", n)
}
func (c *FridgeCore) headPath() string { return filepath.Join(c.fridgeRoot(), "head") }
func (c *FridgeCore) tmpPath() string  { return filepath.Join(c.fridgeRoot(), "tmp") }

func newCore(fs fsys.FS, path string) *FridgeCore {
	root := filepath.Join(path, fridgeDir)
	return &FridgeCore{
		fs:        fs,
		path:      path,
		blobs:     cas.New(filepath.Join(root, "blobs")),
		snapshots: cas.New(filepath.Join(root, "snapshots")),
		commits:   cas.New(filepath.Join(root, "commits")),
	}
}

// Init creates a fresh .fridge directory at path (creating path itself
// if it is missing), a master branch with no commit yet, and sets HEAD
// to branch:master. path must not already contain a .fridge directory.
func Init(fs fsys.FS, path string) (*FridgeCore, error) {
	c := newCore(fs, path)
	if err := fs.MakeDirs(path); err != nil {
		return nil, err
	}
	if err := fs.Mkdir(c.fridgeRoot()); err != nil {
		return nil, err
	}
	if err := fs.Mkdir(filepath.Join(c.fridgeRoot(), "branches")); err != nil {
		return nil, err
	}
	if err := c.SetBranch("master", ""); err != nil {
		return nil, err
	}
	if err := c.SetHead(objects.Reference{Kind: objects.ReferenceBranch, Value: "master"}); err != nil {
		return nil, err
	}
	return c, nil
}

// Open attaches to an existing repository at path. Callers check for a
// missing .fridge directory themselves (spec.md's NotInitialized kind is
// surfaced by the caller, fridge.Open, using fs.Exists).
func Open(fs fsys.FS, path string) (*FridgeCore, error) {
	return newCore(fs, path), nil
}

// AddBlob stores the file at path in the blobs CAS and returns its key.
func (c *FridgeCore) AddBlob(path string) (string, error) {
	return c.blobs.Store(c.fs, path)
}

// AddBlobWithKey stores the file at path in the blobs CAS under a
// caller-supplied key, skipping digest computation. See
// cas.CAS.StoreWithKey.
func (c *FridgeCore) AddBlobWithKey(path, key string) (string, error) {
	return c.blobs.StoreWithKey(c.fs, path, key)
}

// AddSnapshot serializes items, stages them at .fridge/tmp, and stores
// the staged file in the snapshots CAS.
func (c *FridgeCore) AddSnapshot(items objects.Snapshot) (string, error) {
	return c.storeViaTmp(c.snapshots, items.Serialize())
}

// AddCommit builds a Commit from snapshotKey and message, with the
// current UTC time and the current HEAD's resolved key as parent (empty
// if HEAD has no commit yet), and stores it in the commits CAS.
func (c *FridgeCore) AddCommit(snapshotKey, message string) (string, error) {
	headKey, err := c.GetHeadKey()
	if err != nil {
		return "", err
	}
	commit := objects.Commit{
		Timestamp: unixSeconds(time.Now().UTC()),
		Snapshot:  snapshotKey,
		Message:   message,
		Parent:    headKey,
	}
	return c.storeViaTmp(c.commits, commit.Serialize())
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// storeViaTmp writes data to .fridge/tmp then stores it in store,
// tolerating a leftover tmp file from a previously crashed run (it is
// simply overwritten by the O_TRUNC open below).
func (c *FridgeCore) storeViaTmp(store *cas.CAS, data string) (string, error) {
	tmp := c.tmpPath()
	f, err := c.fs.Open(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := f.Write([]byte(data)); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return store.Store(c.fs, tmp)
}

// ReadSnapshot reads and parses the snapshot stored under key.
func (c *FridgeCore) ReadSnapshot(key string) (objects.Snapshot, error) {
	data, err := c.readCASFile(c.snapshots, key)
	if err != nil {
		return nil, err
	}
	return objects.ParseSnapshot(data)
}

// ReadCommit reads and parses the commit stored under key.
func (c *FridgeCore) ReadCommit(key string) (objects.Commit, error) {
	data, err := c.readCASFile(c.commits, key)
	if err != nil {
		return objects.Commit{}, err
	}
	return objects.ParseCommit(data)
}

func (c *FridgeCore) readCASFile(store *cas.CAS, key string) (string, error) {
	f, err := c.fs.Open(store.GetPath(key), os.O_RDONLY, 0)
	if err != nil {
		return "", err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	return string(data), err
}

// SetHead serializes ref and writes it to .fridge/head.
func (c *FridgeCore) SetHead(ref objects.Reference) error {
	return c.writeFile(c.headPath(), ref.Serialize())
}

// GetHead reads and parses the current HEAD reference.
func (c *FridgeCore) GetHead() (objects.Reference, error) {
	data, err := c.readFile(c.headPath())
	if err != nil {
		return objects.Reference{}, err
	}
	return objects.ParseReference(data)
}

// GetHeadKey resolves the current HEAD to a commit key (empty string if
// the branch HEAD points at has no commit yet).
func (c *FridgeCore) GetHeadKey() (string, error) {
	ref, err := c.GetHead()
	if err != nil {
		return "", err
	}
	return c.ResolveRef(ref)
}

// SetBranch creates or overwrites the branch file name with commitKey.
func (c *FridgeCore) SetBranch(name, commitKey string) error {
	return c.writeFile(c.branchPath(name), objects.Branch{Name: name, Commit: commitKey}.Serialize())
}

// IsBranch reports whether a branch file named name exists.
func (c *FridgeCore) IsBranch(name string) bool {
	return c.fs.Exists(c.branchPath(name))
}

// ResolveBranch returns the commit key name's branch file points at.
func (c *FridgeCore) ResolveBranch(name string) (string, error) {
	return c.readFile(c.branchPath(name))
}

// IsCommit reports whether key names an object present in the commits
// CAS.
func (c *FridgeCore) IsCommit(key string) bool {
	if key == "" {
		return false
	}
	return c.fs.Exists(c.commits.GetPath(key))
}

// ResolveRef returns ref's commit key: itself for a commit reference,
// or the named branch's current commit key otherwise.
func (c *FridgeCore) ResolveRef(ref objects.Reference) (string, error) {
	switch ref.Kind {
	case objects.ReferenceCommit:
		return ref.Value, nil
	case objects.ReferenceBranch:
		return c.ResolveBranch(ref.Value)
	default:
		return "", ErrAssertionViolation
	}
}

// CheckoutBlob copies the blob stored under key to path. It tolerates
// path already pointing at the same underlying content.
func (c *FridgeCore) CheckoutBlob(key, path string) error {
	src := c.blobs.GetPath(key)
	if same, err := c.fs.SameFile(src, path); err == nil && same {
		return nil
	}
	return c.fs.Copy(src, path)
}

func (c *FridgeCore) writeFile(path, data string) error {
	f, err := c.fs.Open(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write([]byte(data)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (c *FridgeCore) readFile(path string) (string, error) {
	f, err := c.fs.Open(path, os.O_RDONLY, 0)
	if err != nil {
		return "", err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	return string(data), err
}
