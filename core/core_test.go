// Copyright 2025 Jan Gosmann
// SPDX-License-Identifier: Apache-2.0

package core_test

import (
	"os"
	"testing"

	"github.com/jgosmann/fridge/core"
	"github.com/jgosmann/fridge/fsys"
	"github.com/jgosmann/fridge/objects"
)

func writeFile(t *testing.T, fs fsys.FS, path, content string) {
	t.Helper()
	f, err := fs.Open(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	if _, err := f.Write([]byte(content)); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close %s: %v", path, err)
	}
}

func TestInitSetsMasterHead(t *testing.T) {
	fs := fsys.NewMem()
	c, err := core.Init(fs, "/repo")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	head, err := c.GetHead()
	if err != nil {
		t.Fatalf("GetHead: %v", err)
	}
	want := objects.Reference{Kind: objects.ReferenceBranch, Value: "master"}
	if head != want {
		t.Fatalf("got %+v, want %+v", head, want)
	}

	if !c.IsBranch("master") {
		t.Fatal("expected master branch to exist")
	}
	key, err := c.GetHeadKey()
	if err != nil {
		t.Fatalf("GetHeadKey: %v", err)
	}
	if key != "" {
		t.Fatalf("expected empty head key on fresh repo, got %q", key)
	}
}

func TestAddBlobSnapshotCommitRoundTrip(t *testing.T) {
	fs := fsys.NewMem()
	c, err := core.Init(fs, "/repo")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	writeFile(t, fs, "/repo/somefile", "with some content")
	blobKey, err := c.AddBlob("/repo/somefile")
	if err != nil {
		t.Fatalf("AddBlob: %v", err)
	}

	snap := objects.Snapshot{
		{Checksum: blobKey, Path: "somefile", Mode: 0o700 | objects.RegularFileBit, Size: 17, Atime: 1, Mtime: 1},
	}
	snapKey, err := c.AddSnapshot(snap)
	if err != nil {
		t.Fatalf("AddSnapshot: %v", err)
	}

	gotSnap, err := c.ReadSnapshot(snapKey)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if len(gotSnap) != 1 || gotSnap[0] != snap[0] {
		t.Fatalf("got %+v, want %+v", gotSnap, snap)
	}

	commitKey, err := c.AddCommit(snapKey, "m1")
	if err != nil {
		t.Fatalf("AddCommit: %v", err)
	}
	commit, err := c.ReadCommit(commitKey)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if commit.Snapshot != snapKey || commit.Message != "m1" || commit.Parent != "" {
		t.Fatalf("unexpected commit: %+v", commit)
	}
	if !c.IsCommit(commitKey) {
		t.Fatal("expected IsCommit true for just-added commit")
	}
}

func TestAddCommitChainsParent(t *testing.T) {
	fs := fsys.NewMem()
	c, err := core.Init(fs, "/repo")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	snapKey, err := c.AddSnapshot(objects.Snapshot{})
	if err != nil {
		t.Fatalf("AddSnapshot: %v", err)
	}
	k0, err := c.AddCommit(snapKey, "m0")
	if err != nil {
		t.Fatalf("AddCommit: %v", err)
	}
	if err := c.SetBranch("master", k0); err != nil {
		t.Fatalf("SetBranch: %v", err)
	}

	k1, err := c.AddCommit(snapKey, "m1")
	if err != nil {
		t.Fatalf("AddCommit: %v", err)
	}
	commit1, err := c.ReadCommit(k1)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if commit1.Parent != k0 {
		t.Fatalf("got parent %q, want %q", commit1.Parent, k0)
	}
}

func TestResolveRefAndBranch(t *testing.T) {
	fs := fsys.NewMem()
	c, err := core.Init(fs, "/repo")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	if err := c.SetBranch("feature", "abc123"); err != nil {
		t.Fatalf("SetBranch: %v", err)
	}
	key, err := c.ResolveRef(objects.Reference{Kind: objects.ReferenceBranch, Value: "feature"})
	if err != nil {
		t.Fatalf("ResolveRef: %v", err)
	}
	if key != "abc123" {
		t.Fatalf("got %q, want abc123", key)
	}

	key, err = c.ResolveRef(objects.Reference{Kind: objects.ReferenceCommit, Value: "deadbeef"})
	if err != nil {
		t.Fatalf("ResolveRef: %v", err)
	}
	if key != "deadbeef" {
		t.Fatalf("got %q, want deadbeef", key)
	}
}

func TestCheckoutBlobMaterializesContent(t *testing.T) {
	fs := fsys.NewMem()
	c, err := core.Init(fs, "/repo")
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	writeFile(t, fs, "/repo/src", "hello")
	key, err := c.AddBlob("/repo/src")
	if err != nil {
		t.Fatalf("AddBlob: %v", err)
	}

	if err := c.CheckoutBlob(key, "/repo/dst"); err != nil {
		t.Fatalf("CheckoutBlob: %v", err)
	}

	f, err := fs.Open("/repo/dst", os.O_RDONLY, 0)
	if err != nil {
		t.Fatalf("open dst: %v", err)
	}
	defer f.Close()
	buf := make([]byte, 16)
	n, _ := f.Read(buf)
	if string(buf[:n]) != "hello" {
		t.Fatalf("got %q, want hello", buf[:n])
	}
}
