// Copyright 2025 Jan Gosmann
// SPDX-License-Identifier: Apache-2.0

package fridge

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/blake3"

	"github.com/jgosmann/fridge/cas"
	"github.com/jgosmann/fridge/fsys"
)

const trackerCacheName = "trackercache"

// cacheEntry is one remembered (path -> digest) fact, valid only while
// fingerprint still matches the file's current size/mtime/path.
//
// Grounded in the teacher's fstree.Tracker (lastMtime map), generalized
// from a bare mtime map to a msgpack-persisted cache keyed by a BLAKE3
// fingerprint, since spec.md's Fridge has no long-lived in-process
// Tracker instance the way fstree's does — a CLI invocation is a fresh
// process every time, so the cache must survive on disk.
type cacheEntry struct {
	Size        int64    `msgpack:"1"`
	Fingerprint [32]byte `msgpack:"2"`
	Checksum    string   `msgpack:"3"`
}

// Tracker caches SHA-1 blob digests across Commit calls so a repeat
// commit over a mostly-unchanged workspace does not re-hash every file's
// full content. Disabling a Tracker (or deleting its cache file) never
// changes what gets committed, only how much work producing it takes:
// a cache miss or a stale entry simply falls back to hashing the file.
type Tracker struct {
	fs   fsys.FS
	path string

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewTracker returns a Tracker for the repository rooted at path,
// loading any existing cache from .fridge/trackercache. A missing or
// unreadable cache file is treated as an empty cache rather than an
// error — the cache is a pure optimization.
func NewTracker(fs fsys.FS, path string) *Tracker {
	t := &Tracker{fs: fs, path: path, cache: make(map[string]cacheEntry)}
	t.load()
	return t
}

func (t *Tracker) cachePath() string {
	return filepath.Join(t.path, ".fridge", trackerCacheName)
}

func (t *Tracker) load() {
	f, err := t.fs.Open(t.cachePath(), os.O_RDONLY, 0)
	if err != nil {
		return
	}
	defer f.Close()

	buf := &bytes.Buffer{}
	if _, err := buf.ReadFrom(f); err != nil {
		return
	}

	var entries map[string]cacheEntry
	if err := msgpack.Unmarshal(buf.Bytes(), &entries); err != nil {
		return
	}
	t.cache = entries
}

// Save persists the cache to .fridge/trackercache, overwriting any
// previous content.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	buf := &bytes.Buffer{}
	enc := msgpack.NewEncoder(buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(t.cache); err != nil {
		return err
	}

	f, err := t.fs.Open(t.cachePath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// fingerprint is a fast, non-normative pre-check: a BLAKE3 digest of
// size, mtime, and path, cheap to recompute without touching file
// content. It is never used as a CAS key — the CAS digest stays SHA-1
// per spec.md §4.2 — only to decide whether a cached SHA-1 can be
// trusted without re-reading the file.
func fingerprint(size int64, mtime float64, path string) [32]byte {
	buf := make([]byte, 0, 16+len(path))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(size))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(mtime*1e9))
	buf = append(buf, path...)
	return blake3.Sum256(buf)
}

// Digest returns the SHA-1 content digest for the file at fullPath
// (tracked under relPath), reusing a cached value if size/mtime/path
// still match what was recorded last time, and hashing the file
// otherwise.
func (t *Tracker) Digest(relPath, fullPath string, size int64, mtime float64) (string, error) {
	fp := fingerprint(size, mtime, relPath)

	t.mu.Lock()
	entry, ok := t.cache[relPath]
	t.mu.Unlock()
	if ok && entry.Size == size && entry.Fingerprint == fp {
		return entry.Checksum, nil
	}

	checksum, err := cas.HashFile(t.fs, fullPath)
	if err != nil {
		return "", err
	}

	t.mu.Lock()
	t.cache[relPath] = cacheEntry{Size: size, Fingerprint: fp, Checksum: checksum}
	t.mu.Unlock()
	return checksum, nil
}

// CommitWithTracker behaves like Commit, but uses tracker to reuse
// cached digests for files whose size/mtime/path fingerprint is
// unchanged since the last call, skipping a full re-hash of their
// content. The committed snapshot is byte-identical to what Commit
// would have produced.
func (f *Fridge) CommitWithTracker(message string, tracker *Tracker) (string, error) {
	items, err := f.buildSnapshot(func(relPath, fullPath string, size int64, mtime float64) (string, error) {
		checksum, err := tracker.Digest(relPath, fullPath, size, mtime)
		if err != nil {
			return "", err
		}
		if err := f.addBlobWithKnownChecksum(fullPath, checksum); err != nil {
			return "", err
		}
		return checksum, nil
	})
	if err != nil {
		return "", err
	}
	if err := tracker.Save(); err != nil {
		return "", err
	}
	return f.finishCommit(items, message)
}
