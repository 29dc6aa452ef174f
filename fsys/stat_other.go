// Copyright 2025 Jan Gosmann
// SPDX-License-Identifier: Apache-2.0

//go:build !unix

package fsys

import (
	"io/fs"
	"time"
)

func statTimes(info fs.FileInfo) (atime, mtime time.Time) {
	return info.ModTime(), info.ModTime()
}

func statVFSBlockSize(path string) (int64, bool) {
	return 0, false
}
