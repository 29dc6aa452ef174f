// Copyright 2025 Jan Gosmann
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package fsys

import (
	"io/fs"
	"syscall"
	"time"
)

func statTimes(info fs.FileInfo) (atime, mtime time.Time) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return info.ModTime(), info.ModTime()
	}
	return time.Unix(st.Atim.Sec, st.Atim.Nsec), time.Unix(st.Mtim.Sec, st.Mtim.Nsec)
}

func statVFSBlockSize(path string) (int64, bool) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return 0, false
	}
	return int64(st.Bsize), true
}
