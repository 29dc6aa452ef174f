// Copyright 2025 Jan Gosmann
// SPDX-License-Identifier: Apache-2.0

package fridge

import "github.com/jgosmann/fridge/objects"

// LogEntry pairs a commit key with its record, as yielded by Log.
type LogEntry struct {
	Key    string
	Commit objects.Commit
}
