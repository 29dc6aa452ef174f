// Copyright 2025 Jan Gosmann
// SPDX-License-Identifier: Apache-2.0

package objects

import (
	"fmt"
	"strconv"
	"strings"
)

// Serialize renders i as one line:
//
//	<checksum> <mode:%04o> <size> <atime:.3f> <mtime:.3f> <path-literal>
//
// The path is emitted as a Go source-text string literal (strconv.Quote)
// so any byte — including whitespace, newlines, and quotes — round-trips
// without breaking the line-oriented grammar.
func (i SnapshotItem) Serialize() string {
	return fmt.Sprintf("%s %04o %d %.3f %.3f %s",
		i.Checksum, i.Mode&0o7777, i.Size, i.Atime, i.Mtime, strconv.Quote(i.Path))
}

// ParseSnapshotItem parses one line produced by SnapshotItem.Serialize.
// The decoded permission octal is OR'd with RegularFileBit to
// reconstruct the full mode.
func ParseSnapshotItem(line string) (SnapshotItem, error) {
	rest := line
	fields := make([]string, 5)
	for idx := range fields {
		rest = strings.TrimLeft(rest, " \t")
		end := strings.IndexAny(rest, " \t")
		if end < 0 {
			return SnapshotItem{}, &DeserializationError{
				Kind: "snapshot item", Detail: "too few fields: " + line,
			}
		}
		fields[idx] = rest[:end]
		rest = rest[end:]
	}
	rest = strings.TrimLeft(rest, " \t")

	mode, err := strconv.ParseUint(fields[1], 8, 32)
	if err != nil {
		return SnapshotItem{}, &DeserializationError{Kind: "snapshot item", Detail: "bad mode: " + err.Error()}
	}
	size, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return SnapshotItem{}, &DeserializationError{Kind: "snapshot item", Detail: "bad size: " + err.Error()}
	}
	atime, err := strconv.ParseFloat(fields[3], 64)
	if err != nil {
		return SnapshotItem{}, &DeserializationError{Kind: "snapshot item", Detail: "bad atime: " + err.Error()}
	}
	mtime, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return SnapshotItem{}, &DeserializationError{Kind: "snapshot item", Detail: "bad mtime: " + err.Error()}
	}
	path, err := strconv.Unquote(rest)
	if err != nil {
		return SnapshotItem{}, &DeserializationError{Kind: "snapshot item", Detail: "bad path literal: " + err.Error()}
	}

	return SnapshotItem{
		Checksum: fields[0],
		Path:     path,
		Mode:     uint32(mode) | RegularFileBit,
		Size:     size,
		Atime:    atime,
		Mtime:    mtime,
	}, nil
}

// Serialize joins s's items with single newlines, in order.
func (s Snapshot) Serialize() string {
	lines := make([]string, len(s))
	for idx, item := range s {
		lines[idx] = item.Serialize()
	}
	return strings.Join(lines, "\n")
}

// ParseSnapshot parses the output of Snapshot.Serialize.
func ParseSnapshot(data string) (Snapshot, error) {
	if data == "" {
		return Snapshot{}, nil
	}
	lines := strings.Split(data, "\n")
	items := make(Snapshot, len(lines))
	for idx, line := range lines {
		item, err := ParseSnapshotItem(line)
		if err != nil {
			return nil, err
		}
		items[idx] = item
	}
	return items, nil
}

// Serialize renders c as a header block (timestamp, parent, snapshot),
// a blank line, then the free-text message verbatim.
func (c Commit) Serialize() string {
	return fmt.Sprintf("timestamp %.3f\nparent %s\nsnapshot %s\n\n%s",
		c.Timestamp, c.Parent, c.Snapshot, c.Message)
}

// ParseCommit parses the output of Commit.Serialize. It rejects unknown
// header keys, duplicate header keys, and missing required keys.
func ParseCommit(data string) (Commit, error) {
	header, body, err := splitHeaderAndBody(data)
	if err != nil {
		return Commit{}, err
	}

	seen := make(map[string]string, 3)
	for _, line := range header {
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, " ")
		if !ok {
			key, value = line, ""
		}
		if _, dup := seen[key]; dup {
			return Commit{}, &DeserializationError{Kind: "commit", Detail: "duplicate header: " + key}
		}
		switch key {
		case "timestamp", "parent", "snapshot":
			seen[key] = value
		default:
			return Commit{}, &DeserializationError{Kind: "commit", Detail: "unknown header: " + key}
		}
	}

	for _, required := range []string{"timestamp", "parent", "snapshot"} {
		if _, ok := seen[required]; !ok {
			return Commit{}, &DeserializationError{Kind: "commit", Detail: "missing header: " + required}
		}
	}

	timestamp, err := strconv.ParseFloat(seen["timestamp"], 64)
	if err != nil {
		return Commit{}, &DeserializationError{Kind: "commit", Detail: "bad timestamp: " + err.Error()}
	}

	return Commit{
		Timestamp: timestamp,
		Parent:    seen["parent"],
		Snapshot:  seen["snapshot"],
		Message:   body,
	}, nil
}

// splitHeaderAndBody finds the first blank line (tolerant to bare "\n\n"
// or CRLF "\r\n\r\n") and splits data into header lines and body.
func splitHeaderAndBody(data string) ([]string, string, error) {
	idx := strings.Index(data, "\n\n")
	sepLen := 2
	if crlf := strings.Index(data, "\r\n\r\n"); crlf != -1 && (idx == -1 || crlf < idx) {
		idx = crlf
		sepLen = 4
	}
	if idx == -1 {
		return nil, "", &DeserializationError{Kind: "commit", Detail: "missing header/message separator"}
	}

	header := strings.Split(data[:idx], "\n")
	for i, line := range header {
		header[i] = strings.TrimSuffix(line, "\r")
	}
	return header, data[idx+sepLen:], nil
}

// Serialize renders b as its commit key alone.
func (b Branch) Serialize() string {
	return b.Commit
}

// ParseBranch builds a Branch named name from serialized file content.
func ParseBranch(name, data string) Branch {
	return Branch{Name: name, Commit: data}
}

// Serialize renders r as "<kind>: <value>".
func (r Reference) Serialize() string {
	return fmt.Sprintf("%s: %s", r.Kind, r.Value)
}

// ParseReference parses the output of Reference.Serialize, trimming
// whitespace around both the kind and the value.
func ParseReference(data string) (Reference, error) {
	kindPart, valuePart, ok := strings.Cut(data, ":")
	if !ok {
		return Reference{}, &DeserializationError{Kind: "reference", Detail: "missing ':' in: " + data}
	}
	kind := strings.TrimSpace(kindPart)
	value := strings.TrimSpace(valuePart)

	switch kind {
	case "commit":
		return Reference{Kind: ReferenceCommit, Value: value}, nil
	case "branch":
		return Reference{Kind: ReferenceBranch, Value: value}, nil
	default:
		return Reference{}, &DeserializationError{Kind: "reference", Detail: "unknown kind: " + kind}
	}
}
