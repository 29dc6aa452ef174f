// Copyright 2025 Jan Gosmann
// SPDX-License-Identifier: Apache-2.0

package objects

import "fmt"

// DeserializationError reports a malformed record: an unknown header
// key, a duplicate header key, a missing required field, or a number
// that failed to parse.
type DeserializationError struct {
	Kind   string // the record type being parsed, e.g. "commit"
	Detail string
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("fridge: deserialize %s: %s", e.Kind, e.Detail)
}
