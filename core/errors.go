// Copyright 2025 Jan Gosmann
// SPDX-License-Identifier: Apache-2.0

package core

import "errors"

// ErrAssertionViolation indicates HEAD is in a shape neither a commit nor
// a branch reference — a corrupt repository, not a user error.
var ErrAssertionViolation = errors.New("fridge: assertion violation: unrecognized HEAD shape")
