// Copyright 2025 Jan Gosmann
// SPDX-License-Identifier: Apache-2.0

package fridge

import "errors"

var (
	// ErrNotInitialized is returned by Open when path has no .fridge
	// directory.
	ErrNotInitialized = errors.New("fridge: not an initialized repository")

	// ErrAlreadyInitialized is returned by Init when path already has a
	// .fridge directory.
	ErrAlreadyInitialized = errors.New("fridge: already an initialized repository")

	// ErrBranchExists is returned by Branch when the requested name is
	// already taken.
	ErrBranchExists = errors.New("fridge: branch already exists")

	// ErrUnknownReference is returned by RefParse when a string names
	// neither an existing branch nor an existing commit.
	ErrUnknownReference = errors.New("fridge: unknown reference")

	// ErrAmbiguousReference is returned by RefParse when a string is
	// simultaneously a branch name and a commit key.
	ErrAmbiguousReference = errors.New("fridge: ambiguous reference")
)
