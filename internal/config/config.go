// Copyright 2025 Jan Gosmann
// SPDX-License-Identifier: Apache-2.0

// Package config loads configuration for the fridge CLI. Unlike the
// storage core, the CLI is allowed to reach into the environment: an
// editor name and an author name.
package config

import (
	"os"
	"os/user"
	"strings"

	"github.com/joho/godotenv"
)

const defaultEditor = "vi"

// Config captures the CLI's runtime configuration, sourced from
// environment variables (optionally loaded from a local .env file).
type Config struct {
	// Editor names the editor configured for writing commit messages.
	// The fridge CLI does not start it: commit without -m fails with an
	// error that names it.
	Editor string

	// Author is the name of the user running the CLI. No fridge command
	// reads it; the storage core itself has no notion of authorship
	// (spec.md's Commit carries no author field).
	Author string
}

// Load reads .env (and ../.env, ../../.env, mirroring the gateway's
// search path) if present, then FRIDGE_EDITOR/FRIDGE_AUTHOR, falling
// back to $EDITOR/$USER and finally to built-in defaults. Load never
// fails the process for missing configuration; it only returns an error
// if godotenv itself fails for a reason other than the files being
// absent.
func Load() (Config, error) {
	for _, name := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return Config{}, err
		}
	}

	cfg := Config{
		Editor: firstNonEmpty(os.Getenv("FRIDGE_EDITOR"), os.Getenv("EDITOR"), defaultEditor),
		Author: firstNonEmpty(os.Getenv("FRIDGE_AUTHOR"), os.Getenv("USER"), currentUsername()),
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func currentUsername() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	return u.Username
}
