// Copyright 2025 Jan Gosmann
// SPDX-License-Identifier: Apache-2.0

// Command fridge is a thin CLI over the fridge package: it resolves the
// current working directory as a repository and dispatches to
// init/commit/checkout/branch/log/diff/status subcommands. It holds no
// storage logic of its own — every operation is a direct call into the
// fridge package, matching the teacher's cmd/cxdb-fstree-fixtures split
// between "tool that parses flags and prints" and "package that does work".
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jgosmann/fridge"
	"github.com/jgosmann/fridge/fsys"
	"github.com/jgosmann/fridge/internal/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fridge: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: fridge <init|commit|checkout|branch|log|diff|status> [args]")
	}

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	fs := fsys.OS{}

	switch args[0] {
	case "init":
		return cmdInit(fs, cwd, args[1:])
	case "commit":
		return cmdCommit(fs, cwd, args[1:])
	case "checkout":
		return cmdCheckout(fs, cwd, args[1:])
	case "branch":
		return cmdBranch(fs, cwd, args[1:])
	case "log":
		return cmdLog(fs, cwd, args[1:])
	case "diff":
		return cmdDiff(fs, cwd, args[1:])
	case "status":
		return cmdStatus(fs, cwd, args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func cmdInit(fs fsys.FS, path string, args []string) error {
	set := flag.NewFlagSet("init", flag.ContinueOnError)
	if err := set.Parse(args); err != nil {
		return err
	}
	if _, err := fridge.Init(fs, path); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "initialized empty repository at %s\n", path)
	return nil
}

func cmdCommit(fs fsys.FS, path string, args []string) error {
	set := flag.NewFlagSet("commit", flag.ContinueOnError)
	message := set.String("m", "", "commit message")
	if err := set.Parse(args); err != nil {
		return err
	}
	if *message == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return fmt.Errorf("no -m MESSAGE given (configured editor %q is not invoked by this tool)", cfg.Editor)
	}

	repo, err := fridge.Open(fs, path)
	if err != nil {
		return err
	}
	key, err := repo.Commit(*message)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "%s\n", key)
	return nil
}

func cmdCheckout(fs fsys.FS, path string, args []string) error {
	set := flag.NewFlagSet("checkout", flag.ContinueOnError)
	if err := set.Parse(args); err != nil {
		return err
	}
	repo, err := fridge.Open(fs, path)
	if err != nil {
		return err
	}

	var ref *string
	if set.NArg() > 0 {
		r := set.Arg(0)
		ref = &r
	}
	return repo.Checkout(ref)
}

func cmdBranch(fs fsys.FS, path string, args []string) error {
	set := flag.NewFlagSet("branch", flag.ContinueOnError)
	if err := set.Parse(args); err != nil {
		return err
	}
	if set.NArg() != 1 {
		return fmt.Errorf("usage: fridge branch NAME")
	}
	repo, err := fridge.Open(fs, path)
	if err != nil {
		return err
	}
	return repo.Branch(set.Arg(0))
}

func cmdLog(fs fsys.FS, path string, args []string) error {
	set := flag.NewFlagSet("log", flag.ContinueOnError)
	oneline := set.Bool("oneline", false, "print one abbreviated line per commit")
	verbose := set.Bool("v", false, "print full commit records")
	if err := set.Parse(args); err != nil {
		return err
	}

	repo, err := fridge.Open(fs, path)
	if err != nil {
		return err
	}
	entries, err := repo.Log()
	if err != nil {
		return err
	}

	for _, entry := range entries {
		printLogEntry(entry, *oneline, *verbose)
	}
	return nil
}

func printLogEntry(entry fridge.LogEntry, oneline, verbose bool) {
	switch {
	case oneline:
		fmt.Fprintf(os.Stdout, "%s %s\n", entry.Key[:8], firstLine(entry.Commit.Message))
	case verbose:
		fmt.Fprintf(os.Stdout, "commit %s\nsnapshot %s\nparent %s\ntimestamp %.3f\n\n%s\n\n",
			entry.Key, entry.Commit.Snapshot, entry.Commit.Parent, entry.Commit.Timestamp, entry.Commit.Message)
	default:
		fmt.Fprintf(os.Stdout, "commit %s\n\n%s\n\n", entry.Key, entry.Commit.Message)
	}
}

func firstLine(message string) string {
	for i, r := range message {
		if r == '\n' {
			return message[:i]
		}
	}
	return message
}

func cmdDiff(fs fsys.FS, path string, args []string) error {
	set := flag.NewFlagSet("diff", flag.ContinueOnError)
	if err := set.Parse(args); err != nil {
		return err
	}
	repo, err := fridge.Open(fs, path)
	if err != nil {
		return err
	}
	d, err := repo.Diff()
	if err != nil {
		return err
	}
	printDiff(d)
	return nil
}

func printDiff(d *fridge.Diff) {
	for _, p := range d.Added {
		fmt.Fprintf(os.Stdout, "A %s\n", p)
	}
	for _, p := range d.Updated {
		fmt.Fprintf(os.Stdout, "M %s\n", p)
	}
	for _, p := range d.Removed {
		fmt.Fprintf(os.Stdout, "D %s\n", p)
	}
}

// cmdStatus prints the abbreviated key of the commit HEAD resolves to
// (or "no commits yet") and the Diff against it: a pairing of log + diff
// that spec.md does not name as a command. The branch HEAD is on is not
// printed.
func cmdStatus(fs fsys.FS, path string, args []string) error {
	set := flag.NewFlagSet("status", flag.ContinueOnError)
	if err := set.Parse(args); err != nil {
		return err
	}
	repo, err := fridge.Open(fs, path)
	if err != nil {
		return err
	}

	entries, err := repo.Log()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stdout, "no commits yet")
	} else {
		fmt.Fprintf(os.Stdout, "HEAD at %s\n", entries[0].Key[:8])
	}

	d, err := repo.Diff()
	if err != nil {
		return err
	}
	if d.IsEmpty() {
		fmt.Fprintln(os.Stdout, "working tree clean")
		return nil
	}
	printDiff(d)
	return nil
}
