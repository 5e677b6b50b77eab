package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSourceAndSyncCommands(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	db := filepath.Join(dir, "cli.db")

	deckDir := filepath.Join(dir, "deck")
	if err := os.MkdirAll(deckDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(deckDir, "a.md"), []byte("Q: one\nA: 1\n---\nQ: two\nA: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "source", "add", deckDir, "--db", db, "--log-level", "error")
	if err != nil {
		t.Fatalf("source add: %v\n%s", err, out)
	}
	if !strings.Contains(out, "source 1:") || !strings.Contains(out, "(local)") {
		t.Errorf("source add output = %q", out)
	}

	out, err = run(t, "sync", "--db", db, "--log-level", "error")
	if err != nil {
		t.Fatalf("sync: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2 parsed, 2 new, 0 removed") {
		t.Errorf("sync output = %q", out)
	}

	out, err = run(t, "source", "list", "--db", db, "--log-level", "error")
	if err != nil {
		t.Fatalf("source list: %v", err)
	}
	if !strings.Contains(out, deckDir) || strings.Contains(out, "never") {
		t.Errorf("source list output = %q", out)
	}

	if _, err := run(t, "source", "remove", "1", "--db", db, "--log-level", "error"); err != nil {
		t.Fatalf("source remove: %v", err)
	}
	if _, err := run(t, "source", "remove", "1", "--db", db, "--log-level", "error"); err == nil {
		t.Error("removing a missing source succeeded")
	}
	if _, err := run(t, "source", "remove", "x", "--db", db); err == nil {
		t.Error("non-numeric id accepted")
	}
}

func TestInvalidConfigFails(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if _, err := run(t, "source", "list", "--db", filepath.Join(dir, "x.db"), "--log-level", "loud"); err == nil {
		t.Error("invalid log level accepted")
	}
}
