package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmdRoot.SetArgs(append([]string{"--log-format", "discard"}, args...))
	cmdRoot.SetIn(strings.NewReader(stdin))
	cmdRoot.SetOut(&out)
	cmdRoot.SetErr(&out)
	err := cmdRoot.ExecuteContext(context.Background())
	return out.String(), err
}

func writeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"notes.txt":     "red fish blue fish",
		"sub/todo.txt":  "buy fish and red paint",
		"sub/other.txt": "nothing to see here",
	}
	for name, text := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestBuildVerifyDumpShell(t *testing.T) {
	root := writeTree(t)
	idx := filepath.Join(t.TempDir(), "out", "tree.idx")

	out, err := run(t, "", "build", root, idx)
	if err != nil {
		t.Fatalf("build: %v\n%s", err, out)
	}
	if !strings.Contains(out, "3 indexed") {
		t.Errorf("build output:\n%s", out)
	}

	out, err = run(t, "", "verify", idx)
	if err != nil {
		t.Fatalf("verify: %v\n%s", err, out)
	}
	if !strings.HasPrefix(out, "ok") || !strings.Contains(out, "3 documents") {
		t.Errorf("verify output:\n%s", out)
	}

	out, err = run(t, "", "dump", "--word", "fish", idx)
	if err != nil {
		t.Fatalf("dump: %v\n%s", err, out)
	}
	if !strings.Contains(out, "fish (2 documents)") {
		t.Errorf("dump output:\n%s", out)
	}

	out, err = run(t, "RED fish\nsubmarine\n", "shell", idx)
	if err != nil {
		t.Fatalf("shell: %v\n%s", err, out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 6 {
		t.Fatalf("shell output:\n%s", out)
	}
	if !strings.Contains(lines[1], "notes.txt (3)") || !strings.Contains(lines[2], "todo.txt (2)") {
		t.Errorf("matches out of order:\n%s", out)
	}
	if lines[4] != "[no results]" {
		t.Errorf("line 4 = %q", lines[4])
	}
}

func TestVerifyReportsCorruptFile(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.idx")
	if err := os.WriteFile(bad, []byte("not an index"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "", "verify", bad)
	if err == nil {
		t.Fatal("verify accepted a corrupt file")
	}
	if !strings.HasPrefix(out, "FAIL") {
		t.Errorf("verify output:\n%s", out)
	}
}
