package tools

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func requirePatch(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("patch"); err != nil {
		t.Skip("patch is not installed")
	}
}

func TestPatchFileApply(t *testing.T) {
	t.Parallel()
	requirePatch(t)

	root := t.TempDir()
	target := filepath.Join(root, "greeting.txt")
	if err := os.WriteFile(target, []byte("hello\nworld\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	diff := `--- greeting.txt
+++ greeting.txt
@@ -1,2 +1,2 @@
 hello
-world
+there
`
	pf := &PatchFile{root: root}
	input, _ := json.Marshal(map[string]string{"path": "greeting.txt", "diff": diff})
	out, err := pf.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != "Patched greeting.txt" {
		t.Fatalf("Execute = %q", out)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello\nthere\n" {
		t.Fatalf("file after patch = %q", data)
	}
}

func TestPatchFileRejectsBadDiff(t *testing.T) {
	t.Parallel()
	requirePatch(t)

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("one\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	diff := `--- a.txt
+++ a.txt
@@ -1 +1 @@
-does not match
+anything
`
	pf := &PatchFile{root: root}
	input, _ := json.Marshal(map[string]string{"path": "a.txt", "diff": diff})
	if _, err := pf.Execute(context.Background(), input); err == nil {
		t.Fatal("Execute applied a non-matching diff")
	}
}

func TestPatchFileMissingDiff(t *testing.T) {
	t.Parallel()

	pf := &PatchFile{root: t.TempDir()}
	input := json.RawMessage(`{"path": "a.txt", "diff": ""}`)
	if _, err := pf.Execute(context.Background(), input); err == nil {
		t.Fatal("Execute accepted an empty diff")
	}
}

func TestPatchFileEscapeDenied(t *testing.T) {
	t.Parallel()

	pf := &PatchFile{root: t.TempDir()}
	input := json.RawMessage(`{"path": "../oops.txt", "diff": "x"}`)
	if _, err := pf.Execute(context.Background(), input); err == nil {
		t.Fatal("Execute accepted a path outside the workspace")
	}
}
