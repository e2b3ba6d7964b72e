package project

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveOptionsMergesManifestAndOverrides(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "pyscope.toml")
	content := "quiet = true\ndebug = false\nsearch_path = [\"vendor\"]\n"
	if err := os.WriteFile(manifest, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PYTHONPATH", "")

	opts, err := ResolveOptions(dir, map[string]any{
		"debug":   true,
		"ignored": 42, // unknown keys are dropped
	})
	if err != nil {
		t.Fatal(err)
	}
	if !opts.Quiet {
		t.Errorf("manifest quiet value lost")
	}
	if !opts.Debug {
		t.Errorf("override must win over manifest")
	}
	if len(opts.SearchPath) != 1 || opts.SearchPath[0] != "vendor" {
		t.Errorf("unexpected search path: %v", opts.SearchPath)
	}
}

func TestResolveOptionsWithoutManifest(t *testing.T) {
	t.Setenv("PYTHONPATH", "")
	// an isolated directory has no manifest anywhere up the chain
	dir := t.TempDir()
	opts, err := ResolveOptions(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Quiet || opts.Debug {
		t.Errorf("zero options expected, got %+v", opts)
	}
}

func TestFindProjectRootWalksUp(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "pyscope.toml"), []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, ok, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatalf("manifest not found from nested directory")
	}
	resolved, _ := filepath.EvalSymlinks(got)
	wantResolved, _ := filepath.EvalSymlinks(root)
	if resolved != wantResolved {
		t.Fatalf("got root %q, want %q", got, root)
	}
}
