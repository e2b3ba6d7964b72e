package project

import (
	"os"
	"testing"
)

func TestModuleQname(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"a/b/c.py", "a.b.c"},
		{"a/b/__init__.py", "a.b"},
		{"__init__.py", ""},
		{"c.py", "c"},
		{"a\\b\\c.py", "a.b.c"},
		{"/abs/root/m.py", "abs.root.m"},
		// literal dots inside path components are escaped
		{"a/v1.2/m.py", "a.v1%202.m"},
		{"pkg.old/mod.py", "pkg%20old.mod"},
	}
	for _, tt := range tests {
		if got := ModuleQname(tt.path); got != tt.want {
			t.Errorf("ModuleQname(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestModuleQnameIsPure(t *testing.T) {
	const path = "a/b.mixed.name/c.py"
	first := ModuleQname(path)
	for i := 0; i < 3; i++ {
		if got := ModuleQname(path); got != first {
			t.Fatalf("qname derivation is not deterministic: %q vs %q", got, first)
		}
	}
}

func TestPythonPath(t *testing.T) {
	t.Setenv("PYTHONPATH", "")
	if got := PythonPath(); got != nil {
		t.Fatalf("empty PYTHONPATH must yield nil, got %v", got)
	}

	sep := string(os.PathListSeparator)
	t.Setenv("PYTHONPATH", "/one"+sep+"/two"+sep)
	got := PythonPath()
	if len(got) != 2 || got[0] != "/one" || got[1] != "/two" {
		t.Fatalf("unexpected entries: %v", got)
	}
}
