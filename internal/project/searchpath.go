package project

import (
	"os"
	"path/filepath"
)

// PythonPath returns the entries of the PYTHONPATH environment
// variable, split with the platform list separator.
func PythonPath() []string {
	raw := os.Getenv("PYTHONPATH")
	if raw == "" {
		return nil
	}
	var out []string
	for _, entry := range filepath.SplitList(raw) {
		if entry != "" {
			out = append(out, entry)
		}
	}
	return out
}
