package project

import (
	"strings"
)

// Suffix is the source file suffix the analyzer recognizes.
const Suffix = ".py"

// InitFile marks a directory as a package.
const InitFile = "__init__" + Suffix

// ModuleQname derives the qualified module name for a file path. The
// derivation is a pure function: strip __init__.py keeping the
// directory, otherwise strip the suffix; escape literal dots inside
// path components as %20; then turn path separators into dots.
//
//	a/b/c.py          -> a.b.c
//	a/b/__init__.py   -> a.b
//	a/v1.2/m.py       -> a.v1%202.m
func ModuleQname(path string) string {
	p := strings.ReplaceAll(path, "\\", "/")
	if strings.HasSuffix(p, "/"+InitFile) {
		p = strings.TrimSuffix(p, "/"+InitFile)
	} else if p == InitFile {
		return ""
	} else {
		p = strings.TrimSuffix(p, Suffix)
	}
	p = strings.TrimPrefix(p, "/")
	p = strings.ReplaceAll(p, ".", "%20")
	return strings.ReplaceAll(p, "/", ".")
}
