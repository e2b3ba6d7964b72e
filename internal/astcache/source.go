package astcache

import (
	"os"

	"pyscope/internal/ast"
	"pyscope/internal/diag"
	"pyscope/internal/parser"
	"pyscope/internal/source"
)

// Source is the default AST collaborator: read the file, consult the
// cache by content digest, parse on a miss and remember the result.
// Only successful parses are cached, so a hit never hides diagnostics.
type Source struct {
	cache *Cache
}

func NewSource(cache *Cache) *Source {
	return &Source{cache: cache}
}

// GetAST returns the module tree for path, or nil on read/parse
// failure. Diagnostics go to the reporter.
func (s *Source) GetAST(path string, rep diag.Reporter) *ast.Module {
	data, err := os.ReadFile(path)
	if err != nil {
		rep.Report(diag.IOLoadFileError, diag.SevError,
			source.Span{File: path}, "failed to read file: "+err.Error())
		return nil
	}
	// the path participates in the key: positions inside the cached
	// tree carry the filename they were parsed under
	key := HashBytes(append([]byte(path+"\x00"), data...))
	if s.cache != nil {
		if mod, ok := s.cache.Get(key); ok {
			return mod
		}
	}
	mod := parser.Parse(data, path, rep)
	if mod != nil && s.cache != nil {
		// a failed Put only costs the next run a reparse
		_ = s.cache.Put(key, mod)
	}
	return mod
}
