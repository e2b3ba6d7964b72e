// Package testkit checks structural invariants of a finished analysis;
// tests run it after every scenario.
package testkit

import (
	"fmt"

	"pyscope/internal/analyzer"
)

// CheckAnalyzerInvariants verifies the registry, name-set and stack
// invariants that must hold for any analyzed program:
//
//  1. every node in the reference map lists at least one binding, and
//     each listed binding's reference set contains that node
//  2. resolved and unresolved name sets are disjoint
//  3. the uncalled worklist is empty (call after Finish)
//  4. the import stack and the call stack are empty
func CheckAnalyzerInvariants(a *analyzer.Analyzer) error {
	for node, bs := range a.References() {
		if len(bs) == 0 {
			return fmt.Errorf("reference node %v has no bindings", node.Span())
		}
		for _, b := range bs {
			if _, ok := b.Refs[node]; !ok {
				return fmt.Errorf("binding %q misses back-reference for %v", b.Name, node.Span())
			}
		}
	}
	for node := range a.ResolvedNames() {
		if _, dup := a.UnresolvedNames()[node]; dup {
			return fmt.Errorf("node %v is both resolved and unresolved", node.Span())
		}
	}
	if rest := a.Uncalled(); len(rest) > 0 {
		return fmt.Errorf("%d functions left uncalled after finish", len(rest))
	}
	if n := a.PendingImports(); n != 0 {
		return fmt.Errorf("import stack not empty: %d entries", n)
	}
	if n := a.PendingCalls(); n != 0 {
		return fmt.Errorf("call stack not empty: %d entries", n)
	}
	return nil
}
