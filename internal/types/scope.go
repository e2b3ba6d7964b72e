package types

import (
	"strings"

	"pyscope/internal/ast"
)

// ScopeKind enumerates supported scope categories.
type ScopeKind uint8

const (
	ScopeInvalid  ScopeKind = iota
	ScopeGlobal             // root of everything, holds module bindings
	ScopeModule             // one per loaded file
	ScopeClass              // class body
	ScopeFunction           // function body / call frame
	ScopeInstance           // per-class instance attribute namespace
	ScopeBlock              // comprehension and other small scopes
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeGlobal:
		return "global"
	case ScopeModule:
		return "module"
	case ScopeClass:
		return "class"
	case ScopeFunction:
		return "function"
	case ScopeInstance:
		return "instance"
	case ScopeBlock:
		return "block"
	default:
		return "invalid"
	}
}

// Scope is a lexical namespace. A name maps to a set of bindings, kept
// in insertion order: re-assignment widens an existing binding's type,
// while distinct definition sites keep distinct bindings so every
// reference resolves to its true origin.
type Scope struct {
	Kind   ScopeKind
	parent *Scope
	table  map[string][]*Binding
	path   string

	// Forwarding is consulted after a local miss during attribute
	// lookup; an instance scope forwards to its class scope.
	Forwarding *Scope

	// supers are base-class scopes, searched left to right during
	// attribute lookup. Lexical lookup never consults them.
	supers []*Scope
}

func NewScope(parent *Scope, kind ScopeKind) *Scope {
	return &Scope{
		Kind:   kind,
		parent: parent,
		table:  make(map[string][]*Binding),
	}
}

func (s *Scope) Parent() *Scope { return s.parent }

func (s *Scope) SetPath(path string) { s.path = path }
func (s *Scope) Path() string        { return s.path }

// ExtendPath derives a child qualified name from this scope's path.
func (s *Scope) ExtendPath(name string) string {
	if s.path == "" {
		return name
	}
	return s.path + "." + name
}

func (s *Scope) AddSuper(sc *Scope) {
	if sc != nil {
		s.supers = append(s.supers, sc)
	}
}

// Bind installs a binding for name. A binding with the same defining
// node widens by union instead of a new entry appearing, so
// re-executing the same definition never duplicates bindings. Plain
// value kinds additionally widen across definition sites: re-assigning
// a variable keeps one binding whose type grows. Function and class
// definitions always keep distinct bindings per site, so overload
// references resolve to their true origin.
func (s *Scope) Bind(reg *Registry, name string, node ast.Node, t *Type, kind BindingKind) *Binding {
	for _, b := range s.table[name] {
		if b.Node == node {
			b.Type = reg.Factory.Union(b.Type, t)
			return b
		}
	}
	if kind.rebinds() {
		for _, b := range s.table[name] {
			if b.Kind == kind {
				b.Type = reg.Factory.Union(b.Type, t)
				return b
			}
		}
	}
	b := reg.NewBinding(name, node, t, kind)
	s.table[name] = append(s.table[name], b)
	return b
}

// Install puts an already-created binding into the table, used when the
// same binding is shared between scopes (package re-exports).
func (s *Scope) Install(name string, b *Binding) {
	for _, have := range s.table[name] {
		if have == b {
			return
		}
	}
	s.table[name] = append(s.table[name], b)
}

// LookupLocal returns the bindings for name in this scope only.
func (s *Scope) LookupLocal(name string) []*Binding {
	return s.table[name]
}

// Lookup resolves name lexically. Class scopes on the parent chain are
// skipped: a free variable in a nested function never binds to a name
// from an enclosing class body.
func (s *Scope) Lookup(name string) []*Binding {
	if bs := s.LookupLocal(name); bs != nil {
		return bs
	}
	for sc := s.parent; sc != nil; sc = sc.parent {
		if sc.Kind == ScopeClass {
			continue
		}
		if bs := sc.LookupLocal(name); bs != nil {
			return bs
		}
	}
	return nil
}

// LookupAttribute resolves name as an attribute of this namespace:
// local table first, then base-class scopes left to right, then the
// forwarding delegate.
func (s *Scope) LookupAttribute(name string) []*Binding {
	return s.lookupAttr(name, make(map[*Scope]bool))
}

func (s *Scope) lookupAttr(name string, visited map[*Scope]bool) []*Binding {
	if visited[s] {
		return nil
	}
	visited[s] = true
	if bs := s.LookupLocal(name); bs != nil {
		return bs
	}
	for _, sup := range s.supers {
		if bs := sup.lookupAttr(name, visited); bs != nil {
			return bs
		}
	}
	if s.Forwarding != nil {
		return s.Forwarding.lookupAttr(name, visited)
	}
	return nil
}

// LookupQname resolves a dotted name. A whole-string local match wins
// first: module bindings are installed flat under their full qualified
// name. Otherwise the head resolves lexically and every further segment
// descends into the scopes of the types resolved so far.
func (s *Scope) LookupQname(qname string) []*Binding {
	if bs := s.LookupLocal(qname); bs != nil {
		return bs
	}
	parts := strings.Split(qname, ".")
	current := s.Lookup(parts[0])
	for _, seg := range parts[1:] {
		if current == nil {
			return nil
		}
		var next []*Binding
		for _, b := range current {
			if b.Type == nil || b.Type.Scope == nil {
				continue
			}
			next = append(next, b.Type.Scope.LookupLocal(seg)...)
		}
		current = next
	}
	return current
}

// LookupType resolves a dotted name to the type of its first binding.
func (s *Scope) LookupType(qname string) *Type {
	bs := s.LookupQname(qname)
	if len(bs) == 0 {
		return nil
	}
	return bs[0].Type
}

// Merge unions another scope's entries into this one, preserving the
// other scope's per-name order. Used for star-imports and for merging
// the builtins namespace into the global scope.
func (s *Scope) Merge(other *Scope) {
	if other == nil {
		return
	}
	for name, bs := range other.table {
		for _, b := range bs {
			s.Install(name, b)
		}
	}
}

// Copy returns a shallow clone: same bindings, independent table.
func (s *Scope) Copy() *Scope {
	clone := &Scope{
		Kind:       s.Kind,
		parent:     s.parent,
		table:      make(map[string][]*Binding, len(s.table)),
		path:       s.path,
		Forwarding: s.Forwarding,
		supers:     s.supers,
	}
	for name, bs := range s.table {
		clone.table[name] = append([]*Binding(nil), bs...)
	}
	return clone
}

// Names returns the bound names in no particular order.
func (s *Scope) Names() []string {
	out := make([]string, 0, len(s.table))
	for name := range s.table {
		out = append(out, name)
	}
	return out
}
