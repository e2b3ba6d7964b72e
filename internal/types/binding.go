package types

import (
	"pyscope/internal/ast"
)

// BindingKind classifies what a definition site introduces.
type BindingKind uint8

const (
	BindModule BindingKind = iota
	BindClass
	BindMethod
	BindConstructor
	BindFunction
	BindAttribute
	BindVariable
	BindParameter
	BindScope
	BindAlias
)

// rebinds reports whether a later definition site for the same name
// widens the existing binding instead of adding a new one.
func (k BindingKind) rebinds() bool {
	switch k {
	case BindVariable, BindAttribute, BindParameter, BindAlias, BindModule:
		return true
	}
	return false
}

func (k BindingKind) String() string {
	switch k {
	case BindModule:
		return "module"
	case BindClass:
		return "class"
	case BindMethod:
		return "method"
	case BindConstructor:
		return "constructor"
	case BindFunction:
		return "function"
	case BindAttribute:
		return "attribute"
	case BindVariable:
		return "variable"
	case BindParameter:
		return "parameter"
	case BindScope:
		return "scope"
	case BindAlias:
		return "alias"
	}
	return "invalid"
}

// Binding records one definition site of a name. It is created once;
// afterwards only the type may widen and the reference set may grow.
type Binding struct {
	Name      string
	Node      ast.Node
	Type      *Type
	Kind      BindingKind
	Refs      map[ast.Node]struct{}
	Builtin   bool
	Synthetic bool
}

// Referenced reports whether any use site other than the definition
// itself was recorded.
func (b *Binding) Referenced() bool {
	for n := range b.Refs {
		if n != b.Node {
			return true
		}
	}
	return false
}

// Registry is the single construction site for bindings and the
// node-to-binding reference map. The analyzer owns one registry; scopes
// receive it explicitly on every bind so no ambient state is involved.
type Registry struct {
	Factory *Factory

	// All preserves binding creation order for deterministic reporting.
	All []*Binding

	// References maps a use-site node to the bindings it resolves to,
	// deduplicated, in insertion order.
	References map[ast.Node][]*Binding
}

func NewRegistry(f *Factory) *Registry {
	return &Registry{
		Factory:    f,
		References: make(map[ast.Node][]*Binding),
	}
}

// NewBinding creates a binding and appends it to All.
func (r *Registry) NewBinding(name string, node ast.Node, t *Type, kind BindingKind) *Binding {
	if t == nil {
		t = r.Factory.Unknown
	}
	_, synthetic := node.(*ast.Synthetic)
	b := &Binding{
		Name:      name,
		Node:      node,
		Type:      t,
		Kind:      kind,
		Refs:      make(map[ast.Node]struct{}),
		Synthetic: synthetic,
	}
	r.All = append(r.All, b)
	return b
}

// AddRef links a use-site node to the bindings it resolved to.
// Synthetic nodes are skipped: they have no position to report.
func (r *Registry) AddRef(node ast.Node, bindings ...*Binding) {
	if node == nil {
		return
	}
	if _, ok := node.(*ast.Synthetic); ok {
		return
	}
	for _, b := range bindings {
		if b == nil {
			continue
		}
		dup := false
		for _, have := range r.References[node] {
			if have == b {
				dup = true
				break
			}
		}
		if !dup {
			r.References[node] = append(r.References[node], b)
		}
		b.Refs[node] = struct{}{}
	}
}
