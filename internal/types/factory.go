package types

import (
	"fmt"
	"sort"

	"fortio.org/safecast"

	"pyscope/internal/ast"
)

// Factory creates and interns types. Compound types built from equal
// parts come back as the same pointer, so == is a valid structural
// equality test everywhere downstream. One factory serves one analyzer.
type Factory struct {
	nextID   uint32
	interned map[string]*Type

	Unknown *Type
	Int     *Type
	Float   *Type
	Bool    *Type
	Str     *Type
	Bytes   *Type
	None    *Type
	Complex *Type
}

func NewFactory() *Factory {
	f := &Factory{interned: make(map[string]*Type, 64)}
	f.Unknown = f.newType(KindUnknown)
	f.Int = f.newType(KindInt)
	f.Float = f.newType(KindFloat)
	f.Bool = f.newType(KindBool)
	f.Str = f.newType(KindStr)
	f.Bytes = f.newType(KindBytes)
	f.None = f.newType(KindNone)
	f.Complex = f.newType(KindComplex)
	return f
}

func (f *Factory) newType(kind Kind) *Type {
	id, err := safecast.Conv[uint32](int64(f.nextID) + 1)
	if err != nil {
		panic(fmt.Errorf("type id overflow: %w", err))
	}
	t := &Type{Kind: kind, id: f.nextID}
	f.nextID = id
	return t
}

func (f *Factory) intern(key string, build func() *Type) *Type {
	if t, ok := f.interned[key]; ok {
		return t
	}
	t := build()
	f.interned[key] = t
	return t
}

// List returns the interned list type with the given element.
func (f *Factory) List(elem *Type) *Type {
	if elem == nil {
		elem = f.Unknown
	}
	key := fmt.Sprintf("l:%d", elem.id)
	return f.intern(key, func() *Type {
		t := f.newType(KindList)
		t.Elem = elem
		return t
	})
}

// Set returns the interned set type with the given element.
func (f *Factory) Set(elem *Type) *Type {
	if elem == nil {
		elem = f.Unknown
	}
	key := fmt.Sprintf("s:%d", elem.id)
	return f.intern(key, func() *Type {
		t := f.newType(KindSet)
		t.Elem = elem
		return t
	})
}

// Dict returns the interned dict type for the key/value pair.
func (f *Factory) Dict(key, value *Type) *Type {
	if key == nil {
		key = f.Unknown
	}
	if value == nil {
		value = f.Unknown
	}
	k := fmt.Sprintf("d:%d:%d", key.id, value.id)
	return f.intern(k, func() *Type {
		t := f.newType(KindDict)
		t.Key = key
		t.Value = value
		return t
	})
}

// Tuple returns the interned tuple type for the element list.
func (f *Factory) Tuple(elems ...*Type) *Type {
	key := "t:"
	for _, e := range elems {
		if e == nil {
			e = f.Unknown
		}
		key += fmt.Sprintf("%d,", e.id)
	}
	return f.intern(key, func() *Type {
		t := f.newType(KindTuple)
		t.Elems = append([]*Type(nil), elems...)
		return t
	})
}

// Instance returns the interned instance type of a class.
func (f *Factory) Instance(class *Type) *Type {
	if class == nil || class.Kind != KindClass {
		return f.Unknown
	}
	key := fmt.Sprintf("i:%d", class.id)
	return f.intern(key, func() *Type {
		t := f.newType(KindInstance)
		t.ClassOf = class
		t.Scope = NewScope(class.Scope, ScopeInstance)
		t.Scope.Forwarding = class.Scope
		t.Scope.SetPath(class.Scope.Path())
		return t
	})
}

// Fun creates a fresh, non-interned function type. Each def site gets
// its own identity because its return type and selfType mutate during
// inference.
func (f *Factory) Fun(def *ast.FunctionDef, params []*ast.Param, env *Scope) *Type {
	t := f.newType(KindFun)
	t.Def = def
	t.Params = params
	t.Env = env
	t.Return = f.Unknown
	return t
}

// Class creates a fresh class type owning the given scope.
func (f *Factory) Class(name string, scope *Scope, bases ...*Type) *Type {
	t := f.newType(KindClass)
	t.Name = name
	t.Scope = scope
	for _, b := range bases {
		if b != nil && b.Kind == KindClass && b.Scope != nil {
			scope.AddSuper(b.Scope)
		}
	}
	return t
}

// Module creates a fresh module type owning the given scope.
func (f *Factory) Module(name, qname, file string, scope *Scope) *Type {
	t := f.newType(KindModule)
	t.Name = name
	t.Qname = qname
	t.File = file
	t.Scope = scope
	return t
}

// Union joins two types. union(a, a) = a, Unknown is the identity, and
// nested unions flatten, so repeated widening converges: the member set
// only ever grows within the finite set of structural types seen by
// this factory.
func (f *Factory) Union(a, b *Type) *Type {
	if a == nil {
		a = f.Unknown
	}
	if b == nil {
		b = f.Unknown
	}
	if a == b {
		return a
	}
	if a.IsUnknown() {
		return b
	}
	if b.IsUnknown() {
		return a
	}
	seen := make(map[uint32]*Type, 4)
	for _, t := range a.Variants() {
		seen[t.id] = t
	}
	for _, t := range b.Variants() {
		seen[t.id] = t
	}
	members := make([]*Type, 0, len(seen))
	for _, t := range seen {
		members = append(members, t)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].id < members[j].id })
	if len(members) == 1 {
		return members[0]
	}
	key := "u:"
	for _, m := range members {
		key += fmt.Sprintf("%d,", m.id)
	}
	return f.intern(key, func() *Type {
		t := f.newType(KindUnion)
		t.Members = members
		return t
	})
}

// UnionAll folds Union over a slice; the empty slice yields Unknown.
func (f *Factory) UnionAll(ts ...*Type) *Type {
	out := f.Unknown
	for _, t := range ts {
		out = f.Union(out, t)
	}
	return out
}
