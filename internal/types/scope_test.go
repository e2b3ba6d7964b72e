package types

import (
	"testing"

	"pyscope/internal/ast"
)

func ident(name string) *ast.Ident {
	return &ast.Ident{Pos: ast.Pos{File: "test.py"}, Name: name}
}

func TestBindSameNodeWidens(t *testing.T) {
	f := NewFactory()
	reg := NewRegistry(f)
	s := NewScope(nil, ScopeModule)

	node := ident("x")
	b1 := s.Bind(reg, "x", node, f.Int, BindVariable)
	b2 := s.Bind(reg, "x", node, f.Str, BindVariable)

	if b1 != b2 {
		t.Fatalf("binding for the same node must be reused")
	}
	if b1.Type.Kind != KindUnion {
		t.Fatalf("expected widened union type, got %s", b1.Type)
	}
	if len(reg.All) != 1 {
		t.Fatalf("expected one registered binding, got %d", len(reg.All))
	}
}

func TestBindReassignmentKeepsOneVariableBinding(t *testing.T) {
	f := NewFactory()
	reg := NewRegistry(f)
	s := NewScope(nil, ScopeModule)

	b1 := s.Bind(reg, "x", ident("x"), f.Int, BindVariable)
	b2 := s.Bind(reg, "x", ident("x"), f.Str, BindVariable)

	if b1 != b2 {
		t.Fatalf("variable re-assignment must widen the existing binding")
	}
	if b1.Type != f.Union(f.Int, f.Str) {
		t.Fatalf("expected Union[int | str], got %s", b1.Type)
	}
}

func TestBindFunctionOverloadsKeepDistinctBindings(t *testing.T) {
	f := NewFactory()
	reg := NewRegistry(f)
	s := NewScope(nil, ScopeModule)

	fun1 := f.Fun(nil, nil, s)
	fun2 := f.Fun(nil, nil, s)
	b1 := s.Bind(reg, "f", ident("f"), fun1, BindFunction)
	b2 := s.Bind(reg, "f", ident("f"), fun2, BindFunction)

	if b1 == b2 {
		t.Fatalf("distinct definition sites must keep distinct bindings")
	}
	if got := s.LookupLocal("f"); len(got) != 2 {
		t.Fatalf("expected two overload bindings, got %d", len(got))
	}
}

func TestLexicalLookupSkipsClassScopes(t *testing.T) {
	f := NewFactory()
	reg := NewRegistry(f)

	module := NewScope(nil, ScopeModule)
	class := NewScope(module, ScopeClass)
	method := NewScope(class, ScopeFunction)

	module.Bind(reg, "x", ident("x"), f.Str, BindVariable)
	class.Bind(reg, "x", ident("x"), f.Int, BindAttribute)

	// from inside the method, the class attribute is invisible
	bs := method.Lookup("x")
	if len(bs) != 1 || bs[0].Type != f.Str {
		t.Fatalf("free variable must skip the class body, got %v", bs)
	}

	// from the class body itself, the local binding wins
	bs = class.Lookup("x")
	if len(bs) != 1 || bs[0].Type != f.Int {
		t.Fatalf("class body lookup must see its own binding, got %v", bs)
	}
}

func TestAttributeLookupWalksBasesLeftToRight(t *testing.T) {
	f := NewFactory()
	reg := NewRegistry(f)

	baseA := NewScope(nil, ScopeClass)
	baseA.Bind(reg, "attr", ident("attr"), f.Int, BindAttribute)
	baseB := NewScope(nil, ScopeClass)
	baseB.Bind(reg, "attr", ident("attr"), f.Str, BindAttribute)

	derived := NewScope(nil, ScopeClass)
	classA := f.Class("A", baseA)
	classB := f.Class("B", baseB)
	f.Class("D", derived, classA, classB)

	bs := derived.LookupAttribute("attr")
	if len(bs) != 1 || bs[0].Type != f.Int {
		t.Fatalf("attribute lookup must take the leftmost base first, got %v", bs)
	}

	// lexical lookup never consults bases
	if got := derived.Lookup("attr"); got != nil {
		t.Fatalf("lexical lookup consulted base classes: %v", got)
	}
}

func TestInstanceLookupForwardsToClass(t *testing.T) {
	f := NewFactory()
	reg := NewRegistry(f)

	classScope := NewScope(nil, ScopeClass)
	classScope.Bind(reg, "m", ident("m"), f.Fun(nil, nil, classScope), BindMethod)
	class := f.Class("C", classScope)
	inst := f.Instance(class)

	bs := inst.Scope.LookupAttribute("m")
	if len(bs) != 1 || bs[0].Type.Kind != KindFun {
		t.Fatalf("instance attribute lookup must forward to the class, got %v", bs)
	}

	// an assigned instance attribute shadows the class
	inst.Scope.Bind(reg, "m", ident("m"), f.Int, BindAttribute)
	bs = inst.Scope.LookupAttribute("m")
	if len(bs) != 1 || bs[0].Type != f.Int {
		t.Fatalf("own instance attribute must win, got %v", bs)
	}
}

func TestLookupQnameDescendsScopes(t *testing.T) {
	f := NewFactory()
	reg := NewRegistry(f)

	root := NewScope(nil, ScopeGlobal)
	pkgScope := NewScope(root, ScopeModule)
	pkg := f.Module("pkg", "pkg", "", pkgScope)
	root.Bind(reg, "pkg", ident("pkg"), pkg, BindModule)
	pkgScope.Bind(reg, "value", ident("value"), f.Int, BindVariable)

	if got := root.LookupType("pkg.value"); got != f.Int {
		t.Fatalf("dotted descent failed, got %v", got)
	}

	// flat whole-string keys win before descent
	flatScope := NewScope(root, ScopeModule)
	flat := f.Module("c", "a.b.c", "", flatScope)
	root.Bind(reg, "a.b.c", ident("a.b.c"), flat, BindModule)
	if got := root.LookupType("a.b.c"); got != flat {
		t.Fatalf("flat qualified lookup failed, got %v", got)
	}
}

func TestMergeSharesBindings(t *testing.T) {
	f := NewFactory()
	reg := NewRegistry(f)

	src := NewScope(nil, ScopeModule)
	b := src.Bind(reg, "x", ident("x"), f.Int, BindVariable)
	dst := NewScope(nil, ScopeModule)
	dst.Merge(src)
	dst.Merge(src) // merging twice must not duplicate

	got := dst.LookupLocal("x")
	if len(got) != 1 || got[0] != b {
		t.Fatalf("merge must share the original binding, got %v", got)
	}
}

func TestCopyIsolatesTable(t *testing.T) {
	f := NewFactory()
	reg := NewRegistry(f)

	s := NewScope(nil, ScopeFunction)
	b := s.Bind(reg, "x", ident("x"), f.Int, BindVariable)

	clone := s.Copy()
	clone.Bind(reg, "y", ident("y"), f.Str, BindVariable)

	if s.LookupLocal("y") != nil {
		t.Fatalf("clone bindings leaked into the original scope")
	}
	if got := clone.LookupLocal("x"); len(got) != 1 || got[0] != b {
		t.Fatalf("clone must share pre-existing bindings, got %v", got)
	}
}
