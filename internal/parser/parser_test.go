package parser

import (
	"testing"

	"pyscope/internal/ast"
	"pyscope/internal/diag"
)

func parseOK(t *testing.T, src string) *ast.Module {
	t.Helper()
	bag := diag.NewBag(100)
	mod := Parse([]byte(src), "test.py", diag.BagReporter{Bag: bag})
	if mod == nil {
		t.Fatalf("parse failed: %v", bag.Items())
	}
	return mod
}

func TestParseAssignment(t *testing.T) {
	mod := parseOK(t, "x = 1\n")
	if len(mod.Body) != 1 {
		t.Fatalf("expected one statement, got %d", len(mod.Body))
	}
	assign, ok := mod.Body[0].(*ast.Assign)
	if !ok {
		t.Fatalf("expected assignment, got %T", mod.Body[0])
	}
	if len(assign.Targets) != 1 {
		t.Fatalf("expected one target, got %d", len(assign.Targets))
	}
	target, ok := assign.Targets[0].(*ast.Ident)
	if !ok || target.Name != "x" {
		t.Fatalf("unexpected target: %#v", assign.Targets[0])
	}
	if _, ok := assign.Value.(*ast.IntLit); !ok {
		t.Fatalf("expected int literal, got %T", assign.Value)
	}
}

func TestParseTupleDestructuring(t *testing.T) {
	mod := parseOK(t, "a, b = 1, \"s\"\n")
	assign := mod.Body[0].(*ast.Assign)
	tup, ok := assign.Targets[0].(*ast.TupleExpr)
	if !ok || len(tup.Elts) != 2 {
		t.Fatalf("expected two-element tuple target, got %#v", assign.Targets[0])
	}
	val, ok := assign.Value.(*ast.TupleExpr)
	if !ok || len(val.Elts) != 2 {
		t.Fatalf("expected two-element tuple value, got %#v", assign.Value)
	}
}

func TestParseFunctionDef(t *testing.T) {
	src := "def f(a, b=1):\n    return a\n"
	mod := parseOK(t, src)
	fd, ok := mod.Body[0].(*ast.FunctionDef)
	if !ok {
		t.Fatalf("expected function def, got %T", mod.Body[0])
	}
	if fd.Name.Name != "f" {
		t.Fatalf("unexpected name %q", fd.Name.Name)
	}
	if len(fd.Params) != 2 || fd.Params[0].Name != "a" || fd.Params[1].Name != "b" {
		t.Fatalf("unexpected params: %#v", fd.Params)
	}
	if len(fd.Defaults) != 1 {
		t.Fatalf("expected one default, got %d", len(fd.Defaults))
	}
	if len(fd.Body) != 1 {
		t.Fatalf("expected one body statement, got %d", len(fd.Body))
	}
	if _, ok := fd.Body[0].(*ast.Return); !ok {
		t.Fatalf("expected return, got %T", fd.Body[0])
	}
}

func TestParseInlineSuite(t *testing.T) {
	mod := parseOK(t, "class C:\n    def m(self): return self\n")
	cd := mod.Body[0].(*ast.ClassDef)
	if cd.Name.Name != "C" {
		t.Fatalf("unexpected class name %q", cd.Name.Name)
	}
	fd, ok := cd.Body[0].(*ast.FunctionDef)
	if !ok {
		t.Fatalf("expected method def, got %T", cd.Body[0])
	}
	if len(fd.Body) != 1 {
		t.Fatalf("inline suite lost its statement")
	}
}

func TestParseDecoratedFunction(t *testing.T) {
	src := "@deco\ndef f():\n    pass\n"
	mod := parseOK(t, src)
	fd := mod.Body[0].(*ast.FunctionDef)
	if len(fd.Decorators) != 1 {
		t.Fatalf("expected one decorator, got %d", len(fd.Decorators))
	}
	if d, ok := fd.Decorators[0].(*ast.Ident); !ok || d.Name != "deco" {
		t.Fatalf("unexpected decorator: %#v", fd.Decorators[0])
	}
}

func TestParseImports(t *testing.T) {
	mod := parseOK(t, "import a.b.c as x, d\nfrom p.q import r as s, t\nfrom m import *\n")

	imp := mod.Body[0].(*ast.Import)
	if len(imp.Items) != 2 {
		t.Fatalf("expected two import items, got %d", len(imp.Items))
	}
	if got := imp.Items[0]; len(got.Dotted) != 3 || got.Alias != "x" {
		t.Fatalf("unexpected first item: %#v", got)
	}

	from := mod.Body[1].(*ast.ImportFrom)
	if len(from.Module) != 2 || from.Module[0] != "p" {
		t.Fatalf("unexpected from module: %v", from.Module)
	}
	if len(from.Names) != 2 || from.Names[0].Alias != "s" || from.Names[1].Name != "t" {
		t.Fatalf("unexpected from names: %#v", from.Names)
	}

	star := mod.Body[2].(*ast.ImportFrom)
	if !star.Star {
		t.Fatalf("star import not recognized")
	}
}

func TestParseCallWithKeywords(t *testing.T) {
	mod := parseOK(t, "f(1, name=\"v\")\n")
	call := mod.Body[0].(*ast.ExprStmt).X.(*ast.Call)
	if len(call.Args) != 1 || len(call.Keywords) != 1 {
		t.Fatalf("expected 1 arg and 1 kwarg, got %d/%d", len(call.Args), len(call.Keywords))
	}
	if call.Keywords[0].Name != "name" {
		t.Fatalf("unexpected keyword: %q", call.Keywords[0].Name)
	}
}

func TestParseComprehension(t *testing.T) {
	mod := parseOK(t, "ys = [x * 2 for x in xs if x]\n")
	assign := mod.Body[0].(*ast.Assign)
	comp, ok := assign.Value.(*ast.Comp)
	if !ok {
		t.Fatalf("expected comprehension, got %T", assign.Value)
	}
	if comp.Kind != ast.CompList {
		t.Fatalf("expected a list comprehension")
	}
	if len(comp.Conds) != 1 {
		t.Fatalf("condition clause lost")
	}
}

func TestParseDictAndSetDisplays(t *testing.T) {
	mod := parseOK(t, "d = {\"k\": 1}\ns = {1, 2}\ne = {}\n")
	if _, ok := mod.Body[0].(*ast.Assign).Value.(*ast.DictExpr); !ok {
		t.Fatalf("dict display not recognized")
	}
	if _, ok := mod.Body[1].(*ast.Assign).Value.(*ast.SetExpr); !ok {
		t.Fatalf("set display not recognized")
	}
	if _, ok := mod.Body[2].(*ast.Assign).Value.(*ast.DictExpr); !ok {
		t.Fatalf("empty braces must parse as a dict")
	}
}

func TestParseSyntaxErrorReturnsNil(t *testing.T) {
	bag := diag.NewBag(100)
	mod := Parse([]byte("def f(:\n"), "bad.py", diag.BagReporter{Bag: bag})
	if mod != nil {
		t.Fatalf("expected parse failure")
	}
	if !bag.HasErrors() {
		t.Fatalf("expected an error diagnostic")
	}
}

func TestParseBadDedentReported(t *testing.T) {
	src := "def f():\n        x = 1\n    y = 2\n"
	bag := diag.NewBag(100)
	mod := Parse([]byte(src), "bad.py", diag.BagReporter{Bag: bag})
	if mod != nil {
		t.Fatalf("expected failure on inconsistent dedent")
	}
	if !bag.HasErrors() {
		t.Fatalf("expected an indentation diagnostic")
	}
}

func TestNodeSpansCoverSource(t *testing.T) {
	src := "value = 42\n"
	mod := parseOK(t, src)
	assign := mod.Body[0].(*ast.Assign)
	target := assign.Targets[0].(*ast.Ident)
	if target.Start() != 0 || target.End() != 5 {
		t.Fatalf("target span %d-%d, want 0-5", target.Start(), target.End())
	}
	lit := assign.Value.(*ast.IntLit)
	if string(src[lit.Start():lit.End()]) != "42" {
		t.Fatalf("literal span does not cover its text")
	}
}
