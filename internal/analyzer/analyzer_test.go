package analyzer_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pyscope/internal/analyzer"
	"pyscope/internal/astcache"
	"pyscope/internal/diag"
	"pyscope/internal/project"
	"pyscope/internal/testkit"
	"pyscope/internal/types"
)

// analyzeTree writes files into a temp dir, runs a full analysis over
// it and returns the analyzer plus the directory.
func analyzeTree(t *testing.T, files map[string]string) (*analyzer.Analyzer, string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	a := analyzer.New(project.Options{Quiet: true}, astcache.NewSource(nil), nil, nil)
	if err := a.Analyze(dir); err != nil {
		t.Fatal(err)
	}
	a.Finish()
	if err := testkit.CheckAnalyzerInvariants(a); err != nil {
		t.Fatalf("invariant violated: %v", err)
	}
	return a, dir
}

// userBindings returns the non-builtin bindings with the given name.
func userBindings(a *analyzer.Analyzer, name string) []*types.Binding {
	var out []*types.Binding
	for _, b := range a.AllBindings() {
		if !b.Builtin && !b.Synthetic && b.Name == name {
			out = append(out, b)
		}
	}
	return out
}

func TestLiteralAssignment(t *testing.T) {
	a, _ := analyzeTree(t, map[string]string{"m.py": "x = 1\n"})

	bs := userBindings(a, "x")
	if len(bs) != 1 {
		t.Fatalf("expected one binding for x, got %d", len(bs))
	}
	b := bs[0]
	if b.Kind != types.BindVariable {
		t.Errorf("kind = %s, want variable", b.Kind)
	}
	if b.Type != a.Factory().Int {
		t.Errorf("type = %s, want int", b.Type)
	}
	found := false
	for node, refs := range a.References() {
		for _, rb := range refs {
			if rb == b && node == b.Node {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("definition identifier is not linked to its binding")
	}
}

func TestUnionWidening(t *testing.T) {
	a, _ := analyzeTree(t, map[string]string{"m.py": "x = 1\nx = \"s\"\n"})

	bs := userBindings(a, "x")
	if len(bs) != 1 {
		t.Fatalf("expected exactly one binding entry for x, got %d", len(bs))
	}
	f := a.Factory()
	if bs[0].Type != f.Union(f.Int, f.Str) {
		t.Errorf("type = %s, want Union[int | str]", bs[0].Type)
	}
}

func TestFunctionCallWithTwoArgShapes(t *testing.T) {
	a, _ := analyzeTree(t, map[string]string{
		"m.py": "def f(a): return a\nf(1)\nf(\"s\")\n",
	})

	bs := userBindings(a, "f")
	if len(bs) != 1 {
		t.Fatalf("expected one binding for f, got %d", len(bs))
	}
	fun := bs[0].Type
	if fun.Kind != types.KindFun {
		t.Fatalf("f is %s, want a function", fun)
	}
	f := a.Factory()
	if fun.Return != f.Union(f.Int, f.Str) {
		t.Errorf("return = %s, want Union[int | str]", fun.Return)
	}
	if got := a.CalledFunctions(); got != 2 {
		t.Errorf("called functions = %d, want 2", got)
	}
	if rest := a.Uncalled(); len(rest) != 0 {
		t.Errorf("uncalled not drained: %d left", len(rest))
	}
}

func TestCircularImports(t *testing.T) {
	a, dir := analyzeTree(t, map[string]string{
		"a.py": "import b\nx = 1\n",
		"b.py": "import a\ny = 2\n",
	})

	loaded := a.LoadedFiles()
	if len(loaded) != 2 {
		t.Fatalf("expected two loaded files, got %v", loaded)
	}
	_ = dir

	root := a.GlobalScope()
	modA := root.LookupType("a")
	modB := root.LookupType("b")
	if modA == nil || modA.Kind != types.KindModule {
		t.Fatalf("module a missing from the global scope")
	}
	if modB == nil || modB.Kind != types.KindModule {
		t.Fatalf("module b missing from the global scope")
	}

	bInA := modA.Scope.LookupLocal("b")
	if len(bInA) != 1 || bInA[0].Type != modB {
		t.Errorf("a's scope does not bind module b")
	}
	aInB := modB.Scope.LookupLocal("a")
	if len(aInB) != 1 || aInB[0].Type != modA {
		t.Errorf("b's scope does not bind module a")
	}

	if got := root.LookupLocal("a"); len(got) != 1 {
		t.Errorf("duplicate module types for a: %d bindings", len(got))
	}
}

func TestUnusedVariableDiagnostic(t *testing.T) {
	a, dir := analyzeTree(t, map[string]string{"m.py": "x = 1\n"})

	path, _ := filepath.Abs(filepath.Join(dir, "m.py"))
	path, _ = filepath.EvalSymlinks(path)
	var items []diag.Diagnostic
	for _, p := range a.LoadedFiles() {
		items = append(items, a.DiagnosticsForFile(p)...)
	}
	if len(items) != 1 {
		t.Fatalf("expected one diagnostic, got %d: %v", len(items), items)
	}
	d := items[0]
	if d.Severity != diag.SevError {
		t.Errorf("severity = %s, want ERROR", d.Severity)
	}
	if !strings.Contains(d.Message, "Unused variable: x") {
		t.Errorf("message %q does not mention the unused variable", d.Message)
	}
	_ = path
}

func TestBoundMethodSelfType(t *testing.T) {
	a, _ := analyzeTree(t, map[string]string{
		"main.py": "class C:\n    def m(self): return self\nr = C().m()\n",
	})

	ms := userBindings(a, "m")
	if len(ms) != 1 {
		t.Fatalf("expected one binding for m, got %d", len(ms))
	}
	fun := ms[0].Type
	if fun.Self == nil || fun.Self.Kind != types.KindInstance {
		t.Fatalf("selfType = %v, want an instance", fun.Self)
	}
	if fun.Self.ClassOf == nil || fun.Self.ClassOf.Name != "C" {
		t.Errorf("selfType instantiates %v, want class C", fun.Self.ClassOf)
	}

	rs := userBindings(a, "r")
	if len(rs) != 1 {
		t.Fatalf("expected one binding for r, got %d", len(rs))
	}
	if rs[0].Type != fun.Self {
		t.Errorf("call result = %s, want Instance(C)", rs[0].Type)
	}
}

func TestSelfRecursionTerminates(t *testing.T) {
	a, _ := analyzeTree(t, map[string]string{
		"m.py": "def f(x): return f(x)\n",
	})

	bs := userBindings(a, "f")
	if len(bs) != 1 {
		t.Fatalf("expected one binding for f, got %d", len(bs))
	}
	if !bs[0].Type.Return.IsUnknown() {
		t.Errorf("self-recursive return = %s, want Unknown", bs[0].Type.Return)
	}
}

func TestEmptyDirectory(t *testing.T) {
	a, _ := analyzeTree(t, nil)
	if got := a.LoadedFiles(); len(got) != 0 {
		t.Errorf("loaded files = %v, want none", got)
	}
	if got := a.FailedToParse(); len(got) != 0 {
		t.Errorf("failed files = %v, want none", got)
	}
	if !strings.Contains(a.GetAnalysisSummary(), "modules loaded:       0") {
		t.Errorf("summary does not report zero modules:\n%s", a.GetAnalysisSummary())
	}
}

func TestSyntaxErrorFileIsSkipped(t *testing.T) {
	a, _ := analyzeTree(t, map[string]string{
		"bad.py":  "def f(:\n",
		"good.py": "y = \"ok\"\ny\n",
	})

	failed := a.FailedToParse()
	if len(failed) != 1 || !strings.HasSuffix(failed[0], "bad.py") {
		t.Fatalf("failed set = %v, want bad.py", failed)
	}
	items := a.DiagnosticsForFile(failed[0])
	if len(items) == 0 {
		t.Errorf("no parse diagnostics recorded for bad.py")
	}
	for _, b := range a.AllBindings() {
		if !b.Synthetic && strings.HasSuffix(b.Node.Filename(), "bad.py") {
			t.Errorf("binding %q leaked from a failed parse", b.Name)
		}
	}
	if len(userBindings(a, "y")) != 1 {
		t.Errorf("good.py was not analyzed")
	}
}

func TestFromImportBindsNames(t *testing.T) {
	a, _ := analyzeTree(t, map[string]string{
		"lib.py":  "def g(): return 1\n",
		"main.py": "from lib import g\nr = g()\n",
	})

	rs := userBindings(a, "r")
	if len(rs) != 1 {
		t.Fatalf("expected one binding for r, got %d", len(rs))
	}
	if rs[0].Type != a.Factory().Int {
		t.Errorf("r = %s, want int", rs[0].Type)
	}
}

func TestImportStarMergesScope(t *testing.T) {
	a, _ := analyzeTree(t, map[string]string{
		"lib.py":  "value = 3.5\n",
		"main.py": "from lib import *\nr = value\n",
	})

	rs := userBindings(a, "r")
	if len(rs) != 1 || rs[0].Type != a.Factory().Float {
		t.Fatalf("star import did not expose value: %v", rs)
	}
}

func TestPackageImportBindsChain(t *testing.T) {
	a, _ := analyzeTree(t, map[string]string{
		"pkg/__init__.py":     "\n",
		"pkg/sub/__init__.py": "\n",
		"pkg/sub/leaf.py":     "marker = 7\n",
		"main.py":             "import pkg.sub.leaf\nr = pkg.sub.leaf.marker\n",
	})

	rs := userBindings(a, "r")
	if len(rs) != 1 {
		t.Fatalf("expected one binding for r, got %d", len(rs))
	}
	if rs[0].Type != a.Factory().Int {
		t.Errorf("r = %s, want int", rs[0].Type)
	}
}

func TestClassBodyIsSkippedForFreeVariables(t *testing.T) {
	a, _ := analyzeTree(t, map[string]string{
		"m.py": "x = \"s\"\nclass C:\n    x = 2\n    def m(self): return x\nr = C().m()\n",
	})

	rs := userBindings(a, "r")
	if len(rs) != 1 {
		t.Fatalf("expected one binding for r, got %d", len(rs))
	}
	if rs[0].Type != a.Factory().Str {
		t.Errorf("free variable resolved into the class body: r = %s, want str", rs[0].Type)
	}
}

func TestInstanceAttributeWalksBases(t *testing.T) {
	a, _ := analyzeTree(t, map[string]string{
		"m.py": "class A:\n    y = 1\nclass B(A):\n    def m(self): return self.y\nr = B().m()\n",
	})

	rs := userBindings(a, "r")
	if len(rs) != 1 || rs[0].Type != a.Factory().Int {
		t.Fatalf("inherited attribute not found through self: %v", rs)
	}
}

func TestUnqualifiedBaseAttributeStaysUnresolved(t *testing.T) {
	a, _ := analyzeTree(t, map[string]string{
		"main.py": "class A:\n    y = 1\nclass B(A):\n    def m(self): return y\n",
	})

	ms := userBindings(a, "m")
	if len(ms) != 1 {
		t.Fatalf("expected one binding for m, got %d", len(ms))
	}
	if !ms[0].Type.Return.IsUnknown() {
		t.Errorf("bare name reached a base class: return = %s", ms[0].Type.Return)
	}
	if len(a.UnresolvedNames()) == 0 {
		t.Errorf("expected the bare y to be recorded unresolved")
	}
}

func TestBuiltinsResolveWithoutImport(t *testing.T) {
	a, _ := analyzeTree(t, map[string]string{
		"m.py": "n = len(\"abc\")\nimport math\np = math.pi\nn\np\n",
	})

	f := a.Factory()
	if bs := userBindings(a, "n"); len(bs) != 1 || bs[0].Type != f.Int {
		t.Errorf("len() result: %v, want int", bs)
	}
	if bs := userBindings(a, "p"); len(bs) != 1 || bs[0].Type != f.Float {
		t.Errorf("math.pi: %v, want float", bs)
	}
}

func TestModuleRoundTrip(t *testing.T) {
	a, _ := analyzeTree(t, map[string]string{"mod.py": "x = 1\nx\n"})

	mod := a.GlobalScope().LookupType("mod")
	if mod == nil || mod.Kind != types.KindModule {
		t.Fatalf("module not reachable under its qualified name")
	}
	if mod.Qname != "mod" {
		t.Errorf("qname = %q, want mod", mod.Qname)
	}

	// loading again must not mint a second module type
	if err := a.Analyze(filepath.Dir(mod.File)); err != nil {
		t.Fatal(err)
	}
	if got := a.GlobalScope().LookupLocal("mod"); len(got) != 1 {
		t.Errorf("reload duplicated the module binding: %d entries", len(got))
	}
	if again := a.GlobalScope().LookupType("mod"); again != mod {
		t.Errorf("reload minted a different module type")
	}
}

func TestNonCallableDiagnostic(t *testing.T) {
	a, _ := analyzeTree(t, map[string]string{"m.py": "x = 1\ny = x()\ny\n"})

	found := false
	for _, p := range a.LoadedFiles() {
		for _, d := range a.DiagnosticsForFile(p) {
			if d.Code == diag.SemNotCallable {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("calling an int did not produce a diagnostic")
	}
}

func TestUncalledFunctionsAnalyzedAtFinish(t *testing.T) {
	a, _ := analyzeTree(t, map[string]string{
		"m.py": "def outer():\n    def inner(): return unknown_name\n    return inner\n",
	})

	// finish must reach inner even though nothing calls outer
	if rest := a.Uncalled(); len(rest) != 0 {
		t.Fatalf("uncalled set not drained: %d left", len(rest))
	}
	if len(userBindings(a, "inner")) != 1 {
		t.Errorf("nested function body was never analyzed")
	}
}

func TestForLoopElementTypes(t *testing.T) {
	a, _ := analyzeTree(t, map[string]string{
		"m.py": "for item in [1, 2]:\n    item\nfor ch in \"abc\":\n    ch\n",
	})

	f := a.Factory()
	if bs := userBindings(a, "item"); len(bs) != 1 || bs[0].Type != f.Int {
		t.Errorf("list iteration: %v, want int", bs)
	}
	if bs := userBindings(a, "ch"); len(bs) != 1 || bs[0].Type != f.Str {
		t.Errorf("string iteration: %v, want str", bs)
	}
}

func TestComprehensionType(t *testing.T) {
	a, _ := analyzeTree(t, map[string]string{
		"m.py": "xs = [1, 2]\nys = [x * 2 for x in xs]\nys\n",
	})

	f := a.Factory()
	bs := userBindings(a, "ys")
	if len(bs) != 1 || bs[0].Type != f.List(f.Int) {
		t.Fatalf("comprehension type: %v, want list[int]", bs)
	}
}

func TestTupleDestructuringTypes(t *testing.T) {
	a, _ := analyzeTree(t, map[string]string{
		"m.py": "a, b = 1, \"s\"\na\nb\n",
	})

	f := a.Factory()
	if bs := userBindings(a, "a"); len(bs) != 1 || bs[0].Type != f.Int {
		t.Errorf("a: %v, want int", bs)
	}
	if bs := userBindings(a, "b"); len(bs) != 1 || bs[0].Type != f.Str {
		t.Errorf("b: %v, want str", bs)
	}
}

func TestAttributeStoreOnInstance(t *testing.T) {
	a, _ := analyzeTree(t, map[string]string{
		"m.py": "class C:\n    pass\nc = C()\nc.tag = \"name\"\nr = c.tag\nr\n",
	})

	rs := userBindings(a, "r")
	if len(rs) != 1 || rs[0].Type != a.Factory().Str {
		t.Fatalf("stored attribute type lost: %v", rs)
	}
}
