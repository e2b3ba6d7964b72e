// Package analyzer drives whole-program type inference: it discovers
// source files, loads them through the AST collaborator, walks every
// tree while widening the type lattice, and drains un-called functions
// to a fixed point before reporting.
package analyzer

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pyscope/internal/ast"
	"pyscope/internal/astcache"
	"pyscope/internal/diag"
	"pyscope/internal/project"
	"pyscope/internal/trace"
	"pyscope/internal/types"
)

// Product names the tool for cache-directory purposes.
const Product = "pyscope"

const maxDiagnosticsPerFile = 1000

// ASTSource is the parser collaborator contract: a nil module means
// the file failed to parse and its diagnostics went to the reporter.
type ASTSource interface {
	GetAST(path string, rep diag.Reporter) *ast.Module
}

// Event is one progress notification emitted while loading files.
type Event struct {
	Path   string
	Failed bool
	Done   bool // true after the file finished loading
}

// Analyzer owns all inference state. It is single-threaded: one
// instance runs one analysis and is mutated only by the inference walk.
type Analyzer struct {
	factory *types.Factory
	reg     *types.Registry
	opts    project.Options
	src     ASTSource
	cache   *astcache.Cache
	tracer  trace.Tracer
	out     io.Writer
	notify  func(Event)

	// globalScope is the root namespace: every loaded module is
	// installed here flat under its qualified name, and builtins are
	// merged in so they resolve lexically.
	globalScope *types.Scope

	resolved       map[ast.Node]struct{}
	unresolved     map[ast.Node]struct{}
	semanticErrors map[string]*diag.Bag
	parseErrors    map[string]*diag.Bag
	loadedFiles    map[string]struct{}
	failedToParse  map[string]struct{}

	uncalled    map[*types.Type]struct{}
	callStack   map[string]struct{}
	importStack map[string]struct{}

	builtinModules map[string]*types.Type

	projectRoot string
	cwd         string // directory of the file currently loading

	retStack []retFrame // return-type collectors for apply

	calledFunctions int
}

// New builds an analyzer. The cache may be nil (no persistence); src
// defaults to the parser-backed cached source.
func New(opts project.Options, src ASTSource, cache *astcache.Cache, tracer trace.Tracer) *Analyzer {
	if tracer == nil {
		tracer = trace.Nop{}
	}
	if src == nil {
		src = astcache.NewSource(cache)
	}
	f := types.NewFactory()
	a := &Analyzer{
		factory:        f,
		reg:            types.NewRegistry(f),
		opts:           opts,
		src:            src,
		cache:          cache,
		tracer:         tracer,
		out:            os.Stdout,
		globalScope:    types.NewScope(nil, types.ScopeGlobal),
		resolved:       make(map[ast.Node]struct{}),
		unresolved:     make(map[ast.Node]struct{}),
		semanticErrors: make(map[string]*diag.Bag),
		parseErrors:    make(map[string]*diag.Bag),
		loadedFiles:    make(map[string]struct{}),
		failedToParse:  make(map[string]struct{}),
		uncalled:       make(map[*types.Type]struct{}),
		callStack:      make(map[string]struct{}),
		importStack:    make(map[string]struct{}),
		builtinModules: make(map[string]*types.Type),
	}
	a.seedBuiltins()
	return a
}

// SetOutput redirects the summary printed by Finish.
func (a *Analyzer) SetOutput(w io.Writer) { a.out = w }

// SetNotify installs a progress callback invoked around each file load.
func (a *Analyzer) SetNotify(fn func(Event)) { a.notify = fn }

func (a *Analyzer) emit(ev Event) {
	if a.notify != nil {
		a.notify(ev)
	}
}

// Factory exposes the type factory, mainly to tests.
func (a *Analyzer) Factory() *types.Factory { return a.factory }

// GlobalScope returns the root scope modules are installed into.
func (a *Analyzer) GlobalScope() *types.Scope { return a.globalScope }

// AllBindings returns every binding in creation order.
func (a *Analyzer) AllBindings() []*types.Binding { return a.reg.All }

// References returns the node-to-bindings map.
func (a *Analyzer) References() map[ast.Node][]*types.Binding { return a.reg.References }

// ResolvedNames holds identifier nodes that resolved.
func (a *Analyzer) ResolvedNames() map[ast.Node]struct{} { return a.resolved }

// UnresolvedNames holds identifier nodes that failed to resolve.
func (a *Analyzer) UnresolvedNames() map[ast.Node]struct{} { return a.unresolved }

// LoadedFiles returns the loaded file paths, sorted.
func (a *Analyzer) LoadedFiles() []string { return sortedKeys(a.loadedFiles) }

// FailedToParse returns the paths that did not parse, sorted.
func (a *Analyzer) FailedToParse() []string { return sortedKeys(a.failedToParse) }

// CalledFunctions counts completed function applications.
func (a *Analyzer) CalledFunctions() int { return a.calledFunctions }

// PendingImports reports the import-stack depth; zero outside loads.
func (a *Analyzer) PendingImports() int { return len(a.importStack) }

// PendingCalls reports the call-stack depth; zero outside inference.
func (a *Analyzer) PendingCalls() int { return len(a.callStack) }

// Uncalled returns the functions whose bodies were never analyzed
// under a call; empty after Finish.
func (a *Analyzer) Uncalled() []*types.Type {
	out := make([]*types.Type, 0, len(a.uncalled))
	for t := range a.uncalled {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DiagnosticsForFile merges parse and semantic diagnostics for one
// file in deterministic order.
func (a *Analyzer) DiagnosticsForFile(path string) []diag.Diagnostic {
	merged := diag.NewBag(2 * maxDiagnosticsPerFile)
	if bag := a.parseErrors[path]; bag != nil {
		merged.Merge(bag)
	}
	if bag := a.semanticErrors[path]; bag != nil {
		merged.Merge(bag)
	}
	merged.Sort()
	return merged.Items()
}

func (a *Analyzer) semanticBag(file string) *diag.Bag {
	bag := a.semanticErrors[file]
	if bag == nil {
		bag = diag.NewBag(maxDiagnosticsPerFile)
		a.semanticErrors[file] = bag
	}
	return bag
}

// Analyze loads a file or every source file under a directory root.
func (a *Analyzer) Analyze(rootPath string) error {
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return fmt.Errorf("failed to resolve %q: %w", rootPath, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("failed to stat %q: %w", abs, err)
	}
	a.tracer.Emit(trace.LevelPhase, "analyze %s", abs)
	if !info.IsDir() {
		a.projectRoot = filepath.Dir(abs)
		a.cwd = a.projectRoot
		a.loadFile(abs)
		return nil
	}
	a.projectRoot = abs
	a.cwd = abs
	files, err := DiscoverFiles(abs)
	if err != nil {
		return err
	}
	for _, path := range files {
		a.loadFile(path)
	}
	return nil
}

// DiscoverFiles lists every source file under root in sorted order.
func DiscoverFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, project.Suffix) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Finish drains the uncalled worklist to a fixed point, emits unused
// variable diagnostics and prints the summary.
func (a *Analyzer) Finish() {
	a.tracer.Emit(trace.LevelPhase, "finish: %d uncalled functions", len(a.uncalled))
	a.ApplyUncalled()
	a.reportUnused()
	if !a.opts.Quiet {
		fmt.Fprint(a.out, a.GetAnalysisSummary())
	}
}

func (a *Analyzer) reportUnused() {
	for _, b := range a.reg.All {
		if b.Builtin || b.Synthetic || b.Referenced() {
			continue
		}
		if b.Kind == types.BindParameter {
			continue
		}
		switch b.Type.Kind {
		case types.KindClass, types.KindFun, types.KindModule:
			continue
		}
		sp := b.Node.Span()
		a.semanticBag(sp.File).Add(diag.Diagnostic{
			Severity: diag.SevError,
			Code:     diag.SemUnusedVariable,
			Message:  "Unused variable: " + b.Name,
			Primary:  sp,
		})
	}
}

// Close flushes the AST cache.
func (a *Analyzer) Close() error {
	if a.cache != nil {
		return a.cache.Close()
	}
	return nil
}
