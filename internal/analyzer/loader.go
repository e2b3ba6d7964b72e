package analyzer

import (
	"os"
	"path/filepath"
	"strings"

	"pyscope/internal/ast"
	"pyscope/internal/diag"
	"pyscope/internal/project"
	"pyscope/internal/trace"
	"pyscope/internal/types"
)

// LoadModule resolves a dotted module name against the search path and
// binds it into scope. node is the import item used for references;
// alias, when non-empty, replaces the head binding. Returns the last
// module of the chain, or nil when resolution failed (the caller's
// name stays unresolved).
func (a *Analyzer) LoadModule(dotted []string, scope *types.Scope, node ast.Node, alias string) *types.Type {
	if len(dotted) == 0 {
		return nil
	}
	qname := strings.Join(dotted, ".")

	if mod, ok := a.builtinModules[qname]; ok {
		// builtins are flat: the head name binds the full module
		name := dotted[0]
		if alias != "" {
			name = alias
		}
		if scope != nil {
			b := scope.Bind(a.reg, name, a.syntheticNode("builtin:"+qname), mod, types.BindModule)
			b.Builtin = true
			a.reg.AddRef(node, b)
		}
		return mod
	}

	base := a.locateModule(dotted[0])
	if base == "" {
		a.markUnresolved(node)
		return nil
	}

	prevScope := scope
	var mod *types.Type
	for i, seg := range dotted {
		dir := filepath.Join(base, seg)
		initFile := filepath.Join(dir, project.InitFile)
		plainFile := filepath.Join(base, seg+project.Suffix)
		last := i == len(dotted)-1

		var loaded *types.Type
		switch {
		case fileExists(initFile):
			loaded = a.loadFile(initFile)
		case last && fileExists(plainFile):
			loaded = a.loadFile(plainFile)
		default:
			a.markUnresolved(node)
			return nil
		}
		if loaded == nil {
			a.markUnresolved(node)
			return nil
		}

		bindName := seg
		if last && alias != "" && i == 0 {
			bindName = alias
		}
		kind := types.BindModule
		if bindName != seg {
			kind = types.BindAlias
		}
		// head binds into the importing scope, deeper segments into
		// the enclosing package
		if i == 0 && prevScope != nil && (alias == "" || len(dotted) == 1) {
			b := prevScope.Bind(a.reg, bindName, node, loaded, kind)
			a.reg.AddRef(node, b)
		} else if i > 0 {
			b := prevScope.Bind(a.reg, seg, node, loaded, types.BindModule)
			a.reg.AddRef(node, b)
		}
		prevScope = loaded.Scope
		mod = loaded
		base = dir
	}

	if alias != "" && len(dotted) > 1 {
		b := scope.Bind(a.reg, alias, node, mod, types.BindAlias)
		a.reg.AddRef(node, b)
	}
	return mod
}

// markResolved upgrades a node to resolved; a name that resolved once
// never re-enters the unresolved set, keeping the two sets disjoint.
func (a *Analyzer) markResolved(node ast.Node) {
	if node == nil {
		return
	}
	a.resolved[node] = struct{}{}
	delete(a.unresolved, node)
}

func (a *Analyzer) markUnresolved(node ast.Node) {
	if node == nil {
		return
	}
	if _, ok := node.(*ast.Synthetic); ok {
		return
	}
	if _, ok := a.resolved[node]; ok {
		return
	}
	a.unresolved[node] = struct{}{}
}

// locateModule walks the search path for the head segment of a dotted
// name: the directory of the importing file first, then the project
// root, then configured entries.
func (a *Analyzer) locateModule(head string) string {
	candidates := make([]string, 0, 2+len(a.opts.SearchPath))
	if a.cwd != "" {
		candidates = append(candidates, a.cwd)
	}
	if a.projectRoot != "" && a.projectRoot != a.cwd {
		candidates = append(candidates, a.projectRoot)
	}
	candidates = append(candidates, a.opts.SearchPath...)
	for _, dir := range candidates {
		if fileExists(filepath.Join(dir, head, project.InitFile)) {
			return dir
		}
		if fileExists(filepath.Join(dir, head+project.Suffix)) {
			return dir
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (a *Analyzer) syntheticNode(url string) ast.Node {
	return &ast.Synthetic{URL: url}
}

// loadFile parses and analyzes one file, memoized by qualified name.
// A file currently mid-load returns nil silently: the circular import
// is resolved by the partially-built module already installed in the
// global scope.
func (a *Analyzer) loadFile(path string) *types.Type {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil
	}
	abs = filepath.Clean(abs)
	if !fileExists(abs) {
		return nil
	}

	qname := project.ModuleQname(a.qnamePath(abs))

	if bs := a.globalScope.LookupLocal(qname); len(bs) > 0 {
		return bs[0].Type
	}
	if _, loading := a.importStack[abs]; loading {
		return nil
	}

	a.importStack[abs] = struct{}{}
	savedCwd := a.cwd
	a.cwd = filepath.Dir(abs)
	defer func() {
		a.cwd = savedCwd
		delete(a.importStack, abs)
	}()

	a.emit(Event{Path: abs})
	a.tracer.Emit(trace.LevelDetail, "load %s (%s)", abs, qname)

	bag := diag.NewBag(maxDiagnosticsPerFile)
	mod := a.src.GetAST(abs, diag.BagReporter{Bag: bag})
	if mod == nil {
		a.failedToParse[abs] = struct{}{}
		a.parseErrors[abs] = bag
		a.emit(Event{Path: abs, Failed: true, Done: true})
		return nil
	}
	if bag.Len() > 0 {
		a.parseErrors[abs] = bag
	}
	a.loadedFiles[abs] = struct{}{}

	mscope := types.NewScope(a.globalScope, types.ScopeModule)
	mscope.SetPath(qname)
	name := qname
	if i := strings.LastIndex(qname, "."); i >= 0 {
		name = qname[i+1:]
	}
	modType := a.factory.Module(name, qname, abs, mscope)

	// install before walking the body so circular imports observe the
	// partially-built module
	a.globalScope.Bind(a.reg, qname, mod, modType, types.BindModule)

	for _, stmt := range mod.Body {
		a.visitStmt(stmt, mscope)
	}

	a.emit(Event{Path: abs, Done: true})
	return modType
}

// qnamePath picks the path string qualified names derive from: project
// relative when possible, absolute otherwise.
func (a *Analyzer) qnamePath(abs string) string {
	if a.projectRoot != "" {
		if rel, err := filepath.Rel(a.projectRoot, abs); err == nil && !strings.HasPrefix(rel, "..") {
			return rel
		}
	}
	return abs
}
