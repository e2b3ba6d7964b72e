package analyzer

import (
	"pyscope/internal/ast"
	"pyscope/internal/diag"
	"pyscope/internal/types"
)

// visitStmt infers one statement. Statements have no value; their
// effect is the bindings and references they record.
func (a *Analyzer) visitStmt(s ast.Stmt, scope *types.Scope) {
	switch s := s.(type) {
	case *ast.Assign:
		t := a.visitExpr(s.Value, scope)
		for _, target := range s.Targets {
			a.bindTarget(target, t, scope)
		}
	case *ast.ExprStmt:
		a.visitExpr(s.X, scope)
	case *ast.Return:
		t := a.factory.None
		if s.Value != nil {
			t = a.visitExpr(s.Value, scope)
		}
		if n := len(a.retStack); n > 0 {
			a.retStack[n-1].t = a.factory.Union(a.retStack[n-1].t, t)
			a.retStack[n-1].seen = true
		}
	case *ast.Pass:
		// nothing to infer
	case *ast.Import:
		for _, item := range s.Items {
			a.LoadModule(item.Dotted, scope, item, item.Alias)
		}
	case *ast.ImportFrom:
		a.visitImportFrom(s, scope)
	case *ast.FunctionDef:
		a.visitFunctionDef(s, scope)
	case *ast.ClassDef:
		a.visitClassDef(s, scope)
	case *ast.If:
		a.visitExpr(s.Cond, scope)
		a.visitBody(s.Body, scope)
		a.visitBody(s.Orelse, scope)
	case *ast.While:
		a.visitExpr(s.Cond, scope)
		a.visitBody(s.Body, scope)
		a.visitBody(s.Orelse, scope)
	case *ast.For:
		iterT := a.visitExpr(s.Iter, scope)
		a.bindTarget(s.Target, a.elementOf(iterT), scope)
		a.visitBody(s.Body, scope)
		a.visitBody(s.Orelse, scope)
	}
}

func (a *Analyzer) visitBody(body []ast.Stmt, scope *types.Scope) {
	for _, s := range body {
		a.visitStmt(s, scope)
	}
}

func (a *Analyzer) visitImportFrom(s *ast.ImportFrom, scope *types.Scope) {
	// nil target scope: a from-import resolves the module without
	// binding its head name
	mod := a.LoadModule(s.Module, nil, s, "")
	if mod == nil || mod.Scope == nil {
		if !s.Star {
			for _, n := range s.Names {
				a.markUnresolved(n)
			}
		}
		return
	}
	if s.Star {
		scope.Merge(mod.Scope)
		return
	}
	for _, n := range s.Names {
		bs := mod.Scope.LookupLocal(n.Name)
		if bs == nil {
			a.markUnresolved(n)
			continue
		}
		a.markResolved(n)
		a.reg.AddRef(n, bs...)
		name := n.Name
		kind := types.BindVariable
		if n.Alias != "" {
			name = n.Alias
			kind = types.BindAlias
		}
		t := a.factory.Unknown
		for _, b := range bs {
			t = a.factory.Union(t, b.Type)
		}
		scope.Bind(a.reg, name, n, t, kind)
	}
}

func (a *Analyzer) visitFunctionDef(s *ast.FunctionDef, scope *types.Scope) {
	funScope := types.NewScope(scope, types.ScopeFunction)
	funScope.SetPath(scope.ExtendPath(s.Name.Name))
	fun := a.factory.Fun(s, s.Params, scope)
	fun.Scope = funScope

	for _, p := range s.Params {
		funScope.Bind(a.reg, p.Name, p, a.factory.Unknown, types.BindParameter)
	}
	// defaults evaluate in the enclosing scope and pre-widen their
	// parameters
	if n := len(s.Defaults); n > 0 {
		fun.Defaults = make([]*types.Type, n)
		offset := len(s.Params) - n
		for i, d := range s.Defaults {
			if d == nil {
				fun.Defaults[i] = a.factory.Unknown
				continue
			}
			dt := a.visitExpr(d, scope)
			fun.Defaults[i] = dt
			if offset+i >= 0 && offset+i < len(s.Params) {
				p := s.Params[offset+i]
				funScope.Bind(a.reg, p.Name, p, dt, types.BindParameter)
			}
		}
	}
	for _, dec := range s.Decorators {
		a.visitExpr(dec, scope)
	}

	kind := types.BindFunction
	if scope.Kind == types.ScopeClass {
		kind = types.BindMethod
		if s.Name.Name == "__init__" {
			kind = types.BindConstructor
		}
	}
	scope.Bind(a.reg, s.Name.Name, s.Name, fun, kind)
	a.uncalled[fun] = struct{}{}
}

func (a *Analyzer) visitClassDef(s *ast.ClassDef, scope *types.Scope) {
	var bases []*types.Type
	for _, be := range s.Bases {
		bt := a.visitExpr(be, scope)
		for _, v := range bt.Variants() {
			if v.Kind == types.KindClass {
				bases = append(bases, v)
			}
		}
	}
	classScope := types.NewScope(scope, types.ScopeClass)
	classScope.SetPath(scope.ExtendPath(s.Name.Name))
	class := a.factory.Class(s.Name.Name, classScope, bases...)
	scope.Bind(a.reg, s.Name.Name, s.Name, class, types.BindClass)
	a.visitBody(s.Body, classScope)
}

// bindTarget installs an assignment target, destructuring tuples and
// lists against the value type.
func (a *Analyzer) bindTarget(target ast.Expr, t *types.Type, scope *types.Scope) {
	switch target := target.(type) {
	case *ast.Ident:
		kind := types.BindVariable
		if scope.Kind == types.ScopeClass {
			kind = types.BindAttribute
		}
		b := scope.Bind(a.reg, target.Name, target, t, kind)
		a.reg.AddRef(target, b)
		a.markResolved(target)
	case *ast.Attribute:
		recv := a.visitExpr(target.Value, scope)
		bound := false
		for _, v := range recv.Variants() {
			if v.Scope == nil {
				continue
			}
			b := v.Scope.Bind(a.reg, target.Attr.Name, target.Attr, t, types.BindAttribute)
			a.reg.AddRef(target.Attr, b)
			bound = true
		}
		if bound {
			a.markResolved(target.Attr)
		} else {
			a.markUnresolved(target.Attr)
		}
	case *ast.Subscript:
		a.visitExpr(target.Value, scope)
		if target.Index != nil {
			a.visitExpr(target.Index, scope)
		}
	case *ast.TupleExpr:
		a.bindUnpacked(target.Elts, t, scope)
	case *ast.ListExpr:
		a.bindUnpacked(target.Elts, t, scope)
	}
}

func (a *Analyzer) bindUnpacked(targets []ast.Expr, t *types.Type, scope *types.Scope) {
	for i, el := range targets {
		et := a.factory.Unknown
		switch {
		case t.Kind == types.KindTuple && i < len(t.Elems):
			et = t.Elems[i]
		case t.Kind == types.KindList || t.Kind == types.KindSet:
			et = t.Elem
		case t.Kind == types.KindDict:
			et = t.Key
		}
		a.bindTarget(el, et, scope)
	}
}

// elementOf yields the type produced by iterating a value.
func (a *Analyzer) elementOf(t *types.Type) *types.Type {
	out := a.factory.Unknown
	for _, v := range t.Variants() {
		switch v.Kind {
		case types.KindList, types.KindSet:
			out = a.factory.Union(out, v.Elem)
		case types.KindDict:
			out = a.factory.Union(out, v.Key)
		case types.KindTuple:
			out = a.factory.Union(out, a.factory.UnionAll(v.Elems...))
		case types.KindStr:
			out = a.factory.Union(out, a.factory.Str)
		case types.KindBytes:
			out = a.factory.Union(out, a.factory.Bytes)
		}
	}
	return out
}

// visitExpr infers one expression.
func (a *Analyzer) visitExpr(e ast.Expr, scope *types.Scope) *types.Type {
	f := a.factory
	switch e := e.(type) {
	case *ast.IntLit:
		return f.Int
	case *ast.FloatLit:
		return f.Float
	case *ast.ComplexLit:
		return f.Complex
	case *ast.StrLit:
		return f.Str
	case *ast.BytesLit:
		return f.Bytes
	case *ast.BoolLit:
		return f.Bool
	case *ast.NoneLit:
		return f.None
	case *ast.Ident:
		bs := scope.Lookup(e.Name)
		if bs == nil {
			a.markUnresolved(e)
			return f.Unknown
		}
		a.markResolved(e)
		a.reg.AddRef(e, bs...)
		t := f.Unknown
		for _, b := range bs {
			t = f.Union(t, b.Type)
		}
		return t
	case *ast.Attribute:
		recv := a.visitExpr(e.Value, scope)
		return a.inferAttribute(recv, e.Attr, false)
	case *ast.Call:
		return a.visitCall(e, scope)
	case *ast.BinOp:
		return a.visitBinOp(e, scope)
	case *ast.UnaryOp:
		t := a.visitExpr(e.Operand, scope)
		if e.Op == "not" {
			return f.Bool
		}
		return t
	case *ast.Subscript:
		return a.visitSubscript(e, scope)
	case *ast.ListExpr:
		elem := f.Unknown
		for _, el := range e.Elts {
			elem = f.Union(elem, a.visitExpr(el, scope))
		}
		return f.List(elem)
	case *ast.SetExpr:
		elem := f.Unknown
		for _, el := range e.Elts {
			elem = f.Union(elem, a.visitExpr(el, scope))
		}
		return f.Set(elem)
	case *ast.TupleExpr:
		elems := make([]*types.Type, len(e.Elts))
		for i, el := range e.Elts {
			elems[i] = a.visitExpr(el, scope)
		}
		return f.Tuple(elems...)
	case *ast.DictExpr:
		key, value := f.Unknown, f.Unknown
		for _, k := range e.Keys {
			key = f.Union(key, a.visitExpr(k, scope))
		}
		for _, v := range e.Values {
			value = f.Union(value, a.visitExpr(v, scope))
		}
		return f.Dict(key, value)
	case *ast.Comp:
		return a.visitComp(e, scope)
	case nil:
		return f.Unknown
	}
	return f.Unknown
}

// inferAttribute resolves name against every variant of the receiver
// type. When the receiver is an instance and the attribute resolves to
// a function in call position, the function becomes a bound method.
func (a *Analyzer) inferAttribute(recv *types.Type, attr *ast.Ident, callee bool) *types.Type {
	f := a.factory
	result := f.Unknown
	found := false
	for _, v := range recv.Variants() {
		if v.Scope == nil {
			continue
		}
		bs := v.Scope.LookupAttribute(attr.Name)
		if bs == nil {
			continue
		}
		found = true
		a.reg.AddRef(attr, bs...)
		for _, b := range bs {
			if callee && v.Kind == types.KindInstance && b.Type != nil && b.Type.Kind == types.KindFun {
				b.Type.Self = v
			}
			result = f.Union(result, b.Type)
		}
	}
	if found {
		a.markResolved(attr)
	} else {
		a.markUnresolved(attr)
	}
	return result
}

func (a *Analyzer) visitCall(e *ast.Call, scope *types.Scope) *types.Type {
	f := a.factory

	var calleeT *types.Type
	if attr, ok := e.Func.(*ast.Attribute); ok {
		recv := a.visitExpr(attr.Value, scope)
		calleeT = a.inferAttribute(recv, attr.Attr, true)
	} else {
		calleeT = a.visitExpr(e.Func, scope)
	}

	args := make([]*types.Type, len(e.Args))
	for i, arg := range e.Args {
		args[i] = a.visitExpr(arg, scope)
	}
	kwargs := make(map[string]*types.Type, len(e.Keywords))
	for _, kw := range e.Keywords {
		kwargs[kw.Name] = a.visitExpr(kw.Value, scope)
	}

	if calleeT.IsUnknown() {
		return f.Unknown
	}

	result := f.Unknown
	callable := false
	for _, v := range calleeT.Variants() {
		switch v.Kind {
		case types.KindFun:
			callable = true
			result = f.Union(result, a.apply(v, args, kwargs))
		case types.KindClass:
			callable = true
			inst := f.Instance(v)
			if ctor := v.Scope.LookupAttribute("__init__"); ctor != nil {
				for _, b := range ctor {
					if b.Type != nil && b.Type.Kind == types.KindFun {
						b.Type.Self = inst
						a.apply(b.Type, args, kwargs)
					}
				}
			}
			result = f.Union(result, inst)
		case types.KindUnknown:
			callable = true
		}
	}
	if !callable {
		sp := e.Span()
		a.semanticBag(sp.File).Add(diag.Diagnostic{
			Severity: diag.SevError,
			Code:     diag.SemNotCallable,
			Message:  "calling a non-function value: " + calleeT.String(),
			Primary:  sp,
		})
		return f.Unknown
	}
	return result
}

func (a *Analyzer) visitBinOp(e *ast.BinOp, scope *types.Scope) *types.Type {
	f := a.factory
	l := a.visitExpr(e.Left, scope)
	r := a.visitExpr(e.Right, scope)
	switch {
	case e.Op == "and" || e.Op == "or":
		return f.Union(l, r)
	case ast.IsCompareOp(e.Op):
		return f.Bool
	}
	if l.IsUnknown() || r.IsUnknown() {
		return f.Unknown
	}
	lk, rk := l.Kind, r.Kind
	// bool behaves as int in arithmetic
	if lk == types.KindBool {
		lk = types.KindInt
	}
	if rk == types.KindBool {
		rk = types.KindInt
	}
	switch {
	case lk == types.KindComplex || rk == types.KindComplex:
		if isNumericKind(lk) && isNumericKind(rk) {
			return f.Complex
		}
	case lk == types.KindFloat || rk == types.KindFloat:
		if isNumericKind(lk) && isNumericKind(rk) {
			return f.Float
		}
	case lk == types.KindInt && rk == types.KindInt:
		if e.Op == "/" {
			return f.Float
		}
		return f.Int
	}
	switch e.Op {
	case "+":
		switch {
		case lk == types.KindStr && rk == types.KindStr:
			return f.Str
		case lk == types.KindBytes && rk == types.KindBytes:
			return f.Bytes
		case lk == types.KindList && rk == types.KindList:
			return f.List(f.Union(l.Elem, r.Elem))
		case lk == types.KindTuple && rk == types.KindTuple:
			return f.Tuple(append(append([]*types.Type{}, l.Elems...), r.Elems...)...)
		}
	case "*":
		switch {
		case lk == types.KindStr && rk == types.KindInt:
			return f.Str
		case lk == types.KindInt && rk == types.KindStr:
			return f.Str
		case lk == types.KindList && rk == types.KindInt:
			return l
		}
	case "%":
		if lk == types.KindStr {
			return f.Str
		}
	}
	return f.Unknown
}

func isNumericKind(k types.Kind) bool {
	return k == types.KindInt || k == types.KindFloat || k == types.KindComplex
}

func (a *Analyzer) visitSubscript(e *ast.Subscript, scope *types.Scope) *types.Type {
	f := a.factory
	t := a.visitExpr(e.Value, scope)
	if e.Index != nil {
		a.visitExpr(e.Index, scope)
	}
	result := f.Unknown
	for _, v := range t.Variants() {
		switch v.Kind {
		case types.KindList:
			result = f.Union(result, v.Elem)
		case types.KindDict:
			result = f.Union(result, v.Value)
		case types.KindTuple:
			result = f.Union(result, f.UnionAll(v.Elems...))
		case types.KindStr:
			result = f.Union(result, f.Str)
		case types.KindBytes:
			result = f.Union(result, f.Bytes)
		}
	}
	return result
}

// visitComp infers a comprehension inside its own block scope.
func (a *Analyzer) visitComp(e *ast.Comp, scope *types.Scope) *types.Type {
	f := a.factory
	block := types.NewScope(scope, types.ScopeBlock)
	block.SetPath(scope.Path())
	iterT := a.visitExpr(e.Iter, scope)
	a.bindTarget(e.Target, a.elementOf(iterT), block)
	for _, cond := range e.Conds {
		a.visitExpr(cond, block)
	}
	switch e.Kind {
	case ast.CompList:
		return f.List(a.visitExpr(e.Elt, block))
	case ast.CompSet:
		return f.Set(a.visitExpr(e.Elt, block))
	case ast.CompDict:
		key := a.visitExpr(e.Key, block)
		return f.Dict(key, a.visitExpr(e.Elt, block))
	}
	return f.Unknown
}
