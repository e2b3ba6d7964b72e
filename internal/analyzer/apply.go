package analyzer

import (
	"fmt"
	"sort"

	"pyscope/internal/trace"
	"pyscope/internal/types"
)

// retFrame collects return types while a body is under analysis.
type retFrame struct {
	t    *types.Type
	seen bool
}

// applyKey freezes a (function, argument types) pair for the call
// stack. Interned types make the id list canonical.
func applyKey(fun *types.Type, args []*types.Type) string {
	key := fmt.Sprintf("f%d(", fun.ID())
	for _, t := range args {
		if t == nil {
			key += "?,"
			continue
		}
		key += fmt.Sprintf("%d,", t.ID())
	}
	return key + ")"
}

// apply analyzes a function body under concrete argument types,
// widening the parameter bindings and the recorded return type. A
// re-entrant application of the same (fun, args) pair yields the
// currently-assumed return type, which breaks recursion; the uncalled
// fixed point widens it afterwards.
func (a *Analyzer) apply(fun *types.Type, args []*types.Type, kwargs map[string]*types.Type) *types.Type {
	f := a.factory
	delete(a.uncalled, fun)

	if fun.Def == nil {
		// builtin function: the seeded return type is all there is
		return fun.Return
	}

	key := applyKey(fun, args)
	if _, mid := a.callStack[key]; mid {
		return fun.Return
	}
	a.callStack[key] = struct{}{}
	defer delete(a.callStack, key)

	if a.tracer.Enabled(trace.LevelDebug) {
		a.tracer.Emit(trace.LevelDebug, "apply %s%s", fun, key)
	}

	frame := fun.Scope
	params := fun.Params
	actuals := args
	if fun.Self != nil && len(params) > 0 {
		frame.Bind(a.reg, params[0].Name, params[0], fun.Self, types.BindParameter)
		params = params[1:]
	}
	defaultOffset := len(fun.Params) - len(fun.Defaults)
	for i, p := range params {
		t := f.Unknown
		switch {
		case i < len(actuals) && actuals[i] != nil:
			t = actuals[i]
		case kwargs[p.Name] != nil:
			t = kwargs[p.Name]
		default:
			// fall back to the default expression's type
			idxAll := i
			if fun.Self != nil {
				idxAll++
			}
			if di := idxAll - defaultOffset; di >= 0 && di < len(fun.Defaults) {
				t = fun.Defaults[di]
			}
		}
		frame.Bind(a.reg, p.Name, p, t, types.BindParameter)
	}

	a.retStack = append(a.retStack, retFrame{t: f.Unknown})
	a.visitBody(fun.Def.Body, frame)
	top := a.retStack[len(a.retStack)-1]
	a.retStack = a.retStack[:len(a.retStack)-1]
	ret := top.t
	if !top.seen {
		// a body with no return statement yields None
		ret = f.None
	}

	fun.Return = f.Union(fun.Return, ret)
	a.calledFunctions++
	return ret
}

// ApplyUncalled drives every never-called function once with Unknown
// arguments, repeating while analysis of those bodies surfaces new
// function definitions. Each pass removes its targets and only newly
// seen functions re-enter the set, so the loop is bounded by the total
// number of definitions.
func (a *Analyzer) ApplyUncalled() {
	for len(a.uncalled) > 0 {
		snapshot := make([]*types.Type, 0, len(a.uncalled))
		for fun := range a.uncalled {
			snapshot = append(snapshot, fun)
		}
		sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].ID() < snapshot[j].ID() })
		for _, fun := range snapshot {
			args := make([]*types.Type, len(fun.Params))
			for i := range args {
				args[i] = a.factory.Unknown
			}
			a.apply(fun, args, nil)
		}
	}
}
