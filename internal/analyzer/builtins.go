package analyzer

import (
	"pyscope/internal/types"
)

// seedBuiltins installs the built-in modules before any user code is
// analyzed. Every binding is marked builtin so reporting skips it; the
// "builtins" module additionally merges into the global scope so its
// names resolve without an import.
func (a *Analyzer) seedBuiltins() {
	f := a.factory

	builtins := a.newBuiltinModule("builtins")
	scope := builtins.Scope
	a.builtinFun(scope, "print", f.None)
	a.builtinFun(scope, "len", f.Int)
	a.builtinFun(scope, "range", f.List(f.Int))
	a.builtinFun(scope, "abs", f.Union(f.Int, f.Float))
	a.builtinFun(scope, "repr", f.Str)
	a.builtinFun(scope, "sorted", f.List(f.Unknown))
	a.builtinFun(scope, "isinstance", f.Bool)
	a.builtinFun(scope, "hasattr", f.Bool)
	a.builtinFun(scope, "int", f.Int)
	a.builtinFun(scope, "float", f.Float)
	a.builtinFun(scope, "bool", f.Bool)
	a.builtinFun(scope, "str", f.Str)
	a.builtinFun(scope, "bytes", f.Bytes)
	a.builtinFun(scope, "list", f.List(f.Unknown))
	a.builtinFun(scope, "dict", f.Dict(f.Unknown, f.Unknown))
	a.builtinFun(scope, "set", f.Set(f.Unknown))
	a.builtinFun(scope, "tuple", f.Tuple())
	a.builtinClass(scope, "object", nil)
	objectBinding := scope.LookupLocal("object")
	var object *types.Type
	if len(objectBinding) > 0 {
		object = objectBinding[0].Type
	}
	a.builtinClass(scope, "Exception", object)
	fileClass := a.builtinClass(scope, "file", object)
	a.builtinFun(fileClass.Scope, "read", f.Str)
	a.builtinFun(fileClass.Scope, "readlines", f.List(f.Str))
	a.builtinFun(fileClass.Scope, "write", f.None)
	a.builtinFun(fileClass.Scope, "close", f.None)
	a.builtinFun(scope, "open", f.Instance(fileClass))

	math := a.newBuiltinModule("math")
	a.builtinVar(math.Scope, "pi", f.Float)
	a.builtinVar(math.Scope, "e", f.Float)
	a.builtinFun(math.Scope, "sqrt", f.Float)
	a.builtinFun(math.Scope, "floor", f.Int)
	a.builtinFun(math.Scope, "ceil", f.Int)
	a.builtinFun(math.Scope, "pow", f.Float)

	osMod := a.newBuiltinModule("os")
	a.builtinFun(osMod.Scope, "getcwd", f.Str)
	a.builtinFun(osMod.Scope, "listdir", f.List(f.Str))
	a.builtinVar(osMod.Scope, "sep", f.Str)
	a.builtinVar(osMod.Scope, "environ", f.Dict(f.Str, f.Str))

	sys := a.newBuiltinModule("sys")
	a.builtinVar(sys.Scope, "argv", f.List(f.Str))
	a.builtinVar(sys.Scope, "path", f.List(f.Str))
	a.builtinVar(sys.Scope, "platform", f.Str)
	a.builtinFun(sys.Scope, "exit", f.None)

	re := a.newBuiltinModule("re")
	a.builtinFun(re.Scope, "match", f.Unknown)
	a.builtinFun(re.Scope, "search", f.Unknown)
	a.builtinFun(re.Scope, "compile", f.Unknown)
	a.builtinFun(re.Scope, "sub", f.Str)

	// builtin names resolve without an import
	a.globalScope.Merge(scope)
}

func (a *Analyzer) newBuiltinModule(name string) *types.Type {
	scope := types.NewScope(a.globalScope, types.ScopeModule)
	scope.SetPath(name)
	mod := a.factory.Module(name, name, "", scope)
	mod.Builtin = true
	b := a.globalScope.Bind(a.reg, name, a.syntheticNode("builtin:"+name), mod, types.BindModule)
	b.Builtin = true
	a.builtinModules[name] = mod
	return mod
}

func (a *Analyzer) builtinFun(scope *types.Scope, name string, ret *types.Type) {
	fun := a.factory.Fun(nil, nil, scope)
	fun.Return = ret
	fun.Builtin = true
	b := scope.Bind(a.reg, name, a.syntheticNode("builtin:"+scope.Path()+"."+name), fun, types.BindFunction)
	b.Builtin = true
}

func (a *Analyzer) builtinClass(scope *types.Scope, name string, base *types.Type) *types.Type {
	classScope := types.NewScope(scope, types.ScopeClass)
	classScope.SetPath(scope.ExtendPath(name))
	var class *types.Type
	if base != nil {
		class = a.factory.Class(name, classScope, base)
	} else {
		class = a.factory.Class(name, classScope)
	}
	class.Builtin = true
	b := scope.Bind(a.reg, name, a.syntheticNode("builtin:"+scope.Path()+"."+name), class, types.BindClass)
	b.Builtin = true
	return class
}

func (a *Analyzer) builtinVar(scope *types.Scope, name string, t *types.Type) {
	b := scope.Bind(a.reg, name, a.syntheticNode("builtin:"+scope.Path()+"."+name), t, types.BindVariable)
	b.Builtin = true
}
