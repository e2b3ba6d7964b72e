// Package types holds the inference lattice: the type universe, the
// interning factory, lexical scopes and name bindings. Scopes hold
// bindings, bindings hold types, and class/module/function types own
// scopes again, so the three live in one package and reference each
// other directly; the factory hands out stable identities so structural
// equality can be tested with ==.
package types

import (
	"fmt"
	"strings"

	"pyscope/internal/ast"
)

// Kind discriminates the type universe.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInt
	KindFloat
	KindBool
	KindStr
	KindBytes
	KindNone
	KindComplex
	KindList
	KindDict
	KindTuple
	KindSet
	KindFun
	KindClass
	KindInstance
	KindModule
	KindUnion
)

// Type is one member of the type universe. Which fields are meaningful
// depends on Kind; everything else stays zero. Types are created only
// through a Factory, which assigns the id used for canonical ordering
// and interning.
type Type struct {
	Kind Kind
	id   uint32

	Elem    *Type   // List, Set
	Key     *Type   // Dict
	Value   *Type   // Dict
	Elems   []*Type // Tuple
	Members []*Type // Union; canonical id order, len >= 2

	Name  string // Class, Module
	Qname string // Module qualified name
	File  string // Module source path, empty for builtins
	Scope *Scope // Class, Module, Fun: the namespace it introduces

	// Fun
	Def      *ast.FunctionDef
	Params   []*ast.Param
	Defaults []*Type
	Return   *Type
	Env      *Scope // definition environment
	Self     *Type  // receiver instance, set at bound attribute access and when a class call runs __init__

	ClassOf *Type // Instance: the class it instantiates

	Builtin bool
}

// ID returns the factory-assigned identity of the type.
func (t *Type) ID() uint32 { return t.id }

func (t *Type) IsUnknown() bool { return t == nil || t.Kind == KindUnknown }

// HasScope reports whether the type introduces a namespace.
func (t *Type) HasScope() bool { return t != nil && t.Scope != nil }

func (t *Type) String() string {
	if t == nil {
		return "?"
	}
	switch t.Kind {
	case KindUnknown:
		return "?"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindStr:
		return "str"
	case KindBytes:
		return "bytes"
	case KindNone:
		return "None"
	case KindComplex:
		return "complex"
	case KindList:
		return "list[" + t.Elem.String() + "]"
	case KindSet:
		return "set[" + t.Elem.String() + "]"
	case KindDict:
		return "dict[" + t.Key.String() + ", " + t.Value.String() + "]"
	case KindTuple:
		parts := make([]string, len(t.Elems))
		for i, e := range t.Elems {
			parts[i] = e.String()
		}
		return "tuple[" + strings.Join(parts, ", ") + "]"
	case KindUnion:
		parts := make([]string, len(t.Members))
		for i, m := range t.Members {
			parts[i] = m.String()
		}
		return "Union[" + strings.Join(parts, " | ") + "]"
	case KindFun:
		name := "<lambda>"
		if t.Def != nil && t.Def.Name != nil {
			name = t.Def.Name.Name
		}
		return "fun " + name
	case KindClass:
		return "class " + t.Name
	case KindInstance:
		if t.ClassOf != nil {
			return t.ClassOf.Name
		}
		return "instance"
	case KindModule:
		return "module " + t.Qname
	}
	return fmt.Sprintf("kind(%d)", t.Kind)
}

// Variants unfolds a union into its members; any other type yields
// itself. The returned slice must not be modified.
func (t *Type) Variants() []*Type {
	if t == nil {
		return nil
	}
	if t.Kind == KindUnion {
		return t.Members
	}
	return []*Type{t}
}
