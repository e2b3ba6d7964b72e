package astcache

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"pyscope/internal/ast"
)

// Node tags for the flattened tree. The set is append-only; reordering
// requires a schema bump.
const (
	tagNil uint8 = iota
	tagModule
	tagAssign
	tagExprStmt
	tagReturn
	tagPass
	tagImport
	tagImportFrom
	tagFunctionDef
	tagClassDef
	tagIf
	tagWhile
	tagFor
	tagIdent
	tagIntLit
	tagFloatLit
	tagComplexLit
	tagStrLit
	tagBytesLit
	tagBoolLit
	tagNoneLit
	tagAttribute
	tagCall
	tagBinOp
	tagUnaryOp
	tagSubscript
	tagList
	tagTuple
	tagSet
	tagDict
	tagComp
)

// writer wraps the msgpack encoder with a sticky error.
type writer struct {
	enc  *msgpack.Encoder
	file string
	err  error
}

func (w *writer) u8(v uint8) {
	if w.err == nil {
		w.err = w.enc.EncodeUint8(v)
	}
}

func (w *writer) u16(v uint16) {
	if w.err == nil {
		w.err = w.enc.EncodeUint16(v)
	}
}

func (w *writer) u32(v uint32) {
	if w.err == nil {
		w.err = w.enc.EncodeUint32(v)
	}
}

func (w *writer) str(v string) {
	if w.err == nil {
		w.err = w.enc.EncodeString(v)
	}
}

func (w *writer) boolean(v bool) {
	if w.err == nil {
		w.err = w.enc.EncodeBool(v)
	}
}

func (w *writer) length(n int) {
	if w.err == nil {
		w.err = w.enc.EncodeArrayLen(n)
	}
}

func (w *writer) pos(p ast.Pos) {
	w.u32(p.StartOff)
	w.u32(p.EndOff)
}

func encodeModule(enc *msgpack.Encoder, m *ast.Module) error {
	w := &writer{enc: enc, file: m.File}
	w.u16(cacheSchemaVersion)
	w.str(m.File)
	w.pos(m.Pos)
	w.stmts(m.Body)
	return w.err
}

func (w *writer) stmts(ss []ast.Stmt) {
	w.length(len(ss))
	for _, s := range ss {
		w.stmt(s)
	}
}

func (w *writer) exprs(es []ast.Expr) {
	w.length(len(es))
	for _, e := range es {
		w.expr(e)
	}
}

func (w *writer) stmt(s ast.Stmt) {
	if w.err != nil {
		return
	}
	switch s := s.(type) {
	case *ast.Assign:
		w.u8(tagAssign)
		w.pos(s.Pos)
		w.exprs(s.Targets)
		w.expr(s.Value)
	case *ast.ExprStmt:
		w.u8(tagExprStmt)
		w.pos(s.Pos)
		w.expr(s.X)
	case *ast.Return:
		w.u8(tagReturn)
		w.pos(s.Pos)
		w.expr(s.Value)
	case *ast.Pass:
		w.u8(tagPass)
		w.pos(s.Pos)
	case *ast.Import:
		w.u8(tagImport)
		w.pos(s.Pos)
		w.length(len(s.Items))
		for _, item := range s.Items {
			w.pos(item.Pos)
			w.length(len(item.Dotted))
			for _, seg := range item.Dotted {
				w.str(seg)
			}
			w.str(item.Alias)
		}
	case *ast.ImportFrom:
		w.u8(tagImportFrom)
		w.pos(s.Pos)
		w.length(len(s.Module))
		for _, seg := range s.Module {
			w.str(seg)
		}
		w.boolean(s.Star)
		w.length(len(s.Names))
		for _, n := range s.Names {
			w.pos(n.Pos)
			w.str(n.Name)
			w.str(n.Alias)
		}
	case *ast.FunctionDef:
		w.u8(tagFunctionDef)
		w.pos(s.Pos)
		w.expr(s.Name)
		w.length(len(s.Params))
		for _, prm := range s.Params {
			w.pos(prm.Pos)
			w.str(prm.Name)
		}
		w.exprs(s.Defaults)
		w.exprs(s.Decorators)
		w.stmts(s.Body)
	case *ast.ClassDef:
		w.u8(tagClassDef)
		w.pos(s.Pos)
		w.expr(s.Name)
		w.exprs(s.Bases)
		w.stmts(s.Body)
	case *ast.If:
		w.u8(tagIf)
		w.pos(s.Pos)
		w.expr(s.Cond)
		w.stmts(s.Body)
		w.stmts(s.Orelse)
	case *ast.While:
		w.u8(tagWhile)
		w.pos(s.Pos)
		w.expr(s.Cond)
		w.stmts(s.Body)
		w.stmts(s.Orelse)
	case *ast.For:
		w.u8(tagFor)
		w.pos(s.Pos)
		w.expr(s.Target)
		w.expr(s.Iter)
		w.stmts(s.Body)
		w.stmts(s.Orelse)
	default:
		w.err = fmt.Errorf("astcache: unsupported statement %T", s)
	}
}

func (w *writer) expr(e ast.Expr) {
	if w.err != nil {
		return
	}
	if e == nil {
		w.u8(tagNil)
		return
	}
	switch e := e.(type) {
	case *ast.Ident:
		w.u8(tagIdent)
		w.pos(e.Pos)
		w.str(e.Name)
	case *ast.IntLit:
		w.u8(tagIntLit)
		w.pos(e.Pos)
		w.str(e.Text)
	case *ast.FloatLit:
		w.u8(tagFloatLit)
		w.pos(e.Pos)
		w.str(e.Text)
	case *ast.ComplexLit:
		w.u8(tagComplexLit)
		w.pos(e.Pos)
		w.str(e.Text)
	case *ast.StrLit:
		w.u8(tagStrLit)
		w.pos(e.Pos)
		w.str(e.Value)
	case *ast.BytesLit:
		w.u8(tagBytesLit)
		w.pos(e.Pos)
		w.str(e.Value)
	case *ast.BoolLit:
		w.u8(tagBoolLit)
		w.pos(e.Pos)
		w.boolean(e.Value)
	case *ast.NoneLit:
		w.u8(tagNoneLit)
		w.pos(e.Pos)
	case *ast.Attribute:
		w.u8(tagAttribute)
		w.pos(e.Pos)
		w.expr(e.Value)
		w.expr(e.Attr)
	case *ast.Call:
		w.u8(tagCall)
		w.pos(e.Pos)
		w.expr(e.Func)
		w.exprs(e.Args)
		w.length(len(e.Keywords))
		for _, kw := range e.Keywords {
			w.pos(kw.Pos)
			w.str(kw.Name)
			w.expr(kw.Value)
		}
	case *ast.BinOp:
		w.u8(tagBinOp)
		w.pos(e.Pos)
		w.expr(e.Left)
		w.str(e.Op)
		w.expr(e.Right)
	case *ast.UnaryOp:
		w.u8(tagUnaryOp)
		w.pos(e.Pos)
		w.str(e.Op)
		w.expr(e.Operand)
	case *ast.Subscript:
		w.u8(tagSubscript)
		w.pos(e.Pos)
		w.expr(e.Value)
		w.expr(e.Index)
	case *ast.ListExpr:
		w.u8(tagList)
		w.pos(e.Pos)
		w.exprs(e.Elts)
	case *ast.TupleExpr:
		w.u8(tagTuple)
		w.pos(e.Pos)
		w.exprs(e.Elts)
	case *ast.SetExpr:
		w.u8(tagSet)
		w.pos(e.Pos)
		w.exprs(e.Elts)
	case *ast.DictExpr:
		w.u8(tagDict)
		w.pos(e.Pos)
		w.exprs(e.Keys)
		w.exprs(e.Values)
	case *ast.Comp:
		w.u8(tagComp)
		w.pos(e.Pos)
		w.u8(uint8(e.Kind))
		w.expr(e.Elt)
		w.expr(e.Key)
		w.expr(e.Target)
		w.expr(e.Iter)
		w.exprs(e.Conds)
	default:
		w.err = fmt.Errorf("astcache: unsupported expression %T", e)
	}
}

// reader wraps the msgpack decoder with a sticky error.
type reader struct {
	dec  *msgpack.Decoder
	file string
	err  error
}

func (r *reader) u8() uint8 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.DecodeUint8()
	r.err = err
	return v
}

func (r *reader) u16() uint16 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.DecodeUint16()
	r.err = err
	return v
}

func (r *reader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.DecodeUint32()
	r.err = err
	return v
}

func (r *reader) str() string {
	if r.err != nil {
		return ""
	}
	v, err := r.dec.DecodeString()
	r.err = err
	return v
}

func (r *reader) boolean() bool {
	if r.err != nil {
		return false
	}
	v, err := r.dec.DecodeBool()
	r.err = err
	return v
}

func (r *reader) length() int {
	if r.err != nil {
		return 0
	}
	n, err := r.dec.DecodeArrayLen()
	if err != nil {
		r.err = err
		return 0
	}
	if n < 0 {
		r.err = fmt.Errorf("astcache: negative array length")
		return 0
	}
	return n
}

func (r *reader) pos() ast.Pos {
	start := r.u32()
	end := r.u32()
	return ast.Pos{File: r.file, StartOff: start, EndOff: end}
}

func decodeModule(dec *msgpack.Decoder) (*ast.Module, error) {
	r := &reader{dec: dec}
	if v := r.u16(); r.err != nil || v != cacheSchemaVersion {
		if r.err == nil {
			r.err = fmt.Errorf("astcache: schema mismatch: %d", v)
		}
		return nil, r.err
	}
	r.file = r.str()
	pos := r.pos()
	body := r.stmts()
	if r.err != nil {
		return nil, r.err
	}
	return &ast.Module{Pos: pos, Body: body}, nil
}

func (r *reader) stmts() []ast.Stmt {
	n := r.length()
	if n == 0 {
		return nil
	}
	out := make([]ast.Stmt, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, r.stmt())
	}
	return out
}

func (r *reader) exprs() []ast.Expr {
	n := r.length()
	if n == 0 {
		return nil
	}
	out := make([]ast.Expr, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, r.expr())
	}
	return out
}

func (r *reader) ident() *ast.Ident {
	e := r.expr()
	id, ok := e.(*ast.Ident)
	if !ok && r.err == nil {
		r.err = fmt.Errorf("astcache: expected identifier node, got %T", e)
	}
	return id
}

func (r *reader) stmt() ast.Stmt {
	tag := r.u8()
	if r.err != nil {
		return nil
	}
	switch tag {
	case tagAssign:
		return &ast.Assign{Pos: r.pos(), Targets: r.exprs(), Value: r.expr()}
	case tagExprStmt:
		return &ast.ExprStmt{Pos: r.pos(), X: r.expr()}
	case tagReturn:
		return &ast.Return{Pos: r.pos(), Value: r.expr()}
	case tagPass:
		return &ast.Pass{Pos: r.pos()}
	case tagImport:
		imp := &ast.Import{Pos: r.pos()}
		n := r.length()
		for i := 0; i < n; i++ {
			item := &ast.ImportItem{Pos: r.pos()}
			segs := r.length()
			for j := 0; j < segs; j++ {
				item.Dotted = append(item.Dotted, r.str())
			}
			item.Alias = r.str()
			imp.Items = append(imp.Items, item)
		}
		return imp
	case tagImportFrom:
		imp := &ast.ImportFrom{Pos: r.pos()}
		segs := r.length()
		for i := 0; i < segs; i++ {
			imp.Module = append(imp.Module, r.str())
		}
		imp.Star = r.boolean()
		n := r.length()
		for i := 0; i < n; i++ {
			imp.Names = append(imp.Names, &ast.ImportFromName{
				Pos: r.pos(), Name: r.str(), Alias: r.str(),
			})
		}
		return imp
	case tagFunctionDef:
		fd := &ast.FunctionDef{Pos: r.pos(), Name: r.ident()}
		n := r.length()
		for i := 0; i < n; i++ {
			fd.Params = append(fd.Params, &ast.Param{Pos: r.pos(), Name: r.str()})
		}
		fd.Defaults = r.exprs()
		fd.Decorators = r.exprs()
		fd.Body = r.stmts()
		return fd
	case tagClassDef:
		return &ast.ClassDef{Pos: r.pos(), Name: r.ident(), Bases: r.exprs(), Body: r.stmts()}
	case tagIf:
		return &ast.If{Pos: r.pos(), Cond: r.expr(), Body: r.stmts(), Orelse: r.stmts()}
	case tagWhile:
		return &ast.While{Pos: r.pos(), Cond: r.expr(), Body: r.stmts(), Orelse: r.stmts()}
	case tagFor:
		return &ast.For{Pos: r.pos(), Target: r.expr(), Iter: r.expr(), Body: r.stmts(), Orelse: r.stmts()}
	}
	r.err = fmt.Errorf("astcache: unknown statement tag %d", tag)
	return nil
}

func (r *reader) expr() ast.Expr {
	tag := r.u8()
	if r.err != nil {
		return nil
	}
	switch tag {
	case tagNil:
		return nil
	case tagIdent:
		return &ast.Ident{Pos: r.pos(), Name: r.str()}
	case tagIntLit:
		return &ast.IntLit{Pos: r.pos(), Text: r.str()}
	case tagFloatLit:
		return &ast.FloatLit{Pos: r.pos(), Text: r.str()}
	case tagComplexLit:
		return &ast.ComplexLit{Pos: r.pos(), Text: r.str()}
	case tagStrLit:
		return &ast.StrLit{Pos: r.pos(), Value: r.str()}
	case tagBytesLit:
		return &ast.BytesLit{Pos: r.pos(), Value: r.str()}
	case tagBoolLit:
		return &ast.BoolLit{Pos: r.pos(), Value: r.boolean()}
	case tagNoneLit:
		return &ast.NoneLit{Pos: r.pos()}
	case tagAttribute:
		return &ast.Attribute{Pos: r.pos(), Value: r.expr(), Attr: r.ident()}
	case tagCall:
		call := &ast.Call{Pos: r.pos(), Func: r.expr(), Args: r.exprs()}
		n := r.length()
		for i := 0; i < n; i++ {
			call.Keywords = append(call.Keywords, &ast.Keyword{
				Pos: r.pos(), Name: r.str(), Value: r.expr(),
			})
		}
		return call
	case tagBinOp:
		return &ast.BinOp{Pos: r.pos(), Left: r.expr(), Op: r.str(), Right: r.expr()}
	case tagUnaryOp:
		return &ast.UnaryOp{Pos: r.pos(), Op: r.str(), Operand: r.expr()}
	case tagSubscript:
		return &ast.Subscript{Pos: r.pos(), Value: r.expr(), Index: r.expr()}
	case tagList:
		return &ast.ListExpr{Pos: r.pos(), Elts: r.exprs()}
	case tagTuple:
		return &ast.TupleExpr{Pos: r.pos(), Elts: r.exprs()}
	case tagSet:
		return &ast.SetExpr{Pos: r.pos(), Elts: r.exprs()}
	case tagDict:
		return &ast.DictExpr{Pos: r.pos(), Keys: r.exprs(), Values: r.exprs()}
	case tagComp:
		return &ast.Comp{
			Pos:    r.pos(),
			Kind:   ast.CompKind(r.u8()),
			Elt:    r.expr(),
			Key:    r.expr(),
			Target: r.expr(),
			Iter:   r.expr(),
			Conds:  r.exprs(),
		}
	}
	r.err = fmt.Errorf("astcache: unknown expression tag %d", tag)
	return nil
}
