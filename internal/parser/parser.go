// Package parser is the default AST collaborator: a lexer with
// INDENT/DEDENT synthesis and a recursive-descent parser for the
// analyzed source subset. A syntax error abandons the file; the
// analyzer treats a nil module as a parse failure and moves on.
package parser

import (
	"fmt"

	"pyscope/internal/ast"
	"pyscope/internal/diag"
	"pyscope/internal/source"
)

// bailout aborts parsing after the first reported syntax error.
type bailout struct{}

type parser struct {
	lx   *lexer
	tok  token
	file string
	rep  diag.Reporter
}

// Parse turns source bytes into a module tree. It returns nil when the
// file does not lex or parse; the error diagnostics land in reporter.
func Parse(src []byte, filename string, reporter diag.Reporter) (mod *ast.Module) {
	lx, err := newLexer(src, filename, reporter)
	if err != nil {
		reporter.Report(diag.IOLoadFileError, diag.SevError, source.Span{File: filename}, err.Error())
		return nil
	}
	p := &parser{lx: lx, file: filename, rep: reporter}
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			mod = nil
		}
	}()
	p.advance()
	body := p.parseStatements(func() bool { return p.tok.kind == tokEOF })
	if lx.failed {
		return nil
	}
	end := p.tok.end
	return &ast.Module{
		Pos:  ast.Pos{File: filename, StartOff: 0, EndOff: end},
		Body: body,
	}
}

func (p *parser) advance() {
	p.tok = p.lx.next()
}

func (p *parser) pos(start, end uint32) ast.Pos {
	return ast.Pos{File: p.file, StartOff: start, EndOff: end}
}

func (p *parser) errorf(code diag.Code, format string, args ...any) {
	p.rep.Report(code, diag.SevError,
		source.Span{File: p.file, Start: p.tok.start, End: p.tok.end},
		fmt.Sprintf(format, args...))
	panic(bailout{})
}

func (p *parser) isOp(text string) bool {
	return p.tok.kind == tokOp && p.tok.text == text
}

func (p *parser) isKeyword(text string) bool {
	return p.tok.kind == tokKeyword && p.tok.text == text
}

func (p *parser) acceptOp(text string) bool {
	if p.isOp(text) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) acceptKeyword(text string) bool {
	if p.isKeyword(text) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expectOp(text string) token {
	if !p.isOp(text) {
		p.errorf(diag.SynUnexpectedToken, "expected %q, found %q", text, p.tok.text)
	}
	t := p.tok
	p.advance()
	return t
}

func (p *parser) expectName() token {
	if p.tok.kind != tokName {
		p.errorf(diag.SynExpectIdent, "expected identifier, found %q", p.tok.text)
	}
	t := p.tok
	p.advance()
	return t
}

func (p *parser) expectNewline() {
	switch p.tok.kind {
	case tokNewline:
		p.advance()
	case tokEOF, tokDedent:
		// implicit line end
	default:
		p.errorf(diag.SynUnexpectedToken, "expected end of line, found %q", p.tok.text)
	}
}

// parseStatements reads statements until stop reports true.
func (p *parser) parseStatements(stop func() bool) []ast.Stmt {
	var out []ast.Stmt
	for !stop() {
		if p.tok.kind == tokNewline {
			p.advance()
			continue
		}
		out = append(out, p.parseStatement()...)
	}
	return out
}

// parseStatement returns one or more statements: a simple-statement
// line may carry several, separated by semicolons.
func (p *parser) parseStatement() []ast.Stmt {
	switch {
	case p.isKeyword("def"):
		return []ast.Stmt{p.parseFunctionDef(nil)}
	case p.isKeyword("class"):
		return []ast.Stmt{p.parseClassDef(nil)}
	case p.isOp("@"):
		return []ast.Stmt{p.parseDecorated()}
	case p.isKeyword("if"):
		return []ast.Stmt{p.parseIf()}
	case p.isKeyword("while"):
		return []ast.Stmt{p.parseWhile()}
	case p.isKeyword("for"):
		return []ast.Stmt{p.parseFor()}
	}
	var out []ast.Stmt
	for {
		out = append(out, p.parseSimpleStatement())
		if !p.acceptOp(";") {
			break
		}
		if p.tok.kind == tokNewline || p.tok.kind == tokEOF {
			break
		}
	}
	p.expectNewline()
	return out
}

func (p *parser) parseSimpleStatement() ast.Stmt {
	switch {
	case p.isKeyword("import"):
		return p.parseImport()
	case p.isKeyword("from"):
		return p.parseImportFrom()
	case p.isKeyword("return"):
		return p.parseReturn()
	case p.isKeyword("pass"):
		t := p.tok
		p.advance()
		return &ast.Pass{Pos: p.pos(t.start, t.end)}
	}
	return p.parseExprOrAssign()
}

func (p *parser) parseExprOrAssign() ast.Stmt {
	start := p.tok.start
	first := p.parseTestlist()

	// augmented assignment desugars into a widening re-assignment
	for _, op := range []string{"+=", "-=", "*=", "/="} {
		if p.isOp(op) {
			p.advance()
			rhs := p.parseTestlist()
			bin := &ast.BinOp{
				Pos:   p.pos(start, rhs.End()),
				Left:  first,
				Op:    op[:1],
				Right: rhs,
			}
			return &ast.Assign{
				Pos:     p.pos(start, rhs.End()),
				Targets: []ast.Expr{first},
				Value:   bin,
			}
		}
	}

	if !p.isOp("=") {
		return &ast.ExprStmt{Pos: p.pos(start, first.End()), X: first}
	}
	targets := []ast.Expr{first}
	var value ast.Expr = first
	for p.acceptOp("=") {
		value = p.parseTestlist()
		targets = append(targets, value)
	}
	targets = targets[:len(targets)-1]
	for _, t := range targets {
		if !validTarget(t) {
			p.errorf(diag.SynBadAssignTarget, "cannot assign to this expression")
		}
	}
	return &ast.Assign{
		Pos:     p.pos(start, value.End()),
		Targets: targets,
		Value:   value,
	}
}

func validTarget(e ast.Expr) bool {
	switch e := e.(type) {
	case *ast.Ident, *ast.Attribute, *ast.Subscript:
		return true
	case *ast.TupleExpr:
		for _, el := range e.Elts {
			if !validTarget(el) {
				return false
			}
		}
		return true
	case *ast.ListExpr:
		for _, el := range e.Elts {
			if !validTarget(el) {
				return false
			}
		}
		return true
	}
	return false
}

func (p *parser) parseImport() ast.Stmt {
	start := p.tok.start
	p.advance()
	imp := &ast.Import{}
	for {
		item := p.parseImportItem()
		imp.Items = append(imp.Items, item)
		if !p.acceptOp(",") {
			break
		}
	}
	last := imp.Items[len(imp.Items)-1]
	imp.Pos = p.pos(start, last.End())
	return imp
}

func (p *parser) parseImportItem() *ast.ImportItem {
	start := p.tok.start
	item := &ast.ImportItem{}
	for {
		name := p.expectName()
		item.Dotted = append(item.Dotted, name.text)
		item.EndOff = name.end
		if !p.acceptOp(".") {
			break
		}
	}
	if p.acceptKeyword("as") {
		alias := p.expectName()
		item.Alias = alias.text
		item.EndOff = alias.end
	}
	item.File = p.file
	item.StartOff = start
	return item
}

func (p *parser) parseImportFrom() ast.Stmt {
	start := p.tok.start
	p.advance()
	imp := &ast.ImportFrom{}
	for {
		name := p.expectName()
		imp.Module = append(imp.Module, name.text)
		if !p.acceptOp(".") {
			break
		}
	}
	if !p.acceptKeyword("import") {
		p.errorf(diag.SynUnexpectedToken, "expected \"import\", found %q", p.tok.text)
	}
	end := p.tok.end
	if p.isOp("*") {
		imp.Star = true
		end = p.tok.end
		p.advance()
	} else {
		parens := p.acceptOp("(")
		for {
			nameTok := p.expectName()
			fn := &ast.ImportFromName{
				Pos:  p.pos(nameTok.start, nameTok.end),
				Name: nameTok.text,
			}
			if p.acceptKeyword("as") {
				alias := p.expectName()
				fn.Alias = alias.text
				fn.EndOff = alias.end
			}
			imp.Names = append(imp.Names, fn)
			end = fn.EndOff
			if !p.acceptOp(",") {
				break
			}
			if parens && p.isOp(")") {
				break
			}
		}
		if parens {
			p.expectOp(")")
		}
	}
	imp.Pos = p.pos(start, end)
	return imp
}

func (p *parser) parseReturn() ast.Stmt {
	start := p.tok.start
	end := p.tok.end
	p.advance()
	ret := &ast.Return{}
	if p.tok.kind != tokNewline && p.tok.kind != tokEOF && !p.isOp(";") && p.tok.kind != tokDedent {
		ret.Value = p.parseTestlist()
		end = ret.Value.End()
	}
	ret.Pos = p.pos(start, end)
	return ret
}

func (p *parser) parseDecorated() ast.Stmt {
	var decorators []ast.Expr
	for p.acceptOp("@") {
		decorators = append(decorators, p.parsePostfix())
		p.expectNewline()
		for p.tok.kind == tokNewline {
			p.advance()
		}
	}
	switch {
	case p.isKeyword("def"):
		return p.parseFunctionDef(decorators)
	case p.isKeyword("class"):
		return p.parseClassDef(decorators)
	}
	p.errorf(diag.SynUnexpectedToken, "expected \"def\" or \"class\" after decorator")
	return nil
}

func (p *parser) parseFunctionDef(decorators []ast.Expr) ast.Stmt {
	start := p.tok.start
	p.advance()
	nameTok := p.expectName()
	name := &ast.Ident{Pos: p.pos(nameTok.start, nameTok.end), Name: nameTok.text}
	p.expectOp("(")
	var params []*ast.Param
	var defaults []ast.Expr
	for !p.isOp(")") {
		// *args / **kwargs collapse into plain parameters
		p.acceptOp("**")
		p.acceptOp("*")
		pt := p.expectName()
		params = append(params, &ast.Param{Pos: p.pos(pt.start, pt.end), Name: pt.text})
		if p.acceptOp(":") {
			p.parseExpr() // annotation, ignored
		}
		if p.acceptOp("=") {
			defaults = append(defaults, p.parseExpr())
		} else if len(defaults) > 0 {
			defaults = append(defaults, nil)
		}
		if !p.acceptOp(",") {
			break
		}
	}
	p.expectOp(")")
	if p.acceptOp("->") {
		p.parseExpr() // return annotation, ignored
	}
	body := p.parseSuite()
	end := start
	if len(body) > 0 {
		end = body[len(body)-1].End()
	}
	return &ast.FunctionDef{
		Pos:        p.pos(start, end),
		Name:       name,
		Params:     params,
		Defaults:   defaults,
		Decorators: decorators,
		Body:       body,
	}
}

func (p *parser) parseClassDef(decorators []ast.Expr) ast.Stmt {
	start := p.tok.start
	p.advance()
	nameTok := p.expectName()
	name := &ast.Ident{Pos: p.pos(nameTok.start, nameTok.end), Name: nameTok.text}
	var bases []ast.Expr
	if p.acceptOp("(") {
		for !p.isOp(")") {
			bases = append(bases, p.parseExpr())
			if !p.acceptOp(",") {
				break
			}
		}
		p.expectOp(")")
	}
	body := p.parseSuite()
	end := start
	if len(body) > 0 {
		end = body[len(body)-1].End()
	}
	cd := &ast.ClassDef{
		Pos:   p.pos(start, end),
		Name:  name,
		Bases: bases,
		Body:  body,
	}
	_ = decorators // class decorators are parsed and dropped; their names are never resolved
	return cd
}

func (p *parser) parseIf() ast.Stmt {
	start := p.tok.start
	p.advance()
	cond := p.parseExpr()
	body := p.parseSuite()
	stmt := &ast.If{Pos: p.pos(start, p.tok.end), Cond: cond, Body: body}
	switch {
	case p.isKeyword("elif"):
		stmt.Orelse = []ast.Stmt{p.parseIf0("elif")}
	case p.acceptKeyword("else"):
		stmt.Orelse = p.parseSuite()
	}
	return stmt
}

// parseIf0 handles an elif arm as a nested if.
func (p *parser) parseIf0(kw string) ast.Stmt {
	start := p.tok.start
	if !p.acceptKeyword(kw) {
		p.errorf(diag.SynUnexpectedToken, "expected %q", kw)
	}
	cond := p.parseExpr()
	body := p.parseSuite()
	stmt := &ast.If{Pos: p.pos(start, p.tok.end), Cond: cond, Body: body}
	switch {
	case p.isKeyword("elif"):
		stmt.Orelse = []ast.Stmt{p.parseIf0("elif")}
	case p.acceptKeyword("else"):
		stmt.Orelse = p.parseSuite()
	}
	return stmt
}

func (p *parser) parseWhile() ast.Stmt {
	start := p.tok.start
	p.advance()
	cond := p.parseExpr()
	body := p.parseSuite()
	stmt := &ast.While{Pos: p.pos(start, p.tok.end), Cond: cond, Body: body}
	if p.acceptKeyword("else") {
		stmt.Orelse = p.parseSuite()
	}
	return stmt
}

func (p *parser) parseFor() ast.Stmt {
	start := p.tok.start
	p.advance()
	target := p.parseTargetList()
	if !p.acceptKeyword("in") {
		p.errorf(diag.SynUnexpectedToken, "expected \"in\", found %q", p.tok.text)
	}
	iter := p.parseTestlist()
	body := p.parseSuite()
	stmt := &ast.For{Pos: p.pos(start, p.tok.end), Target: target, Iter: iter, Body: body}
	if p.acceptKeyword("else") {
		stmt.Orelse = p.parseSuite()
	}
	return stmt
}

// parseSuite parses ":" followed by either an indented block or an
// inline simple-statement list on the same line.
func (p *parser) parseSuite() []ast.Stmt {
	if !p.isOp(":") {
		p.errorf(diag.SynExpectColon, "expected \":\", found %q", p.tok.text)
	}
	p.advance()
	if p.tok.kind != tokNewline {
		// inline suite
		var out []ast.Stmt
		for {
			out = append(out, p.parseSimpleStatement())
			if !p.acceptOp(";") {
				break
			}
			if p.tok.kind == tokNewline || p.tok.kind == tokEOF {
				break
			}
		}
		p.expectNewline()
		return out
	}
	p.advance()
	for p.tok.kind == tokNewline {
		p.advance()
	}
	if p.tok.kind != tokIndent {
		p.errorf(diag.SynExpectIndent, "expected an indented block")
	}
	p.advance()
	body := p.parseStatements(func() bool {
		return p.tok.kind == tokDedent || p.tok.kind == tokEOF
	})
	if p.tok.kind == tokDedent {
		p.advance()
	}
	return body
}

func (p *parser) parseTargetList() ast.Expr {
	start := p.tok.start
	first := p.parsePostfix()
	if !p.isOp(",") {
		return first
	}
	elts := []ast.Expr{first}
	for p.acceptOp(",") {
		if p.isKeyword("in") {
			break
		}
		elts = append(elts, p.parsePostfix())
	}
	return &ast.TupleExpr{Pos: p.pos(start, elts[len(elts)-1].End()), Elts: elts}
}

// parseTestlist parses expr ("," expr)* into a tuple when commas occur.
func (p *parser) parseTestlist() ast.Expr {
	start := p.tok.start
	first := p.parseExpr()
	if !p.isOp(",") {
		return first
	}
	elts := []ast.Expr{first}
	for p.acceptOp(",") {
		if p.tok.kind == tokNewline || p.tok.kind == tokEOF || p.isOp("=") || p.isOp(")") || p.isOp("]") || p.isOp("}") {
			break
		}
		elts = append(elts, p.parseExpr())
	}
	return &ast.TupleExpr{Pos: p.pos(start, elts[len(elts)-1].End()), Elts: elts}
}
