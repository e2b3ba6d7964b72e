package parser

import (
	"pyscope/internal/ast"
	"pyscope/internal/diag"
)

func (p *parser) parseExpr() ast.Expr {
	return p.parseOr()
}

func (p *parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for p.isKeyword("or") {
		p.advance()
		right := p.parseAnd()
		left = &ast.BinOp{Pos: p.pos(left.Start(), right.End()), Left: left, Op: "or", Right: right}
	}
	return left
}

func (p *parser) parseAnd() ast.Expr {
	left := p.parseNot()
	for p.isKeyword("and") {
		p.advance()
		right := p.parseNot()
		left = &ast.BinOp{Pos: p.pos(left.Start(), right.End()), Left: left, Op: "and", Right: right}
	}
	return left
}

func (p *parser) parseNot() ast.Expr {
	if p.isKeyword("not") {
		start := p.tok.start
		p.advance()
		operand := p.parseNot()
		return &ast.UnaryOp{Pos: p.pos(start, operand.End()), Op: "not", Operand: operand}
	}
	return p.parseComparison()
}

func (p *parser) comparisonOp() (string, bool) {
	if p.tok.kind == tokOp {
		switch p.tok.text {
		case "==", "!=", "<", "<=", ">", ">=":
			return p.tok.text, true
		}
	}
	if p.tok.kind == tokKeyword {
		switch p.tok.text {
		case "in", "is":
			return p.tok.text, true
		}
	}
	return "", false
}

func (p *parser) parseComparison() ast.Expr {
	left := p.parseArith()
	for {
		op, ok := p.comparisonOp()
		if !ok {
			// "not in"
			if p.isKeyword("not") {
				p.advance()
				if !p.acceptKeyword("in") {
					p.errorf(diag.SynUnexpectedToken, "expected \"in\" after \"not\"")
				}
				op = "not in"
			} else {
				return left
			}
		} else {
			p.advance()
			if op == "is" && p.acceptKeyword("not") {
				op = "is not"
			}
		}
		right := p.parseArith()
		left = &ast.BinOp{Pos: p.pos(left.Start(), right.End()), Left: left, Op: op, Right: right}
	}
}

func (p *parser) parseArith() ast.Expr {
	left := p.parseTerm()
	for p.tok.kind == tokOp {
		op := p.tok.text
		if op != "+" && op != "-" && op != "|" && op != "&" && op != "^" {
			break
		}
		p.advance()
		right := p.parseTerm()
		left = &ast.BinOp{Pos: p.pos(left.Start(), right.End()), Left: left, Op: op, Right: right}
	}
	return left
}

func (p *parser) parseTerm() ast.Expr {
	left := p.parseFactor()
	for p.tok.kind == tokOp {
		op := p.tok.text
		if op != "*" && op != "/" && op != "//" && op != "%" && op != "**" {
			break
		}
		p.advance()
		right := p.parseFactor()
		left = &ast.BinOp{Pos: p.pos(left.Start(), right.End()), Left: left, Op: op, Right: right}
	}
	return left
}

func (p *parser) parseFactor() ast.Expr {
	if p.tok.kind == tokOp && (p.tok.text == "+" || p.tok.text == "-" || p.tok.text == "~") {
		start := p.tok.start
		op := p.tok.text
		p.advance()
		operand := p.parseFactor()
		return &ast.UnaryOp{Pos: p.pos(start, operand.End()), Op: op, Operand: operand}
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() ast.Expr {
	e := p.parseAtom()
	for {
		switch {
		case p.isOp("("):
			e = p.parseCall(e)
		case p.isOp("."):
			p.advance()
			nameTok := p.expectName()
			e = &ast.Attribute{
				Pos:   p.pos(e.Start(), nameTok.end),
				Value: e,
				Attr:  &ast.Ident{Pos: p.pos(nameTok.start, nameTok.end), Name: nameTok.text},
			}
		case p.isOp("["):
			p.advance()
			var index ast.Expr
			if !p.isOp("]") {
				index = p.parseSlice()
			}
			closing := p.expectOp("]")
			e = &ast.Subscript{Pos: p.pos(e.Start(), closing.end), Value: e, Index: index}
		default:
			return e
		}
	}
}

// parseSlice accepts a plain index or a slice; slices collapse to their
// first bound, which is all the inference cares about.
func (p *parser) parseSlice() ast.Expr {
	var first ast.Expr
	if !p.isOp(":") {
		first = p.parseExpr()
	}
	for p.acceptOp(":") {
		if !p.isOp("]") && !p.isOp(":") {
			e := p.parseExpr()
			if first == nil {
				first = e
			}
		}
	}
	return first
}

func (p *parser) parseCall(fn ast.Expr) ast.Expr {
	p.expectOp("(")
	call := &ast.Call{Func: fn}
	for !p.isOp(")") {
		// *args / **kwargs splat: the value still gets inferred
		p.acceptOp("**")
		p.acceptOp("*")
		if p.tok.kind == tokName {
			nameTok := p.tok
			p.advance()
			if p.acceptOp("=") {
				value := p.parseExpr()
				call.Keywords = append(call.Keywords, &ast.Keyword{
					Pos:   p.pos(nameTok.start, value.End()),
					Name:  nameTok.text,
					Value: value,
				})
				if !p.acceptOp(",") {
					break
				}
				continue
			}
			// plain name argument: rewind is not possible, rebuild
			arg := p.parsePostfixAfterName(nameTok)
			call.Args = append(call.Args, p.continueExpr(arg))
		} else {
			call.Args = append(call.Args, p.parseExpr())
		}
		if !p.acceptOp(",") {
			break
		}
	}
	closing := p.expectOp(")")
	call.Pos = p.pos(fn.Start(), closing.end)
	return call
}

// parsePostfixAfterName resumes postfix parsing for an already-consumed
// name token.
func (p *parser) parsePostfixAfterName(nameTok token) ast.Expr {
	var e ast.Expr = &ast.Ident{Pos: p.pos(nameTok.start, nameTok.end), Name: nameTok.text}
	for {
		switch {
		case p.isOp("("):
			e = p.parseCall(e)
		case p.isOp("."):
			p.advance()
			attrTok := p.expectName()
			e = &ast.Attribute{
				Pos:   p.pos(e.Start(), attrTok.end),
				Value: e,
				Attr:  &ast.Ident{Pos: p.pos(attrTok.start, attrTok.end), Name: attrTok.text},
			}
		case p.isOp("["):
			p.advance()
			var index ast.Expr
			if !p.isOp("]") {
				index = p.parseSlice()
			}
			closing := p.expectOp("]")
			e = &ast.Subscript{Pos: p.pos(e.Start(), closing.end), Value: e, Index: index}
		default:
			return e
		}
	}
}

// continueExpr finishes the binary-operator levels above a
// postfix-parsed operand.
func (p *parser) continueExpr(left ast.Expr) ast.Expr {
	for p.tok.kind == tokOp || p.tok.kind == tokKeyword {
		op := p.tok.text
		switch op {
		case "+", "-", "*", "/", "//", "%", "**", "|", "&", "^",
			"==", "!=", "<", "<=", ">", ">=", "in", "is", "and", "or":
			p.advance()
			right := p.parseExpr()
			left = &ast.BinOp{Pos: p.pos(left.Start(), right.End()), Left: left, Op: op, Right: right}
		default:
			return left
		}
	}
	return left
}

func (p *parser) parseAtom() ast.Expr {
	t := p.tok
	switch t.kind {
	case tokName:
		p.advance()
		return &ast.Ident{Pos: p.pos(t.start, t.end), Name: t.text}
	case tokInt:
		p.advance()
		return &ast.IntLit{Pos: p.pos(t.start, t.end), Text: t.text}
	case tokFloat:
		p.advance()
		return &ast.FloatLit{Pos: p.pos(t.start, t.end), Text: t.text}
	case tokComplex:
		p.advance()
		return &ast.ComplexLit{Pos: p.pos(t.start, t.end), Text: t.text}
	case tokStr:
		p.advance()
		return &ast.StrLit{Pos: p.pos(t.start, t.end), Value: t.text}
	case tokBytes:
		p.advance()
		return &ast.BytesLit{Pos: p.pos(t.start, t.end), Value: t.text}
	case tokKeyword:
		switch t.text {
		case "True", "False":
			p.advance()
			return &ast.BoolLit{Pos: p.pos(t.start, t.end), Value: t.text == "True"}
		case "None":
			p.advance()
			return &ast.NoneLit{Pos: p.pos(t.start, t.end)}
		}
	case tokOp:
		switch t.text {
		case "(":
			return p.parseParenOrTuple()
		case "[":
			return p.parseListOrComp()
		case "{":
			return p.parseDictOrSet()
		}
	}
	p.errorf(diag.SynUnexpectedToken, "unexpected token %q", t.text)
	return nil
}

func (p *parser) parseParenOrTuple() ast.Expr {
	open := p.expectOp("(")
	if p.isOp(")") {
		closing := p.tok
		p.advance()
		return &ast.TupleExpr{Pos: p.pos(open.start, closing.end)}
	}
	first := p.parseExpr()
	if p.isOp(",") {
		elts := []ast.Expr{first}
		for p.acceptOp(",") {
			if p.isOp(")") {
				break
			}
			elts = append(elts, p.parseExpr())
		}
		closing := p.expectOp(")")
		return &ast.TupleExpr{Pos: p.pos(open.start, closing.end), Elts: elts}
	}
	p.expectOp(")")
	return first
}

func (p *parser) parseListOrComp() ast.Expr {
	open := p.expectOp("[")
	if p.isOp("]") {
		closing := p.tok
		p.advance()
		return &ast.ListExpr{Pos: p.pos(open.start, closing.end)}
	}
	first := p.parseExpr()
	if p.isKeyword("for") {
		comp := p.parseCompClause(ast.CompList, first, nil)
		closing := p.expectOp("]")
		comp.Pos = p.pos(open.start, closing.end)
		return comp
	}
	elts := []ast.Expr{first}
	for p.acceptOp(",") {
		if p.isOp("]") {
			break
		}
		elts = append(elts, p.parseExpr())
	}
	closing := p.expectOp("]")
	return &ast.ListExpr{Pos: p.pos(open.start, closing.end), Elts: elts}
}

func (p *parser) parseDictOrSet() ast.Expr {
	open := p.expectOp("{")
	if p.isOp("}") {
		closing := p.tok
		p.advance()
		return &ast.DictExpr{Pos: p.pos(open.start, closing.end)}
	}
	first := p.parseExpr()
	if p.acceptOp(":") {
		value := p.parseExpr()
		if p.isKeyword("for") {
			comp := p.parseCompClause(ast.CompDict, value, first)
			closing := p.expectOp("}")
			comp.Pos = p.pos(open.start, closing.end)
			return comp
		}
		keys := []ast.Expr{first}
		values := []ast.Expr{value}
		for p.acceptOp(",") {
			if p.isOp("}") {
				break
			}
			k := p.parseExpr()
			p.expectOp(":")
			v := p.parseExpr()
			keys = append(keys, k)
			values = append(values, v)
		}
		closing := p.expectOp("}")
		return &ast.DictExpr{Pos: p.pos(open.start, closing.end), Keys: keys, Values: values}
	}
	if p.isKeyword("for") {
		comp := p.parseCompClause(ast.CompSet, first, nil)
		closing := p.expectOp("}")
		comp.Pos = p.pos(open.start, closing.end)
		return comp
	}
	elts := []ast.Expr{first}
	for p.acceptOp(",") {
		if p.isOp("}") {
			break
		}
		elts = append(elts, p.parseExpr())
	}
	closing := p.expectOp("}")
	return &ast.SetExpr{Pos: p.pos(open.start, closing.end), Elts: elts}
}

// parseCompClause parses "for target in iter [if cond]*".
func (p *parser) parseCompClause(kind ast.CompKind, elt, key ast.Expr) *ast.Comp {
	if !p.acceptKeyword("for") {
		p.errorf(diag.SynUnexpectedToken, "expected \"for\"")
	}
	target := p.parseTargetList()
	if !p.acceptKeyword("in") {
		p.errorf(diag.SynUnexpectedToken, "expected \"in\", found %q", p.tok.text)
	}
	iter := p.parseOr()
	comp := &ast.Comp{Kind: kind, Elt: elt, Key: key, Target: target, Iter: iter}
	for p.acceptKeyword("if") {
		comp.Conds = append(comp.Conds, p.parseOr())
	}
	return comp
}
