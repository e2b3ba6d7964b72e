package parser

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"pyscope/internal/diag"
	"pyscope/internal/source"
)

type tokKind uint8

const (
	tokEOF tokKind = iota
	tokNewline
	tokIndent
	tokDedent
	tokName
	tokKeyword
	tokInt
	tokFloat
	tokComplex
	tokStr
	tokBytes
	tokOp
)

type token struct {
	kind  tokKind
	text  string
	start uint32
	end   uint32
}

var keywords = map[string]bool{
	"def": true, "class": true, "return": true, "import": true,
	"as": true, "if": true, "elif": true, "else": true, "while": true,
	"for": true, "in": true, "pass": true, "None": true, "True": true,
	"False": true, "not": true, "is": true, "and": true, "or": true,
	"from": true,
}

// lexer turns source bytes into a token stream with INDENT/DEDENT
// tokens synthesized from leading whitespace, the way the source
// language delimits blocks. Newlines inside brackets are suppressed.
type lexer struct {
	src      []byte
	file     string
	pos      uint32
	indents  []int
	brackets int
	atLine   bool // before the first token of a logical line
	pending  []token
	reporter diag.Reporter
	failed   bool
}

func newLexer(src []byte, file string, reporter diag.Reporter) (*lexer, error) {
	if _, err := safecast.Conv[uint32](len(src)); err != nil {
		return nil, fmt.Errorf("file %q too large: %w", file, err)
	}
	return &lexer{
		src:      src,
		file:     file,
		indents:  []int{0},
		atLine:   true,
		reporter: reporter,
	}, nil
}

func (lx *lexer) span(start, end uint32) source.Span {
	return source.Span{File: lx.file, Start: start, End: end}
}

func (lx *lexer) errorf(code diag.Code, start, end uint32, format string, args ...any) {
	lx.failed = true
	lx.reporter.Report(code, diag.SevError, lx.span(start, end), fmt.Sprintf(format, args...))
}

func (lx *lexer) peekByte() byte {
	if int(lx.pos) >= len(lx.src) {
		return 0
	}
	return lx.src[lx.pos]
}

func (lx *lexer) byteAt(off uint32) byte {
	if int(off) >= len(lx.src) {
		return 0
	}
	return lx.src[off]
}

// next returns the following token; it drains pending INDENT/DEDENT
// tokens first.
func (lx *lexer) next() token {
	if len(lx.pending) > 0 {
		t := lx.pending[0]
		lx.pending = lx.pending[1:]
		return t
	}
	for {
		if lx.atLine && lx.brackets == 0 {
			if t, ok := lx.lineStart(); ok {
				return t
			}
			continue
		}
		lx.skipSpaces()
		c := lx.peekByte()
		switch {
		case int(lx.pos) >= len(lx.src):
			return lx.finish()
		case c == '\n':
			start := lx.pos
			lx.pos++
			if lx.brackets > 0 {
				continue
			}
			lx.atLine = true
			return token{kind: tokNewline, text: "\n", start: start, end: lx.pos}
		case c == '#':
			for int(lx.pos) < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.pos++
			}
		case isNameStart(c):
			return lx.lexName()
		case c >= '0' && c <= '9':
			return lx.lexNumber()
		case c == '.' && lx.byteAt(lx.pos+1) >= '0' && lx.byteAt(lx.pos+1) <= '9':
			return lx.lexNumber()
		case c == '"' || c == '\'':
			return lx.lexString(false)
		default:
			return lx.lexOp()
		}
	}
}

// lineStart processes leading whitespace of a logical line, emitting
// INDENT/DEDENT tokens against the indent stack.
func (lx *lexer) lineStart() (token, bool) {
	start := lx.pos
	col := 0
	for {
		c := lx.peekByte()
		if c == ' ' {
			col++
			lx.pos++
		} else if c == '\t' {
			col += 8 - col%8
			lx.pos++
		} else {
			break
		}
	}
	c := lx.peekByte()
	if c == '\n' {
		lx.pos++
		return token{}, false // blank line
	}
	if c == '#' {
		for int(lx.pos) < len(lx.src) && lx.src[lx.pos] != '\n' {
			lx.pos++
		}
		return token{}, false
	}
	if int(lx.pos) >= len(lx.src) {
		return lx.finish(), true
	}
	lx.atLine = false
	top := lx.indents[len(lx.indents)-1]
	switch {
	case col > top:
		lx.indents = append(lx.indents, col)
		return token{kind: tokIndent, start: start, end: lx.pos}, true
	case col < top:
		for len(lx.indents) > 1 && lx.indents[len(lx.indents)-1] > col {
			lx.indents = lx.indents[:len(lx.indents)-1]
			lx.pending = append(lx.pending, token{kind: tokDedent, start: start, end: lx.pos})
		}
		if lx.indents[len(lx.indents)-1] != col {
			lx.errorf(diag.LexBadIndent, start, lx.pos, "unindent does not match any outer indentation level")
		}
		t := lx.pending[0]
		lx.pending = lx.pending[1:]
		return t, true
	}
	return token{}, false
}

// finish closes open blocks at end of input.
func (lx *lexer) finish() token {
	end := lx.pos
	if !lx.atLine {
		lx.atLine = true
		return token{kind: tokNewline, start: end, end: end}
	}
	if len(lx.indents) > 1 {
		lx.indents = lx.indents[:len(lx.indents)-1]
		return token{kind: tokDedent, start: end, end: end}
	}
	return token{kind: tokEOF, start: end, end: end}
}

func (lx *lexer) skipSpaces() {
	for {
		c := lx.peekByte()
		if c == ' ' || c == '\t' || c == '\r' {
			lx.pos++
			continue
		}
		if c == '\\' && lx.byteAt(lx.pos+1) == '\n' {
			lx.pos += 2
			continue
		}
		return
	}
}

func (lx *lexer) lexName() token {
	start := lx.pos
	for int(lx.pos) < len(lx.src) && isNameCont(lx.src[lx.pos]) {
		lx.pos++
	}
	text := string(lx.src[start:lx.pos])
	// bytes / raw string prefixes
	if (text == "b" || text == "r" || text == "rb" || text == "br") &&
		(lx.peekByte() == '"' || lx.peekByte() == '\'') {
		lx.pos = start
		return lx.lexString(strings.Contains(text, "b"))
	}
	kind := tokName
	if keywords[text] {
		kind = tokKeyword
	}
	return token{kind: kind, text: text, start: start, end: lx.pos}
}

func (lx *lexer) lexNumber() token {
	start := lx.pos
	isFloat := false
	if lx.peekByte() == '0' && (lx.byteAt(lx.pos+1) == 'x' || lx.byteAt(lx.pos+1) == 'X') {
		lx.pos += 2
		for isHex(lx.peekByte()) {
			lx.pos++
		}
		return token{kind: tokInt, text: string(lx.src[start:lx.pos]), start: start, end: lx.pos}
	}
	for lx.peekByte() >= '0' && lx.peekByte() <= '9' {
		lx.pos++
	}
	if lx.peekByte() == '.' {
		isFloat = true
		lx.pos++
		for lx.peekByte() >= '0' && lx.peekByte() <= '9' {
			lx.pos++
		}
	}
	if c := lx.peekByte(); c == 'e' || c == 'E' {
		isFloat = true
		lx.pos++
		if c := lx.peekByte(); c == '+' || c == '-' {
			lx.pos++
		}
		for lx.peekByte() >= '0' && lx.peekByte() <= '9' {
			lx.pos++
		}
	}
	if c := lx.peekByte(); c == 'j' || c == 'J' {
		lx.pos++
		return token{kind: tokComplex, text: string(lx.src[start:lx.pos]), start: start, end: lx.pos}
	}
	kind := tokInt
	if isFloat {
		kind = tokFloat
	}
	return token{kind: kind, text: string(lx.src[start:lx.pos]), start: start, end: lx.pos}
}

func (lx *lexer) lexString(isBytes bool) token {
	start := lx.pos
	for isNameCont(lx.peekByte()) { // skip prefix letters
		lx.pos++
	}
	quote := lx.peekByte()
	lx.pos++
	triple := false
	if lx.peekByte() == quote && lx.byteAt(lx.pos+1) == quote {
		triple = true
		lx.pos += 2
	}
	var sb strings.Builder
	for {
		if int(lx.pos) >= len(lx.src) {
			lx.errorf(diag.LexUnterminatedString, start, lx.pos, "unterminated string literal")
			break
		}
		c := lx.src[lx.pos]
		if c == '\\' && int(lx.pos)+1 < len(lx.src) {
			esc := lx.src[lx.pos+1]
			lx.pos += 2
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '\\', '\'', '"':
				sb.WriteByte(esc)
			case '\n':
				// continuation
			default:
				sb.WriteByte('\\')
				sb.WriteByte(esc)
			}
			continue
		}
		if c == quote {
			if !triple {
				lx.pos++
				break
			}
			if lx.byteAt(lx.pos+1) == quote && lx.byteAt(lx.pos+2) == quote {
				lx.pos += 3
				break
			}
		}
		if c == '\n' && !triple {
			lx.errorf(diag.LexUnterminatedString, start, lx.pos, "unterminated string literal")
			break
		}
		sb.WriteByte(c)
		lx.pos++
	}
	kind := tokStr
	if isBytes {
		kind = tokBytes
	}
	return token{kind: kind, text: sb.String(), start: start, end: lx.pos}
}

var twoCharOps = map[string]bool{
	"==": true, "!=": true, "<=": true, ">=": true, "//": true,
	"**": true, "->": true, "+=": true, "-=": true, "*=": true,
	"/=": true,
}

func (lx *lexer) lexOp() token {
	start := lx.pos
	c := lx.src[lx.pos]
	switch c {
	case '(', '[', '{':
		lx.brackets++
	case ')', ']', '}':
		if lx.brackets > 0 {
			lx.brackets--
		}
	}
	lx.pos++
	if int(lx.pos) < len(lx.src) {
		two := string(lx.src[start : lx.pos+1])
		if twoCharOps[two] {
			lx.pos++
			return token{kind: tokOp, text: two, start: start, end: lx.pos}
		}
	}
	text := string(lx.src[start:lx.pos])
	if !strings.ContainsAny(text, "+-*/%<>=!.,:;()[]{}@&|^~") {
		lx.errorf(diag.LexUnknownChar, start, lx.pos, "unexpected character %q", text)
	}
	return token{kind: tokOp, text: text, start: start, end: lx.pos}
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isNameCont(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
