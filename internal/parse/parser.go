// Package parse implements a recursive-descent parser for mvs-calculus's
// surface grammar (spec.md §6), grounded on the teacher's Parser{lexer}
// shape (Heliodex-coputer/ast/parse/parser.go) and one-token lookahead
// style, generalized from hujson's JSON-with-comments grammar to
// mvs-calculus's expression grammar.
package parse

import (
	"strconv"

	"github.com/mvsc-lang/mvsc/internal/ast"
	"github.com/mvsc-lang/mvsc/internal/diag"
	"github.com/mvsc-lang/mvsc/internal/lex"
)

// Parser holds its Lexer by value (not by pointer), so that the parser's
// struct value itself is a complete, independently-advanceable scan
// position — looksLikeFuncExpr's lookahead relies on copying a Parser to
// fork the scan without disturbing the original.
type Parser struct {
	file string
	lx   lex.Lexer
	cur  lex.Token
	sink diag.Sink
}

func New(file, src string, sink diag.Sink) *Parser {
	p := &Parser{file: file, lx: *lex.New(file, src), sink: sink}
	p.cur = p.lx.Next()
	return p
}

func (p *Parser) span(startLine, startCol int) diag.Span {
	return diag.Span{
		File:  p.file,
		Start: diag.Position{Line: startLine, Column: startCol},
		End:   diag.Position{Line: p.cur.Line, Column: p.cur.Column},
	}
}

func (p *Parser) tokSpan(t lex.Token) diag.Span {
	return diag.Span{
		File:  p.file,
		Start: diag.Position{Line: t.Line, Column: t.Column},
		End:   diag.Position{Line: t.EndLine, Column: t.EndCol},
	}
}

func (p *Parser) advance() lex.Token {
	t := p.cur
	p.cur = p.lx.Next()
	return t
}

func (p *Parser) at(k lex.Kind) bool { return p.cur.Kind == k }

func (p *Parser) expect(k lex.Kind) (lex.Token, bool) {
	if p.cur.Kind != k {
		diag.Errorf(p.sink, diag.CodeMissingToken, p.tokSpan(p.cur), "expected %v, got %v", k, p.cur.Kind)
		return p.cur, false
	}
	return p.advance(), true
}

// ParseProgram parses a full program: (structDecl 'in')* expr.
func (p *Parser) ParseProgram() ast.Program {
	var decls []ast.StructDecl
	for p.at(lex.KwStruct) {
		decls = append(decls, p.parseStructDecl())
		p.expect(lex.KwIn)
	}
	entry := p.parseExpr()
	return ast.Program{Types: decls, Entry: entry}
}

func (p *Parser) parseStructDecl() ast.StructDecl {
	start := p.cur
	p.advance() // 'struct'
	name, _ := p.expect(lex.Name)
	p.expect(lex.LBrace)

	var props []ast.PropDecl
	for !p.at(lex.RBrace) && !p.at(lex.EOF) {
		props = append(props, p.parsePropDecl())
		for p.at(lex.Semi) {
			p.advance()
		}
	}
	p.expect(lex.RBrace)

	return ast.StructDecl{Span: p.span(start.Line, start.Column), Name: name.Text, Props: props}
}

func (p *Parser) parsePropDecl() ast.PropDecl {
	start := p.cur
	mut := p.parseMutKw()
	name, _ := p.expect(lex.Name)
	p.expect(lex.Colon)
	sig := p.parseSign()
	return ast.PropDecl{Span: p.span(start.Line, start.Column), Mut: mut, Name: name.Text, Sig: sig}
}

func (p *Parser) parseMutKw() ast.Mutability {
	if p.at(lex.KwVar) {
		p.advance()
		return ast.Var
	}
	p.expect(lex.KwLet)
	return ast.Let
}

func (p *Parser) parseSign() ast.Sign {
	start := p.cur
	switch {
	case p.at(lex.Name):
		t := p.advance()
		switch t.Text {
		case "Int":
			return ast.IntSign{Span: p.tokSpan(t)}
		case "Float":
			return ast.FloatSign{Span: p.tokSpan(t)}
		case "Any":
			return ast.AnySign{Span: p.tokSpan(t)}
		default:
			return ast.NameSign{Span: p.tokSpan(t), Name: t.Text}
		}
	case p.at(lex.LBracket):
		p.advance()
		elem := p.parseSign()
		p.expect(lex.RBracket)
		return ast.ArraySign{Span: p.span(start.Line, start.Column), Elem: elem}
	case p.at(lex.KwInout):
		p.advance()
		base := p.parseSign()
		return ast.InoutSign{Span: p.span(start.Line, start.Column), Base: base}
	case p.at(lex.LParen):
		p.advance()
		var params []ast.Sign
		for !p.at(lex.RParen) {
			params = append(params, p.parseSign())
			if p.at(lex.Comma) {
				p.advance()
			}
		}
		p.expect(lex.RParen)
		p.expect(lex.Arrow)
		out := p.parseSign()
		return ast.FuncSign{Span: p.span(start.Line, start.Column), Params: params, Output: out}
	}
	diag.Errorf(p.sink, diag.CodeUnexpectedToken, p.tokSpan(p.cur), "expected a type, got %v", p.cur.Kind)
	return ast.NameSign{Span: p.tokSpan(p.cur), Name: "Error"}
}

// --- expressions, precedence: cmp < cast < add < mul < pre ---

func (p *Parser) parseExpr() ast.Expr { return p.parseCmp() }

func (p *Parser) parseCmp() ast.Expr {
	start := p.cur
	lhs := p.parseCast()
	for isCmpOp(p.cur.Kind) {
		opTok := p.advance()
		rhs := p.parseCast()
		kind, _ := ast.OperKindFromText(opTok.Text)
		lhs = ast.InfixExpr{Span: p.span(start.Line, start.Column), Lhs: lhs, Kind: kind, Rhs: rhs}
	}
	return lhs
}

func isCmpOp(k lex.Kind) bool {
	switch k {
	case lex.EqEq, lex.NotEq, lex.Lt, lex.Le, lex.Ge, lex.Gt:
		return true
	}
	return false
}

func (p *Parser) parseCast() ast.Expr {
	start := p.cur
	v := p.parseAdd()
	if p.at(lex.KwAs) {
		p.advance()
		sig := p.parseSign()
		return ast.CastExpr{Span: p.span(start.Line, start.Column), Value: v, Sig: sig}
	}
	return v
}

func (p *Parser) parseAdd() ast.Expr {
	start := p.cur
	lhs := p.parseMul()
	for p.at(lex.Plus) || p.at(lex.Minus) {
		opTok := p.advance()
		rhs := p.parseMul()
		kind, _ := ast.OperKindFromText(opTok.Text)
		lhs = ast.InfixExpr{Span: p.span(start.Line, start.Column), Lhs: lhs, Kind: kind, Rhs: rhs}
	}
	return lhs
}

func (p *Parser) parseMul() ast.Expr {
	start := p.cur
	lhs := p.parsePre()
	for p.at(lex.Star) || p.at(lex.Slash) {
		opTok := p.advance()
		rhs := p.parsePre()
		kind, _ := ast.OperKindFromText(opTok.Text)
		lhs = ast.InfixExpr{Span: p.span(start.Line, start.Column), Lhs: lhs, Kind: kind, Rhs: rhs}
	}
	return lhs
}

func (p *Parser) parsePre() ast.Expr {
	if p.at(lex.Amp) {
		start := p.advance()
		inner := p.parsePost()
		return ast.InoutExpr{Span: p.span(start.Line, start.Column), Path: inner}
	}
	return p.parsePost()
}

func (p *Parser) parsePost() ast.Expr {
	start := p.cur
	e := p.parsePrimary()
	for {
		switch {
		case p.at(lex.LParen):
			p.advance()
			var args []ast.Expr
			for !p.at(lex.RParen) && !p.at(lex.EOF) {
				args = append(args, p.parseExpr())
				if p.at(lex.Comma) {
					p.advance()
				}
			}
			p.expect(lex.RParen)
			// A bare Capitalized name applied to arguments is a struct
			// literal (struct names are always capitalized, per every
			// declared type in spec.md's examples); anything else is a
			// function call. This is a syntactic decision so that the
			// checker's Δ/Γ split never has to guess at a Call node.
			if np, ok := e.(ast.NamePath); ok && isStructName(np.Name) {
				e = ast.StructExpr{Span: p.span(start.Line, start.Column), Name: np.Name, Args: args}
			} else {
				e = ast.CallExpr{Span: p.span(start.Line, start.Column), Callee: e, Args: args}
			}
		case p.at(lex.LBracket):
			p.advance()
			idx := p.parseExpr()
			p.expect(lex.RBracket)
			e = ast.ElemPath{Span: p.span(start.Line, start.Column), Base: e, Index: idx}
		case p.at(lex.Dot):
			p.advance()
			name, _ := p.expect(lex.Name)
			e = ast.PropPath{Span: p.span(start.Line, start.Column), Base: e, Name: name.Text}
		case p.at(lex.Assign):
			p.advance()
			rv := p.parseExpr()
			p.expect(lex.KwIn)
			body := p.parseExpr()
			e = ast.AssignExpr{Span: p.span(start.Line, start.Column), Lvalue: e, Rvalue: rv, Body: body}
		default:
			return e
		}
	}
}

func isStructName(name string) bool {
	return len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z'
}

func (p *Parser) parsePrimary() ast.Expr {
	start := p.cur
	switch {
	case p.at(lex.Underscore):
		p.advance()
		return ast.WildcardExpr{Span: p.tokSpan(start)}

	case p.at(lex.IntLit):
		t := p.advance()
		v, err := strconv.ParseInt(t.Text, 10, 64)
		if err != nil {
			diag.Errorf(p.sink, diag.CodeInvalidLiteral, p.tokSpan(t), "invalid integer literal %q", t.Text)
		}
		return ast.IntExpr{Span: p.tokSpan(t), Value: v}

	case p.at(lex.FloatLit):
		t := p.advance()
		v, err := strconv.ParseFloat(t.Text, 64)
		if err != nil {
			diag.Errorf(p.sink, diag.CodeInvalidLiteral, p.tokSpan(t), "invalid float literal %q", t.Text)
		}
		return ast.FloatExpr{Span: p.tokSpan(t), Value: v}

	case p.at(lex.LBracket):
		return p.parseArrayOrOperRef()

	case p.at(lex.KwLet), p.at(lex.KwVar):
		return p.parseBindingOrFuncBinding()

	case p.at(lex.KwFun):
		p.advance()
		name, _ := p.expect(lex.Name)
		lit := p.parseFuncExpr()
		p.expect(lex.KwIn)
		body := p.parseExpr()
		return ast.FuncBindingExpr{Span: p.span(start.Line, start.Column), Name: name.Text, Literal: lit, Body: body}

	case p.at(lex.LParen):
		return p.parseParenOrFuncExpr()

	case p.at(lex.KwIf):
		p.advance()
		cond := p.parseExpr()
		p.expect(lex.Question)
		succ := p.parseExpr()
		p.expect(lex.Bang)
		fail := p.parseExpr()
		return ast.CondExpr{Span: p.span(start.Line, start.Column), Cond: cond, Succ: succ, Fail: fail}

	case p.at(lex.Name):
		t := p.advance()
		return ast.NamePath{Span: p.tokSpan(t), Name: t.Text}
	}

	diag.Errorf(p.sink, diag.CodeUnexpectedToken, p.tokSpan(p.cur), "unexpected token %v", p.cur.Kind)
	tok := p.advance()
	return ast.ErrorExpr{Span: p.tokSpan(tok)}
}

func (p *Parser) parseArrayOrOperRef() ast.Expr {
	start := p.cur
	p.advance() // '['
	if isOperStart(p.cur) {
		// first-class operator reference list, e.g. [+, -]
		var elems []ast.Expr
		for !p.at(lex.RBracket) && !p.at(lex.EOF) {
			if isOperStart(p.cur) {
				t := p.advance()
				kind, _ := ast.OperKindFromText(t.Text)
				elems = append(elems, ast.OperExpr{Span: p.tokSpan(t), Kind: kind})
			} else {
				elems = append(elems, p.parseExpr())
			}
			if p.at(lex.Comma) {
				p.advance()
			}
		}
		p.expect(lex.RBracket)
		return ast.ArrayExpr{Span: p.span(start.Line, start.Column), Elems: elems}
	}

	var elems []ast.Expr
	for !p.at(lex.RBracket) && !p.at(lex.EOF) {
		elems = append(elems, p.parseExpr())
		if p.at(lex.Comma) {
			p.advance()
		}
	}
	p.expect(lex.RBracket)
	return ast.ArrayExpr{Span: p.span(start.Line, start.Column), Elems: elems}
}

func isOperStart(t lex.Token) bool {
	switch t.Kind {
	case lex.Plus, lex.Minus, lex.Star, lex.Slash, lex.EqEq, lex.NotEq, lex.Lt, lex.Le, lex.Ge, lex.Gt:
		return true
	}
	return false
}

func (p *Parser) parseBindingOrFuncBinding() ast.Expr {
	start := p.cur
	mut := p.parseMutKw()
	name, _ := p.expect(lex.Name)

	var sig ast.Sign
	if p.at(lex.Colon) {
		p.advance()
		sig = p.parseSign()
	}

	var init ast.Expr
	if p.at(lex.Assign) {
		p.advance()
		init = p.parseExpr()
	}

	p.expect(lex.KwIn)
	body := p.parseExpr()

	decl := ast.BindingDecl{Span: p.span(start.Line, start.Column), Mut: mut, Name: name.Text, Sig: sig}
	return ast.BindingExpr{Span: p.span(start.Line, start.Column), Decl: decl, Init: init, Body: body}
}

func (p *Parser) parseParenOrFuncExpr() ast.Expr {
	if p.looksLikeFuncExpr() {
		return p.parseFuncExpr()
	}
	p.advance() // '('
	e := p.parseExpr()
	p.expect(lex.RParen)
	return e
}

// looksLikeFuncExpr scans ahead (on a throwaway copy of the parser state,
// since Parser holds its Lexer by value, mirroring the teacher's
// Parser{lexer lex.Lexer} shape) to tell `(expr)` apart from `(params) -> Sig { body }`.
func (p *Parser) looksLikeFuncExpr() bool {
	probe := *p
	depth := 0
	for {
		switch probe.cur.Kind {
		case lex.EOF:
			return false
		case lex.LParen:
			depth++
		case lex.RParen:
			depth--
			if depth == 0 {
				probe.advance()
				return probe.at(lex.Arrow)
			}
		}
		probe.advance()
	}
}

func (p *Parser) parseFuncExpr() ast.FuncExpr {
	start := p.cur
	p.expect(lex.LParen)
	var params []ast.ParamDecl
	for !p.at(lex.RParen) && !p.at(lex.EOF) {
		pstart := p.cur
		name, _ := p.expect(lex.Name)
		p.expect(lex.Colon)
		sig := p.parseSign() // may be InoutSign, e.g. "x: inout Int"
		params = append(params, ast.ParamDecl{Span: p.span(pstart.Line, pstart.Column), Name: name.Text, Sig: sig})
		if p.at(lex.Comma) {
			p.advance()
		}
	}
	p.expect(lex.RParen)
	p.expect(lex.Arrow)
	out := p.parseSign()
	p.expect(lex.LBrace)
	body := p.parseExpr()
	p.expect(lex.RBrace)
	return ast.FuncExpr{Span: p.span(start.Line, start.Column), Params: params, OutputSig: out, Body: body}
}
