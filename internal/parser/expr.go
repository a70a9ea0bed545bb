package parser

import (
	"strconv"

	"github.com/lookbusy1344/bbasm/internal/ast"
	"github.com/lookbusy1344/bbasm/internal/diag"
	"github.com/lookbusy1344/bbasm/internal/token"
)

// precedence implements the table of spec.md §4.4, high to low: unary first,
// then `* / %`, `+ -`, `<< >>`, `&`, `^`, `|`.
func precedence(op string) int {
	switch op {
	case "*", "/", "%":
		return 6
	case "+", "-":
		return 5
	case "<<", ">>":
		return 4
	case "&":
		return 3
	case "^":
		return 2
	case "|":
		return 1
	default:
		return -1
	}
}

// exprParser walks a single line's token slice with a cursor, building
// ast.Expr trees with precedence climbing.
type exprParser struct {
	toks []token.Token
	i    int
	errs *diag.List
}

func (p *exprParser) cur() token.Token  { return p.toks[p.i] }
func (p *exprParser) advance() token.Token {
	t := p.toks[p.i]
	if p.i < len(p.toks)-1 {
		p.i++
	}
	return t
}

// atExprStart reports whether the current token can begin an expression,
// used by callers that parse repeated expression lists to know when to stop.
func (p *exprParser) atExprStart() bool {
	switch p.cur().Kind {
	case token.Integer, token.Char, token.Identifier, token.OpenParen, token.Percent:
		return true
	case token.Operator:
		return p.cur().Lexeme == "+" || p.cur().Lexeme == "-" || p.cur().Lexeme == "~"
	default:
		return false
	}
}

// parseExpr parses one expression starting at the current position using
// precedence climbing; it stops as soon as the next token is not a binary
// operator, which is what lets juxtaposed expressions in a data-directive
// list parse as independent expressions with no separator required.
func (p *exprParser) parseExpr(minPrec int) ast.Expr {
	left := p.parseUnary()
	for {
		t := p.cur()
		// The lexer emits every '%' as token.Percent; in binary position it is
		// the modulo operator unless it introduces %hi/%lo/%position.
		isModulo := false
		if t.Kind == token.Percent && p.i+1 < len(p.toks) {
			next := p.toks[p.i+1]
			isModulo = !(next.Kind == token.Identifier && (next.Lexeme == "hi" || next.Lexeme == "lo" || next.Lexeme == "position"))
		}
		if t.Kind != token.Operator && !isModulo {
			return left
		}
		prec := precedence(t.Lexeme)
		if prec < 0 || prec < minPrec {
			return left
		}
		p.advance()
		right := p.parseExpr(prec + 1)
		left = &ast.BinaryExpr{Pos: t.Pos, Op: t.Lexeme, L: left, R: right}
	}
}

func (p *exprParser) parseUnary() ast.Expr {
	t := p.cur()
	if t.Kind == token.Operator && (t.Lexeme == "+" || t.Lexeme == "-" || t.Lexeme == "~") {
		p.advance()
		x := p.parseUnary()
		return &ast.UnaryExpr{Pos: t.Pos, Op: t.Lexeme, X: x}
	}
	if t.Kind == token.Percent {
		return p.parseModifier()
	}
	return p.parsePrimary()
}

func (p *exprParser) parseModifier() ast.Expr {
	pct := p.advance() // consume '%'
	name := p.advance()
	if name.Kind != token.Identifier {
		p.errs.Addf(name.Pos, diag.KindSyntax, "expected modifier name after %%, got %q", name.Lexeme)
		return &ast.NumberLit{Pos: pct.Pos, Value: 0}
	}
	if p.cur().Kind != token.OpenParen {
		p.errs.Addf(p.cur().Pos, diag.KindSyntax, "expected '(' after %%%s", name.Lexeme)
		return &ast.NumberLit{Pos: pct.Pos, Value: 0}
	}
	p.advance() // consume '('

	switch name.Lexeme {
	case "hi":
		x := p.parseExpr(0)
		p.expectClose()
		return &ast.HiExpr{Pos: pct.Pos, X: x}
	case "lo":
		x := p.parseExpr(0)
		p.expectClose()
		return &ast.LoExpr{Pos: pct.Pos, X: x}
	case "position":
		label := p.advance()
		if label.Kind != token.Identifier {
			p.errs.Addf(label.Pos, diag.KindSyntax, "expected label name in %%position(...)")
		}
		base := ast.Expr(&ast.NumberLit{Pos: pct.Pos, Value: 0})
		if p.cur().Kind != token.CloseParen {
			base = p.parseExpr(0)
		}
		p.expectClose()
		return &ast.PositionExpr{Pos: pct.Pos, Label: label.Lexeme, Base: base}
	default:
		p.errs.Addf(pct.Pos, diag.KindSyntax, "unknown expression modifier %%%s", name.Lexeme)
		x := p.parseExpr(0)
		p.expectClose()
		return x
	}
}

func (p *exprParser) expectClose() {
	if p.cur().Kind != token.CloseParen {
		p.errs.Addf(p.cur().Pos, diag.KindSyntax, "expected ')'")
		return
	}
	p.advance()
}

func (p *exprParser) parsePrimary() ast.Expr {
	t := p.cur()
	switch t.Kind {
	case token.Integer:
		p.advance()
		v, err := parseIntLiteral(t.Lexeme)
		if err != nil {
			p.errs.Addf(t.Pos, diag.KindSyntax, "malformed numeric literal %q", t.Lexeme)
			return &ast.NumberLit{Pos: t.Pos, Value: 0}
		}
		return &ast.NumberLit{Pos: t.Pos, Value: v}
	case token.Char:
		p.advance()
		v, ok := charLiteralValue(t.Lexeme)
		if !ok {
			p.errs.Addf(t.Pos, diag.KindSyntax, "character literal must be exactly one Unicode scalar value, got %q", t.Lexeme)
			return &ast.NumberLit{Pos: t.Pos, Value: 0}
		}
		return &ast.CharLit{Pos: t.Pos, Value: v}
	case token.Identifier:
		p.advance()
		return &ast.Ident{Pos: t.Pos, Name: t.Lexeme}
	case token.OpenParen:
		p.advance()
		x := p.parseExpr(0)
		p.expectClose()
		return x
	default:
		p.errs.Addf(t.Pos, diag.KindSyntax, "expected expression, got %s", t.Kind)
		p.advance()
		return &ast.NumberLit{Pos: t.Pos, Value: 0}
	}
}

func parseIntLiteral(lexeme string) (int64, error) {
	return strconv.ParseInt(lexeme, 0, 64)
}

// charLiteralValue decodes a character-literal's quoted content as exactly
// one Unicode scalar value, with no backslash-escape interpretation (spec
// Open Question a/b): `'\0'` is two runes, not one, and is rejected.
func charLiteralValue(content string) (int64, bool) {
	runes := []rune(content)
	if len(runes) != 1 {
		return 0, false
	}
	return int64(runes[0]), true
}
