// Package parser turns a lexed source line stream into the program IR of
// spec.md §3/§4.3: an ordered sequence of ast.Item values.
package parser

import (
	"github.com/lookbusy1344/bbasm/internal/ast"
	"github.com/lookbusy1344/bbasm/internal/diag"
	"github.com/lookbusy1344/bbasm/internal/isa"
	"github.com/lookbusy1344/bbasm/internal/source"
	"github.com/lookbusy1344/bbasm/internal/token"
)

// Parse turns the include-expanded line stream into items, in source order.
// Parsing never stops at the first error: independent line-level errors are
// collected into the returned diag.List so a single run reports all of them.
func Parse(lines []source.Line) ([]ast.Item, *diag.List) {
	errs := &diag.List{}
	var items []ast.Item
	for _, ln := range lines {
		toks := token.NewLexer(ln.File, ln.LineNo, ln.Text, errs).Tokenize()
		if len(toks) == 0 || toks[0].Kind == token.EOF {
			continue
		}
		if item := parseLine(toks, errs); item != nil {
			items = append(items, item)
		}
	}
	return items, errs
}

var dataDirectives = map[string]func(diag.Position, []ast.Expr) ast.Item{
	"bytes":     func(p diag.Position, v []ast.Expr) ast.Item { return &ast.BytesLiteral{Pos: p, Values: v} },
	"shorts":    func(p diag.Position, v []ast.Expr) ast.Item { return &ast.ShortsLiteral{Pos: p, Values: v} },
	"ints":      func(p diag.Position, v []ast.Expr) ast.Item { return &ast.IntsLiteral{Pos: p, Values: v} },
	"longs":     func(p diag.Position, v []ast.Expr) ast.Item { return &ast.LongsLiteral{Pos: p, Values: v} },
	"longlongs": func(p diag.Position, v []ast.Expr) ast.Item { return &ast.LongLongsLiteral{Pos: p, Values: v} },
}

// shorthandWidths maps the `db`/`dh`/`dw`/`dd` directives to their emitted
// width in bytes (spec §4.3).
var shorthandWidths = map[string]int{"db": 1, "dh": 2, "dw": 4, "dd": 8}

func parseLine(toks []token.Token, errs *diag.List) ast.Item {
	first := toks[0]

	if first.Kind == token.Keyword {
		switch first.Lexeme {
		case "string":
			return parseCapturedRest(toks, false)
		case "error":
			return parseCapturedRest(toks, true)
		case "include_bytes":
			return parseIncludeBytes(toks, errs)
		default:
			errs.Addf(first.Pos, diag.KindSyntax, "unexpected directive %q", first.Lexeme)
			return nil
		}
	}

	if first.Kind != token.Identifier {
		errs.Addf(first.Pos, diag.KindSyntax, "expected identifier, directive or mnemonic, got %s", first.Kind)
		return nil
	}

	if len(toks) > 1 && toks[1].Kind == token.Colon {
		if len(toks) > 2 && toks[2].Kind != token.EOF {
			errs.Addf(toks[2].Pos, diag.KindSyntax, "unexpected tokens after label")
		}
		return &ast.Label{Pos: first.Pos, Name: first.Lexeme}
	}

	if len(toks) > 1 && toks[1].Kind == token.Operator && toks[1].Lexeme == "=" {
		ep := &exprParser{toks: toks, i: 2, errs: errs}
		expr := ep.parseExpr(0)
		requireEOF(ep, errs)
		return &ast.ConstantDef{Pos: first.Pos, Name: first.Lexeme, Expr: expr}
	}

	if ctor, ok := dataDirectives[first.Lexeme]; ok {
		ep := &exprParser{toks: toks, i: 1, errs: errs}
		values := parseExprList(ep)
		requireEOF(ep, errs)
		if len(values) == 0 {
			errs.Addf(first.Pos, diag.KindSyntax, "%s requires at least one value", first.Lexeme)
		}
		return ctor(first.Pos, values)
	}

	if width, ok := shorthandWidths[first.Lexeme]; ok {
		ep := &exprParser{toks: toks, i: 1, errs: errs}
		expr := ep.parseExpr(0)
		requireEOF(ep, errs)
		return &ast.Pack{Pos: first.Pos, Endian: '<', Width: width, AutoSign: true, Expr: expr}
	}

	if first.Lexeme == "pack" {
		return parsePack(toks, first.Pos, errs)
	}

	if first.Lexeme == "align" {
		ep := &exprParser{toks: toks, i: 1, errs: errs}
		n := ep.parseExpr(0)
		requireEOF(ep, errs)
		return &ast.Align{Pos: first.Pos, N: n}
	}

	return parseInstruction(toks, first, errs)
}

func requireEOF(ep *exprParser, errs *diag.List) {
	if ep.cur().Kind != token.EOF {
		errs.Addf(ep.cur().Pos, diag.KindSyntax, "unexpected trailing token %q", ep.cur().Lexeme)
	}
}

func parseExprList(ep *exprParser) []ast.Expr {
	var out []ast.Expr
	for ep.atExprStart() {
		out = append(out, ep.parseExpr(0))
	}
	return out
}

func parseInstruction(toks []token.Token, mnemonic token.Token, errs *diag.List) ast.Item {
	ep := &exprParser{toks: toks, i: 1, errs: errs}
	var ops []ast.Operand
	for ep.atExprStart() {
		ops = append(ops, parseOperand(ep))
	}
	requireEOF(ep, errs)
	if isPseudo(mnemonic.Lexeme, len(ops)) {
		return &ast.PseudoInstruction{Pos: mnemonic.Pos, Mnemonic: mnemonic.Lexeme, Operands: ops}
	}
	return &ast.Instruction{Pos: mnemonic.Pos, Mnemonic: mnemonic.Lexeme, Operands: ops}
}

// parseOperand reads one register, expression, or `imm(rs)` memory operand.
func parseOperand(ep *exprParser) ast.Operand {
	pos := ep.cur().Pos
	e := ep.parseExpr(0)

	if ep.cur().Kind == token.OpenParen {
		ep.advance()
		regTok := ep.advance()
		reg, ok := isa.RegisterNumber(regTok.Lexeme)
		if !ok {
			ep.errs.Addf(regTok.Pos, diag.KindInstructionForm, "expected register name in memory operand, got %q", regTok.Lexeme)
		}
		ep.expectClose()
		return ast.Operand{Kind: ast.OperandMemory, Pos: pos, Reg: reg, Expr: e}
	}

	if id, ok := e.(*ast.Ident); ok {
		if reg, isReg := isa.RegisterNumber(id.Name); isReg {
			return ast.Operand{Kind: ast.OperandRegister, Pos: pos, Reg: reg}
		}
	}
	return ast.Operand{Kind: ast.OperandExpr, Pos: pos, Expr: e}
}

func parsePack(toks []token.Token, pos diag.Position, errs *diag.List) ast.Item {
	if len(toks) < 3 || toks[1].Kind != token.Operator || (toks[1].Lexeme != "<" && toks[1].Lexeme != ">") {
		errs.Addf(pos, diag.KindSyntax, "pack requires an endianness sigil '<' or '>' followed by a format letter")
		return nil
	}
	endian := toks[1].Lexeme[0]
	formatTok := toks[2]
	if formatTok.Kind != token.Identifier || len(formatTok.Lexeme) != 1 {
		errs.Addf(formatTok.Pos, diag.KindSyntax, "invalid pack format %q", formatTok.Lexeme)
		return nil
	}

	width, signed, ok := packFormat(formatTok.Lexeme[0])
	if !ok {
		errs.Addf(formatTok.Pos, diag.KindSyntax, "unsupported pack format %q: bbasm does not implement floating-point pack formats", formatTok.Lexeme)
		return nil
	}

	ep := &exprParser{toks: toks, i: 3, errs: errs}
	expr := ep.parseExpr(0)
	requireEOF(ep, errs)
	return &ast.Pack{Pos: pos, Endian: endian, Width: width, Signed: signed, Expr: expr}
}

// packFormat maps a format letter to its width and signedness. `f`/`d`
// (IEEE-754 single/double) are deliberately rejected: see DESIGN.md's Open
// Question decision.
func packFormat(c byte) (width int, signed bool, ok bool) {
	switch c {
	case 'b':
		return 1, true, true
	case 'B':
		return 1, false, true
	case 'h':
		return 2, true, true
	case 'H':
		return 2, false, true
	case 'i':
		return 4, true, true
	case 'I':
		return 4, false, true
	case 'q':
		return 8, true, true
	case 'Q':
		return 8, false, true
	default:
		return 0, false, false
	}
}

func parseCapturedRest(toks []token.Token, isError bool) ast.Item {
	kw := toks[0]
	var payload string
	if len(toks) > 1 && toks[1].Kind == token.StringRest {
		payload = toks[1].Lexeme
	}
	if isError {
		return &ast.ErrorDirective{Pos: kw.Pos, Message: payload}
	}
	return &ast.StringLiteral{Pos: kw.Pos, Raw: []byte(payload)}
}

func parseIncludeBytes(toks []token.Token, errs *diag.List) ast.Item {
	kw := toks[0]
	if len(toks) < 2 || toks[1].Kind != token.Path {
		errs.Addf(kw.Pos, diag.KindSyntax, "include_bytes requires a path argument")
		return nil
	}
	return &ast.IncludeBytes{Pos: kw.Pos, Path: toks[1].Lexeme}
}
