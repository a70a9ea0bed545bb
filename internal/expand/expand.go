// Package expand implements the Pseudo-Instruction Expander of spec.md §4.5:
// it rewrites pseudo-instructions into their canonical RV32IMAC forms.
// `li`, `call` and `tail` are variable-width and cannot be expanded once and
// for all here (their chosen form depends on label distances that are only
// known during layout); ResolveVariable is exported for internal/layout to
// call on every fixed-point iteration.
package expand

import (
	"fmt"

	"github.com/lookbusy1344/bbasm/internal/ast"
	"github.com/lookbusy1344/bbasm/internal/diag"
	"github.com/lookbusy1344/bbasm/internal/expr"
)

const (
	regZero uint8 = 0
	regRA   uint8 = 1
	regT1   uint8 = 6
)

// variableWidth names the pseudo-instructions whose expansion is re-decided
// during layout rather than fixed here.
var variableWidth = map[string]bool{"li": true, "call": true, "tail": true}

// Expand rewrites every fixed-width pseudo-instruction into one or more
// canonical Instructions, in place of the original item. li/call/tail pass
// through unchanged for internal/layout to resolve.
func Expand(items []ast.Item) ([]ast.Item, *diag.List) {
	errs := &diag.List{}
	out := make([]ast.Item, 0, len(items))
	for _, it := range items {
		p, ok := it.(*ast.PseudoInstruction)
		if !ok {
			out = append(out, it)
			continue
		}
		if variableWidth[p.Mnemonic] {
			out = append(out, p)
			continue
		}
		expanded, err := expandFixed(p)
		if err != nil {
			errs.Addf(p.Pos, diag.KindInstructionForm, "%s", err)
			continue
		}
		for _, e := range expanded {
			out = append(out, e)
		}
	}
	return out, errs
}

func reg(n uint8) ast.Operand             { return ast.Operand{Kind: ast.OperandRegister, Reg: n} }
func exprOp(e ast.Expr) ast.Operand       { return ast.Operand{Kind: ast.OperandExpr, Expr: e} }
func num(v int64) ast.Expr                { return &ast.NumberLit{Value: v} }
func instr(pos diag.Position, mnem string, ops ...ast.Operand) *ast.Instruction {
	return &ast.Instruction{Pos: pos, Mnemonic: mnem, Operands: ops}
}

func expandFixed(p *ast.PseudoInstruction) ([]*ast.Instruction, error) {
	pos := p.Pos
	ops := p.Operands

	need := func(n int) error {
		if len(ops) != n {
			return fmt.Errorf("%s expects %d operand(s), got %d", p.Mnemonic, n, len(ops))
		}
		return nil
	}

	switch p.Mnemonic {
	case "nop":
		if err := need(0); err != nil {
			return nil, err
		}
		return []*ast.Instruction{instr(pos, "addi", reg(regZero), reg(regZero), exprOp(num(0)))}, nil

	case "mv":
		if err := need(2); err != nil {
			return nil, err
		}
		return []*ast.Instruction{instr(pos, "addi", ops[0], ops[1], exprOp(num(0)))}, nil

	case "not":
		if err := need(2); err != nil {
			return nil, err
		}
		return []*ast.Instruction{instr(pos, "xori", ops[0], ops[1], exprOp(num(-1)))}, nil

	case "neg":
		if err := need(2); err != nil {
			return nil, err
		}
		return []*ast.Instruction{instr(pos, "sub", ops[0], reg(regZero), ops[1])}, nil

	case "seqz":
		if err := need(2); err != nil {
			return nil, err
		}
		return []*ast.Instruction{instr(pos, "sltiu", ops[0], ops[1], exprOp(num(1)))}, nil

	case "snez":
		if err := need(2); err != nil {
			return nil, err
		}
		return []*ast.Instruction{instr(pos, "sltu", ops[0], reg(regZero), ops[1])}, nil

	case "sltz":
		if err := need(2); err != nil {
			return nil, err
		}
		return []*ast.Instruction{instr(pos, "slt", ops[0], ops[1], reg(regZero))}, nil

	case "sgtz":
		if err := need(2); err != nil {
			return nil, err
		}
		return []*ast.Instruction{instr(pos, "slt", ops[0], reg(regZero), ops[1])}, nil

	case "beqz":
		if err := need(2); err != nil {
			return nil, err
		}
		return []*ast.Instruction{instr(pos, "beq", ops[0], reg(regZero), ops[1])}, nil
	case "bnez":
		if err := need(2); err != nil {
			return nil, err
		}
		return []*ast.Instruction{instr(pos, "bne", ops[0], reg(regZero), ops[1])}, nil
	case "blez":
		if err := need(2); err != nil {
			return nil, err
		}
		return []*ast.Instruction{instr(pos, "bge", reg(regZero), ops[0], ops[1])}, nil
	case "bgez":
		if err := need(2); err != nil {
			return nil, err
		}
		return []*ast.Instruction{instr(pos, "bge", ops[0], reg(regZero), ops[1])}, nil
	case "bltz":
		if err := need(2); err != nil {
			return nil, err
		}
		return []*ast.Instruction{instr(pos, "blt", ops[0], reg(regZero), ops[1])}, nil
	case "bgtz":
		if err := need(2); err != nil {
			return nil, err
		}
		return []*ast.Instruction{instr(pos, "blt", reg(regZero), ops[0], ops[1])}, nil

	case "bgt":
		if err := need(3); err != nil {
			return nil, err
		}
		return []*ast.Instruction{instr(pos, "blt", ops[1], ops[0], ops[2])}, nil
	case "ble":
		if err := need(3); err != nil {
			return nil, err
		}
		return []*ast.Instruction{instr(pos, "bge", ops[1], ops[0], ops[2])}, nil
	case "bgtu":
		if err := need(3); err != nil {
			return nil, err
		}
		return []*ast.Instruction{instr(pos, "bltu", ops[1], ops[0], ops[2])}, nil
	case "bleu":
		if err := need(3); err != nil {
			return nil, err
		}
		return []*ast.Instruction{instr(pos, "bgeu", ops[1], ops[0], ops[2])}, nil

	case "j":
		if err := need(1); err != nil {
			return nil, err
		}
		return []*ast.Instruction{instr(pos, "jal", reg(regZero), ops[0])}, nil
	case "jal":
		if err := need(1); err != nil {
			return nil, err
		}
		return []*ast.Instruction{instr(pos, "jal", reg(regRA), ops[0])}, nil
	case "jr":
		if err := need(1); err != nil {
			return nil, err
		}
		return []*ast.Instruction{instr(pos, "jalr", reg(regZero), ops[0], exprOp(num(0)))}, nil
	case "jalr":
		if err := need(1); err != nil {
			return nil, err
		}
		return []*ast.Instruction{instr(pos, "jalr", reg(regRA), ops[0], exprOp(num(0)))}, nil
	case "ret":
		if err := need(0); err != nil {
			return nil, err
		}
		return []*ast.Instruction{instr(pos, "jalr", reg(regZero), reg(regRA), exprOp(num(0)))}, nil

	case "fence":
		if err := need(0); err != nil {
			return nil, err
		}
		const iorw = 0xF
		return []*ast.Instruction{instr(pos, "fence", exprOp(num(iorw)), exprOp(num(iorw)))}, nil

	default:
		return nil, fmt.Errorf("unknown pseudo-instruction %q", p.Mnemonic)
	}
}

// liImmMin/Max are the signed 12-bit range addi can hold directly.
const (
	liImmMin = -2048
	liImmMax = 2047
)

// ResolveVariable computes the current expansion of a variable-width
// pseudo-instruction (li/call/tail), given the already-resolved constant and
// label scope and the byte offset `pc` at which this item begins. Called
// fresh on every layout fixed-point iteration (spec §4.6).
func ResolveVariable(p *ast.PseudoInstruction, scope *expr.Scope, pc int64) ([]*ast.Instruction, error) {
	switch p.Mnemonic {
	case "li":
		return resolveLi(p, scope)
	case "call":
		return resolveLongBranch(p, scope, pc, regRA, regRA, regRA)
	case "tail":
		return resolveLongBranch(p, scope, pc, regZero, regT1, regZero)
	default:
		return nil, fmt.Errorf("%q is not a variable-width pseudo-instruction", p.Mnemonic)
	}
}

func resolveLi(p *ast.PseudoInstruction, scope *expr.Scope) ([]*ast.Instruction, error) {
	if len(p.Operands) != 2 {
		return nil, fmt.Errorf("li expects 2 operands, got %d", len(p.Operands))
	}
	rd := p.Operands[0]
	imm, err := scope.Evaluate(p.Operands[1].Expr)
	if err != nil {
		return nil, err
	}
	pos := p.Pos

	if imm >= liImmMin && imm <= liImmMax {
		return []*ast.Instruction{instr(pos, "addi", rd, reg(regZero), exprOp(num(imm)))}, nil
	}

	hi, err := scope.Evaluate(&ast.HiExpr{X: num(imm)})
	if err != nil {
		return nil, err
	}
	if imm&0xFFF == 0 {
		return []*ast.Instruction{instr(pos, "lui", rd, exprOp(num(hi)))}, nil
	}
	lo, err := scope.Evaluate(&ast.LoExpr{X: num(imm)})
	if err != nil {
		return nil, err
	}
	return []*ast.Instruction{
		instr(pos, "lui", rd, exprOp(num(hi))),
		instr(pos, "addi", rd, rd, exprOp(num(lo))),
	}, nil
}

// jalRangeMin/Max are the signed byte-offset bounds of jal's 21-bit
// multiple-of-2 immediate field.
const (
	jalRangeMin = -(1 << 20)
	jalRangeMax = (1 << 20) - 2
)

// resolveLongBranch implements `call`/`tail`: a single jal when the target
// is in jal's PC-relative range at this offset (jalDest as jal's
// destination), otherwise an auipc+jalr pair using tmpAuipc as the scratch
// register and jalrDest as jalr's destination.
func resolveLongBranch(p *ast.PseudoInstruction, scope *expr.Scope, pc int64, jalDest, tmpAuipc, jalrDest uint8) ([]*ast.Instruction, error) {
	if len(p.Operands) != 1 {
		return nil, fmt.Errorf("%s expects 1 operand, got %d", p.Mnemonic, len(p.Operands))
	}
	target, err := scope.Evaluate(p.Operands[0].Expr)
	if err != nil {
		return nil, err
	}
	pos := p.Pos
	dist := target - pc
	if dist >= jalRangeMin && dist <= jalRangeMax && dist%2 == 0 {
		return []*ast.Instruction{instr(pos, "jal", reg(jalDest), exprOp(num(target)))}, nil
	}

	hi, err := scope.Evaluate(&ast.HiExpr{X: num(dist)})
	if err != nil {
		return nil, err
	}
	lo, err := scope.Evaluate(&ast.LoExpr{X: num(dist)})
	if err != nil {
		return nil, err
	}
	return []*ast.Instruction{
		instr(pos, "auipc", reg(tmpAuipc), exprOp(num(hi))),
		instr(pos, "jalr", reg(jalrDest), reg(tmpAuipc), exprOp(num(lo))),
	}, nil
}
