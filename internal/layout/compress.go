package layout

import (
	"github.com/lookbusy1344/bbasm/internal/ast"
	"github.com/lookbusy1344/bbasm/internal/diag"
	"github.com/lookbusy1344/bbasm/internal/expr"
	"github.com/lookbusy1344/bbasm/internal/isa"
)

// compress runs the second fixed point of spec.md §4.7: repeatedly compute
// addresses from the current sizes, propose every newly-eligible 2-byte
// replacement at those addresses, and loop until a pass proposes none.
//
// The replacement catalog below covers the common cases spec.md calls out
// by name; it is not an exhaustive RVC implementation (the spec's own list
// is explicitly "non-exhaustive" too) — see DESIGN.md.
func compress(flat []ast.Item, scope *expr.Scope, errs *diag.List) {
	addrs := make([]int64, len(flat))
	for {
		scope.ResetLabels()
		var offset int64
		for i, it := range flat {
			addrs[i] = offset
			switch v := it.(type) {
			case *ast.Label:
				scope.Labels[v.Name] = offset
				continue
			case *ast.Align:
				offset += int64(resolveAlign(v, scope, offset, nil))
				continue
			case *ast.Instruction:
				offset += int64(instructionSize(v))
				continue
			}
			sz, _ := fixedSize(it)
			offset += int64(sz)
		}

		changed := false
		for i, it := range flat {
			in, ok := it.(*ast.Instruction)
			if !ok || in.Size == 2 {
				continue
			}
			if tryCompress(in, scope, addrs[i]) {
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

func fitsSigned(v int64, bits uint) bool {
	lim := int64(1) << (bits - 1)
	return v >= -lim && v <= lim-1
}

// tryCompress mutates in to its compressed form and returns true if in is
// currently eligible; it leaves in untouched otherwise so the caller can
// retry on a later fixed-point pass once offsets have shifted.
func tryCompress(in *ast.Instruction, scope *expr.Scope, pc int64) bool {
	switch in.Mnemonic {
	case "addi":
		return tryCompressAddi(in)
	case "add":
		return tryCompressAdd(in)
	case "jal":
		return tryCompressJal(in, scope, pc)
	case "jalr":
		return tryCompressJalr(in)
	case "beq", "bne":
		return tryCompressBranchZero(in, scope, pc)
	case "lui":
		return tryCompressLui(in)
	default:
		return false
	}
}

func literalValue(scope *expr.Scope, op ast.Operand) (int64, bool) {
	if op.Kind != ast.OperandExpr {
		return 0, false
	}
	v, err := scope.Evaluate(op.Expr)
	if err != nil {
		return 0, false
	}
	return v, true
}

// tryCompressAddi handles both `addi rd,x0,imm` -> c.li and
// `addi rd,rd,imm` -> c.addi.
func tryCompressAddi(in *ast.Instruction) bool {
	if len(in.Operands) != 3 {
		return false
	}
	rd, rs, imm := in.Operands[0], in.Operands[1], in.Operands[2]
	if rd.Kind != ast.OperandRegister || rs.Kind != ast.OperandRegister || rd.Reg == 0 {
		return false
	}
	if imm.Kind != ast.OperandExpr {
		return false
	}
	num, ok := imm.Expr.(*ast.NumberLit)
	if !ok || !fitsSigned(num.Value, 6) {
		return false
	}
	if rs.Reg == 0 {
		in.Mnemonic = "c.li"
		in.Operands = []ast.Operand{rd, imm}
		in.Size = 2
		return true
	}
	if rs.Reg == rd.Reg && num.Value != 0 {
		in.Mnemonic = "c.addi"
		in.Operands = []ast.Operand{rd, imm}
		in.Size = 2
		return true
	}
	return false
}

func tryCompressAdd(in *ast.Instruction) bool {
	if len(in.Operands) != 3 {
		return false
	}
	rd, rs1, rs2 := in.Operands[0], in.Operands[1], in.Operands[2]
	if rd.Kind != ast.OperandRegister || rs1.Kind != ast.OperandRegister || rs2.Kind != ast.OperandRegister {
		return false
	}
	if rd.Reg == 0 || rs2.Reg == 0 || rs1.Reg != 0 {
		return false
	}
	in.Mnemonic = "c.mv"
	in.Operands = []ast.Operand{rd, rs2}
	in.Size = 2
	return true
}

func tryCompressJal(in *ast.Instruction, scope *expr.Scope, pc int64) bool {
	if len(in.Operands) != 2 {
		return false
	}
	rd, target := in.Operands[0], in.Operands[1]
	if rd.Kind != ast.OperandRegister || (rd.Reg != 0 && rd.Reg != 1) {
		return false
	}
	v, ok := literalValue(scope, target)
	if !ok {
		return false
	}
	dist := v - pc
	if dist%2 != 0 || !fitsSigned(dist, 11) {
		return false
	}
	if rd.Reg == 0 {
		in.Mnemonic = "c.j"
		in.Operands = []ast.Operand{target}
	} else {
		in.Mnemonic = "c.jal"
		in.Operands = []ast.Operand{target}
	}
	in.Size = 2
	return true
}

func tryCompressJalr(in *ast.Instruction) bool {
	if len(in.Operands) != 3 {
		return false
	}
	rd, rs, off := in.Operands[0], in.Operands[1], in.Operands[2]
	if rd.Kind != ast.OperandRegister || rs.Kind != ast.OperandRegister || rs.Reg == 0 {
		return false
	}
	num, ok := off.Expr.(*ast.NumberLit)
	if off.Kind != ast.OperandExpr || !ok || num.Value != 0 {
		return false
	}
	switch rd.Reg {
	case 0:
		in.Mnemonic = "c.jr"
		in.Operands = []ast.Operand{rs}
	case 1:
		in.Mnemonic = "c.jalr"
		in.Operands = []ast.Operand{rs}
	default:
		return false
	}
	in.Size = 2
	return true
}

func tryCompressBranchZero(in *ast.Instruction, scope *expr.Scope, pc int64) bool {
	if len(in.Operands) != 3 {
		return false
	}
	rs1, rs2, off := in.Operands[0], in.Operands[1], in.Operands[2]
	if rs1.Kind != ast.OperandRegister || rs2.Kind != ast.OperandRegister || rs2.Reg != 0 {
		return false
	}
	if !isa.IsCompressedReg(rs1.Reg) {
		return false
	}
	v, ok := literalValue(scope, off)
	if !ok {
		return false
	}
	dist := v - pc
	if dist%2 != 0 || !fitsSigned(dist, 8) {
		return false
	}
	if in.Mnemonic == "beq" {
		in.Mnemonic = "c.beqz"
	} else {
		in.Mnemonic = "c.bnez"
	}
	in.Operands = []ast.Operand{rs1, off}
	in.Size = 2
	return true
}

func tryCompressLui(in *ast.Instruction) bool {
	if len(in.Operands) != 2 {
		return false
	}
	rd, imm := in.Operands[0], in.Operands[1]
	if rd.Kind != ast.OperandRegister || rd.Reg == 0 || rd.Reg == 2 {
		return false
	}
	num, ok := imm.Expr.(*ast.NumberLit)
	if imm.Kind != ast.OperandExpr || !ok || num.Value == 0 || !fitsSigned(num.Value, 6) {
		return false
	}
	in.Mnemonic = "c.lui"
	in.Size = 2
	return true
}
