package encoder

import (
	"fmt"

	"github.com/lookbusy1344/bbasm/internal/ast"
	"github.com/lookbusy1344/bbasm/internal/expr"
)

// RV32I/M/A base opcodes (RISC-V unprivileged ISA §2.2, §24, §8).
const (
	opLUI     = 0x37
	opAUIPC   = 0x17
	opJAL     = 0x6F
	opJALR    = 0x67
	opBRANCH  = 0x63
	opLOAD    = 0x03
	opSTORE   = 0x23
	opOPIMM   = 0x13
	opOP      = 0x33
	opMISCMEM = 0x0F
	opSYSTEM  = 0x73
	opAMO     = 0x2F
)

type rSpec struct{ funct3, funct7 uint32 }

var rTypeTable = map[string]rSpec{
	"add": {0x0, 0x00}, "sub": {0x0, 0x20},
	"sll": {0x1, 0x00},
	"slt": {0x2, 0x00}, "sltu": {0x3, 0x00},
	"xor": {0x4, 0x00},
	"srl": {0x5, 0x00}, "sra": {0x5, 0x20},
	"or": {0x6, 0x00}, "and": {0x7, 0x00},
	// M extension
	"mul": {0x0, 0x01}, "mulh": {0x1, 0x01}, "mulhsu": {0x2, 0x01}, "mulhu": {0x3, 0x01},
	"div": {0x4, 0x01}, "divu": {0x5, 0x01}, "rem": {0x6, 0x01}, "remu": {0x7, 0x01},
}

var iTypeTable = map[string]uint32{
	"addi": 0x0, "slti": 0x2, "sltiu": 0x3, "xori": 0x4, "ori": 0x6, "andi": 0x7,
}

var shiftTable = map[string]struct {
	funct3, funct7 uint32
}{
	"slli": {0x1, 0x00}, "srli": {0x5, 0x00}, "srai": {0x5, 0x20},
}

var loadTable = map[string]uint32{
	"lb": 0x0, "lh": 0x1, "lw": 0x2, "lbu": 0x4, "lhu": 0x5,
}

var storeTable = map[string]uint32{
	"sb": 0x0, "sh": 0x1, "sw": 0x2,
}

var branchTable = map[string]uint32{
	"beq": 0x0, "bne": 0x1, "blt": 0x4, "bge": 0x5, "bltu": 0x6, "bgeu": 0x7,
}

// amoTable maps the A-extension word-width mnemonics to their funct5 (aq/rl
// default to 0, per spec §4.8).
var amoTable = map[string]uint32{
	"lr.w": 0x02, "sc.w": 0x03, "amoswap.w": 0x01, "amoadd.w": 0x00,
	"amoxor.w": 0x04, "amoand.w": 0x0C, "amoor.w": 0x08,
	"amomin.w": 0x10, "amomax.w": 0x14, "amominu.w": 0x18, "amomaxu.w": 0x1C,
}

// EncodeInstruction encodes one canonical Instruction, dispatching on
// whether its mnemonic is a `c.`-prefixed compressed form (emitted by
// internal/layout's compressor) or a 32-bit base form.
func EncodeInstruction(in *ast.Instruction, scope *expr.Scope, pc int64) (uint32, int, error) {
	if len(in.Mnemonic) > 2 && in.Mnemonic[:2] == "c." {
		word, err := encodeCompressed(in, scope, pc)
		return word, 2, err
	}
	word, err := encodeBase(in, scope, pc)
	return word, 4, err
}

func regOf(op ast.Operand) (uint32, error) {
	if op.Kind != ast.OperandRegister {
		return 0, fmt.Errorf("expected a register operand")
	}
	return uint32(op.Reg), nil
}

func immOf(scope *expr.Scope, op ast.Operand) (int64, error) {
	if op.Kind != ast.OperandExpr {
		return 0, fmt.Errorf("expected an immediate operand")
	}
	return scope.Evaluate(op.Expr)
}

// memOf evaluates an `imm(rs)`-style memory operand into its base register
// and offset.
func memOf(scope *expr.Scope, op ast.Operand) (uint32, int64, error) {
	if op.Kind != ast.OperandMemory {
		return 0, 0, fmt.Errorf("expected a memory operand")
	}
	off, err := scope.Evaluate(op.Expr)
	if err != nil {
		return 0, 0, err
	}
	return uint32(op.Reg), off, nil
}

// memOfZero evaluates a memory operand that must carry no offset (the A
// extension's `(rs1)`-only addressing, spec §4.8): any non-zero offset is an
// instruction-form error rather than being silently dropped.
func memOfZero(scope *expr.Scope, op ast.Operand) (uint32, error) {
	rs1, off, err := memOf(scope, op)
	if err != nil {
		return 0, err
	}
	if off != 0 {
		return 0, fmt.Errorf("atomic memory operand does not accept an offset, got %d", off)
	}
	return rs1, nil
}

func need(in *ast.Instruction, n int) error {
	if len(in.Operands) != n {
		return fmt.Errorf("%s expects %d operand(s), got %d", in.Mnemonic, n, len(in.Operands))
	}
	return nil
}

func encodeBase(in *ast.Instruction, scope *expr.Scope, pc int64) (uint32, error) {
	m := in.Mnemonic

	if spec, ok := rTypeTable[m]; ok {
		if err := need(in, 3); err != nil {
			return 0, err
		}
		rd, err := regOf(in.Operands[0])
		if err != nil {
			return 0, err
		}
		rs1, err := regOf(in.Operands[1])
		if err != nil {
			return 0, err
		}
		rs2, err := regOf(in.Operands[2])
		if err != nil {
			return 0, err
		}
		return encodeR(opOP, spec.funct3, spec.funct7, rd, rs1, rs2), nil
	}

	if funct3, ok := iTypeTable[m]; ok {
		if err := need(in, 3); err != nil {
			return 0, err
		}
		rd, err := regOf(in.Operands[0])
		if err != nil {
			return 0, err
		}
		rs1, err := regOf(in.Operands[1])
		if err != nil {
			return 0, err
		}
		imm, err := immOf(scope, in.Operands[2])
		if err != nil {
			return 0, err
		}
		if imm < -2048 || imm > 2047 {
			return 0, fmt.Errorf("immediate %d does not fit in a signed 12-bit field", imm)
		}
		return encodeI(opOPIMM, funct3, rd, rs1, imm), nil
	}

	if spec, ok := shiftTable[m]; ok {
		if err := need(in, 3); err != nil {
			return 0, err
		}
		rd, err := regOf(in.Operands[0])
		if err != nil {
			return 0, err
		}
		rs1, err := regOf(in.Operands[1])
		if err != nil {
			return 0, err
		}
		shamt, err := immOf(scope, in.Operands[2])
		if err != nil {
			return 0, err
		}
		if shamt < 0 || shamt > 31 {
			return 0, fmt.Errorf("shift amount %d out of range 0..31", shamt)
		}
		return encodeShift(opOPIMM, spec.funct3, rd, rs1, uint32(shamt), spec.funct7), nil
	}

	if funct3, ok := loadTable[m]; ok {
		if err := need(in, 2); err != nil {
			return 0, err
		}
		rd, err := regOf(in.Operands[0])
		if err != nil {
			return 0, err
		}
		rs1, off, err := memOf(scope, in.Operands[1])
		if err != nil {
			return 0, err
		}
		if off < -2048 || off > 2047 {
			return 0, fmt.Errorf("load offset %d does not fit in a signed 12-bit field", off)
		}
		return encodeI(opLOAD, funct3, rd, rs1, off), nil
	}

	if funct3, ok := storeTable[m]; ok {
		if err := need(in, 2); err != nil {
			return 0, err
		}
		rs2, err := regOf(in.Operands[0])
		if err != nil {
			return 0, err
		}
		rs1, off, err := memOf(scope, in.Operands[1])
		if err != nil {
			return 0, err
		}
		if off < -2048 || off > 2047 {
			return 0, fmt.Errorf("store offset %d does not fit in a signed 12-bit field", off)
		}
		return encodeS(opSTORE, funct3, rs1, rs2, off), nil
	}

	if funct3, ok := branchTable[m]; ok {
		if err := need(in, 3); err != nil {
			return 0, err
		}
		rs1, err := regOf(in.Operands[0])
		if err != nil {
			return 0, err
		}
		rs2, err := regOf(in.Operands[1])
		if err != nil {
			return 0, err
		}
		target, err := immOf(scope, in.Operands[2])
		if err != nil {
			return 0, err
		}
		dist := target - pc
		if dist%2 != 0 || dist < -4096 || dist > 4094 {
			return 0, fmt.Errorf("branch distance %d out of range or not 2-byte aligned", dist)
		}
		return encodeB(opBRANCH, funct3, rs1, rs2, dist), nil
	}

	switch m {
	case "lui":
		if err := need(in, 2); err != nil {
			return 0, err
		}
		rd, err := regOf(in.Operands[0])
		if err != nil {
			return 0, err
		}
		imm, err := immOf(scope, in.Operands[1])
		if err != nil {
			return 0, err
		}
		if imm < -524288 || imm > 1048575 {
			return 0, fmt.Errorf("lui immediate %d does not fit in 20 bits", imm)
		}
		return encodeU(opLUI, rd, imm), nil

	case "auipc":
		if err := need(in, 2); err != nil {
			return 0, err
		}
		rd, err := regOf(in.Operands[0])
		if err != nil {
			return 0, err
		}
		imm, err := immOf(scope, in.Operands[1])
		if err != nil {
			return 0, err
		}
		return encodeU(opAUIPC, rd, imm), nil

	case "jal":
		if err := need(in, 2); err != nil {
			return 0, err
		}
		rd, err := regOf(in.Operands[0])
		if err != nil {
			return 0, err
		}
		target, err := immOf(scope, in.Operands[1])
		if err != nil {
			return 0, err
		}
		dist := target - pc
		if dist%2 != 0 || dist < -(1<<20) || dist > (1<<20)-2 {
			return 0, fmt.Errorf("jal distance %d out of range or not 2-byte aligned", dist)
		}
		return encodeJ(opJAL, rd, dist), nil

	case "jalr":
		if err := need(in, 3); err != nil {
			return 0, err
		}
		rd, err := regOf(in.Operands[0])
		if err != nil {
			return 0, err
		}
		rs1, err := regOf(in.Operands[1])
		if err != nil {
			return 0, err
		}
		imm, err := immOf(scope, in.Operands[2])
		if err != nil {
			return 0, err
		}
		if imm < -2048 || imm > 2047 {
			return 0, fmt.Errorf("jalr offset %d does not fit in a signed 12-bit field", imm)
		}
		return encodeI(opJALR, 0x0, rd, rs1, imm), nil

	case "fence":
		if err := need(in, 2); err != nil {
			return 0, err
		}
		pred, err := immOf(scope, in.Operands[0])
		if err != nil {
			return 0, err
		}
		succ, err := immOf(scope, in.Operands[1])
		if err != nil {
			return 0, err
		}
		return encodeI(opMISCMEM, 0x0, 0, 0, (pred&0xF)<<4|(succ&0xF)), nil

	case "ecall":
		if err := need(in, 0); err != nil {
			return 0, err
		}
		return encodeI(opSYSTEM, 0x0, 0, 0, 0x000), nil

	case "ebreak":
		if err := need(in, 0); err != nil {
			return 0, err
		}
		return encodeI(opSYSTEM, 0x0, 0, 0, 0x001), nil
	}

	if funct5, ok := amoTable[m]; ok {
		if m == "lr.w" {
			if err := need(in, 2); err != nil {
				return 0, err
			}
			rd, err := regOf(in.Operands[0])
			if err != nil {
				return 0, err
			}
			rs1, err := memOfZero(scope, in.Operands[1])
			if err != nil {
				return 0, err
			}
			return encodeAtomic(opAMO, 0x2, funct5, rd, rs1, 0, false, false), nil
		}
		if err := need(in, 3); err != nil {
			return 0, err
		}
		rd, err := regOf(in.Operands[0])
		if err != nil {
			return 0, err
		}
		rs2, err := regOf(in.Operands[1])
		if err != nil {
			return 0, err
		}
		rs1, err := memOfZero(scope, in.Operands[2])
		if err != nil {
			return 0, err
		}
		return encodeAtomic(opAMO, 0x2, funct5, rd, rs1, rs2, false, false), nil
	}

	return 0, fmt.Errorf("unknown instruction %q", m)
}
