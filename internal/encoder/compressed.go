package encoder

import (
	"fmt"

	"github.com/lookbusy1344/bbasm/internal/ast"
	"github.com/lookbusy1344/bbasm/internal/expr"
	"github.com/lookbusy1344/bbasm/internal/isa"
)

// Quadrant/op field values shared by every RVC format (bits [1:0]).
const (
	cQuadrant1 = 0x1
	cQuadrant2 = 0x2
)

// encodeCompressed encodes the catalog internal/layout's compressor can
// produce (spec §4.7's non-exhaustive list): c.li, c.addi, c.mv, c.j, c.jal,
// c.jr, c.jalr, c.beqz, c.bnez, c.lui.
func encodeCompressed(in *ast.Instruction, scope *expr.Scope, pc int64) (uint32, error) {
	switch in.Mnemonic {
	case "c.li":
		return encodeCILike(in, scope, 0b010)
	case "c.addi":
		return encodeCILike(in, scope, 0b000)
	case "c.lui":
		return encodeCILike(in, scope, 0b011)

	case "c.mv":
		if err := need(in, 2); err != nil {
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
		return encodeCR(cQuadrant2, 0b1000, rd, rs2), nil

	case "c.jr":
		if err := need(in, 1); err != nil {
			return 0, err
		}
		rs1, err := regOf(in.Operands[0])
		if err != nil {
			return 0, err
		}
		return encodeCR(cQuadrant2, 0b1000, rs1, 0), nil

	case "c.jalr":
		if err := need(in, 1); err != nil {
			return 0, err
		}
		rs1, err := regOf(in.Operands[0])
		if err != nil {
			return 0, err
		}
		return encodeCR(cQuadrant2, 0b1001, rs1, 0), nil

	case "c.j":
		return encodeCJLike(in, scope, pc, 0b101)
	case "c.jal":
		return encodeCJLike(in, scope, pc, 0b001)

	case "c.beqz":
		return encodeCBLike(in, scope, pc, 0b110)
	case "c.bnez":
		return encodeCBLike(in, scope, pc, 0b111)
	}
	return 0, fmt.Errorf("unknown compressed instruction %q", in.Mnemonic)
}

// encodeCILike handles c.li/c.addi/c.lui, which share the same CI operand
// shape (rd, imm) and bit layout.
func encodeCILike(in *ast.Instruction, scope *expr.Scope, funct3 uint32) (uint32, error) {
	if err := need(in, 2); err != nil {
		return 0, err
	}
	rd, err := regOf(in.Operands[0])
	if err != nil {
		return 0, err
	}
	if rd == 0 {
		return 0, fmt.Errorf("%s cannot target x0", in.Mnemonic)
	}
	imm, err := immOf(scope, in.Operands[1])
	if err != nil {
		return 0, err
	}
	if imm < -32 || imm > 31 {
		return 0, fmt.Errorf("%s immediate %d does not fit in 6 bits", in.Mnemonic, imm)
	}
	return encodeCI(cQuadrant1, funct3, rd, imm), nil
}

func encodeCJLike(in *ast.Instruction, scope *expr.Scope, pc int64, funct3 uint32) (uint32, error) {
	if err := need(in, 1); err != nil {
		return 0, err
	}
	target, err := immOf(scope, in.Operands[0])
	if err != nil {
		return 0, err
	}
	dist := target - pc
	if dist%2 != 0 || dist < -2048 || dist > 2046 {
		return 0, fmt.Errorf("%s distance %d out of range or not 2-byte aligned", in.Mnemonic, dist)
	}
	return encodeCJ(cQuadrant1, funct3, dist), nil
}

func encodeCBLike(in *ast.Instruction, scope *expr.Scope, pc int64, funct3 uint32) (uint32, error) {
	if err := need(in, 2); err != nil {
		return 0, err
	}
	rs1, err := regOf(in.Operands[0])
	if err != nil {
		return 0, err
	}
	if !isa.IsCompressedReg(uint8(rs1)) {
		return 0, fmt.Errorf("%s requires a register in x8..x15", in.Mnemonic)
	}
	target, err := immOf(scope, in.Operands[1])
	if err != nil {
		return 0, err
	}
	dist := target - pc
	if dist%2 != 0 || dist < -256 || dist > 254 {
		return 0, fmt.Errorf("%s distance %d out of range or not 2-byte aligned", in.Mnemonic, dist)
	}
	return encodeCB(cQuadrant1, funct3, uint32(isa.CompressedRegField(uint8(rs1))), dist), nil
}
