package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lookbusy1344/bbasm/internal/ast"
	"github.com/lookbusy1344/bbasm/internal/source"
)

func lines(texts ...string) []source.Line {
	out := make([]source.Line, len(texts))
	for i, t := range texts {
		out[i] = source.Line{File: "t.s", LineNo: i + 1, Text: t}
	}
	return out
}

func TestParse_ConstantDefAndLabel(t *testing.T) {
	items, errs := Parse(lines("FOO = 1 + 2", "start:"))
	require.False(t, errs.HasErrors(), errs.Error())
	require.Len(t, items, 2)

	cd, ok := items[0].(*ast.ConstantDef)
	require.True(t, ok)
	assert.Equal(t, "FOO", cd.Name)
	bin, ok := cd.Expr.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "+", bin.Op)

	lbl, ok := items[1].(*ast.Label)
	require.True(t, ok)
	assert.Equal(t, "start", lbl.Name)
}

func TestParse_Instruction(t *testing.T) {
	items, errs := Parse(lines("addi x1, zero, 12"))
	require.False(t, errs.HasErrors(), errs.Error())
	require.Len(t, items, 1)
	instr, ok := items[0].(*ast.Instruction)
	require.True(t, ok)
	assert.Equal(t, "addi", instr.Mnemonic)
	require.Len(t, instr.Operands, 3)
	assert.Equal(t, ast.OperandRegister, instr.Operands[0].Kind)
	assert.Equal(t, uint8(1), instr.Operands[0].Reg)
	assert.Equal(t, ast.OperandRegister, instr.Operands[1].Kind)
	assert.Equal(t, uint8(0), instr.Operands[1].Reg)
	assert.Equal(t, ast.OperandExpr, instr.Operands[2].Kind)
}

func TestParse_PseudoVsCanonicalJal(t *testing.T) {
	items, errs := Parse(lines("jal loop", "jal ra, loop"))
	require.False(t, errs.HasErrors(), errs.Error())
	require.Len(t, items, 2)
	_, ok := items[0].(*ast.PseudoInstruction)
	assert.True(t, ok, "single-operand jal should be a pseudo-instruction")
	_, ok = items[1].(*ast.Instruction)
	assert.True(t, ok, "two-operand jal should be canonical")
}

func TestParse_MemoryOperand(t *testing.T) {
	items, errs := Parse(lines("lw x5, 12(x1)"))
	require.False(t, errs.HasErrors(), errs.Error())
	instr := items[0].(*ast.Instruction)
	require.Len(t, instr.Operands, 2)
	mem := instr.Operands[1]
	assert.Equal(t, ast.OperandMemory, mem.Kind)
	assert.Equal(t, uint8(1), mem.Reg)
	num, ok := mem.Expr.(*ast.NumberLit)
	require.True(t, ok)
	assert.EqualValues(t, 12, num.Value)
}

func TestParse_DataDirectives(t *testing.T) {
	items, errs := Parse(lines("bytes 1 2 3 4"))
	require.False(t, errs.HasErrors(), errs.Error())
	bl := items[0].(*ast.BytesLiteral)
	assert.Len(t, bl.Values, 4)
}

func TestParse_Shorthand(t *testing.T) {
	items, errs := Parse(lines("dw 0x20000000"))
	require.False(t, errs.HasErrors(), errs.Error())
	p := items[0].(*ast.Pack)
	assert.Equal(t, byte('<'), p.Endian)
	assert.Equal(t, 4, p.Width)
	assert.True(t, p.AutoSign)
}

func TestParse_Pack(t *testing.T) {
	items, errs := Parse(lines("pack <I 0x01020304"))
	require.False(t, errs.HasErrors(), errs.Error())
	p := items[0].(*ast.Pack)
	assert.Equal(t, byte('<'), p.Endian)
	assert.Equal(t, 4, p.Width)
	assert.False(t, p.Signed)
}

func TestParse_PackFloatRejected(t *testing.T) {
	_, errs := Parse(lines("pack <f 3.14159"))
	assert.True(t, errs.HasErrors())
}

func TestParse_Align(t *testing.T) {
	items, errs := Parse(lines("align 4"))
	require.False(t, errs.HasErrors(), errs.Error())
	a := items[0].(*ast.Align)
	num := a.N.(*ast.NumberLit)
	assert.EqualValues(t, 4, num.Value)
}

func TestParse_StringAndError(t *testing.T) {
	items, errs := Parse(lines("string hello # not a comment", "error bad thing happened"))
	require.False(t, errs.HasErrors(), errs.Error())
	s := items[0].(*ast.StringLiteral)
	assert.Equal(t, "hello # not a comment", string(s.Raw))
	e := items[1].(*ast.ErrorDirective)
	assert.Equal(t, "bad thing happened", e.Message)
}

func TestParse_PercentModifiers(t *testing.T) {
	items, errs := Parse(lines("lui t5, %hi(ADDR)", "li t0, %position(data, 0x08000000)"))
	require.False(t, errs.HasErrors(), errs.Error())
	instr := items[0].(*ast.Instruction)
	_, ok := instr.Operands[1].Expr.(*ast.HiExpr)
	assert.True(t, ok)

	pseudo := items[1].(*ast.PseudoInstruction)
	pos, ok := pseudo.Operands[1].Expr.(*ast.PositionExpr)
	require.True(t, ok)
	assert.Equal(t, "data", pos.Label)
}

func TestParse_CommaIsWhitespace(t *testing.T) {
	a, errs1 := Parse(lines("addi x1, x0, 1"))
	b, errs2 := Parse(lines("addi x1  x0  1"))
	require.False(t, errs1.HasErrors())
	require.False(t, errs2.HasErrors())
	assert.Equal(t, a[0].(*ast.Instruction).Operands, b[0].(*ast.Instruction).Operands)
}

func TestParse_CharLiteralRejectsEscape(t *testing.T) {
	_, errs := Parse(lines("FOO = '\\0'"))
	assert.True(t, errs.HasErrors())
}

func TestParse_BlankAndCommentLinesIgnored(t *testing.T) {
	items, errs := Parse(lines("", "   ", "# just a comment", "nop"))
	require.False(t, errs.HasErrors(), errs.Error())
	require.Len(t, items, 1)
}
