package expand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lookbusy1344/bbasm/internal/ast"
	"github.com/lookbusy1344/bbasm/internal/expr"
)

func TestExpand_Nop(t *testing.T) {
	items := []ast.Item{&ast.PseudoInstruction{Mnemonic: "nop"}}
	out, errs := Expand(items)
	require.False(t, errs.HasErrors(), errs.Error())
	require.Len(t, out, 1)
	in := out[0].(*ast.Instruction)
	assert.Equal(t, "addi", in.Mnemonic)
	assert.Equal(t, uint8(0), in.Operands[0].Reg)
	assert.Equal(t, uint8(0), in.Operands[1].Reg)
}

func TestExpand_Ret(t *testing.T) {
	items := []ast.Item{&ast.PseudoInstruction{Mnemonic: "ret"}}
	out, errs := Expand(items)
	require.False(t, errs.HasErrors(), errs.Error())
	in := out[0].(*ast.Instruction)
	assert.Equal(t, "jalr", in.Mnemonic)
	assert.Equal(t, uint8(0), in.Operands[0].Reg)
	assert.Equal(t, uint8(1), in.Operands[1].Reg)
}

func TestExpand_BgtSwapsOperands(t *testing.T) {
	items := []ast.Item{&ast.PseudoInstruction{
		Mnemonic: "bgt",
		Operands: []ast.Operand{{Kind: ast.OperandRegister, Reg: 5}, {Kind: ast.OperandRegister, Reg: 6}, {Kind: ast.OperandExpr, Expr: &ast.NumberLit{Value: 8}}},
	}}
	out, errs := Expand(items)
	require.False(t, errs.HasErrors(), errs.Error())
	in := out[0].(*ast.Instruction)
	assert.Equal(t, "blt", in.Mnemonic)
	assert.Equal(t, uint8(6), in.Operands[0].Reg)
	assert.Equal(t, uint8(5), in.Operands[1].Reg)
}

func TestExpand_VariableWidthPassesThrough(t *testing.T) {
	items := []ast.Item{&ast.PseudoInstruction{Mnemonic: "li", Operands: []ast.Operand{
		{Kind: ast.OperandRegister, Reg: 5}, {Kind: ast.OperandExpr, Expr: &ast.NumberLit{Value: 4096}},
	}}}
	out, errs := Expand(items)
	require.False(t, errs.HasErrors(), errs.Error())
	require.Len(t, out, 1)
	_, ok := out[0].(*ast.PseudoInstruction)
	assert.True(t, ok)
}

func TestResolveVariable_LiSmallImmediate(t *testing.T) {
	s := expr.NewScope()
	p := &ast.PseudoInstruction{Mnemonic: "li", Operands: []ast.Operand{
		{Kind: ast.OperandRegister, Reg: 5}, {Kind: ast.OperandExpr, Expr: &ast.NumberLit{Value: 2047}},
	}}
	out, err := ResolveVariable(p, s, 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "addi", out[0].Mnemonic)
}

func TestResolveVariable_LiExactLui(t *testing.T) {
	s := expr.NewScope()
	p := &ast.PseudoInstruction{Mnemonic: "li", Operands: []ast.Operand{
		{Kind: ast.OperandRegister, Reg: 5}, {Kind: ast.OperandExpr, Expr: &ast.NumberLit{Value: 0x1000}},
	}}
	out, err := ResolveVariable(p, s, 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "lui", out[0].Mnemonic)
}

func TestResolveVariable_LiLuiAddi(t *testing.T) {
	s := expr.NewScope()
	p := &ast.PseudoInstruction{Mnemonic: "li", Operands: []ast.Operand{
		{Kind: ast.OperandRegister, Reg: 5}, {Kind: ast.OperandExpr, Expr: &ast.NumberLit{Value: 2048}},
	}}
	out, err := ResolveVariable(p, s, 0)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "lui", out[0].Mnemonic)
	assert.Equal(t, "addi", out[1].Mnemonic)
}

func TestResolveVariable_CallShortForm(t *testing.T) {
	s := expr.NewScope()
	s.Labels["target"] = 100
	p := &ast.PseudoInstruction{Mnemonic: "call", Operands: []ast.Operand{
		{Kind: ast.OperandExpr, Expr: &ast.Ident{Name: "target"}},
	}}
	out, err := ResolveVariable(p, s, 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "jal", out[0].Mnemonic)
	assert.Equal(t, uint8(1), out[0].Operands[0].Reg)
}

func TestResolveVariable_CallLongForm(t *testing.T) {
	s := expr.NewScope()
	s.Labels["target"] = 1 << 21
	p := &ast.PseudoInstruction{Mnemonic: "call", Operands: []ast.Operand{
		{Kind: ast.OperandExpr, Expr: &ast.Ident{Name: "target"}},
	}}
	out, err := ResolveVariable(p, s, 0)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "auipc", out[0].Mnemonic)
	assert.Equal(t, "jalr", out[1].Mnemonic)
}
