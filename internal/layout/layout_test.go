package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lookbusy1344/bbasm/internal/ast"
	"github.com/lookbusy1344/bbasm/internal/expr"
)

func reg(n uint8) ast.Operand       { return ast.Operand{Kind: ast.OperandRegister, Reg: n} }
func exprOp(v int64) ast.Operand    { return ast.Operand{Kind: ast.OperandExpr, Expr: &ast.NumberLit{Value: v}} }
func identOp(name string) ast.Operand { return ast.Operand{Kind: ast.OperandExpr, Expr: &ast.Ident{Name: name}} }

func TestResolve_SimpleInstruction(t *testing.T) {
	items := []ast.Item{
		&ast.Instruction{Mnemonic: "addi", Operands: []ast.Operand{reg(1), reg(0), exprOp(12)}},
	}
	res, errs := Resolve(items, expr.NewScope(), Config{})
	require.False(t, errs.HasErrors(), errs.Error())
	assert.EqualValues(t, 4, res.Size)
}

func TestResolve_LabelsGetOffsets(t *testing.T) {
	items := []ast.Item{
		&ast.Label{Name: "loop"},
		&ast.Instruction{Mnemonic: "jal", Operands: []ast.Operand{reg(0), identOp("loop")}},
	}
	res, errs := Resolve(items, expr.NewScope(), Config{})
	require.False(t, errs.HasErrors(), errs.Error())
	assert.EqualValues(t, 0, res.Labels["loop"])
	assert.EqualValues(t, 4, res.Size)
}

func TestResolve_AlignPadsToBoundary(t *testing.T) {
	items := []ast.Item{
		&ast.BytesLiteral{Values: []ast.Expr{&ast.NumberLit{Value: 0x42}}},
		&ast.Align{N: &ast.NumberLit{Value: 4}},
		&ast.Label{Name: "main"},
		&ast.Instruction{Mnemonic: "addi", Operands: []ast.Operand{reg(0), reg(0), exprOp(0)}},
	}
	res, errs := Resolve(items, expr.NewScope(), Config{})
	require.False(t, errs.HasErrors(), errs.Error())
	assert.EqualValues(t, 4, res.Labels["main"])
	assert.EqualValues(t, 8, res.Size)
}

func TestResolve_AlignZeroIsError(t *testing.T) {
	items := []ast.Item{&ast.Align{N: &ast.NumberLit{Value: 0}}}
	_, errs := Resolve(items, expr.NewScope(), Config{})
	assert.True(t, errs.HasErrors())
}

func TestResolve_AlignOneIsNoop(t *testing.T) {
	items := []ast.Item{
		&ast.BytesLiteral{Values: []ast.Expr{&ast.NumberLit{Value: 1}}},
		&ast.Align{N: &ast.NumberLit{Value: 1}},
		&ast.Label{Name: "x"},
	}
	res, errs := Resolve(items, expr.NewScope(), Config{})
	require.False(t, errs.HasErrors(), errs.Error())
	assert.EqualValues(t, 1, res.Labels["x"])
}

func TestResolve_PositionExpression(t *testing.T) {
	items := []ast.Item{
		&ast.Label{Name: "data"},
		&ast.BytesLiteral{Values: []ast.Expr{&ast.NumberLit{Value: 1}, &ast.NumberLit{Value: 2}, &ast.NumberLit{Value: 3}, &ast.NumberLit{Value: 4}}},
		&ast.Align{N: &ast.NumberLit{Value: 4}},
		&ast.Label{Name: "main"},
		&ast.PseudoInstruction{Mnemonic: "li", Operands: []ast.Operand{
			reg(5),
			{Kind: ast.OperandExpr, Expr: &ast.PositionExpr{Label: "data", Base: &ast.NumberLit{Value: 0x08000000}}},
		}},
	}
	res, errs := Resolve(items, expr.NewScope(), Config{})
	require.False(t, errs.HasErrors(), errs.Error())
	assert.EqualValues(t, 0, res.Labels["data"])
	assert.EqualValues(t, 4, res.Labels["main"])

	var lui *ast.Instruction
	for _, it := range res.Items {
		if in, ok := it.(*ast.Instruction); ok && in.Mnemonic == "lui" {
			lui = in
		}
	}
	require.NotNil(t, lui)
}

func TestResolve_LiLongFormExpandsToTwoInstructions(t *testing.T) {
	items := []ast.Item{
		&ast.PseudoInstruction{Mnemonic: "li", Operands: []ast.Operand{reg(5), exprOp(2048)}},
	}
	res, errs := Resolve(items, expr.NewScope(), Config{})
	require.False(t, errs.HasErrors(), errs.Error())
	require.Len(t, res.Items, 2)
	assert.EqualValues(t, 8, res.Size)
}

func TestResolve_CompressionShrinksOutput(t *testing.T) {
	items := []ast.Item{
		&ast.Instruction{Mnemonic: "addi", Operands: []ast.Operand{reg(5), reg(0), exprOp(1)}},
	}
	res, errs := Resolve(items, expr.NewScope(), Config{Compress: true})
	require.False(t, errs.HasErrors(), errs.Error())
	assert.EqualValues(t, 2, res.Size)
	in := res.Items[0].(*ast.Instruction)
	assert.Equal(t, "c.li", in.Mnemonic)
}
