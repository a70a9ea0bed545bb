// Package ast defines the program intermediate representation of spec.md §3:
// the Expression tree and the Item sequence that every pass rewrites.
package ast

import "github.com/lookbusy1344/bbasm/internal/diag"

// Expr is an arithmetic expression node. Leaves are NumberLit/CharLit/Ident;
// interior nodes are Unary/Binary; the three modifier kinds (Hi/Lo/Position)
// carry RISC-V-specific semantics documented in spec.md §3.
type Expr interface {
	Origin() diag.Position
}

type NumberLit struct {
	Pos   diag.Position
	Value int64
}

func (n *NumberLit) Origin() diag.Position { return n.Pos }

type CharLit struct {
	Pos   diag.Position
	Value int64 // Unicode scalar value
}

func (c *CharLit) Origin() diag.Position { return c.Pos }

// Ident references a named constant or a label.
type Ident struct {
	Pos  diag.Position
	Name string
}

func (i *Ident) Origin() diag.Position { return i.Pos }

type UnaryExpr struct {
	Pos diag.Position
	Op  string // + - ~
	X   Expr
}

func (u *UnaryExpr) Origin() diag.Position { return u.Pos }

type BinaryExpr struct {
	Pos  diag.Position
	Op   string // * / % + - << >> & ^ |
	L, R Expr
}

func (b *BinaryExpr) Origin() diag.Position { return b.Pos }

// HiExpr is %hi(e): the sign-adjusted upper 20 bits of e's resolved value.
type HiExpr struct {
	Pos diag.Position
	X   Expr
}

func (h *HiExpr) Origin() diag.Position { return h.Pos }

// LoExpr is %lo(e): the matching 12-bit residue.
type LoExpr struct {
	Pos diag.Position
	X   Expr
}

func (l *LoExpr) Origin() diag.Position { return l.Pos }

// PositionExpr is %position(label, base): base + offset-of(label). Only valid
// once label offsets exist (not inside a ConstantDef's right-hand side).
type PositionExpr struct {
	Pos   diag.Position
	Label string
	Base  Expr
}

func (p *PositionExpr) Origin() diag.Position { return p.Pos }
