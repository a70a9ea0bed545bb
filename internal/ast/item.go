package ast

import "github.com/lookbusy1344/bbasm/internal/diag"

// OperandKind distinguishes the three operand shapes spec.md §3 allows on an
// instruction: a register, a bare expression, or a base+offset memory operand.
type OperandKind int

const (
	OperandRegister OperandKind = iota
	OperandExpr
	OperandMemory
)

// Operand is one instruction argument. For OperandMemory, Reg is the base
// register and Expr is the offset expression (the `imm(rs)` sugar of §4.3).
type Operand struct {
	Kind OperandKind
	Pos  diag.Position
	Reg  uint8
	Expr Expr
}

// Item is one element of the program IR (spec.md §3). Every pass either
// leaves an Item untouched or replaces it with one or more narrower Items;
// none is ever dropped.
type Item interface {
	Origin() diag.Position
}

type ConstantDef struct {
	Pos  diag.Position
	Name string
	Expr Expr
}

func (c *ConstantDef) Origin() diag.Position { return c.Pos }

type Label struct {
	Pos  diag.Position
	Name string
}

func (l *Label) Origin() diag.Position { return l.Pos }

// Instruction is a canonical (non-pseudo) RV32IMAC instruction: it is what
// the encoder ultimately consumes.
type Instruction struct {
	Pos      diag.Position
	Mnemonic string
	Operands []Operand

	// Size is 2 once internal/layout's compressor has replaced the
	// instruction with its `c.` form; any other value, including the zero
	// value, means the standard 4-byte encoding.
	Size int
}

func (i *Instruction) Origin() diag.Position { return i.Pos }

// PseudoInstruction is expanded away by internal/expand before layout.
type PseudoInstruction struct {
	Pos      diag.Position
	Mnemonic string
	Operands []Operand
}

func (p *PseudoInstruction) Origin() diag.Position { return p.Pos }

type BytesLiteral struct {
	Pos    diag.Position
	Values []Expr
}

func (b *BytesLiteral) Origin() diag.Position { return b.Pos }

type ShortsLiteral struct {
	Pos    diag.Position
	Values []Expr
}

func (s *ShortsLiteral) Origin() diag.Position { return s.Pos }

type IntsLiteral struct {
	Pos    diag.Position
	Values []Expr
}

func (i *IntsLiteral) Origin() diag.Position { return i.Pos }

type LongsLiteral struct {
	Pos    diag.Position
	Values []Expr
}

func (l *LongsLiteral) Origin() diag.Position { return l.Pos }

type LongLongsLiteral struct {
	Pos    diag.Position
	Values []Expr
}

func (l *LongLongsLiteral) Origin() diag.Position { return l.Pos }

// StringLiteral holds the raw captured bytes after the `string` keyword,
// preserved verbatim with no escape interpretation (Open Question a).
type StringLiteral struct {
	Pos diag.Position
	Raw []byte
}

func (s *StringLiteral) Origin() diag.Position { return s.Pos }

// Pack emits one value of the given endianness, width and signedness
// (b/B h/H i/I q/Q for signed/unsigned 1/2/4/8-byte). AutoSign marks a value
// expanded from shorthand `db`/`dh`/`dw`/`dd`, whose signedness is derived
// from the expression's resolved value rather than stated explicitly.
type Pack struct {
	Pos      diag.Position
	Endian   byte // '<' little, '>' big
	Width    int  // 1, 2, 4, or 8 bytes
	Signed   bool
	AutoSign bool
	Expr     Expr
}

func (p *Pack) Origin() diag.Position { return p.Pos }

type Align struct {
	Pos diag.Position
	N   Expr
}

func (a *Align) Origin() diag.Position { return a.Pos }

type ErrorDirective struct {
	Pos     diag.Position
	Message string
}

func (e *ErrorDirective) Origin() diag.Position { return e.Pos }

// IncludeBytes emits a file's raw contents verbatim.
type IncludeBytes struct {
	Pos  diag.Position
	Path string
	Data []byte
}

func (i *IncludeBytes) Origin() diag.Position { return i.Pos }
