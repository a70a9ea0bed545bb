// Package expr implements the Constant/Expression Evaluator of spec.md §4.4:
// a small recursive evaluator over signed 64-bit integers, with a Scope of
// named constants resolved by topological (cycle-detecting) evaluation.
package expr

import (
	"fmt"

	"github.com/lookbusy1344/bbasm/internal/ast"
	"github.com/lookbusy1344/bbasm/internal/diag"
)

// Scope holds everything an expression may reference: named constants
// (defined once, resolved lazily and cached) and label offsets (populated
// fresh on each layout iteration, per spec §3's symbol-table lifecycle).
type Scope struct {
	Defs      map[string]*ast.ConstantDef
	Values    map[string]int64
	Labels    map[string]int64
	resolving map[string]bool
}

func NewScope() *Scope {
	return &Scope{
		Defs:      make(map[string]*ast.ConstantDef),
		Values:    make(map[string]int64),
		Labels:    make(map[string]int64),
		resolving: make(map[string]bool),
	}
}

// ResetLabels clears the label table between layout iterations, matching the
// "invalidated between iterations" lifecycle note of spec §3.
func (s *Scope) ResetLabels() {
	s.Labels = make(map[string]int64)
}

// BuildConstantScope collects every ConstantDef in items into a Scope and
// eagerly resolves each one, reporting duplicate names, %position misuse,
// undefined references and dependency cycles as independent errors.
func BuildConstantScope(items []ast.Item) (*Scope, *diag.List) {
	errs := &diag.List{}
	scope := NewScope()
	seen := make(map[string]bool)

	for _, it := range items {
		cd, ok := it.(*ast.ConstantDef)
		if !ok {
			continue
		}
		if seen[cd.Name] {
			errs.Addf(cd.Pos, diag.KindNameResolution, "redefinition of constant %q", cd.Name)
			continue
		}
		seen[cd.Name] = true
		if containsPosition(cd.Expr) {
			errs.Addf(cd.Pos, diag.KindSyntax, "%%position is not permitted in a constant definition")
			continue
		}
		scope.Defs[cd.Name] = cd
	}

	for name, def := range scope.Defs {
		if _, err := scope.resolveConst(name); err != nil {
			errs.Addf(def.Pos, diag.KindNameResolution, "%s", err)
		}
	}
	return scope, errs
}

func (s *Scope) resolveConst(name string) (int64, error) {
	if v, ok := s.Values[name]; ok {
		return v, nil
	}
	def, ok := s.Defs[name]
	if !ok {
		return 0, fmt.Errorf("undefined constant %q", name)
	}
	if s.resolving[name] {
		return 0, fmt.Errorf("cyclic constant definition involving %q", name)
	}
	s.resolving[name] = true
	v, err := s.Evaluate(def.Expr)
	delete(s.resolving, name)
	if err != nil {
		return 0, err
	}
	s.Values[name] = v
	return v, nil
}

// Evaluate resolves e to an int64, recursively. Label references and
// %position require Labels to already be populated (spec §4.4: "%position
// and label references are evaluated only when label offsets are known").
func (s *Scope) Evaluate(e ast.Expr) (int64, error) {
	switch n := e.(type) {
	case *ast.NumberLit:
		return n.Value, nil
	case *ast.CharLit:
		return n.Value, nil
	case *ast.Ident:
		return s.resolveIdent(n.Name)
	case *ast.UnaryExpr:
		return s.evalUnary(n)
	case *ast.BinaryExpr:
		return s.evalBinary(n)
	case *ast.HiExpr:
		v, err := s.Evaluate(n.X)
		if err != nil {
			return 0, err
		}
		return hiOf(v), nil
	case *ast.LoExpr:
		v, err := s.Evaluate(n.X)
		if err != nil {
			return 0, err
		}
		return loOf(v), nil
	case *ast.PositionExpr:
		return s.evalPosition(n)
	default:
		return 0, fmt.Errorf("unhandled expression node %T", e)
	}
}

func (s *Scope) resolveIdent(name string) (int64, error) {
	if _, ok := s.Defs[name]; ok {
		return s.resolveConst(name)
	}
	if off, ok := s.Labels[name]; ok {
		return off, nil
	}
	return 0, fmt.Errorf("undefined identifier %q", name)
}

func (s *Scope) evalUnary(n *ast.UnaryExpr) (int64, error) {
	v, err := s.Evaluate(n.X)
	if err != nil {
		return 0, err
	}
	switch n.Op {
	case "+":
		return v, nil
	case "-":
		return -v, nil
	case "~":
		return ^v, nil
	default:
		return 0, fmt.Errorf("unknown unary operator %q", n.Op)
	}
}

func (s *Scope) evalBinary(n *ast.BinaryExpr) (int64, error) {
	l, err := s.Evaluate(n.L)
	if err != nil {
		return 0, err
	}
	r, err := s.Evaluate(n.R)
	if err != nil {
		return 0, err
	}
	switch n.Op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return l / r, nil
	case "%":
		if r == 0 {
			return 0, fmt.Errorf("modulo by zero")
		}
		return l % r, nil
	case "<<":
		return l << uint64(r), nil
	case ">>":
		return l >> uint64(r), nil
	case "&":
		return l & r, nil
	case "^":
		return l ^ r, nil
	case "|":
		return l | r, nil
	default:
		return 0, fmt.Errorf("unknown binary operator %q", n.Op)
	}
}

func (s *Scope) evalPosition(n *ast.PositionExpr) (int64, error) {
	base, err := s.Evaluate(n.Base)
	if err != nil {
		return 0, err
	}
	off, ok := s.Labels[n.Label]
	if !ok {
		return 0, fmt.Errorf("label %q offset not yet known", n.Label)
	}
	return base + off, nil
}

// hiOf computes %hi(e) = ((e + 0x800) >> 12) & 0xFFFFF over e's 32-bit
// truncation, per spec §3.
func hiOf(v int64) int64 {
	u := uint32(int32(v))
	h := (u + 0x800) >> 12 & 0xFFFFF
	return int64(h)
}

// loOf computes %lo(e) = e - (hi(e) << 12) over e's 32-bit truncation,
// yielding the signed 12-bit residue consistent with hiOf.
func loOf(v int64) int64 {
	return int64(int32(uint32(v) - uint32(hiOf(v))<<12))
}

// containsPosition reports whether e contains a %position node anywhere,
// which spec §3 forbids inside a ConstantDef's right-hand side.
func containsPosition(e ast.Expr) bool {
	switch n := e.(type) {
	case *ast.PositionExpr:
		return true
	case *ast.UnaryExpr:
		return containsPosition(n.X)
	case *ast.BinaryExpr:
		return containsPosition(n.L) || containsPosition(n.R)
	case *ast.HiExpr:
		return containsPosition(n.X)
	case *ast.LoExpr:
		return containsPosition(n.X)
	default:
		return false
	}
}
