// Package layout implements the Layout Resolver fixed point of spec.md §4.6
// and the Optional Compressor of §4.7.
//
// The resolver runs in two phases. Phase one assigns label offsets and
// resolves variable-width li/call/tail pseudo-instructions against a
// conservative all-instructions-are-4-bytes baseline, iterating (per
// expand.ResolveVariable) until sizes stop changing; its output is a fully
// flat item list with every pseudo-instruction spliced into its chosen
// canonical form. Phase two, only when compression is enabled, runs a
// second fixed point over that flat list: each pass proposes newly-eligible
// 2-byte replacements, re-lays-out, and repeats until no further replacement
// is possible. This two-phase split is a direct, simpler reading of the
// same fixed point spec.md describes; see DESIGN.md.
package layout

import (
	"github.com/lookbusy1344/bbasm/internal/ast"
	"github.com/lookbusy1344/bbasm/internal/diag"
	"github.com/lookbusy1344/bbasm/internal/expand"
	"github.com/lookbusy1344/bbasm/internal/expr"
)

// Config is the global assembler configuration threaded through layout,
// kept as a single immutable value rather than process-wide state (spec §9
// "Global assembler configuration").
type Config struct {
	Compress bool
}

// Result is the converged layout: the flat, pseudo-free item sequence ready
// for the Encoder, the final label table, and total image size.
type Result struct {
	Items  []ast.Item
	Labels map[string]int64
	Size   int64
}

// maxIterations bounds the fixed point defensively; spec §4.6 guarantees
// convergence in O(item-count) iterations since sizes are monotone
// non-decreasing, so this is a generous multiple rather than a real limit.
func maxIterations(n int) int {
	if n < 64 {
		return 256
	}
	return n * 4
}

// Resolve runs the layout fixed point followed by optional compression.
func Resolve(items []ast.Item, scope *expr.Scope, cfg Config) (*Result, *diag.List) {
	errs := &diag.List{}
	sizes := seedSizes(items)

	limit := maxIterations(len(items))
	iter := 0
	for {
		iter++
		changed := phase1Pass(items, scope, sizes, nil)
		if !changed || iter > limit {
			break
		}
	}
	// Final pass with error reporting enabled, against the converged sizes.
	phase1Pass(items, scope, sizes, errs)

	flat, flatErrs := flatten(items, scope, sizes)
	errs.Errors = append(errs.Errors, flatErrs.Errors...)
	if errs.HasErrors() {
		return nil, errs
	}

	if cfg.Compress {
		compress(flat, scope, errs)
	}

	labels, total := finalOffsets(flat, scope)
	return &Result{Items: flat, Labels: labels, Size: total}, errs
}

func seedSizes(items []ast.Item) []int {
	sizes := make([]int, len(items))
	for i, it := range items {
		if sz, ok := fixedSize(it); ok {
			sizes[i] = sz
			continue
		}
		if p, ok := it.(*ast.PseudoInstruction); ok {
			sizes[i] = seedPseudoSize(p)
		}
		// *ast.Align starts at 0 and is recomputed every pass.
	}
	return sizes
}

// seedPseudoSize assumes the short form (spec §4.6 step 1): one 4-byte
// instruction for li/call/tail.
func seedPseudoSize(p *ast.PseudoInstruction) int {
	return 4
}

// fixedSize returns an item's size when it never varies across iterations.
func fixedSize(it ast.Item) (int, bool) {
	switch v := it.(type) {
	case *ast.Label, *ast.ConstantDef, *ast.ErrorDirective:
		return 0, true
	case *ast.BytesLiteral:
		return len(v.Values), true
	case *ast.ShortsLiteral:
		return len(v.Values) * 2, true
	case *ast.IntsLiteral:
		return len(v.Values) * 4, true
	case *ast.LongsLiteral:
		return len(v.Values) * 4, true
	case *ast.LongLongsLiteral:
		return len(v.Values) * 8, true
	case *ast.StringLiteral:
		return len(v.Raw), true
	case *ast.IncludeBytes:
		return len(v.Data), true
	case *ast.Pack:
		return v.Width, true
	case *ast.Instruction:
		return 4, true
	default:
		return 0, false
	}
}

// phase1Pass walks items once, assigning label offsets and re-resolving
// Align and variable-width pseudo sizes. It returns whether any size
// changed from the previous pass. errs is nil during exploratory passes (to
// avoid duplicate reporting of forward-reference errors that only resolve
// later) and non-nil on the authoritative final pass.
func phase1Pass(items []ast.Item, scope *expr.Scope, sizes []int, errs *diag.List) bool {
	scope.ResetLabels()
	var offset int64
	changed := false

	for i, it := range items {
		switch v := it.(type) {
		case *ast.Label:
			scope.Labels[v.Name] = offset
		case *ast.Align:
			sizes[i] = resolveAlign(v, scope, offset, errs)
		case *ast.PseudoInstruction:
			resolved, err := expand.ResolveVariable(v, scope, offset)
			if err != nil {
				if errs != nil {
					errs.Addf(v.Pos, diag.KindNameResolution, "%s", err)
				}
			} else {
				n := 0
				for range resolved {
					n += 4
				}
				if n != sizes[i] {
					changed = true
				}
				sizes[i] = n
			}
		}
		offset += int64(sizes[i])
	}
	return changed
}

func resolveAlign(a *ast.Align, scope *expr.Scope, offset int64, errs *diag.List) int {
	n, err := scope.Evaluate(a.N)
	if err != nil {
		if errs != nil {
			errs.Addf(a.Pos, diag.KindAlignment, "%s", err)
		}
		return 0
	}
	if n <= 0 || n&(n-1) != 0 {
		if errs != nil {
			errs.Addf(a.Pos, diag.KindAlignment, "align argument %d is not a positive power of two", n)
		}
		return 0
	}
	rem := offset % n
	if rem == 0 {
		return 0
	}
	return int(n - rem)
}

// flatten performs the final conversion from the original item list (with
// PseudoInstruction placeholders) into the fully-resolved, pseudo-free item
// sequence the Encoder consumes.
func flatten(items []ast.Item, scope *expr.Scope, sizes []int) ([]ast.Item, *diag.List) {
	errs := &diag.List{}
	scope.ResetLabels()
	var offset int64
	out := make([]ast.Item, 0, len(items))

	for i, it := range items {
		switch v := it.(type) {
		case *ast.Label:
			scope.Labels[v.Name] = offset
			out = append(out, v)
		case *ast.PseudoInstruction:
			resolved, err := expand.ResolveVariable(v, scope, offset)
			if err != nil {
				errs.Addf(v.Pos, diag.KindNameResolution, "%s", err)
				continue
			}
			for _, r := range resolved {
				out = append(out, r)
			}
		default:
			out = append(out, it)
		}
		offset += int64(sizes[i])
	}
	return out, errs
}

// finalOffsets recomputes the label table and total size against the flat,
// fully-resolved item list, accounting for any compression applied.
func finalOffsets(flat []ast.Item, scope *expr.Scope) (map[string]int64, int64) {
	scope.ResetLabels()
	var offset int64
	for _, it := range flat {
		switch v := it.(type) {
		case *ast.Label:
			scope.Labels[v.Name] = offset
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
	labels := make(map[string]int64, len(scope.Labels))
	for k, v := range scope.Labels {
		labels[k] = v
	}
	return labels, offset
}

// instructionSize reports 2 for a compressed instruction, 4 otherwise. The
// compressor tags an Instruction as compressed by setting Mnemonic to its
// `c.`-prefixed form and Size to 2 (see compress.go).
func instructionSize(in *ast.Instruction) int {
	if in.Size == 2 {
		return 2
	}
	return 4
}
