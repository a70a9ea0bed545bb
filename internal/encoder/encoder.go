// Package encoder implements the Encoder of spec.md §4.8: it walks the
// fully-resolved, pseudo-free item sequence produced by internal/layout and
// emits the final flat byte image, bit-exact per RV32IMAC's base and
// compressed instruction formats.
package encoder

import (
	"fmt"

	"github.com/lookbusy1344/bbasm/internal/ast"
	"github.com/lookbusy1344/bbasm/internal/diag"
	"github.com/lookbusy1344/bbasm/internal/expr"
)

// Config is the subset of the global assembler configuration the encoder
// needs: the default endianness applied to bytes/shorts/ints/longs/longlongs
// (spec §4.3 "endianness inherited from a global assembler setting").
// Instruction words are always little-endian, per RISC-V's fixed byte order.
type Config struct {
	Endian byte // '<' or '>'; zero value treated as '<'
}

// Encode walks items in order and returns the assembled byte image. scope
// must already carry the final label table (internal/layout.Result.Labels)
// so that instruction operands referencing labels resolve to their finished
// addresses. Reaching an ErrorDirective aborts immediately, matching spec
// §4.8's explicit-abort semantics; every other error is collected so a
// single run can report more than one problem.
func Encode(items []ast.Item, scope *expr.Scope, cfg Config) ([]byte, *diag.List) {
	endian := cfg.Endian
	if endian == 0 {
		endian = '<'
	}
	errs := &diag.List{}
	var buf []byte
	var pc int64

	for _, it := range items {
		switch v := it.(type) {
		case *ast.Label, *ast.ConstantDef:
			// No bytes.

		case *ast.ErrorDirective:
			errs.Addf(v.Pos, diag.KindAbort, "%s", v.Message)
			return nil, errs

		case *ast.Align:
			n, err := scope.Evaluate(v.N)
			if err != nil {
				errs.Addf(v.Pos, diag.KindAlignment, "%s", err)
				continue
			}
			if n <= 0 || n&(n-1) != 0 {
				errs.Addf(v.Pos, diag.KindAlignment, "align argument %d is not a positive power of two", n)
				continue
			}
			pad := (n - pc%n) % n
			buf = append(buf, make([]byte, pad)...)
			pc += pad

		case *ast.BytesLiteral:
			pc += emitList(&buf, errs, scope, v.Values, 1, endian)
		case *ast.ShortsLiteral:
			pc += emitList(&buf, errs, scope, v.Values, 2, endian)
		case *ast.IntsLiteral:
			pc += emitList(&buf, errs, scope, v.Values, 4, endian)
		case *ast.LongsLiteral:
			pc += emitList(&buf, errs, scope, v.Values, 4, endian)
		case *ast.LongLongsLiteral:
			pc += emitList(&buf, errs, scope, v.Values, 8, endian)

		case *ast.Pack:
			val, err := scope.Evaluate(v.Expr)
			if err != nil {
				errs.Addf(v.Pos, diag.KindNameResolution, "%s", err)
				continue
			}
			signed := v.Signed
			if v.AutoSign {
				signed = val < 0
			}
			bs, err := packBytes(val, v.Width, v.Endian, signed)
			if err != nil {
				errs.Addf(v.Pos, diag.KindRange, "%s", err)
				continue
			}
			buf = append(buf, bs...)
			pc += int64(v.Width)

		case *ast.StringLiteral:
			buf = append(buf, v.Raw...)
			pc += int64(len(v.Raw))

		case *ast.IncludeBytes:
			buf = append(buf, v.Data...)
			pc += int64(len(v.Data))

		case *ast.Instruction:
			word, size, err := EncodeInstruction(v, scope, pc)
			if err != nil {
				errs.Addf(v.Pos, diag.KindRange, "%s", err)
				continue
			}
			buf = appendLE(buf, word, size)
			pc += int64(size)

		default:
			errs.Addf(it.Origin(), diag.KindSyntax, "internal error: unhandled item %T reached the encoder", it)
		}
	}

	if errs.HasErrors() {
		return nil, errs
	}
	return buf, errs
}

// appendLE appends the low `size` bytes of word in little-endian order.
// RISC-V instruction words (2 or 4 bytes) are always little-endian.
func appendLE(buf []byte, word uint32, size int) []byte {
	for i := 0; i < size; i++ {
		buf = append(buf, byte(word>>(8*uint(i))))
	}
	return buf
}

func emitList(buf *[]byte, errs *diag.List, scope *expr.Scope, values []ast.Expr, width int, endian byte) int64 {
	var n int64
	for _, e := range values {
		v, err := scope.Evaluate(e)
		if err != nil {
			errs.Addf(e.Origin(), diag.KindNameResolution, "%s", err)
			continue
		}
		bs, err := packBytes(v, width, endian, v < 0)
		if err != nil {
			errs.Addf(e.Origin(), diag.KindRange, "%s", err)
			continue
		}
		*buf = append(*buf, bs...)
		n += int64(width)
	}
	return n
}

// packBytes range-checks val against width/signed and returns its byte
// representation in the requested endianness (spec §4.8's Pack rule).
func packBytes(val int64, width int, endian byte, signed bool) ([]byte, error) {
	bits := uint(width * 8)
	if width < 8 {
		if signed {
			lim := int64(1) << (bits - 1)
			if val < -lim || val > lim-1 {
				return nil, fmt.Errorf("value %d does not fit in a signed %d-byte field", val, width)
			}
		} else {
			high := (int64(1) << bits) - 1
			if val < 0 || val > high {
				return nil, fmt.Errorf("value %d does not fit in an unsigned %d-byte field", val, width)
			}
		}
	} else if !signed && val < 0 {
		return nil, fmt.Errorf("value %d does not fit in an unsigned %d-byte field", val, width)
	}

	u := uint64(val)
	out := make([]byte, width)
	for i := 0; i < width; i++ {
		out[i] = byte(u >> (8 * uint(i)))
	}
	if endian == '>' {
		for l, r := 0, width-1; l < r; l, r = l+1, r-1 {
			out[l], out[r] = out[r], out[l]
		}
	}
	return out, nil
}
