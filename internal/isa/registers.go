// Package isa holds RV32IMAC constants shared by the parser and the encoder:
// register names and the C-extension's restricted register subset.
package isa

// abiNames maps the ABI register mnemonics to their x0..x31 number.
var abiNames = map[string]uint8{
	"zero": 0, "ra": 1, "sp": 2, "gp": 3, "tp": 4,
	"t0": 5, "t1": 6, "t2": 7,
	"s0": 8, "fp": 8, "s1": 9,
	"a0": 10, "a1": 11, "a2": 12, "a3": 13, "a4": 14, "a5": 15, "a6": 16, "a7": 17,
	"s2": 18, "s3": 19, "s4": 20, "s5": 21, "s6": 22, "s7": 23, "s8": 24, "s9": 25, "s10": 26, "s11": 27,
	"t3": 28, "t4": 29, "t5": 30, "t6": 31,
}

func init() {
	for i := 0; i < 32; i++ {
		abiNames[xName(i)] = uint8(i)
	}
}

func xName(i int) string {
	const digits = "0123456789"
	if i < 10 {
		return "x" + string(digits[i])
	}
	return "x" + string(digits[i/10]) + string(digits[i%10])
}

// RegisterNumber reports whether name is a register reference (x0..x31 or an
// ABI alias) and its number.
func RegisterNumber(name string) (uint8, bool) {
	n, ok := abiNames[name]
	return n, ok
}

// IsCompressedReg reports whether r is in the C-extension's restricted
// register subset x8..x15 (encoded as rd'/rs1'/rs2' in 3 bits).
func IsCompressedReg(r uint8) bool {
	return r >= 8 && r <= 15
}

// CompressedRegField encodes r (which must satisfy IsCompressedReg) as the
// 3-bit rd'/rs1'/rs2' field.
func CompressedRegField(r uint8) uint8 {
	return r - 8
}
