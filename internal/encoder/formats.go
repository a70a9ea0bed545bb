package encoder

// Bit-field assembly for the RISC-V base instruction formats (RV32I §2.2)
// and the RVC compressed formats (RVC §16), grounded on the shift/mask style
// of the teacher's own instruction encoders.

func bitAt(v int64, n uint) uint32 {
	return uint32((v >> n) & 1)
}

func bitsAt(v int64, hi, lo uint) uint32 {
	mask := int64(1)<<(hi-lo+1) - 1
	return uint32((v >> lo) & mask)
}

// encodeR assembles an R-type word: funct7|rs2|rs1|funct3|rd|opcode.
func encodeR(opcode, funct3, funct7, rd, rs1, rs2 uint32) uint32 {
	return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

// encodeI assembles an I-type word with a signed 12-bit immediate.
func encodeI(opcode, funct3, rd, rs1 uint32, imm int64) uint32 {
	immBits := uint32(imm) & 0xFFF
	return immBits<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

// encodeShift assembles an OP-IMM shift (slli/srli/srai): the immediate
// field holds a 5-bit shift amount plus a funct7-style high bit selecting
// arithmetic vs logical right shift.
func encodeShift(opcode, funct3, rd, rs1 uint32, shamt uint32, funct7 uint32) uint32 {
	return funct7<<25 | (shamt&0x1F)<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

// encodeS assembles an S-type word with a signed 12-bit immediate.
func encodeS(opcode, funct3, rs1, rs2 uint32, imm int64) uint32 {
	hi := bitsAt(imm, 11, 5)
	lo := bitsAt(imm, 4, 0)
	return hi<<25 | rs2<<20 | rs1<<15 | funct3<<12 | lo<<7 | opcode
}

// encodeB assembles a B-type word. imm is the signed byte offset; its low
// bit is always 0 and is not separately encoded.
func encodeB(opcode, funct3, rs1, rs2 uint32, imm int64) uint32 {
	b12 := bitAt(imm, 12)
	b11 := bitAt(imm, 11)
	b10_5 := bitsAt(imm, 10, 5)
	b4_1 := bitsAt(imm, 4, 1)
	return b12<<31 | b10_5<<25 | rs2<<20 | rs1<<15 | funct3<<12 | b4_1<<8 | b11<<7 | opcode
}

// encodeU assembles a U-type word; imm is the 20-bit upper immediate
// (already representing bits[31:12] of the result, as %hi/lui expect).
func encodeU(opcode, rd uint32, imm int64) uint32 {
	return (uint32(imm)&0xFFFFF)<<12 | rd<<7 | opcode
}

// encodeJ assembles a J-type word. imm is the signed byte offset; its low
// bit is always 0.
func encodeJ(opcode, rd uint32, imm int64) uint32 {
	b20 := bitAt(imm, 20)
	b19_12 := bitsAt(imm, 19, 12)
	b11 := bitAt(imm, 11)
	b10_1 := bitsAt(imm, 10, 1)
	return b20<<31 | b10_1<<21 | b11<<20 | b19_12<<12 | rd<<7 | opcode
}

// encodeAtomic assembles an AMO-format word: funct5|aq|rl|rs2|rs1|funct3|rd|opcode.
func encodeAtomic(opcode, funct3, funct5, rd, rs1, rs2 uint32, aq, rl bool) uint32 {
	var aqBit, rlBit uint32
	if aq {
		aqBit = 1
	}
	if rl {
		rlBit = 1
	}
	return funct5<<27 | aqBit<<26 | rlBit<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

// --- RVC (compressed, 16-bit) formats ---

// encodeCR assembles a CR-format word: funct4|rd_rs1|rs2|op.
func encodeCR(op uint32, funct4 uint32, rdRs1, rs2 uint32) uint32 {
	return funct4<<12 | rdRs1<<7 | rs2<<2 | op
}

// ciImmBits splits imm into CI format's scrambled bit[12] / bits[6:2], used
// identically by c.li, c.addi and c.lui (RVC §16.5).
func ciImmBits(imm int64) (hi uint32, lo uint32) {
	return bitAt(imm, 5), bitsAt(imm, 4, 0)
}

// encodeCI assembles a CI-format word: funct3|imm[12]|rd_rs1|imm[6:2]|op.
func encodeCI(op, funct3, rdRs1 uint32, imm int64) uint32 {
	hi, lo := ciImmBits(imm)
	return funct3<<13 | hi<<12 | rdRs1<<7 | lo<<2 | op
}

// cjImmBits scrambles an 11-bit (bits 11..1, even) jump offset into CJ's
// bit positions (RVC §16.5, table 16.6).
func cjImmBits(offset int64) uint32 {
	var v uint32
	v |= bitAt(offset, 11) << 10
	v |= bitAt(offset, 4) << 9
	v |= bitAt(offset, 9) << 8
	v |= bitAt(offset, 8) << 7
	v |= bitAt(offset, 10) << 6
	v |= bitAt(offset, 6) << 5
	v |= bitAt(offset, 7) << 4
	v |= bitsAt(offset, 3, 1) << 1
	v |= bitAt(offset, 5)
	return v
}

// encodeCJ assembles a CJ-format word: funct3|imm[11bits,scrambled]|op.
func encodeCJ(op, funct3 uint32, offset int64) uint32 {
	return funct3<<13 | cjImmBits(offset)<<2 | op
}

// cbImmBits scrambles a 9-bit (bits 8..1, even) branch offset into CB's bit
// positions (RVC §16.5, table 16.6).
func cbImmBits(offset int64) (hi uint32, lo uint32) {
	hi = bitAt(offset, 8)<<2 | bitsAt(offset, 4, 3)
	lo = bitsAt(offset, 7, 6)<<3 | bitsAt(offset, 2, 1)<<1 | bitAt(offset, 5)
	return hi, lo
}

// encodeCB assembles a CB-format branch word:
// funct3|offset[8|4:3]|rs1'|offset[7:6|2:1|5]|op.
func encodeCB(op, funct3, rs1Prime uint32, offset int64) uint32 {
	hi, lo := cbImmBits(offset)
	return funct3<<13 | hi<<10 | rs1Prime<<7 | lo<<2 | op
}
