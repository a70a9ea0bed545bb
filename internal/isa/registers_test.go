package isa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterNumber_ABINames(t *testing.T) {
	n, ok := RegisterNumber("zero")
	assert.True(t, ok)
	assert.EqualValues(t, 0, n)

	n, ok = RegisterNumber("ra")
	assert.True(t, ok)
	assert.EqualValues(t, 1, n)

	n, ok = RegisterNumber("a0")
	assert.True(t, ok)
	assert.EqualValues(t, 10, n)
}

func TestRegisterNumber_FpAliasesS0(t *testing.T) {
	fp, ok := RegisterNumber("fp")
	assert.True(t, ok)
	s0, ok := RegisterNumber("s0")
	assert.True(t, ok)
	assert.Equal(t, s0, fp)
}

func TestRegisterNumber_XNames(t *testing.T) {
	n, ok := RegisterNumber("x0")
	assert.True(t, ok)
	assert.EqualValues(t, 0, n)

	n, ok = RegisterNumber("x31")
	assert.True(t, ok)
	assert.EqualValues(t, 31, n)

	n, ok = RegisterNumber("x17")
	assert.True(t, ok)
	assert.EqualValues(t, 17, n)
}

func TestRegisterNumber_Unknown(t *testing.T) {
	_, ok := RegisterNumber("notareg")
	assert.False(t, ok)
}

func TestIsCompressedReg(t *testing.T) {
	assert.False(t, IsCompressedReg(0))
	assert.False(t, IsCompressedReg(7))
	assert.True(t, IsCompressedReg(8))
	assert.True(t, IsCompressedReg(15))
	assert.False(t, IsCompressedReg(16))
}

func TestCompressedRegField(t *testing.T) {
	assert.EqualValues(t, 0, CompressedRegField(8))
	assert.EqualValues(t, 7, CompressedRegField(15))
}
