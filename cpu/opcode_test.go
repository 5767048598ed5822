package cpu

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpcodeBits(t *testing.T) {
	assert := assert.New(t)

	for op, entry := range opTable {
		v := byte(op)

		assert.Equal(int(v>>6)&3, op.Operands(), entry.name)
		assert.Equal((v>>5)&1 == 1, op.IsAlu(), entry.name)
		assert.Equal((v>>4)&1 == 1, op.SetsPC(), entry.name)
	}
}

func TestOpcodeKinds(t *testing.T) {
	assert := assert.New(t)

	// The declared operand count matches the kind pair.
	for op, entry := range opTable {
		a, b := op.Kinds()

		declared := 0
		if a != OPERAND_NONE {
			declared++
		}
		if b != OPERAND_NONE {
			declared++
		}

		assert.Equal(op.Operands(), declared, entry.name)

		// No instruction takes a second operand without a first.
		if b != OPERAND_NONE {
			assert.NotEqual(OPERAND_NONE, a, entry.name)
		}
	}
}

func TestOpcodeLookup(t *testing.T) {
	assert := assert.New(t)

	for op, entry := range opTable {
		found, ok := Lookup(entry.name)
		assert.True(ok, entry.name)
		assert.Equal(op, found, entry.name)

		found, ok = Lookup(strings.ToLower(entry.name))
		assert.True(ok, entry.name)
		assert.Equal(op, found, entry.name)
	}

	_, ok := Lookup("FROB")
	assert.False(ok)
}

func TestOpcodeValid(t *testing.T) {
	assert := assert.New(t)

	assert.True(OP_NOP.Valid())
	assert.True(OP_SHR.Valid())
	assert.False(Op(0xff).Valid())
	assert.False(Op(0b00000010).Valid())

	assert.Equal("LDI", OP_LDI.String())
	assert.Equal("Op(0xff)", Op(0xff).String())
}
