package cpu

// Comparison flag bits as packed on the stack during an interrupt.
const (
	FLAG_EQUAL   = byte(1 << 0)
	FLAG_GREATER = byte(1 << 1)
	FLAG_LESS    = byte(1 << 2)
)

// Flags is the 3-bit comparison flag word set by CMP.
type Flags struct {
	Less    bool
	Greater bool
	Equal   bool
}

// Byte packs the flags into the low 3 bits of a zero-extended byte.
func (fl Flags) Byte() (b byte) {
	if fl.Less {
		b |= FLAG_LESS
	}
	if fl.Greater {
		b |= FLAG_GREATER
	}
	if fl.Equal {
		b |= FLAG_EQUAL
	}
	return
}

// FlagsFromByte unpacks a flag byte restored from the stack. Bytes with
// any of bits 3..7 set are rejected.
func FlagsFromByte(b byte) (fl Flags, err error) {
	if b&^(FLAG_LESS|FLAG_GREATER|FLAG_EQUAL) != 0 {
		err = ErrFlagsInvalid
		return
	}

	fl = Flags{
		Less:    (b & FLAG_LESS) != 0,
		Greater: (b & FLAG_GREATER) != 0,
		Equal:   (b & FLAG_EQUAL) != 0,
	}
	return
}

// Holds reports whether the flag word satisfies the branch predicate of op.
func (fl Flags) Holds(op Op) bool {
	switch op {
	case OP_JEQ:
		return fl.Equal
	case OP_JNE:
		return !fl.Equal
	case OP_JGT:
		return fl.Greater
	case OP_JLT:
		return fl.Less
	case OP_JGE:
		return fl.Greater || fl.Equal
	case OP_JLE:
		return fl.Less || fl.Equal
	}
	return false
}

// String renders the flags in "LGE" order with '-' for clear bits.
func (fl Flags) String() (out string) {
	marks := []byte{'-', '-', '-'}
	if fl.Less {
		marks[0] = 'L'
	}
	if fl.Greater {
		marks[1] = 'G'
	}
	if fl.Equal {
		marks[2] = 'E'
	}
	out = string(marks)
	return
}
