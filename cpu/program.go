package cpu

import (
	"iter"
	"maps"
)

// Opcode represents one assembled statement: its source location, the
// address of its first byte, and the source words that produced it.
type Opcode struct {
	LineNo int
	Addr   int
	Words  []string
	Bytes  []byte
}

// Program is the result of a successful assembly: the memory image plus
// the listing records needed to map addresses back to source lines.
type Program struct {
	Opcodes []Opcode
	Symbol  map[string]byte
}

// Debug locates the opcode covering an address.
type Debug struct {
	*Opcode
	Index int
}

func (prog *Program) Debug(addr byte) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if int(addr) >= op.Addr && int(addr) < op.Addr+len(op.Bytes) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(addr) - op.Addr,
			}
			break
		}
	}

	return
}

// LineNo returns the source line for the opcode at an address, or zero.
func (prog *Program) LineNo(addr byte) (lineno int) {
	dbg := prog.Debug(addr)
	if dbg.Opcode != nil {
		lineno = dbg.Opcode.LineNo
	}

	return
}

// Binary flattens the listing into a memory image for Cpu.Load.
func (prog *Program) Binary() (image []byte) {
	for addr, value := range prog.Bytes() {
		for addr >= len(image) {
			image = append(image, 0)
		}
		image[addr] = value
	}

	return
}

// Bytes iterates the assembled bytes in address order.
func (prog *Program) Bytes() iter.Seq2[int, byte] {
	return func(yield func(addr int, value byte) bool) {
		for _, op := range prog.Opcodes {
			for n, value := range op.Bytes {
				if !yield(op.Addr+n, value) {
					return
				}
			}
		}
	}
}

// Symbols returns the label table in a copy safe for the caller.
func (prog *Program) Symbols() map[string]byte {
	return maps.Clone(prog.Symbol)
}
